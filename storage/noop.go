package storage

import "context"

// NoopStorage stores nothing.
type NoopStorage struct {
}

func (s *NoopStorage) MakeRun(ctx context.Context, rid string) error {
	return nil
}

func (s *NoopStorage) RemRun(ctx context.Context, rid string) error {
	return nil
}

func (s *NoopStorage) GetRun(ctx context.Context, rid string) ([]*Result, error) {
	return nil, nil
}

func (s *NoopStorage) WriteResults(ctx context.Context, rid string, rs []*Result) error {
	return nil
}

func (s *NoopStorage) Open(ctx context.Context) error {
	return nil
}

func (s *NoopStorage) Close(ctx context.Context) error {
	return nil
}
