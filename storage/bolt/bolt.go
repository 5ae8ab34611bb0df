// Package bolt is a storage.Storage backed by BoltDB.
package bolt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/diffindiffs/didbase/storage"

	bolt "go.etcd.io/bbolt"
)

// Storage keeps each run in its own bucket.  Each result is a JSON
// value keyed by its id.
type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) logf(msg string, args ...interface{}) {
	if s.Debug {
		slog.Debug("BoltDB Storage."+msg, args...)
	}
}

func (s *Storage) MakeRun(ctx context.Context, rid string) error {
	s.logf("MakeRun", "run", rid)
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucket([]byte(rid))
		return err
	})
}

func (s *Storage) RemRun(ctx context.Context, rid string) error {
	s.logf("RemRun", "run", rid)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(rid))
	})
}

func (s *Storage) GetRun(ctx context.Context, rid string) ([]*storage.Result, error) {
	s.logf("GetRun", "run", rid)
	rs := make([]*storage.Result, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(rid))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			var r storage.Result
			if err := json.Unmarshal(bs, &r); err != nil {
				return err
			}
			r.Id = string(id)
			rs = append(rs, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logf("GetRun found", "run", rid, "results", len(rs))

	if len(rs) == 0 {
		return nil, nil
	}

	return rs, nil
}

func (s *Storage) WriteResults(ctx context.Context, rid string, rs []*storage.Result) error {
	s.logf("WriteResults", "run", rid, "results", len(rs))

	if 0 == len(rs) {
		return nil
	}

	vals := make(map[string][]byte, len(rs))

	for _, r := range rs {
		// The key is the id.
		js, err := json.Marshal(&storage.Result{
			Name:      r.Name,
			Procedure: r.Procedure,
			Value:     r.Value,
		})
		if err != nil {
			return err
		}
		vals[r.Id] = js
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(rid))
		if err != nil {
			return err
		}
		for id, bs := range vals {
			if err := b.Put([]byte(id), bs); err != nil {
				return err
			}
		}
		return nil
	})
}
