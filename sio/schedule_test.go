package sio

import (
	"context"
	"testing"
	"time"
)

func TestScheduleNext(t *testing.T) {
	s, err := NewSchedule("0 0 * * * * *", "batch.yaml")
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2019, 3, 1, 10, 30, 0, 0, time.UTC)
	next, err := s.Next(at)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2019, 3, 1, 11, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("%s != %s", next, want)
	}

	if _, err = NewSchedule("not cron", ""); err == nil {
		t.Fatal("expected an error")
	}
}

func TestScheduleRun(t *testing.T) {
	filename := writeBatch(t, batchYAML)

	// Every second.
	s, err := NewSchedule("* * * * * * *", filename)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := make(chan interface{})
	errs := make(chan error, 1)
	go func() {
		errs <- s.Run(ctx, in)
	}()

	select {
	case <-ctx.Done():
		t.Fatal("nothing scheduled")
	case msg := <-in:
		b, is := msg.(*BatchFile)
		if !is || b.Id != "req1" {
			t.Fatal(JS(msg))
		}
	}

	cancel()
	if err := <-errs; err != context.Canceled {
		t.Fatalf("unexpected error %v", err)
	}
}
