/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"
)

// ErrScheduleDone is returned by Schedule.Next when the expression
// has no more times.
var ErrScheduleDone = errors.New("schedule has no more times")

// Schedule periodically submits a batch request.
type Schedule struct {
	// Expr is the cron expression.
	Expr string

	// Filename is the BatchFile to load at each time.  The file
	// is loaded each time so that edits take effect.
	Filename string

	// Now defaults to time.Now.
	Now func() time.Time

	expr *cronexpr.Expression
}

// NewSchedule parses the cron expression (see
// https://github.com/gorhill/cronexpr).
func NewSchedule(expr, filename string) (*Schedule, error) {
	e, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Schedule{
		Expr:     expr,
		Filename: filename,
		Now:      time.Now,
		expr:     e,
	}, nil
}

// Next gives the next time after t.
func (s *Schedule) Next(t time.Time) (time.Time, error) {
	next := s.expr.Next(t)
	if next.IsZero() {
		return next, ErrScheduleDone
	}
	return next, nil
}

// Run sends the loaded BatchFile to in at each scheduled time until
// the context is done or the schedule ends.
//
// A BatchFile that fails to load is logged and skipped.
func (s *Schedule) Run(ctx context.Context, in chan interface{}) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	for {
		next, err := s.Next(now())
		if err != nil {
			return err
		}
		slog.Debug("schedule waiting", "expr", s.Expr, "next", next)

		t := time.NewTimer(next.Sub(now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		b, err := LoadBatchFile(s.Filename)
		if err != nil {
			slog.Error("scheduled batch failed to load", "filename", s.Filename, "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case in <- b:
		}
	}
}
