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

// Package sio couples batch estimation to message input and output.
//
// A Service reads batch requests (BatchFiles, usually as JSON) from
// its Couplings, runs them with core.Proceed, optionally persists the
// results, and writes a Result for each request.
package sio

import (
	"context"
	"log/slog"
	"time"

	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/storage"
)

// Result represents all visible output from processing a batch
// request.
type Result struct {
	// Id is the run id.
	Id string `json:"id"`

	// Request is the Id of the BatchFile, if any.
	Request string `json:"request,omitempty"`

	// Name is the name of the BatchFile.
	Name string `json:"name,omitempty"`

	// Results has one entry per Specification in order.
	Results []*storage.Result `json:"results,omitempty"`

	// Error is the error, if any, that stopped the run.
	Error string `json:"error,omitempty"`

	// Elapsed is the time to run the batch.
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// Service runs the batch requests that arrive via Couplings.
type Service struct {
	// Procedures are the Procedures a request can name.
	Procedures core.ProcedureMap

	// Storage, if not nil, receives each run's results.
	Storage storage.Storage

	// HaltOnInputEOF stops Loop when the Couplings report the
	// end of input.
	HaltOnInputEOF bool

	// DataDir is the directory for the Data files that requests
	// name.  When empty, requests can't name Data.
	DataDir string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	in   chan interface{}
	out  chan *Result
	done chan bool
}

// NewService makes a Service with the given Procedures and
// Couplings.
//
// The coupling's IO() method is called to obtain the service's
// in/out channels.
func NewService(ctx context.Context, procs core.ProcedureMap, couplings Couplings) (*Service, error) {
	in, out, done, err := couplings.IO(ctx)
	if err != nil {
		return nil, err
	}
	return &Service{
		Procedures: procs,
		Storage:    &storage.NoopStorage{},
		in:         in,
		out:        out,
		done:       done,
	}, nil
}

// Input returns the channel that Loop reads.  A Schedule can send
// requests to it.
func (s *Service) Input() chan interface{} {
	return s.in
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ProcessMsg runs one batch request.
//
// Failures are reported in the Result.  A request that isn't a
// BatchFile at all is still answered, with its "id" (if any) as the
// Result's Request.  A request's Data is confined to DataDir.
func (s *Service) ProcessMsg(ctx context.Context, msg interface{}) *Result {
	r := &Result{
		Id: storage.NewRunId(),
	}
	if m, is := msg.(map[string]interface{}); is {
		r.Request, _ = m["id"].(string)
	}

	b, err := AsBatchFile(msg)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Request, r.Name = b.Id, b.Name

	if err = b.Confine(s.DataDir); err != nil {
		s.logger().Warn("refused batch", "run", r.Id, "error", err)
		r.Error = err.Error()
		return r
	}

	logger := s.logger().With("run", r.Id, "batch", b.Name)
	logger.Info("running batch", "specs", len(b.Specs), "procedure", b.Procedure)

	then := time.Now()
	specs, values, err := b.Run(ctx, s.Procedures, logger)
	r.Elapsed = time.Since(then)
	if err != nil {
		logger.Error("batch failed", "error", err)
		r.Error = err.Error()
		return r
	}

	r.Results = storage.AsResults(specs, values)

	if s.Storage != nil {
		if err := s.store(ctx, r); err != nil {
			logger.Error("failed to store results", "error", err)
			r.Error = err.Error()
		}
	}

	return r
}

// store persists a run.  A run whose results can't be written is
// removed.
func (s *Service) store(ctx context.Context, r *Result) error {
	if err := s.Storage.MakeRun(ctx, r.Id); err != nil {
		return err
	}
	err := s.Storage.WriteResults(ctx, r.Id, r.Results)
	if err == nil {
		return nil
	}
	if rerr := s.Storage.RemRun(ctx, r.Id); rerr != nil {
		s.logger().Warn("failed to remove run", "run", r.Id, "error", rerr)
	}
	return err
}

// Loop starts the input processing loop in the current goroutine.
//
// This loop calls ProcessMsg on each message that arrives via the
// input coupling, and the loop halts when ctx.Done().
func (s *Service) Loop(ctx context.Context) error {
	s.logger().Debug("Service.Loop starting")
LOOP:
	for {
		select {
		case <-s.done:
			if s.HaltOnInputEOF {
				s.logger().Debug("Service.Loop shutting down (done)")
				break LOOP
			}
			// Don't select a closed channel again.
			s.done = nil
		case <-ctx.Done():
			s.logger().Debug("Service.Loop shutting down (ctx.Done)")
			break LOOP
		case msg := <-s.in:
			if msg == nil {
				break LOOP
			}
			r := s.ProcessMsg(ctx, msg)
			select {
			case <-ctx.Done():
			case s.out <- r:
			}
		}
	}

	s.logger().Debug("Service.Loop done")
	return nil
}
