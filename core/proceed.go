/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

package core

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Control modifies how Proceed executes a batch and what it returns.
type Control struct {
	// Verbose logs each SharedStep at Info instead of Debug.
	Verbose bool

	// Keep names fields to return in addition to the canonical
	// result field.
	Keep []string

	// KeepAll returns each Specification's whole *Trace.
	KeepAll bool

	// Pause, when positive, stops execution after that many
	// SharedSteps.  The partial *Traces are returned as they are,
	// and no Result hook is called.
	Pause int

	// Parallel executes the distinct argument groups of a
	// SharedStep concurrently.
	Parallel bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultControl returns a Control with the default settings.
func DefaultControl() *Control {
	return &Control{}
}

func (c *Control) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Validate checks the Keep names.
func (c *Control) Validate() error {
	for _, p := range c.Keep {
		if p == "" {
			return &BadKeep{
				Keep: p,
			}
		}
	}
	if c.Pause < 0 {
		return &BadPause{
			Pause: c.Pause,
		}
	}
	return nil
}

// extract makes the value returned for a finished Trace.
func (c *Control) extract(t *Trace) interface{} {
	switch {
	case c.KeepAll:
		return t
	case 0 < len(c.Keep):
		return t.Select(c.Keep...)
	default:
		_, v, _ := t.Canonical()
		return v
	}
}

// execution is the state of one Proceed call.
type execution struct {
	ctl    *Control
	logger *slog.Logger

	specs []*Specification

	// procs are the distinct Procedures in order of first
	// appearance.
	procs []*Procedure

	// members[p] are the indexes of the Specifications that use
	// procs[p].
	members [][]int

	traces []*Trace
	refs   refCounts
}

func newExecution(specs []*Specification, c *Control) *execution {
	e := &execution{
		ctl:    c,
		logger: c.logger(),
		specs:  specs,
		traces: make([]*Trace, len(specs)),
		refs:   make(refCounts, 4*len(specs)),
	}

	seen := make(map[procKey]int, 4)
	for i, s := range specs {
		k := s.Procedure.key()
		p, have := seen[k]
		if !have {
			p = len(e.procs)
			seen[k] = p
			e.procs = append(e.procs, s.Procedure)
			e.members = append(e.members, nil)
		}
		e.members[p] = append(e.members[p], i)

		t := NewTrace(s.Args)
		for _, v := range t.as {
			e.refs.add(v, 1)
		}
		e.traces[i] = t
	}

	return e
}

// set updates a trace field and the reference counts.
func (e *execution) set(t *Trace, p string, v interface{}) {
	if old, have := t.Get(p); have {
		e.refs.add(old, -1)
	}
	e.refs.add(v, 1)
	t.Set(p, v)
}

func (e *execution) merge(t *Trace, as Args) {
	for _, p := range as.Keys() {
		e.set(t, p, as[p])
	}
}

// call is one invocation of a Step's function for a group.
type call struct {
	members []int
	args    []interface{}
	ret     Args
}

// prepare groups the Specifications that execute the SharedStep and
// computes the arguments for each group.
func (e *execution) prepare(ss *SharedStep) ([]*call, error) {
	step := ss.Step

	var ids []int
	for _, p := range ss.Procs {
		ids = append(ids, e.members[p]...)
	}
	sort.Ints(ids)

	g := newGrouper(step.Sharing)
	for _, i := range ids {
		args, err := step.Inputs(e.traces[i].as)
		if err != nil {
			return nil, err
		}
		g.add(i, args)
	}

	calls := make([]*call, 0, len(g.groups))
	for _, gr := range g.groups {
		args := make([]interface{}, len(gr.args), len(gr.args)+2)
		copy(args, gr.args)

		for _, j := range step.CopyArgs {
			if j < 0 || len(args) <= j {
				return nil, &BadArgCount{
					Step:     step.Name,
					Expected: j + 1,
					Got:      len(args),
				}
			}
			if !step.fromDefaults(j, args[j]) && e.refs.count(args[j]) <= len(gr.members) {
				continue
			}
			x, err := DeepCopy(args[j])
			if err != nil {
				return nil, err
			}
			args[j] = x
		}

		ass := make([]Args, len(gr.members))
		for k, i := range gr.members {
			ass[k] = e.traces[i].as
		}
		more, err := step.combined(ass)
		if err != nil {
			return nil, err
		}
		args = append(args, more...)

		calls = append(calls, &call{
			members: gr.members,
			args:    args,
		})
	}

	return calls, nil
}

func (e *execution) run(ctx context.Context, step *Step, calls []*call) error {
	if !e.ctl.Parallel || len(calls) < 2 {
		for _, c := range calls {
			ret, err := step.exec(ctx, c.args)
			if err != nil {
				return err
			}
			c.ret = ret
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range calls {
		c := c
		g.Go(func() error {
			ret, err := step.exec(gctx, c.args)
			if err != nil {
				return err
			}
			c.ret = ret
			return nil
		})
	}
	return g.Wait()
}

// step executes one SharedStep.
func (e *execution) step(ctx context.Context, n int, ss *SharedStep) error {
	ctx, span := tracer.Start(ctx, "didbase.SharedStep",
		trace.WithAttributes(
			attribute.String("step", ss.Step.Name),
			attribute.Int("index", n),
			attribute.IntSlice("procs", ss.Procs),
		),
	)
	defer span.End()

	then := time.Now()

	calls, err := e.prepare(ss)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	level := slog.LevelDebug
	if e.ctl.Verbose {
		level = slog.LevelInfo
	}
	e.logger.Log(ctx, level, "running step",
		slog.String("step", ss.Step.Name),
		slog.Any("procs", ss.Procs),
		slog.Int("groups", len(calls)))

	if err := e.run(ctx, ss.Step, calls); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for _, c := range calls {
		for _, i := range c.members {
			e.merge(e.traces[i], c.ret)
		}
	}

	attrs := metric.WithAttributes(attribute.String("step", ss.Step.Name))
	sharedStepCount.Add(ctx, 1, attrs)
	executionCount.Add(ctx, int64(len(calls)), attrs)
	stepLatency.Record(ctx, time.Since(then).Seconds(), attrs)

	span.SetAttributes(attribute.Int("groups", len(calls)))
	span.SetStatus(codes.Ok, "")

	return nil
}

// partial returns the unfinished Traces.
func (e *execution) partial() []interface{} {
	acc := make([]interface{}, len(e.traces))
	for i, t := range e.traces {
		acc[i] = t
	}
	return acc
}

// finish calls each Procedure's Result hook and extracts the
// results.
func (e *execution) finish() ([]interface{}, error) {
	acc := make([]interface{}, len(e.traces))
	for i, t := range e.traces {
		if r := e.specs[i].Procedure.Result; r != nil {
			as, err := r(t.Args())
			if err != nil {
				return nil, err
			}
			e.merge(t, as)
		}
		acc[i] = e.ctl.extract(t)
	}
	return acc, nil
}

func checkBatch(specs []*Specification, c *Control) error {
	if len(specs) == 0 {
		return ErrEmptyBatch
	}
	for _, s := range specs {
		if s == nil || s.Procedure == nil {
			return ErrNilProcedure
		}
	}
	return c.Validate()
}

// Proceed executes a batch of Specifications and returns one result
// per Specification in input order.
//
// Specifications with structurally identical Procedures are grouped,
// and the distinct Procedures are pooled (see Pool).  Each SharedStep
// is then executed once for each distinct set of arguments (by value
// or by identity according to the Step's Sharing), and the returned
// fields are merged into the Trace of every Specification in the
// group.
//
// An argument that a Step mutates in place (see Step.CopyArgs) is
// deep-copied before the call when Traces outside the group refer
// to it.
//
// By default the result for a Specification is the value of its
// canonical result field (see Trace.Canonical).  With Control.Keep,
// the result is an Args with the kept fields and the canonical
// field.  With Control.KeepAll, the result is the *Trace.
//
// The first error from any Step aborts the batch, and that error is
// returned as is.
func Proceed(ctx context.Context, specs []*Specification, c *Control) ([]interface{}, error) {
	if c == nil {
		c = DefaultControl()
	}
	if err := checkBatch(specs, c); err != nil {
		return nil, err
	}

	e := newExecution(specs, c)
	initMetrics(e.logger)

	ctx, span := tracer.Start(ctx, "didbase.Proceed",
		trace.WithAttributes(
			attribute.Int("specifications", len(specs)),
			attribute.Int("procedures", len(e.procs)),
		),
	)
	defer span.End()

	pooled, err := Pool(e.procs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("shared_steps", pooled.Len()))

	for n, ss := range pooled.Steps {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			return nil, err
		}
		if err := e.step(ctx, n, ss); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if 0 < c.Pause && n+1 == c.Pause {
			e.logger.Info("paused", slog.Int("executed", n+1), slog.Int("of", pooled.Len()))
			span.SetStatus(codes.Ok, "paused")
			return e.partial(), nil
		}
	}

	acc, err := e.finish()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	return acc, nil
}
