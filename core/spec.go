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
	"strings"
)

// Specification is a Procedure together with the arguments for one
// execution of that Procedure.
//
// A Specification isn't modified by its execution.  Step defaults are
// applied when Steps execute, not when the Specification is made.
type Specification struct {
	// Name is an optional label.
	Name string `json:"name,omitempty" yaml:",omitempty"`

	Procedure *Procedure `json:"procedure"`

	Args Args `json:"args,omitempty" yaml:",omitempty"`
}

// NewSpecification makes a Specification with a copy of the given
// Args.
func NewSpecification(name string, p *Procedure, as Args) *Specification {
	if as == nil {
		as = NewArgs()
	} else {
		as = as.Copy()
	}
	return &Specification{
		Name:      name,
		Procedure: p,
		Args:      as,
	}
}

// Equal reports whether both Specifications have Equal Procedures and
// equal Args.  Names are ignored.
func (s *Specification) Equal(other *Specification) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.Procedure.Equal(other.Procedure) && s.Args.Equal(other.Args)
}

// ExactEqual is Equal but also requires the same Name.
func (s *Specification) ExactEqual(other *Specification) bool {
	if !s.Equal(other) {
		return false
	}
	return s == other || s.Name == other.Name
}

// Run executes the Specification on its own.
//
// Each Step is executed as with Step.Call, so a bool "verbose"
// argument overrides Control.Verbose, and Steps log to
// Control.Logger.  Control.Keep and Control.KeepAll are honored as in
// Proceed.  Control.Pause, when positive, stops after
// that many Steps and returns the partial *Trace.
func (s *Specification) Run(ctx context.Context, c *Control) (interface{}, error) {
	if c == nil {
		c = DefaultControl()
	}
	if err := checkBatch([]*Specification{s}, c); err != nil {
		return nil, err
	}

	t := NewTrace(s.Args)
	for i, step := range s.Procedure.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		as, err := step.call(ctx, t.as, c.Verbose, c.logger())
		if err != nil {
			return nil, err
		}
		t.Merge(as)
		if 0 < c.Pause && i+1 == c.Pause {
			return t, nil
		}
	}

	as, err := s.Procedure.result(t.Args())
	if err != nil {
		return nil, err
	}
	t.Merge(as)

	return c.extract(t), nil
}

func (s *Specification) String() string {
	var b strings.Builder
	if s.Name != "" {
		b.WriteString(s.Name)
		b.WriteString(" ")
	}
	b.WriteString("(Specification of ")
	if s.Procedure == nil {
		b.WriteString("nil")
	} else {
		b.WriteString(s.Procedure.Name)
	}
	b.WriteString(")")
	for _, p := range s.Args.Keys() {
		b.WriteString(" ")
		b.WriteString(p)
	}
	return b.String()
}
