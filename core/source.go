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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DefaultInterpreters will be used in StepSource.Compile if given
// nil interpreters.
var DefaultInterpreters = make(map[string]Interpreter)

// Interpreter can compile and execute code for Step functions.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code with the given positional arguments.
	// The names are the argument names (see Step.ArgNames), and
	// names may be shorter than args.  The result of previous
	// Compile() might be provided.
	Exec(ctx context.Context, names []string, args []interface{}, code interface{}, compiled interface{}) (Args, error)
}

// StepSource can be compiled to a Step whose function is given as
// code for an Interpreter.
type StepSource struct {
	Name        string      `json:"name" yaml:"name"`
	Doc         string      `json:"doc,omitempty" yaml:",omitempty"`
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source"`
	Sharing     string      `json:"sharing,omitempty" yaml:",omitempty"`
	Required    []string    `json:"required,omitempty" yaml:",omitempty"`
	Defaults    Args        `json:"defaults,omitempty" yaml:",omitempty"`
	CopyArgs    []int       `json:"copyArgs,omitempty" yaml:"copyArgs,omitempty"`
}

// ParseSharing parses "byValue" (or "") and "byIdentity".
func ParseSharing(s string) (Sharing, error) {
	switch s {
	case "", "byValue", "value":
		return ByValue, nil
	case "byIdentity", "identity":
		return ByIdentity, nil
	default:
		return ByValue, fmt.Errorf("unknown sharing %q", s)
	}
}

// sourceID hashes the interpreter name and the code.
func (s *StepSource) sourceID() (string, error) {
	js, err := json.Marshal(s.Source)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(s.Interpreter))
	h.Write([]byte{0})
	h.Write(js)
	return s.Interpreter + ":" + hex.EncodeToString(h.Sum(nil)[:12]), nil
}

// Compile attempts to compile the StepSource into a Step using the
// given interpreters, which defaults to DefaultInterpreters.
//
// Two Steps compiled from the same name, interpreter, code, and
// sharing are Equal.
func (s *StepSource) Compile(ctx context.Context, interpreters map[string]Interpreter) (*Step, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, have := interpreters[s.Interpreter]
	if !have {
		return nil, ErrInterpreterNotFound
	}

	sharing, err := ParseSharing(s.Sharing)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", s.Name, err)
	}

	id, err := s.sourceID()
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", s.Name, err)
	}

	x, err := interpreter.Compile(ctx, s.Source)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", s.Name, err)
	}

	step := &Step{
		Name:     s.Name,
		Doc:      s.Doc,
		FuncID:   id,
		Sharing:  sharing,
		Required: s.Required,
		CopyArgs: s.CopyArgs,
	}
	for _, p := range s.Defaults.Keys() {
		step.Defaults = append(step.Defaults, Param{
			Name:  p,
			Value: s.Defaults[p],
		})
	}

	names := step.ArgNames()
	code := s.Source
	step.F = func(ctx context.Context, args []interface{}) (Args, error) {
		return interpreter.Exec(ctx, names, args, code, x)
	}

	return step, nil
}

// ProcedureSource can be compiled to a Procedure.
type ProcedureSource struct {
	Name  string        `json:"name" yaml:"name"`
	Doc   string        `json:"doc,omitempty" yaml:",omitempty"`
	Steps []*StepSource `json:"steps" yaml:"steps"`
}

// Compile compiles each StepSource.
func (p *ProcedureSource) Compile(ctx context.Context, interpreters map[string]Interpreter) (*Procedure, error) {
	steps := make([]*Step, len(p.Steps))
	for i, ss := range p.Steps {
		s, err := ss.Compile(ctx, interpreters)
		if err != nil {
			return nil, fmt.Errorf("procedure %q: %w", p.Name, err)
		}
		steps[i] = s
	}
	proc := NewProcedure(p.Name, steps...)
	proc.Doc = p.Doc
	return proc, nil
}
