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
	"errors"
	"log/slog"
	"reflect"
	"strings"
)

// VerboseArg is the argument name that (if bound to a bool) overrides
// the verbosity given to Step.Call.
var VerboseArg = "verbose"

// Sharing says how Proceed decides whether two Specifications can
// share one execution of a Step.
type Sharing int

const (
	// ByValue groups Specifications whose Step arguments are
	// equal as values.
	ByValue Sharing = iota

	// ByIdentity groups Specifications whose Step arguments are
	// the very same objects.
	ByIdentity
)

func (s Sharing) String() string {
	switch s {
	case ByValue:
		return "byValue"
	case ByIdentity:
		return "byIdentity"
	default:
		return "unknown"
	}
}

// MarshalText renders the Sharing as its name.
func (s Sharing) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name as given to ParseSharing.
func (s *Sharing) UnmarshalText(bs []byte) error {
	x, err := ParseSharing(string(bs))
	if err != nil {
		return err
	}
	*s = x
	return nil
}

// Func is the function that does the work of a Step.
//
// The arguments are (in order) the values of the Step's Required
// arguments, the values of its Defaults, the values returned by its
// Transform, and the values returned by its Combine.
//
// The returned fields are merged into each trace that shares the
// execution.
type Func func(ctx context.Context, args []interface{}) (Args, error)

// Step is a named unit of computation.
//
// The identity of a Step is its Name, its function, and its Sharing.
// A Step should not be modified after it's been put into a Procedure.
type Step struct {
	// Name is the name of the Step.
	Name string `json:"name" yaml:"name"`

	// Doc is optional documentation in Markdown.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// F is the function.
	F Func `json:"-" yaml:"-"`

	// FuncID optionally identifies F.  Steps with a FuncID are
	// compared by FuncID instead of by F's code pointer, which
	// can't tell apart two closures made by the same code.
	FuncID string `json:"funcId,omitempty" yaml:"funcId,omitempty"`

	// Sharing is either ByValue or ByIdentity.
	Sharing Sharing `json:"sharing" yaml:"sharing"`

	// Required names the arguments without defaults.
	Required []string `json:"required,omitempty" yaml:",omitempty"`

	// Defaults are the arguments with default values.
	Defaults []Param `json:"defaults,omitempty" yaml:",omitempty"`

	// Transform optionally derives additional arguments from all
	// of the arguments.  Transform must not modify the given
	// Args.
	Transform func(Args) ([]interface{}, error) `json:"-" yaml:"-"`

	// Combine optionally combines the arguments of all the
	// Specifications that share an execution of this Step.  The
	// returned values are appended to the arguments given to F.
	Combine func([]Args) ([]interface{}, error) `json:"-" yaml:"-"`

	// CopyArgs are the indexes of the arguments that F mutates
	// in place.
	CopyArgs []int `json:"copyArgs,omitempty" yaml:"copyArgs,omitempty"`
}

// NewStep makes a Step with the given name, function, and sharing.
func NewStep(name string, f Func, sharing Sharing) *Step {
	return &Step{
		Name:    name,
		F:       f,
		Sharing: sharing,
	}
}

type stepKey struct {
	name    string
	fn      uintptr
	fnID    string
	sharing Sharing
}

func (s *Step) key() stepKey {
	k := stepKey{
		name:    s.Name,
		fnID:    s.FuncID,
		sharing: s.Sharing,
	}
	if s.FuncID == "" && s.F != nil {
		k.fn = reflect.ValueOf(s.F).Pointer()
	}
	return k
}

// Equal reports whether both Steps have the same name, function, and
// sharing.
func (s *Step) Equal(other *Step) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.key() == other.key()
}

func (s *Step) String() string {
	if s == nil {
		return "nil"
	}
	return s.Name
}

// Describe returns a longer description of the Step.
func (s *Step) Describe() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(" (StatsStep shared ")
	b.WriteString(s.Sharing.String())
	b.WriteString(")")
	if 0 < len(s.Required) {
		b.WriteString(" required: ")
		b.WriteString(strings.Join(s.Required, ","))
	}
	if 0 < len(s.Defaults) {
		b.WriteString(" defaults: ")
		for i, d := range s.Defaults {
			if 0 < i {
				b.WriteString(",")
			}
			b.WriteString(d.Name)
		}
	}
	return b.String()
}

// ArgNames returns the names of the Required and Defaults arguments
// in the order they are passed to F.
func (s *Step) ArgNames() []string {
	acc := make([]string, 0, len(s.Required)+len(s.Defaults))
	acc = append(acc, s.Required...)
	for _, d := range s.Defaults {
		acc = append(acc, d.Name)
	}
	return acc
}

// Inputs computes the positional arguments (excluding any from
// Combine) for the given Args.
//
// A missing required argument results in a *MissingArg.
func (s *Step) Inputs(as Args) ([]interface{}, error) {
	acc := make([]interface{}, 0, len(s.Required)+len(s.Defaults)+2)
	for _, p := range s.Required {
		v, have := as[p]
		if !have {
			return nil, &MissingArg{
				Step: s.Name,
				Arg:  p,
			}
		}
		acc = append(acc, v)
	}
	for _, d := range s.Defaults {
		if v, have := as[d.Name]; have {
			acc = append(acc, v)
		} else {
			acc = append(acc, d.Value)
		}
	}
	if s.Transform != nil {
		more, err := s.Transform(as)
		if err != nil {
			return nil, err
		}
		acc = append(acc, more...)
	}
	return acc, nil
}

func (s *Step) combined(ass []Args) ([]interface{}, error) {
	if s.Combine == nil {
		return nil, nil
	}
	return s.Combine(ass)
}

func (s *Step) exec(ctx context.Context, args []interface{}) (Args, error) {
	if s.F == nil {
		return nil, errors.New(`step "` + s.Name + `" has no function`)
	}
	return s.F(ctx, args)
}

// fromDefaults reports whether the argument x at position j is the
// Step's own default value.
func (s *Step) fromDefaults(j int, x interface{}) bool {
	k := j - len(s.Required)
	if k < 0 || len(s.Defaults) <= k || !isRef(x) {
		return false
	}
	return refKey(s.Defaults[k].Value) == refKey(x)
}

// copyDefaults replaces each CopyArgs argument that is one of the
// Step's own defaults with a deep copy.  Defaults are never mutated.
func (s *Step) copyDefaults(args []interface{}) error {
	for _, j := range s.CopyArgs {
		if j < 0 || len(args) <= j {
			return &BadArgCount{
				Step:     s.Name,
				Expected: j + 1,
				Got:      len(args),
			}
		}
		if !s.fromDefaults(j, args[j]) {
			continue
		}
		x, err := DeepCopy(args[j])
		if err != nil {
			return err
		}
		args[j] = x
	}
	return nil
}

// Call runs the Step for a single set of Args and returns those Args
// merged with the Step's returned fields.
//
// If the Args include a bool bound to VerboseArg, that value
// overrides the given verbose flag.
func (s *Step) Call(ctx context.Context, as Args, verbose bool) (Args, error) {
	return s.call(ctx, as, verbose, slog.Default())
}

func (s *Step) call(ctx context.Context, as Args, verbose bool, logger *slog.Logger) (Args, error) {
	if x, have := as[VerboseArg]; have {
		if b, is := x.(bool); is {
			verbose = b
		}
	}

	args, err := s.Inputs(as)
	if err != nil {
		return nil, err
	}
	if err = s.copyDefaults(args); err != nil {
		return nil, err
	}
	more, err := s.combined([]Args{as})
	if err != nil {
		return nil, err
	}
	args = append(args, more...)

	level := slog.LevelDebug
	if verbose {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "running step", slog.String("step", s.Name))

	ret, err := s.exec(ctx, args)
	if err != nil {
		return nil, err
	}

	return as.Merge(ret), nil
}
