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
	"strconv"
	"strings"
)

// ResultFunc turns the final fields of a Specification into its
// result fields, which are merged into the trace.
type ResultFunc func(Args) (Args, error)

// Procedure is a fixed, ordered sequence of Steps.
//
// Order matters: a Step can use fields returned by earlier Steps.  A
// Procedure should not be modified after it's defined.
type Procedure struct {
	// Name is the name of the Procedure.
	Name string `json:"name" yaml:"name"`

	// Doc is optional documentation in Markdown.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Steps are the Steps in execution order.
	Steps []*Step `json:"steps" yaml:"steps"`

	// Result is called once per Specification after all Steps
	// have executed.  Defaults to identity.
	Result ResultFunc `json:"-" yaml:"-"`
}

// NewProcedure makes a Procedure.
func NewProcedure(name string, steps ...*Step) *Procedure {
	return &Procedure{
		Name:  name,
		Steps: steps,
	}
}

// Len returns the number of Steps.
func (p *Procedure) Len() int {
	return len(p.Steps)
}

// At returns the ith Step.
func (p *Procedure) At(i int) *Step {
	return p.Steps[i]
}

// Slice returns a copy of Steps [i,j).
func (p *Procedure) Slice(i, j int) []*Step {
	acc := make([]*Step, j-i)
	copy(acc, p.Steps[i:j])
	return acc
}

// Each calls the given function on each Step in order until that
// function returns false.
func (p *Procedure) Each(f func(i int, s *Step) bool) {
	for i, s := range p.Steps {
		if !f(i, s) {
			return
		}
	}
}

// Equal reports whether both Procedures have the same name and equal
// Steps in the same order.
func (p *Procedure) Equal(other *Procedure) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	if p.Name != other.Name || len(p.Steps) != len(other.Steps) {
		return false
	}
	for i, s := range p.Steps {
		if !s.Equal(other.Steps[i]) {
			return false
		}
	}
	return true
}

type procKey string

// key gives a comparable value that's the same for Equal Procedures.
func (p *Procedure) key() procKey {
	var b strings.Builder
	b.WriteString(p.Name)
	for _, s := range p.Steps {
		k := s.key()
		b.WriteString("|")
		b.WriteString(k.name)
		b.WriteString("/")
		if k.fnID != "" {
			b.WriteString(k.fnID)
		} else {
			b.WriteString(strconv.FormatUint(uint64(k.fn), 16))
		}
		b.WriteString("/")
		b.WriteString(k.sharing.String())
	}
	return procKey(b.String())
}

func (p *Procedure) result(as Args) (Args, error) {
	if p.Result == nil {
		return as, nil
	}
	return p.Result(as)
}

func (p *Procedure) String() string {
	if p == nil {
		return "nil"
	}
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return p.Name + " (StatsProcedure with " + strconv.Itoa(len(p.Steps)) + " steps): " +
		strings.Join(names, " |> ")
}

// ProcedureMap maps names to Procedures.
type ProcedureMap map[string]*Procedure

// NewProcedureMap makes an empty ProcedureMap.
func NewProcedureMap() ProcedureMap {
	return make(ProcedureMap)
}

// Add adds the given Procedures under their names.
func (m ProcedureMap) Add(ps ...*Procedure) ProcedureMap {
	for _, p := range ps {
		m[p.Name] = p
	}
	return m
}

// Find returns the named Procedure or an *UnknownProcedure.
func (m ProcedureMap) Find(name string) (*Procedure, error) {
	p, have := m[name]
	if !have {
		return nil, &UnknownProcedure{Name: name}
	}
	return p, nil
}
