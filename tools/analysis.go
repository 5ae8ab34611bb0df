/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package tools has utilities for looking at Procedures and their
// pooled plans.
package tools

import (
	"errors"
	"sort"
	"strings"

	"github.com/diffindiffs/didbase/core"
)

// PoolAnalysis summarizes a PooledProcedure.
type PoolAnalysis struct {
	pooled *core.PooledProcedure

	// Procedures is the number of pooled Procedures.
	Procedures int `json:"procedures"`

	// Steps is the total number of Steps over all Procedures.
	Steps int `json:"steps"`

	// SharedSteps is the number of SharedSteps in the plan.
	SharedSteps int `json:"sharedSteps"`

	// Saved is the number of Step executions that pooling saves
	// for one Specification per Procedure.
	Saved int `json:"saved"`

	// Pooled names the Steps executed for more than one
	// Procedure.
	Pooled []string `json:"pooled,omitempty"`

	// Split names the Steps that appear in more than one
	// SharedStep because their Procedures disagree about their
	// order.
	Split []string `json:"split,omitempty"`

	// ByIdentity names the Steps that group arguments by
	// identity.
	ByIdentity []string `json:"byIdentity,omitempty"`

	// Interpreters names the interpreters of Steps compiled from
	// source.
	Interpreters []string `json:"interpreters"`
}

// Analyze looks at the given PooledProcedure.
func Analyze(p *core.PooledProcedure) (*PoolAnalysis, error) {
	if p == nil {
		return nil, errors.New("nothing to analyze")
	}

	a := PoolAnalysis{
		pooled:      p,
		Procedures:  len(p.Procedures),
		SharedSteps: p.Len(),
	}

	for _, proc := range p.Procedures {
		a.Steps += proc.Len()
	}
	a.Saved = a.Steps - a.SharedSteps

	pooled, byIdentity, interpreters := make(map[string]bool), make(map[string]bool), make(map[string]bool)
	appearances := make(map[string]int)

	for _, ss := range p.Steps {
		name := ss.Step.Name
		appearances[name]++
		if 1 < len(ss.Procs) {
			pooled[name] = true
		}
		if ss.Step.Sharing == core.ByIdentity {
			byIdentity[name] = true
		}
		if i := strings.Index(ss.Step.FuncID, ":"); 0 < i {
			interpreters[ss.Step.FuncID[:i]] = true
		}
	}

	split := make(map[string]bool)
	for name, n := range appearances {
		if n <= 1 {
			continue
		}
		// A Step repeated within one Procedure also appears more
		// than once.
		if n > maxOccurrences(p.Procedures, name) {
			split[name] = true
		}
	}

	a.Pooled = keysToStringSlice(pooled)
	a.Split = keysToStringSlice(split)
	a.ByIdentity = keysToStringSlice(byIdentity)
	a.Interpreters = keysToStringSlice(interpreters, "native")

	return &a, nil
}

// AnalyzeProcedures pools the given Procedures and analyzes the
// result.
func AnalyzeProcedures(procs ...*core.Procedure) (*PoolAnalysis, error) {
	p, err := core.Pool(procs...)
	if err != nil {
		return nil, err
	}
	return Analyze(p)
}

// PooledProcedure returns the PooledProcedure that was analyzed.
func (a *PoolAnalysis) PooledProcedure() *core.PooledProcedure {
	return a.pooled
}

// maxOccurrences gives the largest number of Steps with the given
// name in any one Procedure.
func maxOccurrences(procs []*core.Procedure, name string) int {
	max := 0
	for _, p := range procs {
		n := 0
		p.Each(func(_ int, s *core.Step) bool {
			if s.Name == name {
				n++
			}
			return true
		})
		if max < n {
			max = n
		}
	}
	return max
}

// keysToStringSlice returns the sorted keys of the map or the given
// default if there are none.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}
