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
	"sort"
	"strconv"
	"strings"
)

// SharedStep is a Step together with the (indexes of the) Procedures
// in a batch that will execute it.
type SharedStep struct {
	Step *Step `json:"step"`

	// Procs is sorted and has no duplicates.
	Procs []int `json:"procs"`
}

// NewSharedStep makes a SharedStep with a canonical set of indexes.
func NewSharedStep(s *Step, procs ...int) *SharedStep {
	ids := make([]int, len(procs))
	copy(ids, procs)
	sort.Ints(ids)
	acc := ids[:0]
	for i, id := range ids {
		if 0 < i && id == ids[i-1] {
			continue
		}
		acc = append(acc, id)
	}
	return &SharedStep{
		Step:  s,
		Procs: acc,
	}
}

// Has reports whether the Procedure with the given index executes
// this SharedStep.
func (s *SharedStep) Has(proc int) bool {
	i := sort.SearchInts(s.Procs, proc)
	return i < len(s.Procs) && s.Procs[i] == proc
}

// Equal reports whether both SharedSteps have equal Steps and the
// same indexes.
func (s *SharedStep) Equal(other *SharedStep) bool {
	if !s.Step.Equal(other.Step) || len(s.Procs) != len(other.Procs) {
		return false
	}
	for i, id := range s.Procs {
		if id != other.Procs[i] {
			return false
		}
	}
	return true
}

func (s *SharedStep) String() string {
	ids := make([]string, len(s.Procs))
	for i, id := range s.Procs {
		ids[i] = strconv.Itoa(id)
	}
	return s.Step.String() + " (SharedStep for procedures " + strings.Join(ids, ",") + ")"
}

// PooledProcedure is a batch of Procedures and a single order of
// SharedSteps that respects the Step order of each Procedure.
type PooledProcedure struct {
	Procedures []*Procedure   `json:"procedures"`
	Steps      []*SharedStep `json:"steps"`
}

// Len returns the number of SharedSteps.
func (p *PooledProcedure) Len() int {
	return len(p.Steps)
}

// At returns the ith SharedStep.
func (p *PooledProcedure) At(i int) *SharedStep {
	return p.Steps[i]
}

// StepsFor returns, in pooled order, the Steps executed by the
// Procedure with the given index.
func (p *PooledProcedure) StepsFor(proc int) []*Step {
	acc := make([]*Step, 0, p.Procedures[proc].Len())
	for _, s := range p.Steps {
		if s.Has(proc) {
			acc = append(acc, s.Step)
		}
	}
	return acc
}

func (p *PooledProcedure) String() string {
	var b strings.Builder
	b.WriteString("PooledProcedure with ")
	b.WriteString(strconv.Itoa(len(p.Steps)))
	b.WriteString(" steps from ")
	b.WriteString(strconv.Itoa(len(p.Procedures)))
	b.WriteString(" procedures:")
	for _, s := range p.Steps {
		b.WriteString("\n  ")
		b.WriteString(s.String())
	}
	return b.String()
}

// verify checks that each Procedure's Steps appear in the pooled
// order exactly as they appear in the Procedure.
func (p *PooledProcedure) verify() error {
	for i, proc := range p.Procedures {
		got := p.StepsFor(i)
		ok := len(got) == proc.Len()
		for j := 0; ok && j < len(got); j++ {
			ok = got[j].Equal(proc.At(j))
		}
		if !ok {
			names := make([]string, len(got))
			for j, s := range got {
				names[j] = s.Name
			}
			return &PoolInvariant{
				Procedure: proc.Name,
				Index:     i,
				Got:       names,
			}
		}
	}
	return nil
}

// occurrence identifies the nth appearance of a Step in a Procedure.
type occurrence struct {
	step stepKey
	nth  int
}

// pooler holds the working state for Pool.
type pooler struct {
	procs []*Procedure

	// occs[p][j] is the occurrence at position j in procedure p.
	occs [][]occurrence

	// ranks caches, for an ordered pair of procedures (p,q), the
	// rank of each occurrence among the occurrences p has in
	// common with q.
	ranks map[[2]int]map[occurrence]int
}

func newPooler(procs []*Procedure) *pooler {
	pl := &pooler{
		procs: procs,
		occs:  make([][]occurrence, len(procs)),
		ranks: make(map[[2]int]map[occurrence]int),
	}
	for i, p := range procs {
		seen := make(map[stepKey]int, p.Len())
		occs := make([]occurrence, p.Len())
		for j, s := range p.Steps {
			k := s.key()
			occs[j] = occurrence{
				step: k,
				nth:  seen[k],
			}
			seen[k]++
		}
		pl.occs[i] = occs
	}
	return pl
}

func (pl *pooler) rank(p, q int) map[occurrence]int {
	if r, have := pl.ranks[[2]int{p, q}]; have {
		return r
	}
	inQ := make(map[occurrence]bool, len(pl.occs[q]))
	for _, o := range pl.occs[q] {
		inQ[o] = true
	}
	r := make(map[occurrence]int, len(pl.occs[p]))
	for _, o := range pl.occs[p] {
		if inQ[o] {
			r[o] = len(r)
		}
	}
	pl.ranks[[2]int{p, q}] = r
	return r
}

// agree reports whether procedures p and q have the given occurrence
// at the same rank among the Steps they have in common.
func (pl *pooler) agree(o occurrence, p, q int) bool {
	return pl.rank(p, q)[o] == pl.rank(q, p)[o]
}

// node is a candidate SharedStep under construction.
type node struct {
	step  *Step
	procs []int
}

func (n *node) without(procs []int) {
	acc := n.procs[:0]
	for _, p := range n.procs {
		if i := sort.SearchInts(procs, p); i < len(procs) && procs[i] == p {
			continue
		}
		acc = append(acc, p)
	}
	n.procs = acc
}

// Pool merges the Step sequences of the given Procedures into one
// sequence of SharedSteps.
//
// A Step that appears in several Procedures is shared by every group
// of those Procedures that agree on the Step's rank relative to the
// other Steps they have in common.  Procedures that disagree get
// separate SharedSteps.
//
// The SharedSteps are then ordered so that each Procedure sees its
// own Steps in its own order.  When several SharedSteps could come
// next, Pool picks the first Procedure (by index) whose next Step is
// ready for every Procedure that shares it.  If no SharedStep is
// ready for all its Procedures, the next Step of the first unfinished
// Procedure is split so that the Procedures that are ready for it can
// proceed.
//
// The same Procedure can appear more than once.
func Pool(procs ...*Procedure) (*PooledProcedure, error) {
	if len(procs) == 0 {
		return nil, ErrNoProcedures
	}
	for _, p := range procs {
		if p == nil {
			return nil, ErrNilProcedure
		}
	}

	pl := newPooler(procs)

	// Which procedures have each occurrence?
	owners := make(map[occurrence][]int)
	order := make([]occurrence, 0, 16)
	for i, occs := range pl.occs {
		for _, o := range occs {
			if _, have := owners[o]; !have {
				order = append(order, o)
			}
			owners[o] = append(owners[o], i)
		}
	}

	// Split each occurrence into groups of procedures that
	// mutually agree on its rank.
	nodes := make([]*node, 0, len(order))
	at := make([][]int, len(procs)) // at[p][j] is the node index
	for i, p := range procs {
		at[i] = make([]int, p.Len())
	}
	where := func(p int, o occurrence) int {
		for j, x := range pl.occs[p] {
			if x == o {
				return j
			}
		}
		return -1
	}
	for _, o := range order {
		var groups [][]int
	PROCS:
		for _, p := range owners[o] {
			for g, members := range groups {
				ok := true
				for _, q := range members {
					if !pl.agree(o, p, q) {
						ok = false
						break
					}
				}
				if ok {
					groups[g] = append(members, p)
					continue PROCS
				}
			}
			groups = append(groups, []int{p})
		}
		for _, members := range groups {
			first := members[0]
			j := where(first, o)
			n := &node{
				step:  procs[first].At(j),
				procs: members,
			}
			nodes = append(nodes, n)
			for _, p := range members {
				at[p][where(p, o)] = len(nodes) - 1
			}
		}
	}

	// Schedule.
	next := make([]int, len(procs))
	pending := func(p int) (int, bool) {
		if next[p] < len(at[p]) {
			return at[p][next[p]], true
		}
		return -1, false
	}
	ready := func(id int) []int {
		acc := make([]int, 0, len(nodes[id].procs))
		for _, q := range nodes[id].procs {
			if n, ok := pending(q); ok && n == id {
				acc = append(acc, q)
			}
		}
		return acc
	}

	total := 0
	for _, p := range procs {
		total += p.Len()
	}

	pooled := &PooledProcedure{
		Procedures: procs,
		Steps:      make([]*SharedStep, 0, len(nodes)),
	}

	for done := 0; done < total; {
		chosen := -1
		var members []int
		for p := range procs {
			id, ok := pending(p)
			if !ok {
				continue
			}
			if rs := ready(id); len(rs) == len(nodes[id].procs) {
				chosen, members = id, rs
				break
			}
		}

		if chosen < 0 {
			// A cycle.  Split the first pending step.
			for p := range procs {
				if id, ok := pending(p); ok {
					chosen, members = id, ready(id)
					break
				}
			}
			if chosen < 0 {
				return nil, ErrNoTotalOrder
			}
			nodes[chosen].without(members)
		}

		pooled.Steps = append(pooled.Steps, NewSharedStep(nodes[chosen].step, members...))
		for _, q := range members {
			next[q]++
			done++
		}
	}

	if err := pooled.verify(); err != nil {
		return nil, err
	}

	return pooled, nil
}
