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
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	. "github.com/diffindiffs/didbase/util/testutil"
)

// steps makes a Procedure from a string like "ABA".
func steps(name, names string) *Procedure {
	calls := NewCounter()
	acc := make([]*Step, len(names))
	for i, r := range names {
		acc[i] = constStep(string(r), ByValue, calls, i)
	}
	return NewProcedure(name, acc...)
}

// render renders a PooledProcedure like "A0,1 B0".
func render(p *PooledProcedure) string {
	acc := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids := make([]string, len(s.Procs))
		for j, id := range s.Procs {
			ids[j] = strconv.Itoa(id)
		}
		acc[i] = s.Step.Name + strings.Join(ids, ",")
	}
	return strings.Join(acc, " ")
}

func TestPool(t *testing.T) {
	tests := []struct {
		name  string
		procs []string
		want  string
	}{
		{
			name:  "single",
			procs: []string{"ABC"},
			want:  "A0 B0 C0",
		},
		{
			name:  "repeated",
			procs: []string{"ABC", "ABC", "ABC"},
			want:  "A0,1,2 B0,1,2 C0,1,2",
		},
		{
			name:  "nothing shared",
			procs: []string{"AB", "CD"},
			want:  "A0 B0 C1 D1",
		},
		{
			name:  "common prefix",
			procs: []string{"ABC", "ABD"},
			want:  "A0,1 B0,1 C0 D1",
		},
		{
			name:  "interleaved",
			procs: []string{"ABC", "AC"},
			want:  "A0,1 B0 C0,1",
		},
		{
			name:  "unshared step first",
			procs: []string{"AB", "CA"},
			want:  "C1 A0,1 B0",
		},
		{
			name:  "swapped",
			procs: []string{"AB", "BA"},
			want:  "A0 B0 B1 A1",
		},
		{
			name:  "repeated step",
			procs: []string{"ABA", "ABA"},
			want:  "A0,1 B0,1 A0,1",
		},
		{
			name:  "cycle",
			procs: []string{"AB", "BC", "CA"},
			want:  "A0 B0,1 C1,2 A2",
		},
		{
			name:  "partial agreement",
			procs: []string{"AB", "AB", "BA"},
			want:  "A0,1 B0,1 B2 A2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procs := make([]*Procedure, len(tt.procs))
			for i, s := range tt.procs {
				procs[i] = steps("p"+strconv.Itoa(i), s)
			}
			pooled, err := Pool(procs...)
			if err != nil {
				t.Fatal(err)
			}
			if got := render(pooled); got != tt.want {
				t.Fatalf("got %q, wanted %q", got, tt.want)
			}
		})
	}
}

func TestPoolRankConflict(t *testing.T) {
	p1 := steps("p1", "AB")
	p2 := steps("p2", "BA")

	pooled, err := Pool(p1, p2)
	if err != nil {
		t.Fatal(err)
	}

	as := 0
	for _, s := range pooled.Steps {
		if s.Step.Name != "A" {
			continue
		}
		as++
		if len(s.Procs) != 1 {
			t.Fatalf("A shared by %v", s.Procs)
		}
	}
	if as != 2 {
		t.Fatalf("%d SharedSteps for A", as)
	}
}

func TestPoolErrors(t *testing.T) {
	if _, err := Pool(); err != ErrNoProcedures {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := Pool(steps("p", "A"), nil); err != ErrNilProcedure {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPoolInvariantError(t *testing.T) {
	p := steps("p", "AB")
	pooled := &PooledProcedure{
		Procedures: []*Procedure{p},
		Steps: []*SharedStep{
			NewSharedStep(p.At(1), 0),
			NewSharedStep(p.At(0), 0),
		},
	}
	err := pooled.verify()
	if !errors.Is(err, ErrNoTotalOrder) {
		t.Fatalf("unexpected error %v", err)
	}
	var pi *PoolInvariant
	if !errors.As(err, &pi) || JS(pi.Got) != `["B","A"]` {
		t.Fatal(err)
	}
}

// TestPoolOrderFidelity checks that each Procedure sees its own Steps
// in its own order for random batches.
func TestPoolOrderFidelity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	alphabet := "ABCDEF"

	for trial := 0; trial < 500; trial++ {
		n := 1 + r.Intn(5)
		procs := make([]*Procedure, n)
		for i := range procs {
			var b strings.Builder
			for j, m := 0, 1+r.Intn(6); j < m; j++ {
				b.WriteByte(alphabet[r.Intn(len(alphabet))])
			}
			procs[i] = steps("p"+strconv.Itoa(i), b.String())
		}

		pooled, err := Pool(procs...)
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range procs {
			got := pooled.StepsFor(i)
			if len(got) != p.Len() {
				t.Fatalf("trial %d procedure %d: %s", trial, i, render(pooled))
			}
			for j, s := range got {
				if !s.Equal(p.At(j)) {
					t.Fatalf("trial %d procedure %d: %s", trial, i, render(pooled))
				}
			}
		}
	}
}

func TestSharedStep(t *testing.T) {
	calls := NewCounter()
	a := constStep("A", ByValue, calls, 1)
	s := NewSharedStep(a, 3, 1, 3, 0)
	if JS(s.Procs) != "[0,1,3]" {
		t.Fatal(JS(s.Procs))
	}
	if !s.Has(1) || s.Has(2) {
		t.Fatal("Has")
	}
	if !s.Equal(NewSharedStep(a, 0, 1, 3)) {
		t.Fatal("Equal")
	}
	if s.Equal(NewSharedStep(a, 0, 1)) {
		t.Fatal("not Equal")
	}
	if s.String() != "A (SharedStep for procedures 0,1,3)" {
		t.Fatal(s.String())
	}
}
