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
	"testing"

	"github.com/google/go-cmp/cmp"
)

type point struct {
	X, Y float64
}

func TestIdentityKey(t *testing.T) {
	xs := []float64{1, 2}
	ys := []float64{1, 2}
	m := map[string]int{}
	p := &point{1, 2}

	if IdentityKey(xs) != IdentityKey(xs) {
		t.Fatal("same slice")
	}
	if IdentityKey(xs) == IdentityKey(ys) {
		t.Fatal("equal but different slices")
	}
	if IdentityKey(xs) == IdentityKey(xs[:1]) {
		t.Fatal("different lengths")
	}
	if IdentityKey(m) != IdentityKey(m) || IdentityKey(p) == IdentityKey(&point{1, 2}) {
		t.Fatal("references")
	}
	if IdentityKey(3) != IdentityKey(3) || IdentityKey(3) == IdentityKey(int64(3)) {
		t.Fatal("scalars")
	}
	if IdentityKey(point{1, 2}) != IdentityKey(point{1, 2}) {
		t.Fatal("struct values")
	}
	if IdentityKey("a") == IdentityKey("b") || IdentityKey(nil) != "nil" {
		t.Fatal("strings")
	}
}

func TestRefCounts(t *testing.T) {
	rc := make(refCounts)
	xs := []float64{1}
	rc.add(xs, 1)
	rc.add(xs, 1)
	rc.add(3.0, 1)
	if n := rc.count(xs); n != 2 {
		t.Fatalf("count == %d", n)
	}
	if n := rc.count(3.0); n != 0 {
		t.Fatalf("count == %d", n)
	}
	rc.add(xs, -2)
	if len(rc) != 0 {
		t.Fatal(rc)
	}
}

func TestGrouper(t *testing.T) {
	shared := &point{1, 2}

	t.Run("identity", func(t *testing.T) {
		g := newGrouper(ByIdentity)
		g.add(0, []interface{}{shared, 1})
		g.add(1, []interface{}{&point{1, 2}, 1})
		g.add(2, []interface{}{shared, 1})
		g.add(3, []interface{}{shared, 2})
		if len(g.groups) != 3 {
			t.Fatalf("%d groups", len(g.groups))
		}
		if diff := cmp.Diff([]int{0, 2}, g.groups[0].members); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("value", func(t *testing.T) {
		g := newGrouper(ByValue)
		g.add(0, []interface{}{shared, []float64{1}})
		g.add(1, []interface{}{&point{1, 2}, []float64{1}})
		g.add(2, []interface{}{&point{1, 3}, []float64{1}})
		g.add(3, []interface{}{func() {}})
		if len(g.groups) != 3 {
			t.Fatalf("%d groups", len(g.groups))
		}
		if diff := cmp.Diff([]int{0, 1}, g.groups[0].members); diff != "" {
			t.Fatal(diff)
		}
	})
}

type counter struct {
	n int
}

func (c *counter) DeepCopy() interface{} {
	return &counter{n: c.n + 100}
}

func TestDeepCopy(t *testing.T) {
	xs := []float64{1, 2}
	x, err := DeepCopy(xs)
	if err != nil {
		t.Fatal(err)
	}
	x.([]float64)[0] = 10
	if xs[0] != 1 {
		t.Fatal(xs)
	}

	m := map[string][]int{"a": {1}}
	y, err := DeepCopy(m)
	if err != nil {
		t.Fatal(err)
	}
	y.(map[string][]int)["a"][0] = 2
	if m["a"][0] != 1 {
		t.Fatal(m)
	}

	p := &point{1, 2}
	z, err := DeepCopy(p)
	if err != nil {
		t.Fatal(err)
	}
	if z.(*point) == p || *z.(*point) != *p {
		t.Fatal(z)
	}

	c, err := DeepCopy(&counter{n: 1})
	if err != nil {
		t.Fatal(err)
	}
	if c.(*counter).n != 101 {
		t.Fatal("Copier not used")
	}

	if n, err := DeepCopy(nil); n != nil || err != nil {
		t.Fatal(n, err)
	}
}
