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
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// IdentityKey returns a string that's the same for two values if and
// only if they are the same object.
//
// Pointers, maps, channels, and functions are identified by type and
// address.  Slices are identified by type, address, and length.
// Other values are identified by type and value, recursively through
// arrays, structs, and interfaces.
func IdentityKey(x interface{}) string {
	var b strings.Builder
	writeIdentity(&b, reflect.ValueOf(x))
	return b.String()
}

func writeIdentity(b *strings.Builder, v reflect.Value) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}
	t := v.Type()
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		fmt.Fprintf(b, "%s@%x", t, v.Pointer())
	case reflect.Slice:
		fmt.Fprintf(b, "%s@%x/%d", t, v.Pointer(), v.Len())
	case reflect.Interface:
		writeIdentity(b, v.Elem())
	case reflect.Array:
		fmt.Fprintf(b, "%s[", t)
		for i := 0; i < v.Len(); i++ {
			if 0 < i {
				b.WriteByte(',')
			}
			writeIdentity(b, v.Index(i))
		}
		b.WriteByte(']')
	case reflect.Struct:
		fmt.Fprintf(b, "%s{", t)
		for i := 0; i < v.NumField(); i++ {
			if 0 < i {
				b.WriteByte(',')
			}
			writeIdentity(b, v.Field(i))
		}
		b.WriteByte('}')
	case reflect.String:
		fmt.Fprintf(b, "%s:%q", t, v.String())
	default:
		// Unexported fields can't be Interface()d, so go
		// through the kind-specific accessors.
		switch v.Kind() {
		case reflect.Bool:
			fmt.Fprintf(b, "%s:%t", t, v.Bool())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fmt.Fprintf(b, "%s:%d", t, v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			fmt.Fprintf(b, "%s:%d", t, v.Uint())
		case reflect.Float32, reflect.Float64:
			fmt.Fprintf(b, "%s:%v", t, v.Float())
		case reflect.Complex64, reflect.Complex128:
			fmt.Fprintf(b, "%s:%v", t, v.Complex())
		default:
			fmt.Fprintf(b, "%s:?", t)
		}
	}
}

func identityKeys(args []interface{}) string {
	var b strings.Builder
	for i, x := range args {
		if 0 < i {
			b.WriteByte(0)
		}
		writeIdentity(&b, reflect.ValueOf(x))
	}
	return b.String()
}

// isRef reports whether the value can be mutated in place by
// somebody else who has it.
func isRef(x interface{}) bool {
	if x == nil {
		return false
	}
	switch reflect.ValueOf(x).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

// refKey identifies the storage behind a mutable value.  All slices
// over one backing array end at the same address, so they share a
// key even when their starts and lengths differ.
func refKey(x interface{}) string {
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Slice && 0 < v.Cap() {
		end := v.Pointer() + uintptr(v.Cap())*v.Type().Elem().Size()
		return fmt.Sprintf("slice@%x", end)
	}
	return IdentityKey(x)
}

// refCounts counts, by storage, the references to mutable values held
// by all the traces in a batch.
type refCounts map[string]int

func (rc refCounts) add(x interface{}, n int) {
	if !isRef(x) {
		return
	}
	k := refKey(x)
	if m := rc[k] + n; 0 < m {
		rc[k] = m
	} else {
		delete(rc, k)
	}
}

func (rc refCounts) count(x interface{}) int {
	if !isRef(x) {
		return 0
	}
	return rc[refKey(x)]
}

// group is a set of specifications (by index) that can share one
// execution of a Step.
type group struct {
	args    []interface{}
	members []int
}

// grouper buckets argument lists either by identity or by value.
type grouper struct {
	sharing  Sharing
	groups   []*group
	byID     map[string]*group
	byHash   map[uint64][]*group
	hashOpts *hashstructure.HashOptions
}

func newGrouper(sharing Sharing) *grouper {
	g := &grouper{
		sharing: sharing,
		groups:  make([]*group, 0, 8),
	}
	switch sharing {
	case ByIdentity:
		g.byID = make(map[string]*group, 8)
	default:
		g.byHash = make(map[uint64][]*group, 8)
		g.hashOpts = &hashstructure.HashOptions{}
	}
	return g
}

// valueHash is a hash that's equal for DeepEqual arguments.
//
// Arguments that can't be hashed (functions, for example) all get
// hash zero and are then told apart by reflect.DeepEqual.
func (g *grouper) valueHash(args []interface{}) (h uint64) {
	defer func() {
		if r := recover(); r != nil {
			h = 0
		}
	}()
	h, err := hashstructure.Hash(args, hashstructure.FormatV2, g.hashOpts)
	if err != nil {
		return 0
	}
	return h
}

// add puts the specification with the given index in the group for
// its arguments.
func (g *grouper) add(i int, args []interface{}) {
	if g.sharing == ByIdentity {
		k := identityKeys(args)
		if gr, have := g.byID[k]; have {
			gr.members = append(gr.members, i)
			return
		}
		gr := &group{
			args:    args,
			members: []int{i},
		}
		g.byID[k] = gr
		g.groups = append(g.groups, gr)
		return
	}

	h := g.valueHash(args)
	for _, gr := range g.byHash[h] {
		if reflect.DeepEqual(gr.args, args) {
			gr.members = append(gr.members, i)
			return
		}
	}
	gr := &group{
		args:    args,
		members: []int{i},
	}
	g.byHash[h] = append(g.byHash[h], gr)
	g.groups = append(g.groups, gr)
}
