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
	"bytes"
	"encoding/json"
	"sort"
)

// ResultField is the name of the field that holds the canonical
// result of a Specification.
var ResultField = "result"

// Trace is the running field mapping accumulated for one
// Specification as Steps execute.
//
// A Trace remembers the order in which fields were first inserted.
// The initial Args are inserted in sorted key order, and the new keys
// returned by each Step are appended in sorted key order.
type Trace struct {
	keys []string
	as   Args
}

// NewTrace makes a Trace with a shallow copy of the given Args.
func NewTrace(as Args) *Trace {
	t := &Trace{
		keys: make([]string, 0, len(as)+8),
		as:   make(Args, len(as)+8),
	}
	t.Merge(as)
	return t
}

// Get returns the value (if any) of the given field.
func (t *Trace) Get(p string) (interface{}, bool) {
	v, have := t.as[p]
	return v, have
}

// Len returns the number of fields.
func (t *Trace) Len() int {
	return len(t.keys)
}

// Set sets the given field.  A new field becomes the last field.
func (t *Trace) Set(p string, v interface{}) {
	if _, have := t.as[p]; !have {
		t.keys = append(t.keys, p)
	}
	t.as[p] = v
}

// Merge overlays the given Args.  Values from as take precedence, and
// new keys are appended in sorted order.
func (t *Trace) Merge(as Args) {
	for _, p := range as.Keys() {
		t.Set(p, as[p])
	}
}

// Keys returns the field names in insertion order.
func (t *Trace) Keys() []string {
	acc := make([]string, len(t.keys))
	copy(acc, t.keys)
	return acc
}

// Args returns a shallow copy of the fields.
func (t *Trace) Args() Args {
	return t.as.Copy()
}

// Last returns the most recently inserted field (if any).
func (t *Trace) Last() (string, interface{}, bool) {
	if len(t.keys) == 0 {
		return "", nil, false
	}
	p := t.keys[len(t.keys)-1]
	return p, t.as[p], true
}

// Canonical returns the canonical result field: the field named by
// ResultField if present, else the last inserted field.
func (t *Trace) Canonical() (string, interface{}, bool) {
	if v, have := t.as[ResultField]; have {
		return ResultField, v, true
	}
	return t.Last()
}

// Select returns the named fields (that exist) plus the canonical
// result field.
func (t *Trace) Select(keeps ...string) Args {
	acc := make(Args, len(keeps)+1)
	for _, p := range keeps {
		if v, have := t.as[p]; have {
			acc[p] = v
		}
	}
	if p, v, have := t.Canonical(); have {
		acc[p] = v
	}
	return acc
}

// Copy makes a shallow copy of the Trace.
func (t *Trace) Copy() *Trace {
	acc := &Trace{
		keys: t.Keys(),
		as:   t.as.Copy(),
	}
	return acc
}

// MarshalJSON writes the fields as a JSON object in insertion order.
func (t *Trace) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range t.keys {
		if 0 < i {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(t.as[p])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object.  Since Go's decoder doesn't
// report key order, keys are inserted in sorted order.
func (t *Trace) UnmarshalJSON(bs []byte) error {
	var as Args
	if err := json.Unmarshal(bs, &as); err != nil {
		return err
	}
	if as == nil {
		as = NewArgs()
	}
	keys := as.Keys()
	sort.Strings(keys)
	t.keys = keys
	t.as = as
	return nil
}
