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
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	. "github.com/diffindiffs/didbase/util/testutil"
)

func TestTraceOrder(t *testing.T) {
	tr := NewTrace(Args{"b": 1, "a": 2})
	tr.Merge(Args{"z": 3, "c": 4, "a": 5})
	tr.Set("b", 6)

	if diff := cmp.Diff([]string{"a", "b", "c", "z"}, tr.Keys()); diff != "" {
		t.Fatal(diff)
	}
	if JS(tr) != `{"a":5,"b":6,"c":4,"z":3}` {
		t.Fatal(JS(tr))
	}
	if p, v, _ := tr.Last(); p != "z" || v != 3 {
		t.Fatal(p, v)
	}

	tr.Set("result", "r")
	tr.Set("y", 7)
	if p, v, _ := tr.Canonical(); p != "result" || v != "r" {
		t.Fatal(p, v)
	}
	if diff := cmp.Diff(Args{"c": 4, "result": "r"}, tr.Select("c", "nope")); diff != "" {
		t.Fatal(diff)
	}
}

func TestTraceCopy(t *testing.T) {
	tr := NewTrace(Args{"a": 1})
	c := tr.Copy()
	c.Set("b", 2)
	if tr.Len() != 1 || c.Len() != 2 {
		t.Fatal(JS(tr), JS(c))
	}
	as := tr.Args()
	as["x"] = 1
	if _, have := tr.Get("x"); have {
		t.Fatal("Args isn't a copy")
	}
}

func TestTraceEmpty(t *testing.T) {
	tr := NewTrace(nil)
	if _, _, have := tr.Canonical(); have {
		t.Fatal("canonical of empty")
	}
	if JS(tr) != "{}" {
		t.Fatal(JS(tr))
	}
}

func TestTraceUnmarshal(t *testing.T) {
	var tr Trace
	if err := json.Unmarshal([]byte(`{"y":1,"x":{"a":true}}`), &tr); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x", "y"}, tr.Keys()); diff != "" {
		t.Fatal(diff)
	}
	if err := json.Unmarshal([]byte(`null`), &tr); err != nil {
		t.Fatal(err)
	}
	tr.Set("a", 1)
	if tr.Len() != 1 {
		t.Fatal(JS(&tr))
	}
}
