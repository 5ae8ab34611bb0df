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

package did

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/diffindiffs/didbase/core"
	. "github.com/diffindiffs/didbase/util/testutil"
)

// panelCSV makes a balanced panel of four units over four periods.
// Units 3 and 4 are first treated in period 3, and the effect on y is
// 2.  Column t2 is t with a missing value in the last row.
func panelCSV() string {
	var b strings.Builder
	b.WriteString("id,t,t2,g,y,y2,w,none,neg\n")
	for id := 1; id <= 4; id++ {
		g := 0
		if 2 < id {
			g = 3
		}
		for t := 1; t <= 4; t++ {
			effect := 0
			if g != 0 && g <= t {
				effect = 2
			}
			y := id + t + effect
			t2 := fmt.Sprint(t)
			if id == 4 && t == 4 {
				t2 = "NA"
			}
			fmt.Fprintf(&b, "%d,%d,%s,%d,%d,%d,1,0,%d\n", id, t, t2, g, y, 2*y, id-2)
		}
	}
	return b.String()
}

func panel(t *testing.T) *Table {
	tab, err := ReadCSV(strings.NewReader(panelCSV()))
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestRegressionFree(t *testing.T) {
	data := panel(t)
	specs := core.NewBatch(RegressionFree, core.Args{
		"data":      data,
		"tname":     "t",
		"treatname": "g",
	}).
		Add("y", core.Args{"yname": "y"}).
		Add("y2", core.Args{"yname": "y2"}).
		Specifications()

	ctx := context.Background()
	got, err := core.Proceed(ctx, specs, &core.Control{KeepAll: true})
	if err != nil {
		t.Fatal(err)
	}

	t1, t2 := got[0].(*core.Trace), got[1].(*core.Trace)
	c1, _ := t1.Get("cells")
	c2, _ := t2.Get("cells")
	if c1 != c2 {
		t.Fatal("cells weren't shared")
	}
	if JS(c1.(*Cells).Outcomes) != `["y","y2"]` {
		t.Fatal(JS(c1))
	}

	for i, want := range []float64{2, 4} {
		r, _ := got[i].(*core.Trace).Get(core.ResultField)
		e := r.(*Estimates)
		if e.N != 16 || e.RefPeriod != -1 {
			t.Fatal(e)
		}
		x, ok := e.Overall()
		if !ok || math.Abs(x-want) > 1e-9 {
			t.Fatalf("%s: overall %v", e.Outcome, x)
		}
		es := e.EventStudy()
		if len(es) != 3 || es[0].EventTime != -2 || math.Abs(es[0].Estimate) > 1e-9 {
			t.Fatal(JS(es))
		}
	}

	// The same results one at a time.
	for i, s := range specs {
		x, err := s.Run(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		r, _ := got[i].(*core.Trace).Get(core.ResultField)
		if JS(x) != JS(r) {
			t.Fatalf("%s != %s", JS(x), JS(r))
		}
	}
}

func TestRegressionFreeRefPeriod(t *testing.T) {
	specs := core.NewBatch(RegressionFree, core.Args{
		"data":      panel(t),
		"tname":     "t",
		"treatname": "g",
		"yname":     "y",
	}).
		Add("", nil).
		Add("", core.Args{"refperiod": -2.0}).
		Specifications()

	got, err := core.Proceed(context.Background(), specs, nil)
	if err != nil {
		t.Fatal(err)
	}
	e := got[1].(*Estimates)
	if e.RefPeriod != -2 {
		t.Fatal(e)
	}
	for _, a := range e.ATT {
		if a.Time == 1 {
			t.Fatal("reference period has an estimate")
		}
	}
	if len(got[0].(*Estimates).ATT) != 3 || len(e.ATT) != 3 {
		t.Fatal(JS(got))
	}
}

// TestCheckVarsCopies checks that a sample shared with another
// Specification isn't modified by CheckVars.
func TestCheckVarsCopies(t *testing.T) {
	specs := core.NewBatch(Preprocess, core.Args{
		"data":      panel(t),
		"treatname": "g",
	}).
		Add("", core.Args{"tname": "t"}).
		Add("", core.Args{"tname": "t2"}).
		Specifications()

	got, err := core.Proceed(context.Background(), specs, &core.Control{Keep: []string{"esample"}})
	if err != nil {
		t.Fatal(err)
	}

	count := func(x interface{}) int {
		n := 0
		for _, in := range x.(core.Args)["esample"].([]bool) {
			if in {
				n++
			}
		}
		return n
	}
	if n := count(got[0]); n != 16 {
		t.Fatalf("first sample has %d rows", n)
	}
	if n := count(got[1]); n != 15 {
		t.Fatalf("second sample has %d rows", n)
	}
}

func TestDomainErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		args core.Args
		want interface{}
	}{
		{
			name: "no rows",
			args: core.Args{"subset": "none"},
			want: ErrNoRows,
		},
		{
			name: "negative weight",
			args: core.Args{"wname": "neg"},
			want: ErrNegativeWeight,
		},
		{
			name: "missing column",
			args: core.Args{"tname": "time"},
			want: &MissingColumn{},
		},
		{
			name: "no control",
			args: core.Args{"subset": "g"},
			want: ErrNoControl,
		},
		{
			name: "non-finite outcome",
			args: core.Args{"yname": "t2"},
			want: &NonFinite{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as := core.Args{
				"data":      panel(t),
				"tname":     "t",
				"treatname": "g",
				"yname":     "y",
			}.Merge(tt.args)
			s := core.NewSpecification(tt.name, RegressionFree, as)
			_, err := core.Proceed(ctx, []*core.Specification{s}, nil)
			switch want := tt.want.(type) {
			case *MissingColumn:
				if !errors.As(err, &want) {
					t.Fatalf("unexpected error %v", err)
				}
			case *NonFinite:
				if !errors.As(err, &want) || want.Column != "t2" {
					t.Fatalf("unexpected error %v", err)
				}
			case error:
				if !errors.Is(err, want) {
					t.Fatalf("unexpected error %v", err)
				}
			}
		})
	}
}

func TestProcedures(t *testing.T) {
	ps := Procedures()
	p, err := ps.Find("RegressionFreeDID")
	if err != nil {
		t.Fatal(err)
	}
	if p != RegressionFree || p.Len() != 5 {
		t.Fatal(p)
	}
	if _, err = ps.Find("OLS"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestEstimatesString(t *testing.T) {
	e := &Estimates{
		Outcome:   "y",
		RefPeriod: -1,
		N:         4,
		ATT: []ATT{
			{Cohort: 3, Time: 3, EventTime: 0, Estimate: 1, Weight: 1},
			{Cohort: 4, Time: 4, EventTime: 0, Estimate: 3, Weight: 3},
			{Cohort: 3, Time: 1, EventTime: -2, Estimate: 0.5, Weight: 1},
		},
	}
	want := "ATT estimates for y (n=4, refperiod=-1)\n  e=-2: 0.5000\n  e=0: 2.5000\n  overall: 2.5000"
	if e.String() != want {
		t.Fatal(e.String())
	}
}
