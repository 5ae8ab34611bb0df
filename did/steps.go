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
	"math"
	"sort"

	"github.com/diffindiffs/didbase/core"
)

var (
	// CheckData selects the rows in the optional subset.
	CheckData = &core.Step{
		Name:     "CheckData",
		Doc:      "Selects the estimation sample: every row, or the rows where the `subset` column is nonzero.",
		F:        checkData,
		Sharing:  core.ByIdentity,
		Required: []string{"data"},
		Defaults: []core.Param{{Name: "subset"}},
	}

	// CheckVars drops rows with a non-finite time or cohort from
	// the sample.  The sample is modified in place.
	CheckVars = &core.Step{
		Name:     "CheckVars",
		Doc:      "Drops rows with a missing time (`tname`) or cohort (`treatname`) from the sample.",
		F:        checkVars,
		Sharing:  core.ByIdentity,
		Required: []string{"data", "esample", "tname", "treatname"},
		CopyArgs: []int{1},
	}

	// MakeWeights makes a weight for each row.
	MakeWeights = &core.Step{
		Name:     "MakeWeights",
		Doc:      "Makes row weights from the optional `wname` column.  Rows outside the sample get weight zero.",
		F:        makeWeights,
		Sharing:  core.ByIdentity,
		Required: []string{"data", "esample"},
		Defaults: []core.Param{{Name: "wname"}},
	}

	// MakeCells computes weighted cohort-by-time means of every
	// outcome requested by the Specifications that share the
	// execution.
	MakeCells = &core.Step{
		Name:     "MakeCells",
		Doc:      "Computes weighted cohort-by-time cell means for all the outcomes (`yname`) in the group at once.",
		F:        makeCells,
		Sharing:  core.ByIdentity,
		Required: []string{"data", "esample", "tname", "treatname", "weights"},
		Combine:  combineOutcomes,
	}

	// EstimateATT estimates the average treatment effect on the
	// treated for each treated cohort and period.
	EstimateATT = &core.Step{
		Name:     "EstimateATT",
		Doc:      "Estimates ATT(g,t) against the never-treated cohort relative to event time `refperiod`.",
		F:        estimateATT,
		Sharing:  core.ByValue,
		Required: []string{"cells", "yname"},
		Defaults: []core.Param{{Name: "refperiod", Value: -1}},
	}
)

func asTable(x interface{}) (*Table, error) {
	t, is := x.(*Table)
	if !is || t == nil {
		return nil, &BadArg{
			Arg:   "data",
			Value: x,
			Want:  "a *Table",
		}
	}
	return t, nil
}

func asString(arg string, x interface{}) (string, error) {
	s, is := x.(string)
	if !is || s == "" {
		return "", &BadArg{
			Arg:   arg,
			Value: x,
			Want:  "a column name",
		}
	}
	return s, nil
}

// asOptionalString allows nil.
func asOptionalString(arg string, x interface{}) (string, bool, error) {
	if x == nil {
		return "", false, nil
	}
	s, err := asString(arg, x)
	return s, err == nil, err
}

func asInt(arg string, x interface{}) (int, error) {
	switch vv := x.(type) {
	case int:
		return vv, nil
	case int64:
		return int(vv), nil
	case float64:
		if vv == math.Trunc(vv) {
			return int(vv), nil
		}
	}
	return 0, &BadArg{
		Arg:   arg,
		Value: x,
		Want:  "an integer",
	}
}

func asSample(x interface{}) ([]bool, error) {
	es, is := x.([]bool)
	if !is {
		return nil, &BadArg{
			Arg:   "esample",
			Value: x,
			Want:  "a []bool",
		}
	}
	return es, nil
}

func checkData(ctx context.Context, args []interface{}) (core.Args, error) {
	t, err := asTable(args[0])
	if err != nil {
		return nil, err
	}

	var subset []float64
	name, have, err := asOptionalString("subset", args[1])
	if err != nil {
		return nil, err
	}
	if have {
		if subset, err = t.Column(name); err != nil {
			return nil, err
		}
	}

	es := make([]bool, t.Rows())
	n := 0
	for i := range es {
		es[i] = subset == nil || (finite(subset[i]) && subset[i] != 0)
		if es[i] {
			n++
		}
	}
	if n == 0 {
		return nil, ErrNoRows
	}

	return core.Args{"esample": es}, nil
}

func checkVars(ctx context.Context, args []interface{}) (core.Args, error) {
	t, err := asTable(args[0])
	if err != nil {
		return nil, err
	}
	es, err := asSample(args[1])
	if err != nil {
		return nil, err
	}
	if len(es) != t.Rows() {
		return nil, &DimensionMismatch{
			Column:   "esample",
			Expected: t.Rows(),
			Got:      len(es),
		}
	}

	cols := make([][]float64, 2)
	for j, arg := range []string{"tname", "treatname"} {
		name, err := asString(arg, args[2+j])
		if err != nil {
			return nil, err
		}
		if cols[j], err = t.Column(name); err != nil {
			return nil, err
		}
	}

	n := 0
	for i := range es {
		if es[i] && !(finite(cols[0][i]) && finite(cols[1][i])) {
			es[i] = false
		}
		if es[i] {
			n++
		}
	}
	if n == 0 {
		return nil, ErrNoRows
	}

	return core.Args{"esample": es}, nil
}

func makeWeights(ctx context.Context, args []interface{}) (core.Args, error) {
	t, err := asTable(args[0])
	if err != nil {
		return nil, err
	}
	es, err := asSample(args[1])
	if err != nil {
		return nil, err
	}

	var ws []float64
	name, have, err := asOptionalString("wname", args[2])
	if err != nil {
		return nil, err
	}
	if have {
		if ws, err = t.Column(name); err != nil {
			return nil, err
		}
	}

	acc := make([]float64, len(es))
	for i, in := range es {
		switch {
		case !in:
		case ws == nil:
			acc[i] = 1
		case !finite(ws[i]):
			return nil, &NonFinite{
				Column: name,
				Row:    i,
			}
		case ws[i] < 0:
			return nil, ErrNegativeWeight
		default:
			acc[i] = ws[i]
		}
	}

	return core.Args{"weights": acc}, nil
}

// combineOutcomes gathers the distinct outcome names of the
// Specifications in a group.
func combineOutcomes(ass []core.Args) ([]interface{}, error) {
	seen := make(map[string]bool, len(ass))
	acc := make([]string, 0, len(ass))
	for _, as := range ass {
		x, have := as["yname"]
		if !have {
			return nil, &core.MissingArg{
				Step: "MakeCells",
				Arg:  "yname",
			}
		}
		y, err := asString("yname", x)
		if err != nil {
			return nil, err
		}
		if !seen[y] {
			seen[y] = true
			acc = append(acc, y)
		}
	}
	sort.Strings(acc)
	return []interface{}{acc}, nil
}

func distinct(xs []float64, es []bool) []float64 {
	seen := make(map[float64]bool)
	acc := make([]float64, 0, 16)
	for i, x := range xs {
		if es[i] && !seen[x] {
			seen[x] = true
			acc = append(acc, x)
		}
	}
	sort.Float64s(acc)
	return acc
}

func makeCells(ctx context.Context, args []interface{}) (core.Args, error) {
	t, err := asTable(args[0])
	if err != nil {
		return nil, err
	}
	es, err := asSample(args[1])
	if err != nil {
		return nil, err
	}
	var cols [2][]float64
	for j, arg := range []string{"tname", "treatname"} {
		name, err := asString(arg, args[2+j])
		if err != nil {
			return nil, err
		}
		if cols[j], err = t.Column(name); err != nil {
			return nil, err
		}
	}
	times, cohorts := cols[0], cols[1]
	ws, is := args[4].([]float64)
	if !is || len(ws) != len(es) {
		return nil, &BadArg{
			Arg:   "weights",
			Value: args[4],
			Want:  "a []float64 with a weight for each row",
		}
	}
	ys, _ := args[5].([]string)

	c := newCells(distinct(cohorts, es), distinct(times, es))

	for i, in := range es {
		if !in || ws[i] == 0 {
			continue
		}
		g, _ := c.cohort(cohorts[i])
		p, _ := c.time(times[i])
		c.Weights[g][p] += ws[i]
	}

	for _, y := range ys {
		ycol, err := t.Column(y)
		if err != nil {
			return nil, err
		}
		sums := c.grid(0)
		for i, in := range es {
			if !in || ws[i] == 0 {
				continue
			}
			if !finite(ycol[i]) {
				return nil, &NonFinite{
					Column: y,
					Row:    i,
				}
			}
			g, _ := c.cohort(cohorts[i])
			p, _ := c.time(times[i])
			sums[g][p] += ws[i] * ycol[i]
		}
		for g := range sums {
			for p := range sums[g] {
				if w := c.Weights[g][p]; 0 < w {
					sums[g][p] /= w
				} else {
					sums[g][p] = math.NaN()
				}
			}
		}
		c.Outcomes = append(c.Outcomes, y)
		c.Means[y] = sums
	}

	return core.Args{"cells": c}, nil
}

func estimateATT(ctx context.Context, args []interface{}) (core.Args, error) {
	c, is := args[0].(*Cells)
	if !is || c == nil {
		return nil, &BadArg{
			Arg:   "cells",
			Value: args[0],
			Want:  "*Cells",
		}
	}
	y, err := asString("yname", args[1])
	if err != nil {
		return nil, err
	}
	ref, err := asInt("refperiod", args[2])
	if err != nil {
		return nil, err
	}
	if _, have := c.cohort(0); !have {
		return nil, ErrNoControl
	}
	if _, have := c.Means[y]; !have {
		return nil, &MissingColumn{
			Name: y,
		}
	}

	acc := make([]ATT, 0, len(c.Cohorts)*len(c.Times))
	for _, g := range c.Cohorts {
		if g == 0 {
			continue
		}
		base := g + float64(ref)
		for _, p := range c.Times {
			if p == base {
				continue
			}
			ygp, ok1 := c.Mean(y, g, p)
			ygb, ok2 := c.Mean(y, g, base)
			y0p, ok3 := c.Mean(y, 0, p)
			y0b, ok4 := c.Mean(y, 0, base)
			if !(ok1 && ok2 && ok3 && ok4) {
				continue
			}
			acc = append(acc, ATT{
				Cohort:    g,
				Time:      p,
				EventTime: p - g,
				Estimate:  (ygp - ygb) - (y0p - y0b),
				Weight:    c.Weight(g, p),
			})
		}
	}

	return core.Args{"att": acc}, nil
}
