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
	"encoding/json"
	"math"
	"sort"
)

// Cells has weighted means of outcomes for each cohort and time.
type Cells struct {
	// Cohorts are the distinct cohorts (first treated periods) in
	// the sample in ascending order.  Cohort 0 is never treated.
	Cohorts []float64

	// Times are the distinct periods in the sample in ascending
	// order.
	Times []float64

	// Outcomes are the names of the outcomes in Means.
	Outcomes []string

	// Means[y][g][t] is the weighted mean of outcome y for
	// Cohorts[g] at Times[t] (NaN for an empty cell).
	Means map[string][][]float64

	// Weights[g][t] is the total weight of a cell.
	Weights [][]float64
}

func newCells(cohorts, times []float64) *Cells {
	c := &Cells{
		Cohorts: cohorts,
		Times:   times,
		Means:   make(map[string][][]float64),
	}
	c.Weights = c.grid(0)
	return c
}

func (c *Cells) grid(x float64) [][]float64 {
	acc := make([][]float64, len(c.Cohorts))
	for g := range acc {
		acc[g] = make([]float64, len(c.Times))
		for p := range acc[g] {
			acc[g][p] = x
		}
	}
	return acc
}

func search(xs []float64, x float64) (int, bool) {
	i := sort.SearchFloat64s(xs, x)
	return i, i < len(xs) && xs[i] == x
}

func (c *Cells) cohort(g float64) (int, bool) {
	return search(c.Cohorts, g)
}

func (c *Cells) time(p float64) (int, bool) {
	return search(c.Times, p)
}

// Mean returns the mean of the outcome for the cell, which must exist
// and be nonempty.
func (c *Cells) Mean(y string, cohort, time float64) (float64, bool) {
	means, have := c.Means[y]
	if !have {
		return 0, false
	}
	g, ok := c.cohort(cohort)
	if !ok {
		return 0, false
	}
	p, ok := c.time(time)
	if !ok {
		return 0, false
	}
	m := means[g][p]
	return m, !math.IsNaN(m)
}

// Weight returns the total weight of the cell.
func (c *Cells) Weight(cohort, time float64) float64 {
	g, ok := c.cohort(cohort)
	if !ok {
		return 0
	}
	p, ok := c.time(time)
	if !ok {
		return 0
	}
	return c.Weights[g][p]
}

// MarshalJSON writes the dimensions only since means can be NaN.
func (c *Cells) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"cohorts":  c.Cohorts,
		"times":    c.Times,
		"outcomes": c.Outcomes,
	})
}
