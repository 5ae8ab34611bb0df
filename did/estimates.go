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
	"fmt"
	"sort"
	"strings"
)

// ATT is the average treatment effect on the treated for one cohort in
// one period.
type ATT struct {
	Cohort    float64 `json:"cohort"`
	Time      float64 `json:"time"`
	EventTime float64 `json:"eventTime"`
	Estimate  float64 `json:"estimate"`
	Weight    float64 `json:"weight"`
}

// EventEffect is the weighted average ATT at one event time.
type EventEffect struct {
	EventTime float64 `json:"eventTime"`
	Estimate  float64 `json:"estimate"`
	Weight    float64 `json:"weight"`
}

// Estimates is the result of RegressionFree.
type Estimates struct {
	Outcome   string `json:"outcome"`
	RefPeriod int    `json:"refperiod"`

	// N is the number of rows in the sample.
	N int `json:"n"`

	ATT []ATT `json:"att"`
}

// EventStudy averages the ATTs (by cell weight) at each event time.
func (e *Estimates) EventStudy() []EventEffect {
	byTime := make(map[float64]*EventEffect)
	for _, a := range e.ATT {
		ee, have := byTime[a.EventTime]
		if !have {
			ee = &EventEffect{EventTime: a.EventTime}
			byTime[a.EventTime] = ee
		}
		ee.Estimate += a.Weight * a.Estimate
		ee.Weight += a.Weight
	}
	acc := make([]EventEffect, 0, len(byTime))
	for _, ee := range byTime {
		if 0 < ee.Weight {
			ee.Estimate /= ee.Weight
		}
		acc = append(acc, *ee)
	}
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].EventTime < acc[j].EventTime
	})
	return acc
}

// Overall is the weighted average ATT over all treated periods
// (event time zero and later).
func (e *Estimates) Overall() (float64, bool) {
	var sum, w float64
	for _, a := range e.ATT {
		if a.EventTime < 0 {
			continue
		}
		sum += a.Weight * a.Estimate
		w += a.Weight
	}
	if w == 0 {
		return 0, false
	}
	return sum / w, true
}

func (e *Estimates) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ATT estimates for %s (n=%d, refperiod=%d)", e.Outcome, e.N, e.RefPeriod)
	for _, ee := range e.EventStudy() {
		fmt.Fprintf(&b, "\n  e=%g: %.4f", ee.EventTime, ee.Estimate)
	}
	if x, ok := e.Overall(); ok {
		fmt.Fprintf(&b, "\n  overall: %.4f", x)
	}
	return b.String()
}
