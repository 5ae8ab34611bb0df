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
	"github.com/diffindiffs/didbase/core"
)

// RegressionFree estimates ATTs from cell means without a regression.
//
// Its result is a *Estimates.
var RegressionFree = &core.Procedure{
	Name: "RegressionFreeDID",
	Doc: "Estimates cohort-specific ATTs from weighted cohort-by-time means, " +
		"comparing each treated cohort with the never-treated cohort.",
	Steps:  []*core.Step{CheckData, CheckVars, MakeWeights, MakeCells, EstimateATT},
	Result: estimates,
}

// Preprocess is the sample and weight preparation of RegressionFree.
var Preprocess = core.NewProcedure("Preprocess", CheckData, CheckVars, MakeWeights)

func estimates(as core.Args) (core.Args, error) {
	y, err := asString("yname", as["yname"])
	if err != nil {
		return nil, err
	}
	ref := -1
	if x, have := as["refperiod"]; have {
		if ref, err = asInt("refperiod", x); err != nil {
			return nil, err
		}
	}
	es, err := asSample(as["esample"])
	if err != nil {
		return nil, err
	}
	n := 0
	for _, in := range es {
		if in {
			n++
		}
	}
	att, _ := as["att"].([]ATT)

	return core.Args{
		core.ResultField: &Estimates{
			Outcome:   y,
			RefPeriod: ref,
			N:         n,
			ATT:       att,
		},
	}, nil
}

// Procedures returns the Procedures in this package by name.
func Procedures() core.ProcedureMap {
	return core.NewProcedureMap().Add(RegressionFree, Preprocess)
}
