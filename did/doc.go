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

// Package did is a small difference-in-differences estimator built
// from core Steps.
//
// The Steps of RegressionFree check the data, select the estimation
// sample, make weights, compute weighted cohort-by-time cell means,
// and estimate cohort-specific average treatment effects on the
// treated relative to a reference period.  Cohort 0 is the
// never-treated group.
//
// Arguments:
//
//	data        *Table (required)
//	subset      name of a 0/1 column selecting rows (optional)
//	tname       name of the time column (required)
//	treatname   name of the column with each row's first treated period (required)
//	wname       name of a weight column (optional)
//	yname       name of the outcome column (required)
//	refperiod   event time of the reference period (default -1)
//
// Specifications that differ only in yname or refperiod share the
// data checks and cell computation.
package did
