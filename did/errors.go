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
	"errors"
	"strconv"
)

var (
	// ErrNoRows occurs when no row survives selection.
	ErrNoRows = errors.New("no rows remain after filtering")

	// ErrNegativeWeight occurs when a weight in the sample is
	// negative.
	ErrNegativeWeight = errors.New("negative weight")

	// ErrNoControl occurs when the sample has no never-treated
	// cohort.
	ErrNoControl = errors.New("no never-treated cohort")

	// ErrNotNumber occurs when a data cell isn't a number.
	ErrNotNumber = errors.New("not a number")
)

// DimensionMismatch occurs when a column's length differs from the
// table's.
type DimensionMismatch struct {
	Column   string
	Expected int
	Got      int
}

func (e *DimensionMismatch) Error() string {
	return `column "` + e.Column + `" has ` + strconv.Itoa(e.Got) +
		` rows but expected ` + strconv.Itoa(e.Expected)
}

// NonFinite occurs when a column has a NaN or infinite value in the
// sample.
type NonFinite struct {
	Column string
	Row    int
}

func (e *NonFinite) Error() string {
	return `column "` + e.Column + `" has a non-finite value at row ` + strconv.Itoa(e.Row)
}

// MissingColumn occurs when a named column isn't in the Table.
type MissingColumn struct {
	Name string
}

func (e *MissingColumn) Error() string {
	return `no column "` + e.Name + `"`
}

// BadArg occurs when an argument has the wrong type.
type BadArg struct {
	Arg   string
	Value interface{}
	Want  string
}

func (e *BadArg) Error() string {
	return `argument "` + e.Arg + `" should be ` + e.Want
}
