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
)

// Table is a set of named float64 columns of equal length.
//
// A Table is shared by reference among Specifications and must not be
// modified once it's given to a Specification.
type Table struct {
	names []string
	cols  map[string][]float64
	rows  int
}

// NewTable makes an empty Table.
func NewTable() *Table {
	return &Table{
		cols: make(map[string][]float64),
	}
}

// AddColumn adds (or replaces) a column.  The first column sets the
// number of rows.
func (t *Table) AddColumn(name string, xs []float64) error {
	if len(t.names) == 0 {
		t.rows = len(xs)
	} else if len(xs) != t.rows {
		return &DimensionMismatch{
			Column:   name,
			Expected: t.rows,
			Got:      len(xs),
		}
	}
	if _, have := t.cols[name]; !have {
		t.names = append(t.names, name)
	}
	t.cols[name] = xs
	return nil
}

// Column returns the named column.
func (t *Table) Column(name string) ([]float64, error) {
	xs, have := t.cols[name]
	if !have {
		return nil, &MissingColumn{
			Name: name,
		}
	}
	return xs, nil
}

// Names returns the column names in the order they were added.
func (t *Table) Names() []string {
	acc := make([]string, len(t.names))
	copy(acc, t.names)
	return acc
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	return t.rows
}

// Copy makes a shallow copy.  Columns are shared.
func (t *Table) Copy() *Table {
	acc := &Table{
		names: t.Names(),
		cols:  make(map[string][]float64, len(t.cols)),
		rows:  t.rows,
	}
	for name, xs := range t.cols {
		acc.cols[name] = xs
	}
	return acc
}

// DeepCopy copies the columns too.
func (t *Table) DeepCopy() interface{} {
	acc := t.Copy()
	for name, xs := range acc.cols {
		ys := make([]float64, len(xs))
		copy(ys, xs)
		acc.cols[name] = ys
	}
	return acc
}

// MarshalJSON writes a summary rather than the data.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"columns": t.names,
		"rows":    t.rows,
	})
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
