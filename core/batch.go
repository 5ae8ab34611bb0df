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
	"context"
)

// Batch builds Specifications from per-Specification overrides of
// shared default Args.
type Batch struct {
	// Procedure is used by Add.
	Procedure *Procedure

	// Defaults are the Args that every Specification starts
	// with.
	Defaults Args

	specs []*Specification
}

// NewBatch makes a Batch.  The defaults are copied.
func NewBatch(p *Procedure, defaults Args) *Batch {
	if defaults == nil {
		defaults = NewArgs()
	}
	return &Batch{
		Procedure: p,
		Defaults:  defaults.Copy(),
	}
}

// Add appends a Specification for the Batch's Procedure with the
// defaults overlaid by the given Args.
func (b *Batch) Add(name string, overrides Args) *Batch {
	return b.AddFor(name, b.Procedure, overrides)
}

// AddFor is Add with a specific Procedure.
func (b *Batch) AddFor(name string, p *Procedure, overrides Args) *Batch {
	b.specs = append(b.specs, &Specification{
		Name:      name,
		Procedure: p,
		Args:      b.Defaults.Merge(overrides),
	})
	return b
}

// Len returns the number of Specifications added so far.
func (b *Batch) Len() int {
	return len(b.specs)
}

// Specifications returns the Specifications in the order they were
// added.
func (b *Batch) Specifications() []*Specification {
	acc := make([]*Specification, len(b.specs))
	copy(acc, b.specs)
	return acc
}

// Proceed calls Proceed on the Specifications.
func (b *Batch) Proceed(ctx context.Context, c *Control) ([]interface{}, error) {
	return Proceed(ctx, b.specs, c)
}
