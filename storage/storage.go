/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package storage persists the results of batch runs.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/diffindiffs/didbase/core"
)

// Result is a presentation of one Specification's result as stored
// in a Storage system.
type Result struct {
	// Id is the id of the result within its run.
	Id string `json:"id,omitempty"`

	// Name is the name of the Specification.
	Name string `json:"name,omitempty"`

	// Procedure is the name of the Specification's Procedure.
	Procedure string `json:"procedure,omitempty"`

	// Value is what Proceed returned for the Specification.
	Value interface{} `json:"value"`
}

// Storage is a persistence interface for batch runs.
type Storage interface {
	MakeRun(ctx context.Context, rid string) error

	// RemRun removes the run and its results.
	RemRun(ctx context.Context, rid string) error

	// GetRun returns the run's results in id order.
	GetRun(ctx context.Context, rid string) ([]*Result, error)

	WriteResults(ctx context.Context, rid string, rs []*Result) error
}

// NewRunId makes a new run id.
func NewRunId() string {
	return uuid.New().String()
}

// ResultId gives the id for the ith result of a run.  Ids sort in
// result order.
func ResultId(i int) string {
	return fmt.Sprintf("%06d", i)
}

// AsResults pairs Specifications with the values Proceed returned
// for them.
func AsResults(specs []*core.Specification, values []interface{}) []*Result {
	acc := make([]*Result, 0, len(values))
	for i, v := range values {
		r := &Result{
			Id:    ResultId(i),
			Value: v,
		}
		if i < len(specs) && specs[i] != nil {
			r.Name = specs[i].Name
			if specs[i].Procedure != nil {
				r.Procedure = specs[i].Procedure.Name
			}
		}
		acc = append(acc, r)
	}
	return acc
}
