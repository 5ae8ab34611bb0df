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

// These errors are usage errors.  They are reported before any Step
// executes (or, for MissingArg, when a Step's arguments are looked
// up).
//
// Errors returned by Step functions themselves are forwarded without
// translation.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyBatch occurs when Proceed is given no
	// Specifications.
	ErrEmptyBatch = errors.New("expected a nonempty batch of specifications")

	// ErrNoProcedures occurs when Pool is given no Procedures.
	ErrNoProcedures = errors.New("expected at least one procedure to pool")

	// ErrNilProcedure occurs when a Specification has no
	// Procedure (or is itself nil).
	ErrNilProcedure = errors.New("specification has no procedure")

	// ErrNoTotalOrder occurs when no valid order exists for a
	// pooled set of Steps.  Pool resolves the conflicts it can
	// find, so this error indicates a bug.
	ErrNoTotalOrder = errors.New("no valid total order for pooled steps")

	// ErrInterpreterNotFound occurs when you try to Compile a
	// StepSource, and the required interpreter isn't in the given
	// map of interpreters.
	ErrInterpreterNotFound = errors.New("interpreter not found")
)

// MissingArg occurs when a Step requires an argument that isn't in
// the Specification's trace.
type MissingArg struct {
	Step string
	Arg  string
}

func (e *MissingArg) Error() string {
	return `step "` + e.Step + `" requires missing argument "` + e.Arg + `"`
}

// BadKeep occurs when a requested result field name isn't usable.
type BadKeep struct {
	Keep interface{}
}

func (e *BadKeep) Error() string {
	return fmt.Sprintf("bad keep %#v (%T): expected a nonempty field name", e.Keep, e.Keep)
}

// BadArgCount occurs when a Step function receives a number of
// arguments that it can't handle.
type BadArgCount struct {
	Step     string
	Expected int
	Got      int
}

func (e *BadArgCount) Error() string {
	return `step "` + e.Step + `" expected ` + strconv.Itoa(e.Expected) +
		` arguments but got ` + strconv.Itoa(e.Got)
}

// UnknownProcedure occurs when a configuration names a Procedure that
// isn't in the given ProcedureMap.
type UnknownProcedure struct {
	Name string
}

func (e *UnknownProcedure) Error() string {
	return `procedure "` + e.Name + `" not found`
}

// PoolInvariant occurs when a pooled order doesn't reproduce a
// Procedure's own Step order.  Internal error.
type PoolInvariant struct {
	Procedure string
	Index     int
	Got       []string
}

func (e *PoolInvariant) Error() string {
	return `pooled steps for procedure "` + e.Procedure + `" (` + strconv.Itoa(e.Index) +
		`) out of order: ` + strings.Join(e.Got, ",")
}

func (e *PoolInvariant) Unwrap() error {
	return ErrNoTotalOrder
}

// BadPause occurs when Control.Pause is negative.
type BadPause struct {
	Pause int
}

func (e *BadPause) Error() string {
	return "bad pause " + strconv.Itoa(e.Pause) + ": expected a nonnegative count"
}
