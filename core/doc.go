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

// Package core provides the gear for composing and executing
// multi-step statistical procedures over many specifications at once.
//
// A Step is a named function together with declarations of the
// arguments it needs.  A Procedure is a fixed sequence of Steps.  A
// Specification is a Procedure plus concrete Args, and it can be Run
// on its own.
//
// The interesting part is Proceed, which takes a batch of
// Specifications, Pools the Steps of their Procedures so that
// identical Steps are shared, and then executes each shared Step once
// per distinct set of arguments.  The fields returned by a Step are
// merged into the Trace of every Specification in that argument
// group.  Sharing is an optimization only: Proceed on a batch gives
// the same answers as calling Run on each Specification.
//
// Steps can mutate some of their arguments in place (see
// Step.CopyArgs).  Proceed keeps reference counts for argument values
// across the whole batch and makes a deep copy whenever a value
// is referenced by more traces than the group about to mutate it.
//
// Ideally a Step function does not perform any IO.  Steps can also be
// written in ECMAScript and compiled via a StepSource and an
// Interpreter.
package core
