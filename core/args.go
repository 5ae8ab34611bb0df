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
	"errors"
	"reflect"
	"sort"
)

// Args is a map from argument (or field) names to their values.
type Args map[string]interface{}

// NewArgs makes an empty Args.
func NewArgs() Args {
	return make(Args, 8)
}

// Extend adds the property; modifies and returns the Args.
func (as Args) Extend(p string, v interface{}) Args {
	as[p] = v
	return as
}

// Extendm adds the properties; modifies and returns the Args.
func (as Args) Extendm(pairs ...interface{}) (Args, error) {
	for i := 0; i < len(pairs); i += 2 {
		p, is := pairs[i].(string)
		if !is {
			return nil, errors.New("Args.Extendm given a non-string key")
		}
		if len(pairs) <= i+1 {
			return nil, errors.New("odd args to Args.Extendm")
		}
		as[p] = pairs[i+1]
	}
	return as, nil
}

// Remove removes the given keys.
//
// The Args are modified.
func (as Args) Remove(ps ...string) Args {
	for _, p := range ps {
		delete(as, p)
	}
	return as
}

// DeleteExcept removes all but the given properties.
//
// Does not copy.
func (as Args) DeleteExcept(keeps ...string) Args {
REM:
	for p := range as {
		for _, keep := range keeps {
			if keep == p {
				continue REM
			}
		}
		delete(as, p)
	}
	return as
}

// Copy makes a shallow copy of the Args.
func (as Args) Copy() Args {
	acc := make(Args, len(as))
	for k, v := range as {
		acc[k] = v
	}
	return acc
}

// Merge returns a new Args with the given Args overlaid on this one.
//
// Values from more take precedence.
func (as Args) Merge(more Args) Args {
	acc := make(Args, len(as)+len(more))
	for k, v := range as {
		acc[k] = v
	}
	for k, v := range more {
		acc[k] = v
	}
	return acc
}

// Keys returns the sorted keys.
func (as Args) Keys() []string {
	ks := make([]string, 0, len(as))
	for k := range as {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Equal reports whether both Args have the same keys with values
// that are reflect.DeepEqual.
func (as Args) Equal(other Args) bool {
	if len(as) != len(other) {
		return false
	}
	for k, v := range as {
		w, have := other[k]
		if !have {
			return false
		}
		if !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}

// Param is a named argument with a default value.
type Param struct {
	Name  string      `json:"name" yaml:"name"`
	Value interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}
