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
	"fmt"
	"reflect"

	"github.com/tiendc/go-deepcopy"
)

// Copier can make a deep copy of itself.
//
// Values that are mutated in place by Steps (see Step.CopyArgs) and
// that have unexported state should implement Copier.
type Copier interface {
	DeepCopy() interface{}
}

// DeepCopy makes a deep copy of the given value.
func DeepCopy(x interface{}) (interface{}, error) {
	if x == nil {
		return nil, nil
	}
	if c, is := x.(Copier); is {
		return c.DeepCopy(), nil
	}
	switch vv := x.(type) {
	case []float64:
		acc := make([]float64, len(vv))
		copy(acc, vv)
		return acc, nil
	case []bool:
		acc := make([]bool, len(vv))
		copy(acc, vv)
		return acc, nil
	case []int:
		acc := make([]int, len(vv))
		copy(acc, vv)
		return acc, nil
	}

	dst := reflect.New(reflect.TypeOf(x))
	if err := deepcopy.Copy(dst.Interface(), x); err != nil {
		return nil, fmt.Errorf("deep copy of %T: %w", x, err)
	}
	return dst.Elem().Interface(), nil
}
