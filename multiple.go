/*
 * SPDX-FileCopyrightText: Copyright (c) 2003 NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * SPDX-License-Identifier: Apache-2.0
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package gontainer

import (
	"reflect"
)

// Multiple defines a dependency on every definition providing the type.
// An empty slice is injected when no definition provides the type.
type Multiple[T any] []T

// Multiple marks the box type for the resolver.
func (m Multiple[T]) Multiple() {}

// isMultipleType returns the element type when the type is a Multiple box.
func isMultipleType(typ reflect.Type) (reflect.Type, bool) {
	if typ.Kind() == reflect.Slice {
		if _, ok := typ.MethodByName("Multiple"); ok {
			return typ.Elem(), true
		}
	}
	return nil, false
}

// newMultipleValue collects the values into a slice of the type.
func newMultipleValue(typ reflect.Type, values []reflect.Value) reflect.Value {
	box := reflect.MakeSlice(typ, 0, len(values))
	for _, value := range values {
		box = reflect.Append(box, callableArg(value, typ.Elem()))
	}
	return box
}
