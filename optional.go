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
	"unsafe"
)

// Optional defines a dependency which may be missing in the container.
// The zero value is injected when no definition provides the type.
type Optional[T any] struct {
	value T
}

// Get returns the optional dependency, or the zero value.
func (o Optional[T]) Get() T {
	return o.value
}

// Optional marks the box type for the resolver.
func (o Optional[T]) Optional() {}

// isOptionalType returns the boxed type when the type is an Optional box.
func isOptionalType(typ reflect.Type) (reflect.Type, bool) {
	if typ.Kind() != reflect.Struct {
		return nil, false
	}
	if _, ok := typ.MethodByName("Optional"); !ok {
		return nil, false
	}
	if method, ok := typ.MethodByName("Get"); ok && method.Type.NumOut() == 1 {
		return method.Type.Out(0), true
	}
	return nil, false
}

// newOptionalValue boxes the value into the Optional type.
func newOptionalValue(typ reflect.Type, value reflect.Value) reflect.Value {
	box := reflect.New(typ).Elem()

	// The box field is unexported, so it is set through its address.
	field := box.FieldByName("value")
	settable := reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	settable.Set(callableArg(value, field.Type()))

	return box
}
