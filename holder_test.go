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
	"testing"

	"github.com/stretchr/testify/assert"
)

type intList []int

// TestTypeDistance tests distances between argument and parameter types.
func TestTypeDistance(t *testing.T) {
	namedType := reflect.TypeOf((*named)(nil)).Elem()
	anyType := reflect.TypeOf((*any)(nil)).Elem()

	assert.Equal(t, 0, typeDistance(widgetType, widgetType))
	assert.Equal(t, 3, typeDistance(namedType, widgetType))
	assert.Equal(t, 5, typeDistance(anyType, widgetType))
	assert.Equal(t, 2, typeDistance(reflect.TypeOf([]int{}), reflect.TypeOf(intList{})))
}

// TestTypeDifferenceWeight tests summed distances of argument lists.
func TestTypeDifferenceWeight(t *testing.T) {
	namedType := reflect.TypeOf((*named)(nil)).Elem()
	types := []reflect.Type{reflect.TypeOf(""), namedType, widgetType}

	args := []reflect.Value{reflect.ValueOf("x"), reflect.ValueOf(&widget{}), {}}
	assert.Equal(t, 3, typeDifferenceWeight(types, args))

	args = []reflect.Value{reflect.ValueOf(1), reflect.ValueOf(&widget{}), {}}
	assert.Equal(t, MaxWeight, typeDifferenceWeight(types, args))

	// Missing values are not assignable to value types.
	assert.Equal(t, MaxWeight, typeDifferenceWeight([]reflect.Type{reflect.TypeOf(0)}, []reflect.Value{{}}))
}

// TestArgumentsHolderWeights tests lenient and strict weights of a holder.
func TestArgumentsHolderWeights(t *testing.T) {
	intType := reflect.TypeOf(0)
	stringType := reflect.TypeOf("")

	tests := []struct {
		name      string
		types     []reflect.Type
		raw       []reflect.Value
		converted []reflect.Value
		lenient   int
		strict    int
	}{{
		name:      "RawMatch",
		types:     []reflect.Type{intType},
		raw:       []reflect.Value{reflect.ValueOf(1)},
		converted: []reflect.Value{reflect.ValueOf(1)},
		lenient:   -rawArgumentBias,
		strict:    strictConvertedWeight,
	}, {
		name:      "ConvertedMatch",
		types:     []reflect.Type{stringType},
		raw:       []reflect.Value{reflect.ValueOf(1)},
		converted: []reflect.Value{reflect.ValueOf("1")},
		lenient:   0,
		strict:    strictRawWeight,
	}, {
		name:      "NoMatch",
		types:     []reflect.Type{intType},
		raw:       []reflect.Value{reflect.ValueOf("x")},
		converted: []reflect.Value{reflect.ValueOf("x")},
		lenient:   MaxWeight,
		strict:    MaxWeight,
	}, {
		name:      "InterfaceMatch",
		types:     []reflect.Type{reflect.TypeOf((*identified)(nil)).Elem()},
		raw:       []reflect.Value{reflect.ValueOf(&widget{})},
		converted: []reflect.Value{reflect.ValueOf(&widget{})},
		lenient:   3 - rawArgumentBias,
		strict:    strictConvertedWeight,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holder := newArgumentsHolder(len(tt.types))
			copy(holder.raw, tt.raw)
			copy(holder.converted, tt.converted)
			assert.Equal(t, tt.lenient, holder.typeDifferenceWeight(tt.types))
			assert.Equal(t, tt.strict, holder.assignabilityWeight(tt.types))
		})
	}
}

// TestExplicitArgumentsHolder tests holders of explicitly passed arguments.
func TestExplicitArgumentsHolder(t *testing.T) {
	args := []reflect.Value{reflect.ValueOf("x"), reflect.ValueOf(1)}
	holder := newExplicitArgumentsHolder(args)

	assert.Equal(t, args, holder.raw)
	assert.Equal(t, args, holder.converted)
	assert.False(t, holder.resolveNecessary)
	for index, slot := range holder.prepared {
		assert.Equal(t, slotValue, slot.kind)
		assert.Equal(t, args[index].Interface(), slot.value.Interface())
	}
	assert.Equal(t, []string{"string", "int", "nil"}, argTypeNames(append(args, reflect.Value{})))
}
