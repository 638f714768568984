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
	"math"
	"reflect"
)

// MaxWeight marks a candidate whose arguments are not assignable.
const MaxWeight = math.MaxInt32

// Weight biases of the matching modes.
const (
	// rawArgumentBias prefers an exact raw match over an equal converted match.
	rawArgumentBias = 1024

	// strictConvertedWeight is the strict weight of fully assignable converted arguments.
	strictConvertedWeight = MaxWeight - 1024

	// strictRawWeight is the strict weight of fully assignable raw arguments.
	strictRawWeight = MaxWeight - 512
)

// slotKind describes how a prepared argument is reproduced on the warm path.
type slotKind int

const (
	// slotValue reuses the cached converted value.
	slotValue slotKind = iota

	// slotAutowire autowires the parameter again.
	slotAutowire

	// slotDeferred resolves and converts the declared spec again.
	slotDeferred
)

// preparedSlot is a single argument of a prepared template.
type preparedSlot struct {
	kind  slotKind
	value reflect.Value
	spec  *ArgumentSpec
}

// argumentsHolder keeps arguments assembled for a single candidate.
type argumentsHolder struct {
	raw              []reflect.Value
	converted        []reflect.Value
	prepared         []preparedSlot
	resolveNecessary bool
}

// newArgumentsHolder returns a holder for the number of parameters.
func newArgumentsHolder(size int) *argumentsHolder {
	return &argumentsHolder{
		raw:       make([]reflect.Value, size),
		converted: make([]reflect.Value, size),
		prepared:  make([]preparedSlot, size),
	}
}

// newExplicitArgumentsHolder returns a holder of explicitly passed arguments.
func newExplicitArgumentsHolder(args []reflect.Value) *argumentsHolder {
	holder := newArgumentsHolder(len(args))
	copy(holder.raw, args)
	copy(holder.converted, args)
	for index, arg := range args {
		holder.prepared[index] = preparedSlot{kind: slotValue, value: arg}
	}
	return holder
}

// typeDifferenceWeight returns the lenient weight: the converted distance or
// the biased raw distance, whichever is lower.
func (h *argumentsHolder) typeDifferenceWeight(types []reflect.Type) int {
	converted := typeDifferenceWeight(types, h.converted)
	raw := typeDifferenceWeight(types, h.raw)
	if raw == MaxWeight {
		return converted
	}
	return min(converted, raw-rawArgumentBias)
}

// assignabilityWeight returns the strict weight.
func (h *argumentsHolder) assignabilityWeight(types []reflect.Type) int {
	for index, typ := range types {
		if !isAssignableArg(typ, h.converted[index]) {
			return MaxWeight
		}
	}
	for index, typ := range types {
		if !isAssignableArg(typ, h.raw[index]) {
			return strictRawWeight
		}
	}
	return strictConvertedWeight
}

// typeDifferenceWeight sums distances between parameter types and argument types.
//
// Identical types weigh 0, interfaces weigh one plus two per extra method
// of the argument, other assignable types weigh 2. Any unassignable argument
// yields MaxWeight.
func typeDifferenceWeight(types []reflect.Type, args []reflect.Value) int {
	result := 0
	for index, typ := range types {
		arg := unwrapInterface(args[index])
		if !isAssignableArg(typ, arg) {
			return MaxWeight
		}
		if !arg.IsValid() {
			continue
		}
		result += typeDistance(typ, arg.Type())
	}
	return result
}

// typeDistance returns the distance of an assignable argument type from a parameter type.
func typeDistance(param, arg reflect.Type) int {
	switch {
	case arg == param:
		return 0
	case param.Kind() == reflect.Interface:
		return 1 + 2*max(0, arg.NumMethod()-param.NumMethod())
	default:
		return 2
	}
}

// isAssignableArg returns true when the argument may be passed as the type.
// Missing arguments are assignable to nillable types.
func isAssignableArg(typ reflect.Type, arg reflect.Value) bool {
	arg = unwrapInterface(arg)
	if !arg.IsValid() {
		return isNillableType(typ)
	}
	return arg.Type().AssignableTo(typ)
}

// argTypeNames describes argument types for diagnostics.
func argTypeNames(args []reflect.Value) []string {
	names := make([]string, 0, len(args))
	for _, arg := range args {
		arg = unwrapInterface(arg)
		if !arg.IsValid() {
			names = append(names, "nil")
			continue
		}
		names = append(names, arg.Type().String())
	}
	return names
}
