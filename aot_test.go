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
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveAheadOfTime tests executable selection from declared value types.
func TestResolveAheadOfTime(t *testing.T) {
	lookup := newFakeLookup().add("w", &widget{})
	resolver, values := newTestResolver(lookup, true)

	constructors := []DefinitionOpt{
		WithConstructor(func(v string) int { return 0 }, WithExecutableName("FromString")),
		WithConstructor(func(v int) int { return 0 }, WithExecutableName("FromInt")),
		WithConstructor(func(v []int) int { return 0 }, WithExecutableName("FromInts")),
		WithConstructor(func(v time.Duration) int { return 0 }, WithExecutableName("FromDuration")),
		WithConstructor(func(v named) int { return 0 }, WithExecutableName("FromNamed")),
	}

	tests := []struct {
		name  string
		value any
		opts  []ArgOpt
		want  string
	}{
		{name: "Assignable", value: 42, want: "FromInt"},
		{name: "AssignableString", value: "x", want: "FromString"},
		{name: "Element", value: []int{1}, want: "FromInts"},
		{name: "ArrayElements", value: nil, opts: []ArgOpt{ArgType(reflect.TypeOf([1]int{}))}, want: "FromInts"},
		{name: "Reference", value: Ref("w"), want: "FromNamed"},
		{name: "TypedReference", value: TypedRef("other", widgetType), want: "FromNamed"},
		{name: "TypeHint", value: "x", opts: []ArgOpt{ArgType(reflect.TypeOf(time.Duration(0)))}, want: "FromDuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]DefinitionOpt{WithIndexedArg(0, tt.value, tt.opts...)}, constructors...)
			def := loadDefinition(t, NewDefinition("value", opts...))
			e, err := resolver.resolveAheadOfTime(context.Background(), def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Name())
		})
	}

	// Nothing is resolved ahead of time.
	assert.Equal(t, int32(0), values.calls.Load())
	assert.Equal(t, int32(0), lookup.calls.Load())
}

// TestResolveAheadOfTimeTiers tests the order of matching tiers.
func TestResolveAheadOfTimeTiers(t *testing.T) {
	resolver, _ := newTestResolver(newFakeLookup().add("w", &widget{}), true)

	// Elements are matched before conversions.
	def := loadDefinition(t, NewDefinition("value",
		WithConstructor(func(v string) int { return 0 }, WithExecutableName("FromString")),
		WithConstructor(func(v []int) int { return 0 }, WithExecutableName("FromInts")),
		WithIndexedArg(0, 5),
	))
	e, err := resolver.resolveAheadOfTime(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, "FromInts", e.Name())

	// Simple values convert to simple parameters only.
	def = loadDefinition(t, NewDefinition("value",
		WithConstructor(func(v *widget) int { return 0 }, WithExecutableName("FromWidget")),
		WithConstructor(func(v time.Duration) int { return 0 }, WithExecutableName("FromDuration")),
		WithIndexedArg(0, "1s"),
	))
	e, err = resolver.resolveAheadOfTime(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, "FromDuration", e.Name())

	// Map parameters match their value type.
	def = loadDefinition(t, NewDefinition("value",
		WithConstructor(func(v string) int { return 0 }, WithExecutableName("FromString")),
		WithConstructor(func(v map[string]int) int { return 0 }, WithExecutableName("FromMap")),
		WithIndexedArg(0, 5),
	))
	e, err = resolver.resolveAheadOfTime(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, "FromMap", e.Name())

	// Unknown value types match every candidate.
	def = loadDefinition(t, NewDefinition("value",
		WithConstructor(func(v *widget) int { return 0 }),
		WithConstructor(func(v named) int { return 0 }),
		WithIndexedArg(0, nil),
	))
	_, err = resolver.resolveAheadOfTime(context.Background(), def)
	assert.ErrorIs(t, err, ErrNoMatchingExecutable)

	// Known types assignable to several candidates are not guessed.
	def = loadDefinition(t, NewDefinition("value",
		WithConstructor(func(v named) int { return 0 }, WithExecutableName("FromNamed")),
		WithConstructor(func(v identified) int { return 0 }, WithExecutableName("FromIdentified")),
		WithIndexedArg(0, Ref("w")),
	))
	_, err = resolver.resolveAheadOfTime(context.Background(), def)
	require.ErrorIs(t, err, ErrNoMatchingExecutable)
	var noMatch *NoMatchingExecutableError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, []string{"*gontainer.widget"}, noMatch.ArgTypes)

	// Arity must match the indexed values.
	def = loadDefinition(t, NewDefinition("value",
		WithConstructor(NewWidget),
		WithConstructor(newNamedWidget),
		WithIndexedArg(0, "a"),
		WithIndexedArg(1, 1),
	))
	e, err = resolver.resolveAheadOfTime(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, "NewWidget", e.Name())
}

// TestResolveAheadOfTimeFactoryMethods tests ahead-of-time factory method selection.
func TestResolveAheadOfTimeFactoryMethods(t *testing.T) {
	lookup := newFakeLookup().add("factory", &widgetFactory{})
	resolver, _ := newTestResolver(lookup, true)

	// Loosely convertible overloads of a factory method are ambiguous.
	def := loadDefinition(t, NewDefinition("value",
		WithFactoryType(widgetFactoryType),
		WithFactoryMethod("Create",
			NewStaticMethod(widgetFactoryType, "Create", func(v int) *widget { return nil }),
			NewStaticMethod(widgetFactoryType, "Create", func(v string) *widget { return nil }),
		),
		WithIndexedArg(0, true),
	))
	_, err := resolver.resolveAheadOfTime(context.Background(), def)
	require.ErrorIs(t, err, ErrAmbiguousMatch)
	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)

	// Factory bean types are taken from definitions.
	def = loadDefinition(t, NewDefinition("widget",
		WithFactoryBean("factory"),
		WithFactoryMethod("Build"),
	))
	e, err := resolver.resolveAheadOfTime(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, "(*gontainer.widgetFactory).Build(string)", e.String())

	def = loadDefinition(t, NewDefinition("widget",
		WithFactoryBean("missing"),
		WithFactoryMethod("Build"),
	))
	_, err = resolver.resolveAheadOfTime(context.Background(), def)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestMatchValueType tests single tier predicates.
func TestMatchValueType(t *testing.T) {
	intType := reflect.TypeOf(0)
	intsType := reflect.TypeOf([]int{})
	stringType := reflect.TypeOf("")

	assert.True(t, matchValueType(intType, nil, tierAssignable))
	assert.True(t, matchValueType(intType, intType, tierAssignable))
	assert.False(t, matchValueType(intsType, intType, tierAssignable))

	assert.True(t, matchValueType(intsType, intType, tierElement))
	assert.True(t, matchValueType(intsType, reflect.TypeOf([2]int{}), tierElement))
	assert.False(t, matchValueType(intsType, stringType, tierElement))

	assert.True(t, matchValueType(reflectTypeType, stringType, tierConversion))
	assert.True(t, matchValueType(intsType, stringType, tierConversion))
	assert.True(t, matchValueType(timeType, stringType, tierConversion))
	assert.False(t, matchValueType(widgetType, stringType, tierConversion))
}
