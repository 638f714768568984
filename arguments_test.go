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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArgumentValues tests declaration of argument values.
func TestArgumentValues(t *testing.T) {
	args := NewArgumentValues()
	assert.True(t, args.IsEmpty())

	args.AddIndexed(2, "c")
	args.AddIndexed(0, "a", ArgName("first"))
	args.AddGeneric(42, ArgType(reflect.TypeOf(0)))
	args.AddGeneric(Ref("bean"), ArgConverted())

	assert.False(t, args.IsEmpty())
	assert.Equal(t, 4, args.Count())
	assert.Equal(t, []int{0, 2}, args.Indexes())
	assert.Equal(t, "first", args.Indexed(0).Name)
	assert.Nil(t, args.Indexed(1))
	assert.Len(t, args.Generic(), 2)
	assert.True(t, args.Generic()[1].IsConverted())
	assert.Equal(t, "<bean>", Ref("bean").String())
}

// TestArgumentValueLookup tests lookup of argument values for parameters.
func TestArgumentValueLookup(t *testing.T) {
	intType := reflect.TypeOf(0)
	stringType := reflect.TypeOf("")

	args := NewArgumentValues()
	args.AddIndexed(0, "indexed", ArgName("name"))
	args.AddIndexed(1, 5, ArgType(intType))
	args.AddGeneric("generic")
	args.AddGeneric(7, ArgName("id"))

	used := map[*ArgumentSpec]struct{}{}

	// Indexed values match on type hint and name.
	assert.Equal(t, "indexed", args.argumentValue(0, stringType, "name", used).Value)
	assert.Equal(t, "indexed", args.argumentValue(0, stringType, "", used).Value)
	assert.Equal(t, "generic", args.argumentValue(0, stringType, "other", used).Value)
	assert.Equal(t, 5, args.argumentValue(1, intType, "", used).Value)

	// Generic values match on assignability or name.
	spec := args.genericValue(stringType, "", used)
	require.NotNil(t, spec)
	assert.Equal(t, "generic", spec.Value)
	used[spec] = struct{}{}
	assert.Equal(t, 7, args.genericValue(stringType, "", used).Value)
	assert.Equal(t, 7, args.genericValue(intType, "id", used).Value)
	assert.Nil(t, args.genericValue(intType, "other", used))

	// Any unused untyped generic value is the last resort.
	assert.Nil(t, args.anyGenericValue(used))
	assert.Equal(t, "generic", args.anyGenericValue(map[*ArgumentSpec]struct{}{}).Value)
}

// TestResolveArgumentValues tests resolution of declared argument values.
func TestResolveArgumentValues(t *testing.T) {
	lookup := newFakeLookup().add("factory", &widgetFactory{})
	resolver, values := newTestResolver(lookup, true)

	def := loadDefinition(t, NewDefinition("widget",
		WithConstructor(newNamedWidget),
		WithIndexedArg(3, Ref("factory")),
		WithArg("name"),
		WithArg("raw", ArgConverted()),
	))

	resolved, minCount, err := resolver.resolveArgumentValues(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, 4, minCount)
	assert.Equal(t, int32(2), values.calls.Load())

	spec := resolved.Indexed(3)
	assert.Equal(t, &widgetFactory{}, spec.Value)
	assert.Same(t, def.Args().Indexed(3), spec.Source())
	assert.Same(t, def.Args().Generic()[1], resolved.Generic()[1])

	invalid := loadDefinition(t, NewDefinition("invalid",
		WithConstructor(newNamedWidget),
		WithIndexedArg(-1, "x"),
	))
	_, _, err = resolver.resolveArgumentValues(context.Background(), invalid)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}
