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
	"net/url"
	"reflect"

	slogcontext "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel/attribute"
)

// typeMatchTier is a strategy of matching value types to parameter types.
type typeMatchTier int

const (
	// tierAssignable requires assignable value types.
	tierAssignable typeMatchTier = iota

	// tierElement also matches collection element types.
	tierElement

	// tierConversion also accepts loosely convertible types.
	tierConversion
)

// String returns the tier name.
func (t typeMatchTier) String() string {
	switch t {
	case tierAssignable:
		return "assignable"
	case tierElement:
		return "element"
	default:
		return "conversion"
	}
}

// resolveAheadOfTime selects the executable of a definition using declared
// value types only. Nothing is instantiated.
func (r *constructorResolver) resolveAheadOfTime(ctx context.Context, def *Definition) (_ Executable, err error) {
	ctx, span := startSpan(ctx, r.tracer, "gontainer.ResolveAheadOfTime", def)
	defer func() { endSpan(span, err) }()

	nonPublic := def.isNonPublicAllowed(r.nonPublic)
	target := factoryTarget{static: true}
	if def.factoryMethod != "" {
		target.typ = def.factoryType
		if def.factoryBean != "" {
			if def.factoryBean == def.name {
				return nil, &InvalidDefinitionError{
					Definition: def.name,
					Reason:     "factory bean reference points back to the same definition",
				}
			}
			typ, ok := r.lookup.DefinitionType(def.factoryBean)
			if !ok {
				return nil, &NotFoundError{Name: def.factoryBean}
			}
			target = factoryTarget{typ: typ}
		}
	}

	candidates := collectCandidates(def, candidateQuery{
		factoryType: target.typ,
		static:      target.static,
		nonPublic:   nonPublic,
	})
	switch len(candidates) {
	case 0:
		return nil, &NoMatchingExecutableError{
			Definition: def.name,
			Target:     describeTarget(def, target),
			Reason:     "no candidates found",
		}
	case 1:
		return candidates[0], nil
	}

	valueTypes := r.argumentValueTypes(def)
	for _, tier := range []typeMatchTier{tierAssignable, tierElement, tierConversion} {
		matches := matchValueTypes(candidates, valueTypes, tier)
		if len(matches) == 1 {
			span.SetAttributes(attribute.String("gontainer.tier", tier.String()))
			slogcontext.FromCtx(ctx).Debug("Resolved executable ahead of time",
				"definition", def.name, "executable", matches[0].String(), "tier", tier.String())
			return matches[0], nil
		}
		if len(matches) > 1 && tier == tierConversion && def.factoryMethod != "" {
			return nil, &AmbiguousMatchError{Definition: def.name, Candidates: matches}
		}
	}

	names := make([]string, 0, len(valueTypes))
	for _, typ := range valueTypes {
		if typ == nil {
			names = append(names, "?")
			continue
		}
		names = append(names, typ.String())
	}
	return nil, &NoMatchingExecutableError{
		Definition: def.name,
		Target:     describeTarget(def, target),
		ArgTypes:   names,
		Reason:     "no unique executable matches the declared argument types",
	}
}

// argumentValueTypes returns declared types of indexed argument values.
// A nil entry denotes an unknown type.
func (r *constructorResolver) argumentValueTypes(def *Definition) []reflect.Type {
	specs := def.args.indexedSpecs()
	types := make([]reflect.Type, 0, len(specs))
	for _, spec := range specs {
		types = append(types, r.argumentValueType(spec))
	}
	return types
}

// argumentValueType returns the declared type of a spec value.
func (r *constructorResolver) argumentValueType(spec *ArgumentSpec) reflect.Type {
	if spec.Type != nil {
		return spec.Type
	}
	switch value := spec.Value.(type) {
	case nil:
		return nil
	case Reference:
		if value.Type != nil {
			return value.Type
		}
		typ, _ := r.lookup.DefinitionType(value.Name)
		return typ
	case *Definition:
		return value.knownBeanType(r.nonPublic)
	case reflect.Type:
		return reflectTypeType
	default:
		return reflect.TypeOf(value)
	}
}

// matchValueTypes returns candidates whose whole parameter list matches the value types.
func matchValueTypes(candidates []Executable, valueTypes []reflect.Type, tier typeMatchTier) []Executable {
	var matches []Executable
	for _, candidate := range candidates {
		if candidate.NumIn() != len(valueTypes) {
			continue
		}
		matched := true
		for index, valueType := range valueTypes {
			if !matchValueType(candidate.In(index), valueType, tier) {
				matched = false
				break
			}
		}
		if matched {
			matches = append(matches, candidate)
		}
	}
	return matches
}

// matchValueType matches a single value type in the tier.
func matchValueType(param, value reflect.Type, tier typeMatchTier) bool {
	switch tier {
	case tierAssignable:
		return isAssignableType(param, value)
	case tierElement:
		return valueOrElement(param, value, isAssignableType)
	default:
		return valueOrElement(param, value, isStringForType) || valueOrElement(param, value, isSimplePair)
	}
}

// valueOrElement applies the predicate to the types directly, element to element,
// and value to parameter element.
func valueOrElement(param, value reflect.Type, predicate func(param, value reflect.Type) bool) bool {
	if predicate(param, value) {
		return true
	}
	paramElem := elementType(param)
	if paramElem == nil {
		return false
	}
	if valueElem := elementType(value); valueElem != nil && predicate(paramElem, valueElem) {
		return true
	}
	return predicate(paramElem, value)
}

// isAssignableType returns true for assignable or unknown value types.
func isAssignableType(param, value reflect.Type) bool {
	return value == nil || value.AssignableTo(param)
}

// isStringForType returns true for a string value of a reflect.Type parameter.
func isStringForType(param, value reflect.Type) bool {
	return value != nil && value.Kind() == reflect.String && param == reflectTypeType
}

// isSimplePair returns true when both types are simple value types.
func isSimplePair(param, value reflect.Type) bool {
	return value != nil && isSimpleValueType(param) && isSimpleValueType(value)
}

// isSimpleValueType returns true for primitive-like types.
func isSimpleValueType(typ reflect.Type) bool {
	switch typ {
	case timeType, urlType, urlPtrType, reflectTypeType:
		return true
	}
	switch typ.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// elementType returns the element type of slices and arrays, or the value type of maps.
func elementType(typ reflect.Type) reflect.Type {
	if typ == nil {
		return nil
	}
	switch typ.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return typ.Elem()
	default:
		return nil
	}
}

// Simple value types beyond primitive kinds.
var (
	urlType    = reflect.TypeOf(url.URL{})
	urlPtrType = reflect.TypeOf(&url.URL{})
)
