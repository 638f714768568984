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
	"fmt"
	"reflect"
	"sort"
)

// Reference points to another definition by name.
// It is resolved to the referenced bean instance.
type Reference struct {
	// Name of the referenced definition.
	Name string

	// Type optionally declares the referenced bean type.
	Type reflect.Type
}

// Ref returns a reference to the named definition.
func Ref(name string) Reference {
	return Reference{Name: name}
}

// TypedRef returns a reference to the named definition with a declared type.
func TypedRef(name string, typ reflect.Type) Reference {
	return Reference{Name: name, Type: typ}
}

// String returns the reference description.
func (r Reference) String() string {
	return fmt.Sprintf("<%s>", r.Name)
}

// ArgumentSpec declares a single argument value of a definition.
//
// The value may be a literal, a Reference or a nested *Definition.
type ArgumentSpec struct {
	// Value is the declared or resolved value.
	Value any

	// Type is an optional type hint.
	Type reflect.Type

	// Name is an optional parameter name to match.
	Name string

	// converted marks values to be passed as is.
	converted bool

	// source links a resolved spec to its declaration.
	source *ArgumentSpec
}

// IsConverted returns true when the value is passed without resolution or conversion.
func (s *ArgumentSpec) IsConverted() bool {
	return s.converted
}

// Source returns the declared spec of a resolved one, or the spec itself.
func (s *ArgumentSpec) Source() *ArgumentSpec {
	if s.source != nil {
		return s.source
	}
	return s
}

// ArgOpt configures an argument spec.
type ArgOpt func(*ArgumentSpec)

// ArgType sets the type hint of an argument.
func ArgType(typ reflect.Type) ArgOpt {
	return func(spec *ArgumentSpec) {
		spec.Type = typ
	}
}

// ArgName sets the parameter name an argument is matched to.
func ArgName(name string) ArgOpt {
	return func(spec *ArgumentSpec) {
		spec.Name = name
	}
}

// ArgConverted passes the argument value to the executable as is.
func ArgConverted() ArgOpt {
	return func(spec *ArgumentSpec) {
		spec.converted = true
	}
}

// ArgumentValues holds indexed and generic argument specs of a definition.
type ArgumentValues struct {
	indexed map[int]*ArgumentSpec
	generic []*ArgumentSpec
}

// NewArgumentValues returns an empty argument holder.
func NewArgumentValues() *ArgumentValues {
	return &ArgumentValues{indexed: map[int]*ArgumentSpec{}}
}

// AddIndexed declares the argument value for the parameter index.
func (a *ArgumentValues) AddIndexed(index int, value any, opts ...ArgOpt) {
	a.indexed[index] = newArgumentSpec(value, opts)
}

// AddGeneric declares an argument value matched by type or name.
func (a *ArgumentValues) AddGeneric(value any, opts ...ArgOpt) {
	a.generic = append(a.generic, newArgumentSpec(value, opts))
}

// Indexed returns the spec declared for the index, or nil.
func (a *ArgumentValues) Indexed(index int) *ArgumentSpec {
	return a.indexed[index]
}

// Indexes returns declared indexes in ascending order.
func (a *ArgumentValues) Indexes() []int {
	indexes := make([]int, 0, len(a.indexed))
	for index := range a.indexed {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}

// Generic returns generic specs in declaration order.
func (a *ArgumentValues) Generic() []*ArgumentSpec {
	return a.generic
}

// Count returns the number of declared specs.
func (a *ArgumentValues) Count() int {
	return len(a.indexed) + len(a.generic)
}

// IsEmpty returns true when no specs are declared.
func (a *ArgumentValues) IsEmpty() bool {
	return a.Count() == 0
}

// argumentValue looks up a spec for the parameter: indexed first, then generic.
func (a *ArgumentValues) argumentValue(index int, typ reflect.Type, name string, used map[*ArgumentSpec]struct{}) *ArgumentSpec {
	if spec := a.indexedValue(index, typ, name); spec != nil {
		return spec
	}
	return a.genericValue(typ, name, used)
}

// indexedValue returns the indexed spec when its type hint and name match.
// An empty required name matches any spec name.
func (a *ArgumentValues) indexedValue(index int, typ reflect.Type, name string) *ArgumentSpec {
	spec, ok := a.indexed[index]
	if !ok {
		return nil
	}
	if spec.Type != nil && spec.Type != typ {
		return nil
	}
	if spec.Name != "" && name != "" && spec.Name != name {
		return nil
	}
	return spec
}

// genericValue returns the first unused generic spec matching the parameter.
func (a *ArgumentValues) genericValue(typ reflect.Type, name string, used map[*ArgumentSpec]struct{}) *ArgumentSpec {
	for _, spec := range a.generic {
		if _, ok := used[spec]; ok {
			continue
		}
		if spec.Name != "" && name != "" && spec.Name != name {
			continue
		}
		if spec.Type != nil && spec.Type != typ {
			continue
		}
		if spec.Type == nil && spec.Name == "" && !isAssignableValue(typ, spec.Value) {
			continue
		}
		return spec
	}
	return nil
}

// anyGenericValue returns the first unused generic spec without type hint and name.
func (a *ArgumentValues) anyGenericValue(used map[*ArgumentSpec]struct{}) *ArgumentSpec {
	for _, spec := range a.generic {
		if _, ok := used[spec]; ok {
			continue
		}
		if spec.Type == nil && spec.Name == "" {
			return spec
		}
	}
	return nil
}

// indexedSpecs returns indexed specs in index order.
func (a *ArgumentValues) indexedSpecs() []*ArgumentSpec {
	specs := make([]*ArgumentSpec, 0, len(a.indexed))
	for _, index := range a.Indexes() {
		specs = append(specs, a.indexed[index])
	}
	return specs
}

// newArgumentSpec builds a spec from a value and options.
func newArgumentSpec(value any, opts []ArgOpt) *ArgumentSpec {
	spec := &ArgumentSpec{Value: value}
	for _, opt := range opts {
		opt(spec)
	}
	return spec
}

// ValueResolver turns declared argument values into concrete objects.
type ValueResolver interface {
	// ResolveValue resolves a literal, a Reference or a nested *Definition
	// declared by the definition.
	ResolveValue(ctx context.Context, def *Definition, value any) (any, error)

	// IsDynamic returns true when the value yields a fresh object on every
	// resolution, so it must not be cached.
	IsDynamic(value any) bool
}

// resolveArgumentValues resolves declared specs of the definition.
// It returns resolved specs linked to their declarations and the minimum
// parameter count required by indexed specs.
func (r *constructorResolver) resolveArgumentValues(ctx context.Context, def *Definition) (*ArgumentValues, int, error) {
	declared := def.args
	resolved := NewArgumentValues()
	minCount := declared.Count()

	for _, index := range declared.Indexes() {
		if index < 0 {
			return nil, 0, &InvalidDefinitionError{
				Definition: def.name,
				Reason:     fmt.Sprintf("invalid argument index: %d", index),
			}
		}
		if index+1 > minCount {
			minCount = index + 1
		}
		spec, err := r.resolveArgumentSpec(ctx, def, declared.indexed[index])
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve argument %d of '%s': %w", index, def.name, err)
		}
		resolved.indexed[index] = spec
	}

	for position, declaredSpec := range declared.generic {
		spec, err := r.resolveArgumentSpec(ctx, def, declaredSpec)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve generic argument %d of '%s': %w", position, def.name, err)
		}
		resolved.generic = append(resolved.generic, spec)
	}

	return resolved, minCount, nil
}

// resolveArgumentSpec resolves a single spec via the value resolver.
func (r *constructorResolver) resolveArgumentSpec(ctx context.Context, def *Definition, spec *ArgumentSpec) (*ArgumentSpec, error) {
	if spec.converted {
		return spec, nil
	}
	value, err := r.values.ResolveValue(ctx, def, spec.Value)
	if err != nil {
		return nil, err
	}
	return &ArgumentSpec{Value: value, Type: spec.Type, Name: spec.Name, source: spec}, nil
}

// isAssignableValue returns true when the value may be passed as the type.
func isAssignableValue(typ reflect.Type, value any) bool {
	if value == nil {
		return isNillableType(typ)
	}
	return reflect.TypeOf(value).AssignableTo(typ)
}
