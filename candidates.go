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
	"sort"
)

// candidateQuery configures candidate collection for a definition.
type candidateQuery struct {
	// chosen overrides declared executables.
	chosen []Executable

	// factoryType is the type declaring factory methods.
	factoryType reflect.Type

	// static selects static factory methods, otherwise instance methods.
	static bool

	// nonPublic allows unexported executables.
	nonPublic bool
}

// collectCandidates returns ordered candidate executables of the definition.
//
// Constructors are taken from the definition. Factory methods are taken from the
// definition and, in instance mode, from the factory type method set, filtered by
// the factory method name. The result is sorted by descending parameter count,
// exported before unexported, keeping declaration order otherwise.
func collectCandidates(def *Definition, query candidateQuery) []Executable {
	var source []Executable
	switch {
	case query.chosen != nil:
		source = query.chosen
	case def.factoryMethod == "":
		source = def.constructors
	case query.static:
		source = def.methods
	default:
		source = append(append([]Executable{}, def.methods...), methodsOf(query.factoryType)...)
	}

	candidates := make([]Executable, 0, len(source))
	for _, candidate := range source {
		if !query.nonPublic && !candidate.IsExported() {
			continue
		}
		if def.factoryMethod != "" && !isFactoryMethodCandidate(def, query, candidate) {
			continue
		}
		if containsOverride(candidates, candidate) {
			continue
		}
		candidates = append(candidates, candidate)
	}

	sortCandidates(candidates)
	return candidates
}

// isFactoryMethodCandidate checks name, static flag and declaring type of a method.
func isFactoryMethodCandidate(def *Definition, query candidateQuery, candidate Executable) bool {
	if candidate.Kind() != FactoryMethodKind || candidate.Name() != def.factoryMethod {
		return false
	}
	if candidate.IsStatic() != query.static {
		return false
	}
	declaring := candidate.DeclaringType()
	if query.factoryType == nil || declaring == query.factoryType {
		return true
	}
	// Methods promoted from other types are visible only with non-public access.
	return query.nonPublic && declaring != nil && query.factoryType.AssignableTo(declaring)
}

// containsOverride returns true when an executable with the same name,
// declaring type and parameter types is already collected.
func containsOverride(candidates []Executable, candidate Executable) bool {
	for _, collected := range candidates {
		if collected.Name() == candidate.Name() &&
			collected.DeclaringType() == candidate.DeclaringType() &&
			sameParamTypes(collected, candidate) {
			return true
		}
	}
	return false
}

// sortCandidates orders candidates by descending parameter count,
// then exported first. The sort is stable.
func sortCandidates(candidates []Executable) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.NumIn() != b.NumIn() {
			return a.NumIn() > b.NumIn()
		}
		return a.IsExported() && !b.IsExported()
	})
}

// uniqueFactoryMethod returns the factory method of a definition when all
// same-named candidates share a single return type, without resolving anything.
func uniqueFactoryMethod(def *Definition, factoryType reflect.Type, static bool, nonPublic bool) Executable {
	candidates := collectCandidates(def, candidateQuery{factoryType: factoryType, static: static, nonPublic: nonPublic})
	if len(candidates) == 0 {
		return nil
	}
	first := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Out() != first.Out() {
			return nil
		}
	}
	return first
}
