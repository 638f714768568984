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

	slogcontext "github.com/veqryn/slog-context"
)

// matchRequest holds the input of overload matching.
type matchRequest struct {
	def        *Definition
	target     factoryTarget
	candidates []Executable

	// Either explicit arguments or resolved declared arguments.
	explicitArgs []reflect.Value
	resolved     *ArgumentValues

	// Minimum parameter count of a viable candidate.
	minArgs int

	autowiring bool
	lenient    bool
}

// candidateResult is the outcome of a single candidate.
// A failed candidate carries err, a rejected one carries MaxWeight.
type candidateResult struct {
	candidate Executable
	holder    *argumentsHolder
	weight    int
	err       error
}

// matchOutcome is the selected candidate with its arguments.
type matchOutcome struct {
	executable Executable
	holder     *argumentsHolder
	weight     int

	// ambiguous lists candidates tied with the selected one.
	ambiguous []Executable

	// results lists every examined candidate in order.
	results []candidateResult
}

// overloadMatcher selects the best candidate of a request.
type overloadMatcher interface {
	match(ctx context.Context, req *matchRequest) (*matchOutcome, error)
}

// weightedMatcher selects candidates by type difference weight.
type weightedMatcher struct {
	resolver *constructorResolver
}

// match examines candidates in order and selects the lowest weight.
func (m *weightedMatcher) match(ctx context.Context, req *matchRequest) (*matchOutcome, error) {
	logger := slogcontext.FromCtx(ctx)
	results := make([]candidateResult, 0, len(req.candidates))
	bestWeight, bestArgs := MaxWeight, -1

	for _, candidate := range req.candidates {
		paramCount := candidate.NumIn()

		// Candidates are sorted by descending parameter count:
		// the remaining ones cannot take the selected arguments.
		if bestArgs > paramCount {
			break
		}
		if paramCount < req.minArgs {
			continue
		}

		var holder *argumentsHolder
		if req.explicitArgs != nil {
			if paramCount != len(req.explicitArgs) {
				continue
			}
			holder = newExplicitArgumentsHolder(req.explicitArgs)
		} else {
			var err error
			holder, err = m.resolver.createArgumentArray(ctx, req, candidate, len(req.candidates) == 1)
			if err != nil {
				if _, ok := err.(*UnsatisfiedDependencyError); !ok {
					return nil, err
				}
				logger.Debug("Ignoring candidate", "definition", req.def.name, "executable", candidate.String(), "error", err)
				results = append(results, candidateResult{candidate: candidate, weight: MaxWeight, err: err})
				continue
			}
		}

		types := paramTypes(candidate)
		weight := holder.assignabilityWeight(types)
		if req.lenient {
			weight = holder.typeDifferenceWeight(types)
		}
		results = append(results, candidateResult{candidate: candidate, holder: holder, weight: weight})
		if weight < bestWeight {
			bestWeight, bestArgs = weight, paramCount
		}
	}

	return m.decide(req, results)
}

// decide inspects candidate results and returns the selected one.
func (m *weightedMatcher) decide(req *matchRequest, results []candidateResult) (*matchOutcome, error) {
	var best *candidateResult
	var ambiguous []Executable
	var causes []error

	for index := range results {
		result := &results[index]
		switch {
		case result.err != nil:
			causes = append(causes, result.err)
		case result.weight >= MaxWeight:
		case best == nil || result.weight < best.weight:
			best, ambiguous = result, nil
		case result.weight == best.weight &&
			result.candidate.NumIn() == best.candidate.NumIn() &&
			!sameParamTypes(result.candidate, best.candidate):
			if ambiguous == nil {
				ambiguous = []Executable{best.candidate}
			}
			ambiguous = append(ambiguous, result.candidate)
		}
	}

	if best == nil {
		if len(causes) > 0 {
			return nil, surfaceCause(causes)
		}
		return nil, &NoMatchingExecutableError{
			Definition: req.def.name,
			Target:     describeTarget(req.def, req.target),
			ArgTypes:   requestArgTypes(req),
			Reason:     "check that a matching executable with the specified argument types exists",
		}
	}

	if len(ambiguous) > 0 && !req.lenient {
		return nil, &AmbiguousMatchError{Definition: req.def.name, Candidates: ambiguous}
	}

	return &matchOutcome{
		executable: best.candidate,
		holder:     best.holder,
		weight:     best.weight,
		ambiguous:  ambiguous,
		results:    results,
	}, nil
}

// createArgumentArray assembles arguments of a candidate from resolved specs,
// falling back to autowiring for unmatched parameters.
func (r *constructorResolver) createArgumentArray(
	ctx context.Context,
	req *matchRequest,
	candidate Executable,
	fallback bool,
) (*argumentsHolder, error) {
	paramCount := candidate.NumIn()
	holder := newArgumentsHolder(paramCount)
	used := make(map[*ArgumentSpec]struct{}, paramCount)
	var autowired []string

	for index := 0; index < paramCount; index++ {
		typ := candidate.In(index)
		name := paramName(candidate, index)

		// Lookup declared argument by index, then by type and name.
		var spec *ArgumentSpec
		if req.resolved != nil {
			spec = req.resolved.argumentValue(index, typ, name, used)
			if spec == nil && (!req.autowiring || paramCount == req.resolved.Count()) {
				spec = req.resolved.anyGenericValue(used)
			}
		}

		if spec != nil {
			used[spec] = struct{}{}
			if err := r.assignArgument(holder, index, typ, spec); err != nil {
				return nil, &UnsatisfiedDependencyError{
					Definition:     req.def.name,
					InjectionPoint: newInjectionPoint(req.def, candidate, index),
					Reason:         "could not convert argument value",
					Err:            err,
				}
			}
			continue
		}

		if !req.autowiring {
			return nil, &UnsatisfiedDependencyError{
				Definition:     req.def.name,
				InjectionPoint: newInjectionPoint(req.def, candidate, index),
				Reason: fmt.Sprintf("ambiguous argument values for parameter of type '%s' - "+
					"did you specify the correct bean references as arguments?", typ),
			}
		}

		dep, err := r.resolveAutowiredArgument(ctx, req.def, candidate, index, fallback)
		if err != nil {
			if isFatalResolutionError(err) {
				return nil, err
			}
			return nil, &UnsatisfiedDependencyError{
				Definition:     req.def.name,
				InjectionPoint: newInjectionPoint(req.def, candidate, index),
				Err:            err,
			}
		}
		holder.raw[index] = dep.Value
		holder.converted[index] = dep.Value
		holder.prepared[index] = preparedSlot{kind: slotAutowire}
		holder.resolveNecessary = true
		autowired = append(autowired, dep.Names...)
	}

	for _, supplier := range autowired {
		r.graph.RegisterDependencyEdge(ctx, req.def.name, supplier)
	}
	return holder, nil
}

// assignArgument converts a declared argument into the holder slot.
func (r *constructorResolver) assignArgument(holder *argumentsHolder, index int, typ reflect.Type, spec *ArgumentSpec) error {
	raw := reflect.ValueOf(spec.Value)
	if spec.converted {
		holder.raw[index] = raw
		holder.converted[index] = raw
		holder.prepared[index] = preparedSlot{kind: slotValue, value: raw}
		return nil
	}

	converted, err := r.converter.Convert(spec.Value, typ)
	if err != nil {
		return err
	}
	holder.raw[index] = raw
	holder.converted[index] = converted

	// Dynamic values are resolved again on every use.
	if source := spec.Source(); source != spec && r.values.IsDynamic(source.Value) {
		holder.resolveNecessary = true
		holder.prepared[index] = preparedSlot{kind: slotDeferred, spec: source}
		return nil
	}
	holder.prepared[index] = preparedSlot{kind: slotValue, value: converted}
	return nil
}

// surfaceCause returns the last cause with earlier ones suppressed.
func surfaceCause(causes []error) error {
	last := causes[len(causes)-1]
	unsatisfied, ok := last.(*UnsatisfiedDependencyError)
	if !ok {
		return last
	}
	surfaced := *unsatisfied
	surfaced.Suppressed = append([]error{}, causes[:len(causes)-1]...)
	return &surfaced
}

// requestArgTypes describes argument types of a request.
func requestArgTypes(req *matchRequest) []string {
	if req.explicitArgs != nil {
		return argTypeNames(req.explicitArgs)
	}
	if req.resolved == nil {
		return nil
	}
	values := make([]reflect.Value, 0, req.resolved.Count())
	for _, spec := range append(req.resolved.indexedSpecs(), req.resolved.generic...) {
		values = append(values, reflect.ValueOf(spec.Value))
	}
	return argTypeNames(values)
}
