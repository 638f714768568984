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
)

// InjectionPoint describes the parameter being autowired.
//
// A bean executable declaring an InjectionPoint (or *InjectionPoint) parameter
// receives the injection point of the consumer requesting it.
type InjectionPoint struct {
	// Definition is the name of the consuming definition.
	Definition string

	// Executable is the consuming executable.
	Executable Executable

	// Index is the parameter index.
	Index int

	// Type is the parameter type.
	Type reflect.Type

	// Name is the declared parameter name, if known.
	Name string
}

// String returns the injection point description.
func (ip *InjectionPoint) String() string {
	if ip.Name != "" {
		return fmt.Sprintf("parameter %d ('%s' %s) of %s", ip.Index, ip.Name, ip.Type, ip.Executable)
	}
	return fmt.Sprintf("parameter %d (%s) of %s", ip.Index, ip.Type, ip.Executable)
}

// newInjectionPoint returns the injection point of a parameter.
func newInjectionPoint(def *Definition, e Executable, index int) *InjectionPoint {
	return &InjectionPoint{
		Definition: def.name,
		Executable: e,
		Index:      index,
		Type:       e.In(index),
		Name:       paramName(e, index),
	}
}

// injectionPointKey is the context key of the current injection point.
type injectionPointKey struct{}

// withInjectionPoint returns a context carrying the injection point.
// The caller's context keeps its own injection point.
func withInjectionPoint(ctx context.Context, ip *InjectionPoint) context.Context {
	return context.WithValue(ctx, injectionPointKey{}, ip)
}

// InjectionPointFromContext returns the current injection point, if any.
func InjectionPointFromContext(ctx context.Context) (*InjectionPoint, bool) {
	ip, ok := ctx.Value(injectionPointKey{}).(*InjectionPoint)
	return ip, ok && ip != nil
}

// isInjectionPointType returns true for InjectionPoint parameters.
func isInjectionPointType(typ reflect.Type) bool {
	return typ == injectionPointType || typ == injectionPointPtrType
}

// injectionPointValue returns the injection point as a value of the type.
func injectionPointValue(typ reflect.Type, ip *InjectionPoint) reflect.Value {
	if typ == injectionPointPtrType {
		return reflect.ValueOf(ip)
	}
	return reflect.ValueOf(*ip)
}

// creationChainKey is the context key of definitions being created.
type creationChainKey struct{}

// withCreation returns a context marking the definition as being created.
// It fails when the definition is already being created in this chain.
func withCreation(ctx context.Context, name string) (context.Context, error) {
	chain, _ := ctx.Value(creationChainKey{}).([]string)
	for _, created := range chain {
		if created == name {
			return ctx, fmt.Errorf("%w: requested definition '%s' is currently in creation: %v",
				ErrCircularDependency, name, append(append([]string{}, chain...), name))
		}
	}
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, creationChainKey{}, append(next, name)), nil
}

// Types of injection point parameters.
var (
	injectionPointType    = reflect.TypeOf(InjectionPoint{})
	injectionPointPtrType = reflect.TypeOf(&InjectionPoint{})
)
