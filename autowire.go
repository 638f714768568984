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
	"errors"
	"fmt"
	"reflect"
)

// resolveAutowiredArgument supplies a parameter by type lookup.
//
// InjectionPoint parameters receive the injection point of the current lookup.
// Ambiguous providers always fail. Missing providers of a slice, array or map
// parameter yield an empty value when fallback is allowed.
func (r *constructorResolver) resolveAutowiredArgument(
	ctx context.Context,
	def *Definition,
	e Executable,
	index int,
	fallback bool,
) (Dependency, error) {
	typ := e.In(index)
	if isInjectionPointType(typ) {
		ip, ok := InjectionPointFromContext(ctx)
		if !ok {
			return Dependency{}, fmt.Errorf("%w: parameter %d of %s in '%s'", ErrNoInjectionPoint, index, e, def.name)
		}
		return Dependency{Value: injectionPointValue(typ, ip)}, nil
	}

	ip := newInjectionPoint(def, e, index)
	dep, err := r.lookup.FindUnique(withInjectionPoint(ctx, ip), typ)
	switch {
	case err == nil:
		return dep, nil
	case errors.Is(err, ErrAmbiguousMatch):
		return Dependency{}, err
	case fallback && errors.Is(err, ErrNotFound):
		if empty, ok := emptyCollectionValue(typ); ok {
			return Dependency{Value: empty}, nil
		}
	}
	return Dependency{}, err
}

// emptyCollectionValue returns an empty value of a collection-shaped type.
// Arrays have a fixed length and are never empty.
func emptyCollectionValue(typ reflect.Type) (reflect.Value, bool) {
	switch typ.Kind() {
	case reflect.Slice:
		return reflect.MakeSlice(typ, 0, 0), true
	case reflect.Map:
		return reflect.MakeMap(typ), true
	default:
		return reflect.Value{}, false
	}
}
