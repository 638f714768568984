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

// Resolver defines type-directed bean lookup interface.
type Resolver interface {
	// Resolve sets the bean providing the pointed variable type.
	Resolve(ctx context.Context, varPtr any) error
}

// resolver implements Resolver interface.
type resolver struct {
	container *container
}

// Resolve implements Resolver interface.
func (r *resolver) Resolve(ctx context.Context, varPtr any) error {
	ptrValue := reflect.ValueOf(varPtr)
	if ptrValue.Kind() != reflect.Ptr || ptrValue.IsNil() {
		return fmt.Errorf("%w: expected a non-nil pointer, got %T", ErrInvalidTarget, varPtr)
	}

	value := ptrValue.Elem()
	dep, err := r.container.FindUnique(ctx, value.Type())
	if err != nil {
		return fmt.Errorf("failed to resolve '%s': %w", value.Type(), err)
	}
	value.Set(callableArg(dep.Value, value.Type()))
	return nil
}

// resolveParam returns the value of a function parameter,
// with empty collections for missing providers.
func (r *resolver) resolveParam(ctx context.Context, typ reflect.Type) (reflect.Value, error) {
	if isContextInterface(typ) {
		return reflect.ValueOf(ctx), nil
	}

	dep, err := r.container.FindUnique(ctx, typ)
	if errors.Is(err, ErrNotFound) {
		if empty, ok := emptyCollectionValue(typ); ok {
			return empty, nil
		}
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return callableArg(dep.Value, typ), nil
}

// ErrInvalidTarget is returned for unsupported resolution targets.
var ErrInvalidTarget = errors.New("invalid target")
