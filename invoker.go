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

// Invoker defines invoker interface.
type Invoker interface {
	// Invoke invokes specified function with autowired arguments.
	Invoke(ctx context.Context, fn any) (InvokeResult, error)
}

// invoker implements Invoker interface.
type invoker struct {
	resolver *resolver
}

// Invoke implements Invoker interface.
func (i *invoker) Invoke(ctx context.Context, fn any) (InvokeResult, error) {
	fnValue := reflect.ValueOf(fn)
	if fnValue.Kind() != reflect.Func || fnValue.IsNil() {
		return nil, fmt.Errorf("%w: expected a function, got %T", ErrInvalidTarget, fn)
	}
	if fnValue.Type().IsVariadic() {
		return nil, fmt.Errorf("%w: variadic function %T", ErrInvalidTarget, fn)
	}

	// Resolve function arguments.
	fnType := fnValue.Type()
	fnInArgs := make([]reflect.Value, 0, fnType.NumIn())
	for index := 0; index < fnType.NumIn(); index++ {
		arg, err := i.resolver.resolveParam(ctx, fnType.In(index))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve argument %d of %T: %w", index, fn, err)
		}
		fnInArgs = append(fnInArgs, arg)
	}

	// Convert function results.
	fnOutArgs := fnValue.Call(fnInArgs)
	result := &invokeResult{
		values: make([]any, 0, len(fnOutArgs)),
	}
	for index, fnOut := range fnOutArgs {
		// The last error-typed value is the function error.
		if index == len(fnOutArgs)-1 && fnOut.Type() == errorType {
			// Ignore failed cast of nil error.
			result.err, _ = fnOut.Interface().(error)
		}
		result.values = append(result.values, fnOut.Interface())
	}

	return result, nil
}

// InvokeResult provides access to the invocation result.
type InvokeResult interface {
	// Values returns a slice of function result values.
	Values() []any

	// Error returns function result error, if any.
	Error() error
}

// invokeResult implements result of the invocation.
type invokeResult struct {
	values []any
	err    error
}

// Values returns a slice of function result values.
func (r *invokeResult) Values() []any {
	return r.values
}

// Error returns function result error, if any.
func (r *invokeResult) Error() error {
	return r.err
}
