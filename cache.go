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

// resolutionRecord caches the executable selected for a definition.
// Exactly one of resolved and prepared is set.
type resolutionRecord struct {
	executable Executable
	resolved   []reflect.Value
	prepared   []preparedSlot
}

// cachedResolution returns the cached executable with either fully
// resolved arguments or a prepared template.
func (d *Definition) cachedResolution() (Executable, []reflect.Value, []preparedSlot) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.record == nil {
		return nil, nil, nil
	}
	if d.record.resolved != nil {
		return d.record.executable, append([]reflect.Value{}, d.record.resolved...), nil
	}
	return d.record.executable, nil, d.record.prepared
}

// storeResolved caches fully resolved arguments.
func (d *Definition) storeResolved(e Executable, args []reflect.Value) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.record = &resolutionRecord{
		executable: e,
		resolved:   append([]reflect.Value{}, args...),
	}
}

// storeCache caches the holder for the executable. Arguments are cached as fully
// resolved unless a slot must be resolved again; a fully resolved record is kept.
func (h *argumentsHolder) storeCache(def *Definition, e Executable) {
	def.mutex.Lock()
	defer def.mutex.Unlock()

	if h.resolveNecessary {
		if def.record != nil && def.record.resolved != nil {
			return
		}
		def.record = &resolutionRecord{
			executable: e,
			prepared:   append([]preparedSlot{}, h.prepared...),
		}
		return
	}
	def.record = &resolutionRecord{
		executable: e,
		resolved:   append([]reflect.Value{}, h.converted...),
	}
}

// resolvePreparedArguments reproduces arguments from a prepared template:
// autowired slots are looked up again, deferred slots are resolved again.
func (r *constructorResolver) resolvePreparedArguments(
	ctx context.Context,
	def *Definition,
	e Executable,
	prepared []preparedSlot,
) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(prepared))
	for index, slot := range prepared {
		switch slot.kind {
		case slotAutowire:
			dep, err := r.resolveAutowiredArgument(ctx, def, e, index, true)
			if err != nil {
				if isFatalResolutionError(err) {
					return nil, err
				}
				return nil, &UnsatisfiedDependencyError{
					Definition:     def.name,
					InjectionPoint: newInjectionPoint(def, e, index),
					Err:            err,
				}
			}
			for _, supplier := range dep.Names {
				r.graph.RegisterDependencyEdge(ctx, def.name, supplier)
			}
			args[index] = dep.Value
		case slotDeferred:
			value, err := r.values.ResolveValue(ctx, def, slot.spec.Value)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve argument %d of '%s': %w", index, def.name, err)
			}
			converted, err := r.converter.Convert(value, e.In(index))
			if err != nil {
				return nil, &UnsatisfiedDependencyError{
					Definition:     def.name,
					InjectionPoint: newInjectionPoint(def, e, index),
					Reason:         "could not convert argument value",
					Err:            err,
				}
			}
			args[index] = converted
		default:
			args[index] = slot.value
		}
	}
	return args, nil
}
