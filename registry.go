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
	"sync"
)

// registry is the arena of definitions addressed by name.
// Every definition owns its resolution record and its lock.
type registry struct {
	mutex       sync.RWMutex
	definitions []*Definition
	byName      map[string]*Definition

	// Default non-public access of factory methods.
	nonPublic bool

	// Singletons in creation order.
	sequence []spawnedBean
}

// spawnedBean is a created singleton.
type spawnedBean struct {
	def      *Definition
	instance reflect.Value
}

// newRegistry returns an empty registry.
func newRegistry(nonPublic bool) *registry {
	return &registry{byName: map[string]*Definition{}, nonPublic: nonPublic}
}

// registerDefinition loads and registers the definition.
func (r *registry) registerDefinition(def *Definition) error {
	if err := def.load(); err != nil {
		return fmt.Errorf("definition load: %w", err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.byName[def.name]; ok {
		return &InvalidDefinitionError{Definition: def.name, Reason: "definition name duplicate"}
	}
	r.definitions = append(r.definitions, def)
	r.byName[def.name] = def
	return nil
}

// definition returns the definition by name.
func (r *registry) definition(name string) (*Definition, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// all returns definitions in registration order.
func (r *registry) all() []*Definition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]*Definition{}, r.definitions...)
}

// typeOf returns the bean type of the named definition.
func (r *registry) typeOf(name string) (reflect.Type, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	def, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	typ := r.beanType(def, 0)
	return typ, typ != nil
}

// providersOf returns definitions whose bean type provides the type.
//
// A provider either declares exactly the requested type, or the requested
// type is a non-empty interface implemented by the bean type.
func (r *registry) providersOf(typ reflect.Type) []*Definition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var providers []*Definition
	for _, def := range r.definitions {
		beanType := r.beanType(def, 0)
		if beanType == nil {
			continue
		}
		if beanType == typ || (isNonEmptyInterface(typ) && beanType.Implements(typ)) {
			providers = append(providers, def)
		}
	}
	return providers
}

// beanType returns the bean type of a definition, following instance factory
// methods to the factory bean type. The caller holds the read lock.
func (r *registry) beanType(def *Definition, depth int) reflect.Type {
	typ := def.knownBeanType(r.nonPublic)
	if typ != nil || def.factoryBean == "" || depth > len(r.definitions) {
		return typ
	}
	factory, ok := r.byName[def.factoryBean]
	if !ok || factory == def {
		return nil
	}
	factoryType := r.beanType(factory, depth+1)
	if factoryType == nil {
		return nil
	}
	method := uniqueFactoryMethod(def, factoryType, false, def.isNonPublicAllowed(r.nonPublic))
	if method == nil {
		return nil
	}
	return method.Out()
}

// recordSpawned appends a created singleton to the sequence.
func (r *registry) recordSpawned(def *Definition, instance reflect.Value) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sequence = append(r.sequence, spawnedBean{def: def, instance: instance})
}

// spawned returns created singletons in creation order.
func (r *registry) spawned() []spawnedBean {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]spawnedBean{}, r.sequence...)
}

// isNonEmptyInterface returns true when argument is an interface with methods.
func isNonEmptyInterface(typ reflect.Type) bool {
	return typ.Kind() == reflect.Interface && typ.NumMethod() > 0
}

// isContextInterface returns true when argument is a context interface.
func isContextInterface(typ reflect.Type) bool {
	return typ.Kind() == reflect.Interface && contextType.Implements(typ) && typ.Implements(contextType)
}

// contextType contains reflection type for context variable.
var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
