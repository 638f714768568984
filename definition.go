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
	"fmt"
	"reflect"
	"sync"
)

// DefinitionMetadata defines a key-value store for attaching metadata to a definition.
//
// Metadata can be used for annotations, tagging, grouping, versioning, or
// integration with external tools. It is populated using `WithMetadata()` option.
type DefinitionMetadata map[string]any

// AutowireMode configures autowiring of unmatched parameters.
type AutowireMode int

const (
	// AutowireConstructor supplies unmatched parameters by type lookup.
	AutowireConstructor AutowireMode = iota

	// AutowireNo requires every parameter to be matched by a declared argument.
	AutowireNo
)

// Scope configures instantiation of a definition.
type Scope int

const (
	// ScopeSingleton creates a single shared instance managed by the container.
	ScopeSingleton Scope = iota

	// ScopePrototype creates a new instance on every request.
	ScopePrototype
)

// String returns the scope name.
func (s Scope) String() string {
	if s == ScopePrototype {
		return "prototype"
	}
	return "singleton"
}

// Definition declares how the container instantiates a bean.
//
// A bean is created either by one of the declared constructors, or by a factory
// method: a static method of a factory type, or an instance method of another
// bean. The container selects the executable matching the declared arguments and
// caches the selection in the definition.
type Definition struct {
	// Definition name, unique in the container.
	name string

	// Definition metadata.
	metadata DefinitionMetadata

	// Declared bean type.
	beanType reflect.Type

	// Constructor candidates.
	constructors []Executable

	// Factory method configuration.
	factoryBean   string
	factoryType   reflect.Type
	factoryMethod string
	methods       []Executable

	// Declared argument values.
	args *ArgumentValues

	// Resolution settings.
	autowire  AutowireMode
	lenient   *bool
	nonPublic *bool
	primary   bool
	scope     Scope

	// Definition is nested into another one.
	inner bool

	// Definition is loaded.
	loaded bool

	// Resolution record guarded by the definition mutex.
	mutex  sync.Mutex
	record *resolutionRecord

	// Singleton instance state.
	instanceMutex   sync.Mutex
	instanceSpawned bool
	instance        reflect.Value
}

// DefinitionOpt defines a functional option for configuring a definition.
type DefinitionOpt func(*Definition)

// NewDefinition returns a new definition with the name and options.
//
// Example:
//
//	gontainer.NewDefinition("server",
//	    gontainer.WithConstructor(NewServer),
//	    gontainer.WithIndexedArg(1, "localhost:8080"),
//	)
func NewDefinition(name string, opts ...DefinitionOpt) *Definition {
	def := &Definition{
		name:     name,
		metadata: DefinitionMetadata{},
		args:     NewArgumentValues(),
	}
	for _, opt := range opts {
		opt(def)
	}
	return def
}

// NewInstance returns a definition always providing the given value.
//
// This is useful for registering constants, mocks, or externally constructed values.
func NewInstance[T any](name string, value T, opts ...DefinitionOpt) *Definition {
	constructor := NewConstructor(func() T { return value },
		WithExecutableName(fmt.Sprintf("Instance[%s]", reflect.TypeOf(&value).Elem())),
		WithExported(true),
	)
	return NewDefinition(name, append([]DefinitionOpt{WithConstructors(constructor)}, opts...)...)
}

// NewInner returns a nested definition used as an argument value.
// A nested definition yields a fresh instance on every resolution.
func NewInner(opts ...DefinitionOpt) *Definition {
	def := NewDefinition("", opts...)
	def.inner = true
	def.scope = ScopePrototype
	return def
}

// Name returns the definition name.
func (d *Definition) Name() string {
	return d.name
}

// Source returns the package of the first declared executable.
func (d *Definition) Source() string {
	for _, e := range append(append([]Executable{}, d.constructors...), d.methods...) {
		if e.Source() != "" {
			return e.Source()
		}
	}
	return ""
}

// Metadata returns associated definition metadata.
func (d *Definition) Metadata() DefinitionMetadata {
	return d.metadata
}

// Scope returns the definition scope.
func (d *Definition) Scope() Scope {
	return d.scope
}

// Args returns declared argument values.
func (d *Definition) Args() *ArgumentValues {
	return d.args
}

// FactoryMethod returns the factory method name, if configured.
func (d *Definition) FactoryMethod() string {
	return d.factoryMethod
}

// FactoryBean returns the factory bean name, if configured.
func (d *Definition) FactoryBean() string {
	return d.factoryBean
}

// BeanType returns the produced type when it is known without resolution.
// Unexported factory methods are considered unless the definition denies them.
func (d *Definition) BeanType() reflect.Type {
	return d.knownBeanType(true)
}

// knownBeanType returns the produced type using the fallback non-public access policy.
func (d *Definition) knownBeanType(nonPublic bool) reflect.Type {
	if d.beanType != nil {
		return d.beanType
	}
	for _, constructor := range d.constructors {
		if constructor.Out() != nil {
			return constructor.Out()
		}
	}
	if d.factoryMethod != "" && d.factoryBean == "" {
		if method := uniqueFactoryMethod(d, d.factoryType, true, d.isNonPublicAllowed(nonPublic)); method != nil {
			return method.Out()
		}
	}
	return nil
}

// spawnedInstance returns the singleton instance, if created.
func (d *Definition) spawnedInstance() (reflect.Value, bool) {
	d.instanceMutex.Lock()
	defer d.instanceMutex.Unlock()
	return d.instance, d.instanceSpawned
}

// storeInstance stores the created singleton instance.
func (d *Definition) storeInstance(instance reflect.Value) {
	d.instanceMutex.Lock()
	defer d.instanceMutex.Unlock()
	d.instance, d.instanceSpawned = instance, true
}

// ResetResolution drops the cached resolution of the definition.
func (d *Definition) ResetResolution() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record = nil
}

// load validates the definition and its nested definitions.
func (d *Definition) load() error {
	if d.loaded {
		return fmt.Errorf("%w: definition '%s' already loaded", ErrInvalidDefinition, d.name)
	}
	if d.inner && d.name == "" {
		d.name = fmt.Sprintf("(inner bean)#%p", d)
	}
	if d.name == "" {
		return &InvalidDefinitionError{Definition: d.name, Reason: "no name specified"}
	}
	if d.factoryMethod == "" && len(d.constructors) == 0 {
		return &InvalidDefinitionError{Definition: d.name, Reason: errExecutableRequired.Error()}
	}
	if d.factoryMethod != "" && d.factoryBean == "" && d.factoryType == nil {
		return &InvalidDefinitionError{Definition: d.name, Reason: "factory method requires a factory type or a factory bean"}
	}

	for _, e := range append(append([]Executable{}, d.constructors...), d.methods...) {
		if err := loadError(e); err != nil {
			return &InvalidDefinitionError{Definition: d.name, Reason: err.Error()}
		}
	}

	for _, spec := range append(d.args.indexedSpecs(), d.args.generic...) {
		if inner, ok := spec.Value.(*Definition); ok {
			inner.inner = true
			inner.scope = ScopePrototype
			if err := inner.load(); err != nil {
				return fmt.Errorf("nested definition of '%s': %w", d.name, err)
			}
		}
	}

	d.loaded = true
	return nil
}

// isLenient returns the effective lenient mode.
func (d *Definition) isLenient(fallback bool) bool {
	if d.lenient != nil {
		return *d.lenient
	}
	return fallback
}

// isNonPublicAllowed returns the effective non-public access policy.
func (d *Definition) isNonPublicAllowed(fallback bool) bool {
	if d.nonPublic != nil {
		return *d.nonPublic
	}
	return fallback
}

// WithConstructor adds a constructor function candidate.
func WithConstructor(fn any, opts ...ExecutableOpt) DefinitionOpt {
	return func(def *Definition) {
		def.constructors = append(def.constructors, NewConstructor(fn, opts...))
	}
}

// WithConstructors adds constructor candidates.
func WithConstructors(constructors ...Executable) DefinitionOpt {
	return func(def *Definition) {
		def.constructors = append(def.constructors, constructors...)
	}
}

// WithFactoryMethod sets the factory method name, and optionally declares
// method candidates of the factory type.
func WithFactoryMethod(name string, methods ...Executable) DefinitionOpt {
	return func(def *Definition) {
		def.factoryMethod = name
		def.methods = append(def.methods, methods...)
	}
}

// WithFactoryType sets the type declaring static factory methods.
func WithFactoryType(typ reflect.Type) DefinitionOpt {
	return func(def *Definition) {
		def.factoryType = typ
	}
}

// WithFactoryBean sets the bean providing instance factory methods.
func WithFactoryBean(name string) DefinitionOpt {
	return func(def *Definition) {
		def.factoryBean = name
	}
}

// WithIndexedArg declares the argument value of the parameter index.
func WithIndexedArg(index int, value any, opts ...ArgOpt) DefinitionOpt {
	return func(def *Definition) {
		def.args.AddIndexed(index, value, opts...)
	}
}

// WithArg declares an argument value matched by type or name.
func WithArg(value any, opts ...ArgOpt) DefinitionOpt {
	return func(def *Definition) {
		def.args.AddGeneric(value, opts...)
	}
}

// WithType declares the produced bean type.
func WithType(typ reflect.Type) DefinitionOpt {
	return func(def *Definition) {
		def.beanType = typ
	}
}

// WithAutowireMode configures autowiring of unmatched parameters.
func WithAutowireMode(mode AutowireMode) DefinitionOpt {
	return func(def *Definition) {
		def.autowire = mode
	}
}

// WithLenientResolution overrides the container resolution mode for the definition.
// In lenient mode tied candidates are resolved by the candidate order,
// in strict mode they are reported as ambiguous.
func WithLenientResolution(lenient bool) DefinitionOpt {
	return func(def *Definition) {
		def.lenient = &lenient
	}
}

// WithNonPublicAccess overrides the container access policy for unexported executables.
func WithNonPublicAccess(allowed bool) DefinitionOpt {
	return func(def *Definition) {
		def.nonPublic = &allowed
	}
}

// WithPrimary marks the definition as preferred among providers of the same type.
func WithPrimary() DefinitionOpt {
	return func(def *Definition) {
		def.primary = true
	}
}

// WithMetadata adds a custom metadata key-value pair to the definition.
//
// Example:
//
//	gontainer.NewDefinition(..., gontainer.WithMetadata("version", "v1.2"))
func WithMetadata(key string, value any) DefinitionOpt {
	return func(def *Definition) {
		def.metadata[key] = value
	}
}

// WithSingletonMode makes the container create a single shared instance.
//
// Instances are managed by the container lifecycle and will be closed by
// the container when it will be closed.
//
// This is the default behavior of definitions in the container.
func WithSingletonMode() DefinitionOpt {
	return func(def *Definition) {
		def.scope = ScopeSingleton
	}
}

// WithPrototypeMode makes the container create a new instance on every request.
//
// Instances are not managed by the container lifecycle and should be closed by user.
func WithPrototypeMode() DefinitionOpt {
	return func(def *Definition) {
		def.scope = ScopePrototype
	}
}
