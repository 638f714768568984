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
	"runtime/debug"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel/trace"
)

// Option configures the container. Definitions are options as well.
type Option interface {
	apply(*config)
}

// config holds container configuration.
type config struct {
	definitions    []*Definition
	lenient        bool
	nonPublic      bool
	converter      TypeConverter
	tracerProvider trace.TracerProvider
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*config)

// apply implements Option interface.
func (f optionFunc) apply(cfg *config) { f(cfg) }

// apply registers the definition in the container.
func (d *Definition) apply(cfg *config) {
	cfg.definitions = append(cfg.definitions, d)
}

// WithDefinitions registers definitions in the container.
func WithDefinitions(definitions ...*Definition) Option {
	return optionFunc(func(cfg *config) {
		cfg.definitions = append(cfg.definitions, definitions...)
	})
}

// WithStrictResolution reports tied candidates as ambiguous by default.
func WithStrictResolution() Option {
	return WithDefaultLenientResolution(false)
}

// WithDefaultLenientResolution sets the resolution mode of definitions
// without their own setting. Lenient resolution is the default.
func WithDefaultLenientResolution(lenient bool) Option {
	return optionFunc(func(cfg *config) {
		cfg.lenient = lenient
	})
}

// WithDefaultNonPublicAccess sets the access policy for unexported executables
// of definitions without their own setting. Access is allowed by default.
func WithDefaultNonPublicAccess(allowed bool) Option {
	return optionFunc(func(cfg *config) {
		cfg.nonPublic = allowed
	})
}

// WithTypeConverter replaces the argument type converter.
func WithTypeConverter(converter TypeConverter) Option {
	return optionFunc(func(cfg *config) {
		cfg.converter = converter
	})
}

// WithTracerProvider sets the tracer provider of resolution spans.
// The global provider is used by default.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return optionFunc(func(cfg *config) {
		cfg.tracerProvider = provider
	})
}

// Names of definitions registered by the container itself.
const (
	EventsDefinition   = "gontainer.events"
	ResolverDefinition = "gontainer.resolver"
	InvokerDefinition  = "gontainer.invoker"
)

// New returns new container instance with a set of definitions and options.
func New(opts ...Option) (result Container, err error) {
	// Don't accept the context in args, since it mustn't be cancelled outside.
	// Beans are closed in dependency order before the context is cancelled.
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel context only when returning an error.
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	cfg := &config{lenient: true, nonPublic: true}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	if cfg.converter == nil {
		cfg.converter = NewTypeConverter()
	}

	c := &container{
		ctx:       ctx,
		cancel:    cancel,
		events:    newEvents(),
		registry:  newRegistry(cfg.nonPublic),
		graph:     newDependencyGraph(),
		converter: cfg.converter,
		tracer:    newTracer(cfg.tracerProvider),
	}
	c.resolver = newConstructorResolver(c, c, c.graph, cfg.converter, c.tracer, cfg.lenient, cfg.nonPublic)

	// Trigger panic events in service container.
	defer func() {
		if recovered := recover(); recovered != nil {
			_ = c.events.Trigger(NewEvent(UnhandledPanic, recovered, string(debug.Stack())))
			panic(recovered)
		}
	}()

	// Register container services.
	builtins := []*Definition{
		NewInstance[Events](EventsDefinition, c.events),
		NewInstance[Resolver](ResolverDefinition, &resolver{container: c}),
		NewInstance[Invoker](InvokerDefinition, &invoker{resolver: &resolver{container: c}}),
	}
	for _, def := range append(builtins, cfg.definitions...) {
		if err := c.registry.registerDefinition(def); err != nil {
			return nil, fmt.Errorf("failed to register definition: %w", err)
		}
	}

	// Make bean types available for type name conversions.
	if registrar, ok := cfg.converter.(interface{ RegisterType(reflect.Type) }); ok {
		for _, def := range c.registry.all() {
			if typ, ok := c.registry.typeOf(def.name); ok {
				registrar.RegisterType(typ)
			}
		}
	}

	return c, nil
}

// Container defines bean container interface.
type Container interface {
	// Start creates every singleton bean in the container.
	Start() error

	// Close closes the container with all beans in dependency order.
	// Blocks invocation until the container is closed.
	Close() error

	// Done is closing after closing of all beans.
	Done() <-chan struct{}

	// Events returns events broker instance.
	Events() Events

	// GetBean returns the bean of the named definition, creating it if needed.
	// Explicit arguments are passed to the executable directly.
	GetBean(ctx context.Context, name string, args ...any) (any, error)

	// Resolve selects the executable and arguments of the named definition.
	Resolve(ctx context.Context, name string, opts ...ResolveOpt) (*Resolution, error)

	// ResolveAheadOfTime selects the executable of the named definition
	// from declared types only, without creating any bean.
	ResolveAheadOfTime(ctx context.Context, name string) (Executable, error)

	// Resolver returns the type-directed lookup service.
	Resolver() Resolver

	// Invoker returns the function invoker service.
	Invoker() Invoker

	// Definitions returns registered definitions.
	Definitions() []*Definition

	// DependenciesOf returns names of beans the named bean depends on.
	DependenciesOf(name string) []string

	// DependentsOf returns names of beans depending on the named bean.
	DependentsOf(name string) []string
}

// container implements bean container.
type container struct {
	ctx    context.Context
	cancel context.CancelFunc
	closer sync.Once

	// Held by the creation chain of singletons.
	creationMutex sync.Mutex

	events    Events
	registry  *registry
	graph     *dependencyGraph
	resolver  *constructorResolver
	converter TypeConverter
	tracer    trace.Tracer
}

// Start creates every singleton bean in the container.
func (c *container) Start() error {
	// Trigger panic events in service container.
	defer func() {
		if recovered := recover(); recovered != nil {
			_ = c.events.Trigger(NewEvent(UnhandledPanic, recovered, string(debug.Stack())))
			panic(recovered)
		}
	}()

	// Trigger container starting event.
	if err := c.events.Trigger(NewEvent(ContainerStarting)); err != nil {
		return fmt.Errorf("failed to trigger container starting event: %w", err)
	}

	// Create all singletons in registration order.
	var startErr error
	for _, def := range c.registry.all() {
		if def.scope != ScopeSingleton {
			continue
		}
		if _, err := c.instantiate(c.ctx, def, nil); err != nil {
			startErr = fmt.Errorf("failed to create bean '%s': %w", def.name, err)
			break
		}
	}

	// Trigger container started event.
	if err := c.events.Trigger(NewEvent(ContainerStarted, startErr)); err != nil {
		return fmt.Errorf("failed to trigger container started event: %w", err)
	}

	// Handle container start error.
	if startErr != nil {
		return fmt.Errorf("failed to start beans in container: %w", startErr)
	}

	return nil
}

// Close closes the container with all beans in dependency order.
// Blocks invocation until the container is closed.
func (c *container) Close() (err error) {
	// Trigger panic events in service container.
	defer func() {
		if recovered := recover(); recovered != nil {
			_ = c.events.Trigger(NewEvent(UnhandledPanic, recovered, string(debug.Stack())))
			panic(recovered)
		}
	}()

	// Init container close once.
	c.closer.Do(func() {
		// Close container context independently of errors.
		// It will unblock all concurrent close calls.
		defer c.cancel()

		// Trigger container closing event.
		if triggerErr := c.events.Trigger(NewEvent(ContainerClosing)); triggerErr != nil {
			err = fmt.Errorf("failed to trigger container closing event: %w", triggerErr)
			return
		}

		// Close all created singletons.
		closeErr := c.closeBeans()

		// Trigger container closed event.
		if triggerErr := c.events.Trigger(NewEvent(ContainerClosed, closeErr)); triggerErr != nil {
			err = fmt.Errorf("failed to trigger container closed event: %w", triggerErr)
			return
		}

		if closeErr != nil {
			err = fmt.Errorf("failed to close beans: %w", closeErr)
		}
	})

	// Await container close, e.g. from concurrent close call.
	<-c.ctx.Done()

	return
}

// Done is closing after closing of all beans.
func (c *container) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Events returns events broker instance.
func (c *container) Events() Events {
	return c.events
}

// GetBean returns the bean of the named definition.
func (c *container) GetBean(ctx context.Context, name string, args ...any) (any, error) {
	value, err := c.getBean(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return valueInterface(value), nil
}

// Resolve selects the executable and arguments of the named definition.
func (c *container) Resolve(ctx context.Context, name string, opts ...ResolveOpt) (*Resolution, error) {
	def, ok := c.registry.definition(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return c.resolver.resolve(ctx, def, opts...)
}

// ResolveAheadOfTime selects the executable of the named definition from declared types.
func (c *container) ResolveAheadOfTime(ctx context.Context, name string) (Executable, error) {
	def, ok := c.registry.definition(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return c.resolver.resolveAheadOfTime(ctx, def)
}

// Resolver returns the type-directed lookup service.
func (c *container) Resolver() Resolver {
	return &resolver{container: c}
}

// Invoker returns the function invoker service.
func (c *container) Invoker() Invoker {
	return &invoker{resolver: &resolver{container: c}}
}

// Definitions returns registered definitions.
func (c *container) Definitions() []*Definition {
	return c.registry.all()
}

// DependenciesOf returns names of beans the named bean depends on.
func (c *container) DependenciesOf(name string) []string {
	return c.graph.DependenciesOf(name)
}

// DependentsOf returns names of beans depending on the named bean.
func (c *container) DependentsOf(name string) []string {
	return c.graph.DependentsOf(name)
}

// getBean returns the bean of the named definition.
func (c *container) getBean(ctx context.Context, name string, args []any) (reflect.Value, error) {
	def, ok := c.registry.definition(name)
	if !ok {
		return reflect.Value{}, &NotFoundError{Name: name}
	}
	return c.instantiate(ctx, def, args)
}

// instantiate returns the bean of the definition honouring its scope.
func (c *container) instantiate(ctx context.Context, def *Definition, args []any) (reflect.Value, error) {
	if def.scope != ScopeSingleton {
		return c.createBean(ctx, def, args)
	}

	if instance, ok := def.spawnedInstance(); ok {
		return instance, nil
	}

	// Fail fast instead of waiting for the creation lock.
	if _, err := withCreation(ctx, def.name); err != nil {
		return reflect.Value{}, err
	}

	// Singletons are created by one chain at a time, the chain re-enters the lock.
	if ctx.Value(creationLockKey{}) != c {
		c.creationMutex.Lock()
		defer c.creationMutex.Unlock()
		ctx = context.WithValue(ctx, creationLockKey{}, c)
	}

	if instance, ok := def.spawnedInstance(); ok {
		return instance, nil
	}
	value, err := c.createBean(ctx, def, args)
	if err != nil {
		return reflect.Value{}, err
	}
	def.storeInstance(value)
	c.registry.recordSpawned(def, value)
	return value, nil
}

// creationLockKey is the context key of the container whose creation lock the chain holds.
type creationLockKey struct{}

// createBean resolves and invokes the executable of the definition.
func (c *container) createBean(ctx context.Context, def *Definition, args []any) (_ reflect.Value, err error) {
	ctx, err = withCreation(ctx, def.name)
	if err != nil {
		return reflect.Value{}, err
	}

	ctx, span := startSpan(ctx, c.tracer, "gontainer.CreateBean", def)
	defer func() { endSpan(span, err) }()

	var opts []ResolveOpt
	if args != nil {
		opts = append(opts, WithExplicitArgs(args...))
	}
	resolution, err := c.resolver.resolve(ctx, def, opts...)
	if err != nil {
		c.trigger(ctx, NewEvent(ResolutionFailed, def.name, err))
		return reflect.Value{}, fmt.Errorf("failed to resolve '%s': %w", def.name, err)
	}
	c.trigger(ctx, NewEvent(DefinitionResolved, def.name, resolution.Executable))

	value, err := resolution.Instantiate()
	if err != nil {
		return reflect.Value{}, fmt.Errorf("failed to instantiate '%s' via %s: %w", def.name, resolution.Executable, err)
	}
	c.trigger(ctx, NewEvent(BeanCreated, def.name, valueInterface(value)))
	return value, nil
}

// closeBeans closes created singletons, consumers before their suppliers.
func (c *container) closeBeans() error {
	spawned := c.registry.spawned()
	names := make([]string, 0, len(spawned))
	instances := make(map[string]reflect.Value, len(spawned))
	for _, bean := range spawned {
		names = append(names, bean.def.name)
		instances[bean.def.name] = bean.instance
	}

	logger := slogcontext.FromCtx(c.ctx)
	order, err := c.graph.destructionOrder(names)
	if err != nil {
		logger.Warn("Falling back to reverse creation order", "error", err)
		order = order[:0]
		for index := len(names) - 1; index >= 0; index-- {
			order = append(order, names[index])
		}
	}

	var errs []error
	for _, name := range order {
		// Close beans implementing closer interface.
		if closer, ok := valueInterface(instances[name]).(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close bean", "definition", name, "error", err)
				errs = append(errs, fmt.Errorf("bean '%s': %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// trigger triggers the event and logs handler errors.
func (c *container) trigger(ctx context.Context, event Event) {
	if err := c.events.Trigger(event); err != nil {
		slogcontext.FromCtx(ctx).Warn("Event handler failed", "event", event.Name(), "error", err)
	}
}

// FindUnique implements DependencyLookup interface.
func (c *container) FindUnique(ctx context.Context, typ reflect.Type) (Dependency, error) {
	// Handle specified `context.Context` as a special case.
	if isContextInterface(typ) {
		return Dependency{Value: reflect.ValueOf(c.ctx)}, nil
	}

	// Optional dependencies tolerate missing providers.
	if elemType, ok := isOptionalType(typ); ok {
		dep, err := c.FindUnique(ctx, elemType)
		if errors.Is(err, ErrNotFound) {
			return Dependency{Value: reflect.New(typ).Elem()}, nil
		}
		if err != nil {
			return Dependency{}, err
		}
		return Dependency{Value: newOptionalValue(typ, dep.Value), Names: dep.Names}, nil
	}

	providers := c.registry.providersOf(typ)
	if len(providers) == 0 {
		if elemType, ok := isMultipleType(typ); ok {
			return c.findAll(ctx, typ, elemType, true)
		}
		switch {
		case typ.Kind() == reflect.Slice:
			return c.findAll(ctx, typ, typ.Elem(), false)
		case typ.Kind() == reflect.Map && typ.Key().Kind() == reflect.String:
			return c.findMap(ctx, typ)
		}
		return Dependency{}, &NotFoundError{Type: typ}
	}

	def, err := selectProvider(ctx, typ, providers)
	if err != nil {
		return Dependency{}, err
	}
	value, err := c.instantiate(ctx, def, nil)
	if err != nil {
		return Dependency{}, fmt.Errorf("failed to get bean '%s': %w", def.name, err)
	}
	return Dependency{Value: value, Names: []string{def.name}}, nil
}

// findAll collects every provider of the element type into a slice.
func (c *container) findAll(ctx context.Context, typ, elemType reflect.Type, tolerant bool) (Dependency, error) {
	providers := c.registry.providersOf(elemType)
	if len(providers) == 0 && !tolerant {
		return Dependency{}, &NotFoundError{Type: typ}
	}

	values := make([]reflect.Value, 0, len(providers))
	names := make([]string, 0, len(providers))
	for _, def := range providers {
		value, err := c.instantiate(ctx, def, nil)
		if err != nil {
			return Dependency{}, fmt.Errorf("failed to get bean '%s': %w", def.name, err)
		}
		values = append(values, value)
		names = append(names, def.name)
	}
	return Dependency{Value: newMultipleValue(typ, values), Names: names}, nil
}

// findMap collects every provider of the element type keyed by definition name.
func (c *container) findMap(ctx context.Context, typ reflect.Type) (Dependency, error) {
	providers := c.registry.providersOf(typ.Elem())
	if len(providers) == 0 {
		return Dependency{}, &NotFoundError{Type: typ}
	}

	result := reflect.MakeMapWithSize(typ, len(providers))
	names := make([]string, 0, len(providers))
	for _, def := range providers {
		value, err := c.instantiate(ctx, def, nil)
		if err != nil {
			return Dependency{}, fmt.Errorf("failed to get bean '%s': %w", def.name, err)
		}
		result.SetMapIndex(reflect.ValueOf(def.name).Convert(typ.Key()), callableArg(value, typ.Elem()))
		names = append(names, def.name)
	}
	return Dependency{Value: result, Names: names}, nil
}

// Bean implements DependencyLookup interface.
func (c *container) Bean(ctx context.Context, name string) (reflect.Value, error) {
	return c.getBean(ctx, name, nil)
}

// DefinitionType implements DependencyLookup interface.
func (c *container) DefinitionType(name string) (reflect.Type, bool) {
	return c.registry.typeOf(name)
}

// ResolveValue implements ValueResolver interface.
func (c *container) ResolveValue(ctx context.Context, def *Definition, value any) (any, error) {
	switch value := value.(type) {
	case Reference:
		bean, err := c.getBean(ctx, value.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve reference to bean '%s' while setting argument of '%s': %w",
				value.Name, def.name, err)
		}
		c.graph.RegisterDependencyEdge(ctx, def.name, value.Name)
		return valueInterface(bean), nil
	case *Definition:
		bean, err := c.createBean(ctx, value, nil)
		if err != nil {
			return nil, fmt.Errorf("cannot create inner bean '%s' while setting argument of '%s': %w",
				value.name, def.name, err)
		}
		return valueInterface(bean), nil
	default:
		return value, nil
	}
}

// IsDynamic implements ValueResolver interface.
func (c *container) IsDynamic(value any) bool {
	switch value := value.(type) {
	case *Definition:
		return true
	case Reference:
		def, ok := c.registry.definition(value.Name)
		return ok && def.scope == ScopePrototype
	default:
		return false
	}
}

// selectProvider returns the single provider of the type: the only one, the
// primary one, or the one named as the injected parameter.
func selectProvider(ctx context.Context, typ reflect.Type, providers []*Definition) (*Definition, error) {
	if len(providers) == 1 {
		return providers[0], nil
	}

	var primary []*Definition
	for _, def := range providers {
		if def.primary {
			primary = append(primary, def)
		}
	}
	if len(primary) == 1 {
		return primary[0], nil
	}

	if ip, ok := InjectionPointFromContext(ctx); ok && ip.Name != "" {
		for _, def := range providers {
			if def.name == ip.Name {
				return def, nil
			}
		}
	}

	names := make([]string, 0, len(providers))
	for _, def := range providers {
		names = append(names, def.name)
	}
	return nil, &AmbiguousMatchError{Type: typ, Providers: names}
}

// valueInterface returns the value as an interface, nil for invalid values.
func valueInterface(value reflect.Value) any {
	if !value.IsValid() {
		return nil
	}
	return value.Interface()
}
