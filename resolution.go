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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dependency is a bean instance supplied by type lookup.
type Dependency struct {
	// Value is the supplied instance.
	Value reflect.Value

	// Names are the definitions supplying the instance.
	Names []string
}

// DependencyLookup supplies beans to the resolver.
type DependencyLookup interface {
	// FindUnique returns the single instance of the type.
	// It fails with ErrNotFound or ErrAmbiguousMatch.
	FindUnique(ctx context.Context, typ reflect.Type) (Dependency, error)

	// Bean returns the bean instance by definition name.
	Bean(ctx context.Context, name string) (reflect.Value, error)

	// DefinitionType returns the bean type of a named definition, if known.
	DefinitionType(name string) (reflect.Type, bool)
}

// DependencyGraph records dependencies between beans.
type DependencyGraph interface {
	// RegisterDependencyEdge records that the consumer depends on the supplier.
	RegisterDependencyEdge(ctx context.Context, consumer, supplier string)
}

// Resolution is the outcome of resolving a definition.
type Resolution struct {
	// Definition is the resolved definition name.
	Definition string

	// Executable is the selected executable.
	Executable Executable

	// Arguments are the arguments for the executable.
	Arguments []reflect.Value

	// Receiver is the factory bean for instance factory methods.
	Receiver reflect.Value
}

// Instantiate invokes the resolved executable.
func (r *Resolution) Instantiate() (reflect.Value, error) {
	return r.Executable.Invoke(r.Receiver, r.Arguments)
}

// ResolveOpt configures a single resolution.
type ResolveOpt func(*resolveRequest)

// WithExplicitArgs passes arguments directly to the executable.
// Explicit resolutions are never cached.
func WithExplicitArgs(args ...any) ResolveOpt {
	return func(req *resolveRequest) {
		req.explicitArgs = append([]any{}, args...)
	}
}

// WithCandidates overrides the declared candidates of a definition.
// Overridden candidates are always autowired.
func WithCandidates(candidates ...Executable) ResolveOpt {
	return func(req *resolveRequest) {
		req.chosen = append([]Executable{}, candidates...)
	}
}

// resolveRequest holds resolution options.
type resolveRequest struct {
	explicitArgs []any
	chosen       []Executable
}

// factoryTarget describes where candidates are declared.
type factoryTarget struct {
	typ      reflect.Type
	static   bool
	receiver reflect.Value
}

// constructorResolver selects executables and arguments for definitions.
type constructorResolver struct {
	lookup    DependencyLookup
	values    ValueResolver
	graph     DependencyGraph
	converter TypeConverter
	matcher   overloadMatcher
	tracer    trace.Tracer

	// Defaults of definitions without overrides.
	lenient   bool
	nonPublic bool
}

// newConstructorResolver returns a resolver with the weighted matcher.
func newConstructorResolver(
	lookup DependencyLookup,
	values ValueResolver,
	graph DependencyGraph,
	converter TypeConverter,
	tracer trace.Tracer,
	lenient bool,
	nonPublic bool,
) *constructorResolver {
	resolver := &constructorResolver{
		lookup:    lookup,
		values:    values,
		graph:     graph,
		converter: converter,
		tracer:    tracer,
		lenient:   lenient,
		nonPublic: nonPublic,
	}
	resolver.matcher = &weightedMatcher{resolver: resolver}
	return resolver
}

// resolve selects the executable and arguments of the definition.
func (r *constructorResolver) resolve(ctx context.Context, def *Definition, opts ...ResolveOpt) (_ *Resolution, err error) {
	req := resolveRequest{}
	for _, opt := range opts {
		opt(&req)
	}

	ctx, span := startSpan(ctx, r.tracer, "gontainer.Resolve", def)
	defer func() { endSpan(span, err) }()
	logger := slogcontext.FromCtx(ctx)

	target, err := r.factoryTarget(ctx, def)
	if err != nil {
		return nil, err
	}

	// Explicit arguments bypass the cache.
	var explicitArgs []reflect.Value
	if req.explicitArgs != nil {
		explicitArgs = make([]reflect.Value, 0, len(req.explicitArgs))
		for _, arg := range req.explicitArgs {
			explicitArgs = append(explicitArgs, reflect.ValueOf(arg))
		}
	} else if e, args, prepared := def.cachedResolution(); e != nil {
		if args != nil {
			span.SetAttributes(attribute.String("gontainer.path", "fast"))
			logger.Debug("Using cached resolution", "definition", def.name, "executable", e.String())
			return r.newResolution(def, e, args, target), nil
		}
		args, err := r.resolvePreparedArguments(ctx, def, e, prepared)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.String("gontainer.path", "warm"))
		logger.Debug("Using prepared resolution", "definition", def.name, "executable", e.String())
		return r.newResolution(def, e, args, target), nil
	}

	candidates := collectCandidates(def, candidateQuery{
		chosen:      req.chosen,
		factoryType: target.typ,
		static:      target.static,
		nonPublic:   def.isNonPublicAllowed(r.nonPublic),
	})
	if len(candidates) == 0 {
		return nil, &NoMatchingExecutableError{
			Definition: def.name,
			Target:     describeTarget(def, target),
			Reason:     "no candidates found",
		}
	}

	// A single zero-parameter candidate needs no matching.
	if len(candidates) == 1 && explicitArgs == nil && def.args.IsEmpty() && candidates[0].NumIn() == 0 {
		if err := checkFactoryResult(def, candidates[0]); err != nil {
			return nil, err
		}
		def.storeResolved(candidates[0], []reflect.Value{})
		span.SetAttributes(attribute.String("gontainer.path", "zero-arg"))
		logger.Debug("Resolved zero-argument executable", "definition", def.name, "executable", candidates[0].String())
		return r.newResolution(def, candidates[0], nil, target), nil
	}

	request := &matchRequest{
		def:        def,
		target:     target,
		candidates: candidates,
		autowiring: req.chosen != nil || def.autowire == AutowireConstructor,
		lenient:    def.isLenient(r.lenient),
	}
	if explicitArgs != nil {
		request.explicitArgs = explicitArgs
		request.minArgs = len(explicitArgs)
	} else {
		request.resolved, request.minArgs, err = r.resolveArgumentValues(ctx, def)
		if err != nil {
			return nil, err
		}
	}

	outcome, err := r.matcher.match(ctx, request)
	if err != nil {
		return nil, err
	}
	if err := checkFactoryResult(def, outcome.executable); err != nil {
		return nil, err
	}
	if explicitArgs == nil {
		outcome.holder.storeCache(def, outcome.executable)
	}

	span.SetAttributes(
		attribute.String("gontainer.path", "cold"),
		attribute.String("gontainer.executable", outcome.executable.String()),
		attribute.Int("gontainer.weight", outcome.weight),
	)
	logger.Debug("Resolved executable",
		"definition", def.name,
		"executable", outcome.executable.String(),
		"weight", outcome.weight,
		"candidates", len(candidates),
	)
	return r.newResolution(def, outcome.executable, outcome.holder.converted, target), nil
}

// factoryTarget returns the factory type and receiver of the definition.
func (r *constructorResolver) factoryTarget(ctx context.Context, def *Definition) (factoryTarget, error) {
	switch {
	case def.factoryMethod == "":
		return factoryTarget{static: true}, nil
	case def.factoryBean == "":
		return factoryTarget{typ: def.factoryType, static: true}, nil
	case def.factoryBean == def.name:
		return factoryTarget{}, &InvalidDefinitionError{
			Definition: def.name,
			Reason:     "factory bean reference points back to the same definition",
		}
	}

	receiver, err := r.lookup.Bean(ctx, def.factoryBean)
	if err != nil {
		return factoryTarget{}, fmt.Errorf("failed to get factory bean '%s' of '%s': %w", def.factoryBean, def.name, err)
	}
	receiver = unwrapInterface(receiver)
	if !receiver.IsValid() {
		return factoryTarget{}, &InvalidDefinitionError{
			Definition: def.name,
			Reason:     fmt.Sprintf("factory bean '%s' is nil", def.factoryBean),
		}
	}
	r.graph.RegisterDependencyEdge(ctx, def.name, def.factoryBean)
	return factoryTarget{typ: receiver.Type(), receiver: receiver}, nil
}

// newResolution returns a resolution owning a copy of the arguments.
func (r *constructorResolver) newResolution(def *Definition, e Executable, args []reflect.Value, target factoryTarget) *Resolution {
	arguments := make([]reflect.Value, e.NumIn())
	for index := range arguments {
		var arg reflect.Value
		if index < len(args) {
			arg = args[index]
		}
		arguments[index] = callableArg(arg, e.In(index))
	}
	return &Resolution{
		Definition: def.name,
		Executable: e,
		Arguments:  arguments,
		Receiver:   target.receiver,
	}
}

// checkFactoryResult rejects void factory methods.
func checkFactoryResult(def *Definition, e Executable) error {
	if def.factoryMethod != "" && e.Out() == nil {
		return &InvalidDefinitionError{
			Definition: def.name,
			Reason:     fmt.Sprintf("factory method %s returns nothing", e),
		}
	}
	return nil
}

// describeTarget describes the searched executables for diagnostics.
func describeTarget(def *Definition, target factoryTarget) string {
	if def.factoryMethod == "" {
		if typ := def.BeanType(); typ != nil {
			return fmt.Sprintf("constructors of '%s'", typ)
		}
		return "constructors"
	}
	if target.static {
		return fmt.Sprintf("static factory method '%s' of '%s'", def.factoryMethod, target.typ)
	}
	return fmt.Sprintf("factory method '%s' of bean '%s' (%s)", def.factoryMethod, def.factoryBean, target.typ)
}
