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
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type named interface{ Name() string }

type identified interface{ ID() int }

// widget implements both named and identified.
type widget struct {
	name string
	id   int
}

func (w *widget) Name() string { return w.name }

func (w *widget) ID() int { return w.id }

// widgetFactory produces widgets via instance methods.
type widgetFactory struct {
	prefix string
}

func (f *widgetFactory) Build(name string) *widget {
	return &widget{name: f.prefix + name}
}

func (f *widgetFactory) BuildWithID(name string, id int) *widget {
	return &widget{name: f.prefix + name, id: id}
}

func (f *widgetFactory) Reset() {}

// NewWidget is an exported constructor.
func NewWidget(name string, id int) *widget {
	return &widget{name: name, id: id}
}

// newNamedWidget is an unexported constructor.
func newNamedWidget(name string) *widget {
	return &widget{name: name}
}

var (
	widgetType        = reflect.TypeOf(&widget{})
	widgetFactoryType = reflect.TypeOf(&widgetFactory{})
)

// fakeLookup supplies beans by type and name.
type fakeLookup struct {
	mutex  sync.Mutex
	byType map[reflect.Type][]any
	byName map[string]any
	calls  atomic.Int32
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{byType: map[reflect.Type][]any{}, byName: map[string]any{}}
}

func (l *fakeLookup) add(name string, bean any) *fakeLookup {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.byName[name] = bean
	l.byType[reflect.TypeOf(bean)] = append(l.byType[reflect.TypeOf(bean)], bean)
	return l
}

func (l *fakeLookup) FindUnique(_ context.Context, typ reflect.Type) (Dependency, error) {
	l.calls.Add(1)
	l.mutex.Lock()
	defer l.mutex.Unlock()

	var found []any
	var names []string
	for name, bean := range l.byName {
		if reflect.TypeOf(bean).AssignableTo(typ) {
			found = append(found, bean)
			names = append(names, name)
		}
	}
	switch len(found) {
	case 0:
		return Dependency{}, &NotFoundError{Type: typ}
	case 1:
		return Dependency{Value: reflect.ValueOf(found[0]), Names: names}, nil
	default:
		return Dependency{}, &AmbiguousMatchError{Type: typ, Providers: names}
	}
}

func (l *fakeLookup) Bean(_ context.Context, name string) (reflect.Value, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	bean, ok := l.byName[name]
	if !ok {
		return reflect.Value{}, &NotFoundError{Name: name}
	}
	return reflect.ValueOf(bean), nil
}

func (l *fakeLookup) DefinitionType(name string) (reflect.Type, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	bean, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return reflect.TypeOf(bean), true
}

// freshValue resolves to the next counter value on every resolution.
type freshValue struct {
	counter *atomic.Int32
}

// fakeValues resolves references via the lookup and counts resolutions.
type fakeValues struct {
	lookup *fakeLookup
	calls  atomic.Int32
}

func (v *fakeValues) ResolveValue(ctx context.Context, _ *Definition, value any) (any, error) {
	v.calls.Add(1)
	switch value := value.(type) {
	case Reference:
		bean, err := v.lookup.Bean(ctx, value.Name)
		if err != nil {
			return nil, err
		}
		return bean.Interface(), nil
	case freshValue:
		return int(value.counter.Add(1)), nil
	default:
		return value, nil
	}
}

func (v *fakeValues) IsDynamic(value any) bool {
	_, ok := value.(freshValue)
	return ok
}

// newTestResolver returns a resolver over the fake lookup.
func newTestResolver(lookup *fakeLookup, lenient bool) (*constructorResolver, *fakeValues) {
	values := &fakeValues{lookup: lookup}
	resolver := newConstructorResolver(lookup, values, newDependencyGraph(), NewTypeConverter(), newTracer(nil), lenient, true)
	return resolver, values
}

// loadDefinition validates the definition for direct resolution.
func loadDefinition(t *testing.T, def *Definition) *Definition {
	t.Helper()
	require.NoError(t, def.load())
	return def
}
