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
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConstructor tests constructor description.
func TestNewConstructor(t *testing.T) {
	e := NewConstructor(NewWidget, WithParamNames("name", "id"))
	require.NoError(t, loadError(e))

	assert.Equal(t, "NewWidget", e.Name())
	assert.Equal(t, ConstructorKind, e.Kind())
	assert.Equal(t, widgetType, e.DeclaringType())
	assert.Equal(t, widgetType, e.Out())
	assert.Equal(t, "github.com/NVIDIA/gontainer/v3", e.Source())
	assert.Equal(t, []string{"name", "id"}, e.ParamNames())
	assert.Equal(t, "NewWidget(string, int)", e.String())
	assert.True(t, e.IsStatic())
	assert.True(t, e.IsExported())
	assert.Equal(t, 2, e.NumIn())
	assert.Equal(t, reflect.TypeOf(0), e.In(1))

	result, err := e.Invoke(reflect.Value{}, []reflect.Value{reflect.ValueOf("w"), reflect.ValueOf(7)})
	require.NoError(t, err)
	assert.Equal(t, &widget{name: "w", id: 7}, result.Interface())

	unexported := NewConstructor(newNamedWidget)
	assert.False(t, unexported.IsExported())
	assert.True(t, NewConstructor(newNamedWidget, WithExported(true)).IsExported())
}

// TestConstructorInvokeError tests errors returned by constructors.
func TestConstructorInvokeError(t *testing.T) {
	e := NewConstructor(func(fail bool) (*widget, error) {
		if fail {
			return nil, errors.New("failed")
		}
		return &widget{}, nil
	})

	_, err := e.Invoke(reflect.Value{}, []reflect.Value{reflect.ValueOf(true)})
	assert.EqualError(t, err, "failed")

	result, err := e.Invoke(reflect.Value{}, []reflect.Value{reflect.ValueOf(false)})
	require.NoError(t, err)
	assert.Equal(t, &widget{}, result.Interface())

	_, err = e.Invoke(reflect.Value{}, nil)
	assert.ErrorContains(t, err, "expects 1 arguments, got 0")
}

// TestExecutableLoad tests signature validation.
func TestExecutableLoad(t *testing.T) {
	tests := []struct {
		name string
		e    Executable
		err  string
	}{{
		name: "NotFunction",
		e:    NewConstructor(42),
		err:  "is not a function",
	}, {
		name: "Variadic",
		e:    NewConstructor(func(names ...string) *widget { return nil }),
		err:  "variadic executable",
	}, {
		name: "TooManyResults",
		e:    NewConstructor(func() (*widget, *widget) { return nil, nil }),
		err:  "must return a value and an optional error",
	}, {
		name: "ParamNames",
		e:    NewConstructor(NewWidget, WithParamNames("name")),
		err:  "declares 1 parameter names for 2 parameters",
	}, {
		name: "NoReceiver",
		e:    NewMethod(widgetFactoryType, "Build", func() *widget { return nil }),
		err:  "has no receiver parameter",
	}, {
		name: "WrongReceiver",
		e:    NewMethod(widgetFactoryType, "Build", func(w *widget) *widget { return w }),
		err:  "does not accept",
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loadError(tt.e)
			require.ErrorIs(t, err, ErrInvalidDefinition)
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

// TestMethodExecutables tests static and instance factory methods.
func TestMethodExecutables(t *testing.T) {
	static := NewStaticMethod(widgetFactoryType, "Default", func(name string) *widget {
		return &widget{name: name}
	})
	require.NoError(t, loadError(static))
	assert.Equal(t, FactoryMethodKind, static.Kind())
	assert.True(t, static.IsStatic())
	assert.True(t, static.IsExported())
	assert.Equal(t, "(*gontainer.widgetFactory).Default(string)", static.String())

	method := NewMethod(widgetFactoryType, "Build", (*widgetFactory).Build)
	require.NoError(t, loadError(method))
	assert.False(t, method.IsStatic())
	assert.Equal(t, 1, method.NumIn())
	assert.Equal(t, reflect.TypeOf(""), method.In(0))

	_, err := method.Invoke(reflect.Value{}, []reflect.Value{reflect.ValueOf("x")})
	assert.ErrorContains(t, err, "requires a receiver")

	result, err := method.Invoke(reflect.ValueOf(&widgetFactory{prefix: "p-"}), []reflect.Value{reflect.ValueOf("x")})
	require.NoError(t, err)
	assert.Equal(t, &widget{name: "p-x"}, result.Interface())

	hidden := NewMethod(widgetFactoryType, "build", (*widgetFactory).Build)
	assert.False(t, hidden.IsExported())
}

// TestMethodsOf tests enumeration of instance methods.
func TestMethodsOf(t *testing.T) {
	methods := methodsOf(widgetFactoryType)
	names := make([]string, 0, len(methods))
	for _, method := range methods {
		names = append(names, method.Name())
		assert.False(t, method.IsStatic())
		assert.Equal(t, widgetFactoryType, method.DeclaringType())
	}
	assert.Equal(t, []string{"Build", "BuildWithID", "Reset"}, names)
	assert.Nil(t, methodsOf(nil))
}

// TestInvokeNilArguments tests zero values for missing arguments.
func TestInvokeNilArguments(t *testing.T) {
	e := NewConstructor(func(w named) string {
		if w == nil {
			return "none"
		}
		return w.Name()
	})
	result, err := e.Invoke(reflect.Value{}, []reflect.Value{{}})
	require.NoError(t, err)
	assert.Equal(t, "none", result.Interface())
}

// TestIsExportedName tests visibility of executable names.
func TestIsExportedName(t *testing.T) {
	assert.True(t, isExportedName("NewServer"))
	assert.True(t, isExportedName("(*Server).Start"))
	assert.True(t, isExportedName("WithApp.func1"))
	assert.False(t, isExportedName("newServer"))
	assert.False(t, isExportedName("glob..func1"))
	assert.False(t, isExportedName(""))
}

// TestSplitFuncName tests splitting of function names.
func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name  string
		arg   string
		want1 string
		want2 string
	}{{
		name:  "SplitPublicPackage",
		arg:   "github.com/NVIDIA/gontainer/app.WithApp.func1",
		want1: "github.com/NVIDIA/gontainer/app",
		want2: "WithApp.func1",
	}, {
		name:  "SplitMainPackage",
		arg:   "main.main.func1",
		want1: "main",
		want2: "main.func1",
	}, {
		name:  "SplitMethod",
		arg:   "github.com/NVIDIA/gontainer/v3.(*widgetFactory).Build",
		want1: "github.com/NVIDIA/gontainer/v3",
		want2: "(*widgetFactory).Build",
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got1, got2 := splitFuncName(tt.arg)
			assert.Equal(t, tt.want1, got1)
			assert.Equal(t, tt.want2, got2)
		})
	}
}
