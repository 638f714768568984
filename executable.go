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
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExecutableKind distinguishes constructor-like and method-like executables.
type ExecutableKind int

// Executables are either constructors producing a bean directly,
// or factory methods declared on a factory type or a factory bean.
const (
	ConstructorKind ExecutableKind = iota
	FactoryMethodKind
)

// String returns a human-readable kind name.
func (k ExecutableKind) String() string {
	switch k {
	case ConstructorKind:
		return "constructor"
	case FactoryMethodKind:
		return "factory method"
	default:
		return fmt.Sprintf("ExecutableKind(%d)", int(k))
	}
}

// Executable describes a candidate for instantiation of a bean.
//
// The parameter list of an instance method excludes its receiver:
// the receiver is supplied separately on Invoke.
type Executable interface {
	// Name returns the executable name.
	Name() string

	// Kind returns the executable kind.
	Kind() ExecutableKind

	// DeclaringType returns the type declaring the executable.
	// For constructors it is the produced type.
	DeclaringType() reflect.Type

	// IsStatic returns true when no receiver is required.
	IsStatic() bool

	// IsExported returns true for publicly visible executables.
	IsExported() bool

	// NumIn returns the parameter count.
	NumIn() int

	// In returns the parameter type by index.
	In(index int) reflect.Type

	// ParamNames returns declared parameter names, or nil when unknown.
	ParamNames() []string

	// Out returns the produced type, or nil for void executables.
	Out() reflect.Type

	// Source returns the package path of the underlying function.
	Source() string

	// Invoke calls the executable with a receiver (for instance methods) and arguments.
	Invoke(receiver reflect.Value, args []reflect.Value) (reflect.Value, error)

	// String returns the executable signature.
	String() string
}

// ExecutableOpt configures an executable.
type ExecutableOpt func(*executable)

// WithParamNames declares parameter names of an executable.
// Go reflection does not expose names, so arguments matched by name
// require the names to be declared explicitly.
func WithParamNames(names ...string) ExecutableOpt {
	return func(e *executable) {
		e.paramNames = names
	}
}

// WithExported overrides the visibility derived from the function name.
func WithExported(exported bool) ExecutableOpt {
	return func(e *executable) {
		e.exported = exported
	}
}

// WithExecutableName overrides the name derived from the function.
func WithExecutableName(name string) ExecutableOpt {
	return func(e *executable) {
		e.name = name
	}
}

// NewConstructor returns a constructor executable for the function.
//
// The function may return the produced value, optionally followed by an error.
// Visibility is taken from the function name: package-level function literals
// are unexported, named functions follow Go export rules.
//
// Example:
//
//	gontainer.NewConstructor(NewServer, gontainer.WithParamNames("addr", "timeout"))
func NewConstructor(fn any, opts ...ExecutableOpt) Executable {
	fnValue := reflect.ValueOf(fn)
	e := &executable{kind: ConstructorKind, fn: fnValue}
	e.describeFunc(fnValue)
	for _, opt := range opts {
		opt(e)
	}
	e.load()
	if e.err == nil && e.out != nil {
		e.declaringType = e.out
	}
	return e
}

// NewStaticMethod returns a factory method declared by the holder type which
// requires no receiver.
func NewStaticMethod(holder reflect.Type, name string, fn any, opts ...ExecutableOpt) Executable {
	fnValue := reflect.ValueOf(fn)
	e := &executable{
		kind:          FactoryMethodKind,
		declaringType: holder,
		fn:            fnValue,
	}
	e.describeFunc(fnValue)
	e.name, e.exported = name, isExportedName(name)
	for _, opt := range opts {
		opt(e)
	}
	e.load()
	return e
}

// NewMethod returns an instance factory method of the holder type.
// The first parameter of the function receives the factory bean.
//
// Example:
//
//	gontainer.NewMethod(reflect.TypeOf(&Pool{}), "Conn", (*Pool).Conn)
func NewMethod(holder reflect.Type, name string, fn any, opts ...ExecutableOpt) Executable {
	fnValue := reflect.ValueOf(fn)
	e := &executable{
		kind:          FactoryMethodKind,
		declaringType: holder,
		fn:            fnValue,
		receiver:      true,
	}
	e.describeFunc(fnValue)
	e.name, e.exported = name, isExportedName(name)
	for _, opt := range opts {
		opt(e)
	}
	e.load()
	return e
}

// methodsOf enumerates exported instance methods of the type as factory methods.
func methodsOf(typ reflect.Type) []Executable {
	if typ == nil {
		return nil
	}
	result := make([]Executable, 0, typ.NumMethod())
	for index := 0; index < typ.NumMethod(); index++ {
		method := typ.Method(index)
		e := &executable{
			kind:          FactoryMethodKind,
			name:          method.Name,
			declaringType: typ,
			fn:            method.Func,
			receiver:      true,
			exported:      method.IsExported(),
			source:        typ.PkgPath(),
		}
		// Interface types have no method funcs to call.
		if !method.Func.IsValid() {
			continue
		}
		e.load()
		if e.err == nil {
			result = append(result, e)
		}
	}
	return result
}

// executable implements Executable over a reflected function.
type executable struct {
	name          string
	kind          ExecutableKind
	declaringType reflect.Type
	exported      bool
	source        string

	// Function value and its receiver flag.
	fn       reflect.Value
	receiver bool

	// Signature parts without the receiver.
	in         []reflect.Type
	out        reflect.Type
	outError   bool
	paramNames []string

	// Signature validation error.
	err error
}

// describeFunc derives name, source and visibility from the runtime function name.
func (e *executable) describeFunc(fnValue reflect.Value) {
	if fnValue.Kind() != reflect.Func || fnValue.IsNil() {
		return
	}
	funcPackage, funcName := splitFuncName(runtime.FuncForPC(fnValue.Pointer()).Name())
	e.source = funcPackage
	e.name = strings.TrimSuffix(funcName, "-fm")
	e.exported = isExportedName(e.name)
}

// load validates the function signature and indexes its types.
func (e *executable) load() {
	if !e.fn.IsValid() || e.fn.Kind() != reflect.Func || e.fn.IsNil() {
		e.err = fmt.Errorf("%w: executable '%s' is not a function", ErrInvalidDefinition, e.name)
		return
	}

	fnType := e.fn.Type()
	if fnType.IsVariadic() {
		e.err = fmt.Errorf("%w: variadic executable '%s' is not supported", ErrInvalidDefinition, e.name)
		return
	}

	// Instance methods receive the factory bean first.
	first := 0
	if e.receiver {
		if fnType.NumIn() == 0 {
			e.err = fmt.Errorf("%w: method '%s' has no receiver parameter", ErrInvalidDefinition, e.name)
			return
		}
		if e.declaringType != nil && !e.declaringType.AssignableTo(fnType.In(0)) {
			e.err = fmt.Errorf("%w: method '%s' receiver '%s' does not accept '%s'",
				ErrInvalidDefinition, e.name, fnType.In(0), e.declaringType)
			return
		}
		first = 1
	}

	e.in = make([]reflect.Type, 0, fnType.NumIn()-first)
	for index := first; index < fnType.NumIn(); index++ {
		e.in = append(e.in, fnType.In(index))
	}

	switch {
	case fnType.NumOut() == 0:
	case fnType.NumOut() == 1 && fnType.Out(0) == errorType:
		e.outError = true
	case fnType.NumOut() == 1:
		e.out = fnType.Out(0)
	case fnType.NumOut() == 2 && fnType.Out(1) == errorType:
		e.out = fnType.Out(0)
		e.outError = true
	default:
		e.err = fmt.Errorf("%w: executable '%s' must return a value and an optional error: %s",
			ErrInvalidDefinition, e.name, fnType)
		return
	}

	if e.paramNames != nil && len(e.paramNames) != len(e.in) {
		e.err = fmt.Errorf("%w: executable '%s' declares %d parameter names for %d parameters",
			ErrInvalidDefinition, e.name, len(e.paramNames), len(e.in))
	}
}

// Name implements Executable interface.
func (e *executable) Name() string { return e.name }

// Kind implements Executable interface.
func (e *executable) Kind() ExecutableKind { return e.kind }

// DeclaringType implements Executable interface.
func (e *executable) DeclaringType() reflect.Type { return e.declaringType }

// IsStatic implements Executable interface.
func (e *executable) IsStatic() bool { return !e.receiver }

// IsExported implements Executable interface.
func (e *executable) IsExported() bool { return e.exported }

// NumIn implements Executable interface.
func (e *executable) NumIn() int { return len(e.in) }

// In implements Executable interface.
func (e *executable) In(index int) reflect.Type { return e.in[index] }

// ParamNames implements Executable interface.
func (e *executable) ParamNames() []string { return e.paramNames }

// Out implements Executable interface.
func (e *executable) Out() reflect.Type { return e.out }

// Source implements Executable interface.
func (e *executable) Source() string { return e.source }

// Invoke implements Executable interface.
func (e *executable) Invoke(receiver reflect.Value, args []reflect.Value) (reflect.Value, error) {
	if e.err != nil {
		return reflect.Value{}, e.err
	}
	if len(args) != len(e.in) {
		return reflect.Value{}, fmt.Errorf("executable %s expects %d arguments, got %d", e, len(e.in), len(args))
	}

	callArgs := make([]reflect.Value, 0, len(args)+1)
	if e.receiver {
		receiver = unwrapInterface(receiver)
		if !receiver.IsValid() {
			return reflect.Value{}, fmt.Errorf("executable %s requires a receiver", e)
		}
		callArgs = append(callArgs, receiver)
	}
	for index, arg := range args {
		callArgs = append(callArgs, callableArg(arg, e.in[index]))
	}

	results := e.fn.Call(callArgs)
	if e.outError {
		errValue := results[len(results)-1]
		results = results[:len(results)-1]
		if !errValue.IsNil() {
			err, _ := errValue.Interface().(error)
			return reflect.Value{}, err
		}
	}
	if len(results) == 0 {
		return reflect.Value{}, nil
	}
	return results[0], nil
}

// String implements Executable interface.
func (e *executable) String() string {
	params := make([]string, 0, len(e.in))
	for _, typ := range e.in {
		params = append(params, typ.String())
	}
	signature := fmt.Sprintf("%s(%s)", e.name, strings.Join(params, ", "))
	if e.kind == FactoryMethodKind && e.declaringType != nil {
		signature = fmt.Sprintf("(%s).%s", e.declaringType, signature)
	}
	return signature
}

// loadError returns the executable validation error, if any.
func loadError(e Executable) error {
	if loaded, ok := e.(*executable); ok {
		return loaded.err
	}
	return nil
}

// paramTypes returns parameter types of the executable.
func paramTypes(e Executable) []reflect.Type {
	types := make([]reflect.Type, e.NumIn())
	for index := range types {
		types[index] = e.In(index)
	}
	return types
}

// sameParamTypes returns true when both executables declare identical parameter types.
func sameParamTypes(a, b Executable) bool {
	if a.NumIn() != b.NumIn() {
		return false
	}
	for index := 0; index < a.NumIn(); index++ {
		if a.In(index) != b.In(index) {
			return false
		}
	}
	return true
}

// paramName returns the declared parameter name or an empty string.
func paramName(e Executable, index int) string {
	if names := e.ParamNames(); names != nil {
		return names[index]
	}
	return ""
}

// callableArg adapts a resolved argument for reflect.Value.Call.
func callableArg(arg reflect.Value, typ reflect.Type) reflect.Value {
	arg = unwrapInterface(arg)
	if !arg.IsValid() {
		return reflect.Zero(typ)
	}
	return arg
}

// unwrapInterface returns the dynamic value held by an interface value.
func unwrapInterface(value reflect.Value) reflect.Value {
	if value.IsValid() && value.Kind() == reflect.Interface {
		if value.IsNil() {
			return reflect.Value{}
		}
		return value.Elem()
	}
	return value
}

// isExportedName returns true when the first name segment is exported.
func isExportedName(name string) bool {
	name = strings.TrimPrefix(name, "(")
	name = strings.TrimPrefix(name, "*")
	if index := strings.IndexAny(name, ".)"); index > 0 {
		name = name[:index]
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// splitFuncName splits specified func name to package and a name.
func splitFuncName(funcFullName string) (string, string) {
	// Split the full function name with package by dots.
	fullNameChunks := strings.Split(funcFullName, ".")
	if len(fullNameChunks) < 2 {
		return "", funcFullName
	}

	// Find the index of the last element containing "/".
	lastPackageChunkIndex := len(fullNameChunks) - 1
	for ; lastPackageChunkIndex >= 0; lastPackageChunkIndex-- {
		if strings.Contains(fullNameChunks[lastPackageChunkIndex], "/") {
			break
		}
	}

	// If the name contains no package path.
	if lastPackageChunkIndex == -1 {
		return fullNameChunks[0], strings.Join(fullNameChunks[1:], ".")
	}

	packageName := strings.Join(fullNameChunks[:lastPackageChunkIndex+1], ".")
	funcName := strings.Join(fullNameChunks[lastPackageChunkIndex+1:], ".")
	return packageName, funcName
}

// errorType contains reflection type for error variable.
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// errExecutableRequired is returned for definitions without executables.
var errExecutableRequired = errors.New("no constructor or factory method configured")
