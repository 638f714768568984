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
	"sync"
)

// Events triggered by the container.
const (
	// ContainerStarting is triggered before creation of singletons.
	ContainerStarting = "ContainerStarting"

	// ContainerStarted is triggered after creation of singletons with the start error, if any.
	ContainerStarted = "ContainerStarted"

	// ContainerClosing is triggered before closing of beans.
	ContainerClosing = "ContainerClosing"

	// ContainerClosed is triggered after closing of beans with the close error, if any.
	ContainerClosed = "ContainerClosed"

	// DefinitionResolved is triggered with the definition name and the selected executable.
	DefinitionResolved = "DefinitionResolved"

	// ResolutionFailed is triggered with the definition name and the resolution error.
	ResolutionFailed = "ResolutionFailed"

	// BeanCreated is triggered with the definition name and the created bean.
	BeanCreated = "BeanCreated"

	// UnhandledPanic is triggered with the recovered value and the stack trace.
	UnhandledPanic = "UnhandledPanic"
)

// Events declares event broker interface.
// Every handler function could return an optional error.
type Events interface {
	// Subscribe registers event handler.
	Subscribe(name string, handlerFn any) error

	// Trigger triggers specified event handlers.
	Trigger(event Event) error
}

// newEvents returns an empty events broker.
func newEvents() *events {
	return &events{events: make(map[string][]handler)}
}

// events implements Events interface.
type events struct {
	mutex  sync.RWMutex
	events map[string][]handler
}

// Subscribe implements Events interface.
func (em *events) Subscribe(name string, handlerFn any) error {
	// Validate event handler type.
	handlerValue := reflect.ValueOf(handlerFn)
	if handlerValue.Kind() != reflect.Func {
		return fmt.Errorf("%w: %T", ErrInvalidHandler, handlerFn)
	}

	// Validate event handler output signature.
	handlerType := handlerValue.Type()
	switch {
	case handlerType.NumOut() == 0:
	case handlerType.NumOut() == 1 && handlerType.Out(0) == errorType:
	default:
		return fmt.Errorf("%w: unexpected signature %T", ErrInvalidHandler, handlerFn)
	}

	// Only the event arguments slice may be variadic.
	variadicArgs := handlerType.NumIn() == 1 && handlerType.In(0) == anySliceType
	if handlerType.IsVariadic() && !variadicArgs {
		return fmt.Errorf("%w: unexpected variadic signature %T", ErrInvalidHandler, handlerFn)
	}

	em.mutex.Lock()
	defer em.mutex.Unlock()

	// Register event handler function.
	if variadicArgs {
		// Register a function that accepts the event arguments slice.
		em.events[name] = append(em.events[name], func(event Event) error {
			args := []reflect.Value{reflect.ValueOf(event.Args())}
			if handlerType.IsVariadic() {
				return getCallOutError(handlerValue.CallSlice(args))
			}
			return getCallOutError(handlerValue.Call(args))
		})
	} else {
		// Register a function that accepts concrete argument types.
		em.events[name] = append(em.events[name], func(event Event) error {
			return em.callTypedHandler(handlerValue, event.Args())
		})
	}
	return nil
}

// Trigger implements Events interface.
func (em *events) Trigger(event Event) error {
	em.mutex.RLock()
	handlers := em.events[event.Name()]
	em.mutex.RUnlock()

	errs := make([]error, 0, len(handlers))
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// callTypedHandler invokes the handler with event arguments of matching types.
func (em *events) callTypedHandler(handler reflect.Value, args []any) error {
	handlerType := handler.Type()
	handlerInArgs := make([]reflect.Value, 0, handlerType.NumIn())

	// Fill handler args with provided event args.
	maxArgsLen := min(len(args), handlerType.NumIn())
	for index := 0; index < maxArgsLen; index++ {
		eventArgValue := reflect.ValueOf(args[index])
		handlerArgType := handlerType.In(index)

		// Convert untyped nil values to typed nils.
		if !eventArgValue.IsValid() && isNillableType(handlerArgType) {
			eventArgValue = reflect.Zero(handlerArgType)
		}

		if !eventArgValue.IsValid() {
			return fmt.Errorf("%w: argument '%s' could not receive type 'nil' (index %d)",
				ErrHandlerArgTypeMismatch, handlerArgType, index)
		}
		if !eventArgValue.Type().AssignableTo(handlerArgType) {
			return fmt.Errorf("%w: argument '%s' could not receive type '%s' (index %d)",
				ErrHandlerArgTypeMismatch, handlerArgType, eventArgValue.Type(), index)
		}

		handlerInArgs = append(handlerInArgs, eventArgValue)
	}

	// Fill handler args with default type values.
	for index := len(handlerInArgs); index < handlerType.NumIn(); index++ {
		handlerInArgs = append(handlerInArgs, reflect.Zero(handlerType.In(index)))
	}

	return getCallOutError(handler.Call(handlerInArgs))
}

// getCallOutError returns the handler error, if any.
func getCallOutError(out []reflect.Value) error {
	if len(out) == 1 {
		// Ignore failed cast of nil error.
		err, _ := out[0].Interface().(error)
		return err
	}
	return nil
}

// Event declares service container events.
type Event interface {
	// Name returns event name.
	Name() string

	// Args returns event arguments.
	Args() []any
}

// NewEvent returns new event instance.
func NewEvent(name string, args ...any) Event {
	return &event{name: name, args: args}
}

// handler declares event handler function.
type handler func(event Event) error

// event wraps name and arguments of an event.
type event struct {
	name string
	args []any
}

// Name returns event name.
func (e *event) Name() string { return e.name }

// Args returns event arguments.
func (e *event) Args() []any { return e.args }

// anySliceType contains reflection type for any slice variable.
var anySliceType = reflect.TypeOf((*[]any)(nil)).Elem()

// Errors of event handlers.
var (
	ErrInvalidHandler         = errors.New("invalid event handler")
	ErrHandlerArgTypeMismatch = errors.New("handler argument type mismatch")
)

// isNillableType returns true when the type has a nil value.
func isNillableType(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Interface, reflect.Func:
		return true
	default:
		return false
	}
}
