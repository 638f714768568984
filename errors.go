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
	"strings"
)

// Sentinel errors of the resolution taxonomy.
// Every typed error below reports itself as one of them via `errors.Is`.
var (
	// ErrUnsatisfiedDependency is reported when a candidate could not be supplied with arguments.
	ErrUnsatisfiedDependency = errors.New("unsatisfied dependency")

	// ErrAmbiguousMatch is reported when candidates or dependency providers tie.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrNoMatchingExecutable is reported when no candidate satisfies arity and type constraints.
	ErrNoMatchingExecutable = errors.New("no matching executable")

	// ErrInvalidDefinition is reported for structural definition problems.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrTypeConversion is reported when a value cannot be coerced to a parameter type.
	ErrTypeConversion = errors.New("type conversion failure")

	// ErrNotFound is reported when no definition provides a requested type or name.
	ErrNotFound = errors.New("dependency not found")

	// ErrNoInjectionPoint is reported when an injection point parameter is
	// resolved outside of a dependency lookup.
	ErrNoInjectionPoint = errors.New("no current injection point available")

	// ErrCircularDependency is reported when a definition is requested while it is being created.
	ErrCircularDependency = errors.New("circular dependency")
)

// UnsatisfiedDependencyError rejects a single candidate.
// It is surfaced only when every candidate of a definition failed.
type UnsatisfiedDependencyError struct {
	// Definition is the name of the definition being resolved.
	Definition string

	// InjectionPoint is the parameter which could not be satisfied, if known.
	InjectionPoint *InjectionPoint

	// Reason describes the failure.
	Reason string

	// Err is the underlying lookup or conversion error.
	Err error

	// Suppressed holds causes of candidates rejected before this one.
	Suppressed []error
}

// Error implements error interface.
func (e *UnsatisfiedDependencyError) Error() string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("error creating '%s'", e.Definition))
	if e.InjectionPoint != nil {
		builder.WriteString(fmt.Sprintf(": unsatisfied dependency expressed through %s", e.InjectionPoint))
	}
	if e.Reason != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Reason)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	if len(e.Suppressed) > 0 {
		builder.WriteString(fmt.Sprintf(" (%d more rejected candidates)", len(e.Suppressed)))
	}
	return builder.String()
}

// Unwrap returns the underlying error.
func (e *UnsatisfiedDependencyError) Unwrap() error { return e.Err }

// Is reports the sentinel of the error.
func (e *UnsatisfiedDependencyError) Is(target error) bool { return target == ErrUnsatisfiedDependency }

// AmbiguousMatchError reports tied candidates of a definition in strict mode,
// or several equally eligible providers of a dependency type.
type AmbiguousMatchError struct {
	// Definition is the definition being resolved, empty for provider ambiguity.
	Definition string

	// Candidates are the tied executables.
	Candidates []Executable

	// Type is the requested dependency type, nil for candidate ambiguity.
	Type reflect.Type

	// Providers are the names of definitions providing Type.
	Providers []string
}

// Error implements error interface.
func (e *AmbiguousMatchError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("expected single matching definition for type '%s' but found %d: %s",
			e.Type, len(e.Providers), strings.Join(e.Providers, ", "))
	}
	names := make([]string, 0, len(e.Candidates))
	for _, candidate := range e.Candidates {
		names = append(names, candidate.String())
	}
	return fmt.Sprintf("ambiguous executables found in definition '%s' "+
		"(hint: specify index/type/name arguments for simple parameters to avoid type ambiguities): %s",
		e.Definition, strings.Join(names, ", "))
}

// Is reports the sentinel of the error.
func (e *AmbiguousMatchError) Is(target error) bool { return target == ErrAmbiguousMatch }

// NoMatchingExecutableError reports that no candidate satisfied arity and type constraints.
type NoMatchingExecutableError struct {
	// Definition is the name of the definition being resolved.
	Definition string

	// Target describes what was searched: a bean type or a factory method.
	Target string

	// ArgTypes lists the types of the supplied arguments.
	ArgTypes []string

	// Reason contains an optional hint.
	Reason string
}

// Error implements error interface.
func (e *NoMatchingExecutableError) Error() string {
	message := fmt.Sprintf("could not resolve matching executable on %s in definition '%s'", e.Target, e.Definition)
	if len(e.ArgTypes) > 0 {
		message += fmt.Sprintf(" with argument types [%s]", strings.Join(e.ArgTypes, ", "))
	}
	if e.Reason != "" {
		message += ": " + e.Reason
	}
	return message
}

// Is reports the sentinel of the error.
func (e *NoMatchingExecutableError) Is(target error) bool { return target == ErrNoMatchingExecutable }

// InvalidDefinitionError reports a structural problem of a definition.
type InvalidDefinitionError struct {
	Definition string
	Reason     string
}

// Error implements error interface.
func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition '%s': %s", e.Definition, e.Reason)
}

// Is reports the sentinel of the error.
func (e *InvalidDefinitionError) Is(target error) bool { return target == ErrInvalidDefinition }

// TypeConversionError reports a value which could not be coerced to a type.
type TypeConversionError struct {
	Value any
	Type  reflect.Type
	Err   error
}

// Error implements error interface.
func (e *TypeConversionError) Error() string {
	message := fmt.Sprintf("cannot convert value of type '%T' to required type '%s'", e.Value, e.Type)
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

// Unwrap returns the underlying error.
func (e *TypeConversionError) Unwrap() error { return e.Err }

// Is reports the sentinel of the error.
func (e *TypeConversionError) Is(target error) bool { return target == ErrTypeConversion }

// NotFoundError reports a missing definition for a type or a name.
type NotFoundError struct {
	Type reflect.Type
	Name string
}

// Error implements error interface.
func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no definition named '%s' available", e.Name)
	}
	return fmt.Sprintf("no qualifying definition of type '%s' available", e.Type)
}

// Is reports the sentinel of the error.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// isFatalResolutionError returns true for errors which must abort
// resolution instead of rejecting a single candidate.
func isFatalResolutionError(err error) bool {
	return errors.Is(err, ErrNoInjectionPoint) ||
		errors.Is(err, ErrCircularDependency) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
