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
	"time"

	"github.com/spf13/cast"
)

// TypeConverter coerces resolved argument values to parameter types.
type TypeConverter interface {
	// Convert returns the value converted to the type.
	Convert(value any, typ reflect.Type) (reflect.Value, error)
}

// NewTypeConverter returns the default converter backed by spf13/cast.
func NewTypeConverter() TypeConverter {
	return &castConverter{types: map[string]reflect.Type{}}
}

// castConverter implements TypeConverter.
// Strings may be converted to reflect.Type using registered type names.
type castConverter struct {
	mutex sync.RWMutex
	types map[string]reflect.Type
}

// RegisterType makes the type available for string to reflect.Type conversion.
func (c *castConverter) RegisterType(typ reflect.Type) {
	if typ == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.types[typ.String()] = typ
}

// Convert implements TypeConverter interface.
func (c *castConverter) Convert(value any, typ reflect.Type) (reflect.Value, error) {
	if value == nil {
		if isNillableType(typ) {
			return reflect.Zero(typ), nil
		}
		return reflect.Value{}, &TypeConversionError{Value: value, Type: typ}
	}

	// Values already of the required type are passed as is.
	valueRef := reflect.ValueOf(value)
	if valueRef.Type().AssignableTo(typ) {
		return valueRef, nil
	}

	result, err := c.convert(value, typ)
	if err != nil {
		return reflect.Value{}, &TypeConversionError{Value: value, Type: typ, Err: err}
	}
	return result, nil
}

// convert dispatches conversion by the target kind.
func (c *castConverter) convert(value any, typ reflect.Type) (reflect.Value, error) {
	switch {
	case typ == reflectTypeType:
		return c.convertType(value)
	case typ == durationType:
		duration, err := cast.ToDurationE(value)
		return reflect.ValueOf(duration), err
	case typ == timeType:
		moment, err := cast.ToTimeE(value)
		return reflect.ValueOf(moment), err
	}

	switch typ.Kind() {
	case reflect.Bool:
		result, err := cast.ToBoolE(value)
		return convertValue(reflect.ValueOf(result), typ), err
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		result, err := cast.ToInt64E(value)
		if err != nil {
			return reflect.Value{}, err
		}
		if reflect.Zero(typ).OverflowInt(result) {
			return reflect.Value{}, fmt.Errorf("value %d overflows '%s'", result, typ)
		}
		return convertValue(reflect.ValueOf(result), typ), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		result, err := cast.ToUint64E(value)
		if err != nil {
			return reflect.Value{}, err
		}
		if reflect.Zero(typ).OverflowUint(result) {
			return reflect.Value{}, fmt.Errorf("value %d overflows '%s'", result, typ)
		}
		return convertValue(reflect.ValueOf(result), typ), nil
	case reflect.Float32, reflect.Float64:
		result, err := cast.ToFloat64E(value)
		return convertValue(reflect.ValueOf(result), typ), err
	case reflect.String:
		result, err := cast.ToStringE(value)
		return convertValue(reflect.ValueOf(result), typ), err
	case reflect.Slice:
		return c.convertSlice(value, typ)
	case reflect.Map:
		return c.convertMap(value, typ)
	}

	// Named types sharing an underlying type.
	valueRef := reflect.ValueOf(value)
	if valueRef.Type().ConvertibleTo(typ) {
		return valueRef.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("no conversion from '%T'", value)
}

// convertType resolves a type name registered in the converter.
func (c *castConverter) convertType(value any) (reflect.Value, error) {
	name, err := cast.ToStringE(value)
	if err != nil {
		return reflect.Value{}, err
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if typ, ok := c.types[name]; ok {
		return reflect.ValueOf(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("unknown type name '%s'", name)
}

// convertSlice converts every element of a slice, array or delimited string.
func (c *castConverter) convertSlice(value any, typ reflect.Type) (reflect.Value, error) {
	valueRef := reflect.ValueOf(value)
	if valueRef.Kind() != reflect.Slice && valueRef.Kind() != reflect.Array {
		// Strings are split by spaces, single values are wrapped.
		if valueRef.Kind() == reflect.String {
			items, err := cast.ToStringSliceE(value)
			if err != nil {
				return reflect.Value{}, err
			}
			valueRef = reflect.ValueOf(items)
		} else {
			valueRef = reflect.ValueOf([]any{value})
		}
	}

	result := reflect.MakeSlice(typ, 0, valueRef.Len())
	for index := 0; index < valueRef.Len(); index++ {
		item, err := c.Convert(valueRef.Index(index).Interface(), typ.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", index, err)
		}
		result = reflect.Append(result, item)
	}
	return result, nil
}

// convertMap converts keys and values of a map.
func (c *castConverter) convertMap(value any, typ reflect.Type) (reflect.Value, error) {
	valueRef := reflect.ValueOf(value)
	if valueRef.Kind() != reflect.Map {
		source, err := cast.ToStringMapE(value)
		if err != nil {
			return reflect.Value{}, err
		}
		valueRef = reflect.ValueOf(source)
	}

	result := reflect.MakeMapWithSize(typ, valueRef.Len())
	iter := valueRef.MapRange()
	for iter.Next() {
		key, err := c.Convert(iter.Key().Interface(), typ.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key '%v': %w", iter.Key(), err)
		}
		item, err := c.Convert(iter.Value().Interface(), typ.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("value of '%v': %w", iter.Key(), err)
		}
		result.SetMapIndex(key, item)
	}
	return result, nil
}

// convertValue converts a primitive result to a named type of the same kind.
func convertValue(value reflect.Value, typ reflect.Type) reflect.Value {
	if value.Type() == typ {
		return value
	}
	return value.Convert(typ)
}

// Well-known types of the converter.
var (
	reflectTypeType = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	durationType    = reflect.TypeOf(time.Duration(0))
	timeType        = reflect.TypeOf(time.Time{})
)
