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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistryProvidersNonPublic tests provider lookup of unexported factory methods.
func TestRegistryProvidersNonPublic(t *testing.T) {
	newHidden := func(opts ...DefinitionOpt) *Definition {
		create := NewStaticMethod(widgetFactoryType, "create", func() *widget { return &widget{} })
		return NewDefinition("hidden", append([]DefinitionOpt{
			WithFactoryType(widgetFactoryType),
			WithFactoryMethod("create", create),
		}, opts...)...)
	}

	tests := []struct {
		name      string
		nonPublic bool
		opts      []DefinitionOpt
		want      []string
	}{
		{name: "Allowed", nonPublic: true, want: []string{"hidden"}},
		{name: "Denied", nonPublic: false},
		{name: "AllowedByDefinition", nonPublic: false, opts: []DefinitionOpt{WithNonPublicAccess(true)}, want: []string{"hidden"}},
		{name: "DeniedByDefinition", nonPublic: true, opts: []DefinitionOpt{WithNonPublicAccess(false)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newRegistry(tt.nonPublic)
			require.NoError(t, registry.registerDefinition(newHidden(tt.opts...)))

			var names []string
			for _, def := range registry.providersOf(widgetType) {
				names = append(names, def.name)
			}
			assert.Equal(t, tt.want, names)

			_, ok := registry.typeOf("hidden")
			assert.Equal(t, tt.want != nil, ok)
		})
	}
}

// TestContainerNonPublicProviders tests that denied factory methods provide nothing.
func TestContainerNonPublicProviders(t *testing.T) {
	container, err := New(
		WithDefaultNonPublicAccess(false),
		NewDefinition("hidden",
			WithFactoryType(widgetFactoryType),
			WithFactoryMethod("create", NewStaticMethod(widgetFactoryType, "create", func() *widget { return &widget{} })),
		),
		NewDefinition("consumer", WithConstructor(func(w *widget) string { return w.Name() })),
	)
	require.NoError(t, err)

	_, err = container.GetBean(context.Background(), "consumer")
	assert.ErrorIs(t, err, ErrNotFound)
}
