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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInvokerService tests invoking functions with autowired arguments.
func TestInvokerService(t *testing.T) {
	container, err := New(
		NewInstance("greeting", "hello"),
		NewDefinition("widget", WithConstructor(NewWidget), WithArg("w"), WithArg(7)),
	)
	require.NoError(t, err)
	require.NoError(t, container.Start())
	invoker := container.Invoker()

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "value")

	// Arguments are resolved from the container.
	invokeCalled := false
	result, err := invoker.Invoke(ctx, func(ctx context.Context, greeting string, w *widget, ids []identified) int {
		assert.Equal(t, "value", ctx.Value(ctxKey{}))
		assert.Equal(t, "hello", greeting)
		assert.Equal(t, "w", w.Name())
		assert.Len(t, ids, 1)
		invokeCalled = true
		return 123
	})
	require.NoError(t, err)
	assert.True(t, invokeCalled)
	assert.Equal(t, []any{123}, result.Values())
	assert.NoError(t, result.Error())

	// The trailing error is the function error.
	result, err = invoker.Invoke(ctx, func() (string, error) {
		return "partial", errors.New("failed")
	})
	require.NoError(t, err)
	assert.Len(t, result.Values(), 2)
	assert.EqualError(t, result.Error(), "failed")

	// Empty collections of missing dependencies.
	result, err = invoker.Invoke(ctx, func(dbs []*testDB) int { return len(dbs) })
	require.NoError(t, err)
	assert.Equal(t, []any{0}, result.Values())

	// Missing dependencies fail the invocation.
	_, err = invoker.Invoke(ctx, func(db *testDB) {})
	assert.ErrorIs(t, err, ErrNotFound)

	// Only plain functions are invoked.
	_, err = invoker.Invoke(ctx, "function")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = invoker.Invoke(ctx, func(names ...string) {})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	require.NoError(t, container.Close())
	<-container.Done()
}
