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
	"slices"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"ocm.software/open-component-model/bindings/go/dag"
)

// dependencyGraph records dependency edges between definitions.
// An edge points from the consumer to the supplier.
type dependencyGraph struct {
	mutex        sync.Mutex
	graph        *dag.DirectedAcyclicGraph[string]
	vertices     map[string]struct{}
	dependencies map[string][]string
	dependents   map[string][]string
}

// newDependencyGraph returns an empty graph.
func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		graph:        dag.NewDirectedAcyclicGraph[string](),
		vertices:     map[string]struct{}{},
		dependencies: map[string][]string{},
		dependents:   map[string][]string{},
	}
}

// RegisterDependencyEdge records that the consumer depends on the supplier.
// Edges closing a cycle are not recorded.
func (g *dependencyGraph) RegisterDependencyEdge(ctx context.Context, consumer, supplier string) {
	if consumer == supplier {
		return
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if slices.Contains(g.dependencies[consumer], supplier) {
		return
	}
	g.addVertex(consumer)
	g.addVertex(supplier)

	logger := slogcontext.FromCtx(ctx)
	if err := g.graph.AddEdge(consumer, supplier); err != nil {
		logger.Warn("Dependency edge not recorded", "consumer", consumer, "supplier", supplier, "error", err)
		return
	}
	g.dependencies[consumer] = append(g.dependencies[consumer], supplier)
	g.dependents[supplier] = append(g.dependents[supplier], consumer)
	logger.Debug("Registered dependency", "consumer", consumer, "supplier", supplier)
}

// DependenciesOf returns suppliers of the definition.
func (g *dependencyGraph) DependenciesOf(name string) []string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return slices.Clone(g.dependencies[name])
}

// DependentsOf returns consumers of the definition.
func (g *dependencyGraph) DependentsOf(name string) []string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return slices.Clone(g.dependents[name])
}

// destructionOrder returns the names ordered so that consumers
// precede their suppliers.
func (g *dependencyGraph) destructionOrder(names []string) ([]string, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, name := range names {
		g.addVertex(name)
	}
	order, err := g.graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to sort dependency graph: %w", err)
	}

	// Normalize the topological order to suppliers first.
	position := make(map[string]int, len(order))
	for index, name := range order {
		position[name] = index
	}
	if g.consumersFirst(position) {
		slices.Reverse(order)
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	result := make([]string, 0, len(names))
	for index := len(order) - 1; index >= 0; index-- {
		if _, ok := wanted[order[index]]; ok {
			result = append(result, order[index])
		}
	}
	return result, nil
}

// consumersFirst returns true when the order places consumers before suppliers.
func (g *dependencyGraph) consumersFirst(position map[string]int) bool {
	for consumer, suppliers := range g.dependencies {
		if len(suppliers) > 0 {
			return position[consumer] < position[suppliers[0]]
		}
	}
	return false
}

// addVertex adds the vertex once. The caller holds the mutex.
func (g *dependencyGraph) addVertex(name string) {
	if _, ok := g.vertices[name]; ok {
		return
	}
	if err := g.graph.AddVertex(name); err != nil {
		return
	}
	g.vertices[name] = struct{}{}
}
