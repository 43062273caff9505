package dag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/tmc/dot"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/selector"
)

// Graph is the dependency graph across a recipe repository: one vertex per
// package, an edge from each recipe to every package it requires. Packages
// that only appear as dependencies (satisfied by the channel, not built
// here) are leaf vertices.
type Graph struct {
	Graph graph.Graph[string, string]

	entries map[string]*recipe.Entry
}

func newGraph() graph.Graph[string, string] {
	return graph.New(graph.StringHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())
}

// New builds the dependency graph for the given recipes, keeping only the
// dependencies that apply under sctx. A dependency cycle among recipes is
// an error.
func New(entries map[string]*recipe.Entry, sctx selector.Context) (*Graph, error) {
	g := &Graph{
		Graph:   newGraph(),
		entries: entries,
	}

	for name := range entries {
		if err := g.Graph.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, err
		}
	}

	for name, entry := range entries {
		buildDeps, err := entry.Recipe.BuildDeps(sctx)
		if err != nil {
			return nil, err
		}
		runDeps, err := entry.Recipe.RunDeps(sctx)
		if err != nil {
			return nil, err
		}

		for _, d := range append(buildDeps, runDeps...) {
			if d.Name == name {
				continue
			}
			if err := g.Graph.AddVertex(d.Name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, err
			}
			if err := g.Graph.AddEdge(name, d.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, fmt.Errorf("dependency cycle: %s -> %s", name, d.Name)
				}
				if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					return nil, err
				}
			}
		}
	}

	return g, nil
}

// IsLocal reports whether the named vertex is a recipe in the repository,
// as opposed to a dependency satisfied by the channel.
func (g *Graph) IsLocal(name string) bool {
	_, ok := g.entries[name]
	return ok
}

// Nodes returns every vertex, sorted.
func (g *Graph) Nodes() ([]string, error) {
	m, err := g.Graph.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	nodes := make([]string, 0, len(m))
	for name := range m {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes, nil
}

// DependenciesOf returns the direct dependencies of a vertex, sorted.
func (g *Graph) DependenciesOf(name string) ([]string, error) {
	m, err := g.Graph.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	edges, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("package %q not found in graph", name)
	}
	deps := make([]string, 0, len(edges))
	for dep := range edges {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps, nil
}

// Sorted returns the vertices in dependency order: every package after the
// packages it depends on.
func (g *Graph) Sorted() ([]string, error) {
	sorted, err := graph.TopologicalSort(g.Graph)
	if err != nil {
		return nil, err
	}
	// TopologicalSort on this edge direction yields dependents first.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted, nil
}

// DOT renders the graph as graphviz input.
func (g *Graph) DOT() (string, error) {
	out := dot.NewGraph("recipes")
	out.SetType(dot.DIGRAPH)

	nodes, err := g.Nodes()
	if err != nil {
		return "", err
	}
	for _, node := range nodes {
		n := dot.NewNode(node)
		out.AddNode(n)

		deps, err := g.DependenciesOf(node)
		if err != nil {
			return "", err
		}
		for _, dep := range deps {
			d := dot.NewNode(dep)
			out.AddNode(d)
			out.AddEdge(dot.NewEdge(n, d))
		}
	}

	return out.String(), nil
}
