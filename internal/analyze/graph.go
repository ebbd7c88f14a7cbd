package analyze

import (
	"sort"
	"sync"
)

// ContextGraph tracks which units import which, so prompt assembly can
// pull in a changed file's structural neighborhood. All methods are
// safe for concurrent use; reads see a consistent snapshot.
type ContextGraph struct {
	mu    sync.RWMutex
	units map[string]*SourceUnit
	deps  map[string][]string
}

// NewContextGraph returns an empty graph.
func NewContextGraph() *ContextGraph {
	return &ContextGraph{
		units: make(map[string]*SourceUnit),
		deps:  make(map[string][]string),
	}
}

// Put inserts or replaces a unit and its outgoing edges.
func (g *ContextGraph) Put(unit *SourceUnit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.units[unit.Path] = unit
	g.deps[unit.Path] = unit.InternalDeps()
}

// Remove drops a unit. Edges pointing at it from other units stay; they
// resolve to nothing on traversal.
func (g *ContextGraph) Remove(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.units, path)
	delete(g.deps, path)
}

// Get returns the unit for path, or nil.
func (g *ContextGraph) Get(path string) *SourceUnit {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.units[path]
}

// Len returns the number of units in the graph.
func (g *ContextGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.units)
}

// Neighborhood returns the units reachable from path through import
// edges within maxDepth hops, excluding path itself. Depth bounding
// makes traversal terminate on cyclic imports. Results are sorted by
// path for stable prompt output.
func (g *ContextGraph) Neighborhood(path string, maxDepth int) []*SourceUnit {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{path: true}
	frontier := []string{path}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, p := range frontier {
			for _, dep := range g.deps[p] {
				if seen[dep] {
					continue
				}
				seen[dep] = true
				next = append(next, dep)
			}
		}
		frontier = next
	}

	var result []*SourceUnit
	for p := range seen {
		if p == path {
			continue
		}
		if unit, ok := g.units[p]; ok {
			result = append(result, unit)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

// Paths returns all unit paths, sorted.
func (g *ContextGraph) Paths() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	paths := make([]string, 0, len(g.units))
	for p := range g.units {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
