package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitWithDeps(path string, deps ...string) *SourceUnit {
	u := &SourceUnit{Path: path, Language: "go"}
	for _, d := range deps {
		u.Imports = append(u.Imports, ImportEdge{Name: d, Path: d, Internal: true})
	}
	return u
}

func TestGraphPutGetRemove(t *testing.T) {
	g := NewContextGraph()
	g.Put(unitWithDeps("a.go", "b.go"))

	require.NotNil(t, g.Get("a.go"))
	assert.Equal(t, 1, g.Len())

	g.Remove("a.go")
	assert.Nil(t, g.Get("a.go"))
	assert.Equal(t, 0, g.Len())
}

func TestGraphPutReplacesEdges(t *testing.T) {
	g := NewContextGraph()
	g.Put(unitWithDeps("a.go", "b.go"))
	g.Put(unitWithDeps("b.go"))
	g.Put(unitWithDeps("c.go"))

	require.Len(t, g.Neighborhood("a.go", 3), 1)

	// Rewriting a unit rewires its edges.
	g.Put(unitWithDeps("a.go", "c.go"))
	hood := g.Neighborhood("a.go", 3)
	require.Len(t, hood, 1)
	assert.Equal(t, "c.go", hood[0].Path)
}

func TestGraphNeighborhoodDepthBound(t *testing.T) {
	g := NewContextGraph()
	g.Put(unitWithDeps("a.go", "b.go"))
	g.Put(unitWithDeps("b.go", "c.go"))
	g.Put(unitWithDeps("c.go", "d.go"))
	g.Put(unitWithDeps("d.go"))

	assert.Len(t, g.Neighborhood("a.go", 1), 1)
	assert.Len(t, g.Neighborhood("a.go", 2), 2)
	assert.Len(t, g.Neighborhood("a.go", 10), 3)
}

func TestGraphNeighborhoodTerminatesOnCycle(t *testing.T) {
	g := NewContextGraph()
	g.Put(unitWithDeps("a.go", "b.go"))
	g.Put(unitWithDeps("b.go", "a.go"))

	hood := g.Neighborhood("a.go", 5)
	require.Len(t, hood, 1)
	assert.Equal(t, "b.go", hood[0].Path)
}

func TestGraphNeighborhoodMissingDeps(t *testing.T) {
	g := NewContextGraph()
	// Edge points at a unit that was never analyzed.
	g.Put(unitWithDeps("a.go", "gone.go"))

	assert.Empty(t, g.Neighborhood("a.go", 3))
}

func TestGraphPathsSorted(t *testing.T) {
	g := NewContextGraph()
	g.Put(unitWithDeps("c.go"))
	g.Put(unitWithDeps("a.go"))
	g.Put(unitWithDeps("b.go"))

	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, g.Paths())
}
