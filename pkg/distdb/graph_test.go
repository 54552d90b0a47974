// Copyright (C) 2021 Toitware ApS.
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; version
// 2.1 only.
//
// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// The license can be found in the file `LICENSE` in the top level
// directory of this repository.

package distdb

import (
	"errors"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toitlang/distdb/pkg/scheme"
)

func buildGraph(t *testing.T, dists ...Dist) *DependencyGraph {
	ui := testUI{}
	graph, err := BuildGraph(dists, scheme.Default, &ui)
	require.NoError(t, err)
	assert.Empty(t, ui.messages)
	return graph
}

// assertGolden compares the strings and prints a unified diff on mismatch.
func assertGolden(t *testing.T, expected string, actual string) {
	if expected == actual {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	require.NoError(t, err)
	t.Errorf("output differs:\n%s", diff)
}

func Test_BuildGraph(t *testing.T) {
	t.Run("Edge", func(t *testing.T) {
		a := mkDist("A", "1.0", "B (>=1.0)")
		b := mkDist("B", "1.0")
		graph := buildGraph(t, a, b)

		assert.Equal(t, []Edge{{To: b, Label: "B (>=1.0)"}}, graph.Edges(a))
		assert.Empty(t, graph.Edges(b))
		assert.Empty(t, graph.Missing(a))
		assert.Equal(t, []Dist{a}, graph.Predecessors(b))
		assert.Empty(t, graph.Predecessors(a))
		assert.Equal(t, []string{"A", "B"}, names(graph.Nodes()))
	})

	t.Run("Missing", func(t *testing.T) {
		a := mkDist("A", "1.0", "Z (>=1.0)")
		graph := buildGraph(t, a)
		assert.Equal(t, []string{"Z (>=1.0)"}, graph.Missing(a))
		assert.Empty(t, graph.Edges(a))
	})

	t.Run("Version mismatch is missing", func(t *testing.T) {
		a := mkDist("A", "1.0", "B (>=2.0)")
		b := mkDist("B", "1.0")
		graph := buildGraph(t, a, b)
		assert.Equal(t, []string{"B (>=2.0)"}, graph.Missing(a))
		assert.Empty(t, graph.Predecessors(b))
	})

	t.Run("First provider wins", func(t *testing.T) {
		a := mkDist("A", "1.0", "virtual (>=1.0)")
		p1 := NewDistribution(mkMetadata("P1", "1.0", "Provides-Dist: virtual (0.5)"))
		p2 := NewDistribution(mkMetadata("P2", "1.0", "Provides-Dist: virtual (1.5)"))
		p3 := NewDistribution(mkMetadata("P3", "1.0", "Provides-Dist: Virtual (2.0)"))
		graph := buildGraph(t, a, p1, p2, p3)
		assert.Equal(t, []Edge{{To: p2, Label: "virtual (>=1.0)"}}, graph.Edges(a))
	})

	t.Run("Multiple edges", func(t *testing.T) {
		a := mkDist("A", "1.0", "B (>=1.0)", "B (<2.0)")
		b := mkDist("B", "1.0")
		graph := buildGraph(t, a, b)
		assert.Len(t, graph.Edges(a), 2)
		assert.Equal(t, []Dist{a}, graph.Predecessors(b))
	})

	t.Run("Self requirement", func(t *testing.T) {
		a := mkDist("A", "1.0", "A")
		graph := buildGraph(t, a)
		assert.Equal(t, []Edge{{To: a, Label: "A"}}, graph.Edges(a))
		assert.Empty(t, graph.Missing(a))
	})

	t.Run("Requirement groups", func(t *testing.T) {
		md := mkMetadata("A", "1.0")
		md.SetDependencies(InstallRequirements, "B")
		md.SetDependencies(SetupRequirements, "C")
		md.SetDependencies(TestRequirements, "D")
		a := NewDistribution(md)
		b := mkDist("B", "1.0")
		graph := buildGraph(t, a, b)
		assert.Equal(t, []Edge{{To: b, Label: "B"}}, graph.Edges(a))
		// Test requirements are not part of the graph.
		assert.Equal(t, []string{"C"}, graph.Missing(a))

		// Requires-Dist takes precedence over the groups.
		md = mkMetadata("A", "1.0", "Requires-Dist: B")
		md.SetDependencies(InstallRequirements, "C")
		a = NewDistribution(md)
		graph = buildGraph(t, a, b)
		assert.Len(t, graph.Edges(a), 1)
		assert.Empty(t, graph.Missing(a))
	})

	t.Run("Unparseable version degrades", func(t *testing.T) {
		a := mkDist("A", "1.0", "B (>=garbage)")
		b := mkDist("B", "1.0")
		ui := testUI{}
		graph, err := BuildGraph([]Dist{a, b}, scheme.Default, &ui)
		require.NoError(t, err)
		assert.Equal(t, []Edge{{To: b, Label: "B (>=garbage)"}}, graph.Edges(a))
		require.Len(t, ui.messages, 1)
		assert.True(t, strings.HasPrefix(ui.messages[0], "Warning:"))
	})

	t.Run("Ill-formed provides", func(t *testing.T) {
		a := mkDist("A", "1.0", "thing", "other")
		p := NewDistribution(mkMetadata("P", "1.0", "Provides-Dist: thing (1", "Provides-Dist: other"))
		ui := testUI{}
		graph, err := BuildGraph([]Dist{a, p}, scheme.Default, &ui)
		require.NoError(t, err)
		assert.Equal(t, []Edge{{To: p, Label: "other"}}, graph.Edges(a))
		assert.Equal(t, []string{"thing"}, graph.Missing(a))
		require.Len(t, ui.messages, 1)
		assert.Contains(t, ui.messages[0], "ill-formed provides")
	})

	t.Run("Versionless provides", func(t *testing.T) {
		p := NewDistribution(mkMetadata("P", "1.0", "Provides-Dist: thing"))
		a := mkDist("A", "1.0", "thing")
		b := mkDist("B", "1.0", "thing (>=1.0)")
		ui := testUI{}
		graph, err := BuildGraph([]Dist{p, a, b}, scheme.Default, &ui)
		require.NoError(t, err)
		assert.Empty(t, ui.messages)

		assert.Equal(t, []Edge{{To: p, Label: "thing"}}, graph.Edges(a))
		assert.Empty(t, graph.Missing(a))
		assert.Empty(t, graph.Edges(b))
		assert.Equal(t, []string{"thing (>=1.0)"}, graph.Missing(b))

		// Requirement matching agrees with the graph.
		ok, err := p.MatchesRequirement("thing", scheme.Default, &ui)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = p.MatchesRequirement("thing (>=1.0)", scheme.Default, &ui)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalid requirement", func(t *testing.T) {
		a := mkDist("A", "1.0", "B (>=1.0")
		_, err := BuildGraph([]Dist{a}, scheme.Default, nil)
		assert.True(t, errors.Is(err, ErrInvalid))
	})
}

func Test_TopologicalSort(t *testing.T) {
	t.Run("Chain", func(t *testing.T) {
		a := mkDist("A", "1.0", "B")
		b := mkDist("B", "1.0", "C")
		c := mkDist("C", "1.0")
		d := mkDist("D", "1.0")
		graph := buildGraph(t, a, b, c, d)
		sorted, residual := graph.TopologicalSort()
		assert.Equal(t, []string{"C", "D", "B", "A"}, names(sorted))
		assert.Empty(t, residual)

		// The graph is unchanged.
		assert.Len(t, graph.Edges(a), 1)
		assert.Len(t, graph.Edges(b), 1)
	})

	t.Run("Cycle", func(t *testing.T) {
		a := mkDist("A", "1.0", "B")
		b := mkDist("B", "1.0", "A")
		graph := buildGraph(t, a, b)
		sorted, residual := graph.TopologicalSort()
		assert.Empty(t, sorted)
		assert.ElementsMatch(t, []Dist{a, b}, residual)
	})

	t.Run("Depends on cycle", func(t *testing.T) {
		a := mkDist("A", "1.0", "B")
		b := mkDist("B", "1.0", "C")
		c := mkDist("C", "1.0", "B")
		d := mkDist("D", "1.0")
		graph := buildGraph(t, a, b, c, d)
		sorted, residual := graph.TopologicalSort()
		assert.Equal(t, []string{"D"}, names(sorted))
		assert.ElementsMatch(t, []string{"A", "B", "C"}, names(residual))
	})
}

func Test_Transitive(t *testing.T) {
	a := mkDist("A", "1.0", "B")
	b := mkDist("B", "1.0", "C")
	c := mkDist("C", "1.0")
	other := mkDist("Other", "1.0", "C")
	dists := []Dist{a, b, c, other}

	t.Run("Dependencies", func(t *testing.T) {
		deps, err := RequiredDists(dists, a, scheme.Default, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C"}, names(deps))

		deps, err = RequiredDists(dists, c, scheme.Default, nil)
		require.NoError(t, err)
		assert.Empty(t, deps)
	})

	t.Run("Dependents", func(t *testing.T) {
		dependents, err := DependentDists(dists, c, scheme.Default, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "Other", "A"}, names(dependents))

		dependents, err = DependentDists(dists, a, scheme.Default, nil)
		require.NoError(t, err)
		assert.Empty(t, dependents)
	})

	t.Run("Not a member", func(t *testing.T) {
		stranger := mkDist("Stranger", "1.0")
		_, err := DependentDists(dists, stranger, scheme.Default, nil)
		assert.True(t, errors.Is(err, ErrNotMember))
		_, err = RequiredDists(dists, stranger, scheme.Default, nil)
		assert.True(t, errors.Is(err, ErrNotMember))
	})

	t.Run("Cycle", func(t *testing.T) {
		x := mkDist("X", "1.0", "Y")
		y := mkDist("Y", "1.0", "X")
		graph := buildGraph(t, x, y)
		assert.Equal(t, []string{"X"}, names(graph.Dependents(y)))
		assert.Equal(t, []string{"Y"}, names(graph.Dependents(x)))
		assert.Equal(t, []string{"Y", "X"}, names(graph.Dependencies(x)))
	})
}

func Test_GraphOutput(t *testing.T) {
	a := mkDist("A", "1.0", "B (>=1.0)", "C")
	b := mkDist("B", "1.2", "C")
	c := mkDist("C", "0.5")
	d := mkDist("D", "2.0")
	graph := buildGraph(t, a, b, c, d)

	t.Run("Dot", func(t *testing.T) {
		var sb strings.Builder
		require.NoError(t, graph.ToDot(&sb, true))
		assertGolden(t, `digraph dependencies {
"A" -> "B" [label="B (>=1.0)"]
"A" -> "C" [label="C"]
"B" -> "C" [label="C"]
}
`, sb.String())
	})

	t.Run("Dot disconnected", func(t *testing.T) {
		var sb strings.Builder
		require.NoError(t, graph.ToDot(&sb, false))
		assertGolden(t, `digraph dependencies {
"A" -> "B" [label="B (>=1.0)"]
"A" -> "C" [label="C"]
"B" -> "C" [label="C"]
subgraph disconnected {
label = "Disconnected"
bgcolor = red
"C"
"D"
}
}
`, sb.String())
	})

	t.Run("Dot without label", func(t *testing.T) {
		g := NewDependencyGraph()
		g.AddDistribution(a)
		g.AddDistribution(b)
		g.AddEdge(a, b, "")
		var sb strings.Builder
		require.NoError(t, g.ToDot(&sb, true))
		assertGolden(t, "digraph dependencies {\n\"A\" -> \"B\"\n}\n", sb.String())
	})

	t.Run("Repr", func(t *testing.T) {
		assertGolden(t, `A 1.0
    B 1.2 [B (>=1.0)]
        C 0.5 [C]
    C 0.5 [C]`, graph.ReprNode(a))
		assertGolden(t, "D 2.0", graph.ReprNode(d))
	})

	t.Run("Repr cycle", func(t *testing.T) {
		x := mkDist("X", "1.0", "Y")
		y := mkDist("Y", "1.0", "X")
		g := buildGraph(t, x, y)
		assertGolden(t, `X 1.0
    Y 1.0 [Y]
        X 1.0 [X]
Y 1.0
    X 1.0 [X]
        Y 1.0 [Y]`, g.String())
	})
}

func Test_GraphMutation(t *testing.T) {
	a := mkDist("A", "1.0")
	b := mkDist("B", "1.0")
	g := NewDependencyGraph()
	g.AddDistribution(a)
	g.AddDistribution(b)
	assert.True(t, g.Contains(a))
	assert.False(t, g.Contains(mkDist("C", "1.0")))

	g.AddEdge(a, b, "B")
	g.AddEdge(a, b, "B (>=1)")
	assert.Len(t, g.Edges(a), 2)
	assert.Equal(t, []Dist{a}, g.Predecessors(b))

	g.AddMissing(a, "Z")
	g.AddMissing(a, "Y")
	assert.Equal(t, []string{"Z", "Y"}, g.Missing(a))
	assert.Empty(t, g.Missing(b))
}
