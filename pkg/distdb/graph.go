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
	"fmt"
	"io"
	"strings"

	"github.com/toitlang/distdb/pkg/logging"
	"github.com/toitlang/distdb/pkg/scheme"
)

// Edge is a dependency of a distribution.
type Edge struct {
	To Dist
	// Label is the requirement that is satisfied by To. Empty if the edge
	// was added without label.
	Label string
}

// DependencyGraph is a directed graph between distributions.
//
// An edge from a to b means that a depends on b. Multiple edges between the
// same distributions are allowed (one per satisfied requirement). The
// predecessors of every distribution are kept as well, without duplicates.
// Requirements that no distribution satisfies are recorded as missing.
type DependencyGraph struct {
	nodes     []Dist
	adjacency map[string][]Edge
	reverse   map[string][]Dist
	missing   map[string][]string
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		adjacency: map[string][]Edge{},
		reverse:   map[string][]Dist{},
		missing:   map[string][]string{},
	}
}

// AddDistribution adds a node. Adding the same distribution twice resets its
// edges.
func (g *DependencyGraph) AddDistribution(d Dist) {
	id := d.identity()
	if _, ok := g.adjacency[id]; !ok {
		g.nodes = append(g.nodes, d)
	}
	g.adjacency[id] = []Edge{}
	g.reverse[id] = []Dist{}
}

// AddEdge adds an edge from x to y. Both must have been added.
func (g *DependencyGraph) AddEdge(x Dist, y Dist, label string) {
	g.adjacency[x.identity()] = append(g.adjacency[x.identity()], Edge{To: y, Label: label})
	for _, pred := range g.reverse[y.identity()] {
		if Same(pred, x) {
			return
		}
	}
	g.reverse[y.identity()] = append(g.reverse[y.identity()], x)
}

// AddMissing records a requirement of d that isn't satisfied.
func (g *DependencyGraph) AddMissing(d Dist, requirement string) {
	logger := logging.GetLogger("graph")
	logger.Debug().Str("dist", d.String()).Str("requirement", requirement).Msg("Missing requirement")
	g.missing[d.identity()] = append(g.missing[d.identity()], requirement)
}

// Nodes returns the distributions in the order they were added.
func (g *DependencyGraph) Nodes() []Dist {
	return append([]Dist{}, g.nodes...)
}

func (g *DependencyGraph) Contains(d Dist) bool {
	_, ok := g.adjacency[d.identity()]
	return ok
}

// Edges returns the outgoing edges of d.
func (g *DependencyGraph) Edges(d Dist) []Edge {
	return append([]Edge{}, g.adjacency[d.identity()]...)
}

// Predecessors returns the distributions that have an edge to d.
func (g *DependencyGraph) Predecessors(d Dist) []Dist {
	return append([]Dist{}, g.reverse[d.identity()]...)
}

// Missing returns the unsatisfied requirements of d.
func (g *DependencyGraph) Missing(d Dist) []string {
	return append([]string{}, g.missing[d.identity()]...)
}

// BuildGraph creates the dependency graph of the given distributions.
//
// Every requirement is satisfied by the first distribution (in the given
// order) that provides a matching version. A requirement whose version
// can't be parsed is matched by name only, and a warning is reported to ui.
// Ill-formed provides entries are reported and skipped.
// Returns an error if a requirement is syntactically invalid.
func BuildGraph(dists []Dist, s scheme.Scheme, ui UI) (*DependencyGraph, error) {
	ui = orNullUI(ui)
	logger := logging.GetLogger("graph")
	graph := NewDependencyGraph()

	type provider struct {
		version string
		dist    Dist
	}
	provided := map[string][]provider{}

	for _, d := range dists {
		graph.AddDistribution(d)
		for _, p := range d.Provides() {
			name, version, err := splitProvided(p)
			if err != nil {
				ui.ReportWarning("distribution '%s' has ill-formed provides field: '%s'", d.Name(), p)
				continue
			}
			name = strings.ToLower(name)
			logger.Trace().Str("name", name).Str("version", version).Str("dist", d.String()).Msg("Add to provided")
			provided[name] = append(provided[name], provider{version: version, dist: d})
		}
	}

	for _, d := range dists {
		requires := d.Metadata().Get(FieldRequiresDist)
		if len(requires) == 0 {
			requires = append(d.Requirements(InstallRequirements), d.Requirements(SetupRequirements)...)
		}
		for _, req := range requires {
			matcher, err := matcherFor(req, s, ui)
			if err != nil {
				return nil, err
			}
			matched := false
			for _, p := range provided[matcher.Key()] {
				ok, err := matcher.Match(p.version)
				if err == nil && ok {
					graph.AddEdge(d, p.dist, req)
					matched = true
					break
				}
			}
			if !matched {
				graph.AddMissing(d, req)
			}
		}
	}
	return graph, nil
}

// TopologicalSort orders the distributions so that every distribution comes
// after its dependencies.
// Distributions that are part of (or depend on) a cycle can't be sorted and
// are returned as second result.
// The graph itself is not modified.
func (g *DependencyGraph) TopologicalSort() (sorted []Dist, residual []Dist) {
	remaining := make([]Dist, len(g.nodes))
	copy(remaining, g.nodes)
	edges := map[string][]Edge{}
	for _, d := range g.nodes {
		edges[d.identity()] = append([]Edge{}, g.adjacency[d.identity()]...)
	}

	sorted = []Dist{}
	logger := logging.GetLogger("graph")
	for {
		removed := map[string]bool{}
		kept := []Dist{}
		batch := []Dist{}
		for _, d := range remaining {
			if len(edges[d.identity()]) == 0 {
				removed[d.identity()] = true
				batch = append(batch, d)
			} else {
				kept = append(kept, d)
			}
		}
		if len(batch) == 0 {
			break
		}
		for _, d := range kept {
			filtered := []Edge{}
			for _, e := range edges[d.identity()] {
				if !removed[e.To.identity()] {
					filtered = append(filtered, e)
				}
			}
			edges[d.identity()] = filtered
		}
		if e := logger.Debug(); e.Enabled() {
			names := []string{}
			for _, d := range batch {
				names = append(names, d.NameAndVersion())
			}
			e.Strs("dists", names).Msg("Moving to result")
		}
		sorted = append(sorted, batch...)
		remaining = kept
	}
	return sorted, remaining
}

// Dependents returns all distributions that directly or transitively depend
// on d, in breadth-first order. d itself is never part of the result.
func (g *DependencyGraph) Dependents(d Dist) []Dist {
	return g.traverse(d, true, func(x Dist) []Dist {
		return g.reverse[x.identity()]
	})
}

// Dependencies returns all distributions that d directly or transitively
// depends on, in breadth-first order. If d is part of a cycle, it is
// included.
func (g *DependencyGraph) Dependencies(d Dist) []Dist {
	return g.traverse(d, false, func(x Dist) []Dist {
		result := []Dist{}
		for _, e := range g.adjacency[x.identity()] {
			result = append(result, e.To)
		}
		return result
	})
}

func (g *DependencyGraph) traverse(start Dist, excludeStart bool, next func(Dist) []Dist) []Dist {
	result := []Dist{}
	visited := map[string]bool{}
	if excludeStart {
		visited[start.identity()] = true
	}
	queue := append([]Dist{}, next(start)...)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if visited[d.identity()] {
			continue
		}
		visited[d.identity()] = true
		result = append(result, d)
		queue = append(queue, next(d)...)
	}
	return result
}

func checkMember(dists []Dist, d Dist) error {
	for _, other := range dists {
		if Same(other, d) {
			return nil
		}
	}
	return newError(ErrNotMember, "given distribution '%s' is not a member of the list", d.Name())
}

// DependentDists returns the distributions of dists that depend on d.
// Returns an ErrNotMember error if d isn't one of dists.
func DependentDists(dists []Dist, d Dist, s scheme.Scheme, ui UI) ([]Dist, error) {
	if err := checkMember(dists, d); err != nil {
		return nil, err
	}
	graph, err := BuildGraph(dists, s, ui)
	if err != nil {
		return nil, err
	}
	return graph.Dependents(d), nil
}

// RequiredDists returns the distributions of dists that d depends on.
// Returns an ErrNotMember error if d isn't one of dists.
func RequiredDists(dists []Dist, d Dist, s scheme.Scheme, ui UI) ([]Dist, error) {
	if err := checkMember(dists, d); err != nil {
		return nil, err
	}
	graph, err := BuildGraph(dists, s, ui)
	if err != nil {
		return nil, err
	}
	return graph.Dependencies(d), nil
}

// ToDot writes the graph in the DOT language.
// Nodes are named by distribution name. If skipDisconnected is false, the
// distributions without dependencies are grouped in a 'disconnected'
// subgraph.
func (g *DependencyGraph) ToDot(w io.Writer, skipDisconnected bool) error {
	var sb strings.Builder
	disconnected := []Dist{}
	sb.WriteString("digraph dependencies {\n")
	for _, d := range g.nodes {
		edges := g.adjacency[d.identity()]
		if len(edges) == 0 && !skipDisconnected {
			disconnected = append(disconnected, d)
		}
		for _, e := range edges {
			if e.Label != "" {
				fmt.Fprintf(&sb, "%q -> %q [label=%q]\n", d.Name(), e.To.Name(), e.Label)
			} else {
				fmt.Fprintf(&sb, "%q -> %q\n", d.Name(), e.To.Name())
			}
		}
	}
	if len(disconnected) > 0 {
		sb.WriteString("subgraph disconnected {\n")
		sb.WriteString("label = \"Disconnected\"\n")
		sb.WriteString("bgcolor = red\n")
		for _, d := range disconnected {
			fmt.Fprintf(&sb, "%q\n", d.Name())
		}
		sb.WriteString("}\n")
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// ReprNode renders d and its transitive dependencies as an indented tree.
// A dependency that is already being rendered higher up is printed once
// more but not expanded, so cycles terminate.
func (g *DependencyGraph) ReprNode(d Dist) string {
	lines := []string{d.String()}
	g.reprEdges(d, 1, map[string]bool{d.identity(): true}, &lines)
	return strings.Join(lines, "\n")
}

func (g *DependencyGraph) reprEdges(d Dist, level int, path map[string]bool, lines *[]string) {
	for _, e := range g.adjacency[d.identity()] {
		line := e.To.String()
		if e.Label != "" {
			line = fmt.Sprintf("%s [%s]", line, e.Label)
		}
		*lines = append(*lines, strings.Repeat("    ", level)+line)
		if path[e.To.identity()] {
			continue
		}
		path[e.To.identity()] = true
		g.reprEdges(e.To, level+1, path, lines)
		delete(path, e.To.identity())
	}
}

func (g *DependencyGraph) String() string {
	nodes := []string{}
	for _, d := range g.nodes {
		nodes = append(nodes, g.ReprNode(d))
	}
	return strings.Join(nodes, "\n")
}
