package depgraph

import (
	"slices"

	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/registry"
)

// visitState tracks a node during a graph walk.
type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// externalOverrides adds dependencies that components do not declare
// themselves but always need on the host.
var externalOverrides = map[string][]string{
	"create-checkpoint": {"git"},
	"self-review":       {"git"},
	"typecheck-changed": {"typescript"},
	"lint-changed":      {"eslint"},
}

// Node is a vertex of the dependency graph.
type Node struct {
	ID         string
	IsExternal bool // not a component in the registry
	Known      bool // external and a recognized host tool
	Depth      int
}

// Graph is a read-only dependency view over a registry. Edges point from a
// component to the ids it depends on.
type Graph struct {
	Nodes   map[string]*Node
	Edges   map[string][]string
	Reverse map[string][]string
	Cycles  [][]string

	order []string
}

// Build constructs the graph for reg, then detects cycles and computes
// node depths.
func Build(reg *registry.Registry) *Graph {
	g := &Graph{
		Nodes:   make(map[string]*Node),
		Edges:   make(map[string][]string),
		Reverse: make(map[string][]string),
	}

	for _, c := range reg.All() {
		g.addNode(c.ID)
	}

	for _, c := range reg.All() {
		for _, dep := range edgeTargets(c) {
			g.addEdge(c.ID, dep)
		}
	}

	for _, id := range g.order {
		if !reg.Has(id) {
			n := g.Nodes[id]
			n.IsExternal = true
			n.Known = manifest.IsKnownTool(id)
		}
	}

	g.Cycles = g.findCycles()
	g.computeDepths()
	return g
}

// edgeTargets is the union of declared, detected, and overridden
// dependencies, without self references.
func edgeTargets(c *manifest.Component) []string {
	targets := c.AllDependencies(false)
	for _, dep := range externalOverrides[c.ID] {
		if dep != c.ID && !slices.Contains(targets, dep) {
			targets = append(targets, dep)
		}
	}
	return targets
}

func (g *Graph) addNode(id string) *Node {
	if n, ok := g.Nodes[id]; ok {
		return n
	}
	n := &Node{ID: id}
	g.Nodes[id] = n
	g.order = append(g.order, id)
	return n
}

func (g *Graph) addEdge(from, to string) {
	if from == to {
		return
	}
	g.addNode(from)
	g.addNode(to)
	if slices.Contains(g.Edges[from], to) {
		return
	}
	g.Edges[from] = append(g.Edges[from], to)
	g.Reverse[to] = append(g.Reverse[to], from)
}

// IDs returns node ids in insertion order.
func (g *Graph) IDs() []string {
	return slices.Clone(g.order)
}

// Dependencies returns the direct dependencies of id.
func (g *Graph) Dependencies(id string) []string {
	return slices.Clone(g.Edges[id])
}

// Dependents returns the ids that depend directly on id.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.Reverse[id])
}

// HasCycles reports whether any cycle was found.
func (g *Graph) HasCycles() bool {
	return len(g.Cycles) > 0
}

// InCycle reports whether id appears in any detected cycle.
func (g *Graph) InCycle(id string) bool {
	for _, cycle := range g.Cycles {
		if slices.Contains(cycle, id) {
			return true
		}
	}
	return false
}

// Externals returns the external node ids in insertion order.
func (g *Graph) Externals() []string {
	var out []string
	for _, id := range g.order {
		if g.Nodes[id].IsExternal {
			out = append(out, id)
		}
	}
	return out
}

// frame is one level of an explicit DFS stack.
type frame struct {
	id   string
	next int
}

// findCycles runs a DFS from every unvisited node. A back edge into a node
// still on the stack records [stack[start..], node].
func (g *Graph) findCycles() [][]string {
	var cycles [][]string
	state := make(map[string]visitState, len(g.order))

	for _, start := range g.order {
		if state[start] != unvisited {
			continue
		}

		stack := []frame{{id: start}}
		pos := map[string]int{start: 0}
		state[start] = inProgress

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.Edges[top.id]
			if top.next >= len(deps) {
				state[top.id] = done
				delete(pos, top.id)
				stack = stack[:len(stack)-1]
				continue
			}
			dep := deps[top.next]
			top.next++

			switch state[dep] {
			case inProgress:
				cycle := make([]string, 0, len(stack)-pos[dep]+1)
				for _, f := range stack[pos[dep]:] {
					cycle = append(cycle, f.id)
				}
				cycles = append(cycles, append(cycle, dep))
			case unvisited:
				state[dep] = inProgress
				pos[dep] = len(stack)
				stack = append(stack, frame{id: dep})
			}
		}
	}

	return cycles
}

// computeDepths assigns depth = 1 + max(depth(dep)) in post order. A
// dependency that is still in progress (the edge closes a cycle) is left out
// of the max, which bounds the walk; a node whose only dependencies are in
// progress gets depth 0.
func (g *Graph) computeDepths() {
	state := make(map[string]visitState, len(g.order))

	for _, start := range g.order {
		if state[start] != unvisited {
			continue
		}

		stack := []frame{{id: start}}
		state[start] = inProgress

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.Edges[top.id]
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				if state[dep] == unvisited {
					state[dep] = inProgress
					stack = append(stack, frame{id: dep})
				}
				continue
			}

			depth := 0
			for _, dep := range deps {
				if state[dep] == done {
					depth = max(depth, g.Nodes[dep].Depth+1)
				}
			}
			g.Nodes[top.id].Depth = depth
			state[top.id] = done
			stack = stack[:len(stack)-1]
		}
	}
}
