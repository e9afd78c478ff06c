package depgraph

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/registry"
)

// DefaultMaxDepth bounds transitive resolution.
const DefaultMaxDepth = 10

// ResolveOptions controls ResolveAll.
type ResolveOptions struct {
	IncludeOptional bool
	MaxDepth        int // 0 means DefaultMaxDepth
}

// Resolver expands and orders component requests against a registry.
type Resolver struct {
	reg    *registry.Registry
	logger *log.Logger
}

// NewResolver returns a Resolver over reg. A nil logger discards output.
func NewResolver(reg *registry.Registry, logger *log.Logger) *Resolver {
	return &Resolver{reg: reg, logger: logging.OrDiscard(logger)}
}

// Resolution is the output of ResolveAll.
type Resolution struct {
	IDs      []string // post order: dependencies before dependents
	Warnings []string
}

// ResolveAll returns the transitive closure of ids in post order. Known host
// tools are never included. Ids not in the registry are kept as leaves so the
// caller can report them. Dependencies past MaxDepth are dropped with a
// warning. Cycles terminate because an id on the current path is not
// re-entered.
func (r *Resolver) ResolveAll(ids []string, opts ResolveOptions) Resolution {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var res Resolution
	state := make(map[string]visitState)

	type resolveFrame struct {
		id    string
		deps  []string
		next  int
		depth int
	}

	for _, root := range ids {
		if manifest.IsKnownTool(root) || state[root] != unvisited {
			continue
		}

		state[root] = inProgress
		stack := []resolveFrame{{id: root, deps: r.depsOf(root, opts.IncludeOptional)}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.deps) {
				state[top.id] = done
				res.IDs = append(res.IDs, top.id)
				stack = stack[:len(stack)-1]
				continue
			}

			dep := top.deps[top.next]
			top.next++
			if manifest.IsKnownTool(dep) || state[dep] != unvisited {
				continue
			}

			if top.depth+1 > maxDepth {
				msg := fmt.Sprintf("maximum dependency depth %d exceeded at %s -> %s", maxDepth, top.id, dep)
				r.logger.Warn("dependency depth exceeded", "max", maxDepth, "from", top.id, "dep", dep)
				res.Warnings = append(res.Warnings, msg)
				continue
			}

			state[dep] = inProgress
			stack = append(stack, resolveFrame{
				id:    dep,
				deps:  r.depsOf(dep, opts.IncludeOptional),
				depth: top.depth + 1,
			})
		}
	}

	return res
}

func (r *Resolver) depsOf(id string, withOptional bool) []string {
	c, ok := r.reg.Get(id)
	if !ok {
		return nil
	}
	return c.AllDependencies(withOptional)
}

// Order sorts ids so every id follows the ids it depends on, considering only
// required dependencies inside the set, the same edges Build uses. Optional
// dependencies never constrain the order. Known host tools are ignored.
// Roots are visited in request order and dependencies in declaration order,
// so the result is deterministic.
//
// When a cycle is found, every id on it is marked cyclic. A cyclic id is
// still emitted if at least one of its in-set dependencies lies outside all
// cycles; otherwise it is withheld. The returned error is a
// *CircularDependencyError carrying the cycles and the partial order, which
// is also returned.
func (r *Resolver) Order(ids []string) ([]string, error) {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !manifest.IsKnownTool(id) {
			inSet[id] = true
		}
	}

	setDeps := func(id string) []string {
		var out []string
		for _, dep := range r.depsOf(id, false) {
			if dep != id && inSet[dep] {
				out = append(out, dep)
			}
		}
		return out
	}

	var (
		order   []string
		cycles  [][]string
		cyclic  = make(map[string]bool)
		flagged []string
		state   = make(map[string]visitState, len(inSet))
	)

	markCyclic := func(cycle []string) {
		for _, id := range cycle {
			if !cyclic[id] {
				cyclic[id] = true
				flagged = append(flagged, id)
			}
		}
	}

	type orderFrame struct {
		id   string
		deps []string
		next int
	}

	for _, root := range ids {
		if !inSet[root] || state[root] != unvisited {
			continue
		}

		state[root] = inProgress
		stack := []orderFrame{{id: root, deps: setDeps(root)}}
		pos := map[string]int{root: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.deps) {
				dep := top.deps[top.next]
				top.next++
				switch state[dep] {
				case inProgress:
					cycle := make([]string, 0, len(stack)-pos[dep]+1)
					for _, f := range stack[pos[dep]:] {
						cycle = append(cycle, f.id)
					}
					cycle = append(cycle, dep)
					cycles = append(cycles, cycle)
					markCyclic(cycle)
				case unvisited:
					state[dep] = inProgress
					pos[dep] = len(stack)
					stack = append(stack, orderFrame{id: dep, deps: setDeps(dep)})
				}
				continue
			}

			if !cyclic[top.id] || hasAcyclicDep(top.deps, cyclic) {
				order = append(order, top.id)
			}
			state[top.id] = done
			delete(pos, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	if len(cycles) > 0 {
		r.logger.Warn("circular dependencies detected", "cycles", len(cycles), "ids", flagged)
		return order, &CircularDependencyError{
			Cycles: cycles,
			IDs:    flagged,
			Order:  slices.Clone(order),
		}
	}
	return order, nil
}

func hasAcyclicDep(deps []string, cyclic map[string]bool) bool {
	for _, dep := range deps {
		if !cyclic[dep] {
			return true
		}
	}
	return false
}
