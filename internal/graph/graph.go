package graph

import (
	"fmt"
	"sort"

	"github.com/vk/archplan/internal/classifier"
)

// New creates an initialized, empty Graph for the given pattern.
func New(pattern classifier.Pattern, requiredRoles []string) *Graph {
	return &Graph{
		nodes:         make(map[string]*ModuleSpec),
		deps:          make(map[string]map[string]struct{}),
		dependents:    make(map[string]map[string]struct{}),
		pattern:       pattern,
		requiredRoles: requiredRoles,
	}
}

// Pattern returns the architecture pattern this graph was built for.
func (g *Graph) Pattern() classifier.Pattern {
	return g.pattern
}

// RequiredRoles returns the pattern's mandatory capability roles.
func (g *Graph) RequiredRoles() []string {
	out := make([]string, len(g.requiredRoles))
	copy(out, g.requiredRoles)
	return out
}

// AddNode adds a module instance to the graph. Adding a duplicate id is an
// error: module ids must be unique within a graph.
func (g *Graph) AddNode(spec *ModuleSpec) error {
	if _, exists := g.nodes[spec.ID]; exists {
		return fmt.Errorf("duplicate module id %q in graph", spec.ID)
	}
	spec.ord = len(g.order)
	g.nodes[spec.ID] = spec
	g.order = append(g.order, spec.ID)
	g.deps[spec.ID] = make(map[string]struct{})
	g.dependents[spec.ID] = make(map[string]struct{})
	return nil
}

// AddEdge records that `from` depends on `to`: `to` must be realized
// before `from` can bind its parameters. Both nodes must exist and
// self-references are rejected.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}
	if _, ok := g.nodes[fromID]; !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	g.deps[fromID][toID] = struct{}{}
	g.dependents[toID][fromID] = struct{}{}
	return nil
}

// removeNode drops a module and every edge touching it.
func (g *Graph) removeNode(id string) {
	for dep := range g.deps[id] {
		delete(g.dependents[dep], id)
	}
	for dependent := range g.dependents[id] {
		delete(g.deps[dependent], id)
	}
	delete(g.deps, id)
	delete(g.dependents, id)
	delete(g.nodes, id)
	for i, ordered := range g.order {
		if ordered == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Node returns the module with the given id.
func (g *Graph) Node(id string) (*ModuleSpec, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all modules in declaration order.
func (g *Graph) Nodes() []*ModuleSpec {
	out := make([]*ModuleSpec, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of modules in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Dependencies returns the sorted ids the given module depends on.
func (g *Graph) Dependencies(id string) []string {
	return sortedKeys(g.deps[id])
}

// Dependents returns the sorted ids that depend on the given module.
func (g *Graph) Dependents(id string) []string {
	return sortedKeys(g.dependents[id])
}

// Edges returns every dependency edge, ordered by (From, To) for
// deterministic output.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range g.order {
		for _, to := range sortedKeys(g.deps[from]) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// DetectCycles checks the graph for dependency cycles using depth-first
// search with recursion-stack tracking. On detection it returns a
// *CycleError naming the module chain; a cycle is a hard construction
// error, never silently broken.
func (g *Graph) DetectCycles() error {
	permanent := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if onStack[id] {
			// Slice the recursion stack from the first occurrence of id to
			// report the full cycle chain.
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			chain := append(append([]string{}, stack[start:]...), id)
			return &CycleError{Chain: chain}
		}

		onStack[id] = true
		stack = append(stack, id)

		for _, dep := range sortedKeys(g.deps[id]) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
