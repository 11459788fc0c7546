package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/graph"
)

// ResidualGraphError reports modules left unschedulable after Kahn's
// algorithm drained every zero-in-degree node. It should be unreachable
// given the builder's cycle check; the scheduler re-asserts it anyway.
type ResidualGraphError struct {
	Remaining []string
}

func (e *ResidualGraphError) Error() string {
	return fmt.Sprintf("internal consistency error: %d modules unschedulable, dependency cycle escaped graph validation: [%s]",
		len(e.Remaining), strings.Join(e.Remaining, ", "))
}

// Schedule topologically orders the validated graph into an execution
// plan using Kahn's algorithm: repeatedly collect every node with zero
// unresolved in-degree into the next tier, remove them and their outgoing
// edges, repeat until the graph is empty. Ties within a tier are broken by
// declaration order so that re-invoking Schedule on the same graph always
// yields identical tiers.
func Schedule(ctx context.Context, g *graph.Graph) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Schedule: Starting topological ordering.", "module_count", g.Len())

	remaining := make(map[string]int, g.Len())
	for _, node := range g.Nodes() {
		remaining[node.ID] = len(g.Dependencies(node.ID))
	}

	p := &Plan{Pattern: string(g.Pattern())}
	placed := 0

	for placed < g.Len() {
		var ready []*graph.ModuleSpec
		for _, node := range g.Nodes() {
			if deg, pending := remaining[node.ID]; pending && deg == 0 {
				ready = append(ready, node)
			}
		}

		if len(ready) == 0 {
			var stuck []string
			for id := range remaining {
				stuck = append(stuck, id)
			}
			sort.Strings(stuck)
			return nil, &ResidualGraphError{Remaining: stuck}
		}

		sort.Slice(ready, func(i, j int) bool { return ready[i].Ord() < ready[j].Ord() })

		tier := make(Tier, 0, len(ready))
		for _, node := range ready {
			tier = append(tier, renderModule(node))
			delete(remaining, node.ID)
			placed++
			for _, dependent := range g.Dependents(node.ID) {
				if _, pending := remaining[dependent]; pending {
					remaining[dependent]--
				}
			}
		}
		p.Tiers = append(p.Tiers, tier)
	}

	logger.Debug("Schedule: Plan produced.", "tiers", len(p.Tiers))
	return p, nil
}

// renderModule converts a graph module into its plan document form.
func renderModule(node *graph.ModuleSpec) Module {
	m := Module{
		ID:      node.ID,
		Type:    node.Type,
		Outputs: node.Produces,
	}
	if len(node.Params) > 0 {
		m.Params = make(map[string]any, len(node.Params))
		for _, name := range node.ParamOrder {
			ref, bound := node.Params[name]
			if !bound {
				// Optional parameter dropped during building.
				continue
			}
			m.Params[name] = renderParam(ref)
		}
	}
	return m
}

// renderParam converts a parameter binding into a plain document value.
func renderParam(ref graph.ParamRef) any {
	switch ref.Kind {
	case graph.Literal:
		return ctyToGo(ref.Value)
	case graph.OutputRef:
		return fmt.Sprintf("${%s.%s}", ref.Module, ref.Output)
	default:
		return nil
	}
}
