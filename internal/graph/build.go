package graph

import (
	"context"
	"fmt"

	"github.com/vk/archplan/internal/catalog"
	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/signal"
)

// Build expands a chosen pattern and the detected signals into a concrete,
// structurally verified resource graph.
func Build(ctx context.Context, cat *catalog.Catalog, pattern classifier.Pattern, signals *signal.Set) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "pattern", pattern)

	spec, err := cat.Pattern(pattern)
	if err != nil {
		return nil, err
	}

	b := &builder{
		cat:       cat,
		spec:      spec,
		graph:     New(pattern, spec.RequiredRoles),
		templates: make(map[string]*catalog.ModuleTemplate),
		prunable:  make(map[string]bool),
	}

	// First pass: create all module instances.
	if err := b.instantiateModules(ctx, signals); err != nil {
		return nil, err
	}
	logger.Debug("Build: Module instantiation complete.", "module_count", b.graph.Len())

	// Second pass: resolve parameters and link dependencies.
	if err := b.bindParameters(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Build: Parameter binding complete.")

	// Third pass: drop provider-only optional modules nothing references.
	b.pruneUnreferenced(ctx)

	if err := b.graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Debug("Build: Graph construction successful.", "module_count", b.graph.Len())
	return b.graph, nil
}

type builder struct {
	cat       *catalog.Catalog
	spec      *catalog.PatternSpec
	graph     *Graph
	templates map[string]*catalog.ModuleTemplate
	prunable  map[string]bool
}

// instantiateModules creates one ModuleSpec per required pattern module,
// one per satisfied signal-gated optional, and one per catalog-declared
// static dependency not already present.
func (b *builder) instantiateModules(ctx context.Context, signals *signal.Set) error {
	logger := ctxlog.FromContext(ctx)

	for _, moduleType := range b.spec.Modules {
		if err := b.addInstance(moduleType); err != nil {
			return err
		}
	}

	for _, opt := range b.spec.Optionals {
		if !signals.Present(opt.WhenSignal) {
			logger.Debug("Optional module skipped, gating signal absent.",
				"module", opt.Type, "signal", opt.WhenSignal)
			continue
		}
		if _, exists := b.graph.Node(opt.Type); exists {
			continue
		}
		if err := b.addInstance(opt.Type); err != nil {
			return err
		}
		b.prunable[opt.Type] = opt.PruneIfUnreferenced
		logger.Debug("Optional module instantiated.", "module", opt.Type, "signal", opt.WhenSignal)
	}

	// Static dependencies pull in module types the pattern did not list
	// explicitly; a backend always gets its secrets store even if the
	// pattern author forgot it. Walk until the closure is complete.
	for i := 0; i < len(b.graph.order); i++ {
		tmpl := b.templates[b.graph.order[i]]
		for _, dep := range tmpl.DependsOn {
			if _, exists := b.graph.Node(dep); exists {
				continue
			}
			if err := b.addInstance(dep); err != nil {
				return err
			}
			logger.Debug("Static dependency instantiated.", "module", dep, "required_by", tmpl.Type)
		}
	}

	return nil
}

// addInstance looks up the catalog template and adds a module instance to
// the graph with all parameters still unbound.
func (b *builder) addInstance(moduleType string) error {
	tmpl, err := b.cat.Lookup(moduleType)
	if err != nil {
		return err
	}

	params := make(map[string]ParamRef, len(tmpl.ParamNames()))
	for _, name := range tmpl.ParamNames() {
		params[name] = ParamRef{Kind: Placeholder}
	}

	node := &ModuleSpec{
		ID:         moduleType,
		Type:       moduleType,
		Role:       tmpl.Role,
		Auth:       tmpl.Auth,
		Endpoint:   tmpl.Endpoint,
		Params:     params,
		ParamOrder: tmpl.ParamNames(),
		Produces:   tmpl.OutputNames(),
	}
	if err := b.graph.AddNode(node); err != nil {
		return err
	}
	b.templates[moduleType] = tmpl
	return nil
}

// bindParameters resolves every placeholder to a literal or an output
// reference, inserting a dependency edge for each reference and each
// static dependency. A placeholder surviving this pass is fatal.
func (b *builder) bindParameters(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	// Pattern binds take precedence over catalog defaults.
	for _, bind := range b.spec.Binds {
		target, ok := b.graph.Node(bind.TargetModule)
		if !ok {
			// The target was gated out by its signal; nothing to wire.
			continue
		}
		source, ok := b.graph.Node(bind.FromModule)
		if !ok {
			if bind.Optional {
				logger.Debug("Optional bind skipped, source module not in graph.",
					"target", bind.TargetModule, "param", bind.TargetParam, "source", bind.FromModule)
				continue
			}
			return &UnresolvedParameterError{
				ModuleID: bind.TargetModule,
				Param:    bind.TargetParam,
				Reason:   fmt.Sprintf("references output %s.%s, but module %q is not part of the graph", bind.FromModule, bind.FromOutput, bind.FromModule),
			}
		}

		if !producesOutput(source, bind.FromOutput) {
			return &UnresolvedParameterError{
				ModuleID: bind.TargetModule,
				Param:    bind.TargetParam,
				Reason:   fmt.Sprintf("references output %s.%s, which module %q does not produce", bind.FromModule, bind.FromOutput, bind.FromModule),
			}
		}

		target.Params[bind.TargetParam] = OutputRefTo(bind.FromModule, bind.FromOutput)
		if err := b.graph.AddEdge(target.ID, source.ID); err != nil {
			return err
		}
	}

	for _, id := range b.graph.order {
		node := b.graph.nodes[id]
		tmpl := b.templates[id]

		for _, name := range node.ParamOrder {
			if node.Params[name].Kind != Placeholder {
				continue
			}
			paramSpec, _ := tmpl.Param(name)
			switch {
			case paramSpec.Default != nil:
				node.Params[name] = LiteralRef(*paramSpec.Default)
			case paramSpec.Optional:
				// Optional and unbound: drop it from the instance entirely
				// rather than carrying a dead placeholder into the plan.
				delete(node.Params, name)
			default:
				return &UnresolvedParameterError{
					ModuleID: id,
					Param:    name,
					Reason:   "required parameter has no default value and no binding",
				}
			}
		}

		for _, dep := range tmpl.DependsOn {
			if _, exists := b.graph.Node(dep); !exists {
				// Unreachable after instantiateModules' closure walk.
				return fmt.Errorf("module %q: static dependency %q missing from graph", id, dep)
			}
			if err := b.graph.AddEdge(id, dep); err != nil {
				return err
			}
		}
	}

	return nil
}

// pruneUnreferenced removes provider-only optional modules whose outputs
// nothing in the graph consumes, repeating until a fixpoint since a prune
// can orphan another prunable module.
func (b *builder) pruneUnreferenced(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for {
		pruned := false
		for id, prune := range b.prunable {
			if !prune {
				continue
			}
			if _, exists := b.graph.Node(id); !exists {
				continue
			}
			if len(b.graph.dependents[id]) > 0 {
				continue
			}
			logger.Debug("Pruning unreferenced optional module.", "module", id)
			b.graph.removeNode(id)
			pruned = true
		}
		if !pruned {
			return
		}
	}
}

func producesOutput(node *ModuleSpec, output string) bool {
	for _, name := range node.Produces {
		if name == output {
			return true
		}
	}
	return false
}
