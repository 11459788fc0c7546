package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/engine"
	"github.com/vk/archplan/internal/plan"
	"github.com/vk/archplan/internal/policy"
)

// Classify runs the classification stage and prints the selected pattern.
func (a *App) Classify(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	signals, err := a.loadSignals(ctx)
	if err != nil {
		return err
	}
	pattern, err := a.engine.Classify(ctx, signals)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.outW, pattern)
	return nil
}

// graphDoc is the YAML rendering of a built graph for the build command.
type graphDoc struct {
	Pattern string           `yaml:"pattern"`
	Modules []graphModuleDoc `yaml:"modules"`
	Edges   []string         `yaml:"edges,omitempty"`
}

type graphModuleDoc struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Role    string   `yaml:"role"`
	Params  []string `yaml:"params,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

// Build runs the pipeline through graph construction and prints the graph.
func (a *App) Build(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	signals, err := a.loadSignals(ctx)
	if err != nil {
		return err
	}
	result, err := a.engine.BuildGraph(ctx, signals)
	if err != nil {
		return err
	}

	doc := graphDoc{Pattern: string(result.Pattern)}
	for _, node := range result.Graph.Nodes() {
		m := graphModuleDoc{
			ID:      node.ID,
			Type:    node.Type,
			Role:    node.Role,
			Outputs: node.Produces,
		}
		for _, name := range node.ParamOrder {
			if ref, bound := node.Params[name]; bound {
				m.Params = append(m.Params, fmt.Sprintf("%s = %s", name, ref.String()))
			}
		}
		doc.Modules = append(doc.Modules, m)
	}
	for _, edge := range result.Graph.Edges() {
		doc.Edges = append(doc.Edges, fmt.Sprintf("%s -> %s", edge.From, edge.To))
	}

	return encodeYAML(a.outW, &doc)
}

// Validate runs the pipeline through policy validation and prints every
// violation. A fatal violation set is returned as the command error after
// the full list has been printed.
func (a *App) Validate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	signals, err := a.loadSignals(ctx)
	if err != nil {
		return err
	}
	result, verr := a.engine.Validate(ctx, signals)
	if result == nil || result.Validation == nil {
		return verr
	}

	type violationDoc struct {
		Rule     string `yaml:"rule"`
		Severity string `yaml:"severity"`
		Module   string `yaml:"module,omitempty"`
		Message  string `yaml:"message"`
	}
	doc := struct {
		Pattern    string         `yaml:"pattern"`
		Valid      bool           `yaml:"valid"`
		Violations []violationDoc `yaml:"violations,omitempty"`
	}{
		Pattern: string(result.Pattern),
		Valid:   result.Validation.OK(),
	}
	for _, v := range result.Validation.Violations {
		doc.Violations = append(doc.Violations, violationDoc{
			Rule:     v.RuleID,
			Severity: v.Severity.String(),
			Module:   v.ModuleID,
			Message:  v.Message,
		})
	}

	if err := encodeYAML(a.outW, &doc); err != nil {
		return err
	}
	return verr
}

// Plan runs the full pipeline and writes the plan document to OutPath or
// stdout. Warnings pass through on the log stream; only fatal violations
// block the plan.
func (a *App) Plan(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	result, err := a.runPipeline(ctx)
	if err != nil {
		return err
	}

	if a.config.OutPath != "" {
		f, err := os.Create(a.config.OutPath)
		if err != nil {
			return fmt.Errorf("failed to create plan output file: %w", err)
		}
		defer f.Close()
		a.logger.Info("Writing plan document.", "path", a.config.OutPath, "tiers", len(result.Plan.Tiers))
		return result.Plan.Encode(f)
	}
	return result.Plan.Encode(a.outW)
}

// Diff runs the full pipeline and classifies each module of the fresh
// plan against the previously persisted one.
func (a *App) Diff(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.config.PreviousPlanPath == "" {
		return fmt.Errorf("no previous plan provided; pass --previous")
	}

	result, err := a.runPipeline(ctx)
	if err != nil {
		return err
	}
	previous, err := plan.Load(ctx, a.config.PreviousPlanPath)
	if err != nil {
		return err
	}

	diff := plan.Compare(previous, result.Plan)
	if diff.NoChanges() {
		fmt.Fprintln(a.outW, "no changes")
		return nil
	}

	doc := struct {
		Summary string             `yaml:"summary"`
		Changes []plan.ModuleChange `yaml:"changes"`
	}{
		Summary: fmt.Sprintf("%d added, %d modified, %d removed, %d unchanged",
			diff.Count(plan.Added), diff.Count(plan.Modified),
			diff.Count(plan.Removed), diff.Count(plan.Unchanged)),
		Changes: diff.Changes,
	}
	return encodeYAML(a.outW, &doc)
}

// runPipeline executes the full pipeline and surfaces warnings on the log
// stream.
func (a *App) runPipeline(ctx context.Context) (*engine.Result, error) {
	signals, err := a.loadSignals(ctx)
	if err != nil {
		return nil, err
	}
	result, err := a.engine.Run(ctx, signals)
	if err != nil {
		return nil, err
	}
	a.warn(result.Validation)
	return result, nil
}

// warn logs warning-severity violations attached to a successful result.
func (a *App) warn(validation *policy.Result) {
	if validation == nil {
		return
	}
	for _, v := range validation.Warnings() {
		a.logger.Warn("Policy warning.", "rule", v.RuleID, "module", v.ModuleID, "message", v.Message)
	}
}

func encodeYAML(w io.Writer, doc any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode output document: %w", err)
	}
	return enc.Close()
}
