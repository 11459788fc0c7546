// Package engine composes the classification, graph building, policy
// validation, and scheduling stages into one pipeline.
//
// The pipeline is pure, synchronous, single-threaded computation with no
// I/O: safe to run on any thread, with no shared mutable state beyond the
// request-scoped graph under construction. Each stage returns either a
// success value or a typed failure; no stage partially mutates shared
// state, and nothing is silently retried.
package engine

import (
	"context"
	"fmt"

	"github.com/vk/archplan/internal/catalog"
	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/graph"
	"github.com/vk/archplan/internal/plan"
	"github.com/vk/archplan/internal/policy"
	"github.com/vk/archplan/internal/signal"
)

// Stage names the pipeline stage a failure originated in.
type Stage string

const (
	StageClassify Stage = "classify"
	StageBuild    Stage = "build"
	StageValidate Stage = "validate"
	StageSchedule Stage = "schedule"
)

// State tracks the pipeline's progress. PlanReady is terminal for this
// engine; Failed is reachable from every state.
type State string

const (
	SignalsCollected State = "signals-collected"
	Classified       State = "classified"
	GraphBuilt       State = "graph-built"
	Validated        State = "validated"
	Scheduled        State = "scheduled"
	PlanReady        State = "plan-ready"
	Failed           State = "failed"
)

// StageError wraps a stage failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result accumulates the pipeline's artifacts. Fields are populated as
// stages complete; on failure the fields of completed stages remain set so
// callers can surface partial context (e.g. the violations of a failed
// validation).
type Result struct {
	State      State
	Pattern    classifier.Pattern
	Graph      *graph.Graph
	Validation *policy.Result
	Plan       *plan.Plan
}

// Engine wires a loaded catalog, a decision table, and a policy validator
// into the full pipeline.
type Engine struct {
	catalog   *catalog.Catalog
	table     *classifier.Table
	validator *policy.Validator
}

// New creates an engine around a loaded catalog, using the catalog's
// decision table (operator rules when declared, built-in otherwise) and
// the default policy rule set.
func New(cat *catalog.Catalog) (*Engine, error) {
	table, err := cat.DecisionTable()
	if err != nil {
		return nil, fmt.Errorf("failed to construct decision table: %w", err)
	}
	return &Engine{
		catalog:   cat,
		table:     table,
		validator: policy.NewValidator(),
	}, nil
}

// Classify runs only the classification stage.
func (e *Engine) Classify(ctx context.Context, signals *signal.Set) (classifier.Pattern, error) {
	pattern, err := e.table.Classify(ctx, signals)
	if err != nil {
		return "", &StageError{Stage: StageClassify, Err: err}
	}
	return pattern, nil
}

// BuildGraph runs the pipeline through graph construction.
func (e *Engine) BuildGraph(ctx context.Context, signals *signal.Set) (*Result, error) {
	result := &Result{State: SignalsCollected}
	logger := ctxlog.FromContext(ctx)

	pattern, err := e.Classify(ctx, signals)
	if err != nil {
		result.State = Failed
		return result, err
	}
	result.Pattern = pattern
	result.State = Classified
	logger.Debug("Pipeline: classified.", "pattern", pattern)

	g, err := graph.Build(ctx, e.catalog, pattern, signals)
	if err != nil {
		result.State = Failed
		return result, &StageError{Stage: StageBuild, Err: err}
	}
	result.Graph = g
	result.State = GraphBuilt
	logger.Debug("Pipeline: graph built.", "module_count", g.Len())

	return result, nil
}

// Validate runs the pipeline through policy validation. The returned
// Result carries the full violation list even when validation fails, so
// operators see the complete remediation list in one pass.
func (e *Engine) Validate(ctx context.Context, signals *signal.Set) (*Result, error) {
	result, err := e.BuildGraph(ctx, signals)
	if err != nil {
		return result, err
	}

	validation := e.validator.Validate(ctx, result.Graph)
	result.Validation = validation
	if !validation.OK() {
		result.State = Failed
		return result, &StageError{
			Stage: StageValidate,
			Err:   &policy.FatalViolationsError{Violations: validation.Fatal()},
		}
	}
	result.State = Validated
	return result, nil
}

// Run executes the full pipeline: classify, build, validate, schedule.
func (e *Engine) Run(ctx context.Context, signals *signal.Set) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	result, err := e.Validate(ctx, signals)
	if err != nil {
		return result, err
	}

	p, err := plan.Schedule(ctx, result.Graph)
	if err != nil {
		result.State = Failed
		return result, &StageError{Stage: StageSchedule, Err: err}
	}
	result.Plan = p
	result.State = Scheduled

	result.State = PlanReady
	logger.Debug("Pipeline: plan ready.", "tiers", len(p.Tiers))
	return result, nil
}
