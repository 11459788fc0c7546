package plan

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/archplan/internal/ctxlog"
)

// Module is one module instance in a provisioning plan, carrying its
// resolved type, bound parameters, and declared outputs. Output references
// are rendered as "${module.output}" strings for the external executor to
// substitute at apply time.
type Module struct {
	ID      string         `yaml:"id"`
	Type    string         `yaml:"type"`
	Params  map[string]any `yaml:"params,omitempty"`
	Outputs []string       `yaml:"outputs,omitempty"`
}

// Tier is a set of modules with no remaining dependency on each other,
// executable in parallel. Order within a tier follows declaration order.
type Tier []Module

// Plan is the engine's terminal output: an ordered list of execution
// tiers. Ownership passes to the external executor or renderer.
type Plan struct {
	Pattern string `yaml:"pattern"`
	Tiers   []Tier `yaml:"tiers"`
}

// Modules returns every module in tier order, then tier-internal order.
func (p *Plan) Modules() []Module {
	var out []Module
	for _, tier := range p.Tiers {
		out = append(out, tier...)
	}
	return out
}

// TierIndex returns the tier a module id is placed in, or -1.
func (p *Plan) TierIndex(id string) int {
	for i, tier := range p.Tiers {
		for _, m := range tier {
			if m.ID == id {
				return i
			}
		}
	}
	return -1
}

// Encode writes the plan document as YAML.
func (p *Plan) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode plan document: %w", err)
	}
	return enc.Close()
}

// Load reads a previously persisted plan document from a YAML file.
func Load(ctx context.Context, path string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading persisted plan.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan document %s: %w", path, err)
	}
	var p Plan
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan document %s: %w", path, err)
	}
	return &p, nil
}
