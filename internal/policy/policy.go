// Package policy runs a fixed rule set over a built resource graph and
// reports every violation it finds. Global conventions like "always use
// managed identity" live here as mechanically checked rules rather than
// scattered guidance.
//
// Rules run independently against the full graph and never mutate it.
// Fatal violations block plan production; warnings are attached to the
// successful result for the caller to surface. Validation never repairs a
// graph — repair is an explicit re-build driven by the caller acting on
// the violation list.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/graph"
)

// Severity classifies how a violation affects the pipeline.
type Severity int

const (
	// Warning violations pass through with the result for visibility.
	Warning Severity = iota
	// Fatal violations make the overall result failed.
	Fatal
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "warning"
}

// Violation is one rule failure against one module (or the graph as a
// whole when ModuleID is empty).
type Violation struct {
	RuleID   string   `yaml:"rule"`
	Severity Severity `yaml:"-"`
	ModuleID string   `yaml:"module,omitempty"`
	Message  string   `yaml:"message"`
}

// Rule is a single mechanically checked invariant.
type Rule struct {
	ID          string
	Severity    Severity
	Description string
	// Check inspects the graph and returns a violation per offending
	// module. RuleID and Severity are stamped by the validator.
	Check func(g *graph.Graph) []Violation
}

// Result carries every violation found in one validation pass.
type Result struct {
	Violations []Violation
}

// OK reports whether the graph passed: no fatal violations.
func (r *Result) OK() bool {
	return len(r.Fatal()) == 0
}

// Fatal returns only the fatal violations.
func (r *Result) Fatal() []Violation {
	return r.filter(Fatal)
}

// Warnings returns only the warning violations.
func (r *Result) Warnings() []Violation {
	return r.filter(Warning)
}

func (r *Result) filter(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// FatalViolationsError is returned by callers that need the failed result
// as an error value. All fatal violations are reported together rather
// than failing fast on the first, so operators see the complete
// remediation list.
type FatalViolationsError struct {
	Violations []Violation
}

func (e *FatalViolationsError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.ModuleID != "" {
			msgs = append(msgs, fmt.Sprintf("[%s] module %q: %s", v.RuleID, v.ModuleID, v.Message))
		} else {
			msgs = append(msgs, fmt.Sprintf("[%s] %s", v.RuleID, v.Message))
		}
	}
	return fmt.Sprintf("policy validation failed:\n- %s", strings.Join(msgs, "\n- "))
}

// Validator runs an ordered rule set over resource graphs.
type Validator struct {
	rules []Rule
}

// NewValidator creates a validator with the given rules, defaulting to the
// built-in rule set when none are supplied.
func NewValidator(rules ...Rule) *Validator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Validator{rules: rules}
}

// Validate runs every rule against the graph and collects all violations.
// The graph is read-only from the validator's point of view.
func (v *Validator) Validate(ctx context.Context, g *graph.Graph) *Result {
	logger := ctxlog.FromContext(ctx)
	result := &Result{}

	for _, rule := range v.rules {
		found := rule.Check(g)
		for i := range found {
			found[i].RuleID = rule.ID
			found[i].Severity = rule.Severity
		}
		if len(found) > 0 {
			logger.Debug("Policy rule reported violations.",
				"rule", rule.ID, "severity", rule.Severity.String(), "count", len(found))
		}
		result.Violations = append(result.Violations, found...)
	}

	logger.Debug("Policy validation finished.",
		"fatal", len(result.Fatal()), "warnings", len(result.Warnings()))
	return result
}
