package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/schema"
	"github.com/vk/archplan/internal/signal"
)

// Row is a single row of the decision table: a conjunction of signal
// predicates that, when satisfied, selects its pattern. Rows are evaluated
// top to bottom and the first match wins.
type Row struct {
	Pattern Pattern
	// AllOf requires every listed signal to be present.
	AllOf []string
	// AnyOf requires at least one listed signal to be present. An empty
	// list imposes no constraint.
	AnyOf []string
	// NoneOf requires every listed signal to be absent.
	NoneOf []string
}

// matches evaluates the row's predicates against a signal set.
func (r Row) matches(signals *signal.Set) bool {
	for _, id := range r.AllOf {
		if !signals.Present(id) {
			return false
		}
	}
	if len(r.AnyOf) > 0 {
		any := false
		for _, id := range r.AnyOf {
			if signals.Present(id) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, id := range r.NoneOf {
		if signals.Present(id) {
			return false
		}
	}
	return true
}

// Table is an ordered decision table. It is immutable after construction.
type Table struct {
	rows []Row
}

// NewTable builds a decision table from the given rows, rejecting rows
// whose pattern is outside the closed enumeration.
func NewTable(rows ...Row) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("decision table must contain at least one row")
	}
	for i, row := range rows {
		if !row.Pattern.Valid() {
			return nil, fmt.Errorf("decision table row %d names unknown pattern %q", i, row.Pattern)
		}
		if len(row.AllOf)+len(row.AnyOf)+len(row.NoneOf) == 0 {
			return nil, fmt.Errorf("decision table row %d for pattern %q has no predicates", i, row.Pattern)
		}
	}
	return &Table{rows: rows}, nil
}

// DefaultTable returns the built-in decision table. Precedence, highest
// first: explicit workflow automation; custom backend or relational
// storage; AI calls or key/value state without a custom backend; no
// backend signals at all.
func DefaultTable() *Table {
	table, err := NewTable(
		Row{
			Pattern: WorkflowAutomation,
			AnyOf:   []string{signal.NeedsWorkflowAutomation},
		},
		Row{
			Pattern: ContainerStack,
			AnyOf:   []string{signal.HasCustomBackend, signal.UsesRelationalDB},
		},
		Row{
			Pattern: ServerlessApi,
			AnyOf:   []string{signal.UsesLLMCalls, signal.UsesKVStorage},
			NoneOf:  []string{signal.HasCustomBackend},
		},
		Row{
			Pattern: StaticSite,
			NoneOf: []string{
				signal.NeedsWorkflowAutomation,
				signal.HasCustomBackend,
				signal.UsesRelationalDB,
				signal.UsesLLMCalls,
				signal.UsesKVStorage,
			},
		},
	)
	if err != nil {
		// The built-in table is a compile-time constant in all but syntax;
		// failing to construct it is a programmer error.
		panic(err)
	}
	return table
}

// TableFromRules translates operator-supplied HCL rule blocks into a
// decision table, preserving their declaration order.
func TableFromRules(defs []*schema.RuleDefinition) (*Table, error) {
	rows := make([]Row, 0, len(defs))
	for _, def := range defs {
		pattern, err := ParsePattern(def.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid classifier rule: %w", err)
		}
		rows = append(rows, Row{
			Pattern: pattern,
			AllOf:   def.AllOf,
			AnyOf:   def.AnyOf,
			NoneOf:  def.NoneOf,
		})
	}
	return NewTable(rows...)
}

// Classify selects the architecture pattern for the given signal set by
// evaluating the table rows in order. It has no side effects.
func (t *Table) Classify(ctx context.Context, signals *signal.Set) (Pattern, error) {
	logger := ctxlog.FromContext(ctx)

	for i, row := range t.rows {
		if row.matches(signals) {
			logger.Debug("Decision table row matched.", "row", i, "pattern", row.Pattern)
			return row.Pattern, nil
		}
	}

	return "", &AmbiguousError{Signals: presentIDs(signals)}
}

// AmbiguousError reports that no decision-table row matched the input. It
// carries the present signals so the operator can see what was considered.
type AmbiguousError struct {
	Signals []string
}

func (e *AmbiguousError) Error() string {
	if len(e.Signals) == 0 {
		return "classification ambiguous: no decision-table row matched (no signals present)"
	}
	return fmt.Sprintf("classification ambiguous: no decision-table row matched signals [%s]",
		strings.Join(e.Signals, ", "))
}

// presentIDs returns the ids of all signals detected as present, in
// declaration order.
func presentIDs(signals *signal.Set) []string {
	var present []string
	for _, id := range signals.IDs() {
		if signals.Present(id) {
			present = append(present, id)
		}
	}
	return present
}
