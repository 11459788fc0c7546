package graph

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/archplan/internal/catalog"
	"github.com/vk/archplan/internal/classifier"
)

// ParamRefKind distinguishes the three states a module parameter can be in.
type ParamRefKind int

const (
	// Placeholder marks a declared parameter that has not been bound yet.
	// A placeholder surviving graph construction is a fatal error.
	Placeholder ParamRefKind = iota
	// Literal is a concrete value resolved from catalog configuration.
	Literal
	// OutputRef points at another module's output; it is resolved by the
	// apply executor once the referenced module is realized.
	OutputRef
)

// ParamRef is the binding of one module parameter: a literal value, a
// reference to another module's output, or an unresolved placeholder.
type ParamRef struct {
	Kind    ParamRefKind
	Value   cty.Value // valid when Kind == Literal
	Module  string    // valid when Kind == OutputRef
	Output  string    // valid when Kind == OutputRef
}

// LiteralRef builds a literal parameter binding.
func LiteralRef(v cty.Value) ParamRef {
	return ParamRef{Kind: Literal, Value: v}
}

// OutputRefTo builds a binding that points at moduleID's named output.
func OutputRefTo(moduleID, output string) ParamRef {
	return ParamRef{Kind: OutputRef, Module: moduleID, Output: output}
}

// String renders the reference for diagnostics and plan documents.
func (r ParamRef) String() string {
	switch r.Kind {
	case Literal:
		return r.Value.GoString()
	case OutputRef:
		return fmt.Sprintf("${%s.%s}", r.Module, r.Output)
	default:
		return "<unbound>"
	}
}

// ModuleSpec is one module instance in a resource graph.
type ModuleSpec struct {
	// ID is unique within the graph. One instance of a module type exists
	// per graph, so the id is the catalog type.
	ID   string
	Type string
	// Role, Auth and Endpoint are copied from the catalog template so that
	// policy rules can run against the graph alone.
	Role     string
	Auth     catalog.AuthMode
	Endpoint *catalog.Endpoint

	// Params holds the resolved parameter bindings keyed by name;
	// ParamOrder preserves the manifest declaration order for
	// deterministic rendering.
	Params     map[string]ParamRef
	ParamOrder []string
	// Produces lists the output names this module makes available to
	// dependents, in manifest order.
	Produces []string

	// ord is the instantiation index, used as the deterministic tie-break
	// during scheduling.
	ord int
}

// Ord returns the module's declaration order within its graph.
func (m *ModuleSpec) Ord() int {
	return m.ord
}

// Edge is a directed dependency: To must be realized before From can bind
// its parameters.
type Edge struct {
	From string
	To   string
}

// Graph is the dependency-annotated collection of module instances for one
// provisioning request. It is mutated only during building and must be
// treated as immutable once handed to the policy validator.
type Graph struct {
	nodes      map[string]*ModuleSpec
	order      []string
	deps       map[string]map[string]struct{}
	dependents map[string]map[string]struct{}

	pattern       classifier.Pattern
	requiredRoles []string
}

// CycleError is the fatal result of detecting a dependency cycle. Chain
// names the modules along the cycle, ending where it started.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	out := "dependency cycle detected: "
	for i, id := range e.Chain {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}

// UnresolvedParameterError reports a parameter that could not be bound:
// either it references an output no module in the graph produces, or it is
// required and has neither a default nor a binding.
type UnresolvedParameterError struct {
	ModuleID string
	Param    string
	Reason   string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("module %q: parameter %q is unresolved: %s", e.ModuleID, e.Param, e.Reason)
}
