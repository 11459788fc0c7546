// Package graph assembles a chosen architecture pattern and a signal set
// into a concrete dependency graph of module instances.
//
// The builder instantiates one ModuleSpec per entry in the pattern's
// required module set, adds signal-gated optional modules, and resolves
// every declared parameter to either a literal from the catalog or a
// reference to another module's output. Each output reference, plus each
// catalog-declared static dependency, becomes a directed edge. The result
// is structurally verified (cycle detection, no unresolved parameters) and
// then treated as immutable by downstream stages.
//
// This package does not select the pattern (the classifier's job) and does
// not validate policy (the policy package's job).
package graph
