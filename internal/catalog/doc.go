// Package catalog provides the registry of infrastructure module templates
// and architecture pattern definitions.
//
// The catalog is read-only configuration, loaded once at process start from
// a versioned directory of HCL files. Each module template declares its
// parameter and output contract, its authentication and endpoint
// attributes, and the module types it statically depends on. Pattern
// definitions bundle templates into required and signal-gated optional
// sets and wire module outputs to dependents' parameters.
//
// After loading, the catalog is cross-validated so that every reference
// between blocks (static dependencies, pattern module lists, binds) names
// something that exists. A lookup of an unknown module type at runtime is
// a fatal configuration error, never a fallback.
package catalog
