// Package plan turns a validated resource graph into a deterministic,
// tiered provisioning plan, serializes it for external executors and
// renderers, and diffs freshly generated plans against persisted ones.
//
// The scheduler assigns no wall-clock semantics; it only defines the
// partial order execution must respect. Modules within a tier have no data
// dependency on one another by construction and may be applied
// concurrently; tier N+1 must never start before every module in tier N
// completes.
package plan
