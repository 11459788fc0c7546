// Package signal defines the typed vocabulary of detectable application
// features. A signal is a boolean fact about the analyzed application
// ("calls a language model", "needs a custom backend process") together
// with optional supporting evidence.
//
// Signals are produced once per classification run by an external analyzer
// and are immutable afterwards.
package signal

// Well-known signal identifiers. External analyzers may emit additional
// ids; the engine ignores identifiers it does not recognize so that newer
// analyzers remain compatible with older catalogs.
const (
	UsesLLMCalls            = "uses-llm-calls"
	UsesKVStorage           = "uses-kv-storage"
	UsesRelationalDB        = "uses-relational-db"
	UsesFileUploads         = "uses-file-uploads"
	HasCustomBackend        = "has-custom-backend"
	HasPublicFrontend       = "has-public-frontend"
	NeedsWorkflowAutomation = "needs-workflow-automation"
)

// Known reports whether id belongs to the built-in signal vocabulary.
func Known(id string) bool {
	switch id {
	case UsesLLMCalls, UsesKVStorage, UsesRelationalDB, UsesFileUploads,
		HasCustomBackend, HasPublicFrontend, NeedsWorkflowAutomation:
		return true
	}
	return false
}

// Signal is a single detected feature fact.
type Signal struct {
	ID       string `yaml:"id" validate:"required"`
	Present  bool   `yaml:"present"`
	Evidence string `yaml:"evidence,omitempty"`
}

// Set is an immutable collection of signals keyed by id. Declaration order
// is preserved for diagnostics.
type Set struct {
	byID  map[string]Signal
	order []string
}

// NewSet builds a Set from the given signals. A duplicate id overwrites the
// earlier record but keeps its original position.
func NewSet(signals ...Signal) *Set {
	s := &Set{byID: make(map[string]Signal, len(signals))}
	for _, sig := range signals {
		if _, seen := s.byID[sig.ID]; !seen {
			s.order = append(s.order, sig.ID)
		}
		s.byID[sig.ID] = sig
	}
	return s
}

// Present reports whether the signal with the given id was detected as
// present. Absent records and unknown ids both report false.
func (s *Set) Present(id string) bool {
	sig, ok := s.byID[id]
	return ok && sig.Present
}

// Get returns the full record for the given id.
func (s *Set) Get(id string) (Signal, bool) {
	sig, ok := s.byID[id]
	return sig, ok
}

// IDs returns all signal ids in declaration order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of distinct signal ids in the set.
func (s *Set) Len() int {
	return len(s.order)
}
