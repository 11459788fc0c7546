// Package classifier maps a set of detected feature signals to exactly one
// architecture pattern using an ordered decision table. Classification is
// pure and deterministic: identical signal sets always yield the identical
// pattern, and an input no table row matches is a hard error rather than a
// silent default.
package classifier

import "fmt"

// Pattern is one of the closed enumeration of deployment architecture
// patterns the engine can select.
type Pattern string

const (
	// StaticSite hosts pre-built assets with no backend process.
	StaticSite Pattern = "static-site"
	// ServerlessApi pairs a static frontend with function compute and
	// managed backing services.
	ServerlessApi Pattern = "serverless-api"
	// ContainerStack runs a custom backend process with durable storage.
	ContainerStack Pattern = "container-stack"
	// WorkflowAutomation centers on an orchestration engine triggering
	// steps rather than serving user traffic.
	WorkflowAutomation Pattern = "workflow-automation"
)

// Valid reports whether p is a member of the closed pattern enumeration.
func (p Pattern) Valid() bool {
	switch p {
	case StaticSite, ServerlessApi, ContainerStack, WorkflowAutomation:
		return true
	}
	return false
}

// ParsePattern converts a pattern name from configuration into a Pattern,
// rejecting names outside the closed enumeration.
func ParsePattern(name string) (Pattern, error) {
	p := Pattern(name)
	if !p.Valid() {
		return "", fmt.Errorf("unknown architecture pattern %q", name)
	}
	return p, nil
}
