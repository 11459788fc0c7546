package policy

import (
	"fmt"

	"github.com/vk/archplan/internal/catalog"
	"github.com/vk/archplan/internal/graph"
)

// Rule identifiers, stable for operators and tests.
const (
	RuleAuthManagedIdentity = "auth-managed-identity"
	RuleEndpointTLS         = "endpoint-tls"
	RuleRoleCoverage        = "role-coverage"
	RulePublicExposure      = "public-exposure"
)

// DefaultRules returns the built-in, non-negotiable rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          RuleAuthManagedIdentity,
			Severity:    Fatal,
			Description: "Every module capable of remote authentication must use identity-based auth; shared-secret auth is forbidden.",
			Check:       checkManagedIdentity,
		},
		{
			ID:          RuleEndpointTLS,
			Severity:    Fatal,
			Description: "Every module producing a publicly reachable endpoint must require transport security.",
			Check:       checkEndpointTLS,
		},
		{
			ID:          RuleRoleCoverage,
			Severity:    Fatal,
			Description: "The graph must contain at least one module filling each of the pattern's mandatory capability roles.",
			Check:       checkRoleCoverage,
		},
		{
			ID:          RulePublicExposure,
			Severity:    Warning,
			Description: "Publicly reachable modules are listed for operator review.",
			Check:       checkPublicExposure,
		},
	}
}

func checkManagedIdentity(g *graph.Graph) []Violation {
	var out []Violation
	for _, node := range g.Nodes() {
		switch node.Auth {
		case catalog.AuthNone, catalog.AuthManagedIdentity:
			// compliant
		default:
			out = append(out, Violation{
				ModuleID: node.ID,
				Message:  fmt.Sprintf("declares %q authentication; managed identity is required", node.Auth),
			})
		}
	}
	return out
}

func checkEndpointTLS(g *graph.Graph) []Violation {
	var out []Violation
	for _, node := range g.Nodes() {
		if node.Endpoint != nil && node.Endpoint.Public && !node.Endpoint.TLS {
			out = append(out, Violation{
				ModuleID: node.ID,
				Message:  "exposes a public endpoint without requiring transport security",
			})
		}
	}
	return out
}

func checkRoleCoverage(g *graph.Graph) []Violation {
	var out []Violation
	for _, role := range g.RequiredRoles() {
		covered := false
		for _, node := range g.Nodes() {
			if node.Role == role {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, Violation{
				Message: fmt.Sprintf("pattern %q requires a module filling role %q, but the graph contains none", g.Pattern(), role),
			})
		}
	}
	return out
}

func checkPublicExposure(g *graph.Graph) []Violation {
	var out []Violation
	for _, node := range g.Nodes() {
		if node.Endpoint != nil && node.Endpoint.Public {
			out = append(out, Violation{
				ModuleID: node.ID,
				Message:  "is publicly reachable",
			})
		}
	}
	return out
}
