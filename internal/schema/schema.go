// Package schema defines the HCL block structures for the catalog
// configuration source: module manifests, architecture pattern
// definitions, and classifier decision-table rules. These structs are the
// raw parse targets; the catalog and classifier packages translate them
// into their runtime models.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Module Manifest Schemas ---

// AuthBlock declares the authentication mode a module template provisions
// with. Policy validation inspects this on every built instance.
type AuthBlock struct {
	Mode string `hcl:"mode"`
}

// EndpointBlock declares network reachability attributes of a module.
type EndpointBlock struct {
	Public bool `hcl:"public"`
	TLS    bool `hcl:"tls"`
}

// ParamDefinition defines a single parameter accepted by a module template.
type ParamDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    bool           `hcl:"optional,optional"`
}

// OutputDefinition defines a single output value produced by a module.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

// ModuleManifest represents one `module` block: the template for an
// infrastructure capability, with its parameter/output contract and static
// dependency relationships to other module types.
type ModuleManifest struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Role        string              `hcl:"role"`
	DependsOn   []string            `hcl:"depends_on,optional"`
	Auth        *AuthBlock          `hcl:"auth,block"`
	Endpoint    *EndpointBlock      `hcl:"endpoint,block"`
	Params      []*ParamDefinition  `hcl:"param,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}

// --- Pattern Definition Schemas ---

// OptionalModule is a signal-gated addition to a pattern's module set.
type OptionalModule struct {
	Type string `hcl:"type,label"`
	// When names the signal id that must be present for the module to be
	// instantiated.
	When string `hcl:"when"`
	// PruneIfUnreferenced marks provider-only modules that should be
	// dropped from the graph when nothing binds to their outputs.
	PruneIfUnreferenced bool `hcl:"prune_if_unreferenced,optional"`
}

// BindBlock wires one module's parameter to another module's output.
// The label is the target as "module-type.param"; From is "module-type.output".
type BindBlock struct {
	Target   string `hcl:"target,label"`
	From     string `hcl:"from"`
	Optional bool   `hcl:"optional,optional"`
}

// PatternDefinition represents one `pattern` block: a named architecture
// pattern with its fixed required module set, signal-gated optional
// modules, output bindings, and mandatory capability roles.
type PatternDefinition struct {
	Name          string            `hcl:"name,label"`
	Modules       []string          `hcl:"modules"`
	RequiredRoles []string          `hcl:"required_roles,optional"`
	Optionals     []*OptionalModule `hcl:"optional,block"`
	Binds         []*BindBlock      `hcl:"bind,block"`
}

// --- Classifier Rule Schemas ---

// RuleDefinition is one row of the classifier decision table. Rows are
// evaluated in declaration order; the first matching row wins.
type RuleDefinition struct {
	Pattern string   `hcl:"pattern,label"`
	AllOf   []string `hcl:"all_of,optional"`
	AnyOf   []string `hcl:"any_of,optional"`
	NoneOf  []string `hcl:"none_of,optional"`
}

// CatalogConfig is the top-level structure of a catalog configuration file.
// A single file may carry any mix of module, pattern, and rule blocks.
type CatalogConfig struct {
	Modules  []*ModuleManifest    `hcl:"module,block"`
	Patterns []*PatternDefinition `hcl:"pattern,block"`
	Rules    []*RuleDefinition    `hcl:"rule,block"`
	Body     hcl.Body             `hcl:",remain"`
}
