package catalog

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/schema"
)

// AuthMode is the authentication mechanism a module template provisions with.
type AuthMode string

const (
	// AuthNone marks modules with no remote authentication surface.
	AuthNone AuthMode = ""
	// AuthManagedIdentity is identity-based authentication, the only mode
	// policy validation accepts for remote-auth-capable modules.
	AuthManagedIdentity AuthMode = "managed-identity"
	// AuthSharedKey is shared-secret authentication. Declaring it is legal
	// at the catalog level but always produces a fatal policy violation.
	AuthSharedKey AuthMode = "shared-key"
)

// Endpoint describes the network reachability of a module.
type Endpoint struct {
	Public bool
	TLS    bool
}

// ParamSpec declares one parameter accepted by a module template.
type ParamSpec struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputSpec declares one output value produced by a module template.
type OutputSpec struct {
	Name        string
	Type        cty.Type
	Description string
}

// ModuleTemplate is the catalog entry for one infrastructure module type.
type ModuleTemplate struct {
	Type        string
	Description string
	// Role is the capability role this module fills (e.g. "compute",
	// "persistence", "secrets"). Patterns name mandatory roles and policy
	// validation checks their coverage.
	Role string
	// DependsOn lists module types this template always depends on,
	// regardless of instance-specific wiring.
	DependsOn []string
	Auth      AuthMode
	Endpoint  *Endpoint

	params      map[string]*ParamSpec
	paramOrder  []string
	outputs     map[string]*OutputSpec
	outputOrder []string
}

// Param returns the named parameter spec, if declared.
func (t *ModuleTemplate) Param(name string) (*ParamSpec, bool) {
	p, ok := t.params[name]
	return p, ok
}

// Output returns the named output spec, if declared.
func (t *ModuleTemplate) Output(name string) (*OutputSpec, bool) {
	o, ok := t.outputs[name]
	return o, ok
}

// ParamNames returns the declared parameter names in manifest order.
func (t *ModuleTemplate) ParamNames() []string {
	out := make([]string, len(t.paramOrder))
	copy(out, t.paramOrder)
	return out
}

// OutputNames returns the declared output names in manifest order.
func (t *ModuleTemplate) OutputNames() []string {
	out := make([]string, len(t.outputOrder))
	copy(out, t.outputOrder)
	return out
}

// OptionalModule is a signal-gated addition to a pattern's module set.
type OptionalModule struct {
	Type                string
	WhenSignal          string
	PruneIfUnreferenced bool
}

// Bind wires the target module's parameter to the source module's output.
type Bind struct {
	TargetModule string
	TargetParam  string
	FromModule   string
	FromOutput   string
	// Optional binds are skipped silently when the source module is not
	// part of the built graph (e.g. its gating signal was absent).
	Optional bool
}

// PatternSpec is the catalog definition of one architecture pattern.
type PatternSpec struct {
	Pattern       classifier.Pattern
	Modules       []string
	RequiredRoles []string
	Optionals     []OptionalModule
	Binds         []Bind
}

// Catalog is the loaded, validated registry of module templates and
// pattern definitions. It is immutable after Load returns.
type Catalog struct {
	modules     map[string]*ModuleTemplate
	moduleOrder []string
	patterns    map[classifier.Pattern]*PatternSpec
	rules       []*schema.RuleDefinition
}

// UnknownModuleTypeError reports a lookup of a module type the catalog
// does not declare. This is a configuration error, not a runtime fallback.
type UnknownModuleTypeError struct {
	Type string
}

func (e *UnknownModuleTypeError) Error() string {
	return fmt.Sprintf("unknown module type %q: not declared in the catalog", e.Type)
}

// Lookup returns the template for the given module type.
func (c *Catalog) Lookup(moduleType string) (*ModuleTemplate, error) {
	t, ok := c.modules[moduleType]
	if !ok {
		return nil, &UnknownModuleTypeError{Type: moduleType}
	}
	return t, nil
}

// Pattern returns the definition for the given architecture pattern.
func (c *Catalog) Pattern(p classifier.Pattern) (*PatternSpec, error) {
	spec, ok := c.patterns[p]
	if !ok {
		return nil, fmt.Errorf("catalog declares no definition for pattern %q", p)
	}
	return spec, nil
}

// ModuleTypes returns all declared module types in load order.
func (c *Catalog) ModuleTypes() []string {
	out := make([]string, len(c.moduleOrder))
	copy(out, c.moduleOrder)
	return out
}

// DecisionTable returns the classifier decision table for this catalog:
// the operator-supplied rule rows when any are declared, otherwise the
// built-in default table.
func (c *Catalog) DecisionTable() (*classifier.Table, error) {
	if len(c.rules) == 0 {
		return classifier.DefaultTable(), nil
	}
	return classifier.TableFromRules(c.rules)
}
