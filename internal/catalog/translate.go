package catalog

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/schema"
)

// translateModule converts a parsed module manifest into its runtime template.
func translateModule(manifest *schema.ModuleManifest) (*ModuleTemplate, error) {
	tmpl := &ModuleTemplate{
		Type:        manifest.Type,
		Description: manifest.Description,
		Role:        manifest.Role,
		DependsOn:   manifest.DependsOn,
		params:      make(map[string]*ParamSpec, len(manifest.Params)),
		outputs:     make(map[string]*OutputSpec, len(manifest.Outputs)),
	}
	if tmpl.Role == "" {
		return nil, fmt.Errorf("module %q: role must not be empty", manifest.Type)
	}

	if manifest.Auth != nil {
		mode := AuthMode(manifest.Auth.Mode)
		switch mode {
		case AuthManagedIdentity, AuthSharedKey:
			tmpl.Auth = mode
		default:
			return nil, fmt.Errorf("module %q: unknown auth mode %q", manifest.Type, manifest.Auth.Mode)
		}
	}

	if manifest.Endpoint != nil {
		tmpl.Endpoint = &Endpoint{
			Public: manifest.Endpoint.Public,
			TLS:    manifest.Endpoint.TLS,
		}
	}

	for _, p := range manifest.Params {
		if _, exists := tmpl.params[p.Name]; exists {
			return nil, fmt.Errorf("module %q: duplicate param %q", manifest.Type, p.Name)
		}
		spec, err := translateParam(manifest.Type, p)
		if err != nil {
			return nil, err
		}
		tmpl.params[p.Name] = spec
		tmpl.paramOrder = append(tmpl.paramOrder, p.Name)
	}

	for _, o := range manifest.Outputs {
		if _, exists := tmpl.outputs[o.Name]; exists {
			return nil, fmt.Errorf("module %q: duplicate output %q", manifest.Type, o.Name)
		}
		parsedType, err := parseTypeExpr(o.Type)
		if err != nil {
			return nil, fmt.Errorf("module %q, output %q: %w", manifest.Type, o.Name, err)
		}
		tmpl.outputs[o.Name] = &OutputSpec{
			Name:        o.Name,
			Type:        parsedType,
			Description: o.Description,
		}
		tmpl.outputOrder = append(tmpl.outputOrder, o.Name)
	}

	return tmpl, nil
}

// translateParam processes a single param block, handling its default
// value and type expression.
func translateParam(moduleType string, p *schema.ParamDefinition) (*ParamSpec, error) {
	parsedType, err := parseTypeExpr(p.Type)
	if err != nil {
		return nil, fmt.Errorf("module %q, param %q: %w", moduleType, p.Name, err)
	}

	spec := &ParamSpec{
		Name:        p.Name,
		Type:        parsedType,
		Description: p.Description,
		Optional:    p.Optional,
	}

	if p.Default != nil {
		val, diags := p.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("module %q, param %q: invalid default value: %w", moduleType, p.Name, diags)
		}
		if !val.IsNull() {
			converted, err := convert.Convert(val, parsedType)
			if err != nil {
				return nil, fmt.Errorf("module %q, param %q: default value does not fit declared type %s: %w",
					moduleType, p.Name, parsedType.FriendlyName(), err)
			}
			spec.Default = &converted
		}
	}

	return spec, nil
}

// translatePattern converts a parsed pattern block into its runtime spec.
func translatePattern(def *schema.PatternDefinition) (*PatternSpec, error) {
	pattern, err := classifier.ParsePattern(def.Name)
	if err != nil {
		return nil, err
	}

	spec := &PatternSpec{
		Pattern:       pattern,
		Modules:       def.Modules,
		RequiredRoles: def.RequiredRoles,
	}

	for _, opt := range def.Optionals {
		if opt.When == "" {
			return nil, fmt.Errorf("pattern %q: optional module %q has no gating signal", def.Name, opt.Type)
		}
		spec.Optionals = append(spec.Optionals, OptionalModule{
			Type:                opt.Type,
			WhenSignal:          opt.When,
			PruneIfUnreferenced: opt.PruneIfUnreferenced,
		})
	}

	for _, bind := range def.Binds {
		targetModule, targetParam, err := SplitRef(bind.Target)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: invalid bind target %q: %w", def.Name, bind.Target, err)
		}
		fromModule, fromOutput, err := SplitRef(bind.From)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: invalid bind source %q: %w", def.Name, bind.From, err)
		}
		spec.Binds = append(spec.Binds, Bind{
			TargetModule: targetModule,
			TargetParam:  targetParam,
			FromModule:   fromModule,
			FromOutput:   fromOutput,
			Optional:     bind.Optional,
		})
	}

	return spec, nil
}

// SplitRef splits a "module-type.name" reference into its two parts.
func SplitRef(ref string) (string, string, error) {
	parts := strings.Split(ref, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("reference must have the form \"module.name\", got %q", ref)
	}
	return parts[0], parts[1], nil
}
