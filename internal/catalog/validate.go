package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/signal"
)

// validate performs a strict cross-reference check over the loaded
// catalog. All problems are collected and reported together so operators
// see the complete remediation list in one pass.
func (c *Catalog) validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, moduleType := range c.moduleOrder {
		tmpl := c.modules[moduleType]
		for _, dep := range tmpl.DependsOn {
			if dep == moduleType {
				errs = append(errs, fmt.Sprintf("module %q: depends on itself", moduleType))
				continue
			}
			if _, ok := c.modules[dep]; !ok {
				errs = append(errs, fmt.Sprintf("module %q: static dependency %q is not declared in the catalog", moduleType, dep))
			}
		}
	}

	for pattern, spec := range c.patterns {
		members := make(map[string]*ModuleTemplate)

		for _, moduleType := range spec.Modules {
			tmpl, ok := c.modules[moduleType]
			if !ok {
				errs = append(errs, fmt.Sprintf("pattern %q: module %q is not declared in the catalog", pattern, moduleType))
				continue
			}
			members[moduleType] = tmpl
		}

		for _, opt := range spec.Optionals {
			tmpl, ok := c.modules[opt.Type]
			if !ok {
				errs = append(errs, fmt.Sprintf("pattern %q: optional module %q is not declared in the catalog", pattern, opt.Type))
				continue
			}
			members[opt.Type] = tmpl
			if !signal.Known(opt.WhenSignal) {
				logger.Warn("Pattern gates an optional module on a signal outside the built-in vocabulary; it will only fire if the analyzer emits it.",
					"pattern", pattern, "module", opt.Type, "signal", opt.WhenSignal)
			}
		}

		for _, bind := range spec.Binds {
			target, ok := members[bind.TargetModule]
			if !ok {
				errs = append(errs, fmt.Sprintf("pattern %q: bind target %q is not part of the pattern", pattern, bind.TargetModule))
				continue
			}
			source, ok := members[bind.FromModule]
			if !ok {
				errs = append(errs, fmt.Sprintf("pattern %q: bind source %q is not part of the pattern", pattern, bind.FromModule))
				continue
			}

			param, ok := target.Param(bind.TargetParam)
			if !ok {
				errs = append(errs, fmt.Sprintf("pattern %q: module %q declares no param %q", pattern, bind.TargetModule, bind.TargetParam))
				continue
			}
			output, ok := source.Output(bind.FromOutput)
			if !ok {
				errs = append(errs, fmt.Sprintf("pattern %q: module %q produces no output %q", pattern, bind.FromModule, bind.FromOutput))
				continue
			}

			if !typesCompatible(output.Type, param.Type) {
				errs = append(errs, fmt.Sprintf("pattern %q: cannot bind %s.%s (%s) to %s.%s (%s)",
					pattern,
					bind.FromModule, bind.FromOutput, output.Type.FriendlyName(),
					bind.TargetModule, bind.TargetParam, param.Type.FriendlyName()))
			}
		}

		// A mandatory role no pattern member can fill would make every
		// graph built for this pattern fail policy validation.
		for _, role := range spec.RequiredRoles {
			covered := false
			for _, tmpl := range members {
				if tmpl.Role == role {
					covered = true
					break
				}
			}
			if !covered {
				errs = append(errs, fmt.Sprintf("pattern %q: no member module fills required role %q", pattern, role))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// typesCompatible reports whether a value of the source type can feed a
// parameter of the target type.
func typesCompatible(source, target cty.Type) bool {
	if source.Equals(target) {
		return true
	}
	if source == cty.DynamicPseudoType || target == cty.DynamicPseudoType {
		return true
	}
	conv := convert.GetConversion(source, target)
	return conv != nil
}
