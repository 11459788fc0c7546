package catalog

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/archplan/internal/classifier"
	"github.com/vk/archplan/internal/ctxlog"
	"github.com/vk/archplan/internal/fsutil"
	"github.com/vk/archplan/internal/schema"
)

// Load reads all .hcl files under the given path (a directory tree or a
// single file), translates them into the runtime catalog model, and
// cross-validates the result. Files are processed in sorted order so that
// declaration order, and everything derived from it, is deterministic.
func Load(ctx context.Context, path string) (*Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Catalog loading definitions.", "path", path)

	filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to walk catalog path %s: %w", path, err)
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no .hcl catalog files found in %s", path)
	}
	logger.Debug("Found catalog files to load.", "files", filePaths)

	parser := hclparse.NewParser()
	cat := &Catalog{
		modules:  make(map[string]*ModuleTemplate),
		patterns: make(map[classifier.Pattern]*PatternSpec, 4),
	}

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse catalog file %s: %w", filePath, diags)
		}

		var cfg schema.CatalogConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode catalog file %s: %w", filePath, diags)
		}

		if err := cat.mergeFile(&cfg, filePath); err != nil {
			return nil, err
		}
		logger.Debug("Loaded catalog file.", "file", filePath)
	}

	if err := cat.validate(ctx); err != nil {
		return nil, err
	}

	logger.Info("Catalog loaded.",
		"module_types", len(cat.modules),
		"patterns", len(cat.patterns),
		"classifier_rules", len(cat.rules),
	)
	return cat, nil
}

// mergeFile translates one parsed file's blocks into the catalog,
// rejecting duplicate declarations.
func (c *Catalog) mergeFile(cfg *schema.CatalogConfig, filePath string) error {
	for _, manifest := range cfg.Modules {
		if _, exists := c.modules[manifest.Type]; exists {
			return fmt.Errorf("duplicate module type %q declared in %s", manifest.Type, filePath)
		}
		tmpl, err := translateModule(manifest)
		if err != nil {
			return fmt.Errorf("in %s: %w", filePath, err)
		}
		c.modules[manifest.Type] = tmpl
		c.moduleOrder = append(c.moduleOrder, manifest.Type)
	}

	for _, def := range cfg.Patterns {
		spec, err := translatePattern(def)
		if err != nil {
			return fmt.Errorf("in %s: %w", filePath, err)
		}
		if _, exists := c.patterns[spec.Pattern]; exists {
			return fmt.Errorf("duplicate pattern %q declared in %s", spec.Pattern, filePath)
		}
		c.patterns[spec.Pattern] = spec
	}

	c.rules = append(c.rules, cfg.Rules...)
	return nil
}
