package signal

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vk/archplan/internal/ctxlog"
)

// validate is a singleton validator instance for document checks.
var validate = validator.New()

// Document is the feature-signal document handed over by the external
// application analyzer. The engine does not care how the signals were
// derived, only that the record shape is well-formed.
type Document struct {
	Version int      `yaml:"version" validate:"required,min=1"`
	Source  string   `yaml:"source,omitempty"`
	Signals []Signal `yaml:"signals" validate:"required,min=1,dive"`
}

// LoadDocument reads and validates an analyzer document from a YAML file.
func LoadDocument(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading signal document.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signal document %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse signal document %s: %w", path, err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("signal document %s is invalid: %w", path, err)
	}

	for _, sig := range doc.Signals {
		if !Known(sig.ID) {
			// Forward compatibility: newer analyzers may emit signals this
			// catalog has no use for yet.
			logger.Debug("Ignoring unknown signal id.", "id", sig.ID)
		}
	}

	logger.Debug("Signal document loaded.", "source", doc.Source, "signal_count", len(doc.Signals))
	return &doc, nil
}

// Set converts the document's records into an immutable signal set.
func (d *Document) Set() *Set {
	return NewSet(d.Signals...)
}
