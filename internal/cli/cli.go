// Package cli defines the archplan command surface: classify, build,
// validate, plan, and diff, composable stages of one pipeline.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/archplan/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flags collects the command-line options shared across subcommands.
type flags struct {
	catalogPath  string
	signalsPath  string
	outPath      string
	previousPath string
	logFormat    string
	logLevel     string
}

// NewRootCommand builds the archplan command tree. Documents are written
// to outW; logs go to logW so stdout stays clean for piping.
func NewRootCommand(outW, logW io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "archplan",
		Short: "Architecture classification and infrastructure composition engine.",
		Long: `archplan selects a deployment architecture pattern from detected
application feature signals, expands it into a dependency graph of
infrastructure modules, validates the graph against policy, and emits a
deterministic, tiered provisioning plan for an external apply executor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(logW)

	pf := root.PersistentFlags()
	pf.StringVar(&f.catalogPath, "catalog", "", "Path to the catalog configuration directory or file.")
	pf.StringVarP(&f.signalsPath, "signals", "s", "", "Path to the analyzer's feature-signal document (YAML).")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	run := func(fn func(*app.App, context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config()
			if err != nil {
				return err
			}
			a := app.NewApp(outW, logW, cfg)
			return fn(a, cmd.Context())
		}
	}

	classify := &cobra.Command{
		Use:   "classify",
		Short: "Select the architecture pattern for a signal document.",
		RunE:  run((*app.App).Classify),
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Build the dependency graph of infrastructure modules.",
		RunE:  run((*app.App).Build),
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the built graph against the policy rule set.",
		RunE:  run((*app.App).Validate),
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Produce the tiered provisioning plan.",
		RunE:  run((*app.App).Plan),
	}
	planCmd.Flags().StringVarP(&f.outPath, "out", "o", "", "Write the plan document to this file instead of stdout.")

	diff := &cobra.Command{
		Use:   "diff",
		Short: "Compare a freshly generated plan against a persisted one.",
		RunE:  run((*app.App).Diff),
	}
	diff.Flags().StringVar(&f.previousPath, "previous", "", "Path to the previously persisted plan document.")

	root.AddCommand(classify, build, validate, planCmd, diff)
	return root
}

// config validates the parsed flags and assembles the app configuration.
func (f *flags) config() (*app.Config, error) {
	if f.catalogPath == "" {
		return nil, &ExitError{Code: 2, Message: "missing required flag: --catalog"}
	}

	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg, err := app.NewConfig(app.Config{
		CatalogPath:      f.catalogPath,
		SignalsPath:      f.signalsPath,
		OutPath:          f.outPath,
		PreviousPlanPath: f.previousPath,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}
