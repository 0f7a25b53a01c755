package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/bmodel/internal/diamond"
	"github.com/roach88/bmodel/internal/ontology"
	"github.com/roach88/bmodel/internal/validator"
)

// ComposeResult holds the cross-package check results.
type ComposeResult struct {
	Packages    []string               `json:"packages"`
	Valid       bool                   `json:"valid"`
	Diagnostics []validator.Diagnostic `json:"diagnostics,omitempty"`
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "compose <package.yaml> <package.yaml>...",
		Short: "Check cross-package invariants for a Diamond composition",
		Long: `Validate each package independently, then check the composition-level
invariants over their union: selector disjointness and storage disjointness.

The cross-package pass only runs once every package validates cleanly on
its own.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(rootOpts, args, registryPath, cmd)
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "registry database for dependency resolution")

	return cmd
}

func runCompose(opts *RootOptions, paths []string, registryPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Logger:  opts.Logger,
		Verbose: opts.Verbose,
	}

	var models []*ontology.Model
	var names []string
	for _, path := range paths {
		model, err := loadModel(formatter, path)
		if err != nil {
			return err
		}
		formatter.VerboseLog("loaded package %s (current %s)", model.Name, model.Current)

		diags, err := validateModel(formatter, model, registryPath)
		if err != nil {
			return err
		}
		if len(diags) > 0 {
			// Each package must be sound before the cross-package pass.
			return outputDiagnostics(formatter, model.Name, diags)
		}

		models = append(models, model)
		names = append(names, model.Name)
	}

	diags := diamond.Compose(models)
	if len(diags) > 0 {
		return outputComposeFailure(formatter, names, diags)
	}
	return outputComposeSuccess(formatter, names)
}

func outputComposeSuccess(formatter *OutputFormatter, names []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ComposeResult{Packages: names, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d package(s) compose cleanly\n", len(names))
	return nil
}

func outputComposeFailure(formatter *OutputFormatter, names []string, diags []validator.Diagnostic) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ComposeResult{Packages: names, Valid: false, Diagnostics: diags},
			Error: &CLIError{
				Code:    diags[0].Rule,
				Message: diags[0].Message,
			},
			TraceID: uuid.NewString(),
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("composition failed with %d diagnostic(s)", len(diags)))
	}

	fmt.Fprintln(formatter.Writer, "✗ composition is not structurally safe")
	fmt.Fprintln(formatter.Writer)
	for _, d := range diags {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", d.Rule, d.Message)
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitFailure, fmt.Sprintf("composition failed with %d diagnostic(s)", len(diags)))
}
