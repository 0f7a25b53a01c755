package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/bmodel/internal/loader"
	"github.com/roach88/bmodel/internal/ontology"
	"github.com/roach88/bmodel/internal/registry"
	"github.com/roach88/bmodel/internal/validator"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Package     string                 `json:"package"`
	Valid       bool                   `json:"valid"`
	Diagnostics []validator.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "validate <package.yaml>",
		Short: "Validate a package description without emitting artifacts",
		Long: `Validate a package description against every structural invariant.

All violations are collected and reported in one run. No files are produced;
this mode is side-effect-free.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], registryPath, cmd)
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "registry database for dependency resolution")

	return cmd
}

func runValidate(opts *RootOptions, path, registryPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Logger:  opts.Logger,
		Verbose: opts.Verbose,
	}

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
		return outputDiagnostics(formatter, model.Name, diags)
	}
	return outputValidateSuccess(formatter, model.Name)
}

// loadModel loads a package description, mapping load failures to
// command-level errors (exit code 2).
func loadModel(formatter *OutputFormatter, path string) (*ontology.Model, error) {
	model, err := loader.LoadPackage(path)
	if err != nil {
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return nil, NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Error("E001", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "loading package", err)
	}
	return model, nil
}

// validateModel runs validation, resolving dependencies against the registry
// when one is given.
func validateModel(formatter *OutputFormatter, model *ontology.Model, registryPath string) ([]validator.Diagnostic, error) {
	if registryPath == "" {
		return validator.Validate(model), nil
	}

	reg, err := registry.Open(registryPath)
	if err != nil {
		_ = formatter.Error("E007", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "opening registry", err)
	}
	defer reg.Close()

	diags, err := validator.ValidateWithResolver(model, reg)
	if err != nil {
		_ = formatter.Error("E007", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "resolving dependencies", err)
	}
	return diags, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, pkg string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Package: pkg, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ package %s is structurally sound\n", pkg)
	return nil
}

// outputDiagnostics reports invariant violations and returns the
// validation-failure exit error (exit code 1).
func outputDiagnostics(formatter *OutputFormatter, pkg string, diags []validator.Diagnostic) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Package: pkg, Valid: false, Diagnostics: diags},
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
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d diagnostic(s)", len(diags)))
	}

	fmt.Fprintf(formatter.Writer, "✗ package %s is not structurally safe\n\n", pkg)
	for _, d := range diags {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", d.Rule, d.Message)
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d diagnostic(s)", len(diags)))
}
