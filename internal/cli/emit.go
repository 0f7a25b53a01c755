package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/bmodel/internal/emit"
	"github.com/roach88/bmodel/internal/registry"
	"github.com/roach88/bmodel/internal/totalize"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Out      string // output directory
	Registry string // registry database path
}

// EmitResult holds the emitted artifact paths.
type EmitResult struct {
	Package    string `json:"package"`
	Refinement string `json:"refinement"`
	Glue       string `json:"glue"`
	Registered bool   `json:"registered,omitempty"`
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit <package.yaml>",
		Short: "Validate a package and emit its B artifacts",
		Long: `Validate a package description, totalize its version relations and emit
the refinement instance and glue machine for the prover.

Emission never proceeds past a validation failure: if any diagnostic is
reported, no artifact file is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", ".", "output directory for artifacts")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "registry database for dependency resolution and registration")

	return cmd
}

func runEmit(opts *EmitOptions, path string, cmd *cobra.Command) error {
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

	diags, err := validateModel(formatter, model, opts.Registry)
	if err != nil {
		return err
	}
	if len(diags) > 0 {
		// The gate: an unsafe package never produces artifacts.
		return outputDiagnostics(formatter, model.Name, diags)
	}

	totalized := totalize.Totalize(model)
	artifacts := emit.Emit(totalized)

	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		_ = formatter.Error("E007", fmt.Sprintf("creating output directory: %v", err), nil)
		return WrapExitError(ExitCommandError, "creating output directory", err)
	}

	refPath := filepath.Join(opts.Out, artifacts.RefinementName)
	gluePath := filepath.Join(opts.Out, artifacts.GlueName)
	if err := os.WriteFile(refPath, artifacts.Refinement, 0o644); err != nil {
		_ = formatter.Error("E007", fmt.Sprintf("writing %s: %v", refPath, err), nil)
		return WrapExitError(ExitCommandError, "writing refinement", err)
	}
	if err := os.WriteFile(gluePath, artifacts.Glue, 0o644); err != nil {
		_ = formatter.Error("E007", fmt.Sprintf("writing %s: %v", gluePath, err), nil)
		return WrapExitError(ExitCommandError, "writing glue machine", err)
	}

	result := EmitResult{Package: model.Name, Refinement: refPath, Glue: gluePath}

	if opts.Registry != "" {
		if err := registerPackage(opts.Registry, totalized); err != nil {
			_ = formatter.Error("E007", err.Error(), nil)
			return WrapExitError(ExitCommandError, "registering package", err)
		}
		result.Registered = true
		formatter.VerboseLog("registered %s %s in %s", model.Name, model.Current, opts.Registry)
	}

	return outputEmitSuccess(formatter, result)
}

func registerPackage(path string, totalized *totalize.Totalized) error {
	reg, err := registry.Open(path)
	if err != nil {
		return err
	}
	defer reg.Close()
	return reg.Register(totalized)
}

// outputEmitSuccess outputs the emitted artifact paths.
func outputEmitSuccess(formatter *OutputFormatter, result EmitResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ emitted artifacts for %s\n", result.Package)
	fmt.Fprintf(formatter.Writer, "  %s\n", result.Refinement)
	fmt.Fprintf(formatter.Writer, "  %s\n", result.Glue)
	if result.Registered {
		fmt.Fprintln(formatter.Writer, "  registered in registry")
	}
	return nil
}
