// Package loader reads a YAML package description, checks its shape against
// the embedded CUE schema and hands the decoded records to ontology.Build.
//
// The loader owns the first error tier: input that cannot even be decoded or
// modeled stops processing immediately, before any invariant is evaluated.
package loader

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bmodel/internal/ontology"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for load failures, shared with the CLI's error output.
const (
	ErrCodeNotFound = "E005" // path not found or unreadable
	ErrCodeSchema   = "E004" // document does not match the package schema
	ErrCodeDecode   = "E006" // YAML decode failed
	ErrCodeShape    = "E008" // model construction failed
)

// LoadError reports a failure in the load/construct stage.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// rawPackage mirrors the YAML document shape.
type rawPackage struct {
	Name            string            `yaml:"name"`
	Current         string            `yaml:"current"`
	Interfaces      []rawInterface    `yaml:"interfaces"`
	Functions       []rawFunction     `yaml:"functions"`
	Events          []rawEvent        `yaml:"events"`
	Versions        []rawVersion      `yaml:"versions"`
	Implementations []rawImpl         `yaml:"implementations"`
	Bindings        map[string]string `yaml:"bindings"`
	DependsOn       []rawDependency   `yaml:"dependsOn"`
}

type rawInterface struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Functions []string `yaml:"functions"`
	Events    []string `yaml:"events"`
}

type rawFunction struct {
	Name     string   `yaml:"name"`
	Selector string   `yaml:"selector"`
	Inputs   []string `yaml:"inputs"`
	Outputs  []string `yaml:"outputs"`
}

type rawEvent struct {
	Name   string   `yaml:"name"`
	Inputs []string `yaml:"inputs"`
}

type rawVersion struct {
	Version string    `yaml:"version"`
	Exports []string  `yaml:"exports"`
	Storage []rawSlot `yaml:"storage"`
}

type rawSlot struct {
	Slot string `yaml:"slot"`
	Type string `yaml:"type"`
}

type rawImpl struct {
	Name   string   `yaml:"name"`
	Facet  string   `yaml:"facet"`
	Reads  []string `yaml:"reads"`
	Writes []string `yaml:"writes"`
}

type rawDependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LoadPackage reads, schema-checks and decodes a package description, then
// constructs the ontology model. Any failure is a tier-one input error:
// reported once, and nothing downstream runs.
func LoadPackage(path string) (*ontology.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err), Err: err}
	}
	return LoadPackageBytes(path, data)
}

// LoadPackageBytes is LoadPackage over an in-memory document. The path is
// used only for error positions.
func LoadPackageBytes(path string, data []byte) (*ontology.Model, error) {
	if err := checkSchema(path, data); err != nil {
		return nil, err
	}

	var raw rawPackage
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("decoding %s: %v", path, err), Err: err}
	}

	model, err := ontology.Build(toInput(raw))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeShape, Message: err.Error(), Err: err}
	}
	return model, nil
}

// checkSchema unifies the YAML document with the embedded #Package schema.
// All schema violations are combined into one error so authors see every
// shape problem at once.
func checkSchema(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("compiling schema: %v", err), Err: err}
	}
	pkgDef := schema.LookupPath(cue.ParsePath("#Package"))

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("parsing %s: %v", path, err), Err: err}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("building %s: %v", path, err), Err: err}
	}

	unified := pkgDef.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		var combined error
		for _, e := range cueerrors.Errors(err) {
			combined = multierr.Append(combined, e)
		}
		return &LoadError{
			Code:    ErrCodeSchema,
			Message: fmt.Sprintf("%s does not match the package schema: %v", path, combined),
			Err:     combined,
		}
	}
	return nil
}

// toInput converts the decoded YAML records to the ontology input shape.
func toInput(raw rawPackage) ontology.Input {
	in := ontology.Input{
		Name:     raw.Name,
		Current:  raw.Current,
		Bindings: raw.Bindings,
	}
	for _, i := range raw.Interfaces {
		in.Interfaces = append(in.Interfaces, ontology.InterfaceDecl{
			Name:      i.Name,
			Kind:      i.Kind,
			Functions: i.Functions,
			Events:    i.Events,
		})
	}
	for _, f := range raw.Functions {
		in.Functions = append(in.Functions, ontology.FunctionDecl{
			Name:     f.Name,
			Selector: f.Selector,
			Inputs:   f.Inputs,
			Outputs:  f.Outputs,
		})
	}
	for _, e := range raw.Events {
		in.Events = append(in.Events, ontology.EventDecl{Name: e.Name, Inputs: e.Inputs})
	}
	for _, v := range raw.Versions {
		decl := ontology.VersionDecl{Version: v.Version, Exports: v.Exports}
		for _, s := range v.Storage {
			decl.Storage = append(decl.Storage, ontology.SlotDecl{Slot: s.Slot, Type: s.Type})
		}
		in.Versions = append(in.Versions, decl)
	}
	for _, im := range raw.Implementations {
		in.Implementations = append(in.Implementations, ontology.ImplDecl{
			Name:   im.Name,
			Facet:  im.Facet,
			Reads:  im.Reads,
			Writes: im.Writes,
		})
	}
	for _, d := range raw.DependsOn {
		in.DependsOn = append(in.DependsOn, ontology.DependencyDecl{Name: d.Name, Version: d.Version})
	}
	return in
}
