package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bmodel/internal/loader"
	"github.com/roach88/bmodel/internal/registry"
	"github.com/roach88/bmodel/internal/totalize"
)

const tokenYAML = `name: Token
current: v1
interfaces:
  - name: IERC20
    kind: external
    functions: [transfer, balanceOf]
functions:
  - name: transfer
    selector: "0xa9059cbb"
    inputs: [address, uint256]
    outputs: [bool]
  - name: balanceOf
    selector: "0x70a08231"
    inputs: [address]
    outputs: [uint256]
versions:
  - version: v1
    exports: [IERC20]
    storage:
      - slot: balances
        type: "mapping(address => uint256)"
implementations:
  - name: im_transfer
    facet: F1
    reads: [balances]
    writes: [balances]
  - name: im_balanceOf
    facet: F1
    reads: [balances]
bindings:
  transfer: im_transfer
  balanceOf: im_balanceOf
`

// collidingYAML trips the selector-injectivity check: both exported
// functions carry the same selector.
const collidingYAML = `name: Broken
current: v1
interfaces:
  - name: IMain
    kind: external
    functions: [alpha, beta]
functions:
  - name: alpha
    selector: "0xa9059cbb"
  - name: beta
    selector: "0xa9059cbb"
versions:
  - version: v1
    exports: [IMain]
`

func writePackage(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestValidateValidPackage(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writePackage(t, "token.yaml", tokenYAML)})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ package Token is structurally sound")
}

func TestValidateValidPackageJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writePackage(t, "token.yaml", tokenYAML)})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)
}

func TestValidateInvalidPackage(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writePackage(t, "broken.yaml", collidingYAML)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ package Broken is not structurally safe")
	assert.Contains(t, output, "E101")
	assert.Contains(t, output, "0xa9059cbb")
}

func TestValidateInvalidPackageJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writePackage(t, "broken.yaml", collidingYAML)})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/package.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}

func TestValidateSchemaViolation(t *testing.T) {
	doc := `name: Token
current: whenever
interfaces: []
functions: []
versions: []
`
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writePackage(t, "bad.yaml", doc)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E004")
}

func TestValidateWithRegistry(t *testing.T) {
	dependentYAML := tokenYAML + `dependsOn:
  - name: Oracle
    version: v1
`
	path := writePackage(t, "token.yaml", dependentYAML)
	registryPath := filepath.Join(t.TempDir(), "registry.db")

	run := func() (string, error) {
		buf := &bytes.Buffer{}
		rootOpts := &RootOptions{Format: "text"}
		cmd := NewValidateCommand(rootOpts)
		cmd.SetOut(buf)
		cmd.SetArgs([]string{path, "--registry", registryPath})
		err := cmd.Execute()
		return buf.String(), err
	}

	// Nothing registered yet: the dependency cannot resolve.
	output, err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "E108")

	registerOracle(t, registryPath)

	output, err = run()
	require.NoError(t, err)
	assert.Contains(t, output, "structurally sound")
}

// registerOracle records Oracle v1 in the registry at path.
func registerOracle(t *testing.T, path string) {
	t.Helper()
	oracleYAML := `name: Oracle
current: v1
interfaces:
  - name: IOracle
    kind: external
    functions: [peek]
functions:
  - name: peek
    selector: "0x59e02dd7"
versions:
  - version: v1
    exports: [IOracle]
`
	model, err := loader.LoadPackageBytes("oracle.yaml", []byte(oracleYAML))
	require.NoError(t, err)

	reg, err := registry.Open(path)
	require.NoError(t, err)
	defer reg.Close()
	require.NoError(t, reg.Register(totalize.Totalize(model)))
}
