package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bmodel/internal/ontology"
)

func TestLoadPackage(t *testing.T) {
	model, err := LoadPackage(filepath.Join("testdata", "token.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Token", model.Name)
	assert.Equal(t, ontology.MustVersion("v1"), model.Current)
	assert.Len(t, model.Functions, 2)
	assert.Equal(t, ontology.MustSelector("0xa9059cbb"), model.Functions["transfer"].Selector)
	assert.Equal(t, "im_transfer", model.Bindings["transfer"])
	assert.Equal(t, ontology.MustVersion("v2"), model.Requires["Oracle"])

	require.Len(t, model.Blocks, 1)
	assert.Equal(t, []string{"balances"}, model.Blocks[0].Layout)
	assert.Equal(t, ontology.TypeMapAddrUint, model.Blocks[0].SlotType["balances"])
}

func TestLoadPackageMissingFile(t *testing.T) {
	_, err := LoadPackage(filepath.Join("testdata", "missing.yaml"))
	requireLoadError(t, err, ErrCodeNotFound)
}

func TestLoadPackageSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"malformed selector", "bad_selector.yaml"},
		{"unknown interface kind", "bad_kind.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPackage(filepath.Join("testdata", tt.file))
			requireLoadError(t, err, ErrCodeSchema)
		})
	}
}

func TestLoadPackageUnparsable(t *testing.T) {
	_, err := LoadPackage(filepath.Join("testdata", "not_yaml.yaml"))
	requireLoadError(t, err, ErrCodeDecode)
}

func TestLoadPackageShapeError(t *testing.T) {
	// Schema-valid YAML that still cannot be modeled.
	_, err := LoadPackage(filepath.Join("testdata", "duplicate_function.yaml"))
	requireLoadError(t, err, ErrCodeShape)
	assert.Contains(t, err.Error(), "duplicate function")
}

func TestLoadPackageBytes(t *testing.T) {
	doc := []byte(`name: Mini
current: v1
interfaces: []
functions: []
versions: []
`)
	model, err := LoadPackageBytes("mini.yaml", doc)
	require.NoError(t, err)
	assert.Equal(t, "Mini", model.Name)
	assert.Empty(t, model.Functions)
}

func requireLoadError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, code, loadErr.Code)
}
