package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bmodel/internal/ontology"
	"github.com/roach88/bmodel/internal/totalize"
	"github.com/roach88/bmodel/internal/validator"
)

func openTemp(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, reg.Close()) })
	return reg
}

func tokenTotalized(t *testing.T, name string) *totalize.Totalized {
	t.Helper()
	m, err := ontology.Build(ontology.Input{
		Name:    name,
		Current: "v1",
		Interfaces: []ontology.InterfaceDecl{
			{Name: "IERC20", Kind: "external", Functions: []string{"transfer"}},
		},
		Functions: []ontology.FunctionDecl{
			{Name: "transfer", Selector: "0xa9059cbb", Inputs: []string{"address", "uint256"}},
		},
		Versions: []ontology.VersionDecl{
			{Version: "v1", Exports: []string{"IERC20"}, Storage: []ontology.SlotDecl{
				{Slot: "balances", Type: "mapping(address => uint256)"},
			}},
		},
	})
	require.NoError(t, err)
	return totalize.Totalize(m)
}

func TestRegisterAndHasPackage(t *testing.T) {
	reg := openTemp(t)
	require.NoError(t, reg.Register(tokenTotalized(t, "Token")))

	ok, err := reg.HasPackage("Token", ontology.MustVersion("v1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.HasPackage("Token", ontology.MustVersion("v2"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.HasPackage("Ghost", ontology.MustVersion("v1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := openTemp(t)
	tz := tokenTotalized(t, "Token")
	require.NoError(t, reg.Register(tz))
	require.NoError(t, reg.Register(tz))

	recs, err := reg.Packages()
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestPackages(t *testing.T) {
	reg := openTemp(t)
	require.NoError(t, reg.Register(tokenTotalized(t, "Vault")))
	require.NoError(t, reg.Register(tokenTotalized(t, "Token")))

	recs, err := reg.Packages()
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Ordered by name.
	assert.Equal(t, "Token", recs[0].Name)
	assert.Equal(t, "Vault", recs[1].Name)

	assert.Equal(t, "v1", recs[0].Version)
	assert.Equal(t, []string{"0xa9059cbb"}, recs[0].Selectors)
	assert.Equal(t, []string{"balances"}, recs[0].Slots)
	assert.Regexp(t, `^[0-9a-f]{64}$`, recs[0].Fingerprint)
}

func TestOpenIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Register(tokenTotalized(t, "Token")))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	ok, err := second.HasPackage("Token", ontology.MustVersion("v1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

// The registry satisfies the validator's resolver contract.
var _ validator.DependencyResolver = (*Registry)(nil)
