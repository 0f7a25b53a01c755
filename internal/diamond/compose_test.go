package diamond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bmodel/internal/ontology"
)

// pkg builds a one-function package with the given selector and slot.
func pkg(t *testing.T, name, fn, selector, slot string) *ontology.Model {
	t.Helper()
	m, err := ontology.Build(ontology.Input{
		Name:    name,
		Current: "v1",
		Interfaces: []ontology.InterfaceDecl{
			{Name: "IMain", Kind: "external", Functions: []string{fn}},
		},
		Functions: []ontology.FunctionDecl{
			{Name: fn, Selector: selector},
		},
		Versions: []ontology.VersionDecl{
			{Version: "v1", Exports: []string{"IMain"}, Storage: []ontology.SlotDecl{
				{Slot: slot, Type: "mapping(address => uint256)"},
			}},
		},
	})
	require.NoError(t, err)
	return m
}

func TestComposeDisjointPackages(t *testing.T) {
	diags := Compose([]*ontology.Model{
		pkg(t, "Token", "transfer", "0xa9059cbb", "balances"),
		pkg(t, "Vault", "deposit", "0xd0e30db0", "vault"),
	})
	assert.Empty(t, diags)
}

func TestComposeSelectorCollision(t *testing.T) {
	diags := Compose([]*ontology.Model{
		pkg(t, "Token", "transfer", "0xa9059cbb", "balances"),
		pkg(t, "Clone", "move", "0xa9059cbb", "vault"),
	})
	require.Len(t, diags, 1)
	assert.Equal(t, RuleCrossSelector, diags[0].Rule)
	assert.Equal(t, []string{"Token.transfer", "Clone.move"}, diags[0].Entities)
	assert.Contains(t, diags[0].Message, "0xa9059cbb")
}

func TestComposeStorageCollision(t *testing.T) {
	diags := Compose([]*ontology.Model{
		pkg(t, "Token", "transfer", "0xa9059cbb", "balances"),
		pkg(t, "Mirror", "reflect", "0x00000001", "balances"),
	})
	require.Len(t, diags, 1)
	assert.Equal(t, RuleCrossStorage, diags[0].Rule)
	assert.Equal(t, []string{"Token", "Mirror", "balances"}, diags[0].Entities)
}

func TestComposeReportsEveryPair(t *testing.T) {
	diags := Compose([]*ontology.Model{
		pkg(t, "A", "fa", "0xa9059cbb", "shared"),
		pkg(t, "B", "fb", "0xa9059cbb", "shared"),
		pkg(t, "C", "fc", "0xa9059cbb", "shared"),
	})
	// Three packages collide pairwise on both surfaces: 3 + 3 diagnostics.
	require.Len(t, diags, 6)
	assert.Equal(t, RuleCrossSelector, diags[0].Rule)
	assert.Equal(t, RuleCrossStorage, diags[3].Rule)
}

func TestComposeSkipsIntraPackagePairs(t *testing.T) {
	// A single package never collides with itself at the composition level.
	diags := Compose([]*ontology.Model{
		pkg(t, "Token", "transfer", "0xa9059cbb", "balances"),
	})
	assert.Empty(t, diags)
}

func TestComposeDeterministicOrder(t *testing.T) {
	models := []*ontology.Model{
		pkg(t, "B", "fb", "0xa9059cbb", "shared"),
		pkg(t, "A", "fa", "0xa9059cbb", "shared"),
	}
	first := Compose(models)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Compose(models))
	}
}
