package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapSolidityType(t *testing.T) {
	tests := []struct {
		in   string
		want BType
	}{
		{"address", TypeAddr},
		{"uint256", TypeUint},
		{"uint8", TypeUint},
		{"uint", TypeUint},
		{"mapping(address => uint256)", TypeMapAddrUint},
		{"mapping(address=>uint256)", TypeMapAddrUint},
		{"mapping(address => mapping(address => uint256))", TypeMapAddrAddrUint},
		{"bool", TypeOpaque},
		{"bytes32", TypeOpaque},
		{"MyStruct", TypeOpaque},
		{"mapping(uint256 => address)", TypeOpaque}, // unsupported key type
		{"", TypeOpaque},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapSolidityType(tt.in), tt.in)
	}
}

func TestBaseAtoms(t *testing.T) {
	assert.Equal(t, []BType{TypeAddr, TypeUint}, TypeMapAddrUint.BaseAtoms())
	assert.Equal(t, []BType{TypeAddr, TypeUint}, TypeMapAddrAddrUint.BaseAtoms())
	assert.Nil(t, TypeAddr.BaseAtoms())
	assert.Nil(t, TypeOpaque.BaseAtoms())
}
