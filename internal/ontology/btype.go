package ontology

import "strings"

// BType is a B-notation type symbol as consumed by the prover.
type BType string

// Type symbols emitted into the glue machine and refinement.
const (
	TypeAddr            BType = "t_ADDR"
	TypeUint            BType = "t_UINT"
	TypeMapAddrUint     BType = "t_MAP_ADDR_UINT"
	TypeMapAddrAddrUint BType = "t_MAP_ADDR_ADDR_UINT"
	TypeOpaque          BType = "t_OPAQUE"
)

// MapSolidityType maps a Solidity-style type string to its B type symbol.
// Unknown or user-defined types collapse to the opaque alias.
func MapSolidityType(t string) BType {
	t = strings.ReplaceAll(t, " ", "")
	switch t {
	case "address":
		return TypeAddr
	case "uint256", "uint", "uint128", "uint64", "uint32", "uint16", "uint8":
		return TypeUint
	}
	if strings.HasPrefix(t, "mapping(address=>mapping(address=>uint") {
		return TypeMapAddrAddrUint
	}
	if strings.HasPrefix(t, "mapping(address=>uint") {
		return TypeMapAddrUint
	}
	return TypeOpaque
}

// BaseAtoms returns the atomic type symbols a mapping shape depends on.
// Non-mapping types have no base atoms.
func (t BType) BaseAtoms() []BType {
	if strings.HasPrefix(string(t), "t_MAP_ADDR_") {
		return []BType{TypeAddr, TypeUint}
	}
	return nil
}
