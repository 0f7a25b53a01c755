// Package totalize folds the author-supplied per-version deltas of a
// validated ontology into the total, cumulative relations a prover expects.
package totalize

import (
	"sort"

	"github.com/roach88/bmodel/internal/ontology"
)

// Totalized carries the complete relations for every version v1..current.
// Every version in range has an entry, even when its declared delta was
// empty. Slices are sorted and deduplicated.
type Totalized struct {
	Model    *ontology.Model
	Versions []ontology.Version

	// Layout maps each version to its cumulative storage layout.
	Layout map[ontology.Version][]string

	// SlotTypes maps each version to the cumulative slot -> type relation.
	// dom(SlotTypes[v]) = Layout[v] holds by construction.
	SlotTypes map[ontology.Version]map[string]ontology.BType

	// Exported maps each version to its exact exported-function set: the
	// union of the function lists of the interfaces exported at it.
	Exported map[ontology.Version][]string
}

// Totalize derives the cumulative relations with a single forward fold:
// each version's complete picture is the previous picture plus that
// version's declared delta. This is O(V) and matches the grow-only storage
// policy by construction, since later states syntactically contain earlier
// ones.
//
// Totalize assumes a model that passed validation. Conflicting
// re-declarations were already rejected, so merging is a plain extension.
func Totalize(m *ontology.Model) *Totalized {
	t := &Totalized{
		Model:     m,
		Layout:    make(map[ontology.Version][]string, int(m.Current)),
		SlotTypes: make(map[ontology.Version]map[string]ontology.BType, int(m.Current)),
		Exported:  make(map[ontology.Version][]string, int(m.Current)),
	}

	var prevLayout []string
	prevTypes := map[string]ontology.BType{}

	for v := ontology.Version(1); v <= m.Current; v++ {
		t.Versions = append(t.Versions, v)

		layout := append([]string(nil), prevLayout...)
		types := make(map[string]ontology.BType, len(prevTypes))
		for slot, typ := range prevTypes {
			types[slot] = typ
		}

		if block, ok := m.Block(v); ok {
			for _, slot := range block.Layout {
				if _, seen := types[slot]; !seen {
					layout = append(layout, slot)
				}
				types[slot] = block.SlotType[slot]
			}
		}
		sort.Strings(layout)

		t.Layout[v] = layout
		t.SlotTypes[v] = types
		t.Exported[v] = m.ExportedFunctions(v)

		prevLayout = layout
		prevTypes = types
	}

	return t
}
