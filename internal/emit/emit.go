// Package emit renders a totalized, validated ontology into the two B
// artifacts consumed by the prover: a refinement instance and a glue
// machine. Both are rendered in one pass over the same model, so their
// cross-references can never drift apart.
//
// Emission is deterministic by construction: every relation is enumerated
// one entry per line, sorted lexically by left component then right
// component, and repeated runs on identical input produce byte-identical
// artifacts.
package emit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/bmodel/internal/ontology"
	"github.com/roach88/bmodel/internal/totalize"
)

// Artifacts holds the rendered artifact texts and their file names.
// File names derive from the package name: FT_PACKAGE_INST_<Name>.ref and
// FT_PACKAGE_GLUE_<Name>.mch.
type Artifacts struct {
	RefinementName string
	Refinement     []byte
	GlueName       string
	Glue           []byte
}

// symbolPattern strips characters that are not legal in B identifiers.
var symbolPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Emit renders both artifacts from a totalized model.
//
// Emit assumes the model passed validation; it is not responsible for
// re-checking invariants. Callers must gate on an empty diagnostics list
// before invoking it.
func Emit(t *totalize.Totalized) *Artifacts {
	name := sanitizeSymbol(t.Model.Name)
	return &Artifacts{
		RefinementName: fmt.Sprintf("FT_PACKAGE_INST_%s.ref", name),
		Refinement:     renderRefinement(t, name),
		GlueName:       fmt.Sprintf("FT_PACKAGE_GLUE_%s.mch", name),
		Glue:           renderGlue(t, name),
	}
}

// renderGlue renders the glue machine: the local signature sets the
// refinement instantiates. It restates no invariants - those live in the
// abstract rulebook the refinement refines.
func renderGlue(t *totalize.Totalized, name string) []byte {
	m := t.Model
	suffix := strings.ToUpper(name)

	var sets []string
	addSet := func(setName string, elems []string) {
		if len(elems) == 0 {
			return
		}
		sets = append(sets, fmt.Sprintf("    %s_%s = {%s}", setName, suffix, strings.Join(elems, ", ")))
	}

	addSet("IFACES", prefixed("i_", sortedKeys(m.Interfaces)))
	addSet("FUNS", prefixed("f_", sortedKeys(m.Functions)))
	addSet("EVENTS", prefixed("e_", sortedKeys(m.Events)))
	addSet("SLOTS", prefixed("s_", t.Layout[m.Current]))
	addSet("TYPES", typeSymbols(t))
	addSet("SELECTORS", prefixed("sel_", sortedKeys(m.Functions)))
	addSet("IMPLS", sortedKeys(m.Implementations))
	addSet("FACETS", facetSymbols(m))
	addSet("VERSIONS", versionSymbols(t))

	var b strings.Builder
	fmt.Fprintf(&b, "MACHINE FT_PACKAGE_GLUE_%s\n", name)
	b.WriteString("SETS\n")
	b.WriteString(strings.Join(sets, ";\n"))
	b.WriteString("\nEND\n")
	return []byte(b.String())
}

// renderRefinement renders the refinement instance: total maps over the full
// version range v1..current, with every relation explicitly enumerated.
func renderRefinement(t *totalize.Totalized, name string) []byte {
	m := t.Model

	var b strings.Builder
	fmt.Fprintf(&b, "REFINEMENT FT_PACKAGE_INST_%s\n", name)
	b.WriteString("REFINES FT_PACKAGE\n")
	fmt.Fprintf(&b, "SEES FT_PACKAGE_GLUE_%s\n", name)
	b.WriteString("CONSTANTS\n")
	b.WriteString("    funSig, eventSig, selector, exports, exportedFuns, layout, slotType,\n")
	b.WriteString("    ext_to_impl, facetOf, reads, writes, requires\n")
	b.WriteString("PROPERTIES\n")

	relations := []struct {
		name    string
		entries []string
	}{
		{"funSig", funSigEntries(m)},
		{"eventSig", eventSigEntries(m)},
		{"selector", selectorEntries(m)},
		{"exports", exportEntries(t)},
		{"exportedFuns", exportedFunEntries(t)},
		{"layout", layoutEntries(t)},
		{"slotType", slotTypeEntries(t)},
		{"ext_to_impl", bindingEntries(m)},
		{"facetOf", facetEntries(m)},
		{"reads", footprintEntries(m, func(impl ontology.Implementation) []string { return impl.Reads })},
		{"writes", footprintEntries(m, func(impl ontology.Implementation) []string { return impl.Writes })},
		{"requires", requireEntries(m)},
	}
	for i, rel := range relations {
		writeRelation(&b, rel.name, rel.entries, i == len(relations)-1)
	}

	b.WriteString("INITIALISATION\n")
	b.WriteString("    current := v1\n")
	b.WriteString("END\n")
	return []byte(b.String())
}

// writeRelation writes one relation as an explicit enumeration, one entry
// per line. Empty relations render as {} so every map stays total.
func writeRelation(b *strings.Builder, name string, entries []string, last bool) {
	sep := " &"
	if last {
		sep = ""
	}
	if len(entries) == 0 {
		fmt.Fprintf(b, "    %s = {}%s\n", name, sep)
		return
	}
	fmt.Fprintf(b, "    %s = {\n", name)
	for i, entry := range entries {
		comma := ","
		if i == len(entries)-1 {
			comma = ""
		}
		fmt.Fprintf(b, "        %s%s\n", entry, comma)
	}
	fmt.Fprintf(b, "    }%s\n", sep)
}

func funSigEntries(m *ontology.Model) []string {
	entries := make([]string, 0, len(m.Functions))
	for _, id := range sortedKeys(m.Functions) {
		fn := m.Functions[id]
		entries = append(entries, fmt.Sprintf("f_%s|->(%s,%s)", id, typeSeq(fn.Inputs), typeSeq(fn.Outputs)))
	}
	return entries
}

func eventSigEntries(m *ontology.Model) []string {
	entries := make([]string, 0, len(m.Events))
	for _, id := range sortedKeys(m.Events) {
		ev := m.Events[id]
		entries = append(entries, fmt.Sprintf("e_%s|->%s", id, typeSeq(ev.Inputs)))
	}
	return entries
}

func selectorEntries(m *ontology.Model) []string {
	entries := make([]string, 0, len(m.Functions))
	for _, id := range sortedKeys(m.Functions) {
		entries = append(entries, fmt.Sprintf("f_%s|->sel_%s", id, id))
	}
	return entries
}

func exportEntries(t *totalize.Totalized) []string {
	entries := make([]string, 0, len(t.Versions))
	for _, v := range t.Versions {
		var ifaces []string
		if block, ok := t.Model.Block(v); ok {
			ifaces = prefixed("i_", sortedCopy(block.Exports))
		}
		entries = append(entries, fmt.Sprintf("%s|->{%s}", v, strings.Join(ifaces, ", ")))
	}
	return entries
}

func exportedFunEntries(t *totalize.Totalized) []string {
	entries := make([]string, 0, len(t.Versions))
	for _, v := range t.Versions {
		funcs := prefixed("f_", t.Exported[v])
		entries = append(entries, fmt.Sprintf("%s|->{%s}", v, strings.Join(funcs, ", ")))
	}
	return entries
}

func layoutEntries(t *totalize.Totalized) []string {
	entries := make([]string, 0, len(t.Versions))
	for _, v := range t.Versions {
		slots := prefixed("s_", t.Layout[v])
		entries = append(entries, fmt.Sprintf("%s|->{%s}", v, strings.Join(slots, ", ")))
	}
	return entries
}

func slotTypeEntries(t *totalize.Totalized) []string {
	entries := make([]string, 0, len(t.Versions))
	for _, v := range t.Versions {
		types := t.SlotTypes[v]
		pairs := make([]string, 0, len(types))
		for _, slot := range sortedKeys(types) {
			pairs = append(pairs, fmt.Sprintf("s_%s|->%s", slot, types[slot]))
		}
		entries = append(entries, fmt.Sprintf("%s|->{%s}", v, strings.Join(pairs, ", ")))
	}
	return entries
}

func bindingEntries(m *ontology.Model) []string {
	entries := make([]string, 0, len(m.Bindings))
	for _, fn := range sortedKeys(m.Bindings) {
		entries = append(entries, fmt.Sprintf("f_%s|->%s", fn, m.Bindings[fn]))
	}
	return entries
}

func facetEntries(m *ontology.Model) []string {
	entries := make([]string, 0, len(m.Implementations))
	for _, id := range sortedKeys(m.Implementations) {
		entries = append(entries, fmt.Sprintf("%s|->%s", id, m.Implementations[id].Facet))
	}
	return entries
}

func footprintEntries(m *ontology.Model, slotsOf func(ontology.Implementation) []string) []string {
	var entries []string
	for _, id := range sortedKeys(m.Implementations) {
		for _, slot := range sortedCopy(slotsOf(m.Implementations[id])) {
			entries = append(entries, fmt.Sprintf("%s|->s_%s", id, slot))
		}
	}
	return entries
}

func requireEntries(m *ontology.Model) []string {
	entries := make([]string, 0, len(m.Requires))
	for _, dep := range sortedKeys(m.Requires) {
		entries = append(entries, fmt.Sprintf("%s|->%s", sanitizeSymbol(dep), m.Requires[dep]))
	}
	return entries
}

// typeSeq renders an ordered type sequence, e.g. <t_ADDR,t_UINT>.
func typeSeq(types []ontology.BType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return "<" + strings.Join(parts, ",") + ">"
}

// typeSymbols collects every type symbol the package touches: cumulative
// slot types at current, function signatures, event signatures, plus the
// base atoms implied by mapping shapes. Sorted and deduplicated.
func typeSymbols(t *totalize.Totalized) []string {
	seen := make(map[ontology.BType]bool)
	add := func(typ ontology.BType) {
		seen[typ] = true
		for _, atom := range typ.BaseAtoms() {
			seen[atom] = true
		}
	}

	for _, typ := range t.SlotTypes[t.Model.Current] {
		add(typ)
	}
	for _, fn := range t.Model.Functions {
		for _, typ := range fn.Inputs {
			add(typ)
		}
		for _, typ := range fn.Outputs {
			add(typ)
		}
	}
	for _, ev := range t.Model.Events {
		for _, typ := range ev.Inputs {
			add(typ)
		}
	}

	symbols := make([]string, 0, len(seen))
	for typ := range seen {
		symbols = append(symbols, string(typ))
	}
	sort.Strings(symbols)
	return symbols
}

func facetSymbols(m *ontology.Model) []string {
	seen := make(map[string]bool)
	for _, impl := range m.Implementations {
		seen[impl.Facet] = true
	}
	facets := make([]string, 0, len(seen))
	for f := range seen {
		facets = append(facets, f)
	}
	sort.Strings(facets)
	return facets
}

func versionSymbols(t *totalize.Totalized) []string {
	symbols := make([]string, len(t.Versions))
	for i, v := range t.Versions {
		symbols[i] = v.String()
	}
	return symbols
}

func sanitizeSymbol(s string) string {
	return symbolPattern.ReplaceAllString(s, "_")
}

func prefixed(prefix string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = prefix + id
	}
	return out
}

func sortedCopy(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

// sortedKeys returns the map keys in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
