// Package diamond runs the cross-package checks a Diamond composition
// needs on top of per-package validation: selector disjointness and storage
// disjointness over the union of all composed packages.
//
// Composition is an explicit, separate pass. Each package must validate
// cleanly on its own before it participates; Compose assumes that and only
// checks the relations between packages.
package diamond

import (
	"fmt"
	"sort"

	"github.com/roach88/bmodel/internal/ontology"
	"github.com/roach88/bmodel/internal/totalize"
	"github.com/roach88/bmodel/internal/validator"
)

// Cross-package rule identifiers. Numbered above the single-package rules
// so combined reports keep the per-package diagnostics first.
const (
	RuleCrossSelector = "E201" // selector claimed by two packages
	RuleCrossStorage  = "E202" // slot allocated by two packages
)

// Compose checks every pair of packages for selector and storage overlap.
// Diagnostics are sorted the same way validator sorts its own, so repeated
// runs report identically.
func Compose(models []*ontology.Model) []validator.Diagnostic {
	var diags []validator.Diagnostic

	type claim struct {
		pkg string
		id  string
	}
	selectorClaims := make(map[ontology.Selector][]claim)
	slotClaims := make(map[string][]claim)

	for _, m := range models {
		t := totalize.Totalize(m)
		for _, fnID := range t.Exported[m.Current] {
			fn, ok := m.Functions[fnID]
			if !ok {
				continue
			}
			selectorClaims[fn.Selector] = append(selectorClaims[fn.Selector], claim{pkg: m.Name, id: fnID})
		}
		for _, slot := range t.Layout[m.Current] {
			slotClaims[slot] = append(slotClaims[slot], claim{pkg: m.Name, id: slot})
		}
	}

	selectors := make([]ontology.Selector, 0, len(selectorClaims))
	for sel := range selectorClaims {
		selectors = append(selectors, sel)
	}
	sort.Slice(selectors, func(i, j int) bool { return selectors[i].String() < selectors[j].String() })

	for _, sel := range selectors {
		claims := selectorClaims[sel]
		for i := 0; i < len(claims); i++ {
			for j := i + 1; j < len(claims); j++ {
				a, b := claims[i], claims[j]
				if a.pkg == b.pkg {
					continue // intra-package collisions belong to Validate
				}
				diags = append(diags, validator.Diagnostic{
					Rule:     RuleCrossSelector,
					Entities: []string{a.pkg + "." + a.id, b.pkg + "." + b.id},
					Message: fmt.Sprintf("packages %q and %q both export selector %s (%s, %s)",
						a.pkg, b.pkg, sel, a.id, b.id),
				})
			}
		}
	}

	slots := make([]string, 0, len(slotClaims))
	for slot := range slotClaims {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		claims := slotClaims[slot]
		for i := 0; i < len(claims); i++ {
			for j := i + 1; j < len(claims); j++ {
				a, b := claims[i], claims[j]
				if a.pkg == b.pkg {
					continue
				}
				diags = append(diags, validator.Diagnostic{
					Rule:     RuleCrossStorage,
					Entities: []string{a.pkg, b.pkg, slot},
					Message: fmt.Sprintf("packages %q and %q both allocate slot %q",
						a.pkg, b.pkg, slot),
				})
			}
		}
	}

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Rule != diags[j].Rule {
			return diags[i].Rule < diags[j].Rule
		}
		a, b := diags[i].Entities, diags[j].Entities
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return diags
}
