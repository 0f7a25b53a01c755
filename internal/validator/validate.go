package validator

import (
	"fmt"
	"sort"

	"github.com/roach88/bmodel/internal/ontology"
)

// Invariant rule identifiers (E101-E108). Diagnostics sort by rule id, so
// the numbering fixes the report order.
const (
	RuleSelectorInjectivity = "E101" // duplicate selector among exported functions
	RuleExportResolution    = "E102" // export or interface member does not resolve
	RuleStorageTotality     = "E103" // layout and slot-type domains disagree
	RuleStorageMonotonicity = "E104" // slot re-declared with a different type, or version beyond current
	RuleBindingDomain       = "E105" // binding for a function not exported at current
	RuleBindingRange        = "E106" // binding target is not a declared implementation
	RuleFootprint           = "E107" // read/write of a slot outside the current layout
	RuleDependency          = "E108" // self-dependency or unresolved required package
)

// Diagnostic reports one invariant violation: a stable rule id, the
// offending entity identifiers and a human-readable message.
type Diagnostic struct {
	Rule     string   `json:"rule"`
	Entities []string `json:"entities"`
	Message  string   `json:"message"`
}

// String renders the diagnostic the way the CLI prints it.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Rule, d.Message)
}

// DependencyResolver answers whether a required package has been validated
// at a given version. The registry implements it; a nil resolver skips the
// existence half of the dependency check.
type DependencyResolver interface {
	HasPackage(name string, version ontology.Version) (bool, error)
}

// Validate checks every structural invariant and returns all violations,
// sorted by rule id then entity ids for reproducible output. An empty list
// means the model is structurally sound.
//
// Validate never mutates the model and never fails on invalid input data:
// malformed input is rejected earlier, by ontology.Build.
func Validate(m *ontology.Model) []Diagnostic {
	diags, _ := ValidateWithResolver(m, nil)
	return diags
}

// ValidateWithResolver is Validate plus the dependency existence check
// backed by resolver. The only error condition is a resolver failure;
// invariant violations are always diagnostics.
func ValidateWithResolver(m *ontology.Model, resolver DependencyResolver) ([]Diagnostic, error) {
	v := &modelValidator{model: m}

	v.checkSelectorInjectivity()
	v.checkExportResolution()
	v.checkStorageTotality()
	v.checkStorageMonotonicity()
	v.checkBindingDomain()
	v.checkBindingRange()
	v.checkFootprints()
	if err := v.checkDependencies(resolver); err != nil {
		return nil, err
	}

	sortDiagnostics(v.diags)
	return v.diags, nil
}

// modelValidator accumulates diagnostics during the checks.
type modelValidator struct {
	model *ontology.Model
	diags []Diagnostic
}

func (v *modelValidator) report(rule string, entities []string, format string, args ...any) {
	v.diags = append(v.diags, Diagnostic{
		Rule:     rule,
		Entities: entities,
		Message:  fmt.Sprintf(format, args...),
	})
}

// checkSelectorInjectivity verifies that no two functions exported at
// current share a selector. Colliding pairs are reported once each, ordered
// by function id.
func (v *modelValidator) checkSelectorInjectivity() {
	exported := v.model.ExportedFunctions(v.model.Current)

	bySelector := make(map[ontology.Selector][]string)
	for _, fnID := range exported {
		fn, ok := v.model.Functions[fnID]
		if !ok {
			continue // unresolved reference, reported under E102
		}
		bySelector[fn.Selector] = append(bySelector[fn.Selector], fnID)
	}

	selectors := make([]ontology.Selector, 0, len(bySelector))
	for sel := range bySelector {
		selectors = append(selectors, sel)
	}
	sort.Slice(selectors, func(i, j int) bool { return selectors[i].String() < selectors[j].String() })

	for _, sel := range selectors {
		fns := bySelector[sel]
		if len(fns) < 2 {
			continue
		}
		sort.Strings(fns)
		for i := 0; i < len(fns); i++ {
			for j := i + 1; j < len(fns); j++ {
				v.report(RuleSelectorInjectivity, []string{fns[i], fns[j]},
					"functions %q and %q share selector %s", fns[i], fns[j], sel)
			}
		}
	}
}

// checkExportResolution verifies that the derived exported-function set can
// actually be derived: every exported interface is declared, and every
// function or event an interface lists is declared.
func (v *modelValidator) checkExportResolution() {
	for _, block := range v.model.Blocks {
		for _, ifaceID := range block.Exports {
			if _, ok := v.model.Interfaces[ifaceID]; !ok {
				v.report(RuleExportResolution, []string{ifaceID, block.Version.String()},
					"version %s exports unknown interface %q", block.Version, ifaceID)
			}
		}
	}

	for _, ifaceID := range sortedKeys(v.model.Interfaces) {
		iface := v.model.Interfaces[ifaceID]
		for _, fnID := range iface.Functions {
			if _, ok := v.model.Functions[fnID]; !ok {
				v.report(RuleExportResolution, []string{ifaceID, fnID},
					"interface %q lists unknown function %q", ifaceID, fnID)
			}
		}
		for _, evID := range iface.Events {
			if _, ok := v.model.Events[evID]; !ok {
				v.report(RuleExportResolution, []string{ifaceID, evID},
					"interface %q lists unknown event %q", ifaceID, evID)
			}
		}
	}
}

// checkStorageTotality verifies dom(slotType(v)) = layout(v) for every
// declared version block, in both directions.
func (v *modelValidator) checkStorageTotality() {
	for _, block := range v.model.Blocks {
		inLayout := make(map[string]bool, len(block.Layout))
		for _, slot := range block.Layout {
			inLayout[slot] = true
			if _, ok := block.SlotType[slot]; !ok {
				v.report(RuleStorageTotality, []string{block.Version.String(), slot},
					"version %s declares slot %q without a type", block.Version, slot)
			}
		}
		for _, slot := range sortedKeys(block.SlotType) {
			if !inLayout[slot] {
				v.report(RuleStorageTotality, []string{block.Version.String(), slot},
					"version %s types slot %q outside its layout", block.Version, slot)
			}
		}
	}
}

// checkStorageMonotonicity verifies the grow-only, type-stable upgrade
// policy: once a slot appears, later versions may not change its type.
// A type mismatch is reported against the earliest offending pair, with the
// first declaring version minimal. Version blocks beyond current are also
// rejected here, since the chain only reaches up to current.
func (v *modelValidator) checkStorageMonotonicity() {
	type firstDecl struct {
		version ontology.Version
		typ     ontology.BType
	}
	first := make(map[string]firstDecl)

	for _, block := range v.model.Blocks {
		if block.Version > v.model.Current {
			v.report(RuleStorageMonotonicity, []string{block.Version.String()},
				"version %s is beyond current %s", block.Version, v.model.Current)
			continue
		}
		for _, slot := range sortedKeys(block.SlotType) {
			typ := block.SlotType[slot]
			prev, seen := first[slot]
			if !seen {
				first[slot] = firstDecl{version: block.Version, typ: typ}
				continue
			}
			if prev.typ != typ {
				v.report(RuleStorageMonotonicity, []string{slot, prev.version.String(), block.Version.String()},
					"slot %q changes type from %s at %s to %s at %s",
					slot, prev.typ, prev.version, typ, block.Version)
			}
		}
	}
}

// checkBindingDomain verifies dom(ext_to_impl) is contained in the
// exported-function set at current.
func (v *modelValidator) checkBindingDomain() {
	exported := make(map[string]bool)
	for _, fn := range v.model.ExportedFunctions(v.model.Current) {
		exported[fn] = true
	}
	for _, fnID := range sortedKeys(v.model.Bindings) {
		if !exported[fnID] {
			v.report(RuleBindingDomain, []string{fnID},
				"binding refers to function %q which is not exported at %s", fnID, v.model.Current)
		}
	}
}

// checkBindingRange verifies ran(ext_to_impl) is contained in the declared
// implementations (each of which carries its facet by construction).
func (v *modelValidator) checkBindingRange() {
	for _, fnID := range sortedKeys(v.model.Bindings) {
		implID := v.model.Bindings[fnID]
		if _, ok := v.model.Implementations[implID]; !ok {
			v.report(RuleBindingRange, []string{implID, fnID},
				"function %q is bound to unknown implementation %q", fnID, implID)
		}
	}
}

// checkFootprints verifies every read and written slot is allocated in the
// cumulative layout at current.
func (v *modelValidator) checkFootprints() {
	allocated := make(map[string]bool)
	for _, block := range v.model.Blocks {
		if block.Version > v.model.Current {
			continue
		}
		for _, slot := range block.Layout {
			allocated[slot] = true
		}
	}

	for _, implID := range sortedKeys(v.model.Implementations) {
		impl := v.model.Implementations[implID]
		for _, slot := range impl.Reads {
			if !allocated[slot] {
				v.report(RuleFootprint, []string{implID, slot},
					"implementation %q reads undeclared slot %q", implID, slot)
			}
		}
		for _, slot := range impl.Writes {
			if !allocated[slot] {
				v.report(RuleFootprint, []string{implID, slot},
					"implementation %q writes undeclared slot %q", implID, slot)
			}
		}
	}
}

// checkDependencies verifies the package does not require itself, and that
// every required package/version pair resolves when a resolver is available.
func (v *modelValidator) checkDependencies(resolver DependencyResolver) error {
	for _, dep := range sortedKeys(v.model.Requires) {
		depVersion := v.model.Requires[dep]
		if dep == v.model.Name {
			v.report(RuleDependency, []string{dep},
				"package %q requires itself", dep)
			continue
		}
		if resolver == nil {
			continue
		}
		ok, err := resolver.HasPackage(dep, depVersion)
		if err != nil {
			return fmt.Errorf("resolving dependency %s %s: %w", dep, depVersion, err)
		}
		if !ok {
			v.report(RuleDependency, []string{dep, depVersion.String()},
				"required package %q has no validated version %s", dep, depVersion)
		}
	}
	return nil
}

// sortDiagnostics orders diagnostics by rule id, then entity ids, then
// message, so repeated runs on identical input report identically.
func sortDiagnostics(diags []Diagnostic) {
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
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return diags[i].Message < diags[j].Message
	})
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
