package ontology

import (
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Input is the raw, author-facing description of a package, as produced by
// the loader or assembled programmatically. It mirrors the partial,
// incremental shape of the source encoding.
type Input struct {
	Name            string
	Current         string // version tag, e.g. "v2"
	Interfaces      []InterfaceDecl
	Functions       []FunctionDecl
	Events          []EventDecl
	Versions        []VersionDecl
	Implementations []ImplDecl
	Bindings        map[string]string // function -> implementation
	DependsOn       []DependencyDecl
}

// InterfaceDecl declares one interface and its member references.
type InterfaceDecl struct {
	Name      string
	Kind      string // "external" or "internal"
	Functions []string
	Events    []string
}

// FunctionDecl declares one function with its selector and signature.
type FunctionDecl struct {
	Name     string
	Selector string // "0x" + 8 hex digits
	Inputs   []string
	Outputs  []string
}

// EventDecl declares one event signature.
type EventDecl struct {
	Name   string
	Inputs []string
}

// SlotDecl declares one storage slot with its type.
type SlotDecl struct {
	Slot string
	Type string
}

// VersionDecl declares the exports and the incremental storage of one version.
type VersionDecl struct {
	Version string
	Exports []string
	Storage []SlotDecl
}

// ImplDecl declares one implementation with its facet and footprint.
type ImplDecl struct {
	Name   string
	Facet  string
	Reads  []string
	Writes []string
}

// DependencyDecl declares a required package at a required version.
// Version defaults to v1 when empty.
type DependencyDecl struct {
	Name    string
	Version string
}

// ShapeError reports input that cannot be modeled at all, as opposed to a
// well-formed model that violates a structural invariant.
type ShapeError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func shapeErrorf(field, format string, args ...any) *ShapeError {
	return &ShapeError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Build constructs an immutable Model from raw input.
//
// Build fails only on malformed shape: unparsable selectors or version tags,
// duplicate declarations, missing required fields. It never checks semantic
// invariants (selector injectivity, footprint containment, ...) - those are
// the validator's job, so that a single validation run can surface every
// violation at once.
func Build(in Input) (*Model, error) {
	if in.Name == "" {
		return nil, shapeErrorf("name", "package name is required")
	}
	current, err := ParseVersion(in.Current)
	if err != nil {
		return nil, shapeErrorf("current", "%v", err)
	}

	m := &Model{
		Name:            norm.NFC.String(in.Name),
		Current:         current,
		Interfaces:      make(map[string]Interface, len(in.Interfaces)),
		Functions:       make(map[string]Function, len(in.Functions)),
		Events:          make(map[string]Event, len(in.Events)),
		Implementations: make(map[string]Implementation, len(in.Implementations)),
		Bindings:        make(map[string]string, len(in.Bindings)),
		Requires:        make(map[string]Version, len(in.DependsOn)),
		ifaceOfFunc:     make(map[string][]string),
	}

	for i, decl := range in.Interfaces {
		id := normID(decl.Name)
		field := fmt.Sprintf("interfaces[%d]", i)
		if id == "" {
			return nil, shapeErrorf(field+".name", "interface name is required")
		}
		if _, dup := m.Interfaces[id]; dup {
			return nil, shapeErrorf(field+".name", "duplicate interface %q", id)
		}
		kind := InterfaceKind(decl.Kind)
		if kind != KindExternal && kind != KindInternal {
			return nil, shapeErrorf(field+".kind", "invalid kind %q: must be %q or %q", decl.Kind, KindExternal, KindInternal)
		}
		m.Interfaces[id] = Interface{
			ID:        id,
			Kind:      kind,
			Functions: normIDs(decl.Functions),
			Events:    normIDs(decl.Events),
		}
	}

	for i, decl := range in.Functions {
		id := normID(decl.Name)
		field := fmt.Sprintf("functions[%d]", i)
		if id == "" {
			return nil, shapeErrorf(field+".name", "function name is required")
		}
		if _, dup := m.Functions[id]; dup {
			return nil, shapeErrorf(field+".name", "duplicate function %q", id)
		}
		sel, err := ParseSelector(decl.Selector)
		if err != nil {
			return nil, shapeErrorf(field+".selector", "%v", err)
		}
		m.Functions[id] = Function{
			ID:       id,
			Selector: sel,
			Inputs:   mapTypes(decl.Inputs),
			Outputs:  mapTypes(decl.Outputs),
		}
	}

	for i, decl := range in.Events {
		id := normID(decl.Name)
		field := fmt.Sprintf("events[%d]", i)
		if id == "" {
			return nil, shapeErrorf(field+".name", "event name is required")
		}
		if _, dup := m.Events[id]; dup {
			return nil, shapeErrorf(field+".name", "duplicate event %q", id)
		}
		m.Events[id] = Event{ID: id, Inputs: mapTypes(decl.Inputs)}
	}

	seenVersions := make(map[Version]bool, len(in.Versions))
	for i, decl := range in.Versions {
		field := fmt.Sprintf("versions[%d]", i)
		v, err := ParseVersion(decl.Version)
		if err != nil {
			return nil, shapeErrorf(field+".version", "%v", err)
		}
		if seenVersions[v] {
			return nil, shapeErrorf(field+".version", "duplicate version block %s", v)
		}
		seenVersions[v] = true

		block := VersionBlock{
			Version:  v,
			Exports:  normIDs(decl.Exports),
			SlotType: make(map[string]BType, len(decl.Storage)),
		}
		for j, slot := range decl.Storage {
			slotField := fmt.Sprintf("%s.storage[%d]", field, j)
			id := normID(slot.Slot)
			if id == "" {
				return nil, shapeErrorf(slotField+".slot", "slot name is required")
			}
			if _, dup := block.SlotType[id]; dup {
				return nil, shapeErrorf(slotField+".slot", "duplicate slot %q in version %s", id, v)
			}
			if slot.Type == "" {
				return nil, shapeErrorf(slotField+".type", "slot type is required")
			}
			block.Layout = append(block.Layout, id)
			block.SlotType[id] = MapSolidityType(slot.Type)
		}
		m.Blocks = append(m.Blocks, block)
	}
	sort.Slice(m.Blocks, func(i, j int) bool { return m.Blocks[i].Version < m.Blocks[j].Version })

	for i, decl := range in.Implementations {
		id := normID(decl.Name)
		field := fmt.Sprintf("implementations[%d]", i)
		if id == "" {
			return nil, shapeErrorf(field+".name", "implementation name is required")
		}
		if _, dup := m.Implementations[id]; dup {
			return nil, shapeErrorf(field+".name", "duplicate implementation %q", id)
		}
		if decl.Facet == "" {
			return nil, shapeErrorf(field+".facet", "implementation %q must belong to exactly one facet", id)
		}
		m.Implementations[id] = Implementation{
			ID:     id,
			Facet:  normID(decl.Facet),
			Reads:  normIDs(decl.Reads),
			Writes: normIDs(decl.Writes),
		}
	}

	for fn, impl := range in.Bindings {
		if impl == "" {
			return nil, shapeErrorf("bindings."+fn, "binding target is required")
		}
		m.Bindings[normID(fn)] = normID(impl)
	}

	for i, dep := range in.DependsOn {
		field := fmt.Sprintf("dependsOn[%d]", i)
		name := normID(dep.Name)
		if name == "" {
			return nil, shapeErrorf(field+".name", "dependency name is required")
		}
		if _, dup := m.Requires[name]; dup {
			return nil, shapeErrorf(field+".name", "duplicate dependency %q", name)
		}
		tag := dep.Version
		if tag == "" {
			tag = "v1"
		}
		v, err := ParseVersion(tag)
		if err != nil {
			return nil, shapeErrorf(field+".version", "%v", err)
		}
		m.Requires[name] = v
	}

	m.indexFunctions()
	return m, nil
}

// indexFunctions fills the function -> declaring interfaces index.
func (m *Model) indexFunctions() {
	for _, ifaceID := range sortedKeys(m.Interfaces) {
		for _, fn := range m.Interfaces[ifaceID].Functions {
			m.ifaceOfFunc[fn] = append(m.ifaceOfFunc[fn], ifaceID)
		}
	}
}

// normID NFC-normalizes an identifier at the construction boundary.
func normID(s string) string {
	return norm.NFC.String(s)
}

func normIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = normID(id)
	}
	return out
}

func mapTypes(types []string) []BType {
	if len(types) == 0 {
		return nil
	}
	out := make([]BType, len(types))
	for i, t := range types {
		out[i] = MapSolidityType(t)
	}
	return out
}

func sortStrings(ss []string) {
	sort.Strings(ss)
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
