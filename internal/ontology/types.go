package ontology

// InterfaceKind distinguishes externally exported interfaces from internal ones.
type InterfaceKind string

// Allowed interface kinds.
const (
	KindExternal InterfaceKind = "external"
	KindInternal InterfaceKind = "internal"
)

// Interface groups functions and events under a named contract surface.
type Interface struct {
	ID        string        `json:"id"`
	Kind      InterfaceKind `json:"kind"`
	Functions []string      `json:"functions"` // function ids
	Events    []string      `json:"events"`    // event ids
}

// Function is a callable with an ordered signature and a dispatch selector.
type Function struct {
	ID       string   `json:"id"`
	Selector Selector `json:"selector"`
	Inputs   []BType  `json:"inputs"`
	Outputs  []BType  `json:"outputs"`
}

// Event is a log signature with an ordered argument list.
type Event struct {
	ID     string  `json:"id"`
	Inputs []BType `json:"inputs"`
}

// Implementation is a deployable unit bound to exactly one facet, with a
// declared storage footprint.
type Implementation struct {
	ID     string   `json:"id"`
	Facet  string   `json:"facet"`
	Reads  []string `json:"reads"`  // slot ids
	Writes []string `json:"writes"` // slot ids
}

// VersionBlock holds the author-supplied delta for one version: the full
// export set at that version and the storage slots newly declared at it.
// Layout and SlotType are kept as separate relations so the validator can
// check their domains agree.
type VersionBlock struct {
	Version  Version          `json:"version"`
	Exports  []string         `json:"exports"` // interface ids
	Layout   []string         `json:"layout"`  // declared slot ids, this version only
	SlotType map[string]BType `json:"slot_type"`
}

// Model is the immutable in-memory ontology of one package.
// Construct it with Build; treat it as read-only afterwards.
type Model struct {
	Name    string  `json:"name"`
	Current Version `json:"current"`

	Interfaces      map[string]Interface      `json:"interfaces"`
	Functions       map[string]Function       `json:"functions"`
	Events          map[string]Event          `json:"events"`
	Implementations map[string]Implementation `json:"implementations"`

	// Bindings maps exported function id -> implementation id.
	Bindings map[string]string `json:"bindings"`

	// Requires maps required package name -> required version.
	Requires map[string]Version `json:"requires"`

	// Blocks holds the per-version deltas, sorted ascending by version.
	Blocks []VersionBlock `json:"blocks"`

	// ifaceOfFunc indexes function id -> declaring interface ids (sorted).
	ifaceOfFunc map[string][]string
}

// Block returns the version block declared at exactly v, if any.
func (m *Model) Block(v Version) (VersionBlock, bool) {
	for _, b := range m.Blocks {
		if b.Version == v {
			return b, true
		}
	}
	return VersionBlock{}, false
}

// DeclaringInterfaces returns the ids of interfaces that list the function,
// sorted lexically. Nil when no interface declares it.
func (m *Model) DeclaringInterfaces(funcID string) []string {
	return m.ifaceOfFunc[funcID]
}

// ExportedFunctions returns the deduplicated, sorted set of function ids
// exported at version v: the union of the function lists of every interface
// in the block's export set. Unknown interface references are skipped; the
// validator reports them.
func (m *Model) ExportedFunctions(v Version) []string {
	b, ok := m.Block(v)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var funcs []string
	for _, ifaceID := range b.Exports {
		iface, ok := m.Interfaces[ifaceID]
		if !ok {
			continue
		}
		for _, f := range iface.Functions {
			if !seen[f] {
				seen[f] = true
				funcs = append(funcs, f)
			}
		}
	}
	sortStrings(funcs)
	return funcs
}
