package ontology

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPackage is the domain prefix for package fingerprints.
// The version suffix enables future algorithm migration.
const DomainPackage = "bmodel/package/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a model.
// Two models that declare the same package byte-identically always produce
// the same fingerprint, regardless of declaration order in the source.
func Fingerprint(m *Model) (string, error) {
	obj := map[string]any{
		"name":    m.Name,
		"current": m.Current,
	}

	ifaces := make([]any, 0, len(m.Interfaces))
	for _, id := range sortedKeys(m.Interfaces) {
		iface := m.Interfaces[id]
		ifaces = append(ifaces, map[string]any{
			"id":        iface.ID,
			"kind":      string(iface.Kind),
			"functions": iface.Functions,
			"events":    iface.Events,
		})
	}
	obj["interfaces"] = ifaces

	funcs := make([]any, 0, len(m.Functions))
	for _, id := range sortedKeys(m.Functions) {
		fn := m.Functions[id]
		funcs = append(funcs, map[string]any{
			"id":       fn.ID,
			"selector": fn.Selector,
			"inputs":   fn.Inputs,
			"outputs":  fn.Outputs,
		})
	}
	obj["functions"] = funcs

	events := make([]any, 0, len(m.Events))
	for _, id := range sortedKeys(m.Events) {
		ev := m.Events[id]
		events = append(events, map[string]any{
			"id":     ev.ID,
			"inputs": ev.Inputs,
		})
	}
	obj["events"] = events

	blocks := make([]any, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		slotTypes := make(map[string]any, len(b.SlotType))
		for slot, t := range b.SlotType {
			slotTypes[slot] = t
		}
		layout := append([]string(nil), b.Layout...)
		sortStrings(layout)
		exports := append([]string(nil), b.Exports...)
		sortStrings(exports)
		blocks = append(blocks, map[string]any{
			"version":   b.Version,
			"exports":   exports,
			"layout":    layout,
			"slot_type": slotTypes,
		})
	}
	obj["blocks"] = blocks

	impls := make([]any, 0, len(m.Implementations))
	for _, id := range sortedKeys(m.Implementations) {
		impl := m.Implementations[id]
		impls = append(impls, map[string]any{
			"id":     impl.ID,
			"facet":  impl.Facet,
			"reads":  impl.Reads,
			"writes": impl.Writes,
		})
	}
	obj["implementations"] = impls

	bindings := make(map[string]any, len(m.Bindings))
	for fn, impl := range m.Bindings {
		bindings[fn] = impl
	}
	obj["bindings"] = bindings

	requires := make(map[string]any, len(m.Requires))
	for pkg, v := range m.Requires {
		requires[pkg] = v
	}
	obj["requires"] = requires

	canonical, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPackage, canonical), nil
}
