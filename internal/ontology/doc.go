// Package ontology provides the typed in-memory model of a smart-contract
// package: its interfaces, functions, events, storage slots, versions,
// implementations, facets and bindings.
//
// This package is the foundational layer. All other internal packages import
// ontology; ontology imports nothing internal, so there are no circular
// dependencies.
//
// Key design constraints:
//   - The model is constructed once per run by Build and treated as read-only
//     afterwards. Validation, totalization and emission never mutate it.
//   - Build reports shape errors only (input that cannot be modeled at all,
//     e.g. a selector of the wrong byte length). Semantic invariant
//     violations are the validator's job.
//   - All identifiers are NFC-normalized at the construction boundary.
package ontology
