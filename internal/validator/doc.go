// Package validator checks a package ontology against the closed set of
// structural invariants that must hold before any prover artifact is emitted.
//
// Validate is a pure function from a model to a list of diagnostics. Every
// check runs; nothing short-circuits, so a single run surfaces every
// violation at once. An invariant violation is never an error value - only a
// failing dependency resolver produces one.
package validator
