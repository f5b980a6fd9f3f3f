// Package errors provides structured error types for the wasm-binfmt library.
//
// Errors are categorized by Phase (where the error occurred) and Code (which
// invariant was violated). The Error type records the byte offset into the
// input and a small Context payload so a diagnostic can be printed without
// re-scanning the module.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSection, errors.CodeResolvedCountMismatch).
//		At(pos).
//		Section("global").
//		Context(errors.CountPair{Got: 1, Want: 2}).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Code, so a template error works as a sentinel:
//
//	errors.Is(err, &errors.Error{Code: errors.CodeDuplicateSection})
package errors
