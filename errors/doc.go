// Package errors provides structured error types for the compatibility layer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the component or code unit involved, a dotted path to the
// offending item and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindMissingRequire).
//		Component("org.openjdk.nashorn").
//		Path("requires", "org.objectweb.asm").
//		Detail("module not found").
//		Build()
//
// Failures during bootstrap and code transformation are tier-1 failures: they are
// wrapped with Fatal and the host must abort. Everything else is reported to the
// immediate caller and does not affect other in-flight calls.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
