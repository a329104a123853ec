// Package errors provides structured error types for the openpose-go binding layer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries context: the Go type involved, the native symbol, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrap, errors.KindUnsupportedType).
//		Type("*openpose.Datum").
//		Detail("no shared pointer binding").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Disposed(errors.PhaseGet, "*sharedptr.SharedPtr[*openpose.Producer]")
//	err := errors.MissingSymbol("simlib", "std_shared_ptr_op_Gui_get")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels (ErrDisposed, ErrNullArgument, ...) match an
// error of the same kind regardless of phase.
package errors
