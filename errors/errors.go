package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the binding layer the error occurred
type Phase string

const (
	PhaseWrap    Phase = "wrap"    // owning construction
	PhaseAttach  Phase = "attach"  // attaching to a native shared pointer
	PhaseGet     Phase = "get"     // raw pointer access
	PhaseDispose Phase = "dispose" // release
	PhaseResolve Phase = "resolve" // type to native operation lookup
	PhaseLoad    Phase = "load"    // native library loading
	PhaseNative  Phase = "native"  // native call
)

// Kind categorizes the error
type Kind string

const (
	KindNullArgument    Kind = "null_argument"
	KindDisposed        Kind = "object_disposed"
	KindUnsupportedType Kind = "unsupported_type"
	KindMissingSymbol   Kind = "missing_symbol"
	KindNativeCall      Kind = "native_call"
	KindInvalidHandle   Kind = "invalid_handle"
	KindNotInitialized  Kind = "not_initialized"
	KindInstantiation   Kind = "instantiation"
	KindInvalidInput    Kind = "invalid_input"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrNullArgument    = &Error{Kind: KindNullArgument}
	ErrDisposed        = &Error{Kind: KindDisposed}
	ErrUnsupportedType = &Error{Kind: KindUnsupportedType}
	ErrMissingSymbol   = &Error{Kind: KindMissingSymbol}
	ErrNativeCall      = &Error{Kind: KindNativeCall}
	ErrInvalidHandle   = &Error{Kind: KindInvalidHandle}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string // Go type name
	Symbol string // native symbol
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Type != "" || e.Symbol != "" {
		b.WriteString(": ")
		if e.Type != "" && e.Symbol != "" {
			b.WriteString("type ")
			b.WriteString(e.Type)
			b.WriteString(", symbol ")
			b.WriteString(e.Symbol)
		} else if e.Type != "" {
			b.WriteString("type ")
			b.WriteString(e.Type)
		} else {
			b.WriteString("symbol ")
			b.WriteString(e.Symbol)
		}
	}

	if e.Detail != "" {
		if e.Type != "" || e.Symbol != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Type sets the Go type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Symbol sets the native symbol name
func (b *Builder) Symbol(s string) *Builder {
	b.err.Symbol = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NullArgument reports an absent object where one is required.
func NullArgument(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullArgument,
		Type:   goType,
		Detail: "object is nil",
	}
}

// Disposed reports use of an object after it was disposed.
func Disposed(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisposed,
		Type:   goType,
		Detail: "object already disposed",
	}
}

// UnsupportedType reports a type with no registry entry.
func UnsupportedType(goType string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnsupportedType,
		Type:   goType,
		Detail: "no shared pointer binding for type",
	}
}

// MissingSymbol reports an entry point the library does not export.
func MissingSymbol(library, symbol string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingSymbol,
		Symbol: symbol,
		Detail: fmt.Sprintf("not exported by %s", library),
		Value:  library,
	}
}

// NativeCall wraps a failure raised by a native entry point.
func NativeCall(phase Phase, symbol string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNativeCall,
		Symbol: symbol,
		Cause:  cause,
	}
}

// InvalidHandle reports a handle the native side does not know.
func InvalidHandle(phase Phase, symbol string, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Symbol: symbol,
		Detail: fmt.Sprintf("invalid handle %#x", handle),
		Value:  handle,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Unresolved names a single entry point a library did not export
type Unresolved struct {
	Library string // e.g., "simlib"
	Symbol  string // e.g., "std_shared_ptr_op_Gui_get"
}

// MissingSymbolsError is returned when a library cannot provide every
// entry point a set of kinds needs.
type MissingSymbolsError struct {
	Symbols []Unresolved
}

// NewMissingSymbolsError creates an error from a list of "library#symbol" strings
func NewMissingSymbolsError(keys []string) *MissingSymbolsError {
	result := &MissingSymbolsError{
		Symbols: make([]Unresolved, 0, len(keys)),
	}
	for _, key := range keys {
		lib, sym := parseSymbolKey(key)
		result.Symbols = append(result.Symbols, Unresolved{
			Library: lib,
			Symbol:  sym,
		})
	}
	return result
}

func parseSymbolKey(key string) (library, symbol string) {
	lib, sym, found := strings.Cut(key, "#")
	if found {
		return lib, sym
	}
	return "", key
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[load] missing_symbol: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d native symbol(s):\n", len(e.Symbols)))

	byLib := make(map[string][]string)
	var libOrder []string
	for _, s := range e.Symbols {
		if _, exists := byLib[s.Library]; !exists {
			libOrder = append(libOrder, s.Library)
		}
		byLib[s.Library] = append(byLib[s.Library], s.Symbol)
	}

	for _, lib := range libOrder {
		b.WriteString("\n  ")
		if lib == "" {
			b.WriteString("(unknown library)")
		} else {
			b.WriteString(lib)
		}
		b.WriteString(":\n")
		for _, sym := range byLib[lib] {
			b.WriteString("    - ")
			b.WriteString(sym)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type.
// It also matches ErrMissingSymbol.
func (e *MissingSymbolsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingSymbolsError:
		return true
	case *Error:
		return t.Kind == KindMissingSymbol
	}
	return false
}
