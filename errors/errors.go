package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBootstrap   Phase = "bootstrap"   // graph bootstrap as a whole
	PhaseCapability  Phase = "capability"  // privilege unlock
	PhaseDiscover    Phase = "discover"    // component discovery
	PhaseDescriptor  Phase = "descriptor"  // descriptor decode and edit
	PhaseResolve     Phase = "resolve"     // configuration resolution
	PhaseDefine      Phase = "define"      // layer definition
	PhaseReadability Phase = "readability" // reads and exports grants
	PhaseTransform   Phase = "transform"   // code-unit rewriting
	PhaseDecode      Phase = "decode"      // code-unit decoding
	PhaseLoad        Phase = "load"        // code loading
	PhaseLink        Phase = "link"        // import resolution
	PhasePlugin      Phase = "plugin"      // plugin registration
	PhaseScript      Phase = "script"      // script engine calls
	PhaseConfig      Phase = "config"      // configuration files
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData     Kind = "invalid_data"
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindDuplicate       Kind = "duplicate"
	KindMissingRequire  Kind = "missing_require"
	KindVersionMismatch Kind = "version_mismatch"
	KindSealed          Kind = "sealed"
	KindAccess          Kind = "access"
	KindAlreadyDone     Kind = "already_done"
	KindClosed          Kind = "closed"
	KindScript          Kind = "script"
	KindNoSuchMethod    Kind = "no_such_method"
	KindRegistration    Kind = "registration"
	KindInstantiation   Kind = "instantiation"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Component string
	Unit      string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Component != "" || e.Unit != "" {
		b.WriteString(": ")
		if e.Component != "" && e.Unit != "" {
			b.WriteString("component ")
			b.WriteString(e.Component)
			b.WriteString(", unit ")
			b.WriteString(e.Unit)
		} else if e.Component != "" {
			b.WriteString("component ")
			b.WriteString(e.Component)
		} else {
			b.WriteString("unit ")
			b.WriteString(e.Unit)
		}
	}

	if e.Detail != "" {
		if e.Component != "" || e.Unit != "" {
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the item path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Component sets the component name
func (b *Builder) Component(name string) *Builder {
	b.err.Component = name
	return b
}

// Unit sets the code-unit identity
func (b *Builder) Unit(id string) *Builder {
	b.err.Unit = id
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

// FatalError marks a tier-1 failure. The process is not in a supportable
// state once one of these is observed.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Cause.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// Fatal wraps err as a tier-1 failure. Wrapping an already fatal error
// returns it unchanged.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Cause: err}
}

// IsFatal reports whether err carries a tier-1 failure anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Convenience constructors for common error patterns

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
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

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Sealed creates an error for a write against a sealed descriptor
func Sealed(component, op string) *Error {
	return &Error{
		Phase:     PhaseDescriptor,
		Kind:      KindSealed,
		Component: component,
		Detail:    fmt.Sprintf("%s on sealed descriptor", op),
	}
}

// Access creates an accessibility error for pkg of component as seen from reader
func Access(component, pkg, reader string) *Error {
	return &Error{
		Phase:     PhaseLink,
		Kind:      KindAccess,
		Component: component,
		Path:      []string{pkg},
		Detail:    fmt.Sprintf("package not exported to %s", reader),
	}
}

// Load creates a code loading error
func Load(unit, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Unit:   unit,
		Detail: detail,
		Cause:  cause,
	}
}

// Registration creates a plugin registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhasePlugin,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(unit string, cause error) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindInstantiation,
		Unit:   unit,
		Detail: "instantiate module",
		Cause:  cause,
	}
}
