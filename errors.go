package catdb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSource is returned when a source file is empty or does not
	// hold a named object.
	ErrInvalidSource = errors.New("invalid source")

	// ErrClosed is returned by operations on a closed DB.
	ErrClosed = errors.New("database closed")
)

// MaxReportedNames bounds the names carried by a DependencyError.
const MaxReportedNames = 100

// NotFoundError reports a lookup by name or hash that found nothing.
//
// errors.Is(err, ErrNotFound) holds for every NotFoundError.
type NotFoundError struct {
	Name string // empty for lookups by hash
	Hash Hash
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("entry %q not found", e.Name)
	}
	return fmt.Sprintf("entry with hash %s not found", e.Hash)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConfigurationError reports a missing or broken store layout, an unreadable
// configuration file, or an unsupported index declaration.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Path   string
	Reason string
	cause  error
}

// NewConfigurationError returns a ConfigurationError wrapping cause.
func NewConfigurationError(path, reason string, cause error) *ConfigurationError {
	return &ConfigurationError{Path: path, Reason: reason, cause: cause}
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	msg += ": " + e.Reason
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// DependencyKind classifies a DependencyError.
type DependencyKind int

const (
	// MissingSuperCategory: a category names a super-category that neither
	// the current batch nor the store provides.
	MissingSuperCategory DependencyKind = iota
	// Cycle: super-category references loop back on themselves.
	Cycle
	// SelfReference: an entry refers to itself while it is being loaded.
	SelfReference
	// NameMismatch: the declared name differs from the name derived from
	// the source file name.
	NameMismatch
)

func (k DependencyKind) String() string {
	switch k {
	case MissingSuperCategory:
		return "missing super-category"
	case Cycle:
		return "circular reference"
	case SelfReference:
		return "self reference"
	case NameMismatch:
		return "name mismatch"
	default:
		return fmt.Sprintf("DependencyKind(%d)", int(k))
	}
}

// DependencyError is fatal to the bulk load that produced it. Names holds
// the offending entries, at most MaxReportedNames of them.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DependencyError struct {
	Kind  DependencyKind
	Names []string
	cause error
}

// NewDependencyError returns a DependencyError naming at most
// MaxReportedNames entries.
func NewDependencyError(kind DependencyKind, names []string, cause error) *DependencyError {
	if len(names) > MaxReportedNames {
		names = names[:MaxReportedNames]
	}
	return &DependencyError{Kind: kind, Names: append([]string(nil), names...), cause: cause}
}

func (e *DependencyError) Error() string {
	sep := ", "
	if e.Kind == Cycle || e.Kind == SelfReference {
		sep = " -> "
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Names, sep))
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *DependencyError) Unwrap() error { return e.cause }

// IOError wraps a failed storage operation with the operation and path.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op    string
	Path  string
	cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

// NewIOError wraps err with op and path. Errors that already are one of the
// catdb error types are returned unchanged.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if isOwnError(err) {
		return err
	}
	return &IOError{Op: op, Path: path, cause: err}
}

func isOwnError(err error) bool {
	var (
		nf  *NotFoundError
		ce  *ConfigurationError
		de  *DependencyError
		ioe *IOError
	)
	return errors.As(err, &nf) || errors.As(err, &ce) || errors.As(err, &de) || errors.As(err, &ioe)
}
