package keymap

import "fmt"

// ErrorKind distinguishes why a keymap failed to load.
type ErrorKind uint8

const (
	// Io indicates the keymap source could not be read.
	Io ErrorKind = iota
	// Parse indicates malformed JSON or a shape violation (a child key
	// that is not exactly one Unicode scalar, or a non-string candidate).
	Parse
)

func (k ErrorKind) String() string {
	switch k {
	case Io:
		return "io"
	case Parse:
		return "parse"
	default:
		return "unknown"
	}
}

// LoadError is returned by Build/Load when a keymap cannot be constructed.
// The engine is never partially built when a LoadError is returned.
type LoadError struct {
	Kind  ErrorKind
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("keymap: %v: %v", e.Kind, e.Cause)
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
