package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eugenenazirov/vangers-settings/internal/document"
)

var (
	// ErrIO is matched by errors caused by reading the settings file.
	ErrIO = errors.New("settings file unreadable")
	// ErrSyntax is matched by errors for documents that cannot be parsed.
	ErrSyntax = errors.New("malformed settings document")
	// ErrMissingField is matched when a required field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrTypeMismatch is matched when a field has the wrong shape.
	ErrTypeMismatch = errors.New("field has wrong type")
	// ErrUnknownVariant is matched when an enum tag is not recognised.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrInvalidValue is matched when a value breaks a range or cross-field rule.
	ErrInvalidValue = errors.New("invalid value")
	// ErrDataPath is returned by CheckDataPath when the data directory does
	// not contain the game resources.
	ErrDataPath = errors.New("data path does not look like a game data directory")
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	KindIO ErrorKind = iota + 1
	KindSyntax
	KindMissingField
	KindTypeMismatch
	KindUnknownVariant
	KindInvalidValue
)

var kindSentinels = map[ErrorKind]error{
	KindIO:             ErrIO,
	KindSyntax:         ErrSyntax,
	KindMissingField:   ErrMissingField,
	KindTypeMismatch:   ErrTypeMismatch,
	KindUnknownVariant: ErrUnknownVariant,
	KindInvalidValue:   ErrInvalidValue,
}

var kindNames = map[ErrorKind]string{
	KindIO:             "io",
	KindSyntax:         "syntax",
	KindMissingField:   "missing_field",
	KindTypeMismatch:   "type_mismatch",
	KindUnknownVariant: "unknown_variant",
	KindInvalidValue:   "invalid_value",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single error type returned by Load and Parse. Path is the
// dotted field path (e.g. "game.camera.depth_range"); Line is 1-based and 0
// when unknown.
type Error struct {
	Kind     ErrorKind
	File     string
	Line     int
	Path     string
	Expected string
	Found    string
	Value    string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}

	switch e.Kind {
	case KindIO:
		fmt.Fprintf(&b, "read settings: %v", e.Err)
	case KindSyntax:
		fmt.Fprintf(&b, "syntax error: %s", e.Reason)
	case KindMissingField:
		fmt.Fprintf(&b, "missing field %s", e.Path)
	case KindTypeMismatch:
		fmt.Fprintf(&b, "%s: expected %s, found %s", e.displayPath(), e.Expected, e.Found)
	case KindUnknownVariant:
		fmt.Fprintf(&b, "%s: unknown variant %q", e.Path, e.Value)
		if e.Expected != "" {
			fmt.Fprintf(&b, ", expected %s", e.Expected)
		}
	case KindInvalidValue:
		fmt.Fprintf(&b, "%s: invalid value: %s", e.Path, e.Reason)
	default:
		b.WriteString("settings error")
	}
	return b.String()
}

func (e *Error) displayPath() string {
	if e.Path == "" {
		return "document"
	}
	return e.Path
}

// Is reports whether target is the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ioError(file string, err error) *Error {
	return &Error{Kind: KindIO, File: file, Err: err}
}

func syntaxError(err error) *Error {
	var syn *document.SyntaxError
	if errors.As(err, &syn) {
		return &Error{Kind: KindSyntax, Line: syn.Line, Reason: syn.Message, Err: err}
	}
	return &Error{Kind: KindSyntax, Reason: err.Error(), Err: err}
}

func missingField(path string, line int) *Error {
	return &Error{Kind: KindMissingField, Path: path, Line: line}
}

func typeMismatch(path string, n *document.Node, expected string) *Error {
	return &Error{Kind: KindTypeMismatch, Path: path, Line: n.Line, Expected: expected, Found: n.Describe()}
}

func unknownVariant(path string, n *document.Node, names []string) *Error {
	return &Error{Kind: KindUnknownVariant, Path: path, Line: n.Line, Value: n.Text, Expected: oneOf(names)}
}

func invalidValue(path string, line int, reason string) *Error {
	return &Error{Kind: KindInvalidValue, Path: path, Line: line, Reason: reason}
}
