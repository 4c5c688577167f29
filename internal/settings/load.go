package settings

import (
	"errors"
	"os"

	"github.com/eugenenazirov/vangers-settings/internal/document"
)

// Load reads the settings document at path, picks the syntax from the file
// extension and returns the validated settings. Any failure is an *Error
// whose kind can be tested with errors.Is against ErrIO, ErrSyntax,
// ErrMissingField, ErrTypeMismatch, ErrUnknownVariant or ErrInvalidValue.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(path, err)
	}

	format, err := document.Detect(path)
	if err != nil {
		e := syntaxError(err)
		e.File = path
		return nil, e
	}

	s, err := parse(data, format, path)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.File = path
		}
		return nil, err
	}
	return s, nil
}

// Parse decodes and validates an in-memory settings document.
func Parse(data []byte, format document.Format) (*Settings, error) {
	return parse(data, format, "")
}

func parse(data []byte, format document.Format, filename string) (*Settings, error) {
	root, err := document.Parse(data, format, filename)
	if err != nil {
		return nil, syntaxError(err)
	}

	s, src, err := decodeSettings(root)
	if err != nil {
		return nil, err
	}
	if err := validate(s, src); err != nil {
		return nil, err
	}
	return s, nil
}
