package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the text syntax of a document.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	HCL  Format = "hcl"
)

// Formats lists every supported format.
var Formats = []Format{YAML, JSON, HCL}

// Detect picks the format from the file extension.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".hcl":
		return HCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseFormat resolves a format name such as "yaml" or "hcl".
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	if strings.EqualFold(name, "yml") {
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Parse turns raw text into a document tree. filename is only used in
// diagnostics.
func Parse(data []byte, format Format, filename string) (*Node, error) {
	switch format {
	case YAML, JSON:
		return parseYAML(data)
	case HCL:
		return parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Encode renders a document tree in the given format.
func Encode(n *Node, format Format) ([]byte, error) {
	switch format {
	case YAML:
		return encodeYAML(n)
	case JSON:
		return encodeJSON(n)
	case HCL:
		return encodeHCL(n)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
