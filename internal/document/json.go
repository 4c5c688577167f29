package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// encodeJSON writes mappings in field order, which encoding/json cannot do
// for maps.
func encodeJSON(n *Node) ([]byte, error) {
	var compact bytes.Buffer
	if err := writeJSON(&compact, n); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent JSON: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *Node) error {
	switch n.Kind {
	case Mapping:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, f.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Sequence:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(n.Text)
	case Number:
		num, err := jsonNumber(n.Text)
		if err != nil {
			return err
		}
		buf.WriteString(num)
	default:
		str, err := json.Marshal(n.Text)
		if err != nil {
			return err
		}
		buf.Write(str)
	}
	return nil
}

// jsonNumber normalises YAML-style numerals such as 0x1F or 1_000.
func jsonNumber(text string) (string, error) {
	if json.Valid([]byte(text)) {
		return text, nil
	}
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("json: %q is not a finite number", text)
}
