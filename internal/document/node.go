package document

import (
	"fmt"
	"strconv"
)

// Kind classifies a Node.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Symbol
	Sequence
	Mapping
)

var kindNames = [...]string{
	Null:     "null",
	Bool:     "boolean",
	Number:   "number",
	String:   "string",
	Symbol:   "identifier",
	Sequence: "sequence",
	Mapping:  "mapping",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Node is one value of a parsed document. Scalars keep their literal text,
// mappings keep the order their fields appeared in.
type Node struct {
	Kind   Kind
	Line   int
	Text   string
	Items  []*Node
	Fields []Field
}

// Field is a single key of a Mapping node.
type Field struct {
	Key   string
	Line  int
	Value *Node
}

// Get returns the value stored under key, or nil when the node is not a
// mapping or has no such key.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Describe names the shape of the node for error messages.
func (n *Node) Describe() string {
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case Sequence:
		return fmt.Sprintf("sequence of %d", len(n.Items))
	case String:
		return "string " + strconv.Quote(n.Text)
	case Symbol, Number, Bool:
		return n.Kind.String() + " " + n.Text
	default:
		return n.Kind.String()
	}
}

// NewNull returns a Null node.
func NewNull() *Node { return &Node{Kind: Null, Text: "null"} }

// NewBool returns a Bool node.
func NewBool(v bool) *Node { return &Node{Kind: Bool, Text: strconv.FormatBool(v)} }

// NewString returns a String node.
func NewString(s string) *Node { return &Node{Kind: String, Text: s} }

// NewSymbol returns a bare identifier node.
func NewSymbol(name string) *Node { return &Node{Kind: Symbol, Text: name} }

// NewInt returns a Number node holding an integer.
func NewInt(v int64) *Node { return &Node{Kind: Number, Text: strconv.FormatInt(v, 10)} }

// NewFloat returns a Number node holding the shortest text that reads back
// as the same float32.
func NewFloat(v float32) *Node {
	return &Node{Kind: Number, Text: strconv.FormatFloat(float64(v), 'g', -1, 32)}
}

// NewSequence returns a Sequence node.
func NewSequence(items ...*Node) *Node {
	if items == nil {
		items = []*Node{}
	}
	return &Node{Kind: Sequence, Items: items}
}

// NewMapping returns an empty Mapping node; use Set to add fields.
func NewMapping() *Node { return &Node{Kind: Mapping} }

// Set appends a field to a mapping and returns the mapping.
func (n *Node) Set(key string, value *Node) *Node {
	n.Fields = append(n.Fields, Field{Key: key, Value: value})
	return n
}
