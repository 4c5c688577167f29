package document

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxYAMLNodes bounds the tree built from one document, counting every copy
// an alias expands to.
const maxYAMLNodes = 100000

func parseYAML(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, yamlSyntaxError(err)
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return &Node{Kind: Mapping, Line: 1}, nil
	}
	c := &yamlConverter{expanding: make(map[*yaml.Node]bool)}
	return c.convert(&root)
}

// yamlConverter walks a yaml.Node tree. yaml.v3 only guards against
// recursive and exponential aliases when decoding into Go values, so the
// walk does it itself.
type yamlConverter struct {
	expanding map[*yaml.Node]bool
	nodes     int
}

func (c *yamlConverter) convert(y *yaml.Node) (*Node, error) {
	c.nodes++
	if c.nodes > maxYAMLNodes {
		return nil, syntaxErrorf(y.Line, "document expands to more than %d nodes, check for excessive aliasing", maxYAMLNodes)
	}

	switch y.Kind {
	case yaml.DocumentNode:
		return c.convert(y.Content[0])
	case yaml.AliasNode:
		if y.Alias == nil {
			return nil, syntaxErrorf(y.Line, "unresolved alias %q", y.Value)
		}
		if c.expanding[y.Alias] {
			return nil, syntaxErrorf(y.Line, "anchor %q value contains itself", y.Value)
		}
		n, err := c.convert(y.Alias)
		if err != nil {
			return nil, err
		}
		n.Line = y.Line
		return n, nil
	}

	if y.Anchor != "" {
		c.expanding[y] = true
		defer delete(c.expanding, y)
	}

	switch y.Kind {
	case yaml.SequenceNode:
		n := &Node{Kind: Sequence, Line: y.Line, Items: make([]*Node, 0, len(y.Content))}
		for _, item := range y.Content {
			v, err := c.convert(item)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, v)
		}
		return n, nil
	case yaml.MappingNode:
		return c.mapping(y)
	case yaml.ScalarNode:
		return fromYAMLScalar(y), nil
	default:
		return nil, syntaxErrorf(y.Line, "unexpected YAML node kind %d", y.Kind)
	}
}

func (c *yamlConverter) mapping(y *yaml.Node) (*Node, error) {
	n := &Node{Kind: Mapping, Line: y.Line}
	seen := make(map[string]int, len(y.Content)/2)
	var merged []Field

	for i := 0; i+1 < len(y.Content); i += 2 {
		key, value := y.Content[i], y.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, syntaxErrorf(key.Line, "mapping keys must be scalars")
		}

		v, err := c.convert(value)
		if err != nil {
			return nil, err
		}

		if key.ShortTag() == "!!merge" {
			switch v.Kind {
			case Mapping:
				merged = append(merged, v.Fields...)
			case Sequence:
				for _, item := range v.Items {
					if item.Kind != Mapping {
						return nil, syntaxErrorf(item.Line, "merge sequence must contain mappings")
					}
					merged = append(merged, item.Fields...)
				}
			default:
				return nil, syntaxErrorf(value.Line, "merge value must be a mapping")
			}
			continue
		}

		if prev, dup := seen[key.Value]; dup {
			return nil, syntaxErrorf(key.Line, "key %q already defined at line %d", key.Value, prev)
		}
		seen[key.Value] = key.Line
		n.Fields = append(n.Fields, Field{Key: key.Value, Line: key.Line, Value: v})
	}

	for _, f := range merged {
		if _, explicit := seen[f.Key]; explicit {
			continue
		}
		seen[f.Key] = f.Line
		n.Fields = append(n.Fields, f)
	}
	return n, nil
}

func fromYAMLScalar(y *yaml.Node) *Node {
	n := &Node{Line: y.Line, Text: y.Value}
	switch y.ShortTag() {
	case "!!null":
		n.Kind = Null
	case "!!bool":
		n.Kind = Bool
		n.Text = strings.ToLower(y.Value)
	case "!!int", "!!float":
		n.Kind = Number
	default:
		n.Kind = String
	}
	return n
}

// yamlSyntaxError extracts the line number yaml.v3 embeds in its messages,
// e.g. "yaml: line 4: did not find expected key".
func yamlSyntaxError(err error) *SyntaxError {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	if rest, ok := strings.CutPrefix(msg, "line "); ok {
		if num, tail, found := strings.Cut(rest, ":"); found {
			if line, convErr := strconv.Atoi(num); convErr == nil {
				return &SyntaxError{Line: line, Message: strings.TrimSpace(tail)}
			}
		}
	}
	return &SyntaxError{Message: msg}
}

func encodeYAML(n *Node) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{toYAML(n)}}
	return yaml.Marshal(doc)
}

func toYAML(n *Node) *yaml.Node {
	switch n.Kind {
	case Mapping:
		y := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range n.Fields {
			y.Content = append(y.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
				toYAML(f.Value),
			)
		}
		return y
	case Sequence:
		y := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range n.Items {
			if item.Kind == Mapping || item.Kind == Sequence {
				y.Style = 0
			}
			y.Content = append(y.Content, toYAML(item))
		}
		return y
	case Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: n.Text}
	case Number:
		tag := "!!float"
		if _, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: n.Text}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Text}
	}
}
