package document

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

func parseHCL(data []byte, filename string) (*Node, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, syntaxErrorf(1, "unexpected HCL body type %T", file.Body)
	}
	return fromHCLBody(body)
}

// fromHCLBody merges attributes and blocks into one mapping ordered by source
// position. A labelled block nests one mapping level per label.
func fromHCLBody(body *hclsyntax.Body) (*Node, error) {
	type entry struct {
		key  string
		line int
		byte int
		conv func() (*Node, error)
	}

	entries := make([]entry, 0, len(body.Attributes)+len(body.Blocks))
	for name, attr := range body.Attributes {
		attr := attr
		entries = append(entries, entry{
			key:  name,
			line: attr.SrcRange.Start.Line,
			byte: attr.SrcRange.Start.Byte,
			conv: func() (*Node, error) { return fromHCLExpr(attr.Expr) },
		})
	}
	for _, block := range body.Blocks {
		block := block
		entries = append(entries, entry{
			key:  block.Type,
			line: block.TypeRange.Start.Line,
			byte: block.TypeRange.Start.Byte,
			conv: func() (*Node, error) { return fromHCLBlock(block) },
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].byte < entries[j].byte })

	n := &Node{Kind: Mapping, Line: body.SrcRange.Start.Line}
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if prev, dup := seen[e.key]; dup {
			return nil, syntaxErrorf(e.line, "%q already defined at line %d", e.key, prev)
		}
		seen[e.key] = e.line

		v, err := e.conv()
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, Field{Key: e.key, Line: e.line, Value: v})
	}
	return n, nil
}

func fromHCLBlock(block *hclsyntax.Block) (*Node, error) {
	inner, err := fromHCLBody(block.Body)
	if err != nil {
		return nil, err
	}
	inner.Line = block.TypeRange.Start.Line
	for i := len(block.Labels) - 1; i >= 0; i-- {
		line := block.LabelRanges[i].Start.Line
		inner = &Node{
			Kind:   Mapping,
			Line:   line,
			Fields: []Field{{Key: block.Labels[i], Line: line, Value: inner}},
		}
	}
	return inner, nil
}

func fromHCLExpr(expr hclsyntax.Expression) (*Node, error) {
	line := expr.Range().Start.Line
	// true, false and null also read as keywords, so literals go first.
	if lit, ok := expr.(*hclsyntax.LiteralValueExpr); ok {
		return fromCty(lit.Val, line)
	}
	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		return &Node{Kind: Symbol, Line: line, Text: kw}, nil
	}

	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return fromHCLExpr(e.Expression)
	case *hclsyntax.TupleConsExpr:
		n := &Node{Kind: Sequence, Line: line, Items: make([]*Node, 0, len(e.Exprs))}
		for _, item := range e.Exprs {
			v, err := fromHCLExpr(item)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, v)
		}
		return n, nil
	case *hclsyntax.ObjectConsExpr:
		n := &Node{Kind: Mapping, Line: line}
		seen := make(map[string]int, len(e.Items))
		for _, item := range e.Items {
			key, err := objectKey(item.KeyExpr)
			if err != nil {
				return nil, err
			}
			keyLine := item.KeyExpr.Range().Start.Line
			if prev, dup := seen[key]; dup {
				return nil, syntaxErrorf(keyLine, "%q already defined at line %d", key, prev)
			}
			seen[key] = keyLine

			v, err := fromHCLExpr(item.ValueExpr)
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, Field{Key: key, Line: keyLine, Value: v})
		}
		return n, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	return fromCty(val, line)
}

func objectKey(expr hclsyntax.Expression) (string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diagnosticsError(diags)
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil || str.IsNull() || !str.IsKnown() {
		return "", syntaxErrorf(expr.Range().Start.Line, "object key must be a string")
	}
	return str.AsString(), nil
}

func fromCty(v cty.Value, line int) (*Node, error) {
	if v.IsNull() {
		return &Node{Kind: Null, Line: line, Text: "null"}, nil
	}
	if !v.IsKnown() {
		return nil, syntaxErrorf(line, "value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return &Node{Kind: String, Line: line, Text: v.AsString()}, nil
	case ty == cty.Number:
		return &Node{Kind: Number, Line: line, Text: v.AsBigFloat().Text('g', -1)}, nil
	case ty == cty.Bool:
		return &Node{Kind: Bool, Line: line, Text: strconv.FormatBool(v.True())}, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		n := &Node{Kind: Sequence, Line: line, Items: []*Node{}}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			item, err := fromCty(ev, line)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, item)
		}
		return n, nil
	case ty.IsObjectType() || ty.IsMapType():
		n := &Node{Kind: Mapping, Line: line}
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			item, err := fromCty(ev, line)
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, Field{Key: k.AsString(), Line: line, Value: item})
		}
		return n, nil
	default:
		return nil, syntaxErrorf(line, "unsupported value of type %s", ty.FriendlyName())
	}
}

func diagnosticsError(diags hcl.Diagnostics) *SyntaxError {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if d.Subject != nil {
			line = d.Subject.Start.Line
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		return &SyntaxError{Line: line, Message: msg}
	}
	return &SyntaxError{Message: diags.Error()}
}

func encodeHCL(n *Node) ([]byte, error) {
	if n.Kind != Mapping {
		return nil, fmt.Errorf("hcl: top level must be a mapping, got %s", n.Kind)
	}
	f := hclwrite.NewEmptyFile()
	if err := writeHCLBody(f.Body(), n); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

func writeHCLBody(body *hclwrite.Body, n *Node) error {
	for i, field := range n.Fields {
		if !hclsyntax.ValidIdentifier(field.Key) {
			return fmt.Errorf("hcl: %q is not a valid attribute name", field.Key)
		}
		if field.Value.Kind == Mapping {
			if i > 0 {
				body.AppendNewline()
			}
			block := body.AppendNewBlock(field.Key, nil)
			if err := writeHCLBody(block.Body(), field.Value); err != nil {
				return err
			}
			continue
		}
		tokens, err := hclTokens(field.Value)
		if err != nil {
			return fmt.Errorf("hcl: %s: %w", field.Key, err)
		}
		body.SetAttributeRaw(field.Key, tokens)
	}
	return nil
}

func hclTokens(n *Node) (hclwrite.Tokens, error) {
	switch n.Kind {
	case Symbol:
		return hclwrite.TokensForIdentifier(n.Text), nil
	case Sequence:
		elems := make([]hclwrite.Tokens, 0, len(n.Items))
		for _, item := range n.Items {
			t, err := hclTokens(item)
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		return hclwrite.TokensForTuple(elems), nil
	case Mapping:
		attrs := make([]hclwrite.ObjectAttrTokens, 0, len(n.Fields))
		for _, f := range n.Fields {
			value, err := hclTokens(f.Value)
			if err != nil {
				return nil, err
			}
			name := hclwrite.TokensForValue(cty.StringVal(f.Key))
			if hclsyntax.ValidIdentifier(f.Key) {
				name = hclwrite.TokensForIdentifier(f.Key)
			}
			attrs = append(attrs, hclwrite.ObjectAttrTokens{Name: name, Value: value})
		}
		return hclwrite.TokensForObject(attrs), nil
	case Null:
		return hclwrite.TokensForValue(cty.NullVal(cty.DynamicPseudoType)), nil
	case Bool:
		return hclwrite.TokensForValue(cty.BoolVal(n.Text == "true")), nil
	case Number:
		v, err := cty.ParseNumberVal(n.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", n.Text, err)
		}
		return hclwrite.TokensForValue(v), nil
	default:
		return hclwrite.TokensForValue(cty.StringVal(n.Text)), nil
	}
}
