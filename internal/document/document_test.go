package document

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	cases := map[string]Format{
		"settings.yaml":       YAML,
		"settings.YML":        YAML,
		"/etc/game/cfg.json":  JSON,
		"config/settings.hcl": HCL,
	}
	for path, want := range cases {
		got, err := Detect(path)
		if err != nil {
			t.Fatalf("Detect(%q) returned error: %v", path, err)
		}
		if got != want {
			t.Fatalf("Detect(%q) = %s, want %s", path, got, want)
		}
	}

	if _, err := Detect("settings.ron"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if f, err := ParseFormat("YML"); err != nil || f != YAML {
		t.Fatalf("expected yaml, got %s (%v)", f, err)
	}
	if _, err := ParseFormat("toml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseYAMLKeepsOrderAndLines(t *testing.T) {
	t.Parallel()

	src := `
window:
  title: "Vangers"
  size: [1280, 800]
  reload_on_focus: true
backend: Auto
cycle:
`
	root, err := Parse([]byte(src), YAML, "settings.yaml")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if root.Kind != Mapping || len(root.Fields) != 3 {
		t.Fatalf("expected mapping with 3 fields, got %s with %d", root.Kind, len(root.Fields))
	}
	keys := []string{root.Fields[0].Key, root.Fields[1].Key, root.Fields[2].Key}
	if strings.Join(keys, ",") != "window,backend,cycle" {
		t.Fatalf("unexpected key order: %v", keys)
	}

	size := root.Get("window").Get("size")
	if size.Kind != Sequence || len(size.Items) != 2 || size.Items[0].Text != "1280" {
		t.Fatalf("unexpected size node: %+v", size)
	}
	if size.Line != 4 {
		t.Fatalf("expected size on line 4, got %d", size.Line)
	}
	if got := root.Get("window").Get("reload_on_focus"); got.Kind != Bool || got.Text != "true" {
		t.Fatalf("unexpected bool node: %+v", got)
	}
	if got := root.Get("backend"); got.Kind != String || got.Text != "Auto" {
		t.Fatalf("unexpected backend node: %+v", got)
	}
	if got := root.Get("cycle"); got.Kind != Null {
		t.Fatalf("expected null cycle, got %s", got.Kind)
	}
}

func TestParseYAMLEmptyDocument(t *testing.T) {
	t.Parallel()

	root, err := Parse([]byte("# nothing here\n"), YAML, "empty.yaml")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if root.Kind != Mapping || len(root.Fields) != 0 {
		t.Fatalf("expected empty mapping, got %+v", root)
	}
}

func TestParseYAMLRejectsRecursiveAnchor(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"a: &x [*x]\n",
		"a: &x\n  b: *x\n",
		"a: &x\n  <<: *x\n",
	} {
		_, err := Parse([]byte(src), YAML, "loop.yaml")
		var syn *SyntaxError
		if !errors.As(err, &syn) {
			t.Fatalf("expected SyntaxError for %q, got %v", src, err)
		}
		if !strings.Contains(syn.Message, `anchor "x" value contains itself`) {
			t.Fatalf("unexpected message for %q: %s", src, syn.Message)
		}
	}
}

// aliasBomb nests levels of ten aliases each, so the expanded document has
// 10^levels leaves.
func aliasBomb(levels int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= levels; i++ {
		prev := fmt.Sprintf("*l%d", i-1)
		items := strings.TrimSuffix(strings.Repeat(prev+", ", 10), ", ")
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, items)
	}
	return b.String()
}

func TestParseYAMLLimitsAliasExpansion(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(aliasBomb(9)), YAML, "bomb.yaml")
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if !strings.Contains(syn.Message, "excessive aliasing") {
		t.Fatalf("unexpected message: %s", syn.Message)
	}

	if _, err := Parse([]byte(aliasBomb(2)), YAML, "small.yaml"); err != nil {
		t.Fatalf("moderate aliasing should parse, got %v", err)
	}
}

func TestParseYAMLMergeKeys(t *testing.T) {
	t.Parallel()

	src := `
base: &base
  height: 1
  speed: 2
camera:
  <<: *base
  speed: 5
`
	root, err := Parse([]byte(src), YAML, "merge.yaml")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	camera := root.Get("camera")
	if got := camera.Get("speed").Text; got != "5" {
		t.Fatalf("explicit key should win over merge, got %s", got)
	}
	if got := camera.Get("height").Text; got != "1" {
		t.Fatalf("expected merged height, got %s", got)
	}
}

func TestParseYAMLSyntaxErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src  string
		line int
	}{
		"tab indentation": {src: "game:\n\tlevel: a\n", line: 0},
		"duplicate key":   {src: "game: 1\nwindow: 2\ngame: 3\n", line: 3},
		"unclosed flow":   {src: "size: [1, 2\n", line: 0},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.src), YAML, "bad.yaml")
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
			if tc.line > 0 && syn.Line != tc.line {
				t.Fatalf("expected line %d, got %d (%s)", tc.line, syn.Line, syn.Message)
			}
		})
	}
}

func TestParseHCL(t *testing.T) {
	t.Parallel()

	src := `
// comments are ignored
data_path = ""

game {
  level = "Fostral"
  view  = Perspective # bare identifiers become symbols
  camera {
    depth_range = [10, 1000]
  }
}

render {
  terrain "RayMipTraced" {
    mip_count = 10
    debug     = false
  }
  shadow_terrain = { Scattered = { density = [1, 0.5, 2] } }
}
`
	root, err := Parse([]byte(src), HCL, "settings.hcl")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	keys := make([]string, 0, len(root.Fields))
	for _, f := range root.Fields {
		keys = append(keys, f.Key)
	}
	if strings.Join(keys, ",") != "data_path,game,render" {
		t.Fatalf("unexpected key order: %v", keys)
	}

	view := root.Get("game").Get("view")
	if view.Kind != Symbol || view.Text != "Perspective" {
		t.Fatalf("expected symbol Perspective, got %+v", view)
	}
	if view.Line != 7 {
		t.Fatalf("expected view on line 7, got %d", view.Line)
	}

	depth := root.Get("game").Get("camera").Get("depth_range")
	if depth.Kind != Sequence || len(depth.Items) != 2 || depth.Items[1].Text != "1000" {
		t.Fatalf("unexpected depth_range: %+v", depth)
	}

	mip := root.Get("render").Get("terrain").Get("RayMipTraced")
	if mip == nil || mip.Get("mip_count").Text != "10" {
		t.Fatalf("expected labelled block to nest one level, got %+v", root.Get("render").Get("terrain"))
	}
	if got := mip.Get("debug"); got.Kind != Bool || got.Text != "false" {
		t.Fatalf("unexpected debug flag: %+v", got)
	}

	density := root.Get("render").Get("shadow_terrain").Get("Scattered").Get("density")
	if density.Kind != Sequence || density.Items[1].Text != "0.5" {
		t.Fatalf("unexpected density: %+v", density)
	}
}

func TestParseHCLSyntaxErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src  string
		line int
	}{
		"unterminated block": {src: "game {\n  level = \"x\"\n", line: 0},
		"variable reference": {src: "game {\n  level = var.level\n}\n", line: 2},
		"duplicate block":    {src: "game {}\nwindow {}\ngame {}\n", line: 3},
		"function call":      {src: "title = upper(\"x\")\n", line: 1},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.src), HCL, "bad.hcl")
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
			if tc.line > 0 && syn.Line != tc.line {
				t.Fatalf("expected line %d, got %d (%s)", tc.line, syn.Line, syn.Message)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	tree := NewMapping().
		Set("title", NewString("Vangers")).
		Set("view", NewSymbol("Perspective")).
		Set("size", NewSequence(NewInt(1280), NewInt(800))).
		Set("quant", NewFloat(0.1)).
		Set("enabled", NewBool(true)).
		Set("slots", NewSequence()).
		Set("terrain", NewMapping().Set("RayMipTraced", NewMapping().
			Set("mip_count", NewInt(10)).
			Set("debug", NewBool(false))))

	for _, format := range Formats {
		format := format
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			out, err := Encode(tree, format)
			if err != nil {
				t.Fatalf("Encode returned error: %v", err)
			}
			back, err := Parse(out, format, "roundtrip."+string(format))
			if err != nil {
				t.Fatalf("Parse of encoded output failed: %v\n%s", err, out)
			}

			if got := back.Get("title").Text; got != "Vangers" {
				t.Fatalf("title mismatch: %q", got)
			}
			if got := back.Get("view").Text; got != "Perspective" {
				t.Fatalf("view mismatch: %q", got)
			}
			if got := back.Get("quant").Text; got != "0.1" {
				t.Fatalf("quant mismatch: %q\n%s", got, out)
			}
			if got := back.Get("size"); len(got.Items) != 2 || got.Items[0].Text != "1280" {
				t.Fatalf("size mismatch: %+v", got)
			}
			if got := back.Get("slots"); got.Kind != Sequence || len(got.Items) != 0 {
				t.Fatalf("slots mismatch: %+v", got)
			}
			if got := back.Get("terrain").Get("RayMipTraced").Get("mip_count").Text; got != "10" {
				t.Fatalf("terrain payload mismatch: %q\n%s", got, out)
			}
		})
	}
}

func TestEncodeHCLRejectsScalarRoot(t *testing.T) {
	t.Parallel()

	if _, err := Encode(NewString("x"), HCL); err == nil {
		t.Fatalf("expected error for non-mapping HCL root")
	}
}

func TestNodeDescribe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		node *Node
		want string
	}{
		{nil, "nothing"},
		{NewString("a"), `string "a"`},
		{NewSymbol("Auto"), "identifier Auto"},
		{NewSequence(NewInt(1), NewInt(2), NewInt(3)), "sequence of 3"},
		{NewMapping(), "mapping"},
		{NewNull(), "null"},
	}
	for _, tc := range cases {
		if got := tc.node.Describe(); got != tc.want {
			t.Fatalf("Describe() = %q, want %q", got, tc.want)
		}
	}
}
