package settings

import (
	"fmt"
	"math"
	"strconv"

	"github.com/eugenenazirov/vangers-settings/internal/document"
)

// decoder maps a document tree onto Settings. The first error sticks; every
// later read becomes a no-op so fields are checked in schema order.
type decoder struct {
	err error
	src source
}

// source keeps what the document said next to the decoded value: the line
// of every field and numbers at full precision, before narrowing to float32.
type source struct {
	lines   map[string]int
	numbers map[string]float64
}

// number returns the document's value for path, or v when none was recorded.
func (s source) number(path string, v float32) float64 {
	if f, ok := s.numbers[path]; ok {
		return f
	}
	return float64(v)
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) ok() bool { return d.err == nil }

// object is a mapping node together with the path that reached it.
type object struct {
	d    *decoder
	path string
	node *document.Node
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (d *decoder) object(path string, n *document.Node) object {
	if !d.ok() {
		return object{d: d, path: path}
	}
	if n == nil || n.Kind == document.Null {
		line := 0
		if n != nil {
			line = n.Line
		}
		return object{d: d, path: path, node: &document.Node{Kind: document.Mapping, Line: line}}
	}
	if n.Kind != document.Mapping {
		d.fail(typeMismatch(path, n, "mapping"))
		return object{d: d, path: path}
	}
	d.src.lines[path] = n.Line
	return object{d: d, path: path, node: n}
}

// lookup returns the node under key. Absent required keys fail with
// MissingField; absent optional keys and explicit nulls yield nil.
func (o object) lookup(key string, required bool) (*document.Node, string) {
	p := joinPath(o.path, key)
	if !o.d.ok() {
		return nil, p
	}
	n := o.node.Get(key)
	if n == nil {
		if required {
			o.d.fail(missingField(p, o.node.Line))
		}
		return nil, p
	}
	o.d.src.lines[p] = n.Line
	if !required && n.Kind == document.Null {
		return nil, p
	}
	return n, p
}

func (o object) child(key string) object {
	n, p := o.lookup(key, true)
	if n == nil {
		return object{d: o.d, path: p}
	}
	if n.Kind != document.Mapping {
		o.d.fail(typeMismatch(p, n, "mapping"))
		return object{d: o.d, path: p}
	}
	return object{d: o.d, path: p, node: n}
}

func (o object) str(key string) string {
	n, p := o.lookup(key, true)
	if n == nil {
		return ""
	}
	return o.d.str(p, n)
}

func (o object) float(key string) float32 {
	n, p := o.lookup(key, true)
	if n == nil {
		return 0
	}
	return o.d.float(p, n)
}

func (o object) integer(key string) int {
	n, p := o.lookup(key, true)
	if n == nil {
		return 0
	}
	return o.d.integer(p, n)
}

func (o object) boolean(key string) bool {
	n, p := o.lookup(key, true)
	if n == nil {
		return false
	}
	if n.Kind != document.Bool {
		o.d.fail(typeMismatch(p, n, "boolean"))
		return false
	}
	return n.Text == "true"
}

func (o object) size(key string) Size {
	n, p := o.lookup(key, true)
	if n == nil || !o.d.tuple(p, n, 2, "pair of integers") {
		return Size{}
	}
	return Size{
		Width:  o.d.integer(p+"[0]", n.Items[0]),
		Height: o.d.integer(p+"[1]", n.Items[1]),
	}
}

func (o object) vec3(key string) (v [3]float32) {
	o.floats(key, v[:], "3 numbers")
	return v
}

func (o object) vec4(key string) (v [4]float32) {
	o.floats(key, v[:], "4 numbers")
	return v
}

func (o object) floats(key string, dst []float32, expected string) {
	n, p := o.lookup(key, true)
	if n == nil || !o.d.tuple(p, n, len(dst), expected) {
		return
	}
	for i, item := range n.Items {
		dst[i] = o.d.float(fmt.Sprintf("%s[%d]", p, i), item)
	}
}

func (o object) rangePair(key string) Range {
	n, p := o.lookup(key, true)
	if n == nil || !o.d.tuple(p, n, 2, "pair of numbers") {
		return Range{}
	}
	return Range{
		Near: o.d.float(p+"[0]", n.Items[0]),
		Far:  o.d.float(p+"[1]", n.Items[1]),
	}
}

func (o object) enum(key string, names []string) int {
	n, p := o.lookup(key, true)
	if n == nil {
		return 0
	}
	return o.d.tag(p, n, names)
}

func (d *decoder) str(path string, n *document.Node) string {
	if !d.ok() {
		return ""
	}
	if n.Kind != document.String {
		d.fail(typeMismatch(path, n, "string"))
		return ""
	}
	return n.Text
}

func (d *decoder) float(path string, n *document.Node) float32 {
	if !d.ok() {
		return 0
	}
	if n.Kind != document.Number {
		d.fail(typeMismatch(path, n, "number"))
		return 0
	}
	f, err := strconv.ParseFloat(n.Text, 32)
	if err != nil {
		if i, intErr := strconv.ParseInt(n.Text, 0, 64); intErr == nil {
			d.src.numbers[path] = float64(i)
			return float32(i)
		}
		if math.IsInf(f, 0) {
			d.fail(invalidValue(path, n.Line, fmt.Sprintf("%s is out of range", n.Text)))
		} else {
			d.fail(typeMismatch(path, n, "finite number"))
		}
		return 0
	}
	if exact, err := strconv.ParseFloat(n.Text, 64); err == nil {
		d.src.numbers[path] = exact
	}
	return float32(f)
}

func (d *decoder) integer(path string, n *document.Node) int {
	if !d.ok() {
		return 0
	}
	if n.Kind != document.Number {
		d.fail(typeMismatch(path, n, "integer"))
		return 0
	}
	if i, err := strconv.ParseInt(n.Text, 0, 64); err == nil {
		return int(i)
	}
	// HCL and exponent notation can spell integers as floats, e.g. 1e3.
	f, err := strconv.ParseFloat(n.Text, 64)
	if err != nil || f != math.Trunc(f) {
		d.fail(typeMismatch(path, n, "integer"))
		return 0
	}
	if math.Abs(f) > 1<<53 {
		d.fail(invalidValue(path, n.Line, fmt.Sprintf("%s is out of range", n.Text)))
		return 0
	}
	return int(f)
}

func (d *decoder) tuple(path string, n *document.Node, length int, expected string) bool {
	if !d.ok() {
		return false
	}
	if n.Kind != document.Sequence || len(n.Items) != length {
		d.fail(typeMismatch(path, n, expected))
		return false
	}
	return true
}

func (d *decoder) tag(path string, n *document.Node, names []string) int {
	if !d.ok() {
		return 0
	}
	if n.Kind != document.String && n.Kind != document.Symbol {
		d.fail(typeMismatch(path, n, "variant name"))
		return 0
	}
	i, found := lookupEnum(names, n.Text)
	if !found {
		d.fail(unknownVariant(path, n, names))
		return 0
	}
	return i
}

// variant splits a tagged value into its tag node and payload. A bare tag
// has a nil payload; a single-key mapping carries its value as payload.
func (d *decoder) variant(path string, n *document.Node) (tag, payload *document.Node) {
	if !d.ok() {
		return nil, nil
	}
	switch n.Kind {
	case document.String, document.Symbol:
		return n, nil
	case document.Mapping:
		if len(n.Fields) == 1 {
			f := n.Fields[0]
			return &document.Node{Kind: document.Symbol, Line: f.Line, Text: f.Key}, f.Value
		}
	}
	d.fail(typeMismatch(path, n, "variant name or single-key mapping"))
	return nil, nil
}

func decodeSettings(root *document.Node) (*Settings, source, error) {
	d := &decoder{src: source{lines: make(map[string]int), numbers: make(map[string]float64)}}
	doc := d.object("", root)

	s := &Settings{
		DataPath: doc.str("data_path"),
		Game:     decodeGame(doc.child("game")),
		Car:      decodeCar(doc.child("car")),
		Window:   decodeWindow(doc.child("window")),
		Backend:  Backend(doc.enum("backend", backendNames)),
		Render:   decodeRender(doc.child("render")),
	}
	if d.err != nil {
		return nil, source{}, d.err
	}
	return s, d.src, nil
}

func decodeGame(o object) Game {
	g := Game{
		Level: o.str("level"),
		Cycle: decodeCycle(o),
		View:  View(o.enum("view", viewNames)),
	}

	cam := o.child("camera")
	g.Camera = Camera{
		Angle:          cam.float("angle"),
		Height:         cam.float("height"),
		TargetOverhead: cam.float("target_overhead"),
		Speed:          cam.float("speed"),
		DepthRange:     cam.rangePair("depth_range"),
	}

	other := o.child("other")
	g.Other = Other{
		Count:   other.integer("count"),
		SpawnAt: SpawnAt(other.enum("spawn_at", spawnAtNames)),
	}

	phys := o.child("physics")
	g.Physics = Physics{
		MaxQuant:      phys.float("max_quant"),
		ShapeSampling: phys.integer("shape_sampling"),
		GPUCollision:  decodeGPUCollision(phys),
	}
	return g
}

func decodeCycle(o object) *string {
	n, p := o.lookup("cycle", false)
	if n == nil {
		return nil
	}
	cycle := o.d.str(p, n)
	if !o.d.ok() {
		return nil
	}
	return &cycle
}

var gpuCollisionTags = []string{"None", "Some"}

// decodeGPUCollision accepts an absent value, null or None for "disabled",
// and either a mapping or {Some: mapping} for "enabled".
func decodeGPUCollision(o object) *GPUCollision {
	n, p := o.lookup("gpu_collision", false)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case document.String, document.Symbol:
		if n.Text == "None" {
			return nil
		}
		o.d.fail(unknownVariant(p, n, gpuCollisionTags))
		return nil
	case document.Mapping:
		if len(n.Fields) == 1 && n.Fields[0].Key == "Some" {
			n = n.Fields[0].Value
		}
	}

	gc := o.d.object(p, n)
	if n.Kind == document.Null {
		o.d.fail(typeMismatch(p, n, "mapping"))
	}
	cfg := &GPUCollision{
		MaxObjects:       gc.integer("max_objects"),
		MaxPolygonsTotal: gc.integer("max_polygons_total"),
		MaxRasterSize:    gc.size("max_raster_size"),
	}
	if !o.d.ok() {
		return nil
	}
	return cfg
}

func decodeCar(o object) Car {
	c := Car{
		ID:    o.str("id"),
		Color: CarColor(o.enum("color", carColorNames)),
		Slots: []string{},
	}

	n, p := o.lookup("slots", false)
	if n == nil {
		return c
	}
	if n.Kind != document.Sequence {
		o.d.fail(typeMismatch(p, n, "sequence of strings"))
		return c
	}
	for i, item := range n.Items {
		c.Slots = append(c.Slots, o.d.str(fmt.Sprintf("%s[%d]", p, i), item))
	}
	return c
}

func decodeWindow(o object) Window {
	return Window{
		Title:         o.str("title"),
		Size:          o.size("size"),
		ReloadOnFocus: o.boolean("reload_on_focus"),
	}
}

func decodeRender(o object) Render {
	r := Render{}

	light := o.child("light")
	r.Light.Pos = light.vec4("pos")
	r.Light.Color = light.vec4("color")
	shadow := light.child("shadow")
	r.Light.Shadow = Shadow{
		Size:    shadow.integer("size"),
		Terrain: decodeTerrain(shadow, "terrain"),
	}

	fog := o.child("fog")
	r.Fog = Fog{
		Color: fog.vec4("color"),
		Depth: fog.float("depth"),
	}

	r.Terrain = decodeTerrain(o, "terrain")

	dbg := o.child("debug")
	r.Debug = DebugRender{
		MaxVertices:     dbg.integer("max_vertices"),
		CollisionShapes: dbg.boolean("collision_shapes"),
		CollisionMap:    dbg.boolean("collision_map"),
		Impulses:        dbg.boolean("impulses"),
	}
	return r
}

func decodeTerrain(o object, key string) Terrain {
	n, p := o.lookup(key, true)
	if n == nil {
		return nil
	}
	d := o.d
	tagNode, payload := d.variant(p, n)
	if tagNode == nil {
		return nil
	}
	kind := TerrainKind(d.tag(p, tagNode, terrainNames))
	if !d.ok() {
		return nil
	}

	if payload == nil {
		payload = &document.Node{Kind: document.Null, Line: tagNode.Line}
	}
	body := d.object(joinPath(p, tagNode.Text), payload)
	var t Terrain
	switch kind {
	case TerrainRayMipTraced:
		t = RayMipTraced{
			MipCount: body.integer("mip_count"),
			MaxJumps: body.integer("max_jumps"),
			MaxSteps: body.integer("max_steps"),
			Debug:    body.boolean("debug"),
		}
	case TerrainScattered:
		t = Scattered{Density: body.vec3("density")}
	default:
		if d.ok() && len(body.node.Fields) > 0 {
			d.fail(typeMismatch(body.path, payload, "no payload"))
		}
		t = unitTerrain(kind)
	}
	if !d.ok() {
		return nil
	}
	return t
}

func unitTerrain(kind TerrainKind) Terrain {
	switch kind {
	case TerrainSliced:
		return Sliced{}
	case TerrainPainted:
		return Painted{}
	default:
		return RayTraced{}
	}
}
