package settings

// Settings is the validated configuration of one game process. Values
// returned by Load are never modified afterwards; a reload produces a new
// value instead.
type Settings struct {
	DataPath string
	Game     Game
	Car      Car
	Window   Window
	Backend  Backend
	Render   Render
}

// Game selects the level and tunes camera, spawning and physics.
type Game struct {
	Level string
	// Cycle is nil when the document leaves it out. An explicit empty
	// string is kept as such.
	Cycle   *string
	View    View
	Camera  Camera
	Other   Other
	Physics Physics
}

// Camera holds the follow-camera parameters. Angle is in degrees.
type Camera struct {
	Angle          float32
	Height         float32
	TargetOverhead float32
	Speed          float32
	DepthRange     Range
}

// Range is a near/far clipping pair.
type Range struct {
	Near float32
	Far  float32
}

// Other controls non-player vehicles.
type Other struct {
	Count   int
	SpawnAt SpawnAt
}

// Physics tunes the simulation step. GPUCollision is nil when GPU collision
// is disabled.
type Physics struct {
	MaxQuant      float32
	ShapeSampling int
	GPUCollision  *GPUCollision
}

// GPUCollision sizes the GPU collision buffers.
type GPUCollision struct {
	MaxObjects       int
	MaxPolygonsTotal int
	MaxRasterSize    Size
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Car describes the player vehicle. Slots lists equipment in mount order.
type Car struct {
	ID    string
	Color CarColor
	Slots []string
}

type Window struct {
	Title         string
	Size          Size
	ReloadOnFocus bool
}

type Render struct {
	Light   Light
	Fog     Fog
	Terrain Terrain
	Debug   DebugRender
}

// Light is the global light. A Pos with w=0 is directional, w=1 a point.
type Light struct {
	Pos    [4]float32
	Color  [4]float32
	Shadow Shadow
}

type Shadow struct {
	Size    int
	Terrain Terrain
}

type Fog struct {
	Color [4]float32
	Depth float32
}

type DebugRender struct {
	MaxVertices     int
	CollisionShapes bool
	CollisionMap    bool
	Impulses        bool
}

// ScreenAspect returns the window width divided by its height.
func (s *Settings) ScreenAspect() float32 {
	return float32(s.Window.Size.Width) / float32(s.Window.Size.Height)
}

// CycleName returns the configured cycle, or "" when none is set.
func (g Game) CycleName() string {
	if g.Cycle == nil {
		return ""
	}
	return *g.Cycle
}
