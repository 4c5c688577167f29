package settings

// TerrainKind names a terrain rendering mode.
type TerrainKind int

const (
	TerrainRayTraced TerrainKind = iota
	TerrainRayMipTraced
	TerrainScattered
	TerrainSliced
	TerrainPainted
)

var terrainNames = []string{"RayTraced", "RayMipTraced", "Scattered", "Sliced", "Painted"}

func (k TerrainKind) String() string { return enumName(terrainNames, int(k), "TerrainKind") }

func (k TerrainKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Terrain is one of RayTraced, RayMipTraced, Scattered, Sliced or Painted.
// The set is closed: only this package can add implementations.
type Terrain interface {
	Kind() TerrainKind
	isTerrain()
}

// RayTraced ray-marches the voxel height map directly.
type RayTraced struct{}

// RayMipTraced ray-marches a mip chain of the height map.
type RayMipTraced struct {
	MipCount int
	MaxJumps int
	MaxSteps int
	Debug    bool
}

// Scattered splats terrain points with the given per-axis density.
type Scattered struct {
	Density [3]float32
}

// Sliced draws the terrain as stacked horizontal slices.
type Sliced struct{}

// Painted draws the terrain with plain rasterised geometry.
type Painted struct{}

func (RayTraced) Kind() TerrainKind    { return TerrainRayTraced }
func (RayMipTraced) Kind() TerrainKind { return TerrainRayMipTraced }
func (Scattered) Kind() TerrainKind    { return TerrainScattered }
func (Sliced) Kind() TerrainKind       { return TerrainSliced }
func (Painted) Kind() TerrainKind      { return TerrainPainted }

func (RayTraced) isTerrain()    {}
func (RayMipTraced) isTerrain() {}
func (Scattered) isTerrain()    {}
func (Sliced) isTerrain()       {}
func (Painted) isTerrain()      {}
