package settings

import "fmt"

type rule struct {
	path   string
	ok     bool
	reason string
}

// validate applies range and cross-field rules to a decoded value. Numeric
// bounds are checked against the document's text at float64 precision, so
// rounding to float32 never moves a value across a bound.
func validate(s *Settings, src source) error {
	cam := s.Game.Camera
	phys := s.Game.Physics

	angle := src.number("game.camera.angle", cam.Angle)
	speed := src.number("game.camera.speed", cam.Speed)
	near := src.number("game.camera.depth_range[0]", cam.DepthRange.Near)
	far := src.number("game.camera.depth_range[1]", cam.DepthRange.Far)
	maxQuant := src.number("game.physics.max_quant", phys.MaxQuant)
	fogDepth := src.number("render.fog.depth", s.Render.Fog.Depth)

	rules := []rule{
		{"game.level", s.Game.Level != "", "must not be empty"},
		{"game.camera.angle", angle > 0 && angle <= 180,
			fmt.Sprintf("must be within (0, 180] degrees, got %g", angle)},
		{"game.camera.speed", speed > 0,
			fmt.Sprintf("must be positive, got %g", speed)},
		{"game.camera.depth_range", near < far,
			fmt.Sprintf("near (%g) must be less than far (%g)", near, far)},
		{"game.other.count", s.Game.Other.Count >= 0,
			fmt.Sprintf("must not be negative, got %d", s.Game.Other.Count)},
		{"game.physics.max_quant", maxQuant > 0,
			fmt.Sprintf("must be positive, got %g", maxQuant)},
		{"game.physics.shape_sampling", phys.ShapeSampling >= 0,
			fmt.Sprintf("must not be negative, got %d", phys.ShapeSampling)},
	}

	if gc := phys.GPUCollision; gc != nil {
		rules = append(rules,
			rule{"game.physics.gpu_collision.max_objects", gc.MaxObjects > 0,
				fmt.Sprintf("must be positive, got %d", gc.MaxObjects)},
			rule{"game.physics.gpu_collision.max_polygons_total", gc.MaxPolygonsTotal > 0,
				fmt.Sprintf("must be positive, got %d", gc.MaxPolygonsTotal)},
			sizeRule("game.physics.gpu_collision.max_raster_size", gc.MaxRasterSize),
		)
	}

	rules = append(rules,
		sizeRule("window.size", s.Window.Size),
		rule{"render.light.shadow.size", s.Render.Light.Shadow.Size > 0,
			fmt.Sprintf("must be positive, got %d", s.Render.Light.Shadow.Size)},
	)
	rules = append(rules, terrainRules("render.light.shadow.terrain", s.Render.Light.Shadow.Terrain)...)
	rules = append(rules,
		rule{"render.fog.depth", fogDepth > 0,
			fmt.Sprintf("must be positive, got %g", fogDepth)},
	)
	rules = append(rules, terrainRules("render.terrain", s.Render.Terrain)...)
	rules = append(rules,
		rule{"render.debug.max_vertices", s.Render.Debug.MaxVertices >= 0,
			fmt.Sprintf("must not be negative, got %d", s.Render.Debug.MaxVertices)},
	)

	for _, r := range rules {
		if !r.ok {
			return invalidValue(r.path, src.lines[r.path], r.reason)
		}
	}
	return nil
}

func sizeRule(path string, size Size) rule {
	return rule{path, size.Width > 0 && size.Height > 0,
		fmt.Sprintf("width and height must be positive, got (%d, %d)", size.Width, size.Height)}
}

func terrainRules(path string, t Terrain) []rule {
	mip, ok := t.(RayMipTraced)
	if !ok {
		return nil
	}
	path = joinPath(path, TerrainRayMipTraced.String())
	counter := func(key string, v int) rule {
		return rule{joinPath(path, key), v >= 0, fmt.Sprintf("must not be negative, got %d", v)}
	}
	return []rule{
		counter("mip_count", mip.MipCount),
		counter("max_jumps", mip.MaxJumps),
		counter("max_steps", mip.MaxSteps),
	}
}
