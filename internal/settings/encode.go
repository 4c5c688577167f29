package settings

import "github.com/eugenenazirov/vangers-settings/internal/document"

// Encode converts settings back into a document tree that Parse accepts.
// Absent optional fields are left out.
func Encode(s *Settings) *document.Node {
	g := s.Game
	game := document.NewMapping().Set("level", document.NewString(g.Level))
	if g.Cycle != nil {
		game.Set("cycle", document.NewString(*g.Cycle))
	}
	game.
		Set("view", document.NewSymbol(g.View.String())).
		Set("camera", document.NewMapping().
			Set("angle", document.NewFloat(g.Camera.Angle)).
			Set("height", document.NewFloat(g.Camera.Height)).
			Set("target_overhead", document.NewFloat(g.Camera.TargetOverhead)).
			Set("speed", document.NewFloat(g.Camera.Speed)).
			Set("depth_range", floats(g.Camera.DepthRange.Near, g.Camera.DepthRange.Far))).
		Set("other", document.NewMapping().
			Set("count", document.NewInt(int64(g.Other.Count))).
			Set("spawn_at", document.NewSymbol(g.Other.SpawnAt.String())))

	physics := document.NewMapping().
		Set("max_quant", document.NewFloat(g.Physics.MaxQuant)).
		Set("shape_sampling", document.NewInt(int64(g.Physics.ShapeSampling)))
	if gc := g.Physics.GPUCollision; gc != nil {
		physics.Set("gpu_collision", document.NewMapping().
			Set("max_objects", document.NewInt(int64(gc.MaxObjects))).
			Set("max_polygons_total", document.NewInt(int64(gc.MaxPolygonsTotal))).
			Set("max_raster_size", size(gc.MaxRasterSize)))
	}
	game.Set("physics", physics)

	slots := make([]*document.Node, 0, len(s.Car.Slots))
	for _, slot := range s.Car.Slots {
		slots = append(slots, document.NewString(slot))
	}

	r := s.Render
	return document.NewMapping().
		Set("data_path", document.NewString(s.DataPath)).
		Set("game", game).
		Set("car", document.NewMapping().
			Set("id", document.NewString(s.Car.ID)).
			Set("color", document.NewSymbol(s.Car.Color.String())).
			Set("slots", document.NewSequence(slots...))).
		Set("window", document.NewMapping().
			Set("title", document.NewString(s.Window.Title)).
			Set("size", size(s.Window.Size)).
			Set("reload_on_focus", document.NewBool(s.Window.ReloadOnFocus))).
		Set("backend", document.NewSymbol(s.Backend.String())).
		Set("render", document.NewMapping().
			Set("light", document.NewMapping().
				Set("pos", floats(r.Light.Pos[:]...)).
				Set("color", floats(r.Light.Color[:]...)).
				Set("shadow", document.NewMapping().
					Set("size", document.NewInt(int64(r.Light.Shadow.Size))).
					Set("terrain", encodeTerrain(r.Light.Shadow.Terrain)))).
			Set("fog", document.NewMapping().
				Set("color", floats(r.Fog.Color[:]...)).
				Set("depth", document.NewFloat(r.Fog.Depth))).
			Set("terrain", encodeTerrain(r.Terrain)).
			Set("debug", document.NewMapping().
				Set("max_vertices", document.NewInt(int64(r.Debug.MaxVertices))).
				Set("collision_shapes", document.NewBool(r.Debug.CollisionShapes)).
				Set("collision_map", document.NewBool(r.Debug.CollisionMap)).
				Set("impulses", document.NewBool(r.Debug.Impulses))))
}

func encodeTerrain(t Terrain) *document.Node {
	switch v := t.(type) {
	case RayMipTraced:
		return document.NewMapping().Set(v.Kind().String(), document.NewMapping().
			Set("mip_count", document.NewInt(int64(v.MipCount))).
			Set("max_jumps", document.NewInt(int64(v.MaxJumps))).
			Set("max_steps", document.NewInt(int64(v.MaxSteps))).
			Set("debug", document.NewBool(v.Debug)))
	case Scattered:
		return document.NewMapping().Set(v.Kind().String(), document.NewMapping().
			Set("density", floats(v.Density[:]...)))
	case nil:
		return document.NewNull()
	default:
		return document.NewSymbol(t.Kind().String())
	}
}

func floats(vs ...float32) *document.Node {
	items := make([]*document.Node, 0, len(vs))
	for _, v := range vs {
		items = append(items, document.NewFloat(v))
	}
	return document.NewSequence(items...)
}

func size(s Size) *document.Node {
	return document.NewSequence(document.NewInt(int64(s.Width)), document.NewInt(int64(s.Height)))
}
