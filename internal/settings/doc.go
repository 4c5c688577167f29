// Package settings loads the engine settings document: level and camera
// selection, physics limits, window and backend choice, and render options.
//
// Load reads one file, maps it onto the Settings schema and validates it.
// The result is either a complete Settings value or an *Error of exactly one
// kind (io, syntax, missing field, type mismatch, unknown variant, invalid
// value) carrying the field path and source line. Fields that may be left
// out are car.slots (empty), game.cycle (nil) and
// game.physics.gpu_collision (nil, also written as null or None).
//
// Enum values are written as their names. Tagged variants such as the
// terrain mode are either a bare name or a single-key mapping holding the
// payload:
//
//	terrain: RayTraced
//	terrain: {RayMipTraced: {mip_count: 10, max_jumps: 25, max_steps: 100, debug: false}}
//
// Settings values are shared read-only once loaded; reloads build new ones.
package settings
