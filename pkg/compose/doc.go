// Package compose paints ordered sprite layers onto one raster surface.
//
// # Determinism
//
// Composite output depends only on the ordered layer list, never on decode
// timing. Every layer is decoded concurrently (fan-out) into a slot indexed
// by its position; Composite waits for all of them (fan-in) and only then
// paints, index 0 first, with alpha-over. A layer that fails to decode is
// logged and skipped as if hidden; it never aborts the composite.
//
// # Staleness
//
// Each call to [Compositor.Composite] takes a monotonically increasing id.
// When a newer composite has started by the time an older one finishes, the
// older [Result] is marked Stale and callers should discard it.
//
// # Formats
//
// The default decoder understands PNG, JPEG, GIF, WebP, BMP and TIFF.
// Decoded images are memoized by layer content hash.
package compose
