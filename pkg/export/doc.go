// Package export composites the active layers of a sprite and encodes the
// result as a single still image.
//
// Supported formats are PNG (the default), BMP and TIFF. Artifacts are named
// "<name>.<format>", with "sample" standing in for an empty name.
package export
