// Package sprite defines the data model shared by every spritestack component.
//
// A sprite is assembled from independently supplied [Layer] images. Each layer
// belongs to a [Category] (a semantic slot such as "torsos" or "hats") and
// carries a visibility flag. Categories marked Nullable may legitimately have
// no visible layer; all others are expected to show exactly one.
//
// # Intake
//
// Raw uploads arrive as [File] records. [NewLayers] converts them into layers
// tagged with the category selected at intake time, visible by default:
//
//	layers := sprite.NewLayers(files, "hairs", sprite.Names(existing))
//
// Layer names are the identity key across all operations, so NewLayers
// disambiguates duplicates with " (2)", " (3)" suffixes.
//
// # Frames
//
// A [Frame] is a cell offset into a sprite sheet, both components ≤ 0. Use
// [Frame.Pixels] to turn it into the pixel background-position of a preview.
package sprite
