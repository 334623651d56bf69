// Package layers holds the ordered layer collection of a sprite and the
// category-constrained random selection over it.
//
// Store order is paint order: index 0 is painted first and later entries
// paint on top. The same order is used by preview and export. Layer names
// are unique within a store and are the identity key for visibility changes.
//
// # Randomize
//
// [Store.Randomize] visits categories in declaration order and, for each
// category with n > 0 layers, shows exactly the layer at
//
//	floor(r1·n) − (nullable ? round(r2) : 0)
//
// hiding all others in that category. A negative index hides every layer of
// a nullable category. The two-draw construction is deliberate and is not a
// uniform draw over n+1 outcomes.
package layers
