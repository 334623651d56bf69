package sprite

import (
	"crypto/sha256"
	"encoding/hex"
)

// File is one accepted upload: a display name and its encoded image bytes.
type File struct {
	Name string
	Data []byte
}

// Layer is one sprite-part image with a category tag and visibility flag.
//
// Data is immutable once set; Hash is its content digest and is used as the
// decode-cache and export-cache key.
type Layer struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Show     bool   `json:"show"`
	Hash     string `json:"hash"`
	Data     []byte `json:"-"`
}

// NewLayer builds a visible layer from raw image data.
func NewLayer(name, category string, data []byte) Layer {
	return Layer{
		Name:     name,
		Category: category,
		Show:     true,
		Hash:     contentHash(data),
		Data:     data,
	}
}

// NewLayers converts uploaded files into visible layers tagged with category.
// Names already in taken, and names repeated within files, are suffixed so
// every returned layer has a unique name. taken is updated in place and may
// be nil.
func NewLayers(files []File, category string, taken map[string]bool) []Layer {
	if taken == nil {
		taken = make(map[string]bool, len(files))
	}
	out := make([]Layer, 0, len(files))
	for _, f := range files {
		name := UniqueName(f.Name, taken)
		taken[name] = true
		out = append(out, NewLayer(name, category, f.Data))
	}
	return out
}

// Names returns the set of layer names, for use with NewLayers.
func Names(layers []Layer) map[string]bool {
	m := make(map[string]bool, len(layers))
	for _, l := range layers {
		m[l.Name] = true
	}
	return m
}

// Hashes returns each layer's content hash in order.
func Hashes(layers []Layer) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = l.Hash
	}
	return out
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
