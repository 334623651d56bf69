package cache

// Keyer builds cache keys for the export pipeline.
type Keyer interface {
	// ExportKey identifies an encoded composite of the given layers.
	// layerHashes must be in paint order.
	ExportKey(layerHashes []string, opts ExportKeyOpts) string
}

// ExportKeyOpts holds the options that change the encoded bytes of an export.
type ExportKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`  // fallback width for empty composites
	Height int    `json:"height,omitempty"` // fallback height for empty composites
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ExportKey hashes the layer order together with opts.
func (DefaultKeyer) ExportKey(layerHashes []string, opts ExportKeyOpts) string {
	return hashKey("export", layerHashes, opts)
}
