// Package artifact stores exported sprites.
//
// The CLI writes exports to a directory ([DirStore]); deployments that want
// a shared export history can additionally record them in MongoDB
// ([MongoStore]).
package artifact

import (
	"context"
	"time"

	"github.com/matzehuels/spritestack/pkg/export"
)

// Record describes a stored export.
type Record struct {
	Key       string    `json:"key" bson:"key"`
	Name      string    `json:"name" bson:"name"`
	Format    string    `json:"format" bson:"format"`
	Width     int       `json:"width" bson:"width"`
	Height    int       `json:"height" bson:"height"`
	Layers    []string  `json:"layers" bson:"layers"`
	Size      int       `json:"size" bson:"size"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NewRecord describes art. key identifies the layer stack (usually the
// export cache key) and layers names the painted layers in order.
func NewRecord(art *export.Artifact, key string, layers []string) Record {
	return Record{
		Key:       key,
		Name:      art.Name,
		Format:    string(art.Format),
		Width:     art.Width,
		Height:    art.Height,
		Layers:    layers,
		Size:      len(art.Data),
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists export artifacts.
type Store interface {
	// Put stores art and returns where it was stored.
	Put(ctx context.Context, art *export.Artifact, rec Record) (string, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Multi writes to every store in order and returns the first location.
type Multi []Store

// Put stores art in every store. It stops at the first error.
func (m Multi) Put(ctx context.Context, art *export.Artifact, rec Record) (string, error) {
	var first string
	for i, s := range m {
		loc, err := s.Put(ctx, art, rec)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = loc
		}
	}
	return first, nil
}

// Close closes every store, returning the first error.
func (m Multi) Close(ctx context.Context) error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
