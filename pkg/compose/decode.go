package compose

import (
	"bytes"
	"context"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	gocache "github.com/patrickmn/go-cache"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// DecodeFunc turns a layer's encoded data into an image.
type DecodeFunc func(ctx context.Context, l sprite.Layer) (image.Image, error)

// Decode is the default DecodeFunc. It sniffs the format from the data.
func Decode(_ context.Context, l sprite.Layer) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(l.Data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode layer %q", l.Name)
	}
	return img, nil
}

// DecodeConfig returns a layer's format and size without decoding pixels.
func DecodeConfig(l sprite.Layer) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(l.Data))
	if err != nil {
		return image.Config{}, "", errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode layer %q", l.Name)
	}
	return cfg, format, nil
}

// memo caches decoded images by content hash.
type memo struct {
	store *gocache.Cache
}

func newMemo(ttl time.Duration) *memo {
	return &memo{store: gocache.New(ttl, ttl*2)}
}

func (m *memo) wrap(decode DecodeFunc) DecodeFunc {
	return func(ctx context.Context, l sprite.Layer) (image.Image, error) {
		if l.Hash != "" {
			if v, ok := m.store.Get(l.Hash); ok {
				return v.(image.Image), nil
			}
		}
		img, err := decode(ctx, l)
		if err != nil {
			return nil, err
		}
		if l.Hash != "" {
			m.store.SetDefault(l.Hash, img)
		}
		return img, nil
	}
}

func (m *memo) len() int {
	return m.store.ItemCount()
}
