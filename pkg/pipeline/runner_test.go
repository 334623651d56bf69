package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/matzehuels/spritestack/pkg/cache"
	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

func testLayer(t *testing.T, name string, w, h int, c color.NRGBA) sprite.Layer {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return sprite.NewLayer(name, "base", buf.Bytes())
}

func TestRunnerExportCaches(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	r := NewRunner(mem, nil, nil, nil)
	layers := []sprite.Layer{
		testLayer(t, "body", 4, 4, color.NRGBA{R: 255, A: 255}),
		testLayer(t, "hat", 4, 2, color.NRGBA{B: 255, A: 255}),
	}

	first, err := r.Export(context.Background(), layers, Options{Name: "knight"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first export should miss")
	}
	if first.Artifact.Name != "knight.png" {
		t.Errorf("Name = %q", first.Artifact.Name)
	}
	if mem.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", mem.Len())
	}

	second, err := r.Export(context.Background(), layers, Options{Name: "renamed"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second export should hit")
	}
	if !bytes.Equal(first.Artifact.Data, second.Artifact.Data) {
		t.Error("cached bytes differ")
	}
	if second.Artifact.Name != "renamed.png" || second.Artifact.Width != 4 || second.Artifact.Height != 4 {
		t.Errorf("cached artifact = %+v", second.Artifact)
	}

	third, err := r.Export(context.Background(), layers, Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached {
		t.Error("refresh should skip the cache")
	}
}

func TestRunnerExportKeyDependsOnOrder(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(time.Minute, time.Minute), nil, nil, nil)
	a := testLayer(t, "a", 2, 2, color.NRGBA{R: 255, A: 255})
	b := testLayer(t, "b", 2, 2, color.NRGBA{G: 255, A: 255})

	ab, err := r.Export(context.Background(), []sprite.Layer{a, b}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ba, err := r.Export(context.Background(), []sprite.Layer{b, a}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ab.Key == ba.Key {
		t.Error("different paint order should have different keys")
	}
	if ba.Cached {
		t.Error("reordered stack should miss")
	}
}

func TestRunnerExportIgnoresHidden(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	visible := testLayer(t, "a", 2, 2, color.NRGBA{R: 255, A: 255})
	hidden := testLayer(t, "b", 8, 8, color.NRGBA{G: 255, A: 255})
	hidden.Show = false

	res, err := r.Export(context.Background(), []sprite.Layer{visible, hidden}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Artifact.Width != 2 {
		t.Errorf("Width = %d; hidden layer should not size the surface", res.Artifact.Width)
	}
}

func TestRunnerSkipsCachingPartialComposites(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	r := NewRunner(mem, nil, compose.New(compose.Options{}), nil)
	layers := []sprite.Layer{
		testLayer(t, "a", 2, 2, color.NRGBA{A: 255}),
		sprite.NewLayer("broken", "hats", []byte("nope")),
	}
	res, err := r.Export(context.Background(), layers, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifact.Skipped) != 1 {
		t.Errorf("Skipped = %v", res.Artifact.Skipped)
	}
	if mem.Len() != 0 {
		t.Error("partial composite should not be cached")
	}
}

func TestRunnerInvalidOptions(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	if _, err := r.Export(context.Background(), nil, Options{Format: "gif"}); err == nil {
		t.Error("expected error for invalid format")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestRunnerExportRandomize(t *testing.T) {
	colors := []color.NRGBA{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}}
	var stack []sprite.Layer
	for i, c := range colors {
		stack = append(stack, testLayer(t, string(rune('a'+i)), 2, 2, c))
	}
	r := NewRunner(nil, nil, nil, nil)
	ctx := context.Background()

	export := func(seed uint64) color.NRGBA {
		t.Helper()
		res, err := r.Export(ctx, stack, Options{Randomize: true, Seed: seed})
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(bytes.NewReader(res.Artifact.Data))
		if err != nil {
			t.Fatal(err)
		}
		return color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	}

	seen := map[color.NRGBA]bool{}
	for seed := uint64(1); seed <= 20; seed++ {
		got := export(seed)
		if again := export(seed); again != got {
			t.Fatalf("seed %d gave %v then %v", seed, got, again)
		}
		seen[got] = true
	}
	for c := range seen {
		if c != colors[0] && c != colors[1] && c != colors[2] {
			t.Errorf("pixel %v is not a single layer's color", c)
		}
	}
	if len(seen) < 2 {
		t.Errorf("20 seeds picked only %v", seen)
	}
	for _, l := range stack {
		if !l.Show {
			t.Errorf("caller's layer %s was hidden", l.Name)
		}
	}
}
