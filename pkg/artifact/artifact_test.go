package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/spritestack/pkg/export"
)

func testArtifact() *export.Artifact {
	return &export.Artifact{
		Name:   "knight.png",
		Format: export.FormatPNG,
		Data:   []byte("png bytes"),
		Width:  20,
		Height: 40,
	}
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	art := testArtifact()
	loc, err := s.Put(context.Background(), art, Record{})
	if err != nil {
		t.Fatal(err)
	}
	if loc != filepath.Join(dir, "knight.png") {
		t.Errorf("location = %q", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "png bytes" {
		t.Errorf("file = %q, %v", data, err)
	}

	art.Data = []byte("newer")
	if _, err := s.Put(context.Background(), art, Record{}); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(loc)
	if string(data) != "newer" {
		t.Error("Put should replace the existing file")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(testArtifact(), "export:abc", []string{"body", "hat"})
	if rec.Key != "export:abc" || rec.Format != "png" || rec.Size != 9 || rec.Width != 20 {
		t.Errorf("NewRecord() = %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMongoDocument(t *testing.T) {
	doc := newMongoDoc(testArtifact(), Record{Name: "knight.png", Layers: []string{"body"}})
	if len(doc.Key) != 64 {
		t.Errorf("missing key should fall back to a content hash, got %q", doc.Key)
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"key", "name", "layers", "data", "created_at"} {
		if _, ok := m[field]; !ok {
			t.Errorf("document missing %q: %v", field, m)
		}
	}
}

type failingStore struct{ closed bool }

func (f *failingStore) Put(context.Context, *export.Artifact, Record) (string, error) {
	return "", errors.New("disk full")
}

func (f *failingStore) Close(context.Context) error {
	f.closed = true
	return errors.New("close failed")
}

func TestMulti(t *testing.T) {
	dir, _ := NewDirStore(t.TempDir())
	bad := &failingStore{}

	loc, err := Multi{dir, bad}.Put(context.Background(), testArtifact(), Record{})
	if err == nil {
		t.Error("expected error from failing store")
	}
	if loc == "" {
		t.Error("first location should be returned with the error")
	}
	if err := (Multi{dir, bad}).Close(context.Background()); err == nil || !bad.closed {
		t.Error("Close should reach every store and report errors")
	}
}
