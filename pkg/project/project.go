// Package project reads sprite project files.
//
// A project file is TOML. Every field is optional; layer paths are resolved
// relative to the project file:
//
//	name = "knight"
//	fps = 6
//	cell_size = 32
//	format = "png"
//
//	[[categories]]
//	name = "base"
//
//	[[categories]]
//	name = "hats"
//	nullable = true
//
//	[[layers]]
//	file = "parts/body.png"
//	category = "base"
//
//	[[layers]]
//	file = "parts/crown.png"
//	category = "hats"
//	show = false
//
// Without a categories table the default table applies.
package project

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/pipeline"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// File is the decoded form of a project file.
type File struct {
	Name     string `toml:"name"`
	Format   string `toml:"format"`
	FPS      int    `toml:"fps"`
	Scale    int    `toml:"scale"`
	CellSize int    `toml:"cell_size"`
	Seed     uint64 `toml:"seed"`

	Categories []sprite.Category `toml:"categories"`
	Layers     []LayerEntry      `toml:"layers"`
}

// LayerEntry is one [[layers]] table. Show defaults to true and Name to the
// file's base name.
type LayerEntry struct {
	File     string `toml:"file"`
	Category string `toml:"category"`
	Show     *bool  `toml:"show"`
	Name     string `toml:"name"`
}

// Project is a loaded project file.
type Project struct {
	File

	// Dir is the directory layer paths are resolved against.
	Dir string
}

// Parse decodes project TOML. Layer paths are resolved against dir.
func Parse(data []byte, dir string) (*Project, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse project")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown project key %q", undecoded[0].String())
	}
	p := &Project{File: f, Dir: dir}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads and parses the project file at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "project %s", path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Dir(path))
}

func (p *Project) validate() error {
	if err := pipeline.ValidateCategories(p.Categories); err != nil {
		return err
	}
	cats := p.categories()
	for i, l := range p.Layers {
		if err := errors.ValidatePath(l.File); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "layers[%d]", i)
		}
		if _, ok := sprite.FindCategory(cats, l.Category); !ok {
			return errors.New(errors.ErrCodeInvalidCategory, "layers[%d]: unknown category %q", i, l.Category)
		}
	}
	return nil
}

func (p *Project) categories() []sprite.Category {
	if len(p.Categories) == 0 {
		return sprite.DefaultCategories
	}
	return p.Categories
}

// Options returns the project's configuration as pipeline options.
func (p *Project) Options() pipeline.Options {
	return pipeline.Options{
		Name:       p.Name,
		Format:     p.Format,
		FPS:        p.FPS,
		Scale:      p.Scale,
		CellSize:   p.CellSize,
		Seed:       p.Seed,
		Categories: p.categories(),
	}
}

// LoadLayers reads every layer file in declaration order. Duplicate names
// are suffixed.
func (p *Project) LoadLayers() ([]sprite.Layer, error) {
	taken := make(map[string]bool, len(p.Layers))
	out := make([]sprite.Layer, 0, len(p.Layers))
	for _, entry := range p.Layers {
		path := filepath.Join(p.Dir, filepath.FromSlash(entry.File))
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "layer %s", entry.File)
		}
		if err != nil {
			return nil, err
		}

		name := entry.Name
		if name == "" {
			name = filepath.Base(path)
		}
		name = sprite.UniqueName(name, taken)
		taken[name] = true

		l := sprite.NewLayer(name, entry.Category, data)
		if entry.Show != nil {
			l.Show = *entry.Show
		}
		out = append(out, l)
	}
	return out, nil
}
