package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/pipeline"
	"github.com/matzehuels/spritestack/pkg/project"
	"github.com/matzehuels/spritestack/pkg/sprite"
	"github.com/matzehuels/spritestack/pkg/studio"
)

// stackFlags describe a layer stack on the command line. Layers come from an
// optional project file followed by --layer flags in the order given.
type stackFlags struct {
	layers    []string // category=path
	name      string
	format    string
	cellSize  int
	fps       int
	seed      uint64
	randomize bool

	// refresh is only registered by export.
	refresh bool
}

func (f *stackFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.layers, "layer", "l", nil, "add a layer as category=path (repeatable, painted in order)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "sprite name used for the export file (default \"sample\")")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "export format: png (default), bmp, tiff")
	cmd.Flags().IntVar(&f.cellSize, "cell-size", 0, "sprite-sheet cell size in pixels (default 20)")
	cmd.Flags().IntVar(&f.fps, "fps", 0, "preview frames per second (default 3)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for --randomize")
	cmd.Flags().BoolVar(&f.randomize, "randomize", false, "pick one random layer per category before compositing")
}

// options merges the project options (if any) with flag overrides.
func (f *stackFlags) options(p *project.Project) pipeline.Options {
	var opts pipeline.Options
	if p != nil {
		opts = p.Options()
	}
	if f.name != "" {
		opts.Name = f.name
	}
	if f.format != "" {
		opts.Format = f.format
	}
	if f.cellSize != 0 {
		opts.CellSize = f.cellSize
	}
	if f.fps != 0 {
		opts.FPS = f.fps
	}
	if f.seed != 0 {
		opts.Seed = f.seed
	}
	opts.Refresh = f.refresh
	return opts
}

// openStudio builds a session from an optional project path and the layer
// flags. The stack is composited once before returning.
func (c *CLI) openStudio(ctx context.Context, runner *pipeline.Runner, args []string, f *stackFlags) (*studio.Studio, error) {
	var p *project.Project
	if len(args) > 0 {
		var err error
		if p, err = project.Load(args[0]); err != nil {
			return nil, err
		}
		loggerFromContext(ctx).Debug("loaded project", "path", args[0], "layers", len(p.Layers))
	}

	st, err := studio.New(runner, f.options(p))
	if err != nil {
		return nil, err
	}

	if p != nil {
		ls, err := p.LoadLayers()
		if err != nil {
			st.Close()
			return nil, err
		}
		st.Add(ls...)
	}

	for _, spec := range f.layers {
		category, path, err := parseLayerFlag(spec)
		if err != nil {
			st.Close()
			return nil, err
		}
		file, err := readLayerFile(path)
		if err != nil {
			st.Close()
			return nil, err
		}
		if _, err := st.Intake([]sprite.File{file}, category); err != nil {
			st.Close()
			return nil, err
		}
	}

	if f.randomize {
		st.Randomize()
	}
	if _, err := st.Refresh(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// parseLayerFlag splits "category=path".
func parseLayerFlag(s string) (category, path string, err error) {
	category, path, ok := strings.Cut(s, "=")
	category = strings.TrimSpace(category)
	path = strings.TrimSpace(path)
	if !ok || category == "" || path == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "layer %q: want category=path", s)
	}
	return category, path, nil
}

func readLayerFile(path string) (sprite.File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sprite.File{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "layer %s", path)
	}
	if err != nil {
		return sprite.File{}, err
	}
	return sprite.File{Name: filepath.Base(path), Data: data}, nil
}
