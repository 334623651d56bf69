package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spritestack/pkg/artifact"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	stack    stackFlags
	cache    cacheFlags
	outDir   string
	mongoURI string
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [project.toml]",
		Short: "Composite the visible layers and write the sprite sheet",
		Example: `  spritestack export --layer base=body.png --layer heads=head.png -n knight
  spritestack export knight/spritestack.toml -f tiff -o out/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args, &opts)
		},
	}

	opts.stack.register(cmd)
	opts.cache.register(cmd)
	cmd.Flags().StringVarP(&opts.outDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.stack.refresh, "refresh", false, "bypass the cache lookup")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "also record the export in MongoDB")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, args []string, opts *exportOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	store, err := newArtifactStore(ctx, opts.outDir, opts.mongoURI)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	st, err := c.openStudio(ctx, runner, args, &opts.stack)
	if err != nil {
		return err
	}
	defer st.Close()

	spin := startSpinner(ctx, os.Stderr, fmt.Sprintf("Compositing %d layers...", len(st.Active())))
	res, err := st.Export(ctx)
	if err != nil {
		spin.StopWithError("Export failed")
		return err
	}

	art := res.Artifact
	spin.SetMessage("Writing " + art.Name + "...")
	loc, err := store.Put(ctx, art, artifact.NewRecord(art, res.Key, sprite.Names(st.Active())))
	spin.Stop()
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}

	prog.done("Exported "+art.Name, "layers", len(st.Active()), "cached", res.Cached)
	printSuccess("Exported %s", StyleHighlight.Render(art.Name))
	printFile(loc)
	printStats(art.Width, art.Height, len(art.Data), res.Cached)
	for _, name := range art.Skipped {
		printWarning("skipped %s: not a decodable image", name)
	}
	if len(args) > 0 {
		printNextStep("Preview the animation", appName+" preview "+args[0])
	}
	return nil
}

// newArtifactStore writes to dir and, when mongoURI is set, to MongoDB.
func newArtifactStore(ctx context.Context, dir, mongoURI string) (artifact.Store, error) {
	ds, err := artifact.NewDirStore(dir)
	if err != nil {
		return nil, err
	}
	if mongoURI == "" {
		return ds, nil
	}
	ms, err := artifact.NewMongoStore(ctx, artifact.MongoConfig{
		URI:            mongoURI,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return artifact.Multi{ds, ms}, nil
}
