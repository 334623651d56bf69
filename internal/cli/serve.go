package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/matzehuels/spritestack/internal/server"
	"github.com/matzehuels/spritestack/pkg/buildinfo"
	"github.com/matzehuels/spritestack/pkg/session"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr  string
	cache cacheFlags
	stack stackFlags
	rate  float64
	burst int
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for browser sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().Float64Var(&opts.rate, "rate", server.DefaultRate, "requests per second per client")
	cmd.Flags().IntVar(&opts.burst, "burst", server.DefaultBurst, "request burst per client")
	opts.cache.register(cmd)
	opts.cache.memory = true
	cmd.Flags().StringVar(&opts.cache.keyPrefix, "key-prefix", "", "prefix for cache keys when several servers share one Redis")
	// Session defaults; layers always come from uploads.
	cmd.Flags().StringVarP(&opts.stack.format, "format", "f", "", "default export format")
	cmd.Flags().IntVar(&opts.stack.cellSize, "cell-size", 0, "default cell size in pixels")
	cmd.Flags().IntVar(&opts.stack.fps, "fps", 0, "default frames per second")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	defaults := opts.stack.options(nil)
	defaults.Logger = c.Logger
	if err := defaults.ValidateAndSetDefaults(); err != nil {
		return err
	}
	srv := server.New(server.Config{
		Runner:   runner,
		Sessions: session.NewMemoryStore(session.DefaultTTL),
		Logger:   c.Logger,
		Defaults: defaults,
		Rate:     rate.Limit(opts.rate),
		Burst:    opts.burst,
	})

	printKeyValue("Version", buildinfo.Get().Short())
	printKeyValue("Listening", StyleLink.Render(listenURL(opts.addr)))
	printKeyValue("Cache", cacheLabel(opts.cache))
	printKeyValue("Sessions", fmt.Sprintf("in memory, %s idle TTL", session.DefaultTTL))
	return srv.ListenAndServe(ctx, opts.addr)
}

func listenURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func cacheLabel(f cacheFlags) string {
	switch {
	case f.noCache:
		return "disabled"
	case f.redisAddr != "":
		return "redis " + f.redisAddr
	case f.memory:
		return "in memory"
	default:
		dir, err := cacheDir()
		if err != nil {
			return "disabled"
		}
		return dir
	}
}
