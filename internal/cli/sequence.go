package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/pipeline"
	"github.com/matzehuels/spritestack/pkg/sheet"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// sequenceOpts holds the command-line flags for the sequence command.
type sequenceOpts struct {
	stack   stackFlags
	columns int
	rows    int
	pixels  bool
}

// sequenceCommand creates the sequence command.
func (c *CLI) sequenceCommand() *cobra.Command {
	var opts sequenceOpts

	cmd := &cobra.Command{
		Use:   "sequence [project.toml]",
		Short: "Print the ping-pong frame sequence",
		Long: `Print the frame sequence the preview plays. Each row of the sheet is walked
forward to its last cell and back again before the next row starts.

The grid comes from --columns/--rows or is derived from the composited
layers of a project or --layer flags.`,
		Example: `  spritestack sequence --columns 3 --rows 2
  spritestack sequence knight/spritestack.toml --pixels`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSequence(cmd.Context(), args, &opts)
		},
	}

	opts.stack.register(cmd)
	cmd.Flags().IntVar(&opts.columns, "columns", 0, "grid columns")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "grid rows")
	cmd.Flags().BoolVar(&opts.pixels, "pixels", false, "print pixel offsets instead of cell offsets")

	return cmd
}

func (c *CLI) runSequence(ctx context.Context, args []string, opts *sequenceOpts) error {
	grid, cellSize, err := c.sequenceGrid(ctx, args, opts)
	if err != nil {
		return err
	}
	if grid.Empty() {
		printWarning("grid is empty: the sheet is smaller than one %dpx cell", cellSize)
		return nil
	}

	frames := sheet.BuildSequence(grid.Columns, grid.Rows)
	printKeyValue("Grid", fmt.Sprintf("%d columns × %d rows", grid.Columns, grid.Rows))
	printKeyValue("Frames", fmt.Sprint(len(frames)))
	printNewline()
	fmt.Fprintln(out, renderSequence(frames, grid.Columns, cellSize, opts.pixels))
	return nil
}

// sequenceGrid resolves the grid from explicit dimensions or the stack.
func (c *CLI) sequenceGrid(ctx context.Context, args []string, opts *sequenceOpts) (sheet.Grid, int, error) {
	cellSize := opts.stack.cellSize
	if cellSize == 0 {
		cellSize = pipeline.DefaultCellSize
	}
	if opts.columns != 0 || opts.rows != 0 {
		if opts.columns < 0 || opts.rows < 0 {
			return sheet.Grid{}, 0, errors.New(errors.ErrCodeInvalidInput, "columns and rows must not be negative")
		}
		return sheet.Grid{Columns: opts.columns, Rows: opts.rows}, cellSize, nil
	}

	runner := pipeline.NewRunner(nil, nil, nil, c.Logger)
	st, err := c.openStudio(ctx, runner, args, &opts.stack)
	if err != nil {
		return sheet.Grid{}, 0, err
	}
	defer st.Close()

	cellSize = st.Config().CellSize
	grid, ok := st.Grid()
	if !ok {
		return sheet.Grid{}, 0, errors.New(errors.ErrCodeInvalidInput, "no decodable layers to derive a grid from")
	}
	return grid, cellSize, nil
}

// renderSequence lays frames out one sheet row per line.
func renderSequence(frames []sprite.Frame, columns, cellSize int, pixels bool) string {
	perRow := 2*columns - 1
	var b strings.Builder
	for i, f := range frames {
		if i > 0 && i%perRow == 0 {
			b.WriteByte('\n')
		} else if i > 0 {
			b.WriteString(StyleDim.Render(" → "))
		}
		x, y := f.X, f.Y
		if pixels {
			x, y = f.Pixels(cellSize)
		}
		label := fmt.Sprintf("%d,%d", x, y)
		if -f.X == columns-1 {
			label = lipgloss.NewStyle().Bold(true).Render(label)
		}
		b.WriteString(StyleNumber.Render(label))
	}
	return b.String()
}
