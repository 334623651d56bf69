package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/pipeline"
)

// layersCommand creates the layers command.
func (c *CLI) layersCommand() *cobra.Command {
	var stack stackFlags

	cmd := &cobra.Command{
		Use:   "layers [project.toml]",
		Short: "List the layer stack in paint order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayers(cmd.Context(), args, &stack)
		},
	}
	stack.register(cmd)
	return cmd
}

func (c *CLI) runLayers(ctx context.Context, args []string, stack *stackFlags) error {
	runner := pipeline.NewRunner(nil, nil, nil, c.Logger)
	st, err := c.openStudio(ctx, runner, args, stack)
	if err != nil {
		return err
	}
	defer st.Close()

	infos := runner.Compositor.Inspect(ctx, st.Layers())
	if len(infos) == 0 {
		printInfo("No layers")
		return nil
	}
	fmt.Fprintln(out, layerTable(infos))

	if size, ok := st.SurfaceSize(); ok {
		printKeyValue("Sheet", fmt.Sprintf("%dx%d", size.X, size.Y))
	}
	if g, ok := st.Grid(); ok {
		printKeyValue("Grid", fmt.Sprintf("%d columns × %d rows", g.Columns, g.Rows))
		printKeyValue("Frames", strconv.Itoa(len(st.Sequence())))
	}
	return nil
}

// layerTable renders infos as a bordered table. Hidden layers are dimmed and
// each swatch cell is painted in its color.
func layerTable(infos []compose.LayerInfo) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, len(infos))
	for i, info := range infos {
		shown := statusSuccess.icon
		if !info.Show {
			shown = ""
		}
		size := "—"
		if info.Error == "" {
			size = fmt.Sprintf("%dx%d %s", info.Width, info.Height, info.Format)
		}
		swatch := info.Swatch
		if swatch == "" {
			swatch = "—"
		}
		rows[i] = []string{strconv.Itoa(i + 1), info.Name, info.Category, shown, size, swatch}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Layer", "Category", "Shown", "Size", "Color").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= len(infos) {
				return lipgloss.NewStyle()
			}
			info := infos[row]
			base := lipgloss.NewStyle()
			switch {
			case info.Error != "":
				base = base.Foreground(colorRed)
			case !info.Show:
				base = base.Foreground(colorDim)
			}
			if col == 5 && info.Swatch != "" {
				base = base.Foreground(lipgloss.Color(info.Swatch))
			}
			return base
		})
	return t.Render()
}
