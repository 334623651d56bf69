package cli

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spritestack/pkg/artifact"
	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/sprite"
	"github.com/matzehuels/spritestack/pkg/studio"
)

// previewOpts holds the command-line flags for the preview command.
type previewOpts struct {
	stack  stackFlags
	cache  cacheFlags
	scale  int
	outDir string
}

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var opts previewOpts

	cmd := &cobra.Command{
		Use:   "preview [project.toml]",
		Short: "Play the sprite animation in the terminal",
		Long: `Play the composited sprite cell by cell in the terminal.

Keys:
  r      randomize the visible layers
  + / -  change the frame rate
  ] / [  change the magnification
  e      export the current stack
  q      quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd.Context(), args, &opts)
		},
	}

	opts.stack.register(cmd)
	opts.cache.register(cmd)
	cmd.Flags().IntVar(&opts.scale, "scale", 0, "terminal magnification (default 3)")
	cmd.Flags().StringVarP(&opts.outDir, "output", "o", ".", "directory for exports made with e")

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, args []string, opts *previewOpts) error {
	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	st, err := c.openStudio(ctx, runner, args, &opts.stack)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.scale != 0 {
		if err := st.SetScale(opts.scale); err != nil {
			return err
		}
	}
	if _, ok := st.Grid(); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "no decodable layers to preview")
	}

	store, err := artifact.NewDirStore(opts.outDir)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newPreviewModel(runCtx, st, store), tea.WithContext(runCtx), tea.WithAltScreen())
	go func() {
		_ = st.Run(runCtx, func(f sprite.Frame) { p.Send(frameMsg(f)) })
	}()

	_, err = p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// previewModel - Terminal animation
// =============================================================================

type (
	frameMsg     sprite.Frame
	refreshedMsg struct{ err error }
	exportedMsg  struct {
		loc    string
		cached bool
		err    error
	}
)

type previewModel struct {
	ctx    context.Context
	studio *studio.Studio
	store  artifact.Store
	status string
}

func newPreviewModel(ctx context.Context, st *studio.Studio, store artifact.Store) previewModel {
	return previewModel{ctx: ctx, studio: st, store: store}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case frameMsg:
		// The view reads the current cell from the studio.
	case refreshedMsg:
		if msg.err != nil {
			m.status = StyleWarning.Render(msg.err.Error())
		} else {
			m.status = fmt.Sprintf("%d layers visible", len(m.studio.Active()))
		}
	case exportedMsg:
		switch {
		case msg.err != nil:
			m.status = StyleWarning.Render("export failed: " + msg.err.Error())
		case msg.cached:
			m.status = "exported " + msg.loc + " " + styleCached.Render(iconCached)
		default:
			m.status = "exported " + msg.loc
		}
	}
	return m, nil
}

func (m previewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cfg := m.studio.Config()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		m.studio.Randomize()
		return m, m.refresh()
	case "+", "=":
		m.setStatus(m.studio.SetFPS(cfg.FPS + 1))
	case "-", "_":
		m.setStatus(m.studio.SetFPS(cfg.FPS - 1))
	case "]":
		m.setStatus(m.studio.SetScale(cfg.Scale + 1))
	case "[":
		m.setStatus(m.studio.SetScale(cfg.Scale - 1))
	case "e":
		m.status = "exporting..."
		return m, m.export()
	}
	return m, nil
}

func (m *previewModel) setStatus(err error) {
	if err != nil {
		m.status = StyleWarning.Render(errors.UserMessage(err))
		return
	}
	m.status = ""
}

func (m previewModel) refresh() tea.Cmd {
	return func() tea.Msg {
		_, err := m.studio.Refresh(m.ctx)
		return refreshedMsg{err: err}
	}
}

func (m previewModel) export() tea.Cmd {
	return func() tea.Msg {
		res, err := m.studio.Export(m.ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		art := res.Artifact
		loc, err := m.store.Put(m.ctx, art, artifact.NewRecord(art, res.Key, sprite.Names(m.studio.Active())))
		return exportedMsg{loc: loc, cached: res.Cached, err: err}
	}
}

func (m previewModel) View() string {
	cfg := m.studio.Config()
	var b strings.Builder

	b.WriteString(StyleTitle.Render(cfg.Name))
	b.WriteString("\n\n")
	if cell := m.studio.CellImage(); cell != nil {
		b.WriteString(renderHalfBlocks(compose.Scale(cell, cfg.Scale)))
		b.WriteString("\n\n")
	}

	f := m.studio.Frame()
	col, row := f.Cell()
	frames := len(m.studio.Sequence())
	b.WriteString(StyleDim.Render(fmt.Sprintf("frame %d/%d  cell %d,%d  %d fps  ×%d",
		m.studio.FrameIndex()+1, frames, col, row, cfg.FPS, cfg.Scale)))
	b.WriteString("\n")
	b.WriteString(previewHelp)
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}
	return b.String()
}

var previewHelp = StyleDim.Render("r randomize  +/- fps  [/] scale  e export  q quit")

// =============================================================================
// Half-block rendering
// =============================================================================

var checker = [2]string{"#2b2b2b", "#3a3a3a"}

// renderHalfBlocks draws img with one "▀" per two vertical pixels: the
// foreground is the upper pixel and the background the lower one.
// Transparent pixels show a checkerboard.
func renderHalfBlocks(img image.Image) string {
	bounds := img.Bounds()
	var b strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		if y > bounds.Min.Y {
			b.WriteByte('\n')
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			top := pixelHex(img.At(x, y), (x+y)&1)
			bottom := checker[(x+y+1)&1]
			if y+1 < bounds.Max.Y {
				bottom = pixelHex(img.At(x, y+1), (x+y+1)&1)
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
	}
	return b.String()
}

// pixelHex returns the pixel color as "#rrggbb", or a checker shade for
// fully transparent pixels.
func pixelHex(c color.Color, parity int) string {
	col, ok := colorful.MakeColor(c)
	if !ok {
		return checker[parity&1]
	}
	return col.Clamped().Hex()
}
