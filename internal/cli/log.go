// Package cli implements the spritestack command-line interface.
//
// The CLI composites sprite-sheet layers given as --layer flags or a
// spritestack.toml project, exports the result, previews the animation in
// the terminal and serves the HTTP API. It is built using cobra and logs via
// charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - export: Composite the visible layers and write the sheet
//   - preview: Play the cell animation in the terminal
//   - layers: List layers with their size and dominant color
//   - sequence: Print the ping-pong frame sequence for a grid
//   - serve: Run the HTTP API
//   - cache: Manage the export cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger on w with short wall-clock timestamps
// ("14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command step. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with the elapsed time appended as the
// "took" field, followed by keyvals:
//
//	14:32:01.45 INFO Exported knight.png took=12ms layers=3
func (p *progress) done(msg string, keyvals ...any) {
	kv := append([]any{"took", time.Since(p.start).Round(time.Millisecond)}, keyvals...)
	p.logger.Info(msg, kv...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger set by withLogger, or log.Default()
// when commands run outside the root command (tests, direct calls).
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
