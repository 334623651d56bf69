package observability

import (
	"context"
	"time"
)

// Logger is the subset of *log.Logger (charmbracelet/log) LogHooks needs.
type Logger interface {
	Debug(msg any, keyvals ...any)
}

// LogHooks writes compositor, export and cache events as debug lines.
type LogHooks struct {
	L Logger
}

// UseLogger registers LogHooks for compositor, export and cache events.
// HTTP requests are already logged by the server middleware.
func UseLogger(l Logger) {
	h := LogHooks{L: l}
	SetComposeHooks(h)
	SetExportHooks(h)
	SetCacheHooks(h)
}

func (h LogHooks) OnCompositeStart(_ context.Context, id uint64, layers int) {
	h.L.Debug("composite start", "request", id, "layers", layers)
}

func (h LogHooks) OnDecodeFailure(_ context.Context, id uint64, layer string, err error) {
	h.L.Debug("decode failed", "request", id, "layer", layer, "err", err)
}

func (h LogHooks) OnCompositeComplete(_ context.Context, id uint64, drawn int, d time.Duration, stale bool) {
	h.L.Debug("composite done", "request", id, "drawn", drawn, "took", d.Round(time.Microsecond), "stale", stale)
}

func (h LogHooks) OnExport(_ context.Context, format string, size int, cached bool, d time.Duration, err error) {
	if err != nil {
		h.L.Debug("export failed", "format", format, "err", err)
		return
	}
	h.L.Debug("export", "format", format, "bytes", size, "cached", cached, "took", d.Round(time.Microsecond))
}

func (h LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.L.Debug("cache hit", "kind", keyType)
}

func (h LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.L.Debug("cache miss", "kind", keyType)
}

func (h LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.L.Debug("cache set", "kind", keyType, "bytes", size)
}

var (
	_ ComposeHooks = LogHooks{}
	_ ExportHooks  = LogHooks{}
	_ CacheHooks   = LogHooks{}
)
