// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through the registered hooks; the default hooks do
// nothing. The CLI registers [LogHooks] under --verbose:
//
//	observability.UseLogger(logger)
//
// Libraries call hooks to emit events:
//
//	observability.Compose().OnCompositeStart(ctx, id, len(layers))
//	// ... decode and paint ...
//	observability.Compose().OnCompositeComplete(ctx, id, drawn, duration, stale)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Compose Hooks
// =============================================================================

// ComposeHooks receives events from the compositor.
type ComposeHooks interface {
	// OnCompositeStart fires when composite request id begins decoding.
	OnCompositeStart(ctx context.Context, id uint64, layers int)

	// OnDecodeFailure fires once per layer that could not be decoded.
	OnDecodeFailure(ctx context.Context, id uint64, layer string, err error)

	// OnCompositeComplete fires after the last layer has been painted.
	// stale is true when a newer request started before this one finished.
	OnCompositeComplete(ctx context.Context, id uint64, drawn int, duration time.Duration, stale bool)
}

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from the export pipeline.
type ExportHooks interface {
	// OnExport records a finished export.
	OnExport(ctx context.Context, format string, size int, cached bool, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response status and latency.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopComposeHooks is a no-op implementation of ComposeHooks.
type NoopComposeHooks struct{}

func (NoopComposeHooks) OnCompositeStart(context.Context, uint64, int)                         {}
func (NoopComposeHooks) OnDecodeFailure(context.Context, uint64, string, error)                {}
func (NoopComposeHooks) OnCompositeComplete(context.Context, uint64, int, time.Duration, bool) {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExport(context.Context, string, int, bool, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// slot holds one registered hook set. Loads never block; a nil pointer
// means the no-op default.
type slot[T any] struct {
	p    atomic.Pointer[T]
	noop T
}

func (s *slot[T]) get() T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return s.noop
}

func (s *slot[T]) set(h T) {
	if any(h) != nil {
		s.p.Store(&h)
	}
}

var (
	composeHooks = slot[ComposeHooks]{noop: NoopComposeHooks{}}
	exportHooks  = slot[ExportHooks]{noop: NoopExportHooks{}}
	cacheHooks   = slot[CacheHooks]{noop: NoopCacheHooks{}}
	httpHooks    = slot[HTTPHooks]{noop: NoopHTTPHooks{}}
)

// Set* register a hook set; nil is ignored.
func SetComposeHooks(h ComposeHooks) { composeHooks.set(h) }
func SetExportHooks(h ExportHooks)   { exportHooks.set(h) }
func SetCacheHooks(h CacheHooks)     { cacheHooks.set(h) }
func SetHTTPHooks(h HTTPHooks)       { httpHooks.set(h) }

func Compose() ComposeHooks { return composeHooks.get() }
func Export() ExportHooks   { return exportHooks.get() }
func Cache() CacheHooks     { return cacheHooks.get() }
func HTTP() HTTPHooks       { return httpHooks.get() }

// Reset restores all hooks to their no-op defaults.
func Reset() {
	composeHooks.p.Store(nil)
	exportHooks.p.Store(nil)
	cacheHooks.p.Store(nil)
	httpHooks.p.Store(nil)
}
