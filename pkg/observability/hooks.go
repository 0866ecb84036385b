// Package observability lets a host process watch the edgeprint pipeline
// without any library depending on a metrics or tracing backend.
//
// Libraries emit events through the registered hooks; the defaults do
// nothing. A host registers its own implementations once at startup, the
// CLI uses this to drive its chunk progress view:
//
//	observability.SetPipelineHooks(progressHooks{program})
//	defer observability.Reset()
//
// Emitters look hooks up at the call site:
//
//	observability.Pipeline().OnChunkStart(ctx, jobID, index, pages)
//	observability.Pipeline().OnChunkComplete(ctx, jobID, index, time.Since(start), err)
//
// Embed the matching Noop type to implement only some events.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives job lifecycle events.
type PipelineHooks interface {
	// OnSplitComplete fires after each split pass. partial is true when the
	// time budget stopped the pass before the last chunk.
	OnSplitComplete(ctx context.Context, jobID string, chunks int, partial bool, duration time.Duration, err error)
	OnChunkStart(ctx context.Context, jobID string, chunk, pages int)
	OnChunkComplete(ctx context.Context, jobID string, chunk int, duration time.Duration, err error)
	OnMergeStart(ctx context.Context, jobID string, chunks int)
	OnMergeComplete(ctx context.Context, jobID string, chunks int, duration time.Duration, err error)
	OnMockupComplete(ctx context.Context, width, height int, duration time.Duration, err error)
	// OnSliceDegraded fires when an edge position is drawn without its design.
	// err is nil when the slice set was simply missing.
	OnSliceDegraded(ctx context.Context, edge string, err error)
}

// StorageHooks receives blob store events. Download and upload report the
// final outcome after retries; OnRetry fires for every failed attempt that
// will be tried again.
type StorageHooks interface {
	OnDownload(ctx context.Context, path string, size int, duration time.Duration, err error)
	OnUpload(ctx context.Context, path string, size int, duration time.Duration, err error)
	OnRetry(ctx context.Context, op, path string, attempt int, err error)
}

// CacheHooks receives cache lookups keyed by artifact kind ("slice", "mockup", "info").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives outgoing request events, currently the mockup template fetch.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnSplitComplete(context.Context, string, int, bool, time.Duration, error) {}
func (NoopPipelineHooks) OnChunkStart(context.Context, string, int, int)                           {}
func (NoopPipelineHooks) OnChunkComplete(context.Context, string, int, time.Duration, error)       {}
func (NoopPipelineHooks) OnMergeStart(context.Context, string, int)                                {}
func (NoopPipelineHooks) OnMergeComplete(context.Context, string, int, time.Duration, error)       {}
func (NoopPipelineHooks) OnMockupComplete(context.Context, int, int, time.Duration, error)         {}
func (NoopPipelineHooks) OnSliceDegraded(context.Context, string, error)                           {}

type NoopStorageHooks struct{}

func (NoopStorageHooks) OnDownload(context.Context, string, int, time.Duration, error) {}
func (NoopStorageHooks) OnUpload(context.Context, string, int, time.Duration, error)   {}
func (NoopStorageHooks) OnRetry(context.Context, string, string, int, error)           {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// slot holds one registered hook set.
type slot[T any] struct {
	mu  sync.RWMutex
	cur T
	def T
}

func newSlot[T any](def T) *slot[T] { return &slot[T]{cur: def, def: def} }

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *slot[T]) set(h T, isNil bool) {
	if isNil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = s.def
	s.mu.Unlock()
}

var (
	pipelineSlot = newSlot[PipelineHooks](NoopPipelineHooks{})
	storageSlot  = newSlot[StorageHooks](NoopStorageHooks{})
	cacheSlot    = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot     = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetPipelineHooks registers h. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.set(h, h == nil) }

// SetStorageHooks registers h. A nil h is ignored.
func SetStorageHooks(h StorageHooks) { storageSlot.set(h, h == nil) }

// SetCacheHooks registers h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h, h == nil) }

// SetHTTPHooks registers h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h, h == nil) }

func Pipeline() PipelineHooks { return pipelineSlot.get() }
func Storage() StorageHooks   { return storageSlot.get() }
func Cache() CacheHooks       { return cacheSlot.get() }
func HTTP() HTTPHooks         { return httpSlot.get() }

// Reset restores every hook set to its no-op default.
func Reset() {
	pipelineSlot.reset()
	storageSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
