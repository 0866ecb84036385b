package chunk

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/edgeprint/pkg/document"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/retry"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// DefaultParallel is the number of concurrent chunk downloads.
const DefaultParallel = 4

// Merger joins processed chunks into the final document.
type Merger struct {
	Store    storage.Store
	Logger   *log.Logger
	Policy   retry.Policy // zero means retry.DefaultPolicy
	Parallel int          // zero means DefaultParallel
}

// MergeRequest names the chunks to merge and where the result goes.
type MergeRequest struct {
	JobID string

	// Paths are the processed chunk paths in chunk-index order.
	Paths []string

	// Expected is the number of chunks the document was split into.
	Expected int

	// Output is where the merged document is uploaded. Empty skips upload.
	Output string

	// Cleanup are prefixes removed after a successful merge.
	Cleanup []string
}

// Merge downloads every chunk, concatenates them in the order given,
// uploads the result and removes the cleanup prefixes. A count mismatch
// fails before any download. Cleanup failures are logged, never returned.
func (m *Merger) Merge(ctx context.Context, req MergeRequest) ([]byte, error) {
	logger := m.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	began := time.Now()
	observability.Pipeline().OnMergeStart(ctx, req.JobID, len(req.Paths))

	data, err := m.merge(ctx, req, logger)
	observability.Pipeline().OnMergeComplete(ctx, req.JobID, len(req.Paths), time.Since(began), err)
	return data, err
}

func (m *Merger) merge(ctx context.Context, req MergeRequest, logger *log.Logger) ([]byte, error) {
	if req.Expected <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidChunkCount, "expected chunk count must be positive, got %d", req.Expected)
	}
	if len(req.Paths) != req.Expected {
		return nil, errors.New(errors.ErrCodeInvalidChunkCount,
			"got %d chunk paths, expected %d", len(req.Paths), req.Expected)
	}

	store := withRetry(m.Store, m.Policy, logger)
	parallel := m.Parallel
	if parallel <= 0 {
		parallel = DefaultParallel
	}

	parts := make([][]byte, len(req.Paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, p := range req.Paths {
		g.Go(func() error {
			data, err := store.Download(gctx, p)
			if err != nil {
				return withChunk(err, i)
			}
			parts[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := document.Merge(parts)
	if err != nil {
		return nil, err
	}

	if req.Output != "" {
		if err := store.Upload(ctx, req.Output, merged); err != nil {
			return nil, err
		}
	}

	for _, prefix := range req.Cleanup {
		if err := store.Remove(ctx, prefix); err != nil {
			logger.Warn("chunk cleanup failed", "job", req.JobID, "prefix", prefix, "error", err)
		}
	}

	logger.Info("merged chunks", "job", req.JobID, "chunks", len(parts), "bytes", len(merged))
	return merged, nil
}
