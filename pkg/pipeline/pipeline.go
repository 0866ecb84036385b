// Package pipeline runs the edge decoration pipeline for edgeprint.
//
// This package ties the core packages together so that the CLI, the API
// server and workers share one implementation:
//
//  1. Design: validate the request and compute the layout
//  2. Slices: generate (or load cached) slice sets per edge position
//  3. Split: cut the document into chunks under a time budget
//  4. Composite: draw each chunk independently
//  5. Merge: join processed chunks into the final document
//
// Every step persists its output by path in a [storage.Store], and the job
// manifest is the only coordination state, so steps can run in separate
// processes and be retried safely.
//
// # Usage
//
// Run a whole job in process:
//
//	runner := pipeline.NewRunner(store, cache, logger)
//	res, err := runner.Process(ctx, design, pdf)
//
// Or drive the steps individually, as the API does:
//
//	job, err := runner.Start(ctx, design, pdf)
//	for !job.SplitDone() {
//	    job, err = runner.Resume(ctx, job.ID)
//	}
//	for i := range job.Chunks {
//	    _, err = runner.ProcessChunk(ctx, job.ID, i)
//	}
//	final, err := runner.Finish(ctx, job.ID)
package pipeline

import (
	"image/color"
	"time"

	"github.com/matzehuels/edgeprint/pkg/chunk"
	"github.com/matzehuels/edgeprint/pkg/composite"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/retry"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Worker
// =============================================================================

const (
	// DefaultChunkSize is the number of pages per chunk.
	DefaultChunkSize = chunk.DefaultSize

	// DefaultTimeBudget bounds one split call.
	DefaultTimeBudget = 50 * time.Second

	// DefaultParallel is the number of concurrent chunk downloads during merge.
	DefaultParallel = chunk.DefaultParallel
)

// =============================================================================
// Options - Runner Configuration
// =============================================================================

// Options tune the runner. The zero value is usable.
type Options struct {
	ChunkSize      int
	TimeBudget     time.Duration
	PixelsPerPoint float64
	Parallel       int
	Retry          retry.Policy
	PaperColor     color.NRGBA

	// CacheTTL overrides the per-artifact cache lifetimes when positive.
	CacheTTL time.Duration
}

// SetDefaults fills in zero fields.
func (o *Options) SetDefaults() {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.TimeBudget == 0 {
		o.TimeBudget = DefaultTimeBudget
	}
	if o.PixelsPerPoint == 0 {
		o.PixelsPerPoint = slice.DefaultPixelsPerPoint
	}
	if o.Parallel == 0 {
		o.Parallel = DefaultParallel
	}
	if o.Retry.Attempts == 0 {
		o.Retry = retry.DefaultPolicy
	}
	if o.PaperColor.A == 0 {
		o.PaperColor = composite.DefaultPaperColor
	}
}

// Validate checks options after SetDefaults.
func (o *Options) Validate() error {
	if o.ChunkSize < 1 {
		return errors.New(errors.ErrCodeInvalidChunkCount, "chunk size must be at least 1, got %d", o.ChunkSize)
	}
	if o.TimeBudget < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "time budget must not be negative, got %s", o.TimeBudget)
	}
	if err := errors.ValidatePositive("pixels per point", o.PixelsPerPoint); err != nil {
		return err
	}
	if o.Parallel < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "parallel downloads must be at least 1, got %d", o.Parallel)
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result is the outcome of [Runner.Process].
type Result struct {
	JobID string
	Data  []byte
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Pages         int
	Chunks        int
	SplitPasses   int
	SliceTime     time.Duration
	SplitTime     time.Duration
	CompositeTime time.Duration
	MergeTime     time.Duration
}
