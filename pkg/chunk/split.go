package chunk

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/edgeprint/pkg/document"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/retry"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// Splitter extracts chunks from a document and uploads them.
type Splitter struct {
	Store  storage.Store
	Logger *log.Logger
	Policy retry.Policy // zero means retry.DefaultPolicy

	// Budget bounds one Split call. Zero means no limit.
	Budget time.Duration

	// Now reports the current time. Defaults to time.Now.
	Now func() time.Time
}

// Progress is the outcome of one Split call.
type Progress struct {
	// Chunks are the chunks written by this call, in index order.
	Chunks []Range `json:"chunks"`

	// Total is the number of chunks in the whole document.
	Total int `json:"total"`

	// NextStartPage is set when the budget ran out before every chunk was
	// written; pass it as resumeFrom to continue.
	NextStartPage *int `json:"next_start_page,omitempty"`
}

// Done reports whether every chunk has been written.
func (p *Progress) Done() bool {
	return p.NextStartPage == nil
}

// Split writes the chunks of doc starting at page resumeFrom to
// jobs/<jobID>/source/. It always writes at least one chunk, then stops
// early when the next chunk is not expected to finish inside the budget.
func (s *Splitter) Split(ctx context.Context, jobID string, doc []byte, size, resumeFrom int) (*Progress, error) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	logger := s.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	store := withRetry(s.Store, s.Policy, logger)
	began := now()

	pageCount, err := document.PageCount(doc)
	if err != nil {
		return nil, err
	}
	ranges, err := Plan(pageCount, size, resumeFrom)
	if err != nil {
		return nil, err
	}

	prog := &Progress{Total: Count(pageCount, size)}
	var slowest time.Duration

	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && s.Budget > 0 && now().Sub(began)+slowest > s.Budget {
			next := r.Start
			prog.NextStartPage = &next
			logger.Info("split budget reached", "job", jobID, "written", len(prog.Chunks), "next_page", next)
			break
		}

		t := now()
		data, err := document.ExtractRange(doc, r.Start, r.End)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "extract pages %d-%d", r.Start, r.End).WithChunk(r.Index)
		}
		if err := store.Upload(ctx, storage.SourceChunkPath(jobID, r.Index), data); err != nil {
			return nil, withChunk(err, r.Index)
		}
		slowest = max(slowest, now().Sub(t))
		prog.Chunks = append(prog.Chunks, r)
	}

	observability.Pipeline().OnSplitComplete(ctx, jobID, len(prog.Chunks), !prog.Done(), now().Sub(began), nil)
	logger.Debug("split chunks", "job", jobID, "written", len(prog.Chunks), "total", prog.Total)
	return prog, nil
}

// withRetry wraps store unless it already retries.
func withRetry(store storage.Store, p retry.Policy, logger *log.Logger) storage.Store {
	if _, ok := store.(*storage.Retrying); ok {
		return store
	}
	if p.Attempts == 0 {
		p = retry.DefaultPolicy
	}
	return storage.NewRetrying(store, p, logger)
}

// withChunk attaches a chunk index to a structured error.
func withChunk(err error, index int) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithChunk(index)
	}
	return errors.Wrap(errors.ErrCodeStorage, err, "chunk %d", index).WithChunk(index)
}
