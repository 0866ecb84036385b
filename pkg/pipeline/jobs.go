package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/edgeprint/pkg/chunk"
	"github.com/matzehuels/edgeprint/pkg/composite"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/slice"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// Job returns the manifest of job id.
func (r *Runner) Job(ctx context.Context, id string) (*Job, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	store, err := r.store(opts)
	if err != nil {
		return nil, err
	}
	return loadJob(ctx, store, id)
}

// Start validates d against pdf, persists the job inputs and runs the first
// split pass. The returned job reports whether splitting must be resumed.
func (r *Runner) Start(ctx context.Context, d Design, pdf []byte) (*Job, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	info, err := r.Analyze(ctx, pdf)
	if err != nil {
		return nil, err
	}
	if d.PageCount != 0 && d.PageCount != info.PageCount {
		return nil, errors.New(errors.ErrCodeInvalidPageCount,
			"design has %d pages but the document has %d", d.PageCount, info.PageCount)
	}
	d.PageCount = info.PageCount
	if _, err := d.Layout(info.PageCount); err != nil {
		return nil, err
	}

	store, err := r.store(opts)
	if err != nil {
		return nil, err
	}

	first := 0
	job := &Job{
		ID:            r.newID(),
		CreatedAt:     time.Now().UTC(),
		Design:        d.withoutEdges(),
		Positions:     d.Positions(),
		PageCount:     info.PageCount,
		ChunkSize:     opts.ChunkSize,
		Chunks:        chunk.Count(info.PageCount, opts.ChunkSize),
		NextStartPage: &first,
	}

	if err := store.Upload(ctx, storage.OriginalPath(job.ID), pdf); err != nil {
		return nil, err
	}
	for _, pos := range job.Positions {
		if err := store.Upload(ctx, storage.EdgePath(job.ID, string(pos)), d.Edges[pos]); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "store edge source").WithEdge(string(pos))
		}
	}
	if err := saveJob(ctx, store, job); err != nil {
		return nil, err
	}

	r.logger().Info("started job",
		"job", job.ID,
		"pages", job.PageCount,
		"chunks", job.Chunks,
		"edges", job.Positions)

	return r.split(ctx, store, opts, job, pdf)
}

// Resume continues splitting job id. It is a no-op once splitting is done.
func (r *Runner) Resume(ctx context.Context, id string) (*Job, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	store, err := r.store(opts)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, store, id)
	if err != nil {
		return nil, err
	}
	if job.SplitDone() {
		return job, nil
	}
	pdf, err := store.Download(ctx, storage.OriginalPath(id))
	if err != nil {
		return nil, err
	}
	return r.split(ctx, store, opts, job, pdf)
}

func (r *Runner) split(ctx context.Context, store storage.Store, opts Options, job *Job, pdf []byte) (*Job, error) {
	sp := &chunk.Splitter{
		Store:  store,
		Logger: r.logger(),
		Policy: opts.Retry,
		Budget: opts.TimeBudget,
	}
	prog, err := sp.Split(ctx, job.ID, pdf, job.ChunkSize, *job.NextStartPage)
	if err != nil {
		return nil, err
	}
	job.Split += len(prog.Chunks)
	job.NextStartPage = prog.NextStartPage
	if err := saveJob(ctx, store, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ProcessChunk composites source chunk index of job id and uploads the
// result. Re-running it overwrites the same processed chunk.
func (r *Runner) ProcessChunk(ctx context.Context, id string, index int) (*composite.Result, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	store, err := r.store(opts)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, store, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= job.Chunks {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"chunk index %d out of range [0, %d)", index, job.Chunks).WithChunk(index)
	}

	d, l, err := r.jobDesign(ctx, store, job)
	if err != nil {
		return nil, err
	}
	sets, err := r.PrepareSlices(ctx, d, l)
	if err != nil {
		return nil, err
	}
	return r.processChunk(ctx, store, opts, job, l, sets, index)
}

func (r *Runner) processChunk(ctx context.Context, store storage.Store, opts Options, job *Job, l layout.Result,
	sets map[slice.Position]*slice.Set, index int) (*composite.Result, error) {
	data, err := store.Download(ctx, storage.SourceChunkPath(job.ID, index))
	if err != nil {
		return nil, wrapChunk(err, index)
	}

	start := time.Now()
	ch := composite.Chunk{Index: index, StartPage: index * job.ChunkSize, Data: data}
	pages := min(job.ChunkSize, job.PageCount-ch.StartPage)
	observability.Pipeline().OnChunkStart(ctx, job.ID, index, pages)

	res, err := composite.Composite(ctx, ch, l, sets, composite.Options{
		PaperColor: opts.PaperColor,
		Logger:     r.logger(),
	})
	if err == nil {
		err = store.Upload(ctx, storage.ProcessedChunkPath(job.ID, index), res.Data)
	}
	observability.Pipeline().OnChunkComplete(ctx, job.ID, index, time.Since(start), err)
	if err != nil {
		return nil, wrapChunk(err, index)
	}

	r.logger().Info("composited chunk",
		"job", job.ID,
		"chunk", index,
		"pages", len(res.Pages),
		"duration", time.Since(start))
	return res, nil
}

// jobDesign rebuilds the design of job from its stored edge sources.
func (r *Runner) jobDesign(ctx context.Context, store storage.Store, job *Job) (*Design, layout.Result, error) {
	d := job.Design
	d.Edges = make(map[slice.Position][]byte, len(job.Positions))
	for _, pos := range job.Positions {
		data, err := store.Download(ctx, storage.EdgePath(job.ID, string(pos)))
		if err != nil {
			return nil, layout.Result{}, withEdge(err, pos)
		}
		d.Edges[pos] = data
	}
	l, err := d.Layout(job.PageCount)
	if err != nil {
		return nil, layout.Result{}, err
	}
	return &d, l, nil
}

// Finish merges the processed chunks of job id into the final document.
// Once merged, chunk artifacts are removed and later calls return the
// stored result.
func (r *Runner) Finish(ctx context.Context, id string) ([]byte, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	store, err := r.store(opts)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, store, id)
	if err != nil {
		return nil, err
	}
	if job.Merged {
		return store.Download(ctx, storage.FinalPath(id))
	}
	if !job.SplitDone() {
		return nil, errors.New(errors.ErrCodeInvalidChunkCount,
			"job %s has split %d of %d chunks", id, job.Split, job.Chunks)
	}

	paths, err := store.List(ctx, storage.ProcessedPrefix(id))
	if err != nil {
		return nil, err
	}
	m := &chunk.Merger{
		Store:    store,
		Logger:   r.logger(),
		Policy:   opts.Retry,
		Parallel: opts.Parallel,
	}
	data, err := m.Merge(ctx, chunk.MergeRequest{
		JobID:    id,
		Paths:    paths,
		Expected: job.Chunks,
		Output:   storage.FinalPath(id),
		Cleanup: []string{
			storage.SourcePrefix(id),
			storage.ProcessedPrefix(id),
			storage.EdgePrefix(id),
			storage.OriginalPath(id),
		},
	})
	if err != nil {
		return nil, err
	}

	job.Merged = true
	if err := saveJob(ctx, store, job); err != nil {
		return nil, err
	}
	return data, nil
}

// Process runs every step of a job in process and returns the final document.
func (r *Runner) Process(ctx context.Context, d Design, pdf []byte) (*Result, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	store, err := r.store(opts)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	splitStart := time.Now()
	job, err := r.Start(ctx, d, pdf)
	if err != nil {
		return nil, err
	}
	res.JobID = job.ID
	res.Stats.SplitPasses = 1
	for !job.SplitDone() {
		if job, err = r.Resume(ctx, job.ID); err != nil {
			return nil, err
		}
		res.Stats.SplitPasses++
	}
	res.Stats.SplitTime = time.Since(splitStart)
	res.Stats.Pages = job.PageCount
	res.Stats.Chunks = job.Chunks

	sliceStart := time.Now()
	design, l, err := r.jobDesign(ctx, store, job)
	if err != nil {
		return nil, err
	}
	sets, err := r.PrepareSlices(ctx, design, l)
	if err != nil {
		return nil, err
	}
	res.Stats.SliceTime = time.Since(sliceStart)

	compositeStart := time.Now()
	for i := range job.Chunks {
		if _, err := r.processChunk(ctx, store, opts, job, l, sets, i); err != nil {
			return nil, err
		}
	}
	res.Stats.CompositeTime = time.Since(compositeStart)

	mergeStart := time.Now()
	if res.Data, err = r.Finish(ctx, job.ID); err != nil {
		return nil, err
	}
	res.Stats.MergeTime = time.Since(mergeStart)

	r.logger().Info("processed document",
		"job", job.ID,
		"pages", res.Stats.Pages,
		"chunks", res.Stats.Chunks,
		"duration", time.Since(splitStart))
	return res, nil
}

// wrapChunk attaches a chunk index to a structured error.
func wrapChunk(err error, index int) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithChunk(index)
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "chunk %d", index).WithChunk(index)
}

// withEdge attaches an edge position to a structured error.
func withEdge(err error, pos slice.Position) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithEdge(string(pos))
	}
	return errors.Wrap(errors.ErrCodeStorage, err, "load edge source").WithEdge(string(pos))
}
