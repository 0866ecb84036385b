package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/edgeprint/pkg/document"
	"github.com/matzehuels/edgeprint/pkg/document/documenttest"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/retry"
	"github.com/matzehuels/edgeprint/pkg/slice"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// memCache is a concurrency-safe map cache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if ok {
		m.hits++
	}
	return d, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Close() error { return nil }

func (m *memCache) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}

func newTestRunner(store storage.Store) *Runner {
	r := NewRunner(store, nil, log.New(io.Discard))
	r.Options.Retry = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}
	return r
}

func testDesign() Design {
	return Design{
		TrimWidth:  6,
		TrimHeight: 9,
		Bleed:      layout.AddBleed,
		Edges: map[slice.Position][]byte{
			slice.Side: []byte("#336699"),
			slice.Top:  []byte("#aa3300"),
		},
	}
}

func sixByNine(t *testing.T, pages int) []byte {
	return documenttest.Make(t, pages, 432, 648)
}

func coverImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 60, 90))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []uint8{200, 40, 40, 255})
	}
	return img
}

func TestDesignValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Design)
		code   errors.Code
	}{
		{"valid", func(*Design) {}, ""},
		{"bad bleed", func(d *Design) { d.Bleed = "none" }, errors.ErrCodeInvalidBleedType},
		{"bad page type", func(d *Design) { d.PageType = "gloss" }, errors.ErrCodeInvalidPageType},
		{"bad mode", func(d *Design) { d.Mode = "tile" }, errors.ErrCodeInvalidScaleMode},
		{"zero width", func(d *Design) { d.TrimWidth = 0 }, errors.ErrCodeInvalidDimensions},
		{"negative pages", func(d *Design) { d.PageCount = -2 }, errors.ErrCodeInvalidPageCount},
		{"no edges", func(d *Design) { d.Edges = nil }, errors.ErrCodeInvalidEdgePosition},
		{"bad position", func(d *Design) { d.Edges["spine"] = []byte("#fff") }, errors.ErrCodeInvalidEdgePosition},
		{"empty source", func(d *Design) { d.Edges[slice.Bottom] = nil }, errors.ErrCodeInvalidImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDesign()
			tt.modify(&d)
			err := d.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestDesignNormalizesPositions(t *testing.T) {
	d := testDesign()
	d.Edges = map[slice.Position][]byte{"BOTTOM": []byte("#000"), " side ": []byte("#fff")}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	got := d.Positions()
	if len(got) != 2 || got[0] != slice.Side || got[1] != slice.Bottom {
		t.Errorf("Positions() = %v, want [side bottom]", got)
	}
	if d.Mode != "fill" || d.PageType != layout.PageStandard {
		t.Errorf("defaults not applied: mode=%q page_type=%q", d.Mode, d.PageType)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.SetDefaults()
	if o.ChunkSize != DefaultChunkSize || o.TimeBudget != DefaultTimeBudget || o.Parallel != DefaultParallel {
		t.Errorf("defaults = %+v", o)
	}
	if o.Retry.Attempts != retry.DefaultAttempts {
		t.Errorf("Retry.Attempts = %d", o.Retry.Attempts)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	o.ChunkSize = -1
	if err := o.Validate(); !errors.Is(err, errors.ErrCodeInvalidChunkCount) {
		t.Errorf("Validate(chunk -1) = %v", err)
	}
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := newTestRunner(store)

	res, err := r.Process(ctx, testDesign(), sixByNine(t, 5))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Stats.Pages != 5 || res.Stats.Chunks != 5 {
		t.Errorf("stats = %+v, want 5 pages in 5 chunks", res.Stats)
	}

	info, err := document.Inspect(res.Data)
	if err != nil {
		t.Fatalf("Inspect(final): %v", err)
	}
	if info.PageCount != 5 {
		t.Errorf("final pages = %d, want 5", info.PageCount)
	}
	if info.WidthPoints != 450 || info.HeightPoints != 684 {
		t.Errorf("final size = %vx%v, want 450x684", info.WidthPoints, info.HeightPoints)
	}

	for _, prefix := range []string{
		storage.SourcePrefix(res.JobID),
		storage.ProcessedPrefix(res.JobID),
		storage.EdgePrefix(res.JobID),
	} {
		if left, _ := store.List(ctx, prefix); len(left) != 0 {
			t.Errorf("%s not cleaned up: %v", prefix, left)
		}
	}

	job, err := r.Job(ctx, res.JobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if !job.Merged || !job.SplitDone() || job.Split != 5 {
		t.Errorf("job = %+v", job)
	}
}

func TestStepwiseJob(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := newTestRunner(store)
	r.Options.TimeBudget = time.Nanosecond // one chunk per split pass
	r.NewID = func() string { return "job-1" }

	job, err := r.Start(ctx, testDesign(), sixByNine(t, 3))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.ID != "job-1" || job.Split != 1 || job.SplitDone() {
		t.Fatalf("after Start: %+v", job)
	}

	if _, err := r.Finish(ctx, job.ID); !errors.Is(err, errors.ErrCodeInvalidChunkCount) {
		t.Errorf("Finish before split done = %v, want INVALID_CHUNK_COUNT", err)
	}

	passes := 1
	for !job.SplitDone() {
		if job, err = r.Resume(ctx, job.ID); err != nil {
			t.Fatalf("Resume: %v", err)
		}
		passes++
	}
	if passes != 3 {
		t.Errorf("split passes = %d, want 3", passes)
	}

	// Resume after completion is a no-op.
	if again, err := r.Resume(ctx, job.ID); err != nil || again.Split != 3 {
		t.Errorf("Resume(done) = %+v, %v", again, err)
	}

	// Chunks may run in any order, and re-running one is harmless.
	for _, i := range []int{2, 0, 1, 1} {
		res, err := r.ProcessChunk(ctx, job.ID, i)
		if err != nil {
			t.Fatalf("ProcessChunk(%d): %v", i, err)
		}
		if len(res.Pages) != 1 || res.Pages[0].Page != i {
			t.Errorf("chunk %d planned pages %+v", i, res.Pages)
		}
	}

	final, err := r.Finish(ctx, job.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	n, err := document.PageCount(final)
	if err != nil || n != 3 {
		t.Errorf("final pages = %d, %v", n, err)
	}

	again, err := r.Finish(ctx, job.ID)
	if err != nil || !bytes.Equal(again, final) {
		t.Errorf("second Finish returned different output: %v", err)
	}
}

func TestFinishMissingChunk(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(storage.NewMemoryStore())

	job, err := r.Start(ctx, testDesign(), sixByNine(t, 2))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.ProcessChunk(ctx, job.ID, 0); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if _, err := r.Finish(ctx, job.ID); !errors.Is(err, errors.ErrCodeInvalidChunkCount) {
		t.Errorf("Finish = %v, want INVALID_CHUNK_COUNT", err)
	}
}

func TestJobErrors(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(storage.NewMemoryStore())

	if _, err := r.Resume(ctx, "missing"); !errors.Is(err, errors.ErrCodeJobNotFound) {
		t.Errorf("Resume(missing) = %v, want JOB_NOT_FOUND", err)
	}
	if _, err := r.Job(ctx, "../etc"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Job(../etc) = %v, want INVALID_INPUT", err)
	}

	d := testDesign()
	d.PageCount = 7
	if _, err := r.Start(ctx, d, sixByNine(t, 2)); !errors.Is(err, errors.ErrCodeInvalidPageCount) {
		t.Errorf("Start(page mismatch) = %v, want INVALID_PAGE_COUNT", err)
	}

	if _, err := r.Start(ctx, testDesign(), []byte("not a pdf")); !errors.Is(err, errors.ErrCodeInvalidDocument) {
		t.Errorf("Start(garbage) = %v, want INVALID_DOCUMENT", err)
	}

	job, err := r.Start(ctx, testDesign(), sixByNine(t, 2))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = r.ProcessChunk(ctx, job.ID, 5)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ProcessChunk(5) = %v, want INVALID_INPUT", err)
	}
}

func TestStartRetriesUploads(t *testing.T) {
	store := storage.NewMemoryStore()
	store.FailNext(storage.OpUpload, 2)
	r := newTestRunner(store)

	if _, err := r.Start(context.Background(), testDesign(), sixByNine(t, 1)); err != nil {
		t.Fatalf("Start with transient failures: %v", err)
	}
}

func TestPrepareSlicesDegrades(t *testing.T) {
	r := newTestRunner(storage.NewMemoryStore())
	d := testDesign()
	d.Edges[slice.Side] = []byte("definitely not an image")
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	l, err := d.Layout(10)
	if err != nil {
		t.Fatal(err)
	}

	sets, err := r.PrepareSlices(context.Background(), &d, l)
	if err != nil {
		t.Fatalf("PrepareSlices: %v", err)
	}
	if s, ok := sets[slice.Side]; !ok || s != nil {
		t.Errorf("side = %v, %v; want present and nil", s, ok)
	}
	top := sets[slice.Top]
	if top == nil || top.Len() != 5 {
		t.Fatalf("top set = %v, want 5 slices", top)
	}

	// The only usable position has nothing to mitre against.
	raw, _ := top.Slice(0, false)
	masked, _ := top.Slice(0, true)
	if raw != masked {
		t.Error("top slices masked despite no adjoining position")
	}
}

func TestPrepareSlicesCached(t *testing.T) {
	c := newMemCache()
	r := newTestRunner(storage.NewMemoryStore())
	r.Cache = c

	d := testDesign()
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	l, _ := d.Layout(4)

	first, err := r.PrepareSlices(context.Background(), &d, l)
	if err != nil {
		t.Fatal(err)
	}
	if c.Hits() != 0 {
		t.Errorf("hits after first call = %d", c.Hits())
	}
	second, err := r.PrepareSlices(context.Background(), &d, l)
	if err != nil {
		t.Fatal(err)
	}
	if c.Hits() != 2 {
		t.Errorf("hits after second call = %d, want 2", c.Hits())
	}
	if first[slice.Side].Average != second[slice.Side].Average {
		t.Error("cached set differs from generated set")
	}
}

func TestRenderMockup(t *testing.T) {
	c := newMemCache()
	r := newTestRunner(storage.NewMemoryStore())
	r.Cache = c

	var cover bytes.Buffer
	if err := png.Encode(&cover, coverImage()); err != nil {
		t.Fatal(err)
	}
	req := MockupRequest{
		Cover:      cover.Bytes(),
		Edge:       []byte("#336699"),
		TrimWidth:  6,
		TrimHeight: 9,
		PageCount:  300,
	}
	data, err := r.RenderMockup(context.Background(), req)
	if err != nil {
		t.Fatalf("RenderMockup: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() == 0 {
		t.Error("empty mockup")
	}

	if _, err := r.RenderMockup(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if c.Hits() != 1 {
		t.Errorf("hits = %d, want 1", c.Hits())
	}

	req.PageCount = 0
	if _, err := r.RenderMockup(context.Background(), req); !errors.Is(err, errors.ErrCodeInvalidPageCount) {
		t.Errorf("RenderMockup(0 pages) = %v", err)
	}
	req.PageCount = 10
	req.Cover = []byte("junk")
	if _, err := r.RenderMockup(context.Background(), req); !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Errorf("RenderMockup(junk cover) = %v", err)
	}
}
