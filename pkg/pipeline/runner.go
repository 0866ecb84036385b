package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/edgeprint/pkg/cache"
	"github.com/matzehuels/edgeprint/pkg/document"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/mockup"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/slice"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// Runner executes pipeline steps against a store, with caching.
// Both CLI and API use this to avoid duplicating job logic.
//
// The Runner holds no job state; everything it needs between steps is
// read back from the store. Multiple goroutines can safely use the same
// Runner for different jobs.
type Runner struct {
	Store   storage.Store
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	Options Options

	// Templates resolves the mockup template. Nil uses the built-in template.
	Templates *mockup.TemplateSource

	// NewID generates job IDs. Defaults to random UUIDs.
	NewID func() string
}

// NewRunner creates a runner over store.
// If c is nil, a NullCache is used (caching disabled).
// If logger is nil, log.Default() is used.
func NewRunner(store storage.Store, c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:  store,
		Cache:  c,
		Keyer:  cache.NewDefaultKeyer(),
		Logger: logger,
	}
}

// Close releases the store and cache.
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// options returns the runner options with defaults applied.
func (r *Runner) options() (Options, error) {
	opts := r.Options
	opts.SetDefaults()
	return opts, opts.Validate()
}

func (r *Runner) keyer() cache.Keyer {
	if r.Keyer == nil {
		return cache.NewDefaultKeyer()
	}
	return r.Keyer
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// ttl returns the configured cache lifetime, or def when none is set.
func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.Options.CacheTTL > 0 {
		return r.Options.CacheTTL
	}
	return def
}

// store returns the runner's store wrapped with retries.
func (r *Runner) store(opts Options) (storage.Store, error) {
	if r.Store == nil {
		return nil, errors.New(errors.ErrCodeInternal, "runner has no store")
	}
	if s, ok := r.Store.(*storage.Retrying); ok {
		return s, nil
	}
	return storage.NewRetrying(r.Store, opts.Retry, r.logger()), nil
}

// Analyze inspects a document, caching the result by content hash.
func (r *Runner) Analyze(ctx context.Context, pdf []byte) (*document.Info, error) {
	key := r.keyer().InfoKey(cache.Hash(pdf))
	data, err := cache.Fetch(ctx, r.Cache, "info", key, r.ttl(cache.InfoTTL), func() ([]byte, error) {
		info, err := document.Inspect(pdf)
		if err != nil {
			return nil, err
		}
		return json.Marshal(info)
	})
	if err != nil {
		return nil, err
	}
	var info document.Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode document info")
	}
	return &info, nil
}

// PrepareSlices builds the slice set of every position in d. A source that
// cannot be decoded or sliced is a degraded failure: it is logged and its
// position maps to a nil set, which the compositor skips.
func (r *Runner) PrepareSlices(ctx context.Context, d *Design, l layout.Result) (map[slice.Position]*slice.Set, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	logger := r.logger()

	sets := make(map[slice.Position]*slice.Set, len(d.Edges))
	sources := make(map[slice.Position]slice.Source, len(d.Edges))
	var active []slice.Position
	for _, pos := range d.Positions() {
		src, err := slice.Parse(d.Edges[pos])
		if err != nil {
			logger.Warn("edge source unusable", "edge", pos, "error", err)
			observability.Pipeline().OnSliceDegraded(ctx, string(pos), err)
			sets[pos] = nil
			continue
		}
		sources[pos] = src
		active = append(active, pos)
	}

	results := make([]*slice.Set, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, pos := range active {
		req := slice.Request{
			Position:       pos,
			LeafCount:      l.LeafCount,
			Mode:           d.Mode,
			Strip:          stripFor(l, pos),
			PixelsPerPoint: opts.PixelsPerPoint,
			Corners:        slice.CornersFor(pos, active),
		}
		g.Go(func() error {
			set, err := r.sliceSet(gctx, d.Edges[pos], sources[pos], req)
			if errors.IsValidation(err) && !errors.Is(err, errors.ErrCodeInvalidImage) {
				return err
			}
			if err != nil {
				logger.Warn("edge slices unavailable", "edge", pos, "error", err)
				observability.Pipeline().OnSliceDegraded(gctx, string(pos), err)
				return nil
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, pos := range active {
		sets[pos] = results[i]
	}
	return sets, nil
}

// sliceSet generates one slice set through the cache.
func (r *Runner) sliceSet(ctx context.Context, raw []byte, src slice.Source, req slice.Request) (*slice.Set, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	key := r.keyer().SliceKey(cache.Hash(raw), cache.SliceKeyOpts{
		Position:       string(req.Position),
		LeafCount:      req.LeafCount,
		Mode:           string(req.Mode),
		StripWidth:     req.Strip.Width,
		StripHeight:    req.Strip.Height,
		PixelsPerPoint: req.PixelsPerPoint,
		Corners:        fmt.Sprintf("%t/%t/%t", req.Corners.Top, req.Corners.Bottom, req.Corners.Side),
	})

	var generated *slice.Set
	data, err := cache.Fetch(ctx, r.Cache, "slice", key, r.ttl(cache.SliceTTL), func() ([]byte, error) {
		set, err := slice.Generate(src, req)
		if err != nil {
			return nil, err
		}
		generated = set
		return set.MarshalBinary()
	})
	if err != nil {
		return nil, err
	}
	if generated != nil {
		return generated, nil
	}
	set, err := slice.UnmarshalSet(data)
	if err != nil {
		r.logger().Debug("cached slice set unreadable, regenerating", "edge", req.Position, "error", err)
		return slice.Generate(src, req)
	}
	return set, nil
}

// stripFor returns the strip size of pos.
func stripFor(l layout.Result, pos slice.Position) layout.Size {
	if pos.Horizontal() {
		return l.HeadStrip()
	}
	return l.SideStrip()
}
