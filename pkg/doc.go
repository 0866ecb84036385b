// Package pkg provides the core libraries for edgeprint.
//
// # Overview
//
// Edgeprint prints designs onto the page edges of a book. A design image is
// cut into one thin slice per leaf; every page of the print-ready PDF gets
// its leaf's slice drawn into a strip just past the trim, so that the
// stacked, trimmed pages reproduce the image along the fore-edge (and
// optionally the top and bottom edges).
//
// # Architecture
//
// The data flow through edgeprint:
//
//	Design (trim size, bleed, edge sources)
//	         ↓
//	    [layout] package (leaf count, page and strip sizes)
//	         ↓
//	    [slice] package (per-leaf slices, mitred masks)
//	         ↓
//	    [chunk] package (split the PDF into bounded chunks)
//	         ↓
//	    [composite] package (draw slices onto every page of a chunk)
//	         ↓
//	    [chunk] package (merge processed chunks in order)
//	         ↓
//	    final PDF
//
// [mockup] renders a 3D preview from a cover and an edge design, and
// [calibration] draws the template designers work against.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(storage.NewMemoryStore(), nil, logger)
//	res, err := runner.Process(ctx, pipeline.Design{
//	    TrimWidth:  6,
//	    TrimHeight: 9,
//	    Bleed:      layout.AddBleed,
//	    Edges:      map[slice.Position][]byte{slice.Side: sideImage},
//	}, pdf)
//
// # Main Packages
//
// ## Domain
//
// [layout] - Leaf math and every derived dimension in points.
//
// [scale] - Scaling modes shared by slicing and mockups.
//
// [slice] - Edge sources (images or hex colours), per-leaf slices, masks.
//
// [document] - PDF inspection, range extraction and merging via pdfcpu.
//
// [composite] - Per-page compositing with gofpdf, embed caching, placeholders.
//
// [chunk] - Chunk planning, resumable splitting, ordered merging.
//
// [mockup] - Marker detection, perspective warp, template loading.
//
// ## Infrastructure
//
// [storage] - Blob stores: file, memory, MongoDB GridFS, retrying decorator.
//
// [cache] - Artifact caches: null, file, Redis.
//
// [retry] - Bounded exponential backoff.
//
// [errors] - Structured error codes and failure categories.
//
// [observability] - Hooks for pipeline, storage, cache and HTTP events.
//
// [config] - TOML configuration.
//
// ## Orchestration
//
// [pipeline] - Jobs: validate, slice, split, composite, merge.
//
// [layout]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/layout
// [scale]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/scale
// [slice]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/slice
// [document]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/document
// [composite]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/composite
// [chunk]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/chunk
// [mockup]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/mockup
// [calibration]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/calibration
// [storage]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/storage
// [cache]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/cache
// [retry]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/retry
// [errors]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/observability
// [config]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/config
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/edgeprint/pkg/pipeline
package pkg
