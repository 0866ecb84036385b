// Package composite draws edge slices onto document pages.
//
// Each source page is imported as a template, placed on a canvas sized by
// the layout (shifted by the bleed offset when bleed is added), and overlaid
// with the slice for its leaf at every active edge position. Left pages
// carry the horizontal mirror of the slice, drawn against the left border.
//
// Output bytes depend only on the inputs, so compositing a chunk twice
// yields the same document.
//
// Missing slices never fail a page: a leaf beyond a set's length gets a flat
// placeholder in the set's average colour, and a position whose set failed
// to generate is skipped with a warning.
package composite

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"

	"github.com/matzehuels/edgeprint/pkg/document"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// DefaultPaperColor is the placeholder colour when a set has no average.
var DefaultPaperColor = color.NRGBA{R: 245, G: 240, B: 230, A: 255}

// epoch is the fixed creation and modification date of every output.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Chunk is a contiguous run of source pages.
type Chunk struct {
	Index     int
	StartPage int // global zero-indexed page of the first page in Data
	Data      []byte
}

// Options configures Composite.
type Options struct {
	PaperColor color.NRGBA
	Logger     *log.Logger
}

// Result is a composited chunk.
type Result struct {
	Data  []byte
	Pages []PagePlan

	// Embeds is the number of distinct slice images in Data.
	Embeds int
}

// Composite draws every page of chunk onto a new document.
//
// Positions present in sets with a nil set are skipped for every page.
func Composite(ctx context.Context, chunk Chunk, l layout.Result, sets map[slice.Position]*slice.Set, opts Options) (*Result, error) {
	if opts.PaperColor.A == 0 {
		opts.PaperColor = DefaultPaperColor
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	logger := opts.Logger.With("chunk", chunk.Index)

	for _, pos := range slice.Positions {
		if set, ok := sets[pos]; ok && set == nil {
			logger.Warn("edge design unavailable, processing without it", "edge", pos)
			observability.Pipeline().OnSliceDegraded(ctx, string(pos), nil)
		}
	}

	data, err := document.Normalize(chunk.Data)
	if err != nil {
		return nil, wrapChunk(err, chunk.Index)
	}
	n, err := document.PageCount(data)
	if err != nil {
		return nil, wrapChunk(err, chunk.Index)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: l.PageWidth, Ht: l.PageHeight},
	})
	pdf.SetCreationDate(epoch)
	pdf.SetModificationDate(epoch)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	res := &Result{Pages: make([]PagePlan, 0, n)}
	embeds := NewEmbedCache(pdf)
	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))

	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := chunk.StartPage + i

		tpl, size, err := importPage(imp, pdf, &rs, i+1)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "import page %d", page).WithChunk(chunk.Index)
		}

		plan, err := PlanPage(page, size, l, sets, opts.PaperColor)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "plan page %d", page).WithChunk(chunk.Index)
		}

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: plan.Width, Ht: plan.Height})
		imp.UseImportedTemplate(pdf, tpl, plan.ContentX, plan.ContentY, plan.ContentW, plan.ContentH)

		for _, p := range plan.Placements {
			if err := draw(pdf, embeds, sets[p.Position], p); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "draw page %d", page).
					WithChunk(chunk.Index).WithLeaf(p.Leaf).WithEdge(string(p.Position))
			}
			if p.Placeholder {
				logger.Warn("slice missing, drew placeholder", "page", page, "leaf", p.Leaf, "edge", p.Position)
			}
		}
		res.Pages = append(res.Pages, plan)
	}

	if err := pdf.Error(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "compose chunk").WithChunk(chunk.Index)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write chunk").WithChunk(chunk.Index)
	}
	if res.Data, err = document.Canonical(buf.Bytes()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write chunk").WithChunk(chunk.Index)
	}
	res.Embeds = embeds.Encodes()

	logger.Debug("composited chunk", "pages", n, "embeds", res.Embeds, "bytes", len(res.Data))
	return res, nil
}

// draw renders one placement.
func draw(pdf *gofpdf.Fpdf, embeds *EmbedCache, set *slice.Set, p Placement) error {
	if p.Placeholder {
		pdf.SetFillColor(int(p.Color.R), int(p.Color.G), int(p.Color.B))
		pdf.Rect(p.X, p.Y, p.W, p.H, "F")
		return pdf.Error()
	}

	img, _ := set.Slice(p.Leaf, p.Masked)
	name, err := embeds.Image(EmbedKey{Position: p.Position, Leaf: p.Leaf, Mirrored: p.Mirrored, Masked: p.Masked}, img)
	if err != nil {
		return err
	}
	pdf.ImageOptions(name, p.X, p.Y, p.W, p.H, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return pdf.Error()
}

// importPage imports pageno (one-based) as a template and returns its media
// box size. The importer panics on malformed input, so that is recovered.
func importPage(imp *gofpdi.Importer, pdf *gofpdf.Fpdf, rs *io.ReadSeeker, pageno int) (tpl int, size document.PageSize, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	tpl = imp.ImportPageFromStream(pdf, rs, pageno, "/MediaBox")
	if box, ok := imp.GetPageSizes()[pageno]["/MediaBox"]; ok {
		size = document.PageSize{Width: box["w"], Height: box["h"]}
	}
	if size.Width <= 0 || size.Height <= 0 {
		return 0, size, fmt.Errorf("page %d has no media box", pageno)
	}
	return tpl, size, nil
}

func wrapChunk(err error, index int) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithChunk(index)
	}
	return errors.Wrap(errors.ErrCodeInvalidDocument, err, "read chunk").WithChunk(index)
}
