// Package document reads, splits and merges PDF documents.
//
// All functions take and return whole documents as bytes; chunks are small
// by construction, and byte slices are what the blob store persists.
//
// Documents written by this package never use object streams or
// cross-reference streams, so every output can be re-imported as page
// templates by the compositor.
package document

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
)

// PageSize is a page's media box size in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info describes a document.
type Info struct {
	PageCount int        `json:"page_count"`
	Pages     []PageSize `json:"pages,omitempty"`

	// Dimensions of the first page.
	WidthInches  float64 `json:"width_inches"`
	HeightInches float64 `json:"height_inches"`
	WidthPoints  float64 `json:"width_points"`
	HeightPoints float64 `json:"height_points"`
}

// Uniform reports whether every page has the first page's size, within tol points.
func (i *Info) Uniform(tol float64) bool {
	for _, p := range i.Pages {
		if math.Abs(p.Width-i.WidthPoints) > tol || math.Abs(p.Height-i.HeightPoints) > tol {
			return false
		}
	}
	return true
}

// config returns the pdfcpu configuration used for every operation.
func config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

func invalid(err error, format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeInvalidDocument, err, format, args...)
}

// Inspect reads the page count and page sizes.
func Inspect(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "document is empty")
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), config())
	if err != nil {
		return nil, invalid(err, "read document")
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, invalid(err, "count pages")
	}
	if ctx.PageCount == 0 {
		return nil, errors.New(errors.ErrCodeInvalidPageCount, "document has no pages")
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, invalid(err, "read page sizes")
	}

	info := &Info{PageCount: ctx.PageCount, Pages: make([]PageSize, len(dims))}
	for i, d := range dims {
		info.Pages[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	if len(info.Pages) > 0 {
		first := info.Pages[0]
		info.WidthPoints, info.HeightPoints = first.Width, first.Height
		info.WidthInches = round3(first.Width / layout.PointsPerInch)
		info.HeightInches = round3(first.Height / layout.PointsPerInch)
	}
	return info, nil
}

// PageCount returns the number of pages.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), config())
	if err != nil {
		return 0, invalid(err, "count pages")
	}
	return n, nil
}

// ExtractRange returns a new document holding pages start..end, zero-indexed
// and inclusive.
func ExtractRange(data []byte, start, end int) ([]byte, error) {
	if start < 0 || end < start {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid page range %d-%d", start, end)
	}
	var out bytes.Buffer
	// pdfcpu page selections are 1-based.
	sel := []string{pageSpan(start+1, end+1)}
	if err := api.Trim(bytes.NewReader(data), &out, sel, config()); err != nil {
		return nil, invalid(err, "extract pages %d-%d", start, end)
	}
	return out.Bytes(), nil
}

// Merge concatenates documents in order. A single part is returned as is.
func Merge(parts [][]byte) ([]byte, error) {
	switch len(parts) {
	case 0:
		return nil, errors.New(errors.ErrCodeInvalidChunkCount, "nothing to merge")
	case 1:
		return parts[0], nil
	}

	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, config()); err != nil {
		return nil, invalid(err, "merge %d documents", len(parts))
	}
	return out.Bytes(), nil
}

// Normalize rewrites data with classic cross-reference tables.
func Normalize(data []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, config()); err != nil {
		return nil, invalid(err, "normalize document")
	}
	return out.Bytes(), nil
}

func pageSpan(from, to int) string {
	if from == to {
		return strconv.Itoa(from)
	}
	return fmt.Sprintf("%d-%d", from, to)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
