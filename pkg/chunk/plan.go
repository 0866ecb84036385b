// Package chunk splits documents into bounded page ranges and merges the
// processed ranges back together.
//
// Chunk identity is explicit: chunk i always covers pages
// [i*size, min((i+1)*size, pageCount)) and is stored under a path derived
// from i. The protocol is therefore correct whether chunks are processed
// sequentially, in parallel, or across several resumed invocations.
package chunk

import (
	"github.com/matzehuels/edgeprint/pkg/errors"
)

// DefaultSize is the default number of pages per chunk.
const DefaultSize = 1

// Range is a contiguous run of pages, zero-indexed and inclusive.
type Range struct {
	Index int `json:"index"`
	Start int `json:"start_page"`
	End   int `json:"end_page"`
}

// PageCount returns the number of pages in the range.
func (r Range) PageCount() int {
	return r.End - r.Start + 1
}

// Count returns the number of chunks needed for pageCount pages.
func Count(pageCount, size int) int {
	if pageCount <= 0 || size <= 0 {
		return 0
	}
	return (pageCount + size - 1) / size
}

// Plan returns the chunks covering pages resumeFrom..pageCount-1.
// resumeFrom must be zero or a chunk boundary returned as a cursor.
func Plan(pageCount, size, resumeFrom int) ([]Range, error) {
	if err := errors.ValidatePageCount(pageCount); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidChunkCount, "chunk size must be positive, got %d", size)
	}
	if resumeFrom < 0 || resumeFrom >= pageCount {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"resume page %d out of range [0, %d)", resumeFrom, pageCount)
	}
	if resumeFrom%size != 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"resume page %d is not a boundary of %d-page chunks", resumeFrom, size)
	}

	out := make([]Range, 0, Count(pageCount-resumeFrom, size))
	for start := resumeFrom; start < pageCount; start += size {
		out = append(out, Range{
			Index: start / size,
			Start: start,
			End:   min(start+size, pageCount) - 1,
		})
	}
	return out, nil
}
