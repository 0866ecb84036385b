// Package layout converts a book's trim size, page count, and bleed mode
// into the point and pixel dimensions every other edgeprint stage uses.
//
// All functions are pure: the same [Params] always produce the same [Result].
//
// # Leaves
//
// A leaf is one physical sheet. Page i (zero-indexed) sits on leaf i/2;
// even pages are the leaf's front ("right" pages), odd pages its back
// ("left" pages). A document of n pages has ceil(n/2) leaves.
//
// # Strips and bleed
//
// Edge strips are always [EdgeStripPoints] thick (0.125in bleed plus a
// 0.125in safety buffer). The page canvas itself only grows when the
// bleed type is [AddBleed]: 18pt wider (outer edge) and 36pt taller.
//
//	r, err := layout.Compute(layout.Params{
//	    TrimWidth: 6, TrimHeight: 9, PageCount: 120, Bleed: layout.AddBleed,
//	})
//	// r.PageWidth == 450, r.PageHeight == 684, r.LeafCount == 60
package layout
