package layout

// LeafCount returns the number of physical sheets for pageCount pages.
func LeafCount(pageCount int) int {
	if pageCount <= 0 {
		return 0
	}
	return (pageCount + 1) / 2
}

// LeafIndex returns the sheet a zero-indexed page is printed on.
func LeafIndex(page int) int {
	return page / 2
}

// IsLeftPage reports whether page is the back of its leaf (odd index).
// Left pages carry the fore-edge strip at x=0, mirrored.
func IsLeftPage(page int) bool {
	return page%2 == 1
}

// IsRightPage reports whether page is the front of its leaf (even index).
func IsRightPage(page int) bool {
	return page%2 == 0
}

// LeafPages returns the two page indices on leaf. The back page may not
// exist in a document with an odd page count.
func LeafPages(leaf int) (front, back int) {
	return 2 * leaf, 2*leaf + 1
}
