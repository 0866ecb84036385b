package cache

import "fmt"

// Keyer generates cache keys for each artifact kind.
type Keyer interface {
	// SliceKey identifies a slice set generated from the source with the given hash.
	SliceKey(sourceHash string, opts SliceKeyOpts) string

	// MockupKey identifies a mockup rendered from the given cover and edge hashes.
	MockupKey(coverHash, edgeHash string, opts MockupKeyOpts) string

	// InfoKey identifies the inspection result of a document.
	InfoKey(documentHash string) string
}

// SliceKeyOpts holds every input besides the source that shapes a slice set.
type SliceKeyOpts struct {
	Position       string  `json:"position"`
	LeafCount      int     `json:"leaf_count"`
	Mode           string  `json:"mode"`
	StripWidth     float64 `json:"strip_width"`
	StripHeight    float64 `json:"strip_height"`
	PixelsPerPoint float64 `json:"ppp"`
	Corners        string  `json:"corners"`
}

// MockupKeyOpts holds every input besides the images that shapes a mockup.
type MockupKeyOpts struct {
	TrimWidth  float64 `json:"trim_width"`
	TrimHeight float64 `json:"trim_height"`
	PageCount  int     `json:"page_count"`
	PageType   string  `json:"page_type"`
	Mode       string  `json:"mode"`
	Template   string  `json:"template"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SliceKey returns "slice:<hash>".
func (DefaultKeyer) SliceKey(sourceHash string, opts SliceKeyOpts) string {
	return hashKey("slice", sourceHash, opts)
}

// MockupKey returns "mockup:<hash>".
func (DefaultKeyer) MockupKey(coverHash, edgeHash string, opts MockupKeyOpts) string {
	return hashKey("mockup", coverHash, edgeHash, opts)
}

// InfoKey returns "info:<document hash>".
func (DefaultKeyer) InfoKey(documentHash string) string {
	return fmt.Sprintf("info:%s", documentHash)
}
