package composite

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/phpdave11/gofpdf"

	"github.com/matzehuels/edgeprint/pkg/slice"
)

// EmbedKey identifies one distinct slice image within a document.
type EmbedKey struct {
	Position slice.Position
	Leaf     int
	Mirrored bool
	Masked   bool
}

// Name is the image name registered with the PDF writer.
func (k EmbedKey) Name() string {
	return fmt.Sprintf("edge-%s-%d-m%t-k%t", k.Position, k.Leaf, k.Mirrored, k.Masked)
}

// Orient returns img as it is drawn for k: left pages carry the horizontal
// mirror of the slice.
func (k EmbedKey) Orient(img *image.NRGBA) *image.NRGBA {
	if k.Mirrored {
		return imaging.FlipH(img)
	}
	return img
}

// EmbedCache registers each distinct slice image once per output document.
// It is owned by a single Composite call and is not safe for concurrent use.
type EmbedCache struct {
	pdf     *gofpdf.Fpdf
	entries map[EmbedKey]string
	encodes int
}

// NewEmbedCache creates a cache bound to pdf.
func NewEmbedCache(pdf *gofpdf.Fpdf) *EmbedCache {
	return &EmbedCache{pdf: pdf, entries: make(map[EmbedKey]string)}
}

// Encodes returns how many images have been encoded and registered.
func (c *EmbedCache) Encodes() int {
	return c.encodes
}

// Image returns the registered name for key, encoding img on first use.
// The registered image is key.Orient(img).
func (c *EmbedCache) Image(key EmbedKey, img *image.NRGBA) (string, error) {
	if name, ok := c.entries[key]; ok {
		return name, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, key.Orient(img)); err != nil {
		return "", err
	}

	name := key.Name()
	c.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if err := c.pdf.Error(); err != nil {
		return "", err
	}
	c.entries[key] = name
	c.encodes++
	return name, nil
}
