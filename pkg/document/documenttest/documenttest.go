// Package documenttest builds small PDF documents for tests.
package documenttest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/phpdave11/gofpdf"
)

// Make returns a PDF with n pages of w×h points, each labelled with its
// one-based page number.
func Make(t testing.TB, n int, w, h float64) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)
	for i := range n {
		pdf.AddPage()
		pdf.Text(10, 20, fmt.Sprintf("page %d", i+1))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build test pdf: %v", err)
	}
	return buf.Bytes()
}

// MakeSized returns a PDF with one page per entry of widths, each page
// widths[i] points wide and h tall. Distinct widths make page order
// observable through page sizes.
func MakeSized(t testing.TB, widths []float64, h float64) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: widths[0], Ht: h},
	})
	pdf.SetCompression(false)
	for _, w := range widths {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build test pdf: %v", err)
	}
	return buf.Bytes()
}
