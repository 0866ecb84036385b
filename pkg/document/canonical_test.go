package document

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/matzehuels/edgeprint/pkg/document/documenttest"
	"github.com/matzehuels/edgeprint/pkg/errors"
)

// rawPDF assembles a classic-xref document from numbered object bodies.
func rawPDF(objs map[int]string, root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs)+1)
	for n := 1; n <= len(objs); n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, objs[n])
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for n := 1; n <= len(objs); n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root %d 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, root, xref)
	return buf.Bytes()
}

func TestCanonicalIgnoresKeyOrderAndNumbering(t *testing.T) {
	a := rawPDF(map[int]string{
		1: "<</Type /Catalog /Pages 2 0 R>>",
		2: "<</Type /Pages /Kids [3 0 R] /Count 1>>",
		3: "<</Type /Page /Parent 2 0 R /MediaBox [0 0 432 648] /Resources <</ProcSet [/PDF] /ColorSpace <<>>>>>>",
	}, 1)
	b := rawPDF(map[int]string{
		1: "<</Resources <</ColorSpace <<>> /ProcSet [/PDF]>> /MediaBox [0 0 432 648] /Parent 3 0 R /Type /Page>>",
		2: "<</Pages 3 0 R /Type /Catalog>>",
		3: "<</Count 1 /Kids [1 0 R] /Type /Pages>>",
	}, 2)

	ca, err := Canonical(a)
	if err != nil {
		t.Fatalf("Canonical(a) error: %v", err)
	}
	cb, err := Canonical(b)
	if err != nil {
		t.Fatalf("Canonical(b) error: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Errorf("equivalent documents differ:\n%s\n---\n%s", ca, cb)
	}
	if n, err := PageCount(ca); err != nil || n != 1 {
		t.Errorf("PageCount(canonical) = %d, %v, want 1", n, err)
	}
}

func TestCanonical(t *testing.T) {
	data := documenttest.Make(t, 3, 432, 648)

	out, err := Canonical(data)
	if err != nil {
		t.Fatalf("Canonical() error: %v", err)
	}
	info, err := Inspect(out)
	if err != nil {
		t.Fatalf("Inspect(canonical) error: %v", err)
	}
	if info.PageCount != 3 || info.WidthPoints != 432 {
		t.Errorf("canonical = %d pages of %v pt, want 3 of 432", info.PageCount, info.WidthPoints)
	}

	again, err := Canonical(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, again) {
		t.Error("Canonical is not stable on its own output")
	}

	if _, err := Canonical([]byte("junk")); !errors.Is(err, errors.ErrCodeInvalidDocument) {
		t.Errorf("Canonical(junk) = %v, want INVALID_DOCUMENT", err)
	}
}
