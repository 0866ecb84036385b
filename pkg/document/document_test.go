package document

import (
	"testing"

	"github.com/matzehuels/edgeprint/pkg/document/documenttest"
	"github.com/matzehuels/edgeprint/pkg/errors"
)

func TestInspect(t *testing.T) {
	data := documenttest.Make(t, 3, 432, 648) // 6x9 in

	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if info.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", info.PageCount)
	}
	if info.WidthInches != 6 || info.HeightInches != 9 {
		t.Errorf("inches = %vx%v, want 6x9", info.WidthInches, info.HeightInches)
	}
	if info.WidthPoints != 432 || info.HeightPoints != 648 {
		t.Errorf("points = %vx%v, want 432x648", info.WidthPoints, info.HeightPoints)
	}
	if !info.Uniform(0.5) {
		t.Error("Uniform() = false, want true")
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("%PDF-1.4 nope")} {
		if _, err := Inspect(data); !errors.IsValidation(err) {
			t.Errorf("Inspect(%q) error = %v, want validation error", data, err)
		}
	}
}

func TestExtractRange(t *testing.T) {
	data := documenttest.Make(t, 5, 200, 300)

	tests := []struct {
		start, end, want int
	}{
		{0, 0, 1},
		{1, 3, 3},
		{4, 4, 1},
		{0, 4, 5},
	}
	for _, tt := range tests {
		part, err := ExtractRange(data, tt.start, tt.end)
		if err != nil {
			t.Fatalf("ExtractRange(%d, %d) error: %v", tt.start, tt.end, err)
		}
		n, err := PageCount(part)
		if err != nil {
			t.Fatal(err)
		}
		if n != tt.want {
			t.Errorf("ExtractRange(%d, %d) pages = %d, want %d", tt.start, tt.end, n, tt.want)
		}
	}

	if _, err := ExtractRange(data, 3, 1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ExtractRange(3, 1) error = %v, want INVALID_INPUT", err)
	}
}

func TestMerge(t *testing.T) {
	a := documenttest.Make(t, 2, 200, 300)
	b := documenttest.Make(t, 3, 200, 300)

	merged, err := Merge([][]byte{a, b})
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if n, _ := PageCount(merged); n != 5 {
		t.Errorf("merged pages = %d, want 5", n)
	}

	single, err := Merge([][]byte{a})
	if err != nil || &single[0] != &a[0] {
		t.Errorf("Merge(single) should return its input unchanged")
	}

	if _, err := Merge(nil); !errors.Is(err, errors.ErrCodeInvalidChunkCount) {
		t.Errorf("Merge(nil) error = %v, want INVALID_CHUNK_COUNT", err)
	}
}

func TestNormalize(t *testing.T) {
	data := documenttest.Make(t, 2, 100, 100)
	out, err := Normalize(data)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if n, _ := PageCount(out); n != 2 {
		t.Errorf("pages = %d, want 2", n)
	}
}
