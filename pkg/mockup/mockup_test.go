package mockup

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/retry"
	"github.com/matzehuels/edgeprint/pkg/scale"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	blue  = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	green = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
)

// markerTemplate is a white 200x200 image with a 60x120 marker at (60,40).
func markerTemplate() *image.NRGBA {
	img := imaging.New(200, 200, white)
	for y := 40; y < 160; y++ {
		for x := 60; x < 120; x++ {
			img.SetNRGBA(x, y, red)
		}
	}
	return img
}

func testLayout(t *testing.T) layout.Result {
	t.Helper()
	l, err := layout.Compute(layout.Params{TrimWidth: 6, TrimHeight: 9, PageCount: 200, Bleed: layout.AddBleed})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return l
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestFindMarker(t *testing.T) {
	q, ok := FindMarker(markerTemplate())
	if !ok {
		t.Fatal("FindMarker found no marker")
	}
	want := Quad{TL: Point{60, 40}, TR: Point{120, 40}, BL: Point{60, 160}, BR: Point{120, 160}}
	if q != want {
		t.Errorf("FindMarker = %+v, want %+v", q, want)
	}

	if _, ok := FindMarker(imaging.New(50, 50, white)); ok {
		t.Error("FindMarker on blank image reported a marker")
	}

	// Dark red is not the marker.
	img := imaging.New(10, 10, color.NRGBA{R: 150, G: 0, B: 0, A: 255})
	if _, ok := FindMarker(img); ok {
		t.Error("FindMarker accepted R=150")
	}
}

func TestFallbackQuad(t *testing.T) {
	q := FallbackQuad(image.Rect(0, 0, 100, 200))
	if !near(q.TL.X, 30, 1e-9) || !near(q.TL.Y, 24, 1e-9) || !near(q.BR.X, 62, 1e-9) || !near(q.BR.Y, 172, 1e-9) {
		t.Errorf("FallbackQuad = %+v", q)
	}
}

func TestContains(t *testing.T) {
	q := Quad{TL: Point{0, 10}, TR: Point{100, 0}, BL: Point{0, 90}, BR: Point{100, 100}}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{50, 50}, true},
		{Point{1, 11}, true},
		{Point{99, 1}, true},
		{Point{50, 2}, false},
		{Point{-1, 50}, false},
		{Point{101, 50}, false},
		{Point{50, 99}, false},
	}
	for _, tt := range tests {
		if got := q.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestInverseBilinear(t *testing.T) {
	quads := map[string]Quad{
		"rect":      {TL: Point{10, 20}, TR: Point{110, 20}, BL: Point{10, 220}, BR: Point{110, 220}},
		"trapezoid": {TL: Point{0, 10}, TR: Point{100, 0}, BL: Point{0, 90}, BR: Point{100, 100}},
		"skewed":    {TL: Point{5, 5}, TR: Point{90, 15}, BL: Point{15, 95}, BR: Point{110, 120}},
	}
	uvs := [][2]float64{{0.5, 0.5}, {0.25, 0.75}, {0.9, 0.1}, {0.05, 0.95}}

	for name, q := range quads {
		t.Run(name, func(t *testing.T) {
			for _, uv := range uvs {
				p := q.At(uv[0], uv[1])
				u, v, ok := InverseBilinear(q, p)
				if !ok {
					t.Errorf("InverseBilinear(%v) did not converge", uv)
				}
				if !near(u, uv[0], 0.02) || !near(v, uv[1], 0.02) {
					t.Errorf("InverseBilinear(%v) = (%v, %v)", uv, u, v)
				}
			}
		})
	}
}

func TestInverseBilinearClamps(t *testing.T) {
	q := Quad{TL: Point{0, 0}, TR: Point{10, 0}, BL: Point{0, 10}, BR: Point{10, 10}}
	u, v, ok := InverseBilinear(q, Point{500, -500})
	if ok {
		t.Error("far outside point reported as converged")
	}
	if u < 0 || u > 1 || v < 0 || v > 1 {
		t.Errorf("InverseBilinear = (%v, %v), want values in [0,1]", u, v)
	}
}

func TestEdgeQuad(t *testing.T) {
	t.Run("rect", func(t *testing.T) {
		cover := Quad{TL: Point{0, 0}, TR: Point{50, 0}, BL: Point{0, 100}, BR: Point{50, 100}}
		e := EdgeQuad(cover, 6)
		want := Quad{TL: Point{50, 0}, TR: Point{56, 0}, BL: Point{50, 100}, BR: Point{56, 100}}
		if e != want {
			t.Errorf("EdgeQuad = %+v, want %+v", e, want)
		}
	})

	t.Run("perspective", func(t *testing.T) {
		cover := Quad{TL: Point{0, 0}, TR: Point{50, 10}, BL: Point{0, 100}, BR: Point{50, 90}}
		e := EdgeQuad(cover, 10)
		// depth 0.8: edge is 8px wide, far side 64px tall around y=50.
		if e.TL != cover.TR || e.BL != cover.BR {
			t.Errorf("edge does not start at cover's right side: %+v", e)
		}
		if !near(e.TR.X, 58, 1e-9) || !near(e.TR.Y, 18, 1e-9) || !near(e.BR.Y, 82, 1e-9) {
			t.Errorf("EdgeQuad = %+v", e)
		}
	})
}

func TestRenderCoverWithoutEdge(t *testing.T) {
	r := &Renderer{Template: markerTemplate()}
	img, stats, err := r.Render(context.Background(), Request{
		Cover:  imaging.New(60, 90, blue),
		Layout: testLayout(t),
		Mode:   scale.Stretch,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !stats.Marker {
		t.Error("marker not detected")
	}
	if stats.ThicknessPx < MinEdgePixels {
		t.Errorf("ThicknessPx = %v", stats.ThicknessPx)
	}
	if got := img.NRGBAAt(90, 100); got != blue {
		t.Errorf("cover pixel = %v, want %v", got, blue)
	}
	if got := img.NRGBAAt(121, 100); got != DefaultPaperColor {
		t.Errorf("edge pixel = %v, want paper %v", got, DefaultPaperColor)
	}
	if got := img.NRGBAAt(10, 10); got != white {
		t.Errorf("background pixel = %v, want %v", got, white)
	}
	if _, ok := FindMarker(img); ok {
		t.Error("marker pixels left in output")
	}
}

func TestRenderEdgeOpacity(t *testing.T) {
	r := &Renderer{Template: markerTemplate()}
	img, _, err := r.Render(context.Background(), Request{
		Cover:  imaging.New(60, 90, blue),
		Edge:   imaging.New(100, 300, green),
		Layout: testLayout(t),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := img.NRGBAAt(121, 100)
	// 60% green over paper.
	want := color.NRGBA{R: 98, G: 249, B: 92, A: 255}
	for i, pair := range [][2]uint8{{got.R, want.R}, {got.G, want.G}, {got.B, want.B}} {
		if d := int(pair[0]) - int(pair[1]); d < -2 || d > 2 {
			t.Errorf("channel %d = %d, want %d", i, pair[0], pair[1])
		}
	}
}

// bandedEdge is w×h with four vertical bands: red, green, blue, black.
func bandedEdge(w, h int) *image.NRGBA {
	bands := []color.NRGBA{red, green, blue, {A: 255}}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, bands[x*len(bands)/w])
		}
	}
	return img
}

func TestRenderEdgeShowsEveryBand(t *testing.T) {
	// 200x320 marker at (50,40) on a 400x400 template.
	tmpl := imaging.New(400, 400, white)
	for y := 40; y < 360; y++ {
		for x := 50; x < 250; x++ {
			tmpl.SetNRGBA(x, y, red)
		}
	}
	l := testLayout(t)
	strip := l.SideStrip()
	// Same aspect as the printed edge, so fill crops nothing.
	w := 400
	h := int(math.Round(float64(w) * strip.Height / (strip.Width * float64(l.LeafCount))))

	r := &Renderer{Template: tmpl}
	img, stats, err := r.Render(context.Background(), Request{
		Cover:  imaging.New(200, 320, white),
		Edge:   bandedEdge(w, h),
		Layout: l,
		Mode:   scale.Fill,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Each band at 60% over paper.
	over := func(c color.NRGBA) color.NRGBA {
		mix := func(s, d uint8) float64 { return 0.6*float64(s) + 0.4*float64(d) }
		p := DefaultPaperColor
		return color.NRGBA{R: uint8(math.Round(mix(c.R, p.R))), G: uint8(math.Round(mix(c.G, p.G))), B: uint8(math.Round(mix(c.B, p.B))), A: 255}
	}
	want := []color.NRGBA{over(red), over(green), over(blue), over(color.NRGBA{A: 255})}
	nearest := func(c color.NRGBA) int {
		best, bestD := -1, math.MaxFloat64
		for i, w := range want {
			d := math.Abs(float64(c.R)-float64(w.R)) + math.Abs(float64(c.G)-float64(w.G)) + math.Abs(float64(c.B)-float64(w.B))
			if d < bestD {
				best, bestD = i, d
			}
		}
		return best
	}

	var seen []int
	y := 200
	for x := int(stats.Edge.TL.X); x < int(math.Ceil(stats.Edge.TR.X)); x++ {
		if !stats.Edge.Contains(Point{float64(x) + 0.5, float64(y) + 0.5}) {
			continue
		}
		band := nearest(img.NRGBAAt(x, y))
		if len(seen) == 0 || seen[len(seen)-1] != band {
			seen = append(seen, band)
		}
	}
	if len(seen) != 4 {
		t.Fatalf("bands across edge = %v, want [0 1 2 3] (edge %.1f px wide)", seen, stats.ThicknessPx)
	}
	for i, b := range seen {
		if b != i {
			t.Errorf("bands across edge = %v, want [0 1 2 3]", seen)
			break
		}
	}
}

func TestRenderFitCoverHidesMarker(t *testing.T) {
	r := &Renderer{Template: markerTemplate()}
	img, _, err := r.Render(context.Background(), Request{
		Cover:  imaging.New(200, 20, blue),
		Layout: testLayout(t),
		Mode:   scale.Fit,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := img.NRGBAAt(90, 100); got != blue {
		t.Errorf("cover centre = %v, want %v", got, blue)
	}
	if got := img.NRGBAAt(90, 45); got != DefaultPaperColor {
		t.Errorf("letterbox pixel = %v, want paper %v", got, DefaultPaperColor)
	}
	if _, ok := FindMarker(img); ok {
		t.Error("marker pixels left in output")
	}
}

func TestRenderWithoutCover(t *testing.T) {
	tmpl := markerTemplate()
	r := &Renderer{Template: tmpl}
	img, _, err := r.Render(context.Background(), Request{
		Edge:   imaging.New(10, 10, green),
		Layout: testLayout(t),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(img.Pix, tmpl.Pix) {
		t.Error("render without cover changed the template")
	}
}

func TestRenderFallbackRegion(t *testing.T) {
	r := &Renderer{Template: imaging.New(100, 200, white)}
	img, stats, err := r.Render(context.Background(), Request{
		Cover:  imaging.New(10, 10, blue),
		Layout: testLayout(t),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if stats.Marker {
		t.Error("marker reported on blank template")
	}
	if got := img.NRGBAAt(45, 100); got != blue {
		t.Errorf("fallback region pixel = %v, want %v", got, blue)
	}
}

func TestRenderErrors(t *testing.T) {
	r := &Renderer{}
	_, _, err := r.Render(context.Background(), Request{Layout: testLayout(t)})
	if !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Errorf("missing template: %v", err)
	}

	r.Template = markerTemplate()
	_, _, err = r.Render(context.Background(), Request{})
	if !errors.IsValidation(err) {
		t.Errorf("zero layout: %v, want validation error", err)
	}
}

func TestRenderPNG(t *testing.T) {
	r := &Renderer{Template: markerTemplate()}
	data, err := r.RenderPNG(context.Background(), Request{
		Cover:  imaging.New(60, 90, blue),
		Layout: testLayout(t),
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("size = %v, want 200x200", b.Size())
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTemplateSourceHTTP(t *testing.T) {
	body := encodePNG(t, markerTemplate())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/"+DefaultTemplateName {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	src := &TemplateSource{
		BaseURL: srv.URL + "/assets/",
		Policy:  retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
	}
	for range 2 {
		img, err := src.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if _, ok := FindMarker(img); !ok {
			t.Error("fetched template has no marker")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("requests = %d, want 2 (one retry, then cached)", got)
	}
}

func TestTemplateSourceNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := &TemplateSource{BaseURL: srv.URL, Policy: retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}}
	_, err := src.Load(context.Background())
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Load = %v, want NOT_FOUND", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestTemplateSourcePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.png")
	if err := imaging.Save(markerTemplate(), path); err != nil {
		t.Fatal(err)
	}
	img, err := (&TemplateSource{Path: path, BaseURL: "http://unused.invalid"}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("width = %d, want 200", img.Bounds().Dx())
	}

	_, err = (&TemplateSource{Path: filepath.Join(t.TempDir(), "missing.png")}).Load(context.Background())
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing path: %v, want NOT_FOUND", err)
	}
}

func TestTemplateSourceFallback(t *testing.T) {
	img, err := (&TemplateSource{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	q, ok := FindMarker(img)
	if !ok {
		t.Fatal("built-in template has no marker")
	}
	want := FallbackQuad(img.Bounds())
	if !near(q.TL.X, want.TL.X, 1) || !near(q.BR.Y, want.BR.Y, 1) {
		t.Errorf("marker = %+v, want near %+v", q, want)
	}
}
