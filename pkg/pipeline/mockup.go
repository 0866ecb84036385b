package pipeline

import (
	"context"
	"image"

	"github.com/matzehuels/edgeprint/pkg/cache"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/mockup"
	"github.com/matzehuels/edgeprint/pkg/scale"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// MockupRequest is a preview render. Cover and Edge are optional; Edge may
// be image bytes or a hex colour.
type MockupRequest struct {
	Cover      []byte          `json:"cover,omitempty"`
	Edge       []byte          `json:"edge,omitempty"`
	TrimWidth  float64         `json:"trim_width"`
	TrimHeight float64         `json:"trim_height"`
	PageCount  int             `json:"page_count"`
	PageType   layout.PageType `json:"page_type,omitempty"`
	Mode       scale.Mode      `json:"scale_mode,omitempty"`
}

// Layout validates the request and computes its layout.
func (m *MockupRequest) Layout() (layout.Result, error) {
	mode, err := scale.Parse(string(m.Mode))
	if err != nil {
		return layout.Result{}, err
	}
	m.Mode = mode
	return layout.Compute(layout.Params{
		TrimWidth:  m.TrimWidth,
		TrimHeight: m.TrimHeight,
		PageCount:  m.PageCount,
		Bleed:      layout.AddBleed,
		PageType:   m.PageType,
	})
}

// RenderMockup renders a PNG preview, caching it by input hash.
func (r *Runner) RenderMockup(ctx context.Context, req MockupRequest) ([]byte, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	l, err := req.Layout()
	if err != nil {
		return nil, err
	}
	cover, err := decodeOptional(req.Cover, slice.Decode)
	if err != nil {
		return nil, err
	}
	edge, err := decodeOptional(req.Edge, slice.Parse)
	if err != nil {
		return nil, err
	}

	templates := r.Templates
	if templates == nil {
		templates = &mockup.TemplateSource{Logger: r.logger()}
	}

	key := r.keyer().MockupKey(hashOptional(req.Cover), hashOptional(req.Edge), cache.MockupKeyOpts{
		TrimWidth:  req.TrimWidth,
		TrimHeight: req.TrimHeight,
		PageCount:  req.PageCount,
		PageType:   string(l.Params.PageType),
		Mode:       string(req.Mode),
		Template:   templates.ID(),
	})
	return cache.Fetch(ctx, r.Cache, "mockup", key, r.ttl(cache.MockupTTL), func() ([]byte, error) {
		tmpl, err := templates.Load(ctx)
		if err != nil {
			return nil, err
		}
		rend := &mockup.Renderer{
			Template:    tmpl,
			PaperColor:  opts.PaperColor,
			EdgeOpacity: mockup.DefaultEdgeOpacity,
			Logger:      r.logger(),
		}
		return rend.RenderPNG(ctx, mockup.Request{
			Cover:  cover,
			Edge:   edge,
			Layout: l,
			Mode:   req.Mode,
		})
	})
}

func decodeOptional(data []byte, decode func([]byte) (slice.Source, error)) (image.Image, error) {
	if len(data) == 0 {
		return nil, nil
	}
	src, err := decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode mockup image")
	}
	return src.Image(), nil
}

func hashOptional(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return cache.Hash(data)
}
