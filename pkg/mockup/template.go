package mockup

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/edgeprint/pkg/buildinfo"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/retry"
)

// DefaultTemplateName is the object fetched from the asset base URL.
const DefaultTemplateName = "mockup-template.png"

// Size of the built-in template.
const (
	fallbackWidth  = 1200
	fallbackHeight = 1200
)

// TemplateSource resolves the mockup template. Path takes precedence over
// BaseURL; with neither set the built-in template is used. A successful
// load is kept for the life of the source.
type TemplateSource struct {
	Path    string
	BaseURL string
	Name    string // object name under BaseURL, defaults to DefaultTemplateName
	Client  *http.Client
	Policy  retry.Policy
	Logger  *log.Logger

	mu  sync.Mutex
	img *image.NRGBA
}

// Load returns the template, fetching it on first use.
func (s *TemplateSource) Load(ctx context.Context) (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img != nil {
		return s.img, nil
	}

	logger := s.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var (
		img image.Image
		err error
	)
	switch {
	case s.Path != "":
		img, err = imaging.Open(s.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeNotFound, err, "mockup template %s", s.Path)
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "mockup template %s", s.Path)
		}
		logger.Debug("loaded mockup template", "path", s.Path)
	case s.BaseURL != "":
		img, err = s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("fetched mockup template", "url", s.url())
	default:
		img = FallbackTemplate(fallbackWidth, fallbackHeight)
		logger.Debug("using built-in mockup template")
	}

	s.img = imaging.Clone(img)
	return s.img, nil
}

func (s *TemplateSource) url() string {
	name := s.Name
	if name == "" {
		name = DefaultTemplateName
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(name, "/")
}

func (s *TemplateSource) fetch(ctx context.Context) (image.Image, error) {
	raw := s.url()
	if err := errors.ValidateURL(raw); err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	policy := s.Policy
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy
	}

	data, err := retry.Value(ctx, policy, func() ([]byte, error) {
		return get(ctx, client, raw)
	})
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode mockup template")
	}
	return img, nil
}

func get(ctx context.Context, client *http.Client, raw string) ([]byte, error) {
	u, _ := url.Parse(raw)
	hooks := observability.HTTP()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "template request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return nil, retry.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", raw))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", raw))
	}
	return data, nil
}

func checkStatus(code int, raw string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "mockup template not found at %s", raw)
	case code >= 500 || code == http.StatusTooManyRequests:
		return retry.Retryable(errors.New(errors.ErrCodeNetwork, "fetch %s: status %d", raw, code))
	default:
		return errors.New(errors.ErrCodeNetwork, "fetch %s: status %d", raw, code)
	}
}

// FallbackTemplate draws a plain studio backdrop with the cover marker
// placed at the fallback region.
func FallbackTemplate(w, h int) image.Image {
	dc := gg.NewContext(w, h)

	grad := gg.NewLinearGradient(0, 0, 0, float64(h))
	grad.AddColorStop(0, rgb(0xf4, 0xf4, 0xf2))
	grad.AddColorStop(1, rgb(0xd9, 0xd9, 0xd6))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	q := FallbackQuad(image.Rect(0, 0, w, h))
	dc.SetRGB255(255, 0, 0)
	dc.DrawRectangle(q.TL.X, q.TL.Y, q.TR.X-q.TL.X, q.BL.Y-q.TL.Y)
	dc.Fill()

	return dc.Image()
}

func rgb(r, g, b uint8) color.Color {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// ID names the resolved template for cache keys.
func (s *TemplateSource) ID() string {
	switch {
	case s.Path != "":
		return "file:" + s.Path
	case s.BaseURL != "":
		return s.url()
	default:
		return "builtin"
	}
}
