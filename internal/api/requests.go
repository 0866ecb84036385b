package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/pipeline"
)

// validator is implemented by every request body.
type validator interface {
	Validate() error
}

// decode reads a strict JSON body into v and validates it.
func decode(r *http.Request, v validator) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed request body")
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New(errors.ErrCodeInvalidInput, "request body has trailing data")
	}
	return v.Validate()
}

type layoutRequest struct {
	TrimWidth  float64 `json:"trim_width"`
	TrimHeight float64 `json:"trim_height"`
	PageCount  int     `json:"page_count"`
	BleedType  string  `json:"bleed_type"`
	PageType   string  `json:"page_type,omitempty"`
}

func (l *layoutRequest) params() layout.Params {
	return layout.Params{
		TrimWidth:  l.TrimWidth,
		TrimHeight: l.TrimHeight,
		PageCount:  l.PageCount,
		Bleed:      layout.BleedType(l.BleedType),
		PageType:   layout.PageType(l.PageType),
	}
}

func (l *layoutRequest) Validate() error {
	pt, err := layout.ParsePageType(l.PageType)
	if err != nil {
		return err
	}
	l.PageType = string(pt)
	return l.params().Validate()
}

type analyzeRequest struct {
	Document []byte `json:"document"`
}

func (a *analyzeRequest) Validate() error {
	if len(a.Document) == 0 {
		return errors.New(errors.ErrCodeInvalidDocument, "document is required")
	}
	return nil
}

type jobRequest struct {
	pipeline.Design
	Document []byte `json:"document"`
}

func (j *jobRequest) Validate() error {
	if len(j.Document) == 0 {
		return errors.New(errors.ErrCodeInvalidDocument, "document is required")
	}
	return j.Design.Validate()
}

type mockupRequest struct {
	pipeline.MockupRequest
}

func (m *mockupRequest) Validate() error {
	_, err := m.Layout()
	return err
}

// emptyRequest accepts "{}" or no body at all.
type emptyRequest struct{}

func (emptyRequest) Validate() error { return nil }

func decodeOptional(r *http.Request) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decode(r, &emptyRequest{})
}
