package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/edgeprint/pkg/calibration"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := layout.Compute(req.params())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) template(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := layout.Compute(req.params())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	png, err := calibration.EncodePNG(res)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBytes(w, "image/png", png)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.runner.Analyze(r.Context(), req.Document)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) mockup(w http.ResponseWriter, r *http.Request) {
	var req mockupRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	png, err := s.runner.RenderMockup(r.Context(), req.MockupRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBytes(w, "image/png", png)
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.runner.Start(r.Context(), req.Design, req.Document)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.runner.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) resumeJob(w http.ResponseWriter, r *http.Request) {
	if err := decodeOptional(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.runner.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type chunkResponse struct {
	Chunk  int `json:"chunk"`
	Pages  int `json:"pages"`
	Embeds int `json:"embeds"`
}

func (s *Server) processChunk(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "chunk index must be an integer"))
		return
	}
	if err := decodeOptional(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.ProcessChunk(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chunkResponse{Chunk: index, Pages: len(res.Pages), Embeds: res.Embeds})
}

func (s *Server) mergeJob(w http.ResponseWriter, r *http.Request) {
	if err := decodeOptional(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	pdf, err := s.runner.Finish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBytes(w, "application/pdf", pdf)
}
