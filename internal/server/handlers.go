package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/mokulua/rlvr/internal/langpack"
	"github.com/mokulua/rlvr/internal/pipeline"
)

// TranslateRequest is the POST /translate body. Mode defaults to
// standard; src and tgt are language codes.
type TranslateRequest struct {
	Src      string             `json:"src"`
	Tgt      string             `json:"tgt"`
	Mode     string             `json:"mode"`
	Segments []pipeline.Segment `json:"segments"`
}

type TranslateResponse struct {
	Results []*pipeline.Result `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":    "ok",
		"service":   "RLVR Translation API",
		"languages": s.manager.Loaded(),
		"modes":     []string{pipeline.ModeStandard, pipeline.ModeRLVR, pipeline.ModeShowcase},
	}, http.StatusOK)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = pipeline.ModeStandard
	}
	switch req.Mode {
	case pipeline.ModeStandard, pipeline.ModeRLVR, pipeline.ModeShowcase:
	default:
		respondError(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}
	if req.Src == "" {
		req.Src = "en"
	}
	if req.Tgt == "" {
		req.Tgt = "haw"
	}
	if len(req.Segments) == 0 {
		respondError(w, "at least one segment is required", http.StatusBadRequest)
		return
	}

	// The source pack only needs to exist; scoring runs against the
	// target language's metrics.
	if _, err := s.manager.Load(req.Src); err != nil {
		respondLoadError(w, err)
		return
	}
	p, err := s.pipelineFor(req.Tgt)
	if err != nil {
		respondLoadError(w, err)
		return
	}

	direction := req.Src + "_to_" + req.Tgt

	results := make([]*pipeline.Result, 0, len(req.Segments))
	for _, seg := range req.Segments {
		res, err := p.Translate(r.Context(), seg, req.Mode, direction)
		if err != nil {
			respondError(w, fmt.Sprintf("translating segment %q: %v", seg.ID, err), http.StatusInternalServerError)
			return
		}
		results = append(results, res)
	}

	respondJSON(w, TranslateResponse{Results: results}, http.StatusOK)
}

func respondLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, langpack.ErrNotFound) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondError(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	languages, err := s.manager.List()
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if languages == nil {
		languages = []langpack.Available{}
	}
	respondJSON(w, map[string]any{"languages": languages}, http.StatusOK)
}

// handleStats reports the bandit snapshot for an already initialized
// language. It deliberately does not load packs on demand.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "lang")
	pack, ok := s.manager.Peek(code)
	if !ok {
		respondError(w, fmt.Sprintf("language %s not initialized", code), http.StatusBadRequest)
		return
	}
	respondJSON(w, pack.Bandit.Stats(), http.StatusOK)
}

func (s *Server) handleShowcaseSentences(w http.ResponseWriter, r *http.Request) {
	if s.showcase == nil {
		respondError(w, "showcase generator not initialized", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, map[string]any{"sentences": s.showcase.Sentences()}, http.StatusOK)
}

func (s *Server) handleShowcaseLog(w http.ResponseWriter, r *http.Request) {
	if s.showcase == nil {
		respondError(w, "showcase generator not initialized", http.StatusServiceUnavailable)
		return
	}
	sentence := chi.URLParam(r, "sentence")
	if decoded, err := url.PathUnescape(sentence); err == nil {
		sentence = decoded
	}
	respondJSON(w, s.showcase.ProcessLog(sentence), http.StatusOK)
}
