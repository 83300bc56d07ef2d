// Package server exposes the translation pipeline over HTTP: health,
// translate, language listing, bandit stats, the showcase panel and
// prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mokulua/rlvr/internal/config"
	"github.com/mokulua/rlvr/internal/gen"
	"github.com/mokulua/rlvr/internal/langpack"
	"github.com/mokulua/rlvr/internal/pipeline"
)

const ReadTimeout = 30 * time.Second

// Server wires the language pack manager and per-language pipelines
// behind a chi router.
type Server struct {
	cfg      *config.Config
	manager  *langpack.Manager
	showcase *gen.Showcase
	router   *chi.Mux
	server   *http.Server

	mu        sync.Mutex
	pipelines map[string]*pipeline.Pipeline
}

func NewServer(cfg *config.Config, manager *langpack.Manager) *Server {
	s := &Server{
		cfg:       cfg,
		manager:   manager,
		showcase:  gen.NewShowcase(),
		pipelines: make(map[string]*pipeline.Pipeline),
	}

	router := chi.NewRouter()
	router.Use(Recovery)
	router.Use(Logger)
	router.Use(CORS(cfg.Server.CORSOrigins))

	router.Get("/", s.handleHealth)
	router.Post("/translate", s.handleTranslate)
	router.Get("/languages", s.handleLanguages)
	router.Get("/stats/{lang}", s.handleStats)
	router.Get("/showcase/sentences", s.handleShowcaseSentences)
	router.Get("/showcase/log/{sentence}", s.handleShowcaseLog)
	router.Handle("/metrics", promhttp.Handler())

	s.router = router
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Warmup loads the default language packs so the first request doesn't
// pay pack construction, mirroring startup initialization. Failures are
// returned for the caller to log; the server still works lazily.
func (s *Server) Warmup(codes ...string) error {
	for _, code := range codes {
		if _, err := s.pipelineFor(code); err != nil {
			return fmt.Errorf("warming up %s: %w", code, err)
		}
	}
	return nil
}

// pipelineFor returns the cached pipeline for a target language,
// building it on first use.
func (s *Server) pipelineFor(code string) (*pipeline.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[code]; ok {
		return p, nil
	}

	pack, err := s.manager.Load(code)
	if err != nil {
		return nil, err
	}

	// LLM-backed packs get the bidirectional wrapper: temperature
	// spread, dedup and target-side cleanup. The mock generator's
	// fixture sets must pass through untouched.
	if _, ok := pack.Generator.(*gen.LLM); ok {
		var enToHaw, hawToEn string
		if code == "en" {
			hawToEn = pack.PromptTemplate
		} else {
			enToHaw = pack.PromptTemplate
		}
		pack.Generator = gen.NewBidirectional(pack.Generator, enToHaw, hawToEn, pack.Temperature)
	}

	p := pipeline.New(pack, pipeline.WithShowcase(s.showcase))
	s.pipelines[code] = p
	return p, nil
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: 0,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
