package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mokulua/rlvr/internal/config"
	"github.com/mokulua/rlvr/internal/langpack"
)

const hawPackYAML = `code: haw
name: Hawaiian
weights:
  diacritics: 0.4
  tam_particles: 0.4
  articles_ke_ka: 0.2
generator:
  kind: mock
  params:
    prompt_template: "Translate the following English text to Hawaiian:"
    temperature: 0.7
    k_samples: 4
metrics:
  - module: hawaiian
    name: diacritics
  - module: hawaiian
    name: tam_particles
  - module: hawaiian
    name: articles_ke_ka
resources:
  lex_diacritics: resources/lexicon_diacritics.txt
  tam_regex: resources/tam_regex.json
  ke_exceptions: resources/ke_exceptions.txt
`

const enPackYAML = `code: en
name: English
weights:
  articles_a_an: 0.3
  subject_verb_agreement: 0.3
  spelling: 0.2
  punctuation: 0.2
generator:
  kind: mock
  params:
    prompt_template: "Translate the following Hawaiian text to English:"
    temperature: 0.7
    k_samples: 4
metrics:
  - module: english
    name: articles_a_an
  - module: english
    name: subject_verb_agreement
  - module: english
    name: spelling
  - module: english
    name: punctuation
resources:
  article_exceptions: resources/article_exceptions.txt
  common_misspellings: resources/common_misspellings.json
`

const hawTAMJSON = `{
  "neg": {
    "marker": "ʻaʻole",
    "valid": ["ʻaʻole\\s+(?:au|ʻoe|ia)?\\s*(?:i|e)\\s+VERB", "ʻaʻole\\s+e\\s+VERB\\s+ana"],
    "invalid": ["ʻaʻole\\s+ua\\b"]
  },
  "aff": {"valid": ["\\bua\\s+VERB", "\\bke\\s+VERB\\s+nei", "\\be\\s+VERB\\s+ana"]}
}`

const enArticleExceptions = `# Vowel-spelled words that use "a"
university
one

# Consonant-spelled words that use "an"
hour
honest
`

const enMisspellings = `{"common_errors": {"recieve": "receive"}, "homophones": {}}`

func writeLangTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"haw/haw.yaml":                            hawPackYAML,
		"haw/resources/lexicon_diacritics.txt":    "ʻaʻole\nhōʻike\nhawaiʻi\nnā\npāʻani\n",
		"haw/resources/tam_regex.json":            hawTAMJSON,
		"haw/resources/ke_exceptions.txt":         "pāʻani\npākaukau\n",
		"en/en.yaml":                              enPackYAML,
		"en/resources/article_exceptions.txt":     enArticleExceptions,
		"en/resources/common_misspellings.json":   enMisspellings,
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	dir := writeLangTree(t)
	cfg.Server.LangDir = dir
	manager := langpack.NewManager(dir, langpack.WithEpsilon(0))
	return NewServer(cfg, manager)
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), into); err != nil {
		t.Fatalf("decoding response %q: %v", resp.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["service"] != "RLVR Translation API" {
		t.Errorf("service field = %v", body["service"])
	}
	modes, _ := body["modes"].([]any)
	if len(modes) != 3 {
		t.Errorf("modes = %v", body["modes"])
	}
}

func postTranslate(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	return resp
}

func TestTranslateRLVRMode(t *testing.T) {
	s := newTestServer(t)

	resp := postTranslate(t, s, `{
		"src": "en", "tgt": "haw", "mode": "rlvr",
		"segments": [{"id": "s1", "src": "It is not raining."}]
	}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Results []struct {
			ID         string            `json:"id"`
			Best       map[string]string `json:"best"`
			Candidates []struct {
				ID        string             `json:"id"`
				Tgt       string             `json:"tgt"`
				R         float64            `json:"R"`
				Breakdown map[string]float64 `json:"breakdown"`
			} `json:"candidates"`
			Prompt  string             `json:"prompt"`
			Weights map[string]float64 `json:"weights"`
		} `json:"results"`
	}
	decodeBody(t, resp, &body)

	if len(body.Results) != 1 {
		t.Fatalf("results = %d", len(body.Results))
	}
	res := body.Results[0]
	if res.ID != "s1" {
		t.Errorf("id = %q", res.ID)
	}
	// The fully marked valid negation beats the forbidden and
	// diacritic-stripped variants.
	if res.Best["tgt"] != "ʻAʻole e ua ana." {
		t.Errorf("best = %q", res.Best["tgt"])
	}
	if len(res.Candidates) != 4 {
		t.Errorf("candidates = %d", len(res.Candidates))
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].R > res.Candidates[i-1].R {
			t.Errorf("candidates not sorted by reward: %v then %v", res.Candidates[i-1].R, res.Candidates[i].R)
		}
	}
	if res.Prompt == "" {
		t.Error("prompt missing")
	}
	if res.Weights["diacritics"] != 0.4 {
		t.Errorf("weights = %v", res.Weights)
	}

	// The forbidden negation must carry a zero TAM component.
	for _, c := range res.Candidates {
		if c.Tgt == "ʻAʻole ua." && c.Breakdown["tam_particles"] != 0.0 {
			t.Errorf("forbidden TAM scored %v", c.Breakdown["tam_particles"])
		}
	}
}

func TestTranslateStandardModeDefault(t *testing.T) {
	s := newTestServer(t)

	// src, tgt and mode all default (en, haw, standard).
	resp := postTranslate(t, s, `{
		"segments": [{"id": "s1", "src": "It is not raining."}]
	}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}

	var body TranslateResponse
	decodeBody(t, resp, &body)
	if len(body.Results) != 1 || len(body.Results[0].Candidates) != 1 {
		t.Fatalf("standard mode should produce one candidate, got %+v", body.Results)
	}
}

func TestTranslateShowcaseMode(t *testing.T) {
	s := newTestServer(t)

	resp := postTranslate(t, s, `{
		"src": "en", "tgt": "haw", "mode": "showcase",
		"segments": [{"id": "s1", "src": "The children are playing."}]
	}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Results []struct {
			ProcessLog map[string]any `json:"process_log"`
		} `json:"results"`
	}
	decodeBody(t, resp, &body)
	if body.Results[0].ProcessLog == nil {
		t.Error("showcase result missing process_log")
	}
}

func TestTranslateValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown mode", `{"src":"en","tgt":"haw","mode":"turbo","segments":[{"id":"s","src":"x"}]}`, http.StatusBadRequest},
		{"no segments", `{"src":"en","tgt":"haw"}`, http.StatusBadRequest},
		{"unknown target", `{"src":"en","tgt":"zz","segments":[{"id":"s","src":"x"}]}`, http.StatusBadRequest},
		{"unknown source", `{"src":"zz","tgt":"haw","segments":[{"id":"s","src":"x"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTranslate(t, s, tt.body)
			if resp.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", resp.Code, tt.want, resp.Body.String())
			}
			var body map[string]any
			decodeBody(t, resp, &body)
			if body["error"] == nil {
				t.Error("error payload missing")
			}
		})
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/languages", nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var body struct {
		Languages []struct {
			Code    string   `json:"code"`
			Name    string   `json:"name"`
			Metrics []string `json:"metrics"`
		} `json:"languages"`
	}
	decodeBody(t, resp, &body)
	if len(body.Languages) != 2 {
		t.Fatalf("languages = %+v", body.Languages)
	}
	// Sorted by code: en first.
	if body.Languages[0].Code != "en" || body.Languages[1].Code != "haw" {
		t.Errorf("order = %s, %s", body.Languages[0].Code, body.Languages[1].Code)
	}
	if len(body.Languages[1].Metrics) != 3 {
		t.Errorf("haw metrics = %v", body.Languages[1].Metrics)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Uninitialized language is a client error, not a lazy load.
	req := httptest.NewRequest(http.MethodGet, "/stats/haw", nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("pre-init status = %d", resp.Code)
	}

	postTranslate(t, s, `{"src":"en","tgt":"haw","mode":"rlvr","segments":[{"id":"s1","src":"It is not raining."}]}`)

	req = httptest.NewRequest(http.MethodGet, "/stats/haw", nil)
	resp = httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}

	var stats struct {
		TotalSelections int     `json:"total_selections"`
		Epsilon         float64 `json:"epsilon"`
		Prompts         []struct {
			Prompt        string  `json:"prompt"`
			Value         float64 `json:"value"`
			Count         int     `json:"count"`
			SelectionRate float64 `json:"selection_rate"`
		} `json:"prompts"`
	}
	decodeBody(t, resp, &stats)
	if stats.TotalSelections != 1 {
		t.Errorf("total_selections = %d", stats.TotalSelections)
	}
	if len(stats.Prompts) != 3 {
		t.Errorf("prompts = %d", len(stats.Prompts))
	}
}

func TestShowcaseSentencesEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/showcase/sentences", nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var body struct {
		Sentences []struct {
			Hawaiian       string   `json:"hawaiian"`
			English        string   `json:"english"`
			PrimaryMetrics []string `json:"primary_metrics"`
			Description    string   `json:"description"`
		} `json:"sentences"`
	}
	decodeBody(t, resp, &body)
	if len(body.Sentences) == 0 {
		t.Fatal("no showcase sentences")
	}
	if body.Sentences[0].Hawaiian == "" || len(body.Sentences[0].PrimaryMetrics) == 0 {
		t.Errorf("incomplete sentence: %+v", body.Sentences[0])
	}
}

func TestShowcaseLogEndpoint(t *testing.T) {
	s := newTestServer(t)

	encoded := url.PathEscape("The children are playing.")
	req := httptest.NewRequest(http.MethodGet, "/showcase/log/"+encoded, nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["hawaiian"] != "Ke pāʻani nei nā keiki." {
		t.Errorf("hawaiian = %v", body["hawaiian"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Generate some traffic first.
	postTranslate(t, s, `{"src":"en","tgt":"haw","mode":"rlvr","segments":[{"id":"s1","src":"It is not raining."}]}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "rlvr_translations_total") {
		t.Error("prometheus exposition missing rlvr_translations_total")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/translate", nil)
	req.Header.Set("Origin", "http://example.com")
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
		t.Errorf("allow-origin = %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestWarmup(t *testing.T) {
	s := newTestServer(t)

	if err := s.Warmup("haw", "en"); err != nil {
		t.Fatal(err)
	}
	loaded := s.manager.Loaded()
	if len(loaded) != 2 {
		t.Errorf("loaded = %v", loaded)
	}

	if err := s.Warmup("zz"); err == nil {
		t.Error("expected error for unknown pack")
	}
}
