// Package langpack loads per-language configuration bundles: scoring
// weights, metric definitions with their resource files, generator
// settings and the prompt bandit. Packs are cached per process.
package langpack

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mokulua/rlvr/internal/bandit"
	"github.com/mokulua/rlvr/internal/gen"
	"github.com/mokulua/rlvr/internal/metric"
)

// ErrNotFound marks a language code with no pack directory.
var ErrNotFound = errors.New("language pack not found")

const defaultEpsilon = 0.2

// Prompt refinements appended to the base template to form the bandit's
// arms.
var promptVariantSuffixes = []string{
	"\nBe very careful with diacritics, TAM particles, and articles.",
	"\nStrictly follow Hawaiian grammar rules, especially for negation.",
}

// File is the YAML shape of lang/<code>/<code>.yaml.
type File struct {
	Code      string             `yaml:"code"`
	Name      string             `yaml:"name"`
	Weights   map[string]float64 `yaml:"weights"`
	Generator GeneratorConfig    `yaml:"generator"`
	Metrics   []MetricRef        `yaml:"metrics"`
	Resources map[string]string  `yaml:"resources"`
}

type GeneratorConfig struct {
	Kind   string          `yaml:"kind"`
	Params GeneratorParams `yaml:"params"`
}

type GeneratorParams struct {
	PromptTemplate string  `yaml:"prompt_template"`
	Temperature    float64 `yaml:"temperature"`
	KSamples       int     `yaml:"k_samples"`
	Model          string  `yaml:"model"`
}

type MetricRef struct {
	Module string `yaml:"module"`
	Name   string `yaml:"name"`
}

// Pack is a fully constructed language bundle ready for the pipeline.
type Pack struct {
	Code           string
	Name           string
	Weights        map[string]float64
	Metrics        []metric.Metric
	Generator      gen.Generator
	Bandit         *bandit.Bandit
	PromptTemplate string
	PromptVariants []string
	Temperature    float64
	KSamples       int
}

// LLMSettings carries the credentials and endpoint that pack files must
// not contain.
type LLMSettings struct {
	BaseURL              string
	APIKey               string
	Model                string
	ForceUnitTemperature bool
}

// Manager loads and caches packs from a lang/ directory tree.
type Manager struct {
	dir     string
	epsilon float64
	llm     LLMSettings
	logger  *slog.Logger

	mu    sync.Mutex
	packs map[string]*Pack
}

type Option func(*Manager)

func WithEpsilon(e float64) Option {
	return func(m *Manager) { m.epsilon = e }
}

func WithLLMSettings(s LLMSettings) Option {
	return func(m *Manager) { m.llm = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager builds a manager rooted at dir, which holds one
// subdirectory per language code.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:     dir,
		epsilon: defaultEpsilon,
		logger:  slog.Default(),
		packs:   make(map[string]*Pack),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load returns the cached pack for code, constructing it on first use.
func (m *Manager) Load(code string) (*Pack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.packs[code]; ok {
		return p, nil
	}

	p, err := m.build(code)
	if err != nil {
		return nil, err
	}
	m.packs[code] = p
	m.logger.Info("initialized language pack",
		"code", p.Code,
		"metrics", len(p.Metrics),
		"generator", fmt.Sprintf("%T", p.Generator))
	return p, nil
}

// Peek returns an already constructed pack without triggering a load.
func (m *Manager) Peek(code string) (*Pack, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packs[code]
	return p, ok
}

// Loaded lists the codes of packs already constructed, sorted.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.packs))
	for code := range m.packs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (m *Manager) build(code string) (*Pack, error) {
	packDir := filepath.Join(m.dir, code)
	path := filepath.Join(packDir, code+".yaml")

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
		}
		return nil, fmt.Errorf("reading pack %s: %w", code, err)
	}

	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing pack %s: %w", code, err)
	}
	if file.Code == "" {
		file.Code = code
	}
	if file.Code != code {
		return nil, fmt.Errorf("pack %s declares code %q", code, file.Code)
	}

	// Resource paths in the file are relative to the pack directory.
	resources := make(map[string]string, len(file.Resources))
	for key, rel := range file.Resources {
		resources[key] = filepath.Join(packDir, rel)
	}
	mcfg := metric.Config{Code: code, Resources: resources}

	metrics := make([]metric.Metric, 0, len(file.Metrics))
	for _, ref := range file.Metrics {
		mt, err := metric.New(ref.Module, ref.Name, mcfg)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", code, err)
		}
		metrics = append(metrics, mt)
	}

	generator, err := m.buildGenerator(file.Generator)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", code, err)
	}

	base := file.Generator.Params.PromptTemplate
	variants := make([]string, 0, 1+len(promptVariantSuffixes))
	variants = append(variants, base)
	for _, suffix := range promptVariantSuffixes {
		variants = append(variants, base+suffix)
	}

	k := file.Generator.Params.KSamples
	if k <= 0 {
		k = 4
	}
	temperature := file.Generator.Params.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	return &Pack{
		Code:           file.Code,
		Name:           file.Name,
		Weights:        file.Weights,
		Metrics:        metrics,
		Generator:      generator,
		Bandit:         bandit.New(variants, m.epsilon),
		PromptTemplate: base,
		PromptVariants: variants,
		Temperature:    temperature,
		KSamples:       k,
	}, nil
}

func (m *Manager) buildGenerator(cfg GeneratorConfig) (gen.Generator, error) {
	switch cfg.Kind {
	case "mock":
		return gen.NewMock(), nil
	case "llm":
		model := m.llm.Model
		if cfg.Params.Model != "" {
			model = cfg.Params.Model
		}
		if m.llm.APIKey == "" {
			return nil, fmt.Errorf("llm generator requires an API key")
		}
		return gen.NewLLM(m.llm.BaseURL, m.llm.APIKey, model,
			gen.WithForceUnitTemperature(m.llm.ForceUnitTemperature),
		), nil
	default:
		return nil, fmt.Errorf("unknown generator kind %q", cfg.Kind)
	}
}

// Available describes a pack on disk without constructing it, for the
// languages listing.
type Available struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Metrics []string `json:"metrics"`
}

// List scans the pack directory and returns every readable pack file.
// Broken packs are skipped with a log line rather than failing the
// whole listing.
func (m *Manager) List() ([]Available, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading pack directory: %w", err)
	}

	var out []Available
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		code := entry.Name()
		raw, err := os.ReadFile(filepath.Join(m.dir, code, code+".yaml"))
		if err != nil {
			continue
		}
		var file File
		if err := yaml.Unmarshal(raw, &file); err != nil {
			m.logger.Warn("skipping unreadable language pack", "code", code, "error", err)
			continue
		}

		a := Available{Code: file.Code, Name: file.Name}
		if a.Code == "" {
			a.Code = code
		}
		if a.Name == "" {
			a.Name = a.Code
		}
		for _, ref := range file.Metrics {
			a.Metrics = append(a.Metrics, ref.Name)
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
