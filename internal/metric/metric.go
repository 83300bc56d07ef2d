// Package metric implements the verifiable grammar metrics used to
// score translation candidates. Every metric is deterministic, needs no
// reference translation, and is safe for concurrent read-only use once
// constructed.
package metric

import (
	"fmt"
	"sort"
)

// Result is the outcome of scoring one text with one metric.
type Result struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Score   float64        `json:"score"`
	Details map[string]any `json:"details"`
}

// Metric scores a single candidate. src is the source-language text and
// may be empty; no metric is allowed to mutate shared state or touch
// the network from Score.
type Metric interface {
	Name() string
	Version() string
	Score(text, src string) Result
}

// Config is the slice of a language pack a metric constructor needs:
// the language code and the resolved resource file paths.
type Config struct {
	Code      string
	Resources map[string]string
}

// ResourcePath returns the path registered under key, or an error
// naming the missing key so pack loading fails fast.
func (c Config) ResourcePath(key string) (string, error) {
	path, ok := c.Resources[key]
	if !ok {
		return "", fmt.Errorf("metric resource %q not configured for language %q", key, c.Code)
	}
	return path, nil
}

// Constructor builds a metric from a language pack config.
type Constructor func(cfg Config) (Metric, error)

// The registry maps (module, name) pairs from language pack YAML to
// constructors. Adding a metric means adding an entry here.
var registry = map[string]Constructor{
	key("hawaiian", "diacritics"):             NewDiacritics,
	key("hawaiian", "tam_particles"):          NewTAMParticles,
	key("hawaiian", "articles_ke_ka"):         NewArticlesKeKa,
	key("english", "articles_a_an"):           NewArticlesAAn,
	key("english", "subject_verb_agreement"):  NewSubjectVerbAgreement,
	key("english", "spelling"):                NewSpelling,
	key("english", "punctuation"):             NewPunctuation,
}

func key(module, name string) string {
	return module + "/" + name
}

// New looks up and invokes the constructor registered for the
// (module, name) pair.
func New(module, name string, cfg Config) (Metric, error) {
	ctor, ok := registry[key(module, name)]
	if !ok {
		return nil, fmt.Errorf("no metric registered for module %q name %q", module, name)
	}
	m, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("constructing metric %s/%s: %w", module, name, err)
	}
	return m, nil
}

// Registered returns the registry keys in sorted order, for diagnostics.
func Registered() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// clamp bounds a score to [0, 1].
func clamp(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
