package metric

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mokulua/rlvr/internal/textutil"
)

// Diacritics checks that words with a required canonical okina/kahakō
// spelling appear with exactly that spelling.
type Diacritics struct {
	// requiredByBase maps the diacritic-stripped form to the canonical
	// form the candidate must use.
	requiredByBase map[string]string
}

// NewDiacritics loads the required-forms lexicon (one canonical word
// per line, # comments allowed).
func NewDiacritics(cfg Config) (Metric, error) {
	path, err := cfg.ResourcePath("lex_diacritics")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening diacritics lexicon: %w", err)
	}
	defer f.Close()

	required := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		form := strings.ToLower(textutil.NormalizeVariants(line))
		required[textutil.StripDiacritics(form)] = form
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading diacritics lexicon: %w", err)
	}

	return &Diacritics{requiredByBase: required}, nil
}

func (m *Diacritics) Name() string    { return "diacritics" }
func (m *Diacritics) Version() string { return "1.0" }

func (m *Diacritics) Score(text, src string) Result {
	type checked struct {
		word     string
		required string
		correct  bool
	}

	var checks []checked
	correct := 0

	for _, raw := range strings.Fields(text) {
		word := strings.ToLower(textutil.TrimWordPunct(textutil.NormalizeVariants(raw)))
		if word == "" {
			continue
		}
		canonical, ok := m.requiredByBase[textutil.StripDiacritics(word)]
		if !ok {
			continue
		}
		c := checked{word: raw, required: canonical, correct: word == canonical}
		checks = append(checks, c)
		if c.correct {
			correct++
		}
	}

	score := 1.0
	if len(checks) > 0 {
		score = float64(correct) / float64(len(checks))
	}

	words := make([]string, 0, len(checks))
	var errs []map[string]any
	for _, c := range checks {
		words = append(words, c.word)
		if !c.correct {
			errs = append(errs, map[string]any{
				"word":     textutil.TrimWordPunct(c.word),
				"required": c.required,
			})
		}
	}

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   clamp(score),
		Details: map[string]any{
			"checked":       len(checks),
			"correct":       correct,
			"words_checked": words,
			"errors":        errs,
		},
	}
}
