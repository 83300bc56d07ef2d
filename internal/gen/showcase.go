package gen

import (
	"context"
	"fmt"

	"github.com/mokulua/rlvr/internal/textutil"
)

// ShowcaseSentence describes one curated demo sentence and the metrics
// it is meant to exercise.
type ShowcaseSentence struct {
	Hawaiian       string   `json:"hawaiian"`
	English        string   `json:"english"`
	PrimaryMetrics []string `json:"primary_metrics"`
	Description    string   `json:"description"`
}

type showcaseEntry struct {
	sentence   ShowcaseSentence
	candidates []string
	steps      []map[string]any
}

// Showcase serves a fixed panel of demo sentences with pre-built
// candidate sets of varying quality and a step-by-step process log,
// so demos stay deterministic and need no model.
type Showcase struct {
	entries []showcaseEntry
	byKey   map[string]int
}

func NewShowcase() *Showcase {
	s := &Showcase{byKey: make(map[string]int)}

	s.add(showcaseEntry{
		sentence: ShowcaseSentence{
			Hawaiian:       "Ua pau ka hōʻike.",
			English:        "We already finished the report.",
			PrimaryMetrics: []string{"diacritics", "articles_ke_ka"},
			Description:    "Perfective aspect with a loanword that requires both an okina and a kahakō.",
		},
		candidates: []string{
			"Ua pau ka hōʻike.",
			"Ua pau ka hoike.",
			"Ua pau ke hōʻike.",
			"Ua pau ke hoike.",
		},
		steps: []map[string]any{
			{"step": "generate", "note": "four candidates varying diacritics and article choice"},
			{"step": "score", "note": "diacritics penalizes hoike; articles_ke_ka penalizes ke before hōʻike"},
			{"step": "select", "note": "fully marked candidate with ka wins"},
		},
	})

	s.add(showcaseEntry{
		sentence: ShowcaseSentence{
			Hawaiian:       "ʻAʻole e ua ana.",
			English:        "It is not raining.",
			PrimaryMetrics: []string{"tam_particles"},
			Description:    "Negation: ʻaʻole must not combine directly with the perfective marker ua.",
		},
		candidates: []string{
			"ʻAʻole e ua ana.",
			"ʻAʻole ua.",
			"ʻAʻole i ua.",
			"Aole e ua ana.",
		},
		steps: []map[string]any{
			{"step": "generate", "note": "candidates vary the tense-aspect-mood frame under negation"},
			{"step": "score", "note": "tam_particles hard-fails ʻAʻole ua; diacritics penalizes Aole"},
			{"step": "select", "note": "ʻAʻole e ... ana survives both checks"},
		},
	})

	s.add(showcaseEntry{
		sentence: ShowcaseSentence{
			Hawaiian:       "Ke pāʻani nei nā keiki.",
			English:        "The children are playing.",
			PrimaryMetrics: []string{"articles_ke_ka", "diacritics"},
			Description:    "Progressive aspect with pāʻani, a lexical exception to the KEAO article rule.",
		},
		candidates: []string{
			"Ke pāʻani nei nā keiki.",
			"Ka pāʻani nei nā keiki.",
			"Ke paani nei na keiki.",
			"E pāʻani ana nā keiki.",
		},
		steps: []map[string]any{
			{"step": "generate", "note": "candidates vary the article and diacritic marking"},
			{"step": "score", "note": "pāʻani takes ke by exception, so ka pāʻani loses"},
			{"step": "select", "note": "ke pāʻani with full diacritics wins"},
		},
	})

	return s
}

func (s *Showcase) add(e showcaseEntry) {
	s.entries = append(s.entries, e)
	idx := len(s.entries) - 1
	s.byKey[normalizeShowcaseKey(e.sentence.English)] = idx
	s.byKey[normalizeShowcaseKey(e.sentence.Hawaiian)] = idx
}

func (s *Showcase) lookup(text string) (*showcaseEntry, bool) {
	idx, ok := s.byKey[normalizeShowcaseKey(text)]
	if !ok {
		return nil, false
	}
	return &s.entries[idx], true
}

func normalizeShowcaseKey(text string) string {
	return textutil.Normalize(text, false)
}

// Sentences lists the curated panel.
func (s *Showcase) Sentences() []ShowcaseSentence {
	out := make([]ShowcaseSentence, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.sentence
	}
	return out
}

// ProcessLog returns the step-by-step log for a panel sentence, matched
// by either its English or Hawaiian side. Unknown sentences get a log
// with an explanatory note instead of an error.
func (s *Showcase) ProcessLog(sentence string) map[string]any {
	if e, ok := s.lookup(sentence); ok {
		return map[string]any{
			"sentence":        e.sentence.English,
			"hawaiian":        e.sentence.Hawaiian,
			"primary_metrics": e.sentence.PrimaryMetrics,
			"description":     e.sentence.Description,
			"steps":           e.steps,
		}
	}
	return map[string]any{
		"sentence": sentence,
		"steps":    []map[string]any{},
		"note":     "not a curated demo sentence",
	}
}

// Generate returns the curated candidate set for a panel sentence. The
// scoring pipeline still ranks them; the panel just fixes the inputs.
func (s *Showcase) Generate(ctx context.Context, src string, k int, opts Options) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	e, ok := s.lookup(src)
	if !ok {
		return []string{src}, nil
	}

	candidates := append([]string(nil), e.candidates...)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
