package gen

import (
	"context"
	"fmt"

	"github.com/mokulua/rlvr/internal/textutil"
)

// mockFixtures maps test sources to candidates of deliberately varying
// quality, so the scoring pipeline has something to rank.
var mockFixtures = map[string][]string{
	"We already finished the report.": {
		"Ua pau ka hōʻike.",  // correct diacritics and article
		"Ua pau ke hoike.",   // missing diacritics, wrong article
		"Ua pau ka hoike.",   // missing diacritics
		"Ua pau ke hōʻike.",  // wrong article
	},
	"Do not go there.": {
		"Mai hele ʻoe i laila.",
		"Mai hele oe i laila.",   // missing okina
		"ʻAʻole hele i laila.",   // different construction
		"No hele i laila.",       // wrong negation
	},
	"It is not raining.": {
		"ʻAʻole e ua ana.",
		"ʻAʻole ua.",      // forbidden TAM combination
		"Aole e ua ana.",  // missing okina
		"ʻAʻole i ua.",    // wrong TAM particle
	},
	"The children are playing.": {
		"Ke pāʻani nei nā keiki.",
		"Ke paani nei na keiki.",   // missing diacritics
		"Ka pāʻani nei nā keiki.",  // wrong article
		"E pāʻani ana nā keiki.",   // alternative TAM
	},
}

// Mock returns fixture translations for the known test sources and
// generic filler otherwise. Deterministic, no network.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Generate(ctx context.Context, src string, k int, opts Options) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	if fixtures, ok := mockFixtures[src]; ok {
		candidates := append([]string(nil), fixtures...)
		// Pad with diacritic-stripped variants when more are asked for.
		for i := 0; len(candidates) < k; i++ {
			candidates = append(candidates, textutil.StripDiacritics(fixtures[i%len(fixtures)]))
		}
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		return candidates, nil
	}

	generic := []string{
		"Hawaiian translation of: " + src,
		"Ke " + src + " nei.",
		"ʻO ka " + src + ".",
		"Ua " + src + ".",
	}
	candidates := make([]string, 0, k)
	for i := 0; i < k; i++ {
		if i < len(generic) {
			candidates = append(candidates, generic[i])
		} else {
			candidates = append(candidates, fmt.Sprintf("Translation %d: %s", i+1, src))
		}
	}
	return candidates, nil
}
