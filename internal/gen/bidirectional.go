package gen

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mokulua/rlvr/internal/textutil"
)

// hawaiianFunctionWords are the closed-class words whose density marks
// unmarked text as Hawaiian.
var hawaiianFunctionWords = map[string]struct{}{
	"ka": {}, "ke": {}, "na": {}, "nā": {}, "i": {}, "o": {}, "a": {},
	"ua": {}, "e": {}, "he": {}, "ma": {}, "no": {}, "mai": {}, "nei": {},
	"ana": {}, "la": {}, "lā": {}, "ia": {}, "kona": {}, "kana": {},
	"kou": {}, "kau": {}, "koʻu": {}, "kaʻu": {},
}

// hawaiianMarkerChars immediately identify Hawaiian orthography.
const hawaiianMarkerChars = textutil.Okina + "āēīōūĀĒĪŌŪ"

// DetectDirection guesses the translation direction from orthography:
// okina or kahakō anywhere means Hawaiian source, otherwise a Hawaiian
// function-word density above 20% does.
func DetectDirection(src string) string {
	if strings.ContainsAny(src, hawaiianMarkerChars) {
		return DirectionHawToEn
	}

	words := textutil.Tokenize(strings.ToLower(src))
	if len(words) == 0 {
		return DirectionEnToHaw
	}
	hits := 0
	total := 0
	for _, w := range words {
		if len(w) == 1 && !unicode.IsLetter(rune(w[0])) {
			continue
		}
		total++
		if _, ok := hawaiianFunctionWords[w]; ok {
			hits++
		}
	}
	if total > 0 && float64(hits)/float64(total) > 0.2 {
		return DirectionHawToEn
	}
	return DirectionEnToHaw
}

// Bidirectional wraps an inner generator with a prompt pair for each
// direction, auto-detection, per-candidate temperature perturbation and
// output cleanup for English targets.
type Bidirectional struct {
	inner           Generator
	enToHawPrompt   string
	hawToEnPrompt   string
	baseTemperature float64
}

func NewBidirectional(inner Generator, enToHawPrompt, hawToEnPrompt string, baseTemperature float64) *Bidirectional {
	if enToHawPrompt == "" {
		enToHawPrompt = "Translate the following English text to Hawaiian:"
	}
	if hawToEnPrompt == "" {
		hawToEnPrompt = "Translate the following Hawaiian text to English:"
	}
	if baseTemperature <= 0 {
		baseTemperature = 0.7
	}
	return &Bidirectional{
		inner:           inner,
		enToHawPrompt:   enToHawPrompt,
		hawToEnPrompt:   hawToEnPrompt,
		baseTemperature: baseTemperature,
	}
}

func (b *Bidirectional) Generate(ctx context.Context, src string, k int, opts Options) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	direction := opts.Direction
	if direction == "" || direction == DirectionAuto {
		direction = DetectDirection(src)
	}

	prompt := opts.Prompt
	if prompt == "" {
		if direction == DirectionHawToEn {
			prompt = b.hawToEnPrompt
		} else {
			prompt = b.enToHawPrompt
		}
	}

	base := b.baseTemperature
	if opts.Temperature > 0 {
		base = opts.Temperature
	}

	candidates := make([]string, 0, k)
	for i := 0; i < k; i++ {
		callOpts := opts
		callOpts.Prompt = prompt
		callOpts.Direction = direction
		callOpts.Temperature = perturbTemperature(base, i)

		got, err := b.inner.Generate(ctx, src, 1, callOpts)
		if err != nil {
			return nil, err
		}
		for _, c := range got {
			if direction == DirectionHawToEn {
				c = postProcessEnglish(c)
			}
			candidates = append(candidates, c)
		}
	}

	candidates = Dedup(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// perturbTemperature spreads candidate i's temperature: small steps for
// the first few draws, a larger jump afterwards, capped at 1.0.
func perturbTemperature(base float64, i int) float64 {
	var t float64
	if i < 4 {
		t = base + float64(i)*0.05
	} else {
		t = base + 0.2
	}
	if t > 1.0 {
		t = 1.0
	}
	return t
}

// postProcessEnglish cleans a model's English output: strips wrapping
// quotes, capitalizes the first letter and ensures terminal punctuation.
func postProcessEnglish(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	if text == "" {
		return text
	}

	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	text = string(runes)

	switch runes[len(runes)-1] {
	case '.', '!', '?':
	default:
		text += "."
	}
	return text
}
