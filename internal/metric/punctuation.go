package metric

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	multiPunctRe    = regexp.MustCompile(`[.!?]{2,}`)
	terminalRunRe   = regexp.MustCompile(`[.!?]+`)
	sentenceBreakRe = regexp.MustCompile(`([.!?])\s+`)
	randomCapsRe    = regexp.MustCompile(`\b\w*[a-z][A-Z]\w*\b`)
	commaNoSpaceRe  = regexp.MustCompile(`,\S`)
	spaceCommaRe    = regexp.MustCompile(` ,`)
	doubleCommaRe   = regexp.MustCompile(`,,+`)
)

var commonAbbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"vs": {}, "etc": {}, "inc": {}, "ltd": {}, "corp": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {},
	"aug": {}, "sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
	"mon": {}, "tue": {}, "wed": {}, "thu": {}, "fri": {}, "sat": {}, "sun": {},
	"st": {}, "nd": {}, "rd": {}, "th": {},
}

// Punctuation checks terminal punctuation, capitalization and comma
// hygiene. The denominator is an estimate: 2 checks per sentence plus
// one per comma plus one.
type Punctuation struct{}

func NewPunctuation(cfg Config) (Metric, error) {
	return &Punctuation{}, nil
}

func (m *Punctuation) Name() string    { return "punctuation" }
func (m *Punctuation) Version() string { return "1.0" }

func (m *Punctuation) checkSentenceEndings(text string) []map[string]any {
	var errs []map[string]any
	stripped := strings.TrimSpace(text)

	if stripped != "" && !strings.ContainsAny(string(stripped[len(stripped)-1]), ".!?") {
		errs = append(errs, map[string]any{
			"type":       "missing_end_punctuation",
			"position":   len(stripped),
			"suggestion": "Add period, question mark, or exclamation point",
		})
	}

	if strings.HasSuffix(stripped, `".`) || strings.HasSuffix(stripped, `'.`) {
		errs = append(errs, map[string]any{
			"type":       "incorrect_quote_punctuation",
			"position":   len(stripped) - 2,
			"found":      stripped[len(stripped)-2:],
			"suggestion": `Move period inside quotes: ."`,
		})
	}

	for _, match := range multiPunctRe.FindAllStringIndex(text, -1) {
		punct := text[match[0]:match[1]]
		if punct == "?!" || punct == "!?" || punct == "..." {
			continue
		}
		errs = append(errs, map[string]any{
			"type":       "multiple_punctuation",
			"found":      punct,
			"position":   match[0],
			"suggestion": punct[:1],
		})
	}

	return errs
}

// splitSentences breaks on whitespace that follows terminal
// punctuation, keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	marked := sentenceBreakRe.ReplaceAllString(text, "$1\x00")
	return strings.Split(marked, "\x00")
}

func (m *Punctuation) checkCapitalization(text string) []map[string]any {
	var errs []map[string]any
	stripped := strings.TrimSpace(text)

	if stripped != "" {
		first := []rune(stripped)[0]
		if unicode.IsLower(first) {
			errs = append(errs, map[string]any{
				"type":       "missing_capital_start",
				"position":   0,
				"suggestion": "Capitalize first letter",
			})
		}
	}

	sentences := splitSentences(text)
	position := 0
	for i, sent := range sentences {
		trimmed := strings.TrimSpace(sent)
		if trimmed != "" && i > 0 {
			prev := strings.TrimSpace(sentences[i-1])
			lastWord := ""
			if fields := strings.Fields(prev); len(fields) > 0 {
				lastWord = strings.ToLower(strings.TrimRight(fields[len(fields)-1], "."))
			}
			_, abbrev := commonAbbreviations[lastWord]
			if !abbrev && unicode.IsLower([]rune(trimmed)[0]) {
				excerpt := trimmed
				if len(excerpt) > 30 {
					excerpt = excerpt[:30] + "..."
				}
				errs = append(errs, map[string]any{
					"type":       "missing_capital_after_period",
					"position":   position,
					"sentence":   excerpt,
					"suggestion": "Capitalize first letter of sentence",
				})
			}
		}
		position += len(sent) + 1
	}

	for _, match := range randomCapsRe.FindAllStringIndex(text, -1) {
		word := text[match[0]:match[1]]
		// camelCase brand prefixes (iPhone, eBay) get a pass.
		branded := (strings.HasPrefix(word, "i") || strings.HasPrefix(word, "e")) && len(word) >= 4
		if !branded {
			errs = append(errs, map[string]any{
				"type":       "unexpected_capital",
				"word":       word,
				"position":   match[0],
				"suggestion": strings.ToLower(word),
			})
		}
	}

	return errs
}

func (m *Punctuation) checkCommas(text string) []map[string]any {
	var errs []map[string]any

	for _, match := range commaNoSpaceRe.FindAllStringIndex(text, -1) {
		next := rune(text[match[0]+1])
		if unicode.IsLetter(next) || unicode.IsDigit(next) {
			lo := match[0] - 10
			if lo < 0 {
				lo = 0
			}
			hi := match[1] + 10
			if hi > len(text) {
				hi = len(text)
			}
			errs = append(errs, map[string]any{
				"type":     "missing_space_after_comma",
				"position": match[0],
				"context":  text[lo:hi],
			})
		}
	}

	for _, match := range spaceCommaRe.FindAllStringIndex(text, -1) {
		errs = append(errs, map[string]any{
			"type":       "space_before_comma",
			"position":   match[0],
			"suggestion": "Remove space before comma",
		})
	}

	for _, match := range doubleCommaRe.FindAllStringIndex(text, -1) {
		errs = append(errs, map[string]any{
			"type":       "double_comma",
			"position":   match[0],
			"found":      text[match[0]:match[1]],
			"suggestion": ",",
		})
	}

	return errs
}

func (m *Punctuation) Score(text, src string) Result {
	sentenceErrs := m.checkSentenceEndings(text)
	capitalErrs := m.checkCapitalization(text)
	commaErrs := m.checkCommas(text)

	all := make([]map[string]any, 0, len(sentenceErrs)+len(capitalErrs)+len(commaErrs))
	all = append(all, sentenceErrs...)
	all = append(all, capitalErrs...)
	all = append(all, commaErrs...)

	sentences := len(terminalRunRe.Split(strings.TrimSpace(text), -1))
	commas := strings.Count(text, ",")
	totalChecks := sentences*2 + commas + 1

	score := 1.0 - float64(len(all))/float64(totalChecks)

	shown := all
	if len(shown) > 10 {
		shown = shown[:10]
	}

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   clamp(score),
		Details: map[string]any{
			"total_errors":          len(all),
			"sentence_errors":       len(sentenceErrs),
			"capitalization_errors": len(capitalErrs),
			"comma_errors":          len(commaErrs),
			"errors":                shown,
		},
	}
}
