// Package textutil provides Unicode-aware text normalization and
// tokenization for Hawaiian and English scoring.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Okina is the Hawaiian glottal stop letter (U+02BB). It is a letter,
// not punctuation, and must survive normalization.
const Okina = "ʻ"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Word tokens keep apostrophes, the okina and macron vowels so that
	// Hawaiian words tokenize as single units.
	tokenRe = regexp.MustCompile(`[\pL\pN'` + "`" + `\x{02bb}āēīōūĀĒĪŌŪ]+|[.!?;,:]`)

	// Apostrophe shapes that show up in place of a proper okina.
	apostropheVariants = []string{"'", "‘", "’", "`", "ʼ", "′"}

	macronReplacer = strings.NewReplacer(
		"ā", "a", "ē", "e", "ī", "i", "ō", "o", "ū", "u",
		"Ā", "A", "Ē", "E", "Ī", "I", "Ō", "O", "Ū", "U",
	)
)

// Normalize applies NFC, collapses whitespace runs to a single space and
// trims. Unless preserveCase is set the result is lowercased.
func Normalize(text string, preserveCase bool) string {
	text = norm.NFC.String(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if !preserveCase {
		text = strings.ToLower(text)
	}
	return text
}

// NormalizeVariants maps the apostrophe family to the canonical okina
// and re-composes combining diacritics into precomposed form.
func NormalizeVariants(text string) string {
	for _, v := range apostropheVariants {
		text = strings.ReplaceAll(text, v, Okina)
	}
	return norm.NFC.String(text)
}

// StripDiacritics removes the okina and replaces macron vowels with
// their plain counterparts, for base-form comparison.
func StripDiacritics(text string) string {
	text = strings.ReplaceAll(text, Okina, "")
	return macronReplacer.Replace(text)
}

// Tokenize yields word tokens and standalone sentence punctuation.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(text, -1)
}

// Token is a tokenized span with its byte offsets in the original text.
type Token struct {
	Text  string
	Start int
	End   int
}

// TokenizePositions is Tokenize with byte positions preserved, for
// metrics that report exact error locations.
func TokenizePositions(text string) []Token {
	idx := tokenRe.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(idx))
	for _, span := range idx {
		tokens = append(tokens, Token{Text: text[span[0]:span[1]], Start: span[0], End: span[1]})
	}
	return tokens
}

// TrimWordPunct strips sentence punctuation and quotes from the edges
// of a word, keeping the okina intact.
func TrimWordPunct(word string) string {
	return strings.Trim(word, `.,!?;:"'`)
}
