package metric

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var spellingWordRe = regexp.MustCompile(`\b\w+(?:'t|'s|'re|'ve|'ll|'d)?\b`)

// Built-in fix-ups merged over the loaded misspelling map.
var contractionFixes = map[string]string{
	"dont": "don't", "doesnt": "doesn't", "didnt": "didn't",
	"wont": "won't", "cant": "can't", "couldnt": "couldn't",
	"shouldnt": "shouldn't", "wouldnt": "wouldn't", "isnt": "isn't",
	"arent": "aren't", "wasnt": "wasn't", "werent": "weren't",
	"hasnt": "hasn't", "havent": "haven't", "hadnt": "hadn't",
}

var doubledLetterFixes = map[string]string{
	"untill":      "until",
	"allways":     "always",
	"wellcome":    "welcome",
	"tommorrow":   "tomorrow",
	"dissappoint": "disappoint",
	"occassion":   "occasion",
}

type homophoneRule struct {
	re         *regexp.Regexp
	found      string
	context    string
	suggestion string
}

// Contextual homophone heuristics. These emit warnings, never errors.
var homophoneRules = []homophoneRule{
	{regexp.MustCompile(`\btheir\s+(is|are|was|were)\b`), "their", "before a verb", "they're (they are)"},
	{regexp.MustCompile(`\bover\s+their\b`), "their", `after "over"`, "there"},
	{regexp.MustCompile(`\byour\s+(going|coming|doing|making|taking)`), "your", "before verb+ing", "you're (you are)"},
	{regexp.MustCompile(`\bits\s+(been|going|coming|getting|become)`), "its", "before auxiliary/verb", "it's (it is/has)"},
}

// homophonePluralException suppresses the "over their" rule when a
// plural noun follows ("over their heads" is fine).
var homophonePluralException = regexp.MustCompile(`\bover\s+their\s+\w+s\b`)

// Spelling checks each word against a loaded misspelling map plus the
// built-in contraction and doubled-letter fix-ups.
type Spelling struct {
	corrections map[string]string
	homophones  map[string]any
}

// misspellingsFile is the JSON shape of the common_misspellings resource.
type misspellingsFile struct {
	CommonErrors map[string]string `json:"common_errors"`
	Homophones   map[string]any    `json:"homophones"`
}

func NewSpelling(cfg Config) (Metric, error) {
	m := &Spelling{corrections: make(map[string]string)}

	path, err := cfg.ResourcePath("common_misspellings")
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading misspellings: %w", err)
	}
	var file misspellingsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing misspellings: %w", err)
	}

	for bad, good := range file.CommonErrors {
		m.corrections[strings.ToLower(bad)] = good
	}
	for bad, good := range doubledLetterFixes {
		m.corrections[bad] = good
	}
	m.homophones = file.Homophones

	return m, nil
}

func (m *Spelling) Name() string    { return "spelling" }
func (m *Spelling) Version() string { return "1.0" }

func (m *Spelling) checkWord(word string) map[string]any {
	clean := strings.Trim(word, `.,!?;:"'`)
	lower := strings.ToLower(clean)

	if correction, ok := m.corrections[lower]; ok {
		return map[string]any{
			"misspelled": clean,
			"correction": correction,
			"type":       "common_misspelling",
		}
	}
	if correction, ok := contractionFixes[lower]; ok {
		return map[string]any{
			"misspelled": clean,
			"correction": correction,
			"type":       "missing_apostrophe",
		}
	}
	return nil
}

func (m *Spelling) Score(text, src string) Result {
	var errs, warnings []map[string]any
	words := spellingWordRe.FindAllString(text, -1)

	for _, word := range words {
		if e := m.checkWord(word); e != nil {
			e["position"] = strings.Index(text, word)
			errs = append(errs, e)
		}
	}

	lower := strings.ToLower(text)
	for _, rule := range homophoneRules {
		if !rule.re.MatchString(lower) {
			continue
		}
		if rule.context == `after "over"` && homophonePluralException.MatchString(lower) {
			continue
		}
		warnings = append(warnings, map[string]any{
			"found":      rule.found,
			"context":    rule.context,
			"suggestion": rule.suggestion,
			"type":       "homophone_warning",
		})
	}

	denom := len(words)
	if denom == 0 {
		denom = 1
	}
	score := 1.0 - float64(len(errs))/float64(denom)

	shownErrs := errs
	if len(shownErrs) > 10 {
		shownErrs = shownErrs[:10]
	}
	shownWarnings := warnings
	if len(shownWarnings) > 5 {
		shownWarnings = shownWarnings[:5]
	}

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   clamp(score),
		Details: map[string]any{
			"words_checked": len(words),
			"errors_found":  len(errs),
			"errors":        shownErrs,
			"warnings":      shownWarnings,
		},
	}
}
