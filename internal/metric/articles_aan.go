package metric

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	aAnPairRe       = regexp.MustCompile(`(?i)\b(an?)\s+(\w+)`)
	silentHRe       = regexp.MustCompile(`(?i)^(hour|honest|honor|honour|heir)`)
	uAsConsonantRe  = regexp.MustCompile(`(?i)^(uni|use|usu|uti|ufo)`)
)

// ArticlesAAn checks English indefinite article choice by first-letter
// vowel test, two override lists from the resource file, and the
// silent-h / u-as-consonant prefix families.
type ArticlesAAn struct {
	useA  map[string]struct{} // vowel-spelled but consonant-sounding (university, one)
	useAn map[string]struct{} // consonant-spelled but vowel-sounding (hour, honest)
}

// NewArticlesAAn loads the exception file. Section headers are comment
// lines containing `use "a"` or `use "an"`; entries are one word per line.
func NewArticlesAAn(cfg Config) (Metric, error) {
	m := &ArticlesAAn{
		useA:  make(map[string]struct{}),
		useAn: make(map[string]struct{}),
	}

	path, err := cfg.ResourcePath("article_exceptions")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening article exceptions: %w", err)
	}
	defer f.Close()

	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			if strings.Contains(line, `use "a"`) {
				section = "a"
			} else if strings.Contains(line, `use "an"`) {
				section = "an"
			}
			continue
		}
		switch section {
		case "a":
			m.useA[strings.ToLower(line)] = struct{}{}
		case "an":
			m.useAn[strings.ToLower(line)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading article exceptions: %w", err)
	}

	return m, nil
}

func (m *ArticlesAAn) Name() string    { return "articles_a_an" }
func (m *ArticlesAAn) Version() string { return "1.0" }

func (m *ArticlesAAn) shouldUseAn(word string) bool {
	if word == "" {
		return false
	}
	lower := strings.ToLower(word)
	if _, ok := m.useAn[lower]; ok {
		return true
	}
	if _, ok := m.useA[lower]; ok {
		return false
	}
	if silentHRe.MatchString(word) {
		return true
	}
	if lower[0] == 'u' && uAsConsonantRe.MatchString(word) {
		return false
	}
	return strings.ContainsRune("aeiouAEIOU", rune(word[0]))
}

func (m *ArticlesAAn) Score(text, src string) Result {
	var errs []map[string]any
	checks := 0

	for _, match := range aAnPairRe.FindAllStringSubmatchIndex(text, -1) {
		article := strings.ToLower(text[match[2]:match[3]])
		word := text[match[4]:match[5]]
		pos := match[0]
		checks++

		wantAn := m.shouldUseAn(word)
		switch {
		case article == "a" && wantAn:
			errs = append(errs, map[string]any{
				"found":     "a " + word,
				"should_be": "an " + word,
				"position":  pos,
				"type":      "a_should_be_an",
			})
		case article == "an" && !wantAn:
			errs = append(errs, map[string]any{
				"found":     "an " + word,
				"should_be": "a " + word,
				"position":  pos,
				"type":      "an_should_be_a",
			})
		}
	}

	denom := checks
	if denom == 0 {
		denom = 1
	}
	score := 1.0 - float64(len(errs))/float64(denom)

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   clamp(score),
		Details: map[string]any{
			"checked":    checks,
			"errors":     len(errs),
			"error_list": errs,
		},
	}
}
