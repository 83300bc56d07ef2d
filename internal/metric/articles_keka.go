package metric

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mokulua/rlvr/internal/textutil"
)

// ArticlesKeKa checks Hawaiian definite article choice: ke before words
// whose first phoneme is k, e, a or o (the KEAO rule) plus a loaded
// exception list, ka before everything else.
type ArticlesKeKa struct {
	keExceptions map[string]struct{}
}

func NewArticlesKeKa(cfg Config) (Metric, error) {
	path, err := cfg.ResourcePath("ke_exceptions")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ke exceptions: %w", err)
	}
	defer f.Close()

	exceptions := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exceptions[strings.ToLower(textutil.NormalizeVariants(line))] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ke exceptions: %w", err)
	}

	return &ArticlesKeKa{keExceptions: exceptions}, nil
}

func (m *ArticlesKeKa) Name() string    { return "articles_ke_ka" }
func (m *ArticlesKeKa) Version() string { return "1.0" }

func (m *ArticlesKeKa) shouldUseKe(word string) bool {
	normalized := strings.ToLower(textutil.TrimWordPunct(textutil.NormalizeVariants(word)))
	if normalized == "" {
		return false
	}
	if _, ok := m.keExceptions[normalized]; ok {
		return true
	}
	switch []rune(normalized)[0] {
	// Okina-initial words pattern with ke as well.
	case 'k', 'e', 'a', 'o', 'ʻ':
		return true
	}
	return false
}

func (m *ArticlesKeKa) Score(text, src string) Result {
	words := strings.Fields(text)

	type pair struct {
		article  string
		word     string
		correct  bool
		shouldBe string
		reason   string
	}
	var pairs []pair
	correct := 0

	for i := 0; i+1 < len(words); i++ {
		article := strings.ToLower(textutil.TrimWordPunct(words[i]))
		if article != "ke" && article != "ka" {
			continue
		}
		next := words[i+1]
		useKe := m.shouldUseKe(next)

		p := pair{article: words[i], word: next}
		if useKe {
			p.shouldBe = "ke"
		} else {
			p.shouldBe = "ka"
		}
		p.correct = article == p.shouldBe
		normalized := strings.ToLower(textutil.TrimWordPunct(textutil.NormalizeVariants(next)))
		if _, ok := m.keExceptions[normalized]; ok {
			p.reason = "exception"
		} else {
			p.reason = "KEAO rule"
		}
		pairs = append(pairs, p)
		if p.correct {
			correct++
		}
	}

	if len(pairs) == 0 {
		return Result{
			Name:    m.Name(),
			Version: m.Version(),
			Score:   1.0,
			Details: map[string]any{"checked": 0, "correct": 0, "pairs": []any{}},
		}
	}

	details := make([]map[string]any, 0, len(pairs))
	var errs []map[string]any
	for _, p := range pairs {
		d := map[string]any{
			"article":   p.article,
			"word":      p.word,
			"correct":   p.correct,
			"should_be": p.shouldBe,
			"reason":    p.reason,
		}
		details = append(details, d)
		if !p.correct {
			errs = append(errs, d)
		}
	}

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   clamp(float64(correct) / float64(len(pairs))),
		Details: map[string]any{
			"checked": len(pairs),
			"correct": correct,
			"pairs":   details,
			"errors":  errs,
		},
	}
}
