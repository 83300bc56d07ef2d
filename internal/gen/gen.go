// Package gen defines the candidate generator interface and its
// adapters: mock fixtures, OpenAI-compatible chat completion, the
// bidirectional wrapper and the curated showcase panel.
package gen

import (
	"context"
	"strings"
)

// Translation directions understood by the bidirectional adapter.
const (
	DirectionAuto    = "auto"
	DirectionEnToHaw = "en_to_haw"
	DirectionHawToEn = "haw_to_en"
)

// Options tune a single Generate call. Zero values mean "use the
// adapter's defaults".
type Options struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Direction   string
}

// Generator produces up to k candidate translations for src. k is an
// upper bound: adapters that deduplicate may return fewer. A failing
// upstream call yields an error-string candidate, not an error, so one
// bad call never kills a batch; Generate itself errors only on invalid
// arguments or a cancelled context.
type Generator interface {
	Generate(ctx context.Context, src string, k int, opts Options) ([]string, error)
}

// Translate is the single-candidate convenience wrapper.
func Translate(ctx context.Context, g Generator, src string, opts Options) (string, error) {
	candidates, err := g.Generate(ctx, src, 1, opts)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", nil
	}
	return candidates[0], nil
}

// FormatPrompt substitutes {src} into the template, or appends the
// default input/output scaffold when the placeholder is absent.
func FormatPrompt(template, src string) string {
	if template == "" {
		template = "Translate the following English text to Hawaiian:"
	}
	if strings.Contains(template, "{src}") {
		return strings.ReplaceAll(template, "{src}", src)
	}
	return template + "\n\nInput: " + src + "\nOutput:"
}

// Dedup removes duplicate candidates preserving first-seen order.
func Dedup(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
