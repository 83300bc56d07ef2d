package metric

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const defaultVerbPattern = `[A-Za-zāēīōūĀĒĪŌŪʻ][a-zāēīōūʻ]*`

// tamRules is the JSON shape of the TAM regex resource file. Patterns
// contain a literal VERB placeholder substituted at load time.
type tamRules struct {
	Neg struct {
		Marker  string   `json:"marker"`
		Valid   []string `json:"valid"`
		Invalid []string `json:"invalid"`
	} `json:"neg"`
	Aff struct {
		Valid []string `json:"valid"`
	} `json:"aff"`
	VerbPattern string `json:"verb_pattern"`
}

type tamPattern struct {
	template string
	re       *regexp.Regexp
}

// TAMParticles checks tense-aspect-mood particle usage, with special
// attention to the forbidden negation + realized-past combination.
type TAMParticles struct {
	negMarker  *regexp.Regexp
	negValid   []tamPattern
	negInvalid []tamPattern
	affValid   []tamPattern
}

func NewTAMParticles(cfg Config) (Metric, error) {
	path, err := cfg.ResourcePath("tam_regex")
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading TAM rules: %w", err)
	}

	var rules tamRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parsing TAM rules: %w", err)
	}

	verb := rules.VerbPattern
	if verb == "" {
		verb = defaultVerbPattern
	}

	m := &TAMParticles{}
	m.negMarker, err = regexp.Compile("(?i)" + rules.Neg.Marker)
	if err != nil {
		return nil, fmt.Errorf("compiling negation marker: %w", err)
	}
	if m.negValid, err = compileTAM(rules.Neg.Valid, verb); err != nil {
		return nil, err
	}
	if m.negInvalid, err = compileTAM(rules.Neg.Invalid, verb); err != nil {
		return nil, err
	}
	if m.affValid, err = compileTAM(rules.Aff.Valid, verb); err != nil {
		return nil, err
	}
	return m, nil
}

func compileTAM(templates []string, verb string) ([]tamPattern, error) {
	patterns := make([]tamPattern, 0, len(templates))
	for _, tmpl := range templates {
		re, err := regexp.Compile("(?i)" + strings.ReplaceAll(tmpl, "VERB", verb))
		if err != nil {
			return nil, fmt.Errorf("compiling TAM pattern %q: %w", tmpl, err)
		}
		patterns = append(patterns, tamPattern{template: tmpl, re: re})
	}
	return patterns, nil
}

func matchingTemplates(patterns []tamPattern, text string) []string {
	var matched []string
	for _, p := range patterns {
		if p.re.MatchString(text) {
			matched = append(matched, p.template)
		}
	}
	return matched
}

func (m *TAMParticles) Name() string    { return "tam_particles" }
func (m *TAMParticles) Version() string { return "1.0" }

func (m *TAMParticles) Score(text, src string) Result {
	if !m.negMarker.MatchString(text) {
		// Affirmative sentences are lenient: a stative sentence with no
		// TAM particle at all is still valid Hawaiian.
		valid := matchingTemplates(m.affValid, text)
		return Result{
			Name:    m.Name(),
			Version: m.Version(),
			Score:   1.0,
			Details: map[string]any{
				"has_negative":   false,
				"valid":          true,
				"valid_patterns": valid,
				"details":        fmt.Sprintf("Found %d TAM patterns", len(valid)),
			},
		}
	}

	valid := matchingTemplates(m.negValid, text)
	invalid := matchingTemplates(m.negInvalid, text)

	var score float64
	switch {
	case len(invalid) > 0:
		// Hard fail, e.g. negation followed by the realized-past "ua".
		score = 0.0
	case len(valid) > 0:
		score = 1.0
	default:
		score = 0.5
	}

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   score,
		Details: map[string]any{
			"has_negative":     true,
			"valid":            len(valid) > 0 && len(invalid) == 0,
			"valid_patterns":   valid,
			"invalid_patterns": invalid,
			"details":          fmt.Sprintf("Found %d valid, %d invalid patterns", len(valid), len(invalid)),
		},
	}
}
