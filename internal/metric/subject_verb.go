package metric

import (
	"regexp"
	"strings"
)

// Subject classifications produced by the surface heuristics below.
const (
	subjFirstSingular = "first_person_singular"
	subjSecondPerson  = "second_person"
	subjSingular      = "singular"
	subjPlural        = "plural"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

	// Ordered surface patterns for locating a (subject, verb) pair.
	// The first passing match of each pattern contributes one check.
	svPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(I|you|he|she|it|we|they)\s+(\w+)`),
		regexp.MustCompile(`(?i)\b(a|an|the)\s+(\w+)\s+(\w+)`),
		regexp.MustCompile(`(?i)\b(this|that|these|those|every|each)\s+(\w+)\s+(\w+)`),
		regexp.MustCompile(`(?i)^(\w+)\s+(\w+)`),
	}

	svStopWords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
		"with": {}, "to": {}, "for": {}, "in": {}, "on": {}, "at": {},
	}

	singularSubjects = map[string]struct{}{
		"he": {}, "she": {}, "it": {}, "this": {}, "that": {},
		"everyone": {}, "everybody": {}, "someone": {}, "somebody": {},
		"anyone": {}, "anybody": {}, "no one": {}, "nobody": {},
		"each": {}, "either": {}, "neither": {}, "one": {}, "every": {},
		"a": {}, "an": {},
	}

	pluralSubjects = map[string]struct{}{
		"they": {}, "we": {}, "these": {}, "those": {}, "many": {},
		"few": {}, "several": {}, "both": {}, "all": {}, "some": {}, "most": {},
	}

	thirdSingularPronouns = map[string]struct{}{"he": {}, "she": {}, "it": {}}

	// Modals and already-inflected forms exempt from the missing -s check.
	noSExempt = map[string]struct{}{
		"was": {}, "is": {}, "has": {}, "does": {}, "can": {}, "will": {},
		"would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	}
)

// SubjectVerbAgreement flags disagreement between a heuristically
// identified subject and its verb. Known-lossy; weight it modestly.
type SubjectVerbAgreement struct{}

func NewSubjectVerbAgreement(cfg Config) (Metric, error) {
	return &SubjectVerbAgreement{}, nil
}

func (m *SubjectVerbAgreement) Name() string    { return "subject_verb_agreement" }
func (m *SubjectVerbAgreement) Version() string { return "1.0" }

func subjectType(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))

	if s == "i" {
		return subjFirstSingular
	}
	if s == "you" {
		return subjSecondPerson
	}
	if _, ok := singularSubjects[s]; ok {
		return subjSingular
	}
	if _, ok := pluralSubjects[s]; ok {
		return subjPlural
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return subjPlural
	}
	if strings.Contains(s, " and ") {
		return subjPlural
	}
	return subjSingular
}

func addSToVerb(verb string) string {
	lower := strings.ToLower(verb)
	if strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])) {
		return verb[:len(verb)-1] + "ies"
	}
	for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(lower, suffix) {
			return verb + "es"
		}
	}
	return verb + "s"
}

// checkAgreement returns a populated error map when the pair disagrees.
func checkAgreement(subject, verb string) map[string]any {
	st := subjectType(subject)
	v := strings.ToLower(verb)
	subjLower := strings.ToLower(subject)
	_, thirdSingular := thirdSingularPronouns[subjLower]

	mkErr := func(kind, suggestion string) map[string]any {
		return map[string]any{
			"error":      kind,
			"subject":    subject,
			"verb":       verb,
			"suggestion": suggestion,
		}
	}

	switch v {
	case "is", "was", "are", "were", "am":
		if st == subjSingular && (v == "are" || v == "were") {
			suggestion := "was"
			if v == "are" {
				suggestion = "is"
			}
			return mkErr("singular_subject_plural_verb", suggestion)
		}
		if st == subjPlural && (v == "is" || v == "was") {
			suggestion := "were"
			if v == "is" {
				suggestion = "are"
			}
			return mkErr("plural_subject_singular_verb", suggestion)
		}
		if st == subjFirstSingular && v != "am" && v != "was" {
			suggestion := "was"
			if v == "is" || v == "are" {
				suggestion = "am"
			}
			return mkErr("first_person_wrong_verb", suggestion)
		}
		return nil
	case "has", "have":
		if (st == subjSingular || st == subjFirstSingular) && v == "have" && thirdSingular {
			return mkErr("third_person_singular_have", "has")
		}
		if st == subjPlural && v == "has" {
			return mkErr("plural_subject_has", "have")
		}
		return nil
	case "does", "do":
		if st == subjPlural && v == "does" {
			return mkErr("plural_subject_does", "do")
		}
		if st == subjSingular && thirdSingular && v == "do" {
			return mkErr("third_person_singular_do", "does")
		}
		return nil
	}

	if st == subjPlural && strings.HasSuffix(v, "s") && !strings.HasSuffix(v, "ss") {
		return mkErr("plural_subject_s_verb", strings.TrimSuffix(verb, "s"))
	}
	if st == subjSingular && thirdSingular && !strings.HasSuffix(v, "s") {
		if _, exempt := noSExempt[v]; !exempt {
			return mkErr("third_person_singular_missing_s", addSToVerb(verb))
		}
	}
	return nil
}

func (m *SubjectVerbAgreement) Score(text, src string) Result {
	var errs []map[string]any
	checks := 0

	for _, sent := range sentenceSplitRe.Split(strings.TrimSpace(text), -1) {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		excerpt := sent
		if len(excerpt) > 50 {
			excerpt = excerpt[:50] + "..."
		}

		for _, pattern := range svPatterns {
			for _, match := range pattern.FindAllStringSubmatch(sent, -1) {
				var subject, verb string
				groups := match[1:]
				switch len(groups) {
				case 2:
					subject, verb = groups[0], groups[1]
				case 3:
					subject = groups[0] + " " + groups[1]
					verb = groups[2]
				default:
					continue
				}

				if _, stop := svStopWords[strings.ToLower(verb)]; stop {
					continue
				}

				checks++
				if e := checkAgreement(subject, verb); e != nil {
					e["sentence"] = excerpt
					errs = append(errs, e)
				}
				break
			}
		}
	}

	denom := checks
	if denom == 0 {
		denom = 1
	}
	score := 1.0 - float64(len(errs))/float64(denom)

	shown := errs
	if len(shown) > 5 {
		shown = shown[:5]
	}

	return Result{
		Name:    m.Name(),
		Version: m.Version(),
		Score:   clamp(score),
		Details: map[string]any{
			"checks_performed": checks,
			"errors_found":     len(errs),
			"errors":           shown,
		},
	}
}
