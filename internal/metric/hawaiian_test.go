package metric

import (
	"os"
	"path/filepath"
	"testing"
)

func writeResource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestDiacritics(t *testing.T) Metric {
	t.Helper()
	dir := t.TempDir()
	lex := writeResource(t, dir, "lexicon.txt", `# canonical spellings
hōʻike
hawaiʻi
nā
pāʻani
ʻaʻole
`)
	m, err := NewDiacritics(Config{Code: "haw", Resources: map[string]string{"lex_diacritics": lex}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDiacriticsCanonicalSpelling(t *testing.T) {
	m := newTestDiacritics(t)

	r := m.Score("Ua pau ka hōʻike.", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0 (details %v)", r.Score, r.Details)
	}
	if r.Details["checked"] != 1 {
		t.Errorf("checked = %v, want 1", r.Details["checked"])
	}
}

func TestDiacriticsMissingMarks(t *testing.T) {
	m := newTestDiacritics(t)

	r := m.Score("Ua pau ka hoike.", "")
	if r.Score != 0.0 {
		t.Errorf("score = %v, want 0.0", r.Score)
	}
	errs := r.Details["errors"].([]map[string]any)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want 1 entry", errs)
	}
	if errs[0]["required"] != "hōʻike" {
		t.Errorf("required = %v, want hōʻike", errs[0]["required"])
	}
}

func TestDiacriticsPartialCredit(t *testing.T) {
	m := newTestDiacritics(t)

	// One of two lexicon words spelled correctly.
	r := m.Score("Ke hele nei ka hoike i Hawaiʻi.", "")
	if r.Score != 0.5 {
		t.Errorf("score = %v, want 0.5 (details %v)", r.Score, r.Details)
	}
}

func TestDiacriticsVacuousPass(t *testing.T) {
	m := newTestDiacritics(t)

	r := m.Score("Aloha kakahiaka.", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", r.Score)
	}
	if r.Details["checked"] != 0 {
		t.Errorf("checked = %v, want 0", r.Details["checked"])
	}
}

func TestDiacriticsApostropheVariantsAccepted(t *testing.T) {
	m := newTestDiacritics(t)

	// ASCII apostrophe in place of the okina still counts as correct.
	r := m.Score("Ua pau ka hō'ike.", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0 (details %v)", r.Score, r.Details)
	}
}

const tamRulesJSON = `{
  "neg": {
    "marker": "ʻaʻole",
    "valid": [
      "ʻaʻole\\s+(?:au|ʻoe|ia|mākou|kākou|lākou)?\\s*i\\s+VERB",
      "ʻaʻole\\s+(?:au|ʻoe|ia|mākou|kākou|lākou)?\\s*e\\s+VERB",
      "ʻaʻole\\s+e\\s+VERB\\s+ana"
    ],
    "invalid": [
      "ʻaʻole\\s+ua\\b",
      "ʻaʻole\\s+(?:au|ʻoe|ia)\\s+ua\\b"
    ]
  },
  "aff": {
    "valid": [
      "\\bua\\s+VERB",
      "\\bke\\s+VERB\\s+nei",
      "\\be\\s+VERB\\s+ana"
    ]
  }
}`

func newTestTAM(t *testing.T) Metric {
	t.Helper()
	dir := t.TempDir()
	rules := writeResource(t, dir, "tam.json", tamRulesJSON)
	m, err := NewTAMParticles(Config{Code: "haw", Resources: map[string]string{"tam_regex": rules}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestTAMForbiddenNegationHardFails(t *testing.T) {
	m := newTestTAM(t)

	r := m.Score("ʻAʻole ua.", "")
	if r.Score != 0.0 {
		t.Errorf("score = %v, want 0.0 (details %v)", r.Score, r.Details)
	}
	if r.Details["has_negative"] != true {
		t.Error("has_negative should be true")
	}
	if r.Details["valid"] != false {
		t.Error("valid should be false")
	}
}

func TestTAMValidNegation(t *testing.T) {
	m := newTestTAM(t)

	tests := []string{
		"ʻAʻole e ua ana.",
		"ʻAʻole au i hele.",
	}
	for _, text := range tests {
		r := m.Score(text, "")
		if r.Score != 1.0 {
			t.Errorf("Score(%q) = %v, want 1.0 (details %v)", text, r.Score, r.Details)
		}
	}
}

func TestTAMUnrecognizedNegation(t *testing.T) {
	m := newTestTAM(t)

	r := m.Score("ʻAʻole maikaʻi.", "")
	if r.Score != 0.5 {
		t.Errorf("score = %v, want 0.5 (details %v)", r.Score, r.Details)
	}
}

func TestTAMAffirmativeLenient(t *testing.T) {
	m := newTestTAM(t)

	// With a recognized pattern.
	if r := m.Score("Ua pau ka hana.", ""); r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", r.Score)
	}
	// Stative sentence with no TAM particle at all stays valid.
	r := m.Score("Maikaʻi ka lā.", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", r.Score)
	}
	if r.Details["has_negative"] != false {
		t.Error("has_negative should be false")
	}
}

func newTestArticlesKeKa(t *testing.T) Metric {
	t.Helper()
	dir := t.TempDir()
	exc := writeResource(t, dir, "ke_exceptions.txt", `# words taking ke despite the KEAO rule
pā
pāʻani
pākaukau
puke
mele
`)
	m, err := NewArticlesKeKa(Config{Code: "haw", Resources: map[string]string{"ke_exceptions": exc}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestArticlesKeKaCorrectUsage(t *testing.T) {
	m := newTestArticlesKeKa(t)

	// pāʻani takes ke by exception, keiki takes ke by the KEAO rule.
	r := m.Score("Ke pāʻani nei ke keiki.", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0 (details %v)", r.Score, r.Details)
	}
	if r.Details["checked"] != 2 {
		t.Errorf("checked = %v, want 2", r.Details["checked"])
	}
}

func TestArticlesKeKaWrongArticle(t *testing.T) {
	m := newTestArticlesKeKa(t)

	r := m.Score("Ka pāʻani nei ka keiki.", "")
	if r.Score != 0.0 {
		t.Errorf("score = %v, want 0.0 (details %v)", r.Score, r.Details)
	}
	errs := r.Details["errors"].([]map[string]any)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2 entries", errs)
	}
	if errs[0]["reason"] != "exception" {
		t.Errorf("reason = %v, want exception", errs[0]["reason"])
	}
	if errs[1]["reason"] != "KEAO rule" {
		t.Errorf("reason = %v, want KEAO rule", errs[1]["reason"])
	}
}

func TestArticlesKeKaKaBeforeOtherConsonants(t *testing.T) {
	m := newTestArticlesKeKa(t)

	// hale starts with h, so ka is right and ke is wrong.
	if r := m.Score("Ua nani ka hale.", ""); r.Score != 1.0 {
		t.Errorf("ka hale score = %v, want 1.0", r.Score)
	}
	if r := m.Score("Ua nani ke hale.", ""); r.Score != 0.0 {
		t.Errorf("ke hale score = %v, want 0.0", r.Score)
	}
}

func TestArticlesKeKaOkinaInitialTakesKe(t *testing.T) {
	m := newTestArticlesKeKa(t)

	r := m.Score("Ua ʻono ke ʻulu.", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0 (details %v)", r.Score, r.Details)
	}
}

func TestArticlesKeKaVacuousPass(t *testing.T) {
	m := newTestArticlesKeKa(t)

	r := m.Score("Aloha!", "")
	if r.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", r.Score)
	}
	if r.Details["checked"] != 0 {
		t.Errorf("checked = %v, want 0", r.Details["checked"])
	}
}

func TestRegistryLookup(t *testing.T) {
	if _, err := New("hawaiian", "no_such_metric", Config{}); err == nil {
		t.Error("expected error for unregistered metric")
	}

	keys := Registered()
	if len(keys) != 7 {
		t.Errorf("Registered() has %d entries, want 7: %v", len(keys), keys)
	}
}

func TestResourcePathMissingKey(t *testing.T) {
	cfg := Config{Code: "haw", Resources: map[string]string{}}
	if _, err := cfg.ResourcePath("lex_diacritics"); err == nil {
		t.Error("expected error for missing resource key")
	}
}
