package bandit

import (
	"math"
	"path/filepath"
	"sync"
	"testing"
)

func TestPickExploitsBestWithTieBreakOnInsertionOrder(t *testing.T) {
	b := New([]string{"A", "B", "C"}, 0)

	// All arms start equal, so the earliest prompt wins.
	if got := b.Pick(); got != "A" {
		t.Errorf("Pick() = %q, want %q", got, "A")
	}

	if err := b.Update("B", 0.9); err != nil {
		t.Fatal(err)
	}
	if got := b.Pick(); got != "B" {
		t.Errorf("Pick() after rewarding B = %q, want %q", got, "B")
	}
}

func TestUpdateIncrementalMean(t *testing.T) {
	b := New([]string{"A", "B", "C"}, 0)

	if err := b.Update("A", 1.0); err != nil {
		t.Fatal(err)
	}
	if err := b.Update("A", 0.0); err != nil {
		t.Fatal(err)
	}

	if v := b.values["A"]; math.Abs(v-0.5) > 1e-9 {
		t.Errorf("value[A] = %v, want 0.5", v)
	}
	if c := b.counts["A"]; c != 2 {
		t.Errorf("count[A] = %d, want 2", c)
	}
	// A is back at the initial value, so the earliest-insertion tie
	// break must still return it.
	if got := b.Pick(); got != "A" {
		t.Errorf("Pick() = %q, want %q", got, "A")
	}
}

func TestUpdateTracksExactMean(t *testing.T) {
	b := New([]string{"p"}, 0)
	rewards := []float64{0.2, 0.8, 0.5, 1.0, 0.0, 0.33}
	sum := 0.0
	for _, r := range rewards {
		if err := b.Update("p", r); err != nil {
			t.Fatal(err)
		}
		sum += r
	}
	want := sum / float64(len(rewards))
	if got := b.values["p"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("value = %v, want mean %v", got, want)
	}
}

func TestUpdateUnknownPrompt(t *testing.T) {
	b := New([]string{"A"}, 0)
	if err := b.Update("nope", 0.5); err == nil {
		t.Fatal("expected error for unknown prompt")
	}
}

func TestExploreUsesRandomArm(t *testing.T) {
	b := New([]string{"A", "B", "C"}, 1.0)
	b.randFloat = func() float64 { return 0.0 } // always explore
	b.randIntn = func(n int) int { return 2 }

	if got := b.Pick(); got != "C" {
		t.Errorf("explore Pick() = %q, want %q", got, "C")
	}
	if b.history[0].Type != "explore" {
		t.Errorf("history type = %q, want explore", b.history[0].Type)
	}
}

func TestStatsSortedByValue(t *testing.T) {
	b := New([]string{"A", "B", "C"}, 0.25)
	b.Update("C", 1.0)
	b.Update("A", 0.2)
	b.Pick()
	b.Pick()

	stats := b.Stats()
	if stats.TotalSelections != 2 {
		t.Errorf("TotalSelections = %d, want 2", stats.TotalSelections)
	}
	if stats.Epsilon != 0.25 {
		t.Errorf("Epsilon = %v, want 0.25", stats.Epsilon)
	}
	if stats.Prompts[0].Prompt != "C" {
		t.Errorf("best prompt = %q, want C", stats.Prompts[0].Prompt)
	}
	if stats.Prompts[len(stats.Prompts)-1].Prompt != "A" {
		t.Errorf("worst prompt = %q, want A", stats.Prompts[len(stats.Prompts)-1].Prompt)
	}
	for _, p := range stats.Prompts {
		if p.Value < 0 || p.Value > 1 {
			t.Errorf("value out of range: %v", p.Value)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bandit.json")

	b := New([]string{"A", "B"}, 0.3)
	b.Pick()
	b.Update("A", 0.7)
	b.Pick()
	b.Update("B", 0.1)

	if err := b.SaveState(path); err != nil {
		t.Fatal(err)
	}

	restored := New([]string{"x"}, 0)
	if err := restored.LoadState(path); err != nil {
		t.Fatal(err)
	}

	if restored.epsilon != 0.3 {
		t.Errorf("epsilon = %v, want 0.3", restored.epsilon)
	}
	if restored.totalSelections != b.totalSelections {
		t.Errorf("totalSelections = %d, want %d", restored.totalSelections, b.totalSelections)
	}
	for _, p := range []string{"A", "B"} {
		if restored.values[p] != b.values[p] {
			t.Errorf("value[%s] = %v, want %v", p, restored.values[p], b.values[p])
		}
		if restored.counts[p] != b.counts[p] {
			t.Errorf("count[%s] = %d, want %d", p, restored.counts[p], b.counts[p])
		}
	}
}

func TestConcurrentPickUpdate(t *testing.T) {
	b := New([]string{"A", "B", "C"}, 0.5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p := b.Pick()
				if err := b.Update(p, 0.5); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stats := b.Stats()
	total := 0
	for _, p := range stats.Prompts {
		total += p.Count
	}
	if total != 16*50 {
		t.Errorf("sum of counts = %d, want %d", total, 16*50)
	}
	if stats.TotalSelections != 16*50 {
		t.Errorf("total selections = %d, want %d", stats.TotalSelections, 16*50)
	}
}
