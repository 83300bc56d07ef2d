// Package bandit implements an epsilon-greedy multi-armed bandit over
// prompt templates with online incremental value updates.
package bandit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
)

// ErrUnknownPrompt is returned by Update for a prompt that was not part
// of the arm set. That is a programmer error, not a runtime condition.
var ErrUnknownPrompt = errors.New("unknown prompt")

const (
	defaultInitialValue = 0.5
	maxHistory          = 100
)

// HistoryEntry records one pick or update decision.
type HistoryEntry struct {
	Selection int     `json:"selection"`
	Prompt    string  `json:"prompt"`
	Type      string  `json:"type"` // explore, exploit, update
	Value     float64 `json:"value,omitempty"`
	Reward    float64 `json:"reward,omitempty"`
	NewValue  float64 `json:"new_value,omitempty"`
	Count     int     `json:"count,omitempty"`
}

// PromptStats is the per-arm slice of Stats.
type PromptStats struct {
	Prompt        string  `json:"prompt"`
	Value         float64 `json:"value"`
	Count         int     `json:"count"`
	SelectionRate float64 `json:"selection_rate"`
}

// Stats is a consistent snapshot of the bandit, prompts sorted by value
// descending.
type Stats struct {
	TotalSelections int           `json:"total_selections"`
	Epsilon         float64       `json:"epsilon"`
	Prompts         []PromptStats `json:"prompts"`
}

// Bandit is safe for concurrent use; every method takes the internal
// mutex.
type Bandit struct {
	mu sync.Mutex

	prompts         []string
	epsilon         float64
	values          map[string]float64
	counts          map[string]int
	totalSelections int
	history         []HistoryEntry

	// randFloat is replaceable in tests for deterministic picks.
	randFloat func() float64
	randIntn  func(n int) int
}

// New creates a bandit over the given prompt templates. All arms start
// at value 0.5 with zero counts.
func New(prompts []string, epsilon float64) *Bandit {
	b := &Bandit{
		prompts:   append([]string(nil), prompts...),
		epsilon:   epsilon,
		values:    make(map[string]float64, len(prompts)),
		counts:    make(map[string]int, len(prompts)),
		randFloat: rand.Float64,
		randIntn:  rand.Intn,
	}
	for _, p := range prompts {
		b.values[p] = defaultInitialValue
		b.counts[p] = 0
	}
	return b
}

// Pick selects a prompt: with probability epsilon a uniformly random
// arm (explore), otherwise the highest-valued arm with ties broken in
// favor of insertion order (exploit).
func (b *Bandit) Pick() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSelections++

	var prompt, kind string
	if b.randFloat() < b.epsilon {
		prompt = b.prompts[b.randIntn(len(b.prompts))]
		kind = "explore"
	} else {
		prompt = b.prompts[0]
		for _, p := range b.prompts[1:] {
			if b.values[p] > b.values[prompt] {
				prompt = p
			}
		}
		kind = "exploit"
	}

	b.appendHistory(HistoryEntry{
		Selection: b.totalSelections,
		Prompt:    prompt,
		Type:      kind,
		Value:     b.values[prompt],
	})
	return prompt
}

// Update feeds the observed reward back into the arm's running mean.
func (b *Bandit) Update(prompt string, reward float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.values[prompt]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrompt, prompt)
	}

	b.counts[prompt]++
	n := b.counts[prompt]
	old := b.values[prompt]
	b.values[prompt] = old + (reward-old)/float64(n)

	b.appendHistory(HistoryEntry{
		Selection: b.totalSelections,
		Prompt:    prompt,
		Type:      "update",
		Reward:    reward,
		NewValue:  b.values[prompt],
		Count:     n,
	})
	return nil
}

func (b *Bandit) appendHistory(e HistoryEntry) {
	b.history = append(b.history, e)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
}

// Stats returns a snapshot sorted by value descending; equal values
// keep insertion order.
func (b *Bandit) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{
		TotalSelections: b.totalSelections,
		Epsilon:         b.epsilon,
		Prompts:         make([]PromptStats, 0, len(b.prompts)),
	}
	denom := b.totalSelections
	if denom == 0 {
		denom = 1
	}
	for _, p := range b.prompts {
		stats.Prompts = append(stats.Prompts, PromptStats{
			Prompt:        p,
			Value:         b.values[p],
			Count:         b.counts[p],
			SelectionRate: float64(b.counts[p]) / float64(denom),
		})
	}
	// Stable insertion sort keeps ties in insertion order.
	for i := 1; i < len(stats.Prompts); i++ {
		for j := i; j > 0 && stats.Prompts[j].Value > stats.Prompts[j-1].Value; j-- {
			stats.Prompts[j], stats.Prompts[j-1] = stats.Prompts[j-1], stats.Prompts[j]
		}
	}
	return stats
}

// state is the persisted JSON document.
type state struct {
	Prompts         []string           `json:"prompts"`
	Epsilon         float64            `json:"epsilon"`
	Values          map[string]float64 `json:"values"`
	Counts          map[string]int     `json:"counts"`
	TotalSelections int                `json:"total_selections"`
	History         []HistoryEntry     `json:"history"`
}

// SaveState writes the bandit state, including the history tail, to a
// single JSON file.
func (b *Bandit) SaveState(path string) error {
	b.mu.Lock()
	s := state{
		Prompts:         append([]string(nil), b.prompts...),
		Epsilon:         b.epsilon,
		Values:          copyMap(b.values),
		Counts:          copyMap(b.counts),
		TotalSelections: b.totalSelections,
		History:         append([]HistoryEntry(nil), b.history...),
	}
	b.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bandit state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing bandit state: %w", err)
	}
	return nil
}

// LoadState replaces the bandit's arms and estimates with the persisted
// document.
func (b *Bandit) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading bandit state: %w", err)
	}
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parsing bandit state: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = s.Prompts
	b.epsilon = s.Epsilon
	b.values = s.Values
	b.counts = s.Counts
	b.totalSelections = s.TotalSelections
	b.history = s.History
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
