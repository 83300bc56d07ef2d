// Package audit writes append-only, newline-delimited JSON event logs
// so a gym run can be replayed and inspected after the fact. Any prefix
// of a log file is a valid partial log.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const runIDAlphabet = "0123456789abcdef"

// Logger appends events for one run to <dir>/<run_id>.jsonl. Writes are
// serialized and flushed per event; a write failure is reported to
// stderr and never aborts the caller.
type Logger struct {
	mu    sync.Mutex
	runID string
	path  string
	file  *os.File
}

// NewRunID generates run_<UTC-YYYYMMDD-HHMMSS>_<8-hex>.
func NewRunID() string {
	suffix, err := nanoid.Generate(runIDAlphabet, 8)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102-150405"), suffix)
}

// New opens the run log and writes the run_start event. An empty runID
// is auto-generated.
func New(outputDir, runID string) (*Logger, error) {
	if runID == "" {
		runID = NewRunID()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}

	path := filepath.Join(outputDir, runID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	l := &Logger{runID: runID, path: path, file: f}
	l.write(map[string]any{
		"type":   "run_start",
		"run_id": runID,
	})
	return l, nil
}

// RunID returns the identifier of this run.
func (l *Logger) RunID() string { return l.runID }

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

func (l *Logger) write(event map[string]any) {
	if _, ok := event["timestamp"]; !ok {
		event["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	line, err := json.Marshal(event)
	if err != nil {
		slog.Error("audit event marshal failed", "error", err, "type", event["type"])
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		slog.Error("audit write failed", "error", err, "path", l.path)
		return
	}
	if err := l.file.Sync(); err != nil {
		slog.Error("audit sync failed", "error", err, "path", l.path)
	}
}

// LogConfig records the effective run configuration.
func (l *Logger) LogConfig(config map[string]any) {
	l.write(map[string]any{"type": "config", "config": config})
}

// LogTranslation records one scored translation.
func (l *Logger) LogTranslation(src string, candidates []string, scores []map[string]any, bestIdx int, prompt string, params map[string]any) {
	event := map[string]any{
		"type":       "translation",
		"src":        src,
		"candidates": candidates,
		"scores":     scores,
		"best_idx":   bestIdx,
		"prompt":     prompt,
		"params":     params,
	}
	if bestIdx >= 0 && bestIdx < len(candidates) {
		event["best_text"] = candidates[bestIdx]
	}
	if bestIdx >= 0 && bestIdx < len(scores) {
		event["best_score"] = scores[bestIdx]["total"]
	}
	if params == nil {
		event["params"] = map[string]any{}
	}
	l.write(event)
}

// LogMetricEval records a single metric evaluation.
func (l *Logger) LogMetricEval(text, metricName string, score float64, details map[string]any) {
	l.write(map[string]any{
		"type":    "metric_eval",
		"text":    text,
		"metric":  metricName,
		"score":   score,
		"details": details,
	})
}

// LogBanditUpdate records a bandit learning step.
func (l *Logger) LogBanditUpdate(prompt string, reward, newValue float64, counts map[string]int) {
	l.write(map[string]any{
		"type":          "bandit_update",
		"prompt":        prompt,
		"reward":        reward,
		"new_value":     newValue,
		"prompt_counts": counts,
	})
}

// LogError records a recoverable failure.
func (l *Logger) LogError(errorType, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	l.write(map[string]any{
		"type":       "error",
		"error_type": errorType,
		"message":    message,
		"details":    details,
	})
}

// Finalize writes the run_end event and closes the file.
func (l *Logger) Finalize(summary map[string]any) {
	if summary == nil {
		summary = map[string]any{}
	}
	l.write(map[string]any{
		"type":     "run_end",
		"run_id":   l.runID,
		"end_time": time.Now().UTC().Format(time.RFC3339Nano),
		"summary":  summary,
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		slog.Error("audit close failed", "error", err, "path", l.path)
	}
}
