// Package pipeline runs the candidate-generate-score-select loop that
// turns one source segment into a reranked translation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mokulua/rlvr/internal/adapters/metrics"
	"github.com/mokulua/rlvr/internal/audit"
	"github.com/mokulua/rlvr/internal/gen"
	"github.com/mokulua/rlvr/internal/langpack"
	"github.com/mokulua/rlvr/internal/metric"
	"github.com/mokulua/rlvr/internal/score"
)

// Translation modes.
const (
	ModeStandard = "standard"
	ModeRLVR     = "rlvr"
	ModeShowcase = "showcase"
)

const defaultScoreConcurrency = 4

// Segment is one unit of source text with a caller-supplied id. Meta is
// opaque request metadata carried through untouched.
type Segment struct {
	ID   string         `json:"id"`
	Src  string         `json:"src"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Candidate is a scored translation. Breakdown maps metric name to its
// unweighted score.
type Candidate struct {
	ID        string             `json:"id"`
	Tgt       string             `json:"tgt"`
	R         float64            `json:"R"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// Result is the outcome for one segment: the candidates sorted by
// reward, the winner, and the prompt and weights that produced them.
type Result struct {
	ID         string             `json:"id"`
	Best       map[string]string  `json:"best"`
	Candidates []Candidate        `json:"candidates"`
	Prompt     string             `json:"prompt"`
	Weights    map[string]float64 `json:"weights"`
	ProcessLog map[string]any     `json:"process_log"`
}

// Pipeline binds a language pack to the optional showcase panel and
// audit logger.
type Pipeline struct {
	pack        *langpack.Pack
	showcase    *gen.Showcase
	auditLog    *audit.Logger
	logger      *slog.Logger
	concurrency int
}

type Option func(*Pipeline)

// WithShowcase enables showcase mode with the given panel.
func WithShowcase(s *gen.Showcase) Option {
	return func(p *Pipeline) { p.showcase = s }
}

// WithAudit mirrors every translation and bandit update into the run's
// audit log.
func WithAudit(l *audit.Logger) Option {
	return func(p *Pipeline) { p.auditLog = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithScoreConcurrency bounds the parallel metric evaluation fan-out.
func WithScoreConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func New(pack *langpack.Pack, opts ...Option) *Pipeline {
	p := &Pipeline{
		pack:        pack,
		logger:      slog.Default(),
		concurrency: defaultScoreConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Translate runs one segment through the selected mode. direction is
// forwarded to direction-aware generators and may be empty.
func (p *Pipeline) Translate(ctx context.Context, seg Segment, mode, direction string) (*Result, error) {
	var (
		prompt     string
		candidates []string
		processLog map[string]any
		err        error
	)

	switch mode {
	case ModeShowcase:
		if p.showcase == nil {
			return nil, fmt.Errorf("showcase mode not configured")
		}
		prompt = "Showcase mode - curated demonstration"
		processLog = p.showcase.ProcessLog(seg.Src)
		candidates, err = p.showcase.Generate(ctx, seg.Src, p.pack.KSamples, gen.Options{})

	case ModeRLVR:
		prompt = p.pack.Bandit.Pick()
		candidates, err = p.pack.Generator.Generate(ctx, seg.Src, p.pack.KSamples, gen.Options{
			Prompt:      prompt,
			Temperature: p.pack.Temperature,
			Direction:   direction,
		})

	case ModeStandard:
		prompt = p.pack.PromptTemplate
		candidates, err = p.pack.Generator.Generate(ctx, seg.Src, 1, gen.Options{
			Prompt:    prompt,
			Direction: direction,
		})

	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		p.logError(seg, err)
		return nil, err
	}
	if len(candidates) == 0 {
		err := fmt.Errorf("generator produced no candidates for segment %q", seg.ID)
		p.logError(seg, err)
		return nil, err
	}
	metrics.CandidatesGenerated.Add(float64(len(candidates)))

	scored, err := p.scoreCandidates(ctx, seg.Src, candidates)
	if err != nil {
		p.logError(seg, err)
		return nil, err
	}

	// The audit event keeps candidates and scores in generation order,
	// so snapshot before ranking.
	scoredInOrder := append([]Candidate(nil), scored...)

	// Stable sort keeps generation order among equal rewards, so the
	// earliest candidate wins ties.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].R > scored[j].R })
	best := scored[0]
	bestIdx := 0
	for i, c := range candidates {
		if c == best.Tgt {
			bestIdx = i
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mode != ModeShowcase {
		if err := p.pack.Bandit.Update(prompt, best.R); err != nil {
			return nil, err
		}
		p.auditBanditUpdate(prompt, best.R)
	}

	metrics.BestReward.Observe(best.R)
	metrics.TranslationsTotal.WithLabelValues(p.pack.Code, mode).Inc()

	p.auditTranslation(seg, candidates, scoredInOrder, bestIdx, prompt)
	p.logger.Debug("translated segment",
		"segment", seg.ID,
		"lang", p.pack.Code,
		"mode", mode,
		"candidates", len(candidates),
		"best_reward", best.R)

	return &Result{
		ID:         seg.ID,
		Best:       map[string]string{"tgt": best.Tgt},
		Candidates: scored,
		Prompt:     prompt,
		Weights:    p.pack.Weights,
		ProcessLog: processLog,
	}, nil
}

// scoreCandidates evaluates every metric against every candidate with
// bounded parallelism, preserving candidate order in the output.
func (p *Pipeline) scoreCandidates(ctx context.Context, src string, candidates []string) ([]Candidate, error) {
	scored := make([]Candidate, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, text := range candidates {
		i, text := i, text
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results := make([]metric.Result, 0, len(p.pack.Metrics))
			breakdown := make(map[string]float64, len(p.pack.Metrics))
			for _, mt := range p.pack.Metrics {
				r := p.safeScore(mt, text, src)
				results = append(results, r)
				breakdown[r.Name] = r.Score
				p.auditMetricEval(text, r)
			}

			scored[i] = Candidate{
				ID:        fmt.Sprintf("c%d", i),
				Tgt:       text,
				R:         score.Aggregate(results, p.pack.Weights),
				Breakdown: breakdown,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

// safeScore turns a panicking metric into a zero score instead of
// taking down the request.
func (p *Pipeline) safeScore(mt metric.Metric, text, src string) (result metric.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("metric panicked", "metric", mt.Name(), "panic", r)
			if p.auditLog != nil {
				p.auditLog.LogError("metric-failure", fmt.Sprintf("%v", r), map[string]any{"metric": mt.Name()})
			}
			result = metric.Result{
				Name:    mt.Name(),
				Version: mt.Version(),
				Score:   0,
				Details: map[string]any{"error": fmt.Sprintf("metric panicked: %v", r)},
			}
		}
	}()
	return mt.Score(text, src)
}

// auditTranslation logs one translation event. scoredInOrder must be
// aligned with candidates: scores[i] describes candidates[i], and
// bestIdx indexes both.
func (p *Pipeline) auditTranslation(seg Segment, candidates []string, scoredInOrder []Candidate, bestIdx int, prompt string) {
	if p.auditLog == nil {
		return
	}
	scores := make([]map[string]any, 0, len(scoredInOrder))
	for _, c := range scoredInOrder {
		scores = append(scores, map[string]any{
			"id":        c.ID,
			"total":     c.R,
			"breakdown": c.Breakdown,
		})
	}
	p.auditLog.LogTranslation(seg.Src, candidates, scores, bestIdx, prompt, map[string]any{
		"lang": p.pack.Code,
		"k":    len(candidates),
	})
}

func (p *Pipeline) auditMetricEval(text string, r metric.Result) {
	if p.auditLog == nil {
		return
	}
	p.auditLog.LogMetricEval(text, r.Name, r.Score, r.Details)
}

func (p *Pipeline) auditBanditUpdate(prompt string, reward float64) {
	if p.auditLog == nil {
		return
	}
	stats := p.pack.Bandit.Stats()
	newValue := 0.0
	counts := make(map[string]int, len(stats.Prompts))
	for _, ps := range stats.Prompts {
		counts[ps.Prompt] = ps.Count
		if ps.Prompt == prompt {
			newValue = ps.Value
		}
	}
	p.auditLog.LogBanditUpdate(prompt, reward, newValue, counts)
}

func (p *Pipeline) logError(seg Segment, err error) {
	p.logger.Error("translation failed", "segment", seg.ID, "lang", p.pack.Code, "error", err)
	if p.auditLog != nil {
		p.auditLog.LogError("pipeline", err.Error(), map[string]any{"segment": seg.ID})
	}
}
