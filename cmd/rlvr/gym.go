package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mokulua/rlvr/internal/audit"
	"github.com/mokulua/rlvr/internal/gen"
	"github.com/mokulua/rlvr/internal/langpack"
	"github.com/mokulua/rlvr/internal/pipeline"
)

// gymExample is one JSONL line of the training dataset. The reference
// translation is optional and only copied through to the results.
type gymExample struct {
	ID  string `json:"id"`
	Src string `json:"src"`
	Ref string `json:"ref,omitempty"`
}

// gymResult is one JSONL line of the run output.
type gymResult struct {
	ID         string               `json:"id"`
	Src        string               `json:"src"`
	Ref        string               `json:"ref,omitempty"`
	Best       map[string]string    `json:"best"`
	Candidates []pipeline.Candidate `json:"candidates"`
	Prompt     string               `json:"prompt"`
	Weights    map[string]float64   `json:"weights"`
	Timestamp  string               `json:"timestamp"`
}

// gymCmd runs the reranking loop over a dataset and lets the bandit
// learn which prompt variant earns the highest rewards.
func gymCmd() *cobra.Command {
	var (
		lang      string
		dataset   string
		kSamples  int
		outputDir string
		generator string
		epsilon   float64
	)

	cmd := &cobra.Command{
		Use:   "gym",
		Short: "Run a training session over a JSONL dataset",
		Long: `Run the generate-score-select loop over every example in a
dataset and feed the best reward of each back into the prompt bandit.

The dataset is newline-delimited JSON, one example per line:

  {"id": "ex1", "src": "It is not raining.", "ref": "ʻAʻole e ua ana."}

The run produces an audit log, a results file and the final bandit
state under the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGym(cmd.Context(), lang, dataset, kSamples, outputDir, generator, epsilon)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "haw", "target language code")
	cmd.Flags().StringVar(&dataset, "dataset", "", "path to the JSONL dataset (required)")
	cmd.Flags().IntVar(&kSamples, "k", 0, "candidates per example (default from pack)")
	cmd.Flags().StringVar(&outputDir, "output", "", "run output directory (default from config)")
	cmd.Flags().StringVar(&generator, "generator", "", "generator override: mock or llm")
	cmd.Flags().Float64Var(&epsilon, "epsilon", -1, "bandit exploration rate override")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func runGym(ctx context.Context, lang, dataset string, kSamples int, outputDir, generator string, epsilon float64) error {
	examples, err := readDataset(dataset)
	if err != nil {
		return err
	}
	if len(examples) == 0 {
		return fmt.Errorf("dataset %s contains no examples", dataset)
	}

	if outputDir == "" {
		outputDir = cfg.Gym.OutputDir
	}
	if generator == "" {
		generator = cfg.Gym.Generator
	}
	if epsilon < 0 {
		epsilon = cfg.Server.Epsilon
	}

	manager := langpack.NewManager(cfg.Server.LangDir,
		langpack.WithEpsilon(epsilon),
		langpack.WithLLMSettings(langpack.LLMSettings{
			BaseURL:              cfg.LLM.URL,
			APIKey:               cfg.LLM.APIKey,
			Model:                cfg.LLM.Model,
			ForceUnitTemperature: cfg.LLM.ForceUnitTemperature,
		}),
	)

	pack, err := manager.Load(lang)
	if err != nil {
		return fmt.Errorf("loading language pack: %w", err)
	}
	if err := overrideGenerator(pack, generator); err != nil {
		return err
	}
	if kSamples > 0 {
		pack.KSamples = kSamples
	}

	auditLog, err := audit.New(outputDir, "")
	if err != nil {
		return err
	}
	auditLog.LogConfig(map[string]any{
		"lang":      lang,
		"dataset":   dataset,
		"examples":  len(examples),
		"k_samples": pack.KSamples,
		"generator": generator,
		"epsilon":   epsilon,
		"weights":   pack.Weights,
	})

	resultsPath := filepath.Join(outputDir, auditLog.RunID()+"_results.jsonl")
	resultsFile, err := os.Create(resultsPath)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer resultsFile.Close()
	enc := json.NewEncoder(resultsFile)

	p := pipeline.New(pack, pipeline.WithAudit(auditLog))
	direction := "en_to_" + lang

	log.Printf("Gym run %s: %d examples, lang=%s, k=%d", auditLog.RunID(), len(examples), lang, pack.KSamples)

	var rewardSum float64
	completed := 0
	for i, ex := range examples {
		if err := ctx.Err(); err != nil {
			log.Printf("Run interrupted after %d examples", completed)
			break
		}

		res, err := p.Translate(ctx, pipeline.Segment{ID: ex.ID, Src: ex.Src}, pipeline.ModeRLVR, direction)
		if err != nil {
			log.Printf("Example %s failed: %v", ex.ID, err)
			continue
		}

		bestR := res.Candidates[0].R
		rewardSum += bestR
		completed++

		if err := enc.Encode(gymResult{
			ID:         ex.ID,
			Src:        ex.Src,
			Ref:        ex.Ref,
			Best:       res.Best,
			Candidates: res.Candidates,
			Prompt:     res.Prompt,
			Weights:    res.Weights,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return fmt.Errorf("writing result %s: %w", ex.ID, err)
		}

		log.Printf("  [%d/%d] %s: best R=%.3f %q", i+1, len(examples), ex.ID, bestR, res.Best["tgt"])
	}

	statePath := filepath.Join(outputDir, auditLog.RunID()+"_bandit.json")
	if err := pack.Bandit.SaveState(statePath); err != nil {
		log.Printf("Warning: saving bandit state: %v", err)
	}

	stats := pack.Bandit.Stats()
	prompts := make([]map[string]any, 0, len(stats.Prompts))
	for _, ps := range stats.Prompts {
		prompts = append(prompts, map[string]any{
			"prompt":         ps.Prompt,
			"value":          ps.Value,
			"count":          ps.Count,
			"selection_rate": ps.SelectionRate,
		})
	}

	meanReward := 0.0
	if completed > 0 {
		meanReward = rewardSum / float64(completed)
	}
	auditLog.Finalize(map[string]any{
		"examples":    len(examples),
		"completed":   completed,
		"mean_best_r": meanReward,
		"prompts":     prompts,
	})

	log.Printf("Run complete: %d/%d examples, mean best R=%.3f", completed, len(examples), meanReward)
	log.Printf("  Results:      %s", resultsPath)
	log.Printf("  Audit log:    %s", auditLog.Path())
	log.Printf("  Bandit state: %s", statePath)
	for _, ps := range stats.Prompts {
		log.Printf("  Prompt value=%.3f count=%d rate=%.2f", ps.Value, ps.Count, ps.SelectionRate)
	}
	return nil
}

// overrideGenerator swaps the pack's generator when the flag or config
// asks for a different kind than the pack file declares.
func overrideGenerator(pack *langpack.Pack, kind string) error {
	switch kind {
	case "", "pack":
	case "mock":
		pack.Generator = gen.NewMock()
	case "llm":
		if !cfg.IsLLMConfigured() {
			return fmt.Errorf("llm generator requires an API key (RLVR_LLM_API_KEY or OPENAI_API_KEY)")
		}
		inner := gen.NewLLM(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.Model,
			gen.WithForceUnitTemperature(cfg.LLM.ForceUnitTemperature))
		pack.Generator = gen.NewBidirectional(inner, pack.PromptTemplate, "", pack.Temperature)
	default:
		return fmt.Errorf("unknown generator %q (want mock or llm)", kind)
	}
	return nil
}

func readDataset(path string) ([]gymExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var examples []gymExample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ex gymExample
		if err := json.Unmarshal(line, &ex); err != nil {
			return nil, fmt.Errorf("dataset line %d: %w", lineNo, err)
		}
		if ex.ID == "" {
			ex.ID = fmt.Sprintf("ex%d", lineNo)
		}
		if ex.Src == "" {
			return nil, fmt.Errorf("dataset line %d: missing src", lineNo)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return examples, nil
}
