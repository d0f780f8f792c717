package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"brainrecon/internal/persist"
	"brainrecon/pkg/brain"
	"brainrecon/pkg/config"
	"brainrecon/pkg/eval"
	"brainrecon/pkg/locations"
	"brainrecon/pkg/model"
	"brainrecon/pkg/simulate"
)

func main() {
	configPath := flag.String("config", "brainrecon.yaml", "Study configuration file (YAML)")
	atlasPath := flag.String("atlas", "", "Atlas file with one x y z location per line (overrides config)")
	modelPath := flag.String("save-model", "", "Save the largest fitted model to this path (overrides config)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the config path and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *atlasPath != "" {
		cfg.Locations.AtlasPath = *atlasPath
	}
	if *modelPath != "" {
		cfg.Output.ModelPath = *modelPath
	}

	logger := newLogger(cfg.Output.Verbose)
	defer logger.Sync()

	locs, err := referenceLocations(cfg)
	if err != nil {
		log.Fatalf("Failed to build location set: %v", err)
	}
	logger.Info("reference locations ready",
		zap.Int("count", len(locs)),
		zap.String("atlas", cfg.Locations.AtlasPath))

	study := &eval.Study{
		ModelSubjects:     cfg.Study.ModelSubjects,
		ElectrodeCounts:   cfg.Study.ElectrodeCounts,
		Samples:           cfg.Study.Samples,
		SampleRate:        cfg.Study.SampleRate,
		Workers:           cfg.Processing.Workers,
		Seed:              cfg.Study.Seed,
		KurtosisThreshold: cfg.Processing.KurtosisThreshold,
		Log:               logger,
	}

	start := time.Now()
	results, err := study.Run(context.Background(), locs)
	if err != nil {
		log.Fatalf("Study failed: %v", err)
	}
	elapsed := time.Since(start)

	printSummary(results, elapsed)

	if cfg.Output.ModelPath != "" {
		if err := saveLargestModel(cfg, locs); err != nil {
			log.Fatalf("Failed to save model: %v", err)
		}
		fmt.Printf("\nModel saved to: %s\n", cfg.Output.ModelPath)
	}
}

// referenceLocations loads the atlas when configured and falls back to a
// synthetic lattice otherwise.
func referenceLocations(cfg *config.Config) (locations.Set, error) {
	if cfg.Locations.AtlasPath != "" {
		return locations.Load(cfg.Locations.AtlasPath)
	}
	g := cfg.Locations.GridSize
	return locations.Grid(g, g, g, cfg.Locations.GridSpacing), nil
}

// saveLargestModel refits the model at the largest cohort size and persists
// it, so a study can double as model production.
func saveLargestModel(cfg *config.Config, locs locations.Set) error {
	maxSubjects := 0
	for _, m := range cfg.Study.ModelSubjects {
		if m > maxSubjects {
			maxSubjects = m
		}
	}

	rng := rand.New(rand.NewSource(cfg.Study.Seed))
	truth := simulate.DistanceCorr(locs)
	cohort, err := simulate.Cohort(rng, locs, truth, maxSubjects, cfg.Study.Samples, cfg.Study.SampleRate)
	if err != nil {
		return err
	}
	if cfg.Processing.KurtosisThreshold > 0 {
		if err := filterCohort(cohort, cfg.Processing.KurtosisThreshold); err != nil {
			return err
		}
	}
	fitted, err := model.New(locs, cohort...)
	if err != nil {
		return err
	}
	return persist.SaveModel(cfg.Output.ModelPath, fitted)
}

// filterCohort applies the same kurtosis rejection the study uses, so the
// persisted model is fit on the recordings the study actually scored.
func filterCohort(cohort []*brain.Brain, threshold float64) error {
	for i, bo := range cohort {
		filtered, _, err := bo.RemoveKurtotic(threshold)
		if err != nil {
			return err
		}
		cohort[i] = filtered
	}
	return nil
}

func printSummary(results []eval.Result, elapsed time.Duration) {
	summary := eval.Summary(results)

	keys := make([][2]int, 0, len(summary))
	for key := range summary {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	fmt.Println("\nReconstruction quality by model size and electrode coverage:")
	fmt.Println("=============================================================")
	fmt.Printf("%-16s %-12s %s\n", "Model subjects", "Electrodes", "Mean correlation")
	for _, key := range keys {
		fmt.Printf("%-16d %-12d %.3f\n", key[0], key[1], summary[key])
	}
	fmt.Printf("\nIterations: %d (%d failed)\n", len(results), failed)
	fmt.Printf("Total study time: %.2f seconds\n", elapsed.Seconds())
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
			os.Exit(1)
		}
		return logger
	}
	return zap.NewNop()
}
