// ABOUTME: Command-line benchmark runner for RAGAS tests against the site index
// ABOUTME: Loads scenarios, queries the configured index, and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/harper/sitechat/benchmarks/ragas"
	"github.com/harper/sitechat/internal/app"
	"github.com/harper/sitechat/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	scenariosPath := flag.String("scenarios", "benchmarks/ragas/testdata/scenarios.json", "Path to the JSON scenario file")
	testID := flag.String("test", "", "Run a specific scenario by ID. If empty, runs all scenarios.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	configPath := flag.String("config", "", "Path to a YAML or JSON config file")
	retrievalOnly := flag.Bool("retrieval-only", false, "Skip reply generation and score retrieval only")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	if err := run(*scenariosPath, *testID, *outputPath, *configPath, *retrievalOnly, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)
		os.Exit(1)
	}
}

func run(scenariosPath, testID, outputPath, configPath string, retrievalOnly, verbose bool) error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scenarios, err := ragas.LoadScenarios(scenariosPath)
	if err != nil {
		return err
	}
	if testID != "" {
		scenario, ok := ragas.FindScenario(scenarios, testID)
		if !ok {
			return fmt.Errorf("unknown test ID: %s", testID)
		}
		scenarios = []ragas.TestScenario{scenario}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log.Level)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var replier ragas.Replier
	if !retrievalOnly {
		if a.Responder == nil {
			return fmt.Errorf("chat provider %q is not configured; use -retrieval-only", cfg.Chat.Provider)
		}
		replier = a.Responder
	}

	fmt.Println("========================================")
	fmt.Println("sitechat RAGAS Benchmarks")
	fmt.Println("========================================")

	runner := ragas.NewBenchmarkRunner(a.Hydrator, replier, cfg.Retrieval.TopK, os.Stdout, verbose)
	results := runner.RunAllTests(ctx, scenarios)

	summary := ragas.Summarize(results)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")
	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Source Hit Rate: %.2f\n", result.SourceHitRate)
		if replier != nil {
			fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		}
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)
	}
	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", summary.TotalTests)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := ragas.ExportResults(results, outputPath); err != nil {
		return err
	}
	fmt.Printf("Results exported to: %s\n", outputPath)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", summary.Failed, summary.TotalTests)
	}
	return nil
}
