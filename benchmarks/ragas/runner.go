// ABOUTME: Test runner for RAGAS benchmarks - executes scenarios and collects results
// ABOUTME: Queries the retriever, optionally asks the responder, and scores each answer

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harper/sitechat/internal/models"
)

// Retriever returns ranked matches for a question
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error)
}

// Replier generates the assistant reply for a conversation
type Replier interface {
	Reply(ctx context.Context, messages []models.ChatMessage) (models.ChatReply, error)
}

// BenchmarkRunner executes RAGAS benchmark tests against a populated index
type BenchmarkRunner struct {
	retriever Retriever
	replier   Replier
	topK      int
	metrics   *MetricsCalculator
	out       io.Writer
	verbose   bool
}

// NewBenchmarkRunner creates a runner. A nil replier limits scoring to retrieval.
func NewBenchmarkRunner(retriever Retriever, replier Replier, topK int, out io.Writer, verbose bool) *BenchmarkRunner {
	if out == nil {
		out = io.Discard
	}
	return &BenchmarkRunner{
		retriever: retriever,
		replier:   replier,
		topK:      topK,
		metrics:   NewMetricsCalculator(),
		out:       out,
		verbose:   verbose,
	}
}

// RunTest executes a single benchmark test
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RUNNING: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		if scenario.Description != "" {
			fmt.Fprintf(r.out, "Description: %s\n", scenario.Description)
		}
		fmt.Fprintf(r.out, "Question: %s\n\n", scenario.Question)
	}

	matches, err := r.retriever.Search(ctx, scenario.Question, r.topK)
	if err != nil {
		return TestResult{}, fmt.Errorf("retrieval failed: %w", err)
	}

	var response string
	if r.replier != nil {
		reply, err := r.replier.Reply(ctx, []models.ChatMessage{{Role: models.RoleUser, Content: scenario.Question}})
		if err != nil {
			return TestResult{}, fmt.Errorf("reply failed: %w", err)
		}
		response = reply.Content

		if r.verbose {
			fmt.Fprintf(r.out, "AI: %s\n\n", preview(response, 150))
		}
	}

	result := r.metrics.EvaluateTest(scenario, response, matches)

	if r.verbose {
		fmt.Fprintf(r.out, "Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Fprintf(r.out, "Source Hit Rate: %.2f\n", result.SourceHitRate)
		if response != "" {
			fmt.Fprintf(r.out, "Faithfulness: %.2f\n", result.FaithfulnessScore)
		}
		fmt.Fprintf(r.out, "Overall Score: %.2f\n", result.OverallScore)
		fmt.Fprintf(r.out, "Status: %s\n", result.Status)
	}

	return result, nil
}

// RunAllTests runs every scenario; a scenario that errors is recorded as a FAIL
func (r *BenchmarkRunner) RunAllTests(ctx context.Context, scenarios []TestScenario) []TestResult {
	results := make([]TestResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			result = TestResult{
				TestID:       scenario.ID,
				TestName:     scenario.Name,
				Status:       "FAIL",
				ErrorMessage: err.Error(),
			}
		}
		results = append(results, result)
	}

	return results
}

// Summary is the exported benchmark report
type Summary struct {
	Timestamp  string       `json:"timestamp"`
	TotalTests int          `json:"total_tests"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []TestResult `json:"results"`
}

// Summarize counts passes and failures
func Summarize(results []TestResult) Summary {
	summary := Summary{
		Timestamp:  time.Now().Format(time.RFC3339),
		TotalTests: len(results),
		Results:    results,
	}
	for _, result := range results {
		if result.Status == "PASS" {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// ExportResults writes the summary as JSON to outputPath
func ExportResults(results []TestResult, outputPath string) error {
	jsonData, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
