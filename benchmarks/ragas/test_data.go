// ABOUTME: Scenario data structures for RAGAS benchmarks against the site index
// ABOUTME: Defines questions, ground truth, and the JSON scenario file loader

package ragas

import (
	"encoding/json"
	"fmt"
	"os"
)

// TestScenario is one benchmark question with its ground truth
type TestScenario struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Question    string      `json:"question"`
	GroundTruth GroundTruth `json:"ground_truth"`
}

// GroundTruth defines expected outcomes for RAGAS evaluation
type GroundTruth struct {
	ExpectedInResponse  []string `json:"expected_in_response,omitempty"`  // Strings that MUST appear in the reply
	ForbiddenInResponse []string `json:"forbidden_in_response,omitempty"` // Strings that MUST NOT appear in the reply

	// Page text that retrieval should surface
	ExpectedContextItems []string `json:"expected_context_items,omitempty"`

	// Page URLs (or URL suffixes such as "/about") expected among the matches
	ExpectedSources []string `json:"expected_sources,omitempty"`
}

// TestResult represents the outcome of a benchmark test
type TestResult struct {
	TestID             string                 `json:"test_id"`
	TestName           string                 `json:"test_name"`
	FaithfulnessScore  float64                `json:"faithfulness_score"`
	ContextRecallScore float64                `json:"context_recall_score"`
	SourceHitRate      float64                `json:"source_hit_rate"`
	OverallScore       float64                `json:"overall_score"`
	Status             string                 `json:"status"` // "PASS" or "FAIL"
	Details            map[string]interface{} `json:"details,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

// LoadScenarios reads a JSON array of scenarios from path
func LoadScenarios(path string) ([]TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	var scenarios []TestScenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	for i, s := range scenarios {
		if s.ID == "" || s.Question == "" {
			return nil, fmt.Errorf("scenario %d needs an id and a question", i)
		}
	}
	return scenarios, nil
}

// FindScenario returns the scenario with the given ID
func FindScenario(scenarios []TestScenario, id string) (TestScenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return TestScenario{}, false
}
