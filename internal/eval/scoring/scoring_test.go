package scoring

import (
	"testing"

	"codeval/internal/eval/model"
)

func req() model.EvaluationRequest {
	return model.EvaluationRequest{SubmissionID: "sub-1", ProblemID: "p-1", Language: "python"}
}

func TestTrivialCorrectSubmissionScores100(t *testing.T) {
	cases := []model.TestCase{
		{ID: "t1", Weight: 1, Visibility: model.VisibilityVisible, Category: model.CategoryBasic},
	}
	results := []model.TestResult{
		{TestCaseID: "t1", Category: model.CategoryBasic, Passed: true},
	}
	report := Aggregate(req(), cases, results)
	if report.OverallScore != 100 {
		t.Fatalf("overall score: got %v, want 100", report.OverallScore)
	}
	if report.CategoryScores.Correctness != 100 {
		t.Fatalf("correctness: got %v, want 100", report.CategoryScores.Correctness)
	}
	if report.Status != model.StatusCompleted {
		t.Fatalf("status: got %s", report.Status)
	}
	if report.TestResults[0].Points != 1 || report.TestResults[0].MaxPoints != 1 {
		t.Fatalf("points: %+v", report.TestResults[0])
	}
}

func TestHiddenRuntimeErrorScores50(t *testing.T) {
	// Visible test passes, equally weighted hidden test crashes.
	cases := []model.TestCase{
		{ID: "visible", Weight: 1, Visibility: model.VisibilityVisible, Category: model.CategoryBasic},
		{ID: "hidden", Weight: 1, Visibility: model.VisibilityHidden, Category: model.CategoryEdge},
	}
	results := []model.TestResult{
		{TestCaseID: "visible", Category: model.CategoryBasic, Passed: true},
		{TestCaseID: "hidden", Category: model.CategoryEdge, ErrorKind: model.ErrorRuntime},
	}
	report := Aggregate(req(), cases, results)
	if report.OverallScore != 50 {
		t.Fatalf("overall score: got %v, want 50", report.OverallScore)
	}
	if report.CategoryScores.EdgeCases != 0 {
		t.Fatalf("edge cases: got %v, want 0", report.CategoryScores.EdgeCases)
	}
}

func TestAbsentCategoryDoesNotPenalize(t *testing.T) {
	cases := []model.TestCase{
		{ID: "t1", Weight: 1, Category: model.CategoryBasic},
	}
	results := []model.TestResult{
		{TestCaseID: "t1", Category: model.CategoryBasic, Passed: true},
	}
	report := Aggregate(req(), cases, results)
	if report.CategoryScores.Efficiency != 100 {
		t.Fatalf("efficiency with no perf tests: got %v, want 100", report.CategoryScores.Efficiency)
	}
	if report.CategoryScores.EdgeCases != 100 {
		t.Fatalf("edge with no edge tests: got %v, want 100", report.CategoryScores.EdgeCases)
	}
}

func TestWeightedSum(t *testing.T) {
	cases := []model.TestCase{
		{ID: "t1", Weight: 3, Category: model.CategoryBasic},
		{ID: "t2", Weight: 1, Category: model.CategoryPerformance},
	}
	results := []model.TestResult{
		{TestCaseID: "t1", Category: model.CategoryBasic, Passed: true},
		{TestCaseID: "t2", Category: model.CategoryPerformance, ErrorKind: model.ErrorTimedOut},
	}
	report := Aggregate(req(), cases, results)
	if report.OverallScore != 75 {
		t.Fatalf("overall score: got %v, want 75", report.OverallScore)
	}
	if report.CategoryScores.Correctness != 50 {
		t.Fatalf("correctness: got %v, want 50", report.CategoryScores.Correctness)
	}
	if report.CategoryScores.Efficiency != 0 {
		t.Fatalf("efficiency: got %v, want 0", report.CategoryScores.Efficiency)
	}
}

func TestMonotonicity(t *testing.T) {
	cases := []model.TestCase{
		{ID: "t1", Weight: 2, Category: model.CategoryBasic},
		{ID: "t2", Weight: 1, Category: model.CategoryEdge},
		{ID: "t3", Weight: 5, Category: model.CategoryStress},
	}
	results := []model.TestResult{
		{TestCaseID: "t1", Category: model.CategoryBasic, Passed: true},
		{TestCaseID: "t2", Category: model.CategoryEdge},
		{TestCaseID: "t3", Category: model.CategoryStress},
	}
	base := Aggregate(req(), cases, results).OverallScore

	// Flipping any single failing result to passing never lowers the score.
	for i := range results {
		if results[i].Passed {
			continue
		}
		flipped := make([]model.TestResult, len(results))
		copy(flipped, results)
		flipped[i].Passed = true
		flipped[i].ErrorKind = model.ErrorNone
		flipped[i].Points = 0
		flipped[i].MaxPoints = 0
		score := Aggregate(req(), cases, flipped).OverallScore
		if score < base {
			t.Fatalf("flipping %s to passing lowered score: %v -> %v", results[i].TestCaseID, base, score)
		}
	}

	// Adding a passing test with positive weight never lowers the score.
	extraCases := append(append([]model.TestCase{}, cases...), model.TestCase{ID: "t4", Weight: 1, Category: model.CategoryBasic})
	extraResults := append(append([]model.TestResult{}, results...), model.TestResult{TestCaseID: "t4", Category: model.CategoryBasic, Passed: true})
	for i := range extraResults {
		extraResults[i].Points = 0
		extraResults[i].MaxPoints = 0
	}
	score := Aggregate(req(), extraCases, extraResults).OverallScore
	if score < base {
		t.Fatalf("adding passing test lowered score: %v -> %v", base, score)
	}
}

func TestProvisionalCasesCarryNoPoints(t *testing.T) {
	cases := []model.TestCase{
		{ID: "real", Weight: 1, Category: model.CategoryBasic},
		{ID: "synth", Weight: 1, Category: model.CategoryBasic, Provisional: true},
	}
	results := []model.TestResult{
		{TestCaseID: "real", Category: model.CategoryBasic, Passed: true},
		{TestCaseID: "synth", Category: model.CategoryBasic, Provisional: true},
	}
	report := Aggregate(req(), cases, results)
	if report.OverallScore != 100 {
		t.Fatalf("provisional failure must not affect score: got %v, want 100", report.OverallScore)
	}
	if report.CategoryScores.Correctness != 100 {
		t.Fatalf("provisional failure must not affect categories: got %v", report.CategoryScores.Correctness)
	}
	for _, r := range report.TestResults {
		if r.Provisional && (r.Points != 0 || r.MaxPoints != 0) {
			t.Fatalf("provisional result carries points: %+v", r)
		}
	}
}

func TestFeedbackThresholds(t *testing.T) {
	fb := BuildFeedback(100, model.CategoryScores{Correctness: 100, Efficiency: 100, EdgeCases: 100}, nil)
	if fb.Overall != "All test cases passed. Excellent work." {
		t.Fatalf("perfect overall feedback: %q", fb.Overall)
	}
	if len(fb.Strengths) == 0 {
		t.Fatal("perfect score should list strengths")
	}
	if len(fb.Improvements) != 0 {
		t.Fatalf("perfect score should not list improvements: %v", fb.Improvements)
	}

	results := []model.TestResult{
		{Category: model.CategoryPerformance, ErrorKind: model.ErrorTimedOut},
		{Category: model.CategoryPerformance, ErrorKind: model.ErrorTimedOut},
	}
	fb = BuildFeedback(40, model.CategoryScores{Correctness: 40, Efficiency: 0, EdgeCases: 100}, results)
	if len(fb.Improvements) < 2 {
		t.Fatalf("low scores should produce improvements: %v", fb.Improvements)
	}
}
