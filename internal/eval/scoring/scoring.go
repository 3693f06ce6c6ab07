// Package scoring aggregates per-test results into category scores, a
// weighted overall score, and threshold-driven feedback.
package scoring

import (
	"fmt"
	"time"

	"codeval/internal/eval/model"
)

// Aggregate assigns points to each result from its test case's weight,
// computes category pass rates and the overall weighted score, and
// assembles the final report. Provisional cases run for diagnostics but
// carry zero points so unverified expectations never move the score.
func Aggregate(req model.EvaluationRequest, cases []model.TestCase, results []model.TestResult) model.EvaluationReport {
	weights := make(map[string]float64, len(cases))
	for _, tc := range cases {
		if tc.Provisional {
			continue
		}
		weights[tc.ID] = tc.Weight
	}

	var earned, possible float64
	counts := categoryCounts{}
	for i := range results {
		r := &results[i]
		r.MaxPoints = weights[r.TestCaseID]
		r.Points = 0
		if r.Passed {
			r.Points = r.MaxPoints
		}
		earned += r.Points
		possible += r.MaxPoints
		if !r.Provisional {
			counts.add(r.Category, r.Passed)
		}
	}

	overall := 0.0
	if possible > 0 {
		overall = clamp(100 * earned / possible)
	}

	scores := model.CategoryScores{
		Correctness: counts.rate(counts.total, counts.totalPassed),
		Efficiency:  counts.rate(counts.perf, counts.perfPassed),
		EdgeCases:   counts.rate(counts.edge, counts.edgePassed),
	}

	return model.EvaluationReport{
		SubmissionID:   req.SubmissionID,
		ProblemID:      req.ProblemID,
		UserID:         req.UserID,
		Language:       req.Language,
		Status:         model.StatusCompleted,
		TestResults:    results,
		CategoryScores: scores,
		OverallScore:   overall,
		Feedback:       BuildFeedback(overall, scores, results),
		CreatedAt:      time.Now().UTC(),
	}
}

type categoryCounts struct {
	total, totalPassed int
	perf, perfPassed   int
	edge, edgePassed   int
}

func (c *categoryCounts) add(cat model.Category, passed bool) {
	c.total++
	if passed {
		c.totalPassed++
	}
	switch cat {
	case model.CategoryPerformance, model.CategoryStress:
		c.perf++
		if passed {
			c.perfPassed++
		}
	case model.CategoryEdge:
		c.edge++
		if passed {
			c.edgePassed++
		}
	}
}

// rate is a pass percentage. An empty category scores 100 so absence
// never penalizes.
func (c *categoryCounts) rate(total, passed int) float64 {
	if total == 0 {
		return 100
	}
	return clamp(100 * float64(passed) / float64(total))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Feedback thresholds. Tests rely on these exact boundaries.
const (
	strongThreshold = 100
	goodThreshold   = 85
	weakThreshold   = 70
)

// BuildFeedback maps the score profile to deterministic feedback text.
func BuildFeedback(overall float64, scores model.CategoryScores, results []model.TestResult) model.Feedback {
	fb := model.Feedback{}

	switch {
	case overall >= strongThreshold:
		fb.Overall = "All test cases passed. Excellent work."
	case overall >= goodThreshold:
		fb.Overall = fmt.Sprintf("Strong submission: %.0f%% of available points earned.", overall)
	case overall >= weakThreshold:
		fb.Overall = fmt.Sprintf("Solid attempt: %.0f%% of available points earned, with room to improve.", overall)
	default:
		fb.Overall = fmt.Sprintf("Submission earned %.0f%% of available points. Review the failing cases below.", overall)
	}

	if scores.Correctness >= strongThreshold {
		fb.Strengths = append(fb.Strengths, "Correct output on every test case.")
	} else if scores.Correctness >= goodThreshold {
		fb.Strengths = append(fb.Strengths, "Correct output on most test cases.")
	}
	if scores.Efficiency >= strongThreshold && hasCategory(results, model.CategoryPerformance, model.CategoryStress) {
		fb.Strengths = append(fb.Strengths, "Met the time budget on all performance tests.")
	}
	if scores.EdgeCases >= strongThreshold && hasCategory(results, model.CategoryEdge) {
		fb.Strengths = append(fb.Strengths, "Handled all edge cases correctly.")
	}

	if scores.Correctness < weakThreshold {
		fb.Improvements = append(fb.Improvements, "Re-check the core logic: more than a quarter of test cases produced wrong output or failed.")
	}
	if scores.Efficiency < weakThreshold {
		fb.Improvements = append(fb.Improvements, "Optimize for large inputs: performance tests timed out or failed.")
	}
	if scores.EdgeCases < weakThreshold {
		fb.Improvements = append(fb.Improvements, "Handle boundary conditions such as empty input, extremes, and duplicates.")
	}
	if kind, n := dominantError(results); n > 0 {
		fb.Improvements = append(fb.Improvements, errorAdvice(kind, n))
	}

	return fb
}

func hasCategory(results []model.TestResult, cats ...model.Category) bool {
	for _, r := range results {
		for _, c := range cats {
			if r.Category == c {
				return true
			}
		}
	}
	return false
}

// dominantError returns the most frequent non-empty error kind.
func dominantError(results []model.TestResult) (model.ErrorKind, int) {
	freq := make(map[model.ErrorKind]int)
	for _, r := range results {
		if r.ErrorKind != model.ErrorNone {
			freq[r.ErrorKind]++
		}
	}
	var best model.ErrorKind
	bestN := 0
	for k, n := range freq {
		if n > bestN {
			best, bestN = k, n
		}
	}
	return best, bestN
}

func errorAdvice(kind model.ErrorKind, n int) string {
	switch kind {
	case model.ErrorCompile:
		return "Fix the compilation errors before resubmitting."
	case model.ErrorTimedOut:
		return fmt.Sprintf("%d test case(s) exceeded the time limit. Consider a lower-complexity approach.", n)
	case model.ErrorRuntime:
		return fmt.Sprintf("%d test case(s) crashed at runtime. Check for unhandled exceptions and invalid memory access.", n)
	case model.ErrorOutputTruncated:
		return "Output exceeded the size ceiling. Print only what the problem asks for."
	default:
		return fmt.Sprintf("%d test case(s) failed with %s.", n, kind)
	}
}
