// Package model holds the evaluation domain types shared across the
// harness, scoring engine, catalog, and transport layers.
package model

import "time"

// Visibility controls how much of a test case may be disclosed in
// results returned to the submitter.
type Visibility string

const (
	VisibilityVisible Visibility = "visible"
	VisibilityHidden  Visibility = "hidden"
)

// Category classifies what a test case is probing. Scoring weighs
// categories independently.
type Category string

const (
	CategoryBasic       Category = "basic"
	CategoryEdge        Category = "edge"
	CategoryPerformance Category = "performance"
	CategoryStress      Category = "stress"
)

// ErrorKind is the structured failure classification attached to a
// non-passing test result.
type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorCompile             ErrorKind = "CompileError"
	ErrorRuntime             ErrorKind = "RuntimeError"
	ErrorTimedOut            ErrorKind = "TimedOut"
	ErrorOutputTruncated     ErrorKind = "OutputTruncated"
	ErrorToolchainMissing    ErrorKind = "ToolchainMissing"
	ErrorUnsupportedLanguage ErrorKind = "UnsupportedLanguage"
	ErrorCancelled           ErrorKind = "Cancelled"
)

// Status is the terminal state of an evaluation.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusAborted   Status = "aborted"
)

// TestCase is one input/expected-output pair with its scoring weight.
type TestCase struct {
	ID             string     `json:"id"`
	Input          string     `json:"input"`
	ExpectedOutput string     `json:"expectedOutput"`
	Weight         float64    `json:"weight"`
	Visibility     Visibility `json:"visibility"`
	Category       Category   `json:"category"`

	// Per-case budget overrides. Zero means inherit the problem default.
	TimeLimitMs   uint `json:"timeLimitMs,omitempty"`
	MemoryLimitMB uint `json:"memoryLimitMb,omitempty"`

	// Provisional cases were synthesized rather than authored. They run
	// for diagnostics but never contribute points.
	Provisional bool `json:"provisional,omitempty"`
}

// TestResult is the outcome of one test case execution after visibility
// redaction has been applied.
type TestResult struct {
	TestCaseID   string     `json:"testCaseId"`
	Category     Category   `json:"category"`
	Visibility   Visibility `json:"visibility"`
	Passed       bool       `json:"passed"`
	ActualOutput string     `json:"actualOutput,omitempty"`
	RuntimeMs    int64      `json:"runtimeMs"`
	MemoryKB     uint64     `json:"memoryKb"`
	Points       float64    `json:"points"`
	MaxPoints    float64    `json:"maxPoints"`
	ErrorKind    ErrorKind  `json:"errorKind,omitempty"`
	Diagnostic   string     `json:"diagnostic,omitempty"`
	Provisional  bool       `json:"provisional,omitempty"`
}

// CategoryScores are per-category pass percentages in [0,100].
type CategoryScores struct {
	Correctness float64 `json:"correctness"`
	Efficiency  float64 `json:"efficiency"`
	EdgeCases   float64 `json:"edgeCases"`
}

// Feedback is the human-readable summary attached to a report.
type Feedback struct {
	Overall      string   `json:"overall"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

// EvaluationReport is the complete graded result for one submission.
type EvaluationReport struct {
	SubmissionID   string         `json:"submissionId"`
	ProblemID      string         `json:"problemId"`
	UserID         string         `json:"userId,omitempty"`
	Language       string         `json:"language"`
	Status         Status         `json:"status"`
	TestResults    []TestResult   `json:"testResults"`
	CategoryScores CategoryScores `json:"categoryScores"`
	OverallScore   float64        `json:"overallScore"`
	Feedback       Feedback       `json:"feedback"`
	Backend        string         `json:"backend,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// EvaluationRequest is a submission to grade against a problem's
// test suite. The suite comes from the catalog via ProblemID, or
// inline through TestCases for callers that own their own cases.
type EvaluationRequest struct {
	SubmissionID string `json:"submissionId" binding:"required"`
	UserID       string `json:"userId"`
	ProblemID    string `json:"problemId"`
	Code         string `json:"code" binding:"required"`
	Language     string `json:"language" binding:"required"`

	// Inline suite. Ignored when empty; ProblemID is then required.
	TestCases     []TestCase `json:"testCases,omitempty"`
	TimeLimitMs   uint       `json:"timeLimitMs,omitempty"`
	MemoryLimitMB uint       `json:"memoryLimitMb,omitempty"`
}

// RunRequest is an ad-hoc run of user code against caller-supplied
// input, outside any problem's test suite.
type RunRequest struct {
	SubmissionID string `json:"submissionId"`
	Code         string `json:"code" binding:"required"`
	Language     string `json:"language" binding:"required"`
	Input        string `json:"input"`
	TimeLimitMs  uint   `json:"timeLimitMs"`
}

// RunResponse carries the raw outcome of an ad-hoc run.
type RunResponse struct {
	Stdout    string    `json:"stdout"`
	Stderr    string    `json:"stderr"`
	ExitCode  int       `json:"exitCode"`
	RuntimeMs int64     `json:"runtimeMs"`
	MemoryKB  uint64    `json:"memoryKb"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Backend   string    `json:"backend"`
}

// Problem is the catalog entry an evaluation resolves its suite from.
type Problem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	TimeLimitMs   uint       `json:"timeLimitMs"`
	MemoryLimitMB uint       `json:"memoryLimitMb"`
	TestCases     []TestCase `json:"testCases"`
}
