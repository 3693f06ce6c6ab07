package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Sandbox & Backend errors
// 13000-13999: Language & Compilation errors
// 14000-14999: Evaluation & Scoring errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Sandbox & Backend Errors (12000-12999) ==========

	// Execution (12000-12099)
	SandboxError        ErrorCode = 12000
	ExecutionTimedOut   ErrorCode = 12001
	ExecutionKilled     ErrorCode = 12002
	OutputTruncated     ErrorCode = 12003
	ScratchDirFailed    ErrorCode = 12004
	ProcessSpawnFailed  ErrorCode = 12005
	ExecutionCancelled  ErrorCode = 12006
	MemoryLimitExceeded ErrorCode = 12007

	// Backend (12100-12199)
	BackendUnavailable ErrorCode = 12100
	BackendProbeFailed ErrorCode = 12101
	ToolchainMissing   ErrorCode = 12102

	// ========== Language & Compilation Errors (13000-13999) ==========

	UnsupportedLanguage ErrorCode = 13000
	CompilationError    ErrorCode = 13001
	RuntimeError        ErrorCode = 13002
	InvalidCommandTpl   ErrorCode = 13003
	SourceTooLarge      ErrorCode = 13004

	// ========== Evaluation & Scoring Errors (14000-14999) ==========

	EvaluationFailed     ErrorCode = 14000
	EvaluationCancelled  ErrorCode = 14001
	EvaluationNotFound   ErrorCode = 14002
	NoTestCases          ErrorCode = 14003
	TestCaseInvalid      ErrorCode = 14004
	ProblemNotFound      ErrorCode = 14005
	EvaluationQueueFull  ErrorCode = 14006
	ReportPublishFailed  ErrorCode = 14007
	ProvisionalUnscored  ErrorCode = 14008
	InputTooLarge        ErrorCode = 14009
	DuplicateEvaluation  ErrorCode = 14010
	CatalogUnavailable   ErrorCode = 14011
	CatalogFetchFailed   ErrorCode = 14012
	ScoreOutOfRange      ErrorCode = 14013
	FeedbackUnavailable  ErrorCode = 14014
	SnapshotInconsistent ErrorCode = 14015
)

// errorMessages maps error codes to their default messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	// Generic
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError:     "Cache operation failed",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Sandbox
	SandboxError:        "Sandbox execution error",
	ExecutionTimedOut:   "Time limit exceeded",
	ExecutionKilled:     "Process was killed",
	OutputTruncated:     "Output exceeded size limit and was truncated",
	ScratchDirFailed:    "Failed to prepare scratch directory",
	ProcessSpawnFailed:  "Failed to spawn process",
	ExecutionCancelled:  "Execution was cancelled",
	MemoryLimitExceeded: "Memory limit exceeded",

	// Backend
	BackendUnavailable: "No execution backend is available",
	BackendProbeFailed: "Execution backend probe failed",
	ToolchainMissing:   "Required language toolchain is not installed",

	// Language
	UnsupportedLanguage: "Programming language not supported",
	CompilationError:    "Compilation error",
	RuntimeError:        "Runtime error",
	InvalidCommandTpl:   "Invalid command template",
	SourceTooLarge:      "Source code is too large",

	// Evaluation
	EvaluationFailed:     "Evaluation failed",
	EvaluationCancelled:  "Evaluation was cancelled",
	EvaluationNotFound:   "Evaluation not found",
	NoTestCases:          "No test cases available for this problem",
	TestCaseInvalid:      "Invalid test case",
	ProblemNotFound:      "Problem not found",
	EvaluationQueueFull:  "Evaluation queue is full, please try again later",
	ReportPublishFailed:  "Failed to publish evaluation report",
	ProvisionalUnscored:  "Provisional test cases are not scored",
	InputTooLarge:        "Test input is too large",
	DuplicateEvaluation:  "Evaluation already in flight for this submission",
	CatalogUnavailable:   "Problem catalog is unavailable",
	CatalogFetchFailed:   "Failed to fetch test cases from catalog",
	ScoreOutOfRange:      "Computed score is out of range",
	FeedbackUnavailable:  "Feedback generation failed",
	SnapshotInconsistent: "Test case snapshot is inconsistent",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == EvaluationNotFound, c == ProblemNotFound:
		return 404
	case c == TooManyRequests, c == EvaluationQueueFull:
		return 429
	case c == ServiceUnavailable, c == BackendUnavailable, c == CatalogUnavailable:
		return 503
	case c == UnsupportedLanguage:
		return 422
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == SourceTooLarge, c == InputTooLarge, c == TestCaseInvalid:
		return 400
	case c == DuplicateEvaluation:
		return 409
	default:
		return 500
	}
}
