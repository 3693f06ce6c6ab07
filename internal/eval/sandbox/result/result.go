// Package result defines sandbox execution results and outcome mapping.
package result

// Outcome is the terminal state of one execution. Exactly one holds.
type Outcome string

const (
	OutcomeCompleted        Outcome = "Completed"
	OutcomeTimedOut         Outcome = "TimedOut"
	OutcomeKilled           Outcome = "Killed"
	OutcomeToolchainMissing Outcome = "ToolchainMissing"
	OutcomeCompileError     Outcome = "CompileError"
)

// Backend identifies the isolation mechanism that served an execution.
type Backend string

const (
	BackendIsolated Backend = "Isolated"
	BackendDirect   Backend = "Direct"
)

// TruncationMarker is appended to any captured stream that hit its byte ceiling.
const TruncationMarker = "\n... [output truncated]"

// ExecutionResult captures raw execution data for one RunSpec.
type ExecutionResult struct {
	Stdout          string  `json:"stdout"`
	Stderr          string  `json:"stderr"`
	StdoutTruncated bool    `json:"stdoutTruncated"`
	StderrTruncated bool    `json:"stderrTruncated"`
	ExitCode        int     `json:"exitCode"`
	RuntimeMs       uint    `json:"runtimeMs"`
	MemoryKB        uint    `json:"memoryKb"` // best-effort; 0 means unavailable
	Outcome         Outcome `json:"outcome"`
	BackendUsed     Backend `json:"backendUsed"`
}

// Completed reports whether the run finished normally and its output
// is eligible for comparison.
func (r ExecutionResult) Completed() bool {
	return r.Outcome == OutcomeCompleted
}
