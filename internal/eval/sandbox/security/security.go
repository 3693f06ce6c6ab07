// Package security defines the isolation contract between the executor
// and the sandbox-init helper binary.
package security

import "codeval/internal/eval/sandbox/spec"

// InitRequest is the JSON document the executor writes to the helper's
// stdin. The helper applies rlimits, redirects IO, optionally installs
// the seccomp filter, then execs the target command.
type InitRequest struct {
	WorkDir    string             `json:"workDir"`
	Cmd        []string           `json:"cmd"`
	Env        []string           `json:"env"`
	StdinPath  string             `json:"stdinPath"`
	StdoutPath string             `json:"stdoutPath"`
	StderrPath string             `json:"stderrPath"`
	Limits     spec.ResourceLimit `json:"limits"`
	Seccomp    string             `json:"seccomp"`
}
