// Package spec defines the execution specification and resource limits.
package spec

// ResourceLimit describes hard limits enforced on one execution.
type ResourceLimit struct {
	TimeLimitMs   uint
	MemoryLimitMB uint
	OutputBytes   int64
	PIDs          int64
}

// Merge returns l with zero fields filled in from defaults.
func (l ResourceLimit) Merge(defaults ResourceLimit) ResourceLimit {
	out := l
	if out.TimeLimitMs == 0 {
		out.TimeLimitMs = defaults.TimeLimitMs
	}
	if out.MemoryLimitMB == 0 {
		out.MemoryLimitMB = defaults.MemoryLimitMB
	}
	if out.OutputBytes == 0 {
		out.OutputBytes = defaults.OutputBytes
	}
	if out.PIDs == 0 {
		out.PIDs = defaults.PIDs
	}
	return out
}

// RunSpec is the materialized, ready-to-execute unit handed to an executor.
// Files are written into the scratch directory before any process spawns.
type RunSpec struct {
	SubmissionID string
	TestID       string
	Language     string

	// Files maps scratch-relative paths to contents.
	Files map[string][]byte

	// CompileCmd is empty for languages without a compile step.
	CompileCmd []string
	RunCmd     []string

	// Stdin is fed to the run step, never to the compile step.
	Stdin string

	Env    []string
	Limits ResourceLimit
}
