// Package language maps language identifiers to build/run recipes and
// materializes self-contained executable units from submitted source
// and injected test input.
package language

import (
	"strings"

	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"

	"github.com/google/shlex"
)

// Unit is the ready-to-run product of one adapter call: files to place
// in the scratch directory, the commands to build and run them, and the
// test input delivered on stdin. Input never gets spliced into source
// text, so there is no escaping surface to get wrong.
type Unit struct {
	Files      map[string][]byte
	CompileCmd []string
	RunCmd     []string
	Stdin      string
	Env        []string
}

// Spec defines how one language compiles and runs. Command templates
// support the {source_file} and {binary_file} placeholders and are
// tokenized with shell-style quoting.
type Spec struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	SourceFile string   `yaml:"sourceFile"`
	BinaryFile string   `yaml:"binaryFile"`
	CompileTpl string   `yaml:"compileCmd"` // empty means no compile step
	RunTpl     string   `yaml:"runCmd"`
	Env        []string `yaml:"env"`

	// Interpreted and VM languages get proportionally looser budgets.
	TimeMultiplier   float64 `yaml:"timeMultiplier"`
	MemoryMultiplier float64 `yaml:"memoryMultiplier"`
}

// Materialize builds the executable unit for one submission and one
// test input. It performs no IO and spawns nothing.
func (s Spec) Materialize(code, input string) (Unit, error) {
	if s.SourceFile == "" {
		return Unit{}, appErr.ValidationError("source_file", "required")
	}
	runCmd, err := buildCommand(s.RunTpl, s)
	if err != nil {
		return Unit{}, err
	}

	unit := Unit{
		Files:  map[string][]byte{s.SourceFile: []byte(code)},
		RunCmd: runCmd,
		Stdin:  ensureTrailingNewline(input),
		Env:    s.Env,
	}
	if s.CompileTpl != "" {
		compileCmd, err := buildCommand(s.CompileTpl, s)
		if err != nil {
			return Unit{}, err
		}
		unit.CompileCmd = compileCmd
	}
	return unit, nil
}

// ScaleLimits applies the language multipliers to a limit budget.
func (s Spec) ScaleLimits(limits spec.ResourceLimit) spec.ResourceLimit {
	out := limits
	if s.TimeMultiplier > 1 {
		out.TimeLimitMs = uint(float64(limits.TimeLimitMs) * s.TimeMultiplier)
	}
	if s.MemoryMultiplier > 1 {
		out.MemoryLimitMB = uint(float64(limits.MemoryLimitMB) * s.MemoryMultiplier)
	}
	return out
}

func buildCommand(tpl string, s Spec) ([]string, error) {
	if tpl == "" {
		return nil, appErr.New(appErr.InvalidCommandTpl).WithMessage("empty command template")
	}
	expanded := strings.NewReplacer(
		"{source_file}", s.SourceFile,
		"{binary_file}", s.BinaryFile,
	).Replace(tpl)
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidCommandTpl, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidCommandTpl).WithMessage("command template produced no tokens")
	}
	return fields, nil
}

// ensureTrailingNewline keeps line-oriented readers from blocking on an
// unterminated final line.
func ensureTrailingNewline(input string) string {
	if input == "" || strings.HasSuffix(input, "\n") {
		return input
	}
	return input + "\n"
}
