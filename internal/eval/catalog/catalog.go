// Package catalog resolves problems and their test suites from an
// external source. Suites are read-only here; this engine never
// authors or mutates test cases.
package catalog

import (
	"context"
	"fmt"

	"codeval/internal/eval/model"
	appErr "codeval/pkg/errors"
)

// Source fetches the authoritative problem definition.
type Source interface {
	Problem(ctx context.Context, problemID string) (model.Problem, error)
}

// InlineProblem builds a problem from caller-supplied cases, applying
// the same normalization a catalog-sourced suite gets.
func InlineProblem(problemID string, timeLimitMs, memoryLimitMB uint, cases []model.TestCase) (model.Problem, error) {
	if problemID == "" {
		problemID = "inline"
	}
	return normalizeProblem(model.Problem{
		ID:            problemID,
		TimeLimitMs:   timeLimitMs,
		MemoryLimitMB: memoryLimitMB,
		TestCases:     cases,
	})
}

// normalizeProblem applies defaults and rejects malformed suites before
// anything reaches the harness.
func normalizeProblem(p model.Problem) (model.Problem, error) {
	if p.ID == "" {
		return model.Problem{}, appErr.New(appErr.TestCaseInvalid).WithMessage("problem id missing")
	}
	if p.TimeLimitMs == 0 {
		p.TimeLimitMs = 2000
	}
	if p.MemoryLimitMB == 0 {
		p.MemoryLimitMB = 256
	}
	seen := make(map[string]struct{}, len(p.TestCases))
	for i := range p.TestCases {
		tc := &p.TestCases[i]
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("%s-tc%d", p.ID, i+1)
		}
		if _, dup := seen[tc.ID]; dup {
			return model.Problem{}, appErr.Newf(appErr.TestCaseInvalid, "duplicate test case id %s", tc.ID)
		}
		seen[tc.ID] = struct{}{}
		if tc.Weight <= 0 {
			if tc.Provisional {
				tc.Weight = 0
			} else {
				tc.Weight = 1
			}
		}
		if tc.Visibility == "" {
			tc.Visibility = model.VisibilityHidden
		}
		if tc.Category == "" {
			tc.Category = model.CategoryBasic
		}
	}
	return p, nil
}
