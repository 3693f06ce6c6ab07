package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codeval/internal/eval/model"
	appErr "codeval/pkg/errors"
)

func writeProblem(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write problem file: %v", err)
	}
}

func TestLocalSourceLoadsAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	writeProblem(t, dir, "sum-array.json", `{
		"title": "Sum of Array",
		"testCases": [
			{"input": "1 2 3", "expectedOutput": "6", "visibility": "visible"},
			{"input": "", "expectedOutput": "0", "weight": 2, "category": "edge"}
		]
	}`)

	src := NewLocalSource(dir)
	p, err := src.Problem(context.Background(), "sum-array")
	if err != nil {
		t.Fatalf("load problem: %v", err)
	}
	if p.ID != "sum-array" {
		t.Fatalf("id should default to the file name, got %q", p.ID)
	}
	if p.TimeLimitMs == 0 || p.MemoryLimitMB == 0 {
		t.Fatalf("limits should get defaults: %+v", p)
	}
	tc := p.TestCases[0]
	if tc.ID == "" {
		t.Fatal("test case id should be generated")
	}
	if tc.Weight != 1 {
		t.Fatalf("weight should default to 1, got %v", tc.Weight)
	}
	if tc.Category != model.CategoryBasic {
		t.Fatalf("category should default to basic, got %s", tc.Category)
	}
	if p.TestCases[1].Visibility != model.VisibilityHidden {
		t.Fatalf("visibility should default to hidden, got %s", p.TestCases[1].Visibility)
	}
	if p.TestCases[1].Weight != 2 {
		t.Fatalf("explicit weight overridden: %v", p.TestCases[1].Weight)
	}
}

func TestLocalSourceNotFound(t *testing.T) {
	src := NewLocalSource(t.TempDir())
	_, err := src.Problem(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected not found")
	}
	if code := appErr.GetCode(err); code != appErr.ProblemNotFound {
		t.Fatalf("expected ProblemNotFound, got %d", code)
	}
}

func TestLocalSourceRejectsPathTraversal(t *testing.T) {
	src := NewLocalSource(t.TempDir())
	for _, id := range []string{"../etc/passwd", "a/b", `a\b`, ""} {
		if _, err := src.Problem(context.Background(), id); err == nil {
			t.Errorf("id %q should be rejected", id)
		}
	}
}

func TestNormalizeRejectsDuplicateIDs(t *testing.T) {
	_, err := normalizeProblem(model.Problem{
		ID: "p",
		TestCases: []model.TestCase{
			{ID: "dup"},
			{ID: "dup"},
		},
	})
	if err == nil {
		t.Fatal("duplicate test ids should be rejected")
	}
	if code := appErr.GetCode(err); code != appErr.TestCaseInvalid {
		t.Fatalf("expected TestCaseInvalid, got %d", code)
	}
}

func TestNormalizeProvisionalWeight(t *testing.T) {
	p, err := normalizeProblem(model.Problem{
		ID: "p",
		TestCases: []model.TestCase{
			{ID: "synth", Provisional: true},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.TestCases[0].Weight != 0 {
		t.Fatalf("provisional cases must not default to scoring weight, got %v", p.TestCases[0].Weight)
	}
}
