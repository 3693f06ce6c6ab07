package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeval/internal/eval/harness"
	"codeval/internal/eval/language"
	"codeval/internal/eval/model"
	"codeval/internal/eval/sandbox/backend"
	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"
)

type fakeExecutor struct {
	mu            sync.Mutex
	stdoutByTest  map[string]string
	blockUntilCtx bool
	started       chan struct{}
	startedOnce   sync.Once

	calls         atomic.Int64
	inFlight      atomic.Int64
	maxConcurrent atomic.Int64
}

func (f *fakeExecutor) Execute(ctx context.Context, rs spec.RunSpec) (result.ExecutionResult, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxConcurrent.Load()
		if cur <= prev || f.maxConcurrent.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.started != nil {
		f.startedOnce.Do(func() { close(f.started) })
	}
	if f.blockUntilCtx {
		<-ctx.Done()
		return result.ExecutionResult{}, ctx.Err()
	}
	time.Sleep(5 * time.Millisecond)
	f.mu.Lock()
	stdout := f.stdoutByTest[rs.TestID]
	f.mu.Unlock()
	return result.ExecutionResult{Stdout: stdout, Outcome: result.OutcomeCompleted}, nil
}

func (f *fakeExecutor) Backend() result.Backend { return result.BackendDirect }

type fakeCatalog struct {
	problem model.Problem
	err     error
}

func (f fakeCatalog) Problem(context.Context, string) (model.Problem, error) {
	return f.problem, f.err
}

type capturingPublisher struct {
	mu      sync.Mutex
	reports []model.EvaluationReport
}

func (p *capturingPublisher) PublishReport(_ context.Context, r model.EvaluationReport) error {
	p.mu.Lock()
	p.reports = append(p.reports, r)
	p.mu.Unlock()
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) last() (model.EvaluationReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reports) == 0 {
		return model.EvaluationReport{}, false
	}
	return p.reports[len(p.reports)-1], true
}

func newTestService(exec *fakeExecutor, problem model.Problem, poolSize, parallelism int) (*Service, *capturingPublisher) {
	selector := backend.NewSelector(nil, exec, nil)
	registry := language.DefaultRegistry()
	slots := NewSlotPool(poolSize)
	h := harness.New(selector, registry, slots, harness.Config{Parallelism: parallelism})
	pub := &capturingPublisher{}
	svc := NewService(fakeCatalog{problem: problem}, h, registry, selector, slots, pub)
	return svc, pub
}

func suiteProblem(n int, expected string) model.Problem {
	p := model.Problem{ID: "p-1", TimeLimitMs: 1000, MemoryLimitMB: 64}
	for i := 0; i < n; i++ {
		p.TestCases = append(p.TestCases, model.TestCase{
			ID:             "t" + string(rune('a'+i)),
			ExpectedOutput: expected,
			Weight:         1,
			Visibility:     model.VisibilityVisible,
			Category:       model.CategoryBasic,
		})
	}
	return p
}

func evalRequest(id string) model.EvaluationRequest {
	return model.EvaluationRequest{
		SubmissionID: id,
		ProblemID:    "p-1",
		Code:         "print(6)",
		Language:     "python",
	}
}

func TestEvaluateHappyPath(t *testing.T) {
	problem := suiteProblem(3, "6")
	exec := &fakeExecutor{stdoutByTest: map[string]string{"ta": "6\n", "tb": "6\n", "tc": "6\n"}}
	svc, pub := newTestService(exec, problem, 4, 2)

	report, err := svc.Evaluate(context.Background(), evalRequest("sub-1"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.OverallScore != 100 {
		t.Fatalf("overall score: got %v, want 100", report.OverallScore)
	}
	if report.Status != model.StatusCompleted {
		t.Fatalf("status: got %s", report.Status)
	}
	if report.Backend != string(result.BackendDirect) {
		t.Fatalf("backend: got %s", report.Backend)
	}
	published, ok := pub.last()
	if !ok {
		t.Fatal("report was not published")
	}
	if published.SubmissionID != "sub-1" || published.OverallScore != 100 {
		t.Fatalf("published report mismatch: %+v", published)
	}
}

func TestUnsupportedLanguageSpawnsNothing(t *testing.T) {
	exec := &fakeExecutor{}
	svc, pub := newTestService(exec, suiteProblem(2, "6"), 4, 2)

	req := evalRequest("sub-2")
	req.Language = "brainfuck"
	_, err := svc.Evaluate(context.Background(), req)
	if err == nil {
		t.Fatal("expected unsupported language error")
	}
	if code := appErr.GetCode(err); code != appErr.UnsupportedLanguage {
		t.Fatalf("expected UnsupportedLanguage, got %d", code)
	}
	if exec.calls.Load() != 0 {
		t.Fatalf("no process may spawn for unsupported language, got %d", exec.calls.Load())
	}
	if _, ok := pub.last(); ok {
		t.Fatal("nothing should be published for a rejected request")
	}
}

func TestGlobalConcurrencyCap(t *testing.T) {
	problem := suiteProblem(8, "6")
	exec := &fakeExecutor{stdoutByTest: map[string]string{}}
	// Pool of 2 slots, harness would happily run 8 at once.
	svc, _ := newTestService(exec, problem, 2, 8)

	if _, err := svc.Evaluate(context.Background(), evalRequest("sub-3")); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := exec.maxConcurrent.Load(); got > 2 {
		t.Fatalf("global cap violated: %d concurrent executions, cap 2", got)
	}
	if exec.calls.Load() != 8 {
		t.Fatalf("all cases should run: got %d calls", exec.calls.Load())
	}
}

func TestCancelReturnsExplicitCancelledStatus(t *testing.T) {
	problem := suiteProblem(2, "6")
	exec := &fakeExecutor{blockUntilCtx: true, started: make(chan struct{})}
	svc, pub := newTestService(exec, problem, 4, 2)

	type outcome struct {
		report model.EvaluationReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := svc.Evaluate(context.Background(), evalRequest("sub-4"))
		done <- outcome{report, err}
	}()

	<-exec.started
	if !svc.Cancel("sub-4") {
		t.Fatal("cancel should find the running evaluation")
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("cancellation must not surface as an error: %v", res.err)
	}
	if res.report.Status != model.StatusCancelled {
		t.Fatalf("status: got %s, want %s", res.report.Status, model.StatusCancelled)
	}
	if res.report.OverallScore != 0 || len(res.report.TestResults) != 0 {
		t.Fatalf("cancelled report must carry no score or results: %+v", res.report)
	}
	published, ok := pub.last()
	if !ok || published.Status != model.StatusCancelled {
		t.Fatalf("cancelled status should be published: %+v", published)
	}
}

func TestCancelUnknownSubmission(t *testing.T) {
	svc, _ := newTestService(&fakeExecutor{}, suiteProblem(1, "6"), 2, 1)
	if svc.Cancel("nope") {
		t.Fatal("cancel of unknown submission should report false")
	}
}

func TestDuplicateEvaluationRejected(t *testing.T) {
	problem := suiteProblem(1, "6")
	exec := &fakeExecutor{blockUntilCtx: true, started: make(chan struct{})}
	svc, _ := newTestService(exec, problem, 2, 1)

	go func() {
		_, _ = svc.Evaluate(context.Background(), evalRequest("sub-5"))
	}()
	<-exec.started

	_, err := svc.Evaluate(context.Background(), evalRequest("sub-5"))
	if err == nil {
		t.Fatal("expected duplicate evaluation error")
	}
	if code := appErr.GetCode(err); code != appErr.DuplicateEvaluation {
		t.Fatalf("expected DuplicateEvaluation, got %d", code)
	}
	svc.Cancel("sub-5")
}

func TestCatalogFaultIsNotAZeroScore(t *testing.T) {
	exec := &fakeExecutor{}
	selector := backend.NewSelector(nil, exec, nil)
	registry := language.DefaultRegistry()
	slots := NewSlotPool(2)
	h := harness.New(selector, registry, slots, harness.Config{})
	svc := NewService(fakeCatalog{err: appErr.New(appErr.CatalogUnavailable)}, h, registry, selector, slots, nil)

	_, err := svc.Evaluate(context.Background(), evalRequest("sub-6"))
	if err == nil {
		t.Fatal("catalog fault must abort the evaluation")
	}
	if code := appErr.GetCode(err); code != appErr.CatalogUnavailable {
		t.Fatalf("expected CatalogUnavailable, got %d", code)
	}
}

func TestBackendStatus(t *testing.T) {
	svc, _ := newTestService(&fakeExecutor{}, suiteProblem(1, "6"), 3, 1)
	st := svc.BackendStatus()
	if st.SlotCapacity != 3 {
		t.Fatalf("slot capacity: got %d, want 3", st.SlotCapacity)
	}
	if len(st.Languages) == 0 {
		t.Fatal("languages should be listed")
	}
}

func TestEvaluateInlineTestCases(t *testing.T) {
	exec := &fakeExecutor{stdoutByTest: map[string]string{"in1": "6\n", "in2": "6\n"}}
	selector := backend.NewSelector(nil, exec, nil)
	registry := language.DefaultRegistry()
	slots := NewSlotPool(4)
	h := harness.New(selector, registry, slots, harness.Config{Parallelism: 2})
	pub := &capturingPublisher{}
	// A failing catalog proves the inline suite never touches it.
	svc := NewService(fakeCatalog{err: appErr.New(appErr.CatalogUnavailable)}, h, registry, selector, slots, pub)

	req := model.EvaluationRequest{
		SubmissionID: "sub-inline",
		Code:         "print(6)",
		Language:     "python",
		TestCases: []model.TestCase{
			{ID: "in1", ExpectedOutput: "6", Visibility: model.VisibilityVisible, Category: model.CategoryBasic},
			{ID: "in2", ExpectedOutput: "6", Visibility: model.VisibilityVisible, Category: model.CategoryBasic},
		},
	}
	report, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.OverallScore != 100 {
		t.Fatalf("overall score: got %v, want 100", report.OverallScore)
	}
	if report.ProblemID != "inline" {
		t.Fatalf("problem id: got %q, want %q", report.ProblemID, "inline")
	}
}
