// Package service orchestrates evaluations: it resolves the problem
// suite, runs it through the harness under the global execution cap,
// aggregates the score, and hands the report to the publisher. It also
// owns the cancellation registry keyed by submission id.
package service

import (
	"context"
	"sync"
	"time"

	"codeval/internal/eval/catalog"
	"codeval/internal/eval/harness"
	"codeval/internal/eval/language"
	"codeval/internal/eval/model"
	"codeval/internal/eval/repository"
	"codeval/internal/eval/sandbox/backend"
	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
	"codeval/internal/eval/scoring"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	// maxSourceBytes rejects pathological submissions before any
	// sandbox resource is touched.
	maxSourceBytes = 256 << 10

	// maxAdhocInputBytes bounds caller-supplied stdin for ad-hoc runs.
	maxAdhocInputBytes = 1 << 20

	adhocTimeLimitMs   = 5000
	adhocMemoryLimitMB = 256
)

type Service struct {
	catalog   catalog.Source
	harness   *harness.Harness
	registry  *language.Registry
	selector  *backend.Selector
	slots     *SlotPool
	publisher repository.ReportPublisher

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewService(src catalog.Source, h *harness.Harness, reg *language.Registry, sel *backend.Selector, slots *SlotPool, pub repository.ReportPublisher) *Service {
	if pub == nil {
		pub = repository.NoopPublisher{}
	}
	return &Service{
		catalog:   src,
		harness:   h,
		registry:  reg,
		selector:  sel,
		slots:     slots,
		publisher: pub,
		active:    make(map[string]context.CancelFunc),
	}
}

// Evaluate grades one submission against its problem's full suite and
// returns the report. Infrastructure faults surface as errors, never as
// a zero score. A cancelled evaluation returns a report with status
// cancelled and no score.
func (s *Service) Evaluate(ctx context.Context, req model.EvaluationRequest) (model.EvaluationReport, error) {
	if err := validateEvaluationRequest(req); err != nil {
		return model.EvaluationReport{}, err
	}
	// Unknown language fails here, before any process spawns or the
	// suite is even fetched.
	if _, err := s.registry.Get(req.Language); err != nil {
		return model.EvaluationReport{}, err
	}

	ctx = logger.WithSubmission(ctx, req.SubmissionID)
	evalCtx, err := s.register(ctx, req.SubmissionID)
	if err != nil {
		return model.EvaluationReport{}, err
	}
	defer s.unregister(req.SubmissionID)

	problem, err := s.resolveProblem(evalCtx, req)
	if err != nil {
		return model.EvaluationReport{}, err
	}

	logger.Info(evalCtx, "evaluation started",
		zap.String("problem_id", problem.ID),
		zap.String("language", req.Language),
		zap.Int("test_cases", len(problem.TestCases)))

	outcome, err := s.harness.RunSuite(evalCtx, req, problem)
	if err != nil {
		if appErr.GetCode(err) == appErr.EvaluationCancelled {
			report := s.cancelledReport(req)
			s.publish(ctx, report)
			return report, nil
		}
		logger.Error(evalCtx, "evaluation aborted", zap.Error(err))
		return model.EvaluationReport{}, err
	}

	report := scoring.Aggregate(req, problem.TestCases, outcome.Results)
	report.Backend = string(outcome.Backend)
	if report.ProblemID == "" {
		report.ProblemID = problem.ID
	}

	logger.Info(evalCtx, "evaluation completed",
		zap.Float64("overall_score", report.OverallScore),
		zap.String("backend", report.Backend))

	s.publish(ctx, report)
	return report, nil
}

// RunAdhoc executes code once against caller-supplied input, outside
// any problem suite. No scoring, no redaction, no publishing.
func (s *Service) RunAdhoc(ctx context.Context, req model.RunRequest) (model.RunResponse, error) {
	if req.Code == "" {
		return model.RunResponse{}, appErr.ValidationError("code", "required")
	}
	if len(req.Code) > maxSourceBytes {
		return model.RunResponse{}, appErr.New(appErr.SourceTooLarge).WithMessage("source exceeds size limit")
	}
	if len(req.Input) > maxAdhocInputBytes {
		return model.RunResponse{}, appErr.New(appErr.InputTooLarge).WithMessage("input exceeds size limit")
	}
	langSpec, err := s.registry.Get(req.Language)
	if err != nil {
		return model.RunResponse{}, err
	}

	exec, err := s.selector.Executor(ctx)
	if err != nil {
		return model.RunResponse{}, err
	}
	if err := s.slots.Acquire(ctx); err != nil {
		return model.RunResponse{}, err
	}
	defer s.slots.Release()

	unit, err := langSpec.Materialize(req.Code, req.Input)
	if err != nil {
		return model.RunResponse{}, err
	}
	limits := spec.ResourceLimit{TimeLimitMs: req.TimeLimitMs}
	limits = limits.Merge(spec.ResourceLimit{TimeLimitMs: adhocTimeLimitMs, MemoryLimitMB: adhocMemoryLimitMB})
	limits = langSpec.ScaleLimits(limits)

	submissionID := req.SubmissionID
	if submissionID == "" {
		submissionID = "adhoc"
	}
	res, err := exec.Execute(ctx, spec.RunSpec{
		SubmissionID: submissionID,
		TestID:       "adhoc",
		Language:     langSpec.ID,
		Files:        unit.Files,
		CompileCmd:   unit.CompileCmd,
		RunCmd:       unit.RunCmd,
		Stdin:        unit.Stdin,
		Env:          unit.Env,
		Limits:       limits,
	})
	if err != nil {
		return model.RunResponse{}, err
	}
	return adhocResponse(res, exec.Backend()), nil
}

// Cancel stops an in-flight evaluation. Returns false when no
// evaluation with that id is running.
func (s *Service) Cancel(submissionID string) bool {
	s.mu.Lock()
	cancel, ok := s.active[submissionID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// BackendStatus reports the selector state for the status endpoint.
type BackendStatus struct {
	State        string   `json:"state"`
	ProbeError   string   `json:"probeError,omitempty"`
	SlotsInUse   int      `json:"slotsInUse"`
	SlotCapacity int      `json:"slotCapacity"`
	Languages    []string `json:"languages"`
}

func (s *Service) BackendStatus() BackendStatus {
	st := BackendStatus{
		State:        string(s.selector.State()),
		SlotsInUse:   s.slots.InUse(),
		SlotCapacity: s.slots.Capacity(),
		Languages:    s.registry.Languages(),
	}
	if err := s.selector.ProbeError(); err != nil {
		st.ProbeError = err.Error()
	}
	return st
}

func (s *Service) Close() error {
	s.mu.Lock()
	for _, cancel := range s.active {
		cancel()
	}
	s.mu.Unlock()
	return s.publisher.Close()
}

func (s *Service) register(ctx context.Context, submissionID string) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.active[submissionID]; exists {
		return nil, appErr.Newf(appErr.DuplicateEvaluation, "submission %s is already being evaluated", submissionID)
	}
	evalCtx, cancel := context.WithCancel(ctx)
	s.active[submissionID] = cancel
	return evalCtx, nil
}

func (s *Service) unregister(submissionID string) {
	s.mu.Lock()
	if cancel, ok := s.active[submissionID]; ok {
		cancel()
		delete(s.active, submissionID)
	}
	s.mu.Unlock()
}

func (s *Service) publish(ctx context.Context, report model.EvaluationReport) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.publisher.PublishReport(pubCtx, report); err != nil {
		logger.Error(ctx, "report publish failed",
			zap.String("submission_id", report.SubmissionID), zap.Error(err))
	}
}

func (s *Service) cancelledReport(req model.EvaluationRequest) model.EvaluationReport {
	return model.EvaluationReport{
		SubmissionID: req.SubmissionID,
		ProblemID:    req.ProblemID,
		UserID:       req.UserID,
		Language:     req.Language,
		Status:       model.StatusCancelled,
		Feedback:     model.Feedback{Overall: "Evaluation was cancelled before completion. No score was assigned."},
		CreatedAt:    time.Now().UTC(),
	}
}

// resolveProblem picks the suite: inline cases when the caller supplied
// them, otherwise the catalog.
func (s *Service) resolveProblem(ctx context.Context, req model.EvaluationRequest) (model.Problem, error) {
	if len(req.TestCases) > 0 {
		return catalog.InlineProblem(req.ProblemID, req.TimeLimitMs, req.MemoryLimitMB, req.TestCases)
	}
	return s.catalog.Problem(ctx, req.ProblemID)
}

func validateEvaluationRequest(req model.EvaluationRequest) error {
	if req.SubmissionID == "" {
		return appErr.ValidationError("submissionId", "required")
	}
	if req.ProblemID == "" && len(req.TestCases) == 0 {
		return appErr.ValidationError("problemId", "required when no inline test cases are given")
	}
	if req.Code == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(req.Code) > maxSourceBytes {
		return appErr.New(appErr.SourceTooLarge).WithMessage("source exceeds size limit")
	}
	return nil
}

func adhocResponse(res result.ExecutionResult, be result.Backend) model.RunResponse {
	out := model.RunResponse{
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		ExitCode:  res.ExitCode,
		RuntimeMs: int64(res.RuntimeMs),
		MemoryKB:  uint64(res.MemoryKB),
		Backend:   string(be),
	}
	switch res.Outcome {
	case result.OutcomeTimedOut:
		out.ErrorKind = model.ErrorTimedOut
	case result.OutcomeKilled:
		out.ErrorKind = model.ErrorRuntime
	case result.OutcomeCompileError:
		out.ErrorKind = model.ErrorCompile
	case result.OutcomeToolchainMissing:
		out.ErrorKind = model.ErrorToolchainMissing
	default:
		if res.StdoutTruncated || res.StderrTruncated {
			out.ErrorKind = model.ErrorOutputTruncated
		} else if res.ExitCode != 0 {
			out.ErrorKind = model.ErrorRuntime
		}
	}
	return out
}
