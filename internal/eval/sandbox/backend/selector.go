// Package backend chooses between the isolated sandbox backend and the
// direct-host fallback. The capability probe runs once per process
// lifetime and is cached; only an explicit Reprobe re-runs it.
package backend

import (
	"context"
	"sync"

	"codeval/internal/eval/sandbox/executor"
	"codeval/internal/eval/sandbox/result"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/logger"

	"go.uber.org/zap"
)

// State is the probe lifecycle of the selector.
type State string

const (
	StateUninitialized       State = "Uninitialized"
	StateProbing             State = "Probing"
	StateIsolatedAvailable   State = "IsolatedAvailable"
	StateIsolatedUnavailable State = "IsolatedUnavailable"
)

// Prober checks whether the isolated backend can serve on this host.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// DefaultProber probes namespace support through the executor package.
func DefaultProber(helperPath string) Prober {
	return ProberFunc(func(ctx context.Context) error {
		return executor.ProbeIsolation(ctx, helperPath)
	})
}

// Selector owns the probe state and hands out the executor to use.
type Selector struct {
	mu       sync.Mutex
	state    State
	probeErr error

	isolated executor.Executor
	direct   executor.Executor
	prober   Prober
}

// NewSelector creates a selector over the two backends. direct may not
// be nil; isolated may be nil to force the direct path.
func NewSelector(isolated, direct executor.Executor, prober Prober) *Selector {
	return &Selector{
		state:    StateUninitialized,
		isolated: isolated,
		direct:   direct,
		prober:   prober,
	}
}

// Executor returns the backend to run on, probing on first use.
func (s *Selector) Executor(ctx context.Context) (executor.Executor, error) {
	switch s.ensureProbed(ctx) {
	case StateIsolatedAvailable:
		return s.isolated, nil
	case StateIsolatedUnavailable:
		if s.direct == nil {
			return nil, appErr.New(appErr.BackendUnavailable)
		}
		return s.direct, nil
	default:
		return nil, appErr.New(appErr.BackendProbeFailed)
	}
}

// State reports the cached probe state without triggering a probe.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ProbeError returns the failure from the last probe, if any.
func (s *Selector) ProbeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeErr
}

// Reprobe discards the cached probe result. The next Executor call
// probes again. Intended for explicit reconfiguration only.
func (s *Selector) Reprobe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUninitialized
	s.probeErr = nil
}

func (s *Selector) ensureProbed(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIsolatedAvailable || s.state == StateIsolatedUnavailable {
		return s.state
	}

	s.state = StateProbing
	if s.isolated == nil || s.prober == nil {
		s.state = StateIsolatedUnavailable
		s.logFallback(ctx, nil)
		return s.state
	}
	if err := s.prober.Probe(ctx); err != nil {
		s.probeErr = err
		s.state = StateIsolatedUnavailable
		s.logFallback(ctx, err)
		return s.state
	}
	s.state = StateIsolatedAvailable
	logger.Info(ctx, "isolated sandbox backend available")
	return s.state
}

func (s *Selector) logFallback(ctx context.Context, err error) {
	logger.Warn(ctx, "isolated backend unavailable, falling back to direct host execution; unsafe for untrusted code in production",
		zap.String("backend", string(result.BackendDirect)),
		zap.Error(err))
}
