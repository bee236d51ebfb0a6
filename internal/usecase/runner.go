package usecase

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/logg"
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const runnerServiceName = "RunnerService"

// RunnerService runs one objective at a time through the action loop and
// lets Stop cancel the run in flight.
type RunnerService struct {
	loop   ports.ActionLoop
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

type RunnerServiceParams struct {
	fx.In

	Loop   ports.ActionLoop
	Logger *zap.Logger
}

func NewRunnerService(params RunnerServiceParams) *RunnerService {
	return &RunnerService{
		loop:   params.Loop,
		logger: params.Logger.With(zap.String(logg.Layer, runnerServiceName)),
	}
}

func (s *RunnerService) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}
}

func (s *RunnerService) Execute(ctx context.Context, objective string) (*entity.RunResult, error) {
	ctx, done := s.begin(ctx)
	defer done()

	return s.loop.Execute(ctx, objective)
}

func (s *RunnerService) Verify(ctx context.Context, condition string) (*entity.Verification, error) {
	ctx, done := s.begin(ctx)
	defer done()

	return s.loop.VerifyDetailed(ctx, condition)
}

// Stop cancels the current run, if any. The loop reports the cancellation
// as a failed run.
func (s *RunnerService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	s.logger.Info("Stopping current run")
	cancel()
}
