package vision

import (
	"canvas-e2e/internal/canvas"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/internal/prompts"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	executorName   = "VisionExecutor"
	executorTracer = "vision.executor"

	DefaultMaxSteps = 10

	reasonExhausted = "step budget exhausted"
)

// Options tunes a run. A non-positive MaxSteps selects DefaultMaxSteps. A
// zero StepDelay disables the settle pause after each action.
type Options struct {
	MaxSteps  int
	StepDelay time.Duration
	// Knowledge is appended to every decision prompt.
	Knowledge string
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}

	if o.StepDelay < 0 {
		o.StepDelay = 0
	}

	return o
}

// Executor drives one objective through capture, decide and act cycles
// against a single page.
type Executor struct {
	page      ports.Page
	gateway   ports.Gateway
	extractor ports.StateExtractor
	options   Options
	logger    *zap.Logger
	tracer    trace.Tracer
	sleep     func(ctx context.Context, d time.Duration) error
}

type Params struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Page      ports.Page
	Gateway   ports.Gateway
	Extractor ports.StateExtractor
}

func NewExecutor(params Params) *Executor {
	return New(params.Page, params.Gateway, params.Extractor, params.Logger, Options{
		MaxSteps:  params.Config.VisionConfig.MaxSteps,
		StepDelay: params.Config.VisionConfig.StepDelay,
		Knowledge: prompts.CanvasKnowledge(),
	})
}

// New builds an executor. extractor may be nil, in which case prompts carry
// no canvas state.
func New(page ports.Page, gateway ports.Gateway, extractor ports.StateExtractor, logger *zap.Logger, options Options) *Executor {
	return &Executor{
		page:      page,
		gateway:   gateway,
		extractor: extractor,
		options:   options.withDefaults(),
		logger:    logger.With(zap.String(logg.Layer, executorName)),
		tracer:    otel.Tracer(executorTracer),
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs the loop until the model reports done or failed, or the step
// budget is spent. Loop outcomes are reported in the result; an error is
// returned only for an empty objective.
func (x *Executor) Execute(ctx context.Context, objective string) (result *entity.RunResult, err error) {
	const op = "Execute"
	logger := x.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, x.tracer, logger, op,
		attribute.String("objective", objective),
		attribute.Int("max_steps", x.options.MaxSteps))
	defer func() {
		step.End(err)
	}()

	if strings.TrimSpace(objective) == "" {
		return nil, apperr.InvalidReqError(op, "objective", errors.New("objective cannot be empty"))
	}

	result = &entity.RunResult{
		ID:        uuid.New(),
		Objective: objective,
		StartedAt: time.Now(),
	}

	logger = logger.With(zap.String(logg.RunID, result.ID.String()))
	logger.Info("Run started", zap.String("objective", objective))

	history := make([]string, 0, x.options.MaxSteps)

	finish := func(status entity.RunStatus, reason string) *entity.RunResult {
		result.Status = status
		result.Success = status == entity.RunStatusSucceeded
		result.Reason = reason
		result.Steps = history
		result.FinishedAt = time.Now()

		step.SetAttributes(
			attribute.String("status", string(status)),
			attribute.Int("steps", len(history)))
		logger.Info("Run finished",
			zap.String("status", string(status)),
			zap.String("reason", reason),
			zap.Int("steps", len(history)))

		return result
	}

	for stepNum := 1; stepNum <= x.options.MaxSteps; stepNum++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(entity.RunStatusFailed, ctxErr.Error()), nil
		}

		action := x.runStep(ctx, logger.With(zap.Int(logg.Step, stepNum)), objective, &history)

		switch action.Type {
		case entity.ActionTypeDone:
			return finish(entity.RunStatusSucceeded, action.Reason), nil
		case entity.ActionTypeFailed:
			return finish(entity.RunStatusFailed, action.Reason), nil
		}
	}

	return finish(entity.RunStatusExhausted, reasonExhausted), nil
}

// runStep decides one action, records it in history and executes it unless
// it is terminal.
func (x *Executor) runStep(ctx context.Context, logger *zap.Logger, objective string, history *[]string) entity.Action {
	const op = "Step"

	ctx, step := tracing.StartSpan(ctx, x.tracer, logger, op,
		attribute.Int("history", len(*history)))

	var err error
	defer func() {
		step.End(err)
	}()

	action := x.decide(ctx, logger, objective, *history)
	*history = append(*history, historyLine(action))

	step.SetAttributes(attribute.String("action", string(action.Type)))
	logger.Info("Action decided",
		zap.String(logg.Action, string(action.Type)),
		zap.String("target", action.Target),
		zap.String("reason", action.Reason))

	if action.Type.Terminal() {
		return action
	}

	if !x.executeAction(ctx, logger, action) {
		logger.Warn("Action not executed, continuing", zap.String(logg.Action, string(action.Type)))
		step.AddEvent("action not executed")
	}

	return action
}

// decide captures the view and asks the gateway for the next action. Any
// failure becomes a failed action carrying the cause.
func (x *Executor) decide(ctx context.Context, logger *zap.Logger, objective string, history []string) entity.Action {
	shot, err := x.page.Screenshot(ctx)
	if err != nil {
		logger.Error("Screenshot failed", zap.Error(err))

		return entity.Action{Type: entity.ActionTypeFailed, Reason: err.Error()}
	}

	var state *entity.CanvasState
	if x.extractor != nil {
		state = x.extractor.Extract(ctx, x.page)
	}

	prompt := prompts.Decision(objective, history, canvas.Guidance(state), x.options.Knowledge)

	reply, err := x.gateway.AnalyzeImage(ctx, base64.StdEncoding.EncodeToString(shot), prompt)
	if err != nil {
		logger.Error("Decision request failed", zap.Error(err))

		return entity.Action{Type: entity.ActionTypeFailed, Reason: err.Error()}
	}

	action := decodeAction(reply)
	if action.Reason == reasonUnparseable && action.Type == entity.ActionTypeFailed {
		logger.Warn("Unparseable decision", zap.String("reply", truncate(reply, 200)))
	}

	return action
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
