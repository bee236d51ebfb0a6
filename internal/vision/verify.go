package vision

import (
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

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var _ ports.ActionLoop = (*Executor)(nil)

// Verify reports whether condition holds on the current view. Any failure
// along the way is logged and reported as false.
func (x *Executor) Verify(ctx context.Context, condition string) bool {
	verification, err := x.VerifyDetailed(ctx, condition)
	if err != nil {
		x.logger.Warn("Verification failed", zap.String("condition", condition), zap.Error(err))

		return false
	}

	return verification.Satisfied
}

// VerifyDetailed asks the vision slot whether condition holds and returns its
// verdict with the stated reason.
func (x *Executor) VerifyDetailed(ctx context.Context, condition string) (verification *entity.Verification, err error) {
	const op = "VerifyDetailed"
	logger := x.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, x.tracer, logger, op, attribute.String("condition", condition))
	defer func() {
		step.End(err)
	}()

	if strings.TrimSpace(condition) == "" {
		return nil, apperr.InvalidReqError(op, "condition", errors.New("condition cannot be empty"))
	}

	shot, err := x.page.Screenshot(ctx)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "screenshot",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	reply, err := x.gateway.AnalyzeImage(ctx, base64.StdEncoding.EncodeToString(shot), prompts.Verification(condition))
	if err != nil {
		return nil, err
	}

	verification, err = parseVerification(reply)
	if err != nil {
		logger.Warn("Unparseable verification", zap.String("reply", truncate(reply, 200)))

		return nil, apperr.Wrap(op, apperr.CodeActionParse, err, map[string]any{
			apperr.MetaReason: reasonUnparseable,
			apperr.MetaStage:  apperr.StageVision,
		})
	}

	step.SetAttributes(attribute.Bool("satisfied", verification.Satisfied))
	logger.Info("Verified",
		zap.String("condition", condition),
		zap.Bool("satisfied", verification.Satisfied),
		zap.String("reason", verification.Reason))

	return verification, nil
}

// RunObjective runs a single objective on page with a throwaway executor.
func RunObjective(ctx context.Context, page ports.Page, gateway ports.Gateway, extractor ports.StateExtractor,
	logger *zap.Logger, objective string, options Options,
) (*entity.RunResult, error) {
	return New(page, gateway, extractor, logger, options).Execute(ctx, objective)
}

// VerifyCondition checks one condition on page with a throwaway executor.
func VerifyCondition(ctx context.Context, page ports.Page, gateway ports.Gateway, logger *zap.Logger, condition string) bool {
	return New(page, gateway, nil, logger, Options{}).Verify(ctx, condition)
}
