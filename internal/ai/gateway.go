package ai

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	gatewayName   = "Gateway"
	gatewayTracer = "ai.gateway"
)

// Slot names one of the two provider positions of the gateway.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotFallback
)

func (s Slot) String() string {
	switch s {
	case SlotPrimary:
		return "primary"
	case SlotFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Gateway fronts a primary and a fallback reasoning provider. Either slot may
// be empty.
type Gateway struct {
	config    *config.AIConfig
	logger    *zap.Logger
	tracer    trace.Tracer
	providers [2]ports.ReasoningProvider
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// NewGateway builds the providers whose credentials are configured.
func NewGateway(params Params) *Gateway {
	aiConfig := params.Config.AIConfig

	primary := newProvider(aiConfig, aiConfig.PrimaryProvider, params.Logger)
	fallback := newProvider(aiConfig, aiConfig.FallbackProvider, params.Logger)

	return NewGatewayWithProviders(aiConfig, params.Logger, primary, fallback)
}

// NewGatewayWithProviders wires explicit providers; nil leaves the slot empty.
func NewGatewayWithProviders(aiConfig *config.AIConfig, logger *zap.Logger, primary, fallback ports.ReasoningProvider) *Gateway {
	g := &Gateway{
		config: aiConfig,
		logger: logger.With(zap.String(logg.Layer, gatewayName)),
		tracer: otel.Tracer(gatewayTracer),
	}

	if primary != nil {
		g.providers[SlotPrimary] = primary
	}

	if fallback != nil {
		g.providers[SlotFallback] = fallback
	}

	return g
}

func newProvider(aiConfig *config.AIConfig, name string, logger *zap.Logger) ports.ReasoningProvider {
	if aiConfig.APIKey(name) == "" {
		return nil
	}

	switch name {
	case config.ProviderAnthropic:
		return NewAnthropicProvider(aiConfig, logger)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(aiConfig, logger)
	default:
		return nil
	}
}

func (g *Gateway) provider(slot Slot) ports.ReasoningProvider {
	return g.providers[slot]
}

func (g *Gateway) request(slot Slot, prompt string) entity.CompletionRequest {
	model := g.config.Primary()
	if slot == SlotFallback {
		model = g.config.Fallback()
	}

	return entity.CompletionRequest{
		Model:       model.Model,
		MaxTokens:   model.MaxTokens,
		Temperature: model.Temperature,
		Prompt:      prompt,
	}
}

// GenerateText tries the primary slot then the fallback slot, or only the
// fallback when usePrimary is false. At most two attempts are made.
func (g *Gateway) GenerateText(ctx context.Context, prompt string, usePrimary bool) (text string, err error) {
	const op = "GenerateText"
	logger := g.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, g.tracer, logger, op,
		attribute.Bool("use_primary", usePrimary))
	defer func() {
		step.End(err)
	}()

	slots := []Slot{SlotFallback}
	if usePrimary {
		slots = []Slot{SlotPrimary, SlotFallback}
	}

	var (
		attempted bool
		lastErr   error
		lastSlot  Slot
	)

	for _, slot := range slots {
		provider := g.provider(slot)
		if provider == nil {
			logger.Debug("Slot not configured", zap.String(logg.Slot, slot.String()))

			continue
		}

		attempted = true
		lastSlot = slot
		step.AddEvent("attempt", attribute.String("slot", slot.String()), attribute.String("provider", provider.Name()))

		text, err = provider.Complete(ctx, g.request(slot, prompt))
		if err == nil {
			return text, nil
		}

		lastErr = err
		logger.Warn("Provider call failed",
			zap.String(logg.Slot, slot.String()),
			zap.String(logg.Provider, provider.Name()),
			zap.Error(err))
	}

	if !attempted {
		return "", apperr.Wrap(op, apperr.CodeProviderUnavailable, errors.New("no reasoning provider configured"), map[string]any{
			apperr.MetaReason: "no_provider",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	return "", apperr.Wrap(op, apperr.CodeAIError, lastErr, map[string]any{
		apperr.MetaReason: "all_providers_failed",
		apperr.MetaStage:  apperr.StageAI,
		apperr.MetaSlot:   lastSlot.String(),
	})
}

// AnalyzeImage sends the image and prompt to the fallback slot, which is the
// one wired for image input.
func (g *Gateway) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (text string, err error) {
	const op = "AnalyzeImage"
	logger := g.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, g.tracer, logger, op,
		attribute.Int("image_size", len(imageBase64)))
	defer func() {
		step.End(err)
	}()

	vision, ok := g.provider(SlotFallback).(ports.VisionProvider)
	if !ok {
		return "", apperr.Wrap(op, apperr.CodeNoVisionProvider, errors.New("no image-capable provider configured"), map[string]any{
			apperr.MetaReason: "no_vision_provider",
			apperr.MetaStage:  apperr.StageAI,
			apperr.MetaSlot:   SlotFallback.String(),
		})
	}

	req := g.request(SlotFallback, prompt)
	req.MaxTokens = g.config.VisionMaxTokens

	text, err = vision.CompleteWithImage(ctx, req, imageBase64)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason:   "image_analysis_failed",
			apperr.MetaStage:    apperr.StageAI,
			apperr.MetaProvider: vision.Name(),
		})
	}

	return text, nil
}

func (g *Gateway) IsAvailable() bool {
	return g.provider(SlotPrimary) != nil || g.provider(SlotFallback) != nil
}

func (g *Gateway) ProviderInfo() entity.ProviderInfo {
	var info entity.ProviderInfo

	if p := g.provider(SlotPrimary); p != nil {
		info.Primary = p.Name()
	}

	if p := g.provider(SlotFallback); p != nil {
		info.Fallback = p.Name()
	}

	return info
}
