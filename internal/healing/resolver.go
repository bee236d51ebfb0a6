package healing

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/internal/prompts"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	resolverName   = "SelfHealingResolver"
	resolverTracer = "healing.resolver"
)

// tier is one named step of the escalation order. candidates is evaluated
// lazily so the suggestion tier only costs a model call when reached.
type tier struct {
	name       entity.Tier
	timeout    time.Duration
	learn      bool
	candidates func(ctx context.Context, page ports.Page, locator entity.Locator) []string
}

type Resolver struct {
	config  *config.HealingConfig
	logger  *zap.Logger
	tracer  trace.Tracer
	store   ports.KnowledgeStore
	gateway ports.Gateway
	tiers   []tier
}

type ResolverParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Store   ports.KnowledgeStore
	Gateway ports.Gateway
}

func NewResolver(params ResolverParams) *Resolver {
	r := &Resolver{
		config:  params.Config.HealingConfig,
		logger:  params.Logger.With(zap.String(logg.Layer, resolverName)),
		tracer:  otel.Tracer(resolverTracer),
		store:   params.Store,
		gateway: params.Gateway,
	}

	r.tiers = []tier{
		{
			name:    entity.TierOriginal,
			timeout: r.config.OriginalTimeout,
			candidates: func(_ context.Context, _ ports.Page, locator entity.Locator) []string {
				return []string{locator.Original}
			},
		},
		{
			name:    entity.TierLearned,
			timeout: r.config.AlternateTimeout,
			candidates: func(_ context.Context, _ ports.Page, locator entity.Locator) []string {
				return r.store.Strategies(locator.Description)
			},
		},
		{
			name:    entity.TierFallback,
			timeout: r.config.AlternateTimeout,
			learn:   true,
			candidates: func(_ context.Context, _ ports.Page, locator entity.Locator) []string {
				return locator.Fallbacks
			},
		},
		{
			name:       entity.TierSuggested,
			timeout:    r.config.AlternateTimeout,
			learn:      true,
			candidates: r.suggestedCandidates,
		},
	}

	return r
}

// Find resolves locator against page, trying the original, learned,
// fallback and model-suggested strategies in that order. A success outside
// the original tier is learned for the locator's description.
func (r *Resolver) Find(ctx context.Context, page ports.Page, locator entity.Locator) (resolution *ports.Resolution, err error) {
	const op = "Find"
	logger := r.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Description, locator.Description))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op,
		attribute.String("description", locator.Description),
		attribute.String("original", locator.Original))
	defer func() {
		step.End(err)
	}()

	if locator.Description == "" {
		return nil, apperr.InvalidReqError(op, "description", errInvalidLocator)
	}

	for _, t := range r.tiers {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaStage:       apperr.StageHealing,
				apperr.MetaDescription: locator.Description,
			})
		}

		for _, selector := range t.candidates(ctx, page, locator) {
			if selector == "" {
				continue
			}

			element := page.Locate(selector).First()
			if waitErr := element.WaitFor(ctx, t.timeout); waitErr != nil {
				logger.Debug("Strategy failed",
					zap.String(logg.Tier, string(t.name)),
					zap.String(logg.Selector, selector),
					zap.Error(waitErr))

				continue
			}

			step.AddEvent("resolved",
				attribute.String("tier", string(t.name)),
				attribute.String("selector", selector))

			if t.name != entity.TierOriginal {
				logger.Info("Element healed",
					zap.String(logg.Tier, string(t.name)),
					zap.String(logg.Selector, selector))
			}

			if t.learn {
				r.store.Learn(locator.Description, selector)
			}

			return &ports.Resolution{
				Element:  element,
				Strategy: selector,
				Tier:     t.name,
			}, nil
		}

		step.AddEvent("tier exhausted", attribute.String("tier", string(t.name)))
	}

	logger.Error("All strategies failed")

	return nil, apperr.ElementNotFoundError(op, locator.Description)
}

func (r *Resolver) suggestedCandidates(ctx context.Context, page ports.Page, locator entity.Locator) []string {
	const op = "suggest"
	logger := r.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Description, locator.Description))

	if !r.config.Enabled || r.gateway == nil || !r.gateway.IsAvailable() {
		logger.Debug("Model suggestion skipped")

		return nil
	}

	markup, err := page.Content(ctx)
	if err != nil {
		logger.Warn("Failed to read page content", zap.Error(err))

		return nil
	}

	prompt := prompts.SelectorSuggestion(locator.Original, locator.Description, CondenseMarkup(markup, r.config.MarkupLimit))

	answer, err := r.gateway.GenerateText(ctx, prompt, true)
	if err != nil {
		logger.Warn("Selector suggestion failed", zap.Error(err))

		return nil
	}

	selector := NormalizeSuggestion(answer)
	if selector == "" {
		logger.Warn("Empty selector suggestion")

		return nil
	}

	logger.Info("Model suggested selector", zap.String(logg.Selector, selector))

	return []string{selector}
}

// NormalizeSuggestion reduces a model answer to a single selector: code
// fences dropped, first non-empty line, surrounding quotes and backticks
// trimmed.
func NormalizeSuggestion(answer string) string {
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		return strings.TrimSpace(strings.Trim(line, "\"'`"))
	}

	return ""
}
