package ai

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	openAIProviderName = "OpenAIProvider"
	openAITracer       = "ai.openai"
)

type OpenAIProvider struct {
	client *openai.Client
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOpenAIProvider(aiConfig *config.AIConfig, logger *zap.Logger) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(aiConfig.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}

	if aiConfig.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(aiConfig.OpenAIBaseURL))
	}

	if aiConfig.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(aiConfig.RequestTimeout))
	}

	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		logger: logger.With(zap.String(logg.Layer, openAIProviderName)),
		tracer: otel.Tracer(openAITracer),
	}
}

func (p *OpenAIProvider) Name() string {
	return config.ProviderOpenAI
}

func (p *OpenAIProvider) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	return p.send(ctx, "Complete", req, openai.UserMessage(req.Prompt))
}

func (p *OpenAIProvider) CompleteWithImage(ctx context.Context, req entity.CompletionRequest, imageBase64 string) (string, error) {
	message := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + imageBase64,
		}),
	})

	return p.send(ctx, "CompleteWithImage", req, message)
}

func (p *OpenAIProvider) send(ctx context.Context, op string, req entity.CompletionRequest, message openai.ChatCompletionMessageParamUnion) (text string, err error) {
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op,
		attribute.String("model", req.Model),
		attribute.Int("max_tokens", req.MaxTokens))
	defer func() {
		step.End(err)
	}()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               req.Model,
		Messages:            []openai.ChatCompletionMessageParamUnion{message},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		Temperature:         openai.Opt[float64](req.Temperature),
	})
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason:   "chat_completion_failed",
			apperr.MetaStage:    apperr.StageAI,
			apperr.MetaProvider: p.Name(),
		})
	}

	if len(resp.Choices) == 0 {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeAIError, "no_choices")
	}

	logger.Debug("Completion received", zap.String("finish_reason", resp.Choices[0].FinishReason))

	return resp.Choices[0].Message.Content, nil
}
