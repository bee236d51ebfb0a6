package ai

import (
	"bytes"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	anthropicProviderName = "AnthropicProvider"
	anthropicTracer       = "ai.anthropic"
	anthropicVersion      = "2023-06-01"
)

type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
}

func NewAnthropicProvider(aiConfig *config.AIConfig, logger *zap.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:     aiConfig.AnthropicAPIKey,
		baseURL:    strings.TrimRight(aiConfig.AnthropicBaseURL, "/"),
		logger:     logger.With(zap.String(logg.Layer, anthropicProviderName)),
		tracer:     otel.Tracer(anthropicTracer),
		httpClient: &http.Client{Timeout: aiConfig.RequestTimeout},
	}
}

func (p *AnthropicProvider) Name() string {
	return config.ProviderAnthropic
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *claudeImage `json:"source,omitempty"`
}

type claudeImage struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	return p.send(ctx, "Complete", req, []claudeBlock{{Type: "text", Text: req.Prompt}})
}

func (p *AnthropicProvider) CompleteWithImage(ctx context.Context, req entity.CompletionRequest, imageBase64 string) (string, error) {
	blocks := []claudeBlock{
		{
			Type: "image",
			Source: &claudeImage{
				Type:      "base64",
				MediaType: "image/png",
				Data:      imageBase64,
			},
		},
		{Type: "text", Text: req.Prompt},
	}

	return p.send(ctx, "CompleteWithImage", req, blocks)
}

func (p *AnthropicProvider) send(ctx context.Context, op string, req entity.CompletionRequest, blocks []claudeBlock) (text string, err error) {
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op,
		attribute.String("model", req.Model),
		attribute.Int("max_tokens", req.MaxTokens))
	defer func() {
		step.End(err)
	}()

	reqBody := claudeRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []claudeMessage{
			{Role: "user", Content: blocks},
		},
	}

	step.AddEvent("marshaling request")

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	step.AddEvent("sending HTTP request")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason:   "http_request_failed",
			apperr.MetaStage:    apperr.StageAI,
			apperr.MetaProvider: p.Name(),
		})
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", apperr.Wrap(op, apperr.CodeAIError, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body)), map[string]any{
			apperr.MetaReason:   "api_error",
			apperr.MetaStage:    apperr.StageAI,
			apperr.MetaProvider: p.Name(),
			"status_code":       httpResp.StatusCode,
		})
	}

	var claudeResp claudeResponse

	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	for _, content := range claudeResp.Content {
		if content.Type == "text" {
			logger.Debug("Completion received", zap.String("stop_reason", claudeResp.StopReason))

			return content.Text, nil
		}
	}

	return "", apperr.WrapErrorWithReason(op, apperr.CodeAIError, "no_text_content")
}
