// Package generator turns natural-language requirements and bug reports into
// Go end-to-end test source through the reasoning gateway.
package generator

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/ports"
	"canvas-e2e/internal/prompts"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	generatorName   = "TestGenerator"
	generatorTracer = "generator"
)

var (
	fenceLine       = regexp.MustCompile("(?m)^```[a-zA-Z]*[ \t]*\n?")
	generatedBanner = regexp.MustCompile(`(?m)^//\s*AI generated.*\n`)

	errGatewayUnavailable = errors.New("no reasoning provider is configured, set ANTHROPIC_API_KEY or OPENAI_API_KEY")
)

type GenerateOptions struct {
	PageURL       string
	PageMarkup    string
	ExistingTests []string
}

type Generator struct {
	config  *config.TestConfig
	gateway ports.Gateway
	logger  *zap.Logger
	tracer  trace.Tracer
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Gateway ports.Gateway
}

func New(params Params) *Generator {
	return &Generator{
		config:  params.Config.TestConfig,
		gateway: params.Gateway,
		logger:  params.Logger.With(zap.String(logg.Layer, generatorName)),
		tracer:  otel.Tracer(generatorTracer),
	}
}

// GenerateTest writes a test for description, optionally grounded in the
// current page.
func (g *Generator) GenerateTest(ctx context.Context, description string, options GenerateOptions) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", apperr.InvalidReqError("GenerateTest", "description", errors.New("description cannot be empty"))
	}

	return g.generate(ctx, "GenerateTest", prompts.TestGeneration(prompts.TestContext{
		Description:   description,
		PageURL:       options.PageURL,
		PageMarkup:    options.PageMarkup,
		ExistingTests: options.ExistingTests,
	}))
}

// GenerateFromBugReport writes a test reproducing issue.
func (g *Generator) GenerateFromBugReport(ctx context.Context, issue, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", apperr.InvalidReqError("GenerateFromBugReport", "description", errors.New("description cannot be empty"))
	}

	return g.generate(ctx, "GenerateFromBugReport", prompts.BugReport(issue, description))
}

func (g *Generator) generate(ctx context.Context, op, prompt string) (code string, err error) {
	logger := g.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, g.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !g.gateway.IsAvailable() {
		return "", apperr.Wrap(op, apperr.CodeProviderUnavailable, errGatewayUnavailable, map[string]any{
			apperr.MetaReason: "provider_unavailable",
			apperr.MetaStage:  apperr.StageGenerator,
		})
	}

	raw, err := g.gateway.GenerateText(ctx, prompt, true)
	if err != nil {
		return "", err
	}

	code = Cleanup(raw)
	step.SetAttributes(attribute.Int("bytes", len(code)))
	logger.Info("Test generated", zap.Int("bytes", len(code)))

	return code, nil
}

// Cleanup strips markdown fences and generator banners from model output.
func Cleanup(code string) string {
	cleaned := fenceLine.ReplaceAllString(code, "")
	cleaned = generatedBanner.ReplaceAllString(cleaned, "")

	return strings.TrimSpace(cleaned)
}

// Save writes code to dir/fileName and returns the path. An empty dir uses
// the configured output directory, an empty fileName gets a unique name.
func (g *Generator) Save(code, fileName, dir string) (string, error) {
	const op = "Save"
	logger := g.logger.With(zap.String(logg.Operation, op))

	if dir == "" {
		dir = g.config.GeneratedTestsDir
	}

	if fileName == "" {
		fileName = "generated_" + uuid.NewString()[:8] + "_e2e_test.go"
	}

	path := filepath.Join(dir, fileName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaStage: apperr.StageGenerator,
			apperr.MetaPath:  dir,
		})
	}

	if err := os.WriteFile(path, []byte(code+"\n"), 0o644); err != nil {
		return "", apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaStage: apperr.StageGenerator,
			apperr.MetaPath:  path,
		})
	}

	logger.Info("Test saved", zap.String(logg.Path, path))

	return path, nil
}
