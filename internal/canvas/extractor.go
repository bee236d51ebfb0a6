package canvas

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	extractorName   = "CanvasStateExtractor"
	extractorTracer = "canvas.extractor"
)

// Strategy counts one kind of canvas element under a single markup
// convention.
type Strategy struct {
	Name  string
	Count func(doc *goquery.Document) int
}

func selectorCount(selector string) func(doc *goquery.Document) int {
	return func(doc *goquery.Document) int {
		return doc.Find(selector).Length()
	}
}

// NodeStrategies are tried in order; the first non-zero count wins.
var NodeStrategies = []Strategy{
	{Name: "react-flow-node", Count: selectorCount(".react-flow__node")},
	{Name: "app-node-class", Count: countAppNodes},
	{Name: "node-title", Count: selectorCount(`[class*="nodeTitle"], [class*="node-title"]`)},
	{Name: "node-id-attribute", Count: selectorCount("[data-node-id], [data-nodeid]")},
}

var EdgeStrategies = []Strategy{
	{Name: "react-flow-edge", Count: selectorCount(".react-flow__edge")},
	{Name: "svg-connection-path", Count: selectorCount(`svg path[class*="edge"], svg path[class*="connection"]`)},
}

// countAppNodes matches the hashed CSS-module classes of the canvas app:
// an element whose class contains "node" but is not a port, handle or title.
func countAppNodes(doc *goquery.Document) int {
	count := 0

	doc.Find(`[class*="canvasGrid"] [class*="node"], [class*="canvasContainer"] [class*="node"]`).Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		for _, token := range strings.Fields(class) {
			lower := strings.ToLower(token)
			if !strings.HasPrefix(lower, "node") && !strings.Contains(lower, "_node") && !strings.Contains(lower, "-node") {
				continue
			}

			if strings.Contains(lower, "port") || strings.Contains(lower, "handle") || strings.Contains(lower, "title") {
				continue
			}

			count++

			return
		}
	})

	return count
}

type Extractor struct {
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Logger *zap.Logger
}

func NewExtractor(params Params) *Extractor {
	return &Extractor{
		logger: params.Logger.With(zap.String(logg.Layer, extractorName)),
		tracer: otel.Tracer(extractorTracer),
	}
}

// Extract counts nodes and edges in the current view. It returns nil when
// the view cannot be read or parsed.
func (e *Extractor) Extract(ctx context.Context, source ports.ContentSource) (state *entity.CanvasState) {
	const op = "Extract"
	logger := e.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op)

	var err error
	defer func() {
		step.End(err)
	}()

	markup, err := source.Content(ctx)
	if err != nil {
		logger.Warn("Canvas state unavailable", zap.Error(err))

		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		logger.Warn("Canvas markup unparseable", zap.Error(err))

		return nil
	}

	nodes, nodeStrategy := firstNonZero(doc, NodeStrategies)
	edges, edgeStrategy := firstNonZero(doc, EdgeStrategies)

	step.SetAttributes(
		attribute.Int("nodes", nodes),
		attribute.Int("edges", edges),
		attribute.String("node_strategy", nodeStrategy),
		attribute.String("edge_strategy", edgeStrategy))

	logger.Debug("Canvas state extracted",
		zap.Int("nodes", nodes),
		zap.Int("edges", edges),
		zap.String(logg.Strategy, nodeStrategy))

	return entity.NewCanvasState(nodes, edges)
}

func firstNonZero(doc *goquery.Document, strategies []Strategy) (int, string) {
	for _, s := range strategies {
		if n := s.Count(doc); n > 0 {
			return n, s.Name
		}
	}

	return 0, ""
}
