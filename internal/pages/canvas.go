package pages

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	canvasPageName   = "CanvasPage"
	canvasPageTracer = "pages.canvas"

	canvasPath = "/canvas"

	canvasSelector = `[class*="canvasContainer"]`
	// The node menu lives behind the sixth toolbar button.
	nodeMenuButtonSelector = `[class*="menu"] button, [class*="toolbar"] button >> nth=5`
	addNodeButtonSelector  = `[class*="sideMenu"] button, [class*="sidebar"] button`

	canvasLoadTimeout = 10 * time.Second
	menuSettle        = 300 * time.Millisecond
	nodeSettle        = 500 * time.Millisecond
)

// NodeLocator describes a node entry in the node menu by its type.
func NodeLocator(nodeType string) entity.Locator {
	return entity.Locator{
		Original:    fmt.Sprintf(`[data-testid="node-%s"]`, nodeType),
		Description: nodeType + " node",
		Fallbacks: []string{
			fmt.Sprintf(`[data-node-type="%s"]`, nodeType),
			fmt.Sprintf(`.node-%s`, nodeType),
			fmt.Sprintf(`[aria-label="%s node"]`, nodeType),
			fmt.Sprintf(`button:has-text("%s")`, nodeType),
			fmt.Sprintf(`[class*="node"]:has-text("%s")`, nodeType),
		},
	}
}

func categorySelectors(category string) []string {
	return []string{
		fmt.Sprintf(`button:has-text("%s")`, category),
		fmt.Sprintf(`[class*="category"]:has-text("%s")`, category),
		fmt.Sprintf(`[data-category="%s"]`, category),
	}
}

type AddNodeOptions struct {
	// UseDoubleClick opens the node popup by double clicking the canvas
	// instead of going through the side menu.
	UseDoubleClick bool
	Category       string
}

type CanvasPage struct {
	page      ports.Page
	resolver  ports.LocatorResolver
	extractor ports.StateExtractor
	logger    *zap.Logger
	tracer    trace.Tracer
	sleep     func(ctx context.Context, d time.Duration) error
}

type CanvasParams struct {
	fx.In

	Logger    *zap.Logger
	Page      ports.Page
	Resolver  ports.LocatorResolver
	Extractor ports.StateExtractor
}

func NewCanvasPage(params CanvasParams) *CanvasPage {
	return &CanvasPage{
		page:      params.Page,
		resolver:  params.Resolver,
		extractor: params.Extractor,
		logger:    params.Logger.With(zap.String(logg.Layer, canvasPageName)),
		tracer:    otel.Tracer(canvasPageTracer),
		sleep:     sleepContext,
	}
}

func (c *CanvasPage) canvas() ports.Element {
	return c.page.Locate(canvasSelector).First()
}

// Goto opens the editor and waits for the canvas container. A container that
// never shows up is logged, not returned.
func (c *CanvasPage) Goto(ctx context.Context) error {
	if err := c.page.Navigate(ctx, canvasPath); err != nil {
		return err
	}

	if err := c.canvas().WaitFor(ctx, canvasLoadTimeout); err != nil {
		c.logger.Warn("Canvas container not found", zap.Error(err))
	}

	return nil
}

func (c *CanvasPage) FindNodeByType(ctx context.Context, nodeType string) (*ports.Resolution, error) {
	return c.resolver.Find(ctx, c.page, NodeLocator(nodeType))
}

// DoubleClickCanvas double clicks the center of the canvas, which opens the
// node creation popup.
func (c *CanvasPage) DoubleClickCanvas(ctx context.Context) error {
	const op = "DoubleClickCanvas"

	box, err := c.canvas().BoundingBox(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "canvas_not_found",
			apperr.MetaStage:    apperr.StageCanvas,
			apperr.MetaSelector: canvasSelector,
		})
	}

	x, y := box.Center()
	if err := c.page.MouseDoubleClick(ctx, x, y); err != nil {
		return err
	}

	return c.sleep(ctx, menuSettle)
}

// clickIfPresent clicks the first match of selector and reports whether
// there was one.
func (c *CanvasPage) clickIfPresent(ctx context.Context, selector string) (bool, error) {
	el := c.page.Locate(selector).First()

	count, err := el.Count(ctx)
	if err != nil || count == 0 {
		return false, err
	}

	if err := el.Click(ctx); err != nil {
		return false, err
	}

	return true, c.sleep(ctx, menuSettle)
}

func (c *CanvasPage) openNodeMenu(ctx context.Context, logger *zap.Logger) error {
	if ok, err := c.clickIfPresent(ctx, nodeMenuButtonSelector); err != nil {
		return err
	} else if !ok {
		logger.Warn("Node menu button not found")
	}

	if ok, err := c.clickIfPresent(ctx, addNodeButtonSelector); err != nil {
		return err
	} else if !ok {
		logger.Warn("Add node button not found")
	}

	return nil
}

func (c *CanvasPage) selectCategory(ctx context.Context, logger *zap.Logger, category string) error {
	for _, selector := range categorySelectors(category) {
		ok, err := c.clickIfPresent(ctx, selector)
		if err != nil {
			return err
		}

		if ok {
			return nil
		}
	}

	logger.Warn("Node category not found", zap.String("category", category))

	return nil
}

// AddNode opens the node menu, optionally picks a category, and clicks the
// node entry. When the click fails the entry is dragged onto the canvas.
func (c *CanvasPage) AddNode(ctx context.Context, nodeType string, options AddNodeOptions) (err error) {
	const op = "AddNode"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String("node_type", nodeType))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("node_type", nodeType),
		attribute.Bool("double_click", options.UseDoubleClick))
	defer func() {
		step.End(err)
	}()

	if options.UseDoubleClick {
		err = c.DoubleClickCanvas(ctx)
	} else {
		err = c.openNodeMenu(ctx, logger)
	}

	if err != nil {
		return err
	}

	if options.Category != "" {
		if err := c.selectCategory(ctx, logger, options.Category); err != nil {
			return err
		}
	}

	res, err := c.FindNodeByType(ctx, nodeType)
	if err != nil {
		return err
	}

	if clickErr := res.Element.Click(ctx); clickErr != nil {
		logger.Warn("Node click failed, dragging onto canvas", zap.Error(clickErr))

		if err := res.Element.DragTo(ctx, c.canvas()); err != nil {
			return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
				apperr.MetaReason:      "add_node_failed",
				apperr.MetaStage:       apperr.StageCanvas,
				apperr.MetaDescription: NodeLocator(nodeType).Description,
			})
		}
	}

	logger.Info("Node added", zap.String(logg.Tier, string(res.Tier)), zap.String(logg.Strategy, res.Strategy))

	return c.sleep(ctx, nodeSettle)
}

// AddNodeByDrag drags the node entry straight onto the canvas without
// clicking it first.
func (c *CanvasPage) AddNodeByDrag(ctx context.Context, nodeType string) (err error) {
	const op = "AddNodeByDrag"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String("node_type", nodeType))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("node_type", nodeType))
	defer func() {
		step.End(err)
	}()

	res, err := c.FindNodeByType(ctx, nodeType)
	if err != nil {
		return err
	}

	if _, err := c.canvas().BoundingBox(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "canvas_not_found",
			apperr.MetaStage:    apperr.StageCanvas,
			apperr.MetaSelector: canvasSelector,
		})
	}

	if err := res.Element.DragTo(ctx, c.canvas()); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:      "add_node_failed",
			apperr.MetaStage:       apperr.StageCanvas,
			apperr.MetaDescription: NodeLocator(nodeType).Description,
		})
	}

	logger.Info("Node dragged onto canvas", zap.String(logg.Tier, string(res.Tier)))

	return c.sleep(ctx, nodeSettle)
}

// ConnectNodes drags the right handle of source onto the left handle of
// target.
func (c *CanvasPage) ConnectNodes(ctx context.Context, sourceID, targetID string) error {
	source := c.page.Locate(fmt.Sprintf(`[data-nodeid="%s"] [data-handlepos="right"]`, sourceID))
	target := c.page.Locate(fmt.Sprintf(`[data-nodeid="%s"] [data-handlepos="left"]`, targetID))

	return source.DragTo(ctx, target)
}

// NodeCount reports the node count from the canvas extractor, 0 when the
// markup is unavailable.
func (c *CanvasPage) NodeCount(ctx context.Context) int {
	state := c.extractor.Extract(ctx, c.page)
	if state == nil {
		return 0
	}

	return state.NodesCount
}

func (c *CanvasPage) Undo(ctx context.Context) error {
	return c.page.Press(ctx, "Control+Z")
}

func (c *CanvasPage) Redo(ctx context.Context) error {
	return c.page.Press(ctx, "Control+Y")
}
