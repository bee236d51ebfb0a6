package pages

import (
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	detailPanelSelector     = `[class*="detailPanel"]`
	executionPanelSelector  = `[class*="executionPanel"]`
	executionStatusSelector = executionPanelSelector + ` [data-testid="execution-status"]`
	executionStatusAttr     = "data-status"

	saveAndRunButtonSelector = `button:has-text("Save & Run")`
	saveButtonSelector       = `button:has-text("Save")`
	runButtonSelector        = `button:has-text("Run")`
	saveConfirmSelector      = `[role="dialog"] button:has-text("Save"), button:has-text("Confirm")`

	executionPanelTimeout = 5 * time.Second
	detailPanelTimeout    = 3 * time.Second
	saveSettle            = time.Second
	statusPollInterval    = 500 * time.Millisecond

	// DefaultExecutionTimeout bounds WaitForExecutionComplete when no
	// timeout is given.
	DefaultExecutionTimeout = 30 * time.Second
)

var workflowNameInputs = []string{
	`input[placeholder*="workflow"]`,
	`input[placeholder*="Workflow"]`,
	`input[placeholder*="name"]`,
	`input[type="text"]`,
}

type ExecutionStatus string

const (
	ExecutionIdle      ExecutionStatus = "idle"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Finished reports whether the run reached a terminal status.
func (s ExecutionStatus) Finished() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

type ZoomDirection string

const (
	ZoomIn  ZoomDirection = "in"
	ZoomOut ZoomDirection = "out"
)

var errUnknownZoom = errors.New(`zoom direction must be "in" or "out"`)

// clickFirstPresent clicks the first selector that matches and reports
// whether any did.
func (c *CanvasPage) clickFirstPresent(ctx context.Context, selectors ...string) (bool, error) {
	for _, selector := range selectors {
		ok, err := c.clickIfPresent(ctx, selector)
		if err != nil || ok {
			return ok, err
		}
	}

	return false, nil
}

// SaveWorkflow saves the current workflow under name. Missing dialog
// controls are logged and skipped.
func (c *CanvasPage) SaveWorkflow(ctx context.Context, name string) (err error) {
	const op = "SaveWorkflow"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String("workflow", name))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("workflow", name))
	defer func() {
		step.End(err)
	}()

	if ok, err := c.clickFirstPresent(ctx, saveAndRunButtonSelector, saveButtonSelector); err != nil {
		return err
	} else if !ok {
		logger.Warn("Save button not found")
	}

	filled := false

	for _, selector := range workflowNameInputs {
		input := c.page.Locate(selector).First()

		count, err := input.Count(ctx)
		if err != nil {
			return err
		}

		if count == 0 {
			continue
		}

		if err := input.Fill(ctx, name); err != nil {
			return err
		}

		filled = true

		break
	}

	if !filled {
		logger.Warn("Workflow name input not found")
	}

	if ok, err := c.clickIfPresent(ctx, saveConfirmSelector); err != nil {
		return err
	} else if !ok {
		logger.Warn("Save confirmation button not found")
	}

	return c.sleep(ctx, saveSettle)
}

// ExecuteWorkflow starts a run and waits for the execution panel. It is a
// no-op with a warning when no run button exists.
func (c *CanvasPage) ExecuteWorkflow(ctx context.Context) (err error) {
	const op = "ExecuteWorkflow"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	ok, err := c.clickFirstPresent(ctx, saveAndRunButtonSelector, runButtonSelector)
	if err != nil {
		return err
	}

	if !ok {
		logger.Warn("Run button not found")

		return nil
	}

	if err := c.page.Locate(executionPanelSelector).First().WaitFor(ctx, executionPanelTimeout); err != nil {
		logger.Warn("Execution panel not found", zap.Error(err))
	}

	return nil
}

// ExecutionStatus reads the status badge of the execution panel. A missing
// badge reads as idle.
func (c *CanvasPage) ExecutionStatus(ctx context.Context) (ExecutionStatus, error) {
	value, err := c.page.Locate(executionStatusSelector).First().Attribute(ctx, executionStatusAttr)
	if err != nil {
		return "", err
	}

	if value == "" {
		return ExecutionIdle, nil
	}

	return ExecutionStatus(value), nil
}

// WaitForExecutionComplete polls the status badge every 500ms until the run
// completes or fails. Read errors count as not finished. A non-positive
// timeout uses DefaultExecutionTimeout.
func (c *CanvasPage) WaitForExecutionComplete(ctx context.Context, timeout time.Duration) (status ExecutionStatus, err error) {
	const op = "WaitForExecutionComplete"
	logger := c.logger.With(zap.String(logg.Operation, op))

	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("timeout", timeout.String()))
	defer func() {
		step.End(err)
	}()

	polls := int((timeout + statusPollInterval - 1) / statusPollInterval)

	for range polls {
		status, err := c.ExecutionStatus(ctx)
		if err == nil && status.Finished() {
			logger.Info("Execution finished", zap.String("status", string(status)))

			return status, nil
		}

		if err := c.sleep(ctx, statusPollInterval); err != nil {
			return "", err
		}
	}

	return "", apperr.Wrap(op, apperr.CodeTimeout, fmt.Errorf("execution did not complete within %s", timeout), map[string]any{
		apperr.MetaReason:   "execution_timeout",
		apperr.MetaStage:    apperr.StageCanvas,
		apperr.MetaSelector: executionStatusSelector,
	})
}

// SelectNode clicks a node and waits for its detail panel.
func (c *CanvasPage) SelectNode(ctx context.Context, nodeID string) error {
	if err := c.page.Locate(fmt.Sprintf(`[data-nodeid="%s"]`, nodeID)).First().Click(ctx); err != nil {
		return err
	}

	if err := c.page.Locate(detailPanelSelector).First().WaitFor(ctx, detailPanelTimeout); err != nil {
		c.logger.Warn("Detail panel not found", zap.String("node_id", nodeID), zap.Error(err))
	}

	return nil
}

// SetNodeParameter fills a named input of the selected node's detail panel.
func (c *CanvasPage) SetNodeParameter(ctx context.Context, name, value string) error {
	return c.page.Locate(fmt.Sprintf(`%s [name="%s"]`, detailPanelSelector, name)).First().Fill(ctx, value)
}

// Zoom clicks the zoom-in or zoom-out control.
func (c *CanvasPage) Zoom(ctx context.Context, direction ZoomDirection) error {
	if direction != ZoomIn && direction != ZoomOut {
		return apperr.InvalidReqError("Zoom", "direction", errUnknownZoom)
	}

	return c.page.Locate(fmt.Sprintf(`[data-testid="zoom-%s"]`, direction)).Click(ctx)
}
