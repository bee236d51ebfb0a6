package vision

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/pkg/logg"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	dragPause     = 100 * time.Millisecond
	dragSteps     = 20
	waitPause     = time.Second
	zoomModifier  = "Control"
	zoomInDelta   = -120
	zoomOutDelta  = 120
	defaultScroll = 100

	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

var errNotExecutable = errors.New("action lacks the fields it needs")

// executeAction performs one non-terminal action and applies the step delay
// on success. It reports whether the action was executed.
func (x *Executor) executeAction(ctx context.Context, logger *zap.Logger, action entity.Action) bool {
	var err error

	switch action.Type {
	case entity.ActionTypeClick:
		err = x.click(ctx, action)
	case entity.ActionTypeDoubleClick:
		err = x.pointAction(action, func(px, py float64) error {
			return x.page.MouseDoubleClick(ctx, px, py)
		})
	case entity.ActionTypeHover:
		err = x.pointAction(action, func(px, py float64) error {
			return x.page.MouseMove(ctx, px, py, 1)
		})
	case entity.ActionTypeType:
		if action.Value == "" {
			err = errNotExecutable
		} else {
			err = x.page.TypeText(ctx, action.Value)
		}
	case entity.ActionTypeDrag:
		err = x.drag(ctx, logger, action)
	case entity.ActionTypeZoom:
		err = x.zoom(ctx, logger, action)
	case entity.ActionTypeScroll:
		err = x.page.Wheel(ctx, 0, scrollAmount(action))
	case entity.ActionTypeWait:
		err = x.sleep(ctx, waitPause)
	default:
		err = fmt.Errorf("unknown action type %q", action.Type)
	}

	if err != nil {
		logger.Warn("Action execution failed",
			zap.String(logg.Action, string(action.Type)),
			zap.Error(err))

		return false
	}

	if x.options.StepDelay > 0 {
		if err := x.sleep(ctx, x.options.StepDelay); err != nil {
			logger.Debug("Step delay interrupted", zap.Error(err))
		}
	}

	return true
}

// click prefers coordinates and falls back to the first element whose text
// matches the target.
func (x *Executor) click(ctx context.Context, action entity.Action) error {
	if action.HasPoint() {
		return x.page.MouseClick(ctx, *action.X, *action.Y)
	}

	if action.Target == "" {
		return errNotExecutable
	}

	element := x.page.Locate("text=" + action.Target).First()

	count, err := element.Count(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		return fmt.Errorf("no element with text %q", action.Target)
	}

	return element.Click(ctx)
}

func (x *Executor) pointAction(action entity.Action, fn func(px, py float64) error) error {
	if !action.HasPoint() {
		return errNotExecutable
	}

	return fn(*action.X, *action.Y)
}

// drag performs move, press, stepped move, release with short pauses so the
// canvas registers intermediate states.
func (x *Executor) drag(ctx context.Context, logger *zap.Logger, action entity.Action) error {
	if !action.HasDragPoints() {
		return errNotExecutable
	}

	fromX, fromY, toX, toY := *action.X, *action.Y, *action.ToX, *action.ToY

	steps := []func() error{
		func() error { return x.page.MouseMove(ctx, fromX, fromY, 1) },
		func() error { return x.sleep(ctx, dragPause) },
		func() error { return x.page.MouseDown(ctx) },
		func() error { return x.sleep(ctx, dragPause) },
		func() error { return x.page.MouseMove(ctx, toX, toY, dragSteps) },
		func() error { return x.sleep(ctx, dragPause) },
		func() error { return x.page.MouseUp(ctx) },
	}

	for _, s := range steps {
		if err := s(); err != nil {
			return err
		}
	}

	logger.Info("Dragged",
		zap.Float64("from_x", fromX), zap.Float64("from_y", fromY),
		zap.Float64("to_x", toX), zap.Float64("to_y", toY))

	return nil
}

// zoom scrolls the wheel with the modifier held at the given point, or at
// the viewport center.
func (x *Executor) zoom(ctx context.Context, logger *zap.Logger, action entity.Action) (err error) {
	width, height := float64(defaultViewportWidth), float64(defaultViewportHeight)
	if vp := x.page.ViewportSize(); vp != nil {
		width, height = float64(vp.Width), float64(vp.Height)
	}

	centerX, centerY := width/2, height/2
	if action.X != nil {
		centerX = *action.X
	}

	if action.Y != nil {
		centerY = *action.Y
	}

	delta := float64(zoomOutDelta)
	if action.Value == "in" {
		delta = zoomInDelta
	}

	if action.Delta != nil {
		delta = *action.Delta
	}

	if err := x.page.MouseMove(ctx, centerX, centerY, 1); err != nil {
		return err
	}

	if err := x.page.KeyDown(ctx, zoomModifier); err != nil {
		return err
	}

	defer func() {
		if upErr := x.page.KeyUp(ctx, zoomModifier); upErr != nil && err == nil {
			err = upErr
		}
	}()

	if err := x.page.Wheel(ctx, 0, delta); err != nil {
		return err
	}

	logger.Info("Zoomed",
		zap.Float64("delta", delta),
		zap.Float64("x", centerX),
		zap.Float64("y", centerY))

	return nil
}

func scrollAmount(action entity.Action) float64 {
	switch {
	case action.Delta != nil && *action.Delta != 0:
		return *action.Delta
	case action.Y != nil && *action.Y != 0:
		return *action.Y
	default:
		return defaultScroll
	}
}
