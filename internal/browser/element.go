package browser

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/apperr"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var errForeignElement = errors.New("drag target does not belong to this browser")

// element resolves its playwright locator lazily against the active page so
// that a reconnected page is picked up.
type element struct {
	manager  *Manager
	selector string
	first    bool
}

var _ ports.Element = (*element)(nil)

func (e *element) Selector() string {
	return e.selector
}

func (e *element) First() ports.Element {
	return &element{manager: e.manager, selector: e.selector, first: true}
}

func (e *element) locator(op string) (playwright.Locator, error) {
	page, err := e.manager.activePage(op)
	if err != nil {
		return nil, err
	}

	loc := page.Locator(e.selector)
	if e.first {
		loc = loc.First()
	}

	return loc, nil
}

// with runs fn on the resolved locator and wraps its failure with code.
func (e *element) with(ctx context.Context, op, code string, fn func(loc playwright.Locator) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	loc, err := e.locator(op)
	if err != nil {
		return err
	}

	if err := fn(loc); err != nil {
		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: e.selector,
		})
	}

	return nil
}

func (e *element) WaitFor(ctx context.Context, timeout time.Duration) error {
	return e.with(ctx, "WaitFor", apperr.CodeTimeout, func(loc playwright.Locator) error {
		return loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
	})
}

func (e *element) Count(ctx context.Context) (count int, err error) {
	err = e.with(ctx, "Count", apperr.CodeActionFailed, func(loc playwright.Locator) (err error) {
		count, err = loc.Count()

		return err
	})

	return count, err
}

func (e *element) Click(ctx context.Context) error {
	return e.with(ctx, "Click", apperr.CodeActionFailed, func(loc playwright.Locator) error {
		return loc.Click()
	})
}

func (e *element) Fill(ctx context.Context, value string) error {
	return e.with(ctx, "Fill", apperr.CodeActionFailed, func(loc playwright.Locator) error {
		return loc.Fill(value)
	})
}

func (e *element) Text(ctx context.Context) (text string, err error) {
	err = e.with(ctx, "Text", apperr.CodeActionFailed, func(loc playwright.Locator) (err error) {
		text, err = loc.TextContent()

		return err
	})

	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (value string, err error) {
	err = e.with(ctx, "Attribute", apperr.CodeActionFailed, func(loc playwright.Locator) (err error) {
		value, err = loc.GetAttribute(name)

		return err
	})

	return value, err
}

func (e *element) IsVisible(ctx context.Context) (visible bool, err error) {
	err = e.with(ctx, "IsVisible", apperr.CodeActionFailed, func(loc playwright.Locator) (err error) {
		visible, err = loc.IsVisible()

		return err
	})

	return visible, err
}

func (e *element) BoundingBox(ctx context.Context) (box *entity.BoundingBox, err error) {
	err = e.with(ctx, "BoundingBox", apperr.CodeActionFailed, func(loc playwright.Locator) error {
		rect, err := loc.BoundingBox()
		if err != nil {
			return err
		}

		if rect == nil {
			return fmt.Errorf("element %q is not rendered", e.selector)
		}

		box = &entity.BoundingBox{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}

		return nil
	})

	return box, err
}

func (e *element) DragTo(ctx context.Context, target ports.Element) error {
	other, ok := target.(*element)
	if !ok || other.manager != e.manager {
		return apperr.InvalidReqError("DragTo", "target", errForeignElement)
	}

	return e.with(ctx, "DragTo", apperr.CodeActionFailed, func(loc playwright.Locator) error {
		targetLoc, err := other.locator("DragTo")
		if err != nil {
			return err
		}

		return loc.DragTo(targetLoc)
	})
}
