// Package portstest provides recording fakes of the browser and reasoning
// ports for unit tests.
package portstest

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotPresent = errors.New("element not present")

// Page records every primitive it receives as a short string in Calls.
// Elements exist when Present has a positive count for their selector.
type Page struct {
	mu sync.Mutex

	Present    map[string]int
	Texts      map[string]string
	// Attributes holds successive values per "selector@name". Each read
	// consumes one value until the last, which then repeats.
	Attributes map[string][]string
	Boxes      map[string]entity.BoundingBox
	Markup     string
	ContentErr error
	Shot       []byte
	ShotErr    error
	Viewport   *entity.Viewport
	CurrentURL string
	MouseErr   error

	Calls []string
}

var _ ports.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{
		Present:    make(map[string]int),
		Texts:      make(map[string]string),
		Attributes: make(map[string][]string),
		Boxes:      make(map[string]entity.BoundingBox),
		Shot:       []byte("png"),
	}
}

func (p *Page) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

// Recorded returns a copy of Calls.
func (p *Page) Recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.Calls))
	copy(out, p.Calls)

	return out
}

func (p *Page) present(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Present[selector]
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.record("navigate %s", url)
	p.mu.Lock()
	p.CurrentURL = url
	p.mu.Unlock()

	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.CurrentURL
}

func (p *Page) Locate(selector string) ports.Element {
	return &Element{page: p, selector: selector}
}

func (p *Page) MouseClick(_ context.Context, x, y float64) error {
	p.record("click %g,%g", x, y)

	return p.MouseErr
}

func (p *Page) MouseDoubleClick(_ context.Context, x, y float64) error {
	p.record("dblclick %g,%g", x, y)

	return p.MouseErr
}

func (p *Page) MouseMove(_ context.Context, x, y float64, steps int) error {
	p.record("move %g,%g steps=%d", x, y, steps)

	return p.MouseErr
}

func (p *Page) MouseDown(context.Context) error {
	p.record("down")

	return p.MouseErr
}

func (p *Page) MouseUp(context.Context) error {
	p.record("up")

	return p.MouseErr
}

func (p *Page) Wheel(_ context.Context, deltaX, deltaY float64) error {
	p.record("wheel %g,%g", deltaX, deltaY)

	return p.MouseErr
}

func (p *Page) KeyDown(_ context.Context, key string) error {
	p.record("keydown %s", key)

	return nil
}

func (p *Page) KeyUp(_ context.Context, key string) error {
	p.record("keyup %s", key)

	return nil
}

func (p *Page) TypeText(_ context.Context, text string) error {
	p.record("type %s", text)

	return nil
}

func (p *Page) Press(_ context.Context, key string) error {
	p.record("press %s", key)

	return nil
}

func (p *Page) Screenshot(context.Context) ([]byte, error) {
	p.record("screenshot")

	return p.Shot, p.ShotErr
}

func (p *Page) Content(context.Context) (string, error) {
	p.record("content")

	return p.Markup, p.ContentErr
}

func (p *Page) ViewportSize() *entity.Viewport {
	return p.Viewport
}

type Element struct {
	page     *Page
	selector string
}

var _ ports.Element = (*Element)(nil)

func (e *Element) Selector() string {
	return e.selector
}

func (e *Element) First() ports.Element {
	return e
}

func (e *Element) WaitFor(_ context.Context, timeout time.Duration) error {
	e.page.record("waitFor %s %s", e.selector, timeout)

	if e.page.present(e.selector) == 0 {
		return fmt.Errorf("waiting for %q: %w", e.selector, ErrNotPresent)
	}

	return nil
}

func (e *Element) Count(context.Context) (int, error) {
	return e.page.present(e.selector), nil
}

func (e *Element) Click(context.Context) error {
	e.page.record("clickElement %s", e.selector)

	if e.page.present(e.selector) == 0 {
		return ErrNotPresent
	}

	return nil
}

func (e *Element) Fill(_ context.Context, value string) error {
	e.page.record("fill %s=%s", e.selector, value)

	if e.page.present(e.selector) == 0 {
		return ErrNotPresent
	}

	return nil
}

func (e *Element) Text(context.Context) (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	return e.page.Texts[e.selector], nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, error) {
	e.page.record("attr %s %s", e.selector, name)

	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	key := e.selector + "@" + name

	values := e.page.Attributes[key]
	if len(values) == 0 {
		return "", nil
	}

	if len(values) > 1 {
		e.page.Attributes[key] = values[1:]
	}

	return values[0], nil
}

func (e *Element) IsVisible(context.Context) (bool, error) {
	return e.page.present(e.selector) > 0, nil
}

func (e *Element) BoundingBox(context.Context) (*entity.BoundingBox, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	box, ok := e.page.Boxes[e.selector]
	if !ok {
		return nil, ErrNotPresent
	}

	return &box, nil
}

func (e *Element) DragTo(_ context.Context, target ports.Element) error {
	e.page.record("dragTo %s -> %s", e.selector, target.Selector())

	return nil
}
