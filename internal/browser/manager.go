package browser

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"errors"
	"net/url"
	"os"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var errNoBrowserContext = errors.New("browser context is nil")

// Manager owns one playwright session and exposes its active page.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

var _ ports.BrowserManager = (*Manager)(nil)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if m.config.BrowserConfig.UserDataDir != "" {
		return m.launchPersistent(ctx)
	}

	return m.launchNew(ctx)
}

func (m *Manager) viewport() *playwright.Size {
	return &playwright.Size{
		Width:  m.config.BrowserConfig.ViewportWidth,
		Height: m.config.BrowserConfig.ViewportHeight,
	}
}

func (m *Manager) launchPersistent(ctx context.Context) (err error) {
	const op = "launchPersistent"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	userDataDir := m.config.BrowserConfig.UserDataDir
	logger.Info("Launching persistent browser context", zap.String(logg.Path, userDataDir))

	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
			apperr.MetaPath:   userDataDir,
		})
	}

	options := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:            playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Viewport:          m.viewport(),
		UserAgent:         playwright.String(userAgent),
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
		IgnoreHttpsErrors: playwright.Bool(true),
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(userDataDir, options)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	if pages := browserContext.Pages(); len(pages) > 0 {
		m.page = pages[0]
		logger.Info("Using existing page")
	} else {
		page, err := browserContext.NewPage()
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "new_page_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
		m.page = page
		logger.Info("Created new page")
	}

	m.page.SetDefaultTimeout(float64(m.config.BrowserConfig.Timeout))

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching new browser", zap.Bool("headless", m.config.BrowserConfig.Headless))

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          m.viewport(),
		UserAgent:         playwright.String(userAgent),
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	page.SetDefaultTimeout(float64(m.config.BrowserConfig.Timeout))
	m.page = page

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

// Close releases the session. A persistent profile keeps its browser
// running so the next launch reuses the logged-in state.
func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing connection to browser...")

	if m.config.BrowserConfig.UserDataDir != "" {
		m.ready = false
		logger.Info("Persistent browser - connection closed, browser still running")

		return nil
	}

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	m.ready = false
	logger.Info("Browser closed")

	return nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}

func (m *Manager) ensurePageActive() error {
	if m.browserContext == nil {
		return errNoBrowserContext
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p
			m.logger.Info("Reconnected to existing page")

			return nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return err
	}

	m.page = page
	m.logger.Info("Created new page")

	return nil
}

// activePage returns the live page or a browser_not_ready error.
func (m *Manager) activePage(op string) (playwright.Page, error) {
	if !m.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return m.page, nil
}

// interact runs one input primitive on the active page and wraps its
// failure as an interaction error.
func (m *Manager) interact(ctx context.Context, op string, fn func(page playwright.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	if err := fn(page); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: strings.ToLower(op) + "_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

// resolveURL joins a relative path to the configured base URL.
func (m *Manager) resolveURL(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	if ref.IsAbs() {
		return target, nil
	}

	base, err := url.Parse(m.config.BrowserConfig.BaseURL)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(ref).String(), nil
}

func (m *Manager) Navigate(ctx context.Context, target string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, target))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", target))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	full, err := m.resolveURL(target)
	if err != nil {
		return apperr.InvalidReqError(op, "url", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	step.AddEvent("navigating to URL")

	_, err = page.Goto(full, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    full,
		})
	}

	step.AddEvent("navigation completed")
	logger.Debug("Navigated", zap.String("resolved", full))

	return nil
}

func (m *Manager) URL() string {
	if m.page == nil || m.page.IsClosed() {
		return ""
	}

	return m.page.URL()
}

func (m *Manager) Content(ctx context.Context) (string, error) {
	const op = "Content"

	var markup string
	err := m.interact(ctx, op, func(page playwright.Page) (err error) {
		markup, err = page.Content()

		return err
	})

	return markup, err
}

func (m *Manager) Locate(selector string) ports.Element {
	return &element{manager: m, selector: selector}
}

func (m *Manager) MouseClick(ctx context.Context, x, y float64) error {
	return m.interact(ctx, "MouseClick", func(page playwright.Page) error {
		return page.Mouse().Click(x, y)
	})
}

func (m *Manager) MouseDoubleClick(ctx context.Context, x, y float64) error {
	return m.interact(ctx, "MouseDoubleClick", func(page playwright.Page) error {
		return page.Mouse().Dblclick(x, y)
	})
}

func (m *Manager) MouseMove(ctx context.Context, x, y float64, steps int) error {
	if steps < 1 {
		steps = 1
	}

	return m.interact(ctx, "MouseMove", func(page playwright.Page) error {
		return page.Mouse().Move(x, y, playwright.MouseMoveOptions{Steps: playwright.Int(steps)})
	})
}

func (m *Manager) MouseDown(ctx context.Context) error {
	return m.interact(ctx, "MouseDown", func(page playwright.Page) error {
		return page.Mouse().Down()
	})
}

func (m *Manager) MouseUp(ctx context.Context) error {
	return m.interact(ctx, "MouseUp", func(page playwright.Page) error {
		return page.Mouse().Up()
	})
}

func (m *Manager) Wheel(ctx context.Context, deltaX, deltaY float64) error {
	return m.interact(ctx, "Wheel", func(page playwright.Page) error {
		return page.Mouse().Wheel(deltaX, deltaY)
	})
}

func (m *Manager) KeyDown(ctx context.Context, key string) error {
	return m.interact(ctx, "KeyDown", func(page playwright.Page) error {
		return page.Keyboard().Down(key)
	})
}

func (m *Manager) KeyUp(ctx context.Context, key string) error {
	return m.interact(ctx, "KeyUp", func(page playwright.Page) error {
		return page.Keyboard().Up(key)
	})
}

func (m *Manager) TypeText(ctx context.Context, text string) error {
	return m.interact(ctx, "TypeText", func(page playwright.Page) error {
		return page.Keyboard().Type(text)
	})
}

func (m *Manager) Press(ctx context.Context, key string) error {
	return m.interact(ctx, "Press", func(page playwright.Page) error {
		return page.Keyboard().Press(key)
	})
}

// Screenshot captures the viewport as PNG.
func (m *Manager) Screenshot(ctx context.Context) (shot []byte, err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shot, err = page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	step.SetAttributes(attribute.Int("bytes", len(shot)))

	return shot, nil
}

func (m *Manager) ViewportSize() *entity.Viewport {
	if m.page == nil || m.page.IsClosed() {
		return nil
	}

	size := m.page.ViewportSize()
	if size == nil {
		return nil
	}

	return &entity.Viewport{Width: size.Width, Height: size.Height}
}
