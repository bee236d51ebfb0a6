// Package pages holds page objects for the application under test. They
// resolve their critical controls through the self-healing resolver.
package pages

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"canvas-e2e/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	loginPageName   = "LoginPage"
	loginPageTracer = "pages.login"

	loginPath            = "/login"
	errorMessageSelector = ".error-message"

	errorVisibleTimeout = 3 * time.Second

	// DefaultRedirect is where WaitForRedirect expects to land by default.
	DefaultRedirect        = "/main"
	defaultRedirectTimeout = 10 * time.Second
	redirectPollInterval   = 250 * time.Millisecond
	// AuthSettle is how long Authenticate waits for the post-login redirect.
	AuthSettle = 5 * time.Second
)

var (
	EmailField = entity.Locator{
		Original:    `input[name="email"]`,
		Description: "email input field",
		Fallbacks: []string{
			`input[type="email"]`,
			`input[placeholder*="Email"]`,
			`input[placeholder*="email"]`,
			`form input:nth-child(1)`,
		},
	}

	PasswordField = entity.Locator{
		Original:    `input[name="password"]`,
		Description: "password input field",
		Fallbacks: []string{
			`input[type="password"]`,
			`input[placeholder*="Password"]`,
			`input[placeholder*="password"]`,
			`form input:nth-child(2)`,
		},
	}

	LoginButton = entity.Locator{
		Original:    `button[type="submit"]`,
		Description: "login button",
		Fallbacks: []string{
			`button:has-text("Login")`,
			`button:has-text("Sign in")`,
			`.login-button`,
			`[data-testid="login-button"]`,
		},
	}

	errStillOnLogin = errors.New("still on the login page after submitting credentials")
)

type LoginPage struct {
	page     ports.Page
	resolver ports.LocatorResolver
	logger   *zap.Logger
	tracer   trace.Tracer
	sleep    func(ctx context.Context, d time.Duration) error
}

type LoginParams struct {
	fx.In

	Logger   *zap.Logger
	Page     ports.Page
	Resolver ports.LocatorResolver
}

func NewLoginPage(params LoginParams) *LoginPage {
	return &LoginPage{
		page:     params.Page,
		resolver: params.Resolver,
		logger:   params.Logger.With(zap.String(logg.Layer, loginPageName)),
		tracer:   otel.Tracer(loginPageTracer),
		sleep:    sleepContext,
	}
}

func (p *LoginPage) Goto(ctx context.Context) error {
	return p.page.Navigate(ctx, loginPath)
}

// Login fills the form through the fixed selectors.
func (p *LoginPage) Login(ctx context.Context, email, password string) error {
	if err := p.page.Locate(EmailField.Original).Fill(ctx, email); err != nil {
		return err
	}

	if err := p.page.Locate(PasswordField.Original).Fill(ctx, password); err != nil {
		return err
	}

	return p.page.Locate(LoginButton.Original).Click(ctx)
}

// LoginWithSelfHealing resolves every control through the resolver before
// filling the form, so a renamed field still works.
func (p *LoginPage) LoginWithSelfHealing(ctx context.Context, email, password string) (err error) {
	const op = "LoginWithSelfHealing"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	fields := make([]ports.Element, 0, 3)

	for _, locator := range []entity.Locator{EmailField, PasswordField, LoginButton} {
		res, err := p.resolver.Find(ctx, p.page, locator)
		if err != nil {
			return err
		}

		step.AddEvent("resolved",
			attribute.String("description", locator.Description),
			attribute.String("tier", string(res.Tier)))
		fields = append(fields, res.Element)
	}

	if err := fields[0].Fill(ctx, email); err != nil {
		return err
	}

	if err := fields[1].Fill(ctx, password); err != nil {
		return err
	}

	return fields[2].Click(ctx)
}

func (p *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	return p.page.Locate(errorMessageSelector).Text(ctx)
}

// IsErrorVisible waits briefly for the error banner. Lookup failures count
// as not visible.
func (p *LoginPage) IsErrorVisible(ctx context.Context) bool {
	el := p.page.Locate(errorMessageSelector).First()

	if err := el.WaitFor(ctx, errorVisibleTimeout); err != nil {
		return false
	}

	visible, err := el.IsVisible(ctx)

	return err == nil && visible
}

// Authenticate logs in and fails when the browser is still on the login page
// after the settle period.
func (p *LoginPage) Authenticate(ctx context.Context, email, password string, selfHealing bool) (err error) {
	const op = "Authenticate"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op, attribute.Bool("self_healing", selfHealing))
	defer func() {
		step.End(err)
	}()

	logger.Info("Logging in", zap.String("email", email))

	if err := p.Goto(ctx); err != nil {
		return err
	}

	if selfHealing {
		err = p.LoginWithSelfHealing(ctx, email, password)
	} else {
		err = p.Login(ctx, email, password)
	}

	if err != nil {
		return err
	}

	if err := p.sleep(ctx, AuthSettle); err != nil {
		return err
	}

	current := p.page.URL()
	if strings.Contains(current, loginPath) {
		logger.Error("Login failed, check TEST_USER_EMAIL and TEST_USER_PASSWORD", zap.String(logg.URL, current))

		return apperr.Wrap(op, apperr.CodeActionFailed, errStillOnLogin, map[string]any{
			apperr.MetaReason: "login_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    current,
		})
	}

	logger.Info("Logged in", zap.String(logg.URL, current))

	return nil
}

// WaitForRedirect polls the page URL until it matches expected or timeout
// passes. A relative expected value is compared with the URL path (and query
// when it has one), an absolute one with the whole URL. Empty arguments use
// DefaultRedirect and a 10s timeout.
func (p *LoginPage) WaitForRedirect(ctx context.Context, expected string, timeout time.Duration) error {
	const op = "WaitForRedirect"

	if expected == "" {
		expected = DefaultRedirect
	}

	if timeout <= 0 {
		timeout = defaultRedirectTimeout
	}

	polls := int((timeout + redirectPollInterval - 1) / redirectPollInterval)

	for range polls {
		if urlMatches(p.page.URL(), expected) {
			return nil
		}

		if err := p.sleep(ctx, redirectPollInterval); err != nil {
			return err
		}
	}

	current := p.page.URL()
	if urlMatches(current, expected) {
		return nil
	}

	return apperr.Wrap(op, apperr.CodeTimeout, fmt.Errorf("not redirected to %s within %s", expected, timeout), map[string]any{
		apperr.MetaReason: "redirect_timeout",
		apperr.MetaStage:  apperr.StageNavigation,
		apperr.MetaURL:    current,
	})
}

func urlMatches(current, expected string) bool {
	target, err := url.Parse(expected)
	if err != nil {
		return false
	}

	if target.IsAbs() {
		return current == expected
	}

	actual, err := url.Parse(current)
	if err != nil {
		return false
	}

	got := actual.Path
	if target.RawQuery != "" {
		got += "?" + actual.RawQuery
	}

	return got == expected
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
