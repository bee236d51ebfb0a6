package pages

import (
	"canvas-e2e/internal/canvas"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/healing"
	"canvas-e2e/internal/ports/portstest"
	"canvas-e2e/pkg/apperr"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestResolver(t *testing.T) *healing.Resolver {
	t.Helper()

	logger := zaptest.NewLogger(t)

	return healing.NewResolver(healing.ResolverParams{
		Config: &config.Config{HealingConfig: &config.HealingConfig{
			Enabled:          true,
			OriginalTimeout:  time.Second,
			AlternateTimeout: time.Second,
			MarkupLimit:      5000,
		}},
		Logger:  logger,
		Store:   healing.NewKnowledgeStoreAt(filepath.Join(t.TempDir(), "k.json"), logger),
		Gateway: &portstest.Gateway{},
	})
}

func newTestLoginPage(t *testing.T, page *portstest.Page) *LoginPage {
	t.Helper()

	p := NewLoginPage(LoginParams{Logger: zaptest.NewLogger(t), Page: page, Resolver: newTestResolver(t)})
	p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return p
}

func newTestCanvasPage(t *testing.T, page *portstest.Page) *CanvasPage {
	t.Helper()

	logger := zaptest.NewLogger(t)

	c := NewCanvasPage(CanvasParams{
		Logger:    logger,
		Page:      page,
		Resolver:  newTestResolver(t),
		Extractor: canvas.NewExtractor(canvas.Params{Logger: logger}),
	})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return c
}

func TestLoginPage_Login(t *testing.T) {
	page := portstest.NewPage()
	page.Present[EmailField.Original] = 1
	page.Present[PasswordField.Original] = 1
	page.Present[LoginButton.Original] = 1

	require.NoError(t, newTestLoginPage(t, page).Login(context.Background(), "a@b.c", "secret"))

	assert.Equal(t, []string{
		`fill input[name="email"]=a@b.c`,
		`fill input[name="password"]=secret`,
		`clickElement button[type="submit"]`,
	}, page.Recorded())
}

func TestLoginPage_LoginWithSelfHealingUsesFallbacks(t *testing.T) {
	page := portstest.NewPage()
	page.Present[`input[type="email"]`] = 1
	page.Present[`input[type="password"]`] = 1
	page.Present[`button:has-text("Login")`] = 1

	require.NoError(t, newTestLoginPage(t, page).LoginWithSelfHealing(context.Background(), "a@b.c", "secret"))

	calls := page.Recorded()
	assert.Contains(t, calls, `fill input[type="email"]=a@b.c`)
	assert.Contains(t, calls, `fill input[type="password"]=secret`)
	assert.Contains(t, calls, `clickElement button:has-text("Login")`)
}

func TestLoginPage_LoginWithSelfHealingFails(t *testing.T) {
	err := newTestLoginPage(t, portstest.NewPage()).LoginWithSelfHealing(context.Background(), "a@b.c", "secret")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeElementNotFound, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), EmailField.Description)
}

func TestLoginPage_Authenticate(t *testing.T) {
	tests := []struct {
		name        string
		redirectTo  string
		selfHealing bool
		wantErr     bool
	}{
		{name: "redirected", redirectTo: "http://localhost:3000/main"},
		{name: "redirected with self healing", redirectTo: "http://localhost:3000/main", selfHealing: true},
		{name: "stuck on login", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := portstest.NewPage()
			page.Present[EmailField.Original] = 1
			page.Present[PasswordField.Original] = 1
			page.Present[LoginButton.Original] = 1

			p := newTestLoginPage(t, page)
			p.sleep = func(context.Context, time.Duration) error {
				if tt.redirectTo != "" {
					page.CurrentURL = tt.redirectTo
				}

				return nil
			}

			err := p.Authenticate(context.Background(), "a@b.c", "secret", tt.selfHealing)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.CodeActionFailed, apperr.CodeOf(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "navigate /login", page.Recorded()[0])
		})
	}
}

func TestLoginPage_ErrorBanner(t *testing.T) {
	page := portstest.NewPage()
	p := newTestLoginPage(t, page)

	assert.False(t, p.IsErrorVisible(context.Background()))

	page.Present[".error-message"] = 1
	page.Texts[".error-message"] = "Invalid credentials"

	assert.True(t, p.IsErrorVisible(context.Background()))

	msg, err := p.ErrorMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Invalid credentials", msg)
}

func TestCanvasPage_DoubleClickCanvas(t *testing.T) {
	page := portstest.NewPage()
	page.Boxes[canvasSelector] = entity.BoundingBox{X: 100, Y: 50, Width: 800, Height: 600}

	require.NoError(t, newTestCanvasPage(t, page).DoubleClickCanvas(context.Background()))

	assert.Equal(t, []string{"dblclick 500,350"}, page.Recorded())
}

func TestCanvasPage_DoubleClickCanvasMissing(t *testing.T) {
	err := newTestCanvasPage(t, portstest.NewPage()).DoubleClickCanvas(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestCanvasPage_AddNode(t *testing.T) {
	t.Run("through the menu with a category", func(t *testing.T) {
		page := portstest.NewPage()
		page.Present[nodeMenuButtonSelector] = 1
		page.Present[addNodeButtonSelector] = 1
		page.Present[`[data-category="Agents"]`] = 1
		page.Present[`button:has-text("agent")`] = 1

		err := newTestCanvasPage(t, page).AddNode(context.Background(), "agent", AddNodeOptions{Category: "Agents"})
		require.NoError(t, err)

		calls := page.Recorded()
		assert.Contains(t, calls, "clickElement "+nodeMenuButtonSelector)
		assert.Contains(t, calls, "clickElement "+addNodeButtonSelector)
		assert.Contains(t, calls, `clickElement [data-category="Agents"]`)
		assert.Equal(t, `clickElement button:has-text("agent")`, calls[len(calls)-1])
	})

	t.Run("through double click", func(t *testing.T) {
		page := portstest.NewPage()
		page.Boxes[canvasSelector] = entity.BoundingBox{Width: 1000, Height: 800}
		page.Present[`[data-testid="node-agent"]`] = 1

		err := newTestCanvasPage(t, page).AddNode(context.Background(), "agent", AddNodeOptions{UseDoubleClick: true})
		require.NoError(t, err)

		calls := page.Recorded()
		assert.Equal(t, "dblclick 500,400", calls[0])
		assert.Equal(t, `clickElement [data-testid="node-agent"]`, calls[len(calls)-1])
	})

	t.Run("unknown node type", func(t *testing.T) {
		err := newTestCanvasPage(t, portstest.NewPage()).AddNode(context.Background(), "ghost", AddNodeOptions{})

		require.Error(t, err)
		assert.Equal(t, apperr.CodeElementNotFound, apperr.CodeOf(err))
	})
}

func TestCanvasPage_ConnectAndKeys(t *testing.T) {
	page := portstest.NewPage()
	c := newTestCanvasPage(t, page)
	ctx := context.Background()

	require.NoError(t, c.ConnectNodes(ctx, "n1", "n2"))
	require.NoError(t, c.Undo(ctx))
	require.NoError(t, c.Redo(ctx))

	assert.Equal(t, []string{
		`dragTo [data-nodeid="n1"] [data-handlepos="right"] -> [data-nodeid="n2"] [data-handlepos="left"]`,
		"press Control+Z",
		"press Control+Y",
	}, page.Recorded())
}

func TestCanvasPage_NodeCount(t *testing.T) {
	page := portstest.NewPage()
	page.Markup = `<div class="react-flow__node"></div><div class="react-flow__node"></div>`

	c := newTestCanvasPage(t, page)
	assert.Equal(t, 2, c.NodeCount(context.Background()))

	page.ContentErr = assert.AnError
	assert.Zero(t, c.NodeCount(context.Background()))
}

func TestLoginPage_WaitForRedirect(t *testing.T) {
	tests := []struct {
		name     string
		urls     []string
		expected string
		timeout  time.Duration
		wantErr  bool
		polls    int
	}{
		{name: "already there", urls: []string{"http://localhost:3000/main"}, polls: 0},
		{name: "lands after two polls", urls: []string{"http://localhost:3000/login", "http://localhost:3000/login", "http://localhost:3000/main"}, polls: 2},
		{name: "custom path with query", urls: []string{"http://localhost:3000/canvas?id=7"}, expected: "/canvas?id=7"},
		{name: "absolute url", urls: []string{"http://localhost:3000/main"}, expected: "http://localhost:3000/main"},
		{name: "prefix is not a match", urls: []string{"http://localhost:3000/main/settings"}, timeout: time.Second, wantErr: true, polls: 4},
		{name: "stays on login", urls: []string{"http://localhost:3000/login"}, timeout: time.Second, wantErr: true, polls: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := portstest.NewPage()
			page.CurrentURL = tt.urls[0]

			p := newTestLoginPage(t, page)
			polls := 0
			p.sleep = func(context.Context, time.Duration) error {
				polls++
				if polls < len(tt.urls) {
					page.CurrentURL = tt.urls[polls]
				}

				return nil
			}

			err := p.WaitForRedirect(context.Background(), tt.expected, tt.timeout)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.CodeTimeout, apperr.CodeOf(err))
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.polls, polls)
		})
	}
}

func TestCanvasPage_AddNodeByDrag(t *testing.T) {
	t.Run("drags onto the canvas", func(t *testing.T) {
		page := portstest.NewPage()
		page.Boxes[canvasSelector] = entity.BoundingBox{Width: 800, Height: 600}
		page.Present[`[data-node-type="agent"]`] = 1

		require.NoError(t, newTestCanvasPage(t, page).AddNodeByDrag(context.Background(), "agent"))

		calls := page.Recorded()
		assert.Equal(t, `dragTo [data-node-type="agent"] -> `+canvasSelector, calls[len(calls)-1])
		assert.NotContains(t, calls, `clickElement [data-node-type="agent"]`)
	})

	t.Run("missing canvas", func(t *testing.T) {
		page := portstest.NewPage()
		page.Present[`[data-testid="node-agent"]`] = 1

		err := newTestCanvasPage(t, page).AddNodeByDrag(context.Background(), "agent")

		require.Error(t, err)
		assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	})
}

func TestCanvasPage_SaveWorkflow(t *testing.T) {
	t.Run("save and run with a name dialog", func(t *testing.T) {
		page := portstest.NewPage()
		page.Present[saveAndRunButtonSelector] = 1
		page.Present[saveButtonSelector] = 1
		page.Present[`input[placeholder*="name"]`] = 1
		page.Present[`input[type="text"]`] = 1
		page.Present[saveConfirmSelector] = 1

		require.NoError(t, newTestCanvasPage(t, page).SaveWorkflow(context.Background(), "nightly"))

		assert.Equal(t, []string{
			"clickElement " + saveAndRunButtonSelector,
			`fill input[placeholder*="name"]=nightly`,
			"clickElement " + saveConfirmSelector,
		}, page.Recorded())
	})

	t.Run("plain save button", func(t *testing.T) {
		page := portstest.NewPage()
		page.Present[saveButtonSelector] = 1

		require.NoError(t, newTestCanvasPage(t, page).SaveWorkflow(context.Background(), "nightly"))

		assert.Equal(t, []string{"clickElement " + saveButtonSelector}, page.Recorded())
	})

	t.Run("nothing on screen is not an error", func(t *testing.T) {
		page := portstest.NewPage()

		require.NoError(t, newTestCanvasPage(t, page).SaveWorkflow(context.Background(), "nightly"))
		assert.Empty(t, page.Recorded())
	})
}

func TestCanvasPage_ExecuteWorkflow(t *testing.T) {
	t.Run("run button then panel", func(t *testing.T) {
		page := portstest.NewPage()
		page.Present[runButtonSelector] = 1

		require.NoError(t, newTestCanvasPage(t, page).ExecuteWorkflow(context.Background()))

		assert.Equal(t, []string{
			"clickElement " + runButtonSelector,
			"waitFor " + executionPanelSelector + " 5s",
		}, page.Recorded())
	})

	t.Run("no run button", func(t *testing.T) {
		page := portstest.NewPage()

		require.NoError(t, newTestCanvasPage(t, page).ExecuteWorkflow(context.Background()))
		assert.Empty(t, page.Recorded())
	})
}

func TestCanvasPage_ExecutionStatus(t *testing.T) {
	page := portstest.NewPage()
	c := newTestCanvasPage(t, page)

	status, err := c.ExecutionStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExecutionIdle, status)

	page.Attributes[executionStatusSelector+"@"+executionStatusAttr] = []string{"running"}

	status, err = c.ExecutionStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExecutionRunning, status)
}

func TestCanvasPage_WaitForExecutionComplete(t *testing.T) {
	key := executionStatusSelector + "@" + executionStatusAttr

	tests := []struct {
		name      string
		statuses  []string
		timeout   time.Duration
		want      ExecutionStatus
		wantCode  string
		wantSleep int
	}{
		{
			name:      "completes on third poll",
			statuses:  []string{"", "running", "completed"},
			timeout:   5 * time.Second,
			want:      ExecutionCompleted,
			wantSleep: 2,
		},
		{
			name:      "failure is terminal",
			statuses:  []string{"running", "failed"},
			timeout:   5 * time.Second,
			want:      ExecutionFailed,
			wantSleep: 1,
		},
		{
			name:      "times out after every poll",
			statuses:  []string{"running"},
			timeout:   2 * time.Second,
			wantCode:  apperr.CodeTimeout,
			wantSleep: 4,
		},
		{
			name:      "default timeout",
			statuses:  []string{"running"},
			wantCode:  apperr.CodeTimeout,
			wantSleep: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := portstest.NewPage()
			page.Attributes[key] = tt.statuses

			c := newTestCanvasPage(t, page)

			var sleeps []time.Duration
			c.sleep = func(_ context.Context, d time.Duration) error {
				sleeps = append(sleeps, d)

				return nil
			}

			status, err := c.WaitForExecutionComplete(context.Background(), tt.timeout)

			assert.Len(t, sleeps, tt.wantSleep)
			for _, d := range sleeps {
				assert.Equal(t, statusPollInterval, d)
			}

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestCanvasPage_WaitForExecutionCompleteCancelled(t *testing.T) {
	page := portstest.NewPage()
	page.Attributes[executionStatusSelector+"@"+executionStatusAttr] = []string{"running"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCanvasPage(t, page).WaitForExecutionComplete(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCanvasPage_NodeDetails(t *testing.T) {
	page := portstest.NewPage()
	page.Present[`[data-nodeid="n1"]`] = 1
	page.Present[detailPanelSelector+` [name="prompt"]`] = 1

	c := newTestCanvasPage(t, page)
	ctx := context.Background()

	require.NoError(t, c.SelectNode(ctx, "n1"))
	require.NoError(t, c.SetNodeParameter(ctx, "prompt", "Summarize"))

	assert.Equal(t, []string{
		`clickElement [data-nodeid="n1"]`,
		"waitFor " + detailPanelSelector + " 3s",
		"fill " + detailPanelSelector + ` [name="prompt"]=Summarize`,
	}, page.Recorded())

	err := c.SelectNode(ctx, "missing")
	assert.ErrorIs(t, err, portstest.ErrNotPresent)
}

func TestCanvasPage_Zoom(t *testing.T) {
	page := portstest.NewPage()
	page.Present[`[data-testid="zoom-in"]`] = 1
	page.Present[`[data-testid="zoom-out"]`] = 1

	c := newTestCanvasPage(t, page)
	ctx := context.Background()

	require.NoError(t, c.Zoom(ctx, ZoomIn))
	require.NoError(t, c.Zoom(ctx, ZoomOut))

	assert.Equal(t, []string{
		`clickElement [data-testid="zoom-in"]`,
		`clickElement [data-testid="zoom-out"]`,
	}, page.Recorded())

	err := c.Zoom(ctx, "sideways")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
