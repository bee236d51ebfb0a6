package ports

import (
	"canvas-e2e/internal/entity"
	"context"
	"time"
)

// Page is the browser capability the resolver, the vision loop and the page
// objects drive. One page, one session.
type Page interface {
	ContentSource

	Navigate(ctx context.Context, url string) error
	URL() string
	Locate(selector string) Element
	MouseClick(ctx context.Context, x, y float64) error
	MouseDoubleClick(ctx context.Context, x, y float64) error
	MouseMove(ctx context.Context, x, y float64, steps int) error
	MouseDown(ctx context.Context) error
	MouseUp(ctx context.Context) error
	Wheel(ctx context.Context, deltaX, deltaY float64) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	TypeText(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	Screenshot(ctx context.Context) ([]byte, error)
	ViewportSize() *entity.Viewport
}

// Element is a lazy reference. Existence is only checked by WaitFor, Count
// and interactions.
type Element interface {
	Selector() string
	First() Element
	WaitFor(ctx context.Context, timeout time.Duration) error
	Count(ctx context.Context) (int, error)
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	BoundingBox(ctx context.Context) (*entity.BoundingBox, error)
	DragTo(ctx context.Context, target Element) error
}

type ContentSource interface {
	Content(ctx context.Context) (string, error)
}

type ReasoningProvider interface {
	Name() string
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
}

// VisionProvider is a ReasoningProvider that also accepts an inline image.
type VisionProvider interface {
	ReasoningProvider
	CompleteWithImage(ctx context.Context, req entity.CompletionRequest, imageBase64 string) (string, error)
}

type Gateway interface {
	GenerateText(ctx context.Context, prompt string, usePrimary bool) (string, error)
	AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error)
	IsAvailable() bool
	ProviderInfo() entity.ProviderInfo
}

// Resolution reports the element a locator resolved to and how.
type Resolution struct {
	Element  Element
	Strategy string
	Tier     entity.Tier
}

type LocatorResolver interface {
	Find(ctx context.Context, page Page, locator entity.Locator) (*Resolution, error)
}

type StateExtractor interface {
	Extract(ctx context.Context, source ContentSource) *entity.CanvasState
}

type KnowledgeStore interface {
	Learn(description, strategy string) bool
	Strategies(description string) []string
	Stats() entity.KnowledgeStats
}

type ActionLoop interface {
	Execute(ctx context.Context, objective string) (*entity.RunResult, error)
	Verify(ctx context.Context, condition string) bool
	VerifyDetailed(ctx context.Context, condition string) (*entity.Verification, error)
}

// BrowserManager owns the browser process behind a Page.
type BrowserManager interface {
	Page
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}
