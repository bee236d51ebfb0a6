package portstest

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports"
	"context"
	"errors"
	"sync"
)

var ErrUnavailable = errors.New("gateway unavailable")

// Gateway returns scripted replies in order, repeating the last one once the
// script runs out.
type Gateway struct {
	mu sync.Mutex

	Available    bool
	Info         entity.ProviderInfo
	TextReplies  []string
	TextErr      error
	ImageReplies []string
	ImageErr     error

	TextPrompts  []string
	ImagePrompts []string
}

var _ ports.Gateway = (*Gateway)(nil)

func (g *Gateway) GenerateText(_ context.Context, prompt string, _ bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.TextPrompts = append(g.TextPrompts, prompt)

	if g.TextErr != nil {
		return "", g.TextErr
	}

	return scripted(g.TextReplies, len(g.TextPrompts)-1), nil
}

func (g *Gateway) AnalyzeImage(_ context.Context, _ string, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ImagePrompts = append(g.ImagePrompts, prompt)

	if g.ImageErr != nil {
		return "", g.ImageErr
	}

	return scripted(g.ImageReplies, len(g.ImagePrompts)-1), nil
}

func (g *Gateway) IsAvailable() bool {
	return g.Available
}

func (g *Gateway) ProviderInfo() entity.ProviderInfo {
	return g.Info
}

func (g *Gateway) TextCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.TextPrompts)
}

func (g *Gateway) ImageCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.ImagePrompts)
}

func scripted(replies []string, i int) string {
	if len(replies) == 0 {
		return ""
	}

	if i >= len(replies) {
		return replies[len(replies)-1]
	}

	return replies[i]
}
