package adapters

import (
	"canvas-e2e/internal/entity"
	"context"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	URL() string
	IsReady() bool
}

type AIService interface {
	IsAvailable() bool
	ProviderInfo() entity.ProviderInfo
}

type KnowledgeService interface {
	Stats() entity.KnowledgeStats
}

type AuthService interface {
	Authenticate(ctx context.Context, email, password string, selfHealing bool) error
}

type RunnerService interface {
	Execute(ctx context.Context, objective string) (*entity.RunResult, error)
	Verify(ctx context.Context, condition string) (*entity.Verification, error)
	Stop()
}
