package usecase

import (
	"canvas-e2e/internal/pages"
	"canvas-e2e/internal/ports"
	"canvas-e2e/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service groups what the console drives.
type Service struct {
	Runner    adapters.RunnerService
	Browser   adapters.BrowserService
	AI        adapters.AIService
	Knowledge adapters.KnowledgeService
	Auth      adapters.AuthService
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	Browser   ports.BrowserManager
	Gateway   ports.Gateway
	Knowledge ports.KnowledgeStore
	Loop      ports.ActionLoop
	Login     *pages.LoginPage
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Runner:    factory.CreateRunnerService(),
		Browser:   factory.CreateBrowserService(),
		AI:        factory.CreateAIService(),
		Knowledge: factory.CreateKnowledgeService(),
		Auth:      factory.CreateAuthService(),
	}
}
