package usecase

import (
	"canvas-e2e/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateRunnerService() adapters.RunnerService {
	return NewRunnerService(RunnerServiceParams{
		Loop:   f.deps.Loop,
		Logger: f.deps.Logger,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}

func (f *serviceFactory) CreateAIService() adapters.AIService {
	return f.deps.Gateway
}

func (f *serviceFactory) CreateKnowledgeService() adapters.KnowledgeService {
	return f.deps.Knowledge
}

func (f *serviceFactory) CreateAuthService() adapters.AuthService {
	return f.deps.Login
}
