package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	HealingConfig *HealingConfig
	VisionConfig  *VisionConfig
	TestConfig    *TestConfig
}

type AppConfig struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	TraceOutput string `envconfig:"TRACE_OUTPUT"`
}

type AIConfig struct {
	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `envconfig:"ANTHROPIC_BASE_URL" default:"https://api.anthropic.com"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL"`

	PrimaryProvider    string  `envconfig:"AI_PROVIDER" default:"anthropic"`
	PrimaryModel       string  `envconfig:"AI_MODEL" default:"claude-3-5-sonnet-20241022"`
	PrimaryMaxTokens   int     `envconfig:"AI_MAX_TOKENS" default:"4000"`
	PrimaryTemperature float64 `envconfig:"AI_TEMPERATURE" default:"0.3"`

	FallbackProvider    string  `envconfig:"AI_FALLBACK_PROVIDER" default:"openai"`
	FallbackModel       string  `envconfig:"AI_MODEL_FALLBACK" default:"gpt-4-turbo-preview"`
	FallbackMaxTokens   int     `envconfig:"AI_FALLBACK_MAX_TOKENS" default:"4000"`
	FallbackTemperature float64 `envconfig:"AI_FALLBACK_TEMPERATURE" default:"0.3"`

	VisionMaxTokens int           `envconfig:"AI_VISION_MAX_TOKENS" default:"2000"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
}

// ModelConfig is the per-slot completion configuration.
type ModelConfig struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

func (c *AIConfig) Primary() ModelConfig {
	return ModelConfig{
		Provider:    c.PrimaryProvider,
		Model:       c.PrimaryModel,
		MaxTokens:   c.PrimaryMaxTokens,
		Temperature: c.PrimaryTemperature,
	}
}

func (c *AIConfig) Fallback() ModelConfig {
	return ModelConfig{
		Provider:    c.FallbackProvider,
		Model:       c.FallbackModel,
		MaxTokens:   c.FallbackMaxTokens,
		Temperature: c.FallbackTemperature,
	}
}

// APIKey returns the credential configured for provider, or "".
func (c *AIConfig) APIKey(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

type BrowserConfig struct {
	BaseURL        string `envconfig:"TEST_BASE_URL" default:"http://localhost:3000"`
	Headless       bool   `envconfig:"TEST_HEADLESS" default:"false"`
	SlowMo         int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout        int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	ViewportWidth  int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1080"`
	UserDataDir    string `envconfig:"BROWSER_USER_DATA_DIR"`
}

type HealingConfig struct {
	Enabled          bool          `envconfig:"ENABLE_SELF_HEALING" default:"true"`
	KnowledgeFile    string        `envconfig:"HEALING_KNOWLEDGE_FILE" default:"./data/self-healing-knowledge.json"`
	OriginalTimeout  time.Duration `envconfig:"HEALING_ORIGINAL_TIMEOUT" default:"5s"`
	AlternateTimeout time.Duration `envconfig:"HEALING_ALTERNATE_TIMEOUT" default:"3s"`
	MarkupLimit      int           `envconfig:"HEALING_MARKUP_LIMIT" default:"5000"`
}

type VisionConfig struct {
	MaxSteps  int           `envconfig:"VISION_MAX_STEPS" default:"10"`
	StepDelay time.Duration `envconfig:"VISION_STEP_DELAY" default:"500ms"`
}

type TestConfig struct {
	UserEmail           string `envconfig:"TEST_USER_EMAIL" default:"test@example.com"`
	UserPassword        string `envconfig:"TEST_USER_PASSWORD" default:"password123"`
	EnableTestGenerator bool   `envconfig:"ENABLE_AI_TEST_GENERATION" default:"false"`
	GeneratedTestsDir   string `envconfig:"GENERATED_TESTS_DIR" default:"./generated"`
}

func GetConfig() (*Config, error) {
	conf, err := Load()
	if err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return conf, nil
}

// Load reads .env files and the environment without validating, so callers
// can report every problem at once.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.test", ".env")

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}

// Validate checks the model slots and loop settings.
func (c *Config) Validate() error {
	var errs []error

	if c.AIConfig != nil {
		errs = append(errs, validateModel("primary", c.AIConfig.Primary()))
		errs = append(errs, validateModel("fallback", c.AIConfig.Fallback()))

		if c.AIConfig.VisionMaxTokens <= 0 {
			errs = append(errs, errors.New("vision max tokens must be positive"))
		}
	}

	if c.VisionConfig != nil {
		if c.VisionConfig.MaxSteps <= 0 {
			errs = append(errs, errors.New("vision max steps must be positive"))
		}

		if c.VisionConfig.StepDelay < 0 {
			errs = append(errs, errors.New("vision step delay must not be negative, use 0 to disable it"))
		}
	}

	if c.HealingConfig != nil {
		if c.HealingConfig.KnowledgeFile == "" {
			errs = append(errs, errors.New("healing knowledge file must be set"))
		}

		// Playwright treats a zero timeout as no timeout at all.
		if c.HealingConfig.OriginalTimeout <= 0 {
			errs = append(errs, errors.New("healing original timeout must be positive"))
		}

		if c.HealingConfig.AlternateTimeout <= 0 {
			errs = append(errs, errors.New("healing alternate timeout must be positive"))
		}
	}

	return errors.Join(errs...)
}

func validateModel(slot string, m ModelConfig) error {
	var errs []error

	if m.Provider != ProviderAnthropic && m.Provider != ProviderOpenAI {
		errs = append(errs, fmt.Errorf("%s provider %q is not one of %s, %s", slot, m.Provider, ProviderAnthropic, ProviderOpenAI))
	}

	if m.Model == "" {
		errs = append(errs, fmt.Errorf("%s model must be set", slot))
	}

	if m.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("%s max tokens must be positive", slot))
	}

	if m.Temperature < 0 || m.Temperature > 1 {
		errs = append(errs, fmt.Errorf("%s temperature %.2f out of range [0,1]", slot, m.Temperature))
	}

	return errors.Join(errs...)
}
