package main

import (
	"canvas-e2e/internal/ai"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/healing"
	"errors"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errDoctorFailed = errors.New("setup verification failed")

type checkStatus int

const (
	statusOK checkStatus = iota
	statusWarn
	statusFail
)

type checkResult struct {
	name   string
	status checkStatus
	detail string
}

func newDoctorCommand() *cobra.Command {
	var skipBrowser bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify configuration, providers, knowledge store and browser driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load()
			if err != nil {
				return err
			}

			results := diagnose(conf, zap.NewNop())

			if !skipBrowser {
				results = append(results, checkDriver())
			}

			return report(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().BoolVar(&skipBrowser, "skip-browser", false, "do not start the playwright driver")

	return cmd
}

// diagnose runs every check that needs no browser.
func diagnose(conf *config.Config, logger *zap.Logger) []checkResult {
	results := []checkResult{checkConfig(conf)}
	results = append(results, checkProviders(conf, logger)...)
	results = append(results, checkKnowledge(conf, logger), checkBaseURL(conf))

	return results
}

func checkConfig(conf *config.Config) checkResult {
	if err := conf.Validate(); err != nil {
		return checkResult{name: "configuration", status: statusFail, detail: err.Error()}
	}

	return checkResult{name: "configuration", status: statusOK, detail: "valid"}
}

func checkProviders(conf *config.Config, logger *zap.Logger) []checkResult {
	info := ai.NewGateway(ai.Params{Config: conf, Logger: logger}).ProviderInfo()

	slot := func(name, configured, provider string) checkResult {
		if provider == "" {
			return checkResult{
				name:   name + " provider",
				status: statusWarn,
				detail: fmt.Sprintf("%s has no API key", configured),
			}
		}

		return checkResult{name: name + " provider", status: statusOK, detail: provider}
	}

	results := []checkResult{
		slot("primary", conf.AIConfig.PrimaryProvider, info.Primary),
		slot("fallback", conf.AIConfig.FallbackProvider, info.Fallback),
	}

	if info.Primary == "" && info.Fallback == "" {
		results = append(results, checkResult{
			name:   "reasoning",
			status: statusFail,
			detail: "no provider available, set ANTHROPIC_API_KEY or OPENAI_API_KEY",
		})
	}

	return results
}

func checkKnowledge(conf *config.Config, logger *zap.Logger) checkResult {
	const name = "knowledge store"

	if conf.HealingConfig.KnowledgeFile == "" {
		return checkResult{name: name, status: statusFail, detail: "HEALING_KNOWLEDGE_FILE is empty"}
	}

	count, err := healing.NewKnowledgeStoreAt(conf.HealingConfig.KnowledgeFile, logger).Check()
	if err != nil {
		return checkResult{name: name, status: statusFail, detail: err.Error()}
	}

	return checkResult{
		name:   name,
		status: statusOK,
		detail: fmt.Sprintf("%s (%d descriptions)", conf.HealingConfig.KnowledgeFile, count),
	}
}

func checkBaseURL(conf *config.Config) checkResult {
	if conf.BrowserConfig.BaseURL == "" {
		return checkResult{name: "base url", status: statusWarn, detail: "TEST_BASE_URL is not set, relative paths will fail"}
	}

	return checkResult{name: "base url", status: statusOK, detail: conf.BrowserConfig.BaseURL}
}

func checkDriver() checkResult {
	const name = "playwright driver"

	pw, err := playwright.Run()
	if err != nil {
		return checkResult{name: name, status: statusFail, detail: err.Error() + " (run `canvasctl console` once to install)"}
	}

	if err := pw.Stop(); err != nil {
		return checkResult{name: name, status: statusWarn, detail: "started but did not stop cleanly: " + err.Error()}
	}

	return checkResult{name: name, status: statusOK, detail: "installed"}
}

// report prints results and returns errDoctorFailed if any check failed.
func report(w io.Writer, results []checkResult) error {
	failed := 0

	for _, result := range results {
		var mark string

		switch result.status {
		case statusOK:
			mark = green("✅")
		case statusWarn:
			mark = yellow("⚠️ ")
		default:
			mark = red("❌")
			failed++
		}

		fmt.Fprintf(w, "%s %-18s %s\n", mark, result.name, gray(result.detail))
	}

	if failed > 0 {
		fmt.Fprintf(w, "\n%s\n", red(fmt.Sprintf("%d check(s) failed", failed)))

		return errDoctorFailed
	}

	fmt.Fprintf(w, "\n%s\n", green("Setup looks good"))

	return nil
}
