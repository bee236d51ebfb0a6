package main

import (
	"canvas-e2e/internal/bootstrap"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/generator"
	"canvas-e2e/internal/ports"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type generateFlags struct {
	description string
	issue       string
	pageURL     string
	outDir      string
	fileName    string
	print       bool
}

func newGenerateCommand() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an end-to-end test from a requirement or bug report",
		Long: `Generate Go end-to-end test source with the configured reasoning provider.

Examples:
  canvasctl generate -d "adding a node increments the node count"
  canvasctl generate -d "undo removes the last edge" --issue "#412"
  canvasctl generate -d "login rejects a wrong password" --url /login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.description, "description", "d", "", "what the test should cover")
	cmd.Flags().StringVar(&flags.issue, "issue", "", "bug report reference; generates a reproduction test")
	cmd.Flags().StringVar(&flags.pageURL, "url", "", "open this page first and ground the test in its markup")
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default GENERATED_TESTS_DIR)")
	cmd.Flags().StringVarP(&flags.fileName, "name", "n", "", "output file name (default generated_<id>_e2e_test.go)")
	cmd.Flags().BoolVar(&flags.print, "print", false, "print the test instead of saving it")

	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runGenerate(cmd *cobra.Command, flags generateFlags) (err error) {
	var (
		conf    *config.Config
		logger  *zap.Logger
		gen     *generator.Generator
		browser ports.BrowserManager
	)

	app := bootstrap.NewApp(fx.Populate(&conf, &logger, &gen, &browser))
	if err := app.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, app.Stop(context.Background()))
	}()

	if !conf.TestConfig.EnableTestGenerator {
		logger.Warn("ENABLE_AI_TEST_GENERATION is false, generating on explicit request")
	}

	var code string

	if flags.issue != "" {
		code, err = gen.GenerateFromBugReport(ctx, flags.issue, flags.description)
	} else {
		var options generator.GenerateOptions

		options, err = pageContext(ctx, browser, flags.pageURL)
		if err != nil {
			return err
		}

		code, err = gen.GenerateTest(ctx, flags.description, options)
	}

	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if flags.print {
		fmt.Fprintln(out, code)

		return nil
	}

	path, err := gen.Save(code, flags.fileName, flags.outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", green("✅ Test written to"), path)

	return nil
}

// pageContext opens pageURL and captures its markup. An empty pageURL yields
// no page context and never launches a browser.
func pageContext(ctx context.Context, browser ports.BrowserManager, pageURL string) (generator.GenerateOptions, error) {
	if pageURL == "" {
		return generator.GenerateOptions{}, nil
	}

	if err := browser.Launch(ctx); err != nil {
		return generator.GenerateOptions{}, err
	}

	defer func() {
		_ = browser.Close(context.Background())
	}()

	if err := browser.Navigate(ctx, pageURL); err != nil {
		return generator.GenerateOptions{}, err
	}

	markup, err := browser.Content(ctx)
	if err != nil {
		return generator.GenerateOptions{}, err
	}

	return generator.GenerateOptions{PageURL: browser.URL(), PageMarkup: markup}, nil
}
