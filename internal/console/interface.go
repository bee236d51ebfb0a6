package console

import (
	"bufio"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/usecase"
	"canvas-e2e/pkg/logg"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	config     *config.Config
	logger     *zap.Logger
	usecase    *usecase.Service
	shutdowner fx.Shutdowner
	in         io.Reader
	out        io.Writer
	ctx        context.Context
	cancel     context.CancelFunc
	sigChan    chan os.Signal
	stopping   atomic.Bool
}

type Params struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Usecase    *usecase.Service
	Shutdowner fx.Shutdowner `optional:"true"`
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:    params.Usecase,
		shutdowner: params.Shutdowner,
		in:         os.Stdin,
		out:        os.Stdout,
		ctx:        ctx,
		cancel:     cancel,
		sigChan:    make(chan os.Signal, 1),
	}
}

// Start runs the read-eval loop until exit, end of input or Stop. When the
// loop ends the application is asked to shut down.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(i.sigChan)

	go func() {
		if _, ok := <-i.sigChan; ok {
			i.printf("\n\n⚠️  Interrupt received, stopping...\n")
			_ = i.Stop()
		}
	}()

	i.loop()

	if i.shutdowner != nil && !i.stopping.Load() {
		return i.shutdowner.Shutdown()
	}

	return nil
}

func (i *Interface) loop() {
	scanner := bufio.NewScanner(i.in)

	for !i.stopping.Load() {
		i.printf("\n> ")

		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				return
			}

			i.logger.Error("Command error", zap.Error(err))
			i.printf("Error: %v\n", err)
		}
	}
}

// Stop cancels whatever is running and ends the session.
func (i *Interface) Stop() error {
	if !i.stopping.CompareAndSwap(false, true) {
		return nil
	}

	i.logger.Info("Stopping console interface...")

	i.cancel()
	i.usecase.Runner.Stop()

	if i.shutdowner != nil {
		return i.shutdowner.Shutdown()
	}

	return nil
}

// handleCommand dispatches console commands. Bare words like "login" are
// commands only on their own; any other input is an objective.
func (i *Interface) handleCommand(input string) error {
	command, arg, _ := strings.Cut(input, " ")
	command = strings.ToLower(command)
	arg = strings.TrimSpace(arg)

	switch {
	case command == "goto":
		return i.navigate(arg)
	case command == "verify":
		return i.verify(arg)
	case arg != "":
		return i.runObjective(input)
	}

	switch command {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		i.printf("Shutting down...\n")

		return errExit
	case "stats":
		i.printStats()

		return nil
	case "login":
		return i.login()
	default:
		return i.runObjective(input)
	}
}

func (i *Interface) navigate(target string) error {
	if target == "" {
		return errors.New("usage: goto <path or url>")
	}

	if err := i.usecase.Browser.Navigate(i.ctx, target); err != nil {
		return err
	}

	i.printf("🌐 %s\n", i.usecase.Browser.URL())

	return nil
}

func (i *Interface) verify(condition string) error {
	if condition == "" {
		return errors.New("usage: verify <condition>")
	}

	verification, err := i.usecase.Runner.Verify(i.ctx, condition)
	if err != nil {
		return err
	}

	mark := "❌"
	if verification.Satisfied {
		mark = "✅"
	}

	i.printf("%s %s\n   %s\n", mark, condition, verification.Reason)

	return nil
}

func (i *Interface) login() error {
	email := i.config.TestConfig.UserEmail

	i.printf("🔐 Logging in as %s\n", email)

	if err := i.usecase.Auth.Authenticate(i.ctx, email, i.config.TestConfig.UserPassword, true); err != nil {
		return err
	}

	i.printf("✅ Logged in: %s\n", i.usecase.Browser.URL())

	return nil
}

func (i *Interface) runObjective(objective string) error {
	i.printf("\n🤖 Objective: %s\n", objective)
	i.printf("%s\n", strings.Repeat("─", 50))

	result, err := i.usecase.Runner.Execute(i.ctx, objective)
	if err != nil {
		return err
	}

	i.printf("%s\n", strings.Repeat("─", 50))
	i.printResult(result)

	return nil
}

func (i *Interface) printResult(result *entity.RunResult) {
	switch result.Status {
	case entity.RunStatusSucceeded:
		i.printf("✅ Objective achieved: %s\n", result.Reason)
	case entity.RunStatusExhausted:
		i.printf("⏱️  Step budget exhausted\n")
	default:
		i.printf("❌ Objective failed: %s\n", result.Reason)
	}

	i.printf("Steps taken: %d (%s)\n", len(result.Steps), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	for n, line := range result.Steps {
		i.printf("  %d. %s\n", n+1, line)
	}
}

func (i *Interface) printStats() {
	info := i.usecase.AI.ProviderInfo()
	stats := i.usecase.Knowledge.Stats()

	i.printf("Providers: primary=%s fallback=%s available=%t\n",
		orNone(info.Primary), orNone(info.Fallback), i.usecase.AI.IsAvailable())
	i.printf("Learned descriptions: %d\n", stats.TotalLearned)

	for _, description := range stats.Descriptions {
		i.printf("  - %s\n", description)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}

	return s
}

func (i *Interface) printf(format string, args ...any) {
	fmt.Fprintf(i.out, format, args...)
}

func (i *Interface) printBanner() {
	i.printf(`
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║              🧪  Canvas E2E Runner  🖱️                     ║
║                                                           ║
║   Self-healing, vision-driven tests for canvas editors    ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`)
}

func (i *Interface) printHelp() {
	i.printf(`
Available commands:
  help, h           - Show this help message
  goto <path>       - Navigate (relative paths use TEST_BASE_URL)
  login             - Log in with TEST_USER_EMAIL / TEST_USER_PASSWORD
  verify <cond>     - Ask whether a condition holds on screen
  stats             - Show providers and learned selectors
  exit, quit, q     - Exit the application

Anything else is run as an objective, for example:
    - Add two nodes to the canvas and connect them
    - Zoom in on the agent node
`)
}
