package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errDoctorFailed) {
			fmt.Fprintln(os.Stderr, red("❌ "+err.Error()))
		}

		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "canvasctl",
		Short: "🧪 Self-healing, vision-driven end-to-end runner for canvas editors",
		Long: `canvasctl drives a canvas web application through a real browser.

Locators heal themselves when the markup changes, objectives written in plain
language are carried out by a vision model, and tests can be generated from
requirements or bug reports.

Configuration is read from the environment and from .env.test / .env.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newConsoleCommand(),
		newDoctorCommand(),
		newGenerateCommand(),
		newStatsCommand(),
	)

	return rootCmd
}
