package main

import (
	"canvas-e2e/internal/bootstrap"

	"github.com/spf13/cobra"
)

func newConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive objective runner",
		Long: `Launch the browser and read commands from stdin.

Anything that is not a command is handed to the vision loop as an objective:
  canvasctl console
  > goto /canvas
  > Add two nodes to the canvas and connect them`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.NewApp(bootstrap.RunConsole)
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()

			return nil
		},
	}
}
