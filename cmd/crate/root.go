package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/crate/internal/output"
	"github.com/mmcdole/crate/internal/tui"
)

type rootOptions struct {
	configPath string
	format     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "crate",
		Short: "Keep an album library with cover art",
		Long: `crate manages an ordered album library. Deletions can be undone, and
cover art is fetched once and cached on disk.

Run without a command in a terminal to open the browser.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := output.ParseFormat(opts.format)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return runList(cmd, opts, "")
			}
			return withApp(opts, func(a *app) error {
				return runBrowser(a)
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/crate/config.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.format, "output", "o", "", "output format: table, json or yaml")

	cmd.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newAddCmd(opts),
		newDeleteCmd(opts),
		newUndoCmd(opts),
		newSelectCmd(opts),
		newSearchCmd(opts),
		newCoverCmd(opts),
		newPrefetchCmd(opts),
	)
	return cmd
}

// withApp opens the stack, runs fn and closes the stack.
func withApp(opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(opts.configPath)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func runBrowser(a *app) error {
	model := tui.NewModel(a.svc, a.covers, a.logger)

	p := tea.NewProgram(model, tea.WithAltScreen())

	a.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// render writes data in the requested or detected format.
func render(cmd *cobra.Command, opts *rootOptions, data any) error {
	format, _ := output.ParseFormat(opts.format)
	return output.NewFormatter(output.DetectFormat(format)).Format(cmd.OutOrStdout(), data)
}
