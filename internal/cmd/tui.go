package cmd

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/balaclava-guy/hyper-recovery/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal client for a running daemon",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, _ []string) error {
	model := tui.New(socketPathFlag(cmd))
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
