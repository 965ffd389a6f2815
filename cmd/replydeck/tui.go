package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/replydeck/internal/app"
	"github.com/nhle/replydeck/internal/logging"
)

func tuiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the notification dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := logging.SetupFile(g.cfg.Log)
			if err != nil {
				return err
			}
			defer f.Close()

			p := tea.NewProgram(app.New(g.cfg, g.configPath), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}
