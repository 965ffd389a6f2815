// Command replydeck runs the notification hub server and the terminal
// dashboard that triages its cards.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/replydeck/internal/model"
)

// globals holds state shared by every subcommand.
type globals struct {
	configPath string
	cfg        *model.AppConfig
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "replydeck",
		Short:         "Triage incoming chat notifications and reply from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal; values may come from the shell.
			_ = godotenv.Load()

			cfg, err := model.LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&g.configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")

	cmd.AddCommand(serveCmd(g), tuiCmd(g), configCmd(g))
	return cmd
}
