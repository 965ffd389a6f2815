package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/replydeck/internal/credential"
	"github.com/nhle/replydeck/internal/model"
)

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and stored credentials",
	}
	cmd.AddCommand(configInitCmd(g), configSetKeyCmd(), configDeleteKeyCmd())
	return cmd
}

func configInitCmd(g *globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(g.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", g.configPath)
			}
			if err := model.SaveConfig(g.configPath, g.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", g.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// credentialNames maps the names accepted on the command line to keyring
// keys.
var credentialNames = map[string]string{
	"gemini":   credential.GeminiAPIKey,
	"telegram": credential.TelegramBotToken,
}

func credentialKey(name string) (string, error) {
	key, ok := credentialNames[name]
	if !ok {
		return "", fmt.Errorf("unknown credential %q (want gemini or telegram)", name)
	}
	return key, nil
}

func configSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <gemini|telegram>",
		Short: "Store a credential in the system keyring, read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentialKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", args[0])
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			value := strings.TrimSpace(line)
			if value == "" {
				if err != nil {
					return fmt.Errorf("reading credential: %w", err)
				}
				return errors.New("empty credential")
			}
			if err := credential.Set(key, value); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stored", args[0])
			return nil
		},
	}
}

func configDeleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <gemini|telegram>",
		Short: "Remove a credential from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentialKey(args[0])
			if err != nil {
				return err
			}
			return credential.Delete(key)
		},
	}
}
