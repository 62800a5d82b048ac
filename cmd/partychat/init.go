package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var initSession string

func init() {
	initCmd.Flags().StringVar(&initSession, "session", "", "session cookie value copied from a logged-in browser")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <server-url> <username>",
	Short: "Store server and identity in ~/.partychat/config.toml",
	Long:  "Initialize the PartyChat CLI by storing the server URL, your username and optionally a session cookie.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, username := strings.TrimRight(args[0], "/"), strings.TrimSpace(args[1])
		if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
			return fmt.Errorf("server url must start with http:// or https://")
		}
		if username == "" {
			return fmt.Errorf("username must not be empty")
		}

		cfg, err := readConfigFile()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg.Default.ServerURL = serverURL
		cfg.Default.Username = username
		if initSession != "" {
			cfg.Default.Session = initSession
		}
		if cfg.Default.Env == "" {
			cfg.Default.Env = "local"
		}
		if cfg.Storage.Backend == "" {
			cfg.Storage.Backend = "sqlite"
		}

		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		path, _ := configPath()
		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}
