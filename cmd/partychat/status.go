package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	partychat "github.com/partychat/partychat-go"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and local store summary",
	Long:  "Display the current configuration and what the local store holds for the configured user.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Print config summary.
		fmt.Println("Configuration:")
		fmt.Printf("  Server:   %s\n", valueOrDefault(cfg.Default.ServerURL, "(not set)"))
		fmt.Printf("  Username: %s\n", valueOrDefault(cfg.Default.Username, "(not set)"))
		if cfg.Default.Session != "" {
			fmt.Printf("  Session:  %s\n", maskKey(cfg.Default.Session))
		} else {
			fmt.Println("  Session:  (not set)")
		}
		fmt.Printf("  Env:      %s\n", valueOrDefault(cfg.Default.Env, "(not set)"))
		fmt.Printf("  Storage:  %s\n", valueOrDefault(cfg.Storage.Backend, "sqlite"))

		if cfg.Default.Username == "" {
			return nil
		}

		storage, closer, err := openStorage(cfg)
		if err != nil {
			fmt.Printf("\n  Error opening storage: %v\n", err)
			return nil
		}
		defer closer.Close()

		persister := partychat.NewPersister(storage, cfg.Default.Username, nil)
		logs := persister.HydrateMessages()
		threads := partychat.NewDirectory(persister.HydrateThreads())

		fmt.Println()
		fmt.Println("Local store:")
		keys := make([]partychat.ConversationKey, 0, len(logs))
		total := 0
		for k, v := range logs {
			keys = append(keys, k)
			total += len(v)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		fmt.Printf("  Conversations: %d\n", len(keys))
		fmt.Printf("  Messages:      %s\n", humanize.Comma(int64(total)))
		fmt.Printf("  Threads:       %d (%d unread)\n", threads.Len(), threads.TotalUnread())
		for _, k := range keys {
			fmt.Printf("    %-28s %s\n", k, humanize.Comma(int64(len(logs[k]))))
		}

		if lister, ok := storage.(partychat.KeyLister); ok {
			records, err := lister.Keys("partychat:")
			if err == nil {
				fmt.Printf("  Records:       %d\n", len(records))
			}
		}
		return nil
	},
}

// maskKey shows the first 4 and last 4 characters of a secret.
func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
