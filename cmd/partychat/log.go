package main

import (
	"fmt"

	partychat "github.com/partychat/partychat-go"
	"github.com/spf13/cobra"
)

var logLimit int

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 50, "number of most recent messages to print (0 for all)")
	rootCmd.AddCommand(logCmd)
}

var logCmd = &cobra.Command{
	Use:   "log <conversation-key>",
	Short: "Print a stored conversation log",
	Long:  "Print the locally stored log of one conversation.\nKeys look like room:General or private:42.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := partychat.ParseKey(args[0])
		if err != nil {
			return err
		}

		cfg := mustConfig()
		storage, closer, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer closer.Close()

		logger := newLogger(cfg.Default.Env, cfg.Default.LogLevel)
		logs := partychat.NewPersister(storage, cfg.Default.Username, logger).HydrateMessages()
		messages := logs[key]
		if len(messages) == 0 {
			fmt.Printf("No stored messages for %s.\n", key)
			return nil
		}
		if logLimit > 0 && len(messages) > logLimit {
			messages = messages[len(messages)-logLimit:]
		}

		fmt.Println(formatHeader(key.String()))
		for _, m := range messages {
			fmt.Println(formatMessage(m))
		}
		return nil
	},
}
