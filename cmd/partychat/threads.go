package main

import (
	"context"
	"fmt"
	"time"

	partychat "github.com/partychat/partychat-go"
	"github.com/spf13/cobra"
)

var threadsOffline bool

func init() {
	threadsCmd.Flags().BoolVar(&threadsOffline, "offline", false, "print the stored directory without contacting the server")
	rootCmd.AddCommand(threadsCmd)
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List private conversations",
	Long:  "Fetch the private conversation directory from the server, merge it into the local store and print it, most recent first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustConfig()
		storage, closer, err := openStorage(cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer closer.Close()

		logger := newLogger(cfg.Default.Env, cfg.Default.LogLevel)
		engine := partychat.NewEngine(cfg.Default.Username,
			partychat.WithStorage(storage),
			partychat.WithCollaborators(getClient(cfg).Collaborators()),
			partychat.WithLogger(logger),
		)

		if !threadsOffline {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := engine.HydrateThreads(ctx); err != nil {
				return err
			}
		}

		threads := engine.Threads()
		if len(threads) == 0 {
			fmt.Println("No private conversations.")
			return nil
		}
		fmt.Println(formatHeader(fmt.Sprintf("Private chats (%d unread)", engine.TotalUnread())))
		for _, t := range threads {
			fmt.Println(formatThread(t))
		}
		return nil
	},
}
