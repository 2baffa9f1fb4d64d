package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mirror status for the configured account",
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildEnv()
		if err != nil {
			fail("%v", err)
		}

		fmt.Printf("Account:  %s\n", env.email)
		fmt.Printf("Server:   %s\n", env.cfg.ServerURL)
		if env.cfg.UsePostgres() {
			fmt.Println("Mirror:   postgres")
		} else {
			dbPath := env.cfg.DatabasePath(env.email)
			fmt.Printf("Mirror:   %s\n", dbPath)
			if info, err := os.Stat(dbPath); err == nil {
				fmt.Printf("Size:     %.1f MB\n", float64(info.Size())/(1024*1024))
			} else {
				fmt.Println("Size:     not initialized, run 'photomirror sync'")
				return
			}
		}

		cursor, err := env.store.ReadCursor(cmd.Context())
		if err != nil {
			fail("failed to read sync state: %v", err)
		}
		count, err := env.store.GetCount(cmd.Context())
		if err != nil {
			fail("failed to read mirror: %v", err)
		}

		fmt.Printf("Items:    %d\n", count)
		if cursor.InitComplete {
			fmt.Println("State:    initialized")
		} else if cursor.PageToken != "" || cursor.StateToken != "" {
			fmt.Println("State:    initialization interrupted, run 'photomirror sync' to resume")
		} else {
			fmt.Println("State:    never synced")
		}
	},
}
