package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/photomirror/client/internal/services"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the local mirror with the remote library",
	Long: `Bring the local mirror database up to date with the remote library.

The first run walks the whole library and can take a while; later runs
only replay the changes since the previous sync. An interrupted run
resumes where it stopped.`,
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildEnv()
		if err != nil {
			fail("%v", err)
		}

		service := services.NewSyncService(env.store, env.client)
		service.SetProgress(services.SyncProgressFunc(func(totalUpdated, totalDeleted int) {
			fmt.Printf("\r%d updated, %d deleted", totalUpdated, totalDeleted)
		}))

		start := time.Now()
		if err := service.Sync(cmd.Context()); err != nil {
			fmt.Println()
			fail("sync failed: %v", err)
		}
		fmt.Printf("\nSync complete in %v\n", time.Since(start).Round(time.Millisecond))

		count, err := env.store.GetCount(cmd.Context())
		if err == nil {
			fmt.Printf("Mirror holds %d items\n", count)
		}
	},
}
