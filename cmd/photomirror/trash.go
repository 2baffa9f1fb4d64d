package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photomirror/client/internal/services"
)

var trashFromFiles bool

var trashCmd = &cobra.Command{
	Use:   "trash <hash-or-file>...",
	Short: "Move remote items to the trash by content hash",
	Long: `Move remote items to the trash.

Arguments are SHA-1 content hashes, hex or base64 encoded. With
--from-files the arguments are local files whose hashes are computed
first, trashing their remote counterparts.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildEnv()
		if err != nil {
			fail("%v", err)
		}

		hashService := services.NewHashService()
		inputs := make([]services.HashInput, 0, len(args))
		if trashFromFiles {
			for _, path := range args {
				digest, _, err := hashService.HashFile(path, nil)
				if err != nil {
					fail("%v", err)
				}
				inputs = append(inputs, services.RawHash(digest))
			}
		} else {
			for _, arg := range args {
				inputs = append(inputs, services.ParseHashString(arg))
			}
		}

		service := services.NewMediaService(env.client, hashService)
		if err := service.Trash(cmd.Context(), inputs); err != nil {
			fail("%v", err)
		}
		fmt.Printf("Moved %d items to trash\n", len(inputs))
	},
}

func init() {
	trashCmd.Flags().BoolVar(&trashFromFiles, "from-files", false, "treat arguments as local files and hash them")
}
