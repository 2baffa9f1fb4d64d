package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/photomirror/client/internal/services"
)

var resolveFromFile bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <hash-or-file>",
	Short: "Look up the remote media key for a content hash",
	Long: `Look up whether the remote library holds a given content hash.

The argument is a SHA-1 hash, hex or base64 encoded, or a local file
with --from-file. Prints the media key when the remote knows the hash;
exits non-zero when it does not.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildEnv()
		if err != nil {
			fail("%v", err)
		}

		hashService := services.NewHashService()
		var input services.HashInput
		if resolveFromFile {
			digest, _, err := hashService.HashFile(args[0], nil)
			if err != nil {
				fail("%v", err)
			}
			input = services.RawHash(digest)
		} else {
			input = services.ParseHashString(args[0])
		}

		service := services.NewMediaService(env.client, hashService)
		mediaKey, err := service.MediaKeyByHash(cmd.Context(), input)
		if err != nil {
			fail("%v", err)
		}
		if mediaKey == "" {
			fmt.Fprintln(os.Stderr, "Hash not found in remote library")
			os.Exit(1)
		}
		fmt.Println(mediaKey)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveFromFile, "from-file", false, "treat the argument as a local file and hash it")
}
