package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/photomirror/client/internal/models"
	"github.com/photomirror/client/internal/services"
)

var uploadFlags struct {
	threads    int
	force      bool
	useQuota   bool
	saver      bool
	recursive  bool
	deleteHost bool
	album      string
	filter     string
	exclude    bool
	regex      bool
	ignoreCase bool
	matchPath  bool
}

var uploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload local media files or directories",
	Long: `Upload media files to the remote library.

Each file is hashed first; files the remote already holds are linked
without transferring any bytes. Failures are per file: one bad file
never aborts the rest of the batch.

Use --album to place uploads in a collection afterwards. The special
name AUTO creates one collection per parent directory.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildEnv()
		if err != nil {
			fail("%v", err)
		}

		threads := uploadFlags.threads
		if threads == 0 {
			threads = env.cfg.Upload.Threads
		}

		service := services.NewUploadService(env.client, services.NewHashService(), services.NewEXIFService())
		uploaded, err := service.Upload(cmd.Context(), services.NewTarget(args...), services.UploadOptions{
			Threads:        threads,
			ForceUpload:    uploadFlags.force,
			UseQuota:       uploadFlags.useQuota,
			Saver:          uploadFlags.saver,
			Recursive:      uploadFlags.recursive,
			DeleteFromHost: uploadFlags.deleteHost,
			Filter: services.FilterOptions{
				Expression: uploadFlags.filter,
				Exclude:    uploadFlags.exclude,
				Regex:      uploadFlags.regex,
				IgnoreCase: uploadFlags.ignoreCase,
				MatchPath:  uploadFlags.matchPath,
			},
			Progress: &consoleProgress{out: os.Stdout},
		})
		if err != nil {
			fail("%v", err)
		}

		paths := make([]string, 0, len(uploaded))
		for path := range uploaded {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Printf("%s  %s\n", uploaded[path], path)
		}
		fmt.Printf("Uploaded %d files\n", len(uploaded))

		if uploadFlags.album != "" && len(uploaded) > 0 {
			collections := services.NewCollectionService(env.client)
			created, err := collections.Organize(cmd.Context(), uploaded, uploadFlags.album)
			if err != nil {
				fail("failed to organize collections: %v", err)
			}
			fmt.Printf("Organized into %d collections\n", len(created))
		}
	},
}

func init() {
	uploadCmd.Flags().IntVarP(&uploadFlags.threads, "threads", "t", 0, "number of concurrent uploads (default from config)")
	uploadCmd.Flags().BoolVar(&uploadFlags.force, "force", false, "upload even when the remote already holds the hash")
	uploadCmd.Flags().BoolVar(&uploadFlags.useQuota, "use-quota", false, "count uploads against storage quota")
	uploadCmd.Flags().BoolVar(&uploadFlags.saver, "saver", false, "upload in storage saver quality")
	uploadCmd.Flags().BoolVarP(&uploadFlags.recursive, "recursive", "r", false, "descend into subdirectories")
	uploadCmd.Flags().BoolVar(&uploadFlags.deleteHost, "delete-from-host", false, "delete local files after successful upload")
	uploadCmd.Flags().StringVar(&uploadFlags.album, "album", "", "collection to place uploads in (AUTO groups by directory)")
	uploadCmd.Flags().StringVar(&uploadFlags.filter, "match", "", "only upload files matching this expression")
	uploadCmd.Flags().BoolVar(&uploadFlags.exclude, "exclude", false, "invert the match expression")
	uploadCmd.Flags().BoolVar(&uploadFlags.regex, "regex", false, "treat the match expression as a regular expression")
	uploadCmd.Flags().BoolVar(&uploadFlags.ignoreCase, "ignore-case", false, "match case-insensitively")
	uploadCmd.Flags().BoolVar(&uploadFlags.matchPath, "match-path", false, "match against the full path instead of the file name")
}

// consoleProgress prints task transitions without any terminal control
// sequences, so piped output stays readable
type consoleProgress struct {
	out *os.File
}

func (p *consoleProgress) TaskStatus(task *models.UploadTask) {
	switch task.Status {
	case models.TaskDone:
		fmt.Fprintf(p.out, "%s: done\n", task.LocalPath)
	case models.TaskFailed:
		fmt.Fprintf(p.out, "%s: failed: %v\n", task.LocalPath, task.Err)
	}
}

func (p *consoleProgress) TaskBytes(task *models.UploadTask, done, total int64) {}
