package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"postfetch/internal"
	"postfetch/runner"
	"postfetch/source"
)

var (
	objectName string
	objectKind string
)

var postsCmd = &cobra.Command{
	Use:   "posts <file>",
	Short: "Extract posts listed in a JSON or NDJSON file",
	Long: `Extract the content of every post in a file. The file holds a JSON array of
posts or one post object per line. Each post needs an id and a url, self posts
need the text instead of the url.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseObjectKind(objectKind)
		if err != nil {
			return err
		}

		posts, err := source.LoadPosts(args[0], config.DefaultObject(objectName, kind))
		if err != nil {
			return err
		}
		internal.LogInfo("Loaded %d posts from %s", len(posts), args[0])

		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		return p.run(ctx, runner.PostJobs(posts))
	},
}

func parseObjectKind(kind string) (internal.ObjectKind, error) {
	switch internal.ObjectKind(kind) {
	case internal.ObjectUser, internal.ObjectSubreddit:
		return internal.ObjectKind(kind), nil
	}
	return "", internal.NewValidationErrorWithValue("kind", fmt.Sprintf("must be %s or %s", internal.ObjectUser, internal.ObjectSubreddit), kind)
}

func init() {
	postsCmd.Flags().StringVar(&objectName, "object", "", "User or subreddit the posts are saved under (default: the post's subreddit)")
	postsCmd.Flags().StringVar(&objectKind, "kind", string(internal.ObjectSubreddit), "Kind of --object: user or subreddit")
}
