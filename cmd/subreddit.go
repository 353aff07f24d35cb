package cmd

import (
	"github.com/spf13/cobra"

	"postfetch/internal"
	"postfetch/runner"
	"postfetch/source"
)

var (
	listingSort  string
	listingLimit int
	withComments bool
)

var subredditCmd = &cobra.Command{
	Use:   "subreddit <name>",
	Short: "Extract the latest posts of a subreddit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		reddit, err := source.NewRedditSource(config)
		if err != nil {
			return err
		}

		name := args[0]
		posts, err := reddit.SubredditPosts(ctx, name, listingSort, listingLimit, config.DefaultObject(name, internal.ObjectSubreddit))
		if err != nil {
			return err
		}
		internal.LogInfo("Fetched %d posts from r/%s", len(posts), name)

		jobs := runner.PostJobs(posts)
		if withComments {
			for _, post := range posts {
				comments, err := reddit.PostComments(ctx, post)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					internal.LogWarn("Skipping comments of %s: %v", post.ID, err)
					continue
				}
				jobs = append(jobs, runner.CommentJobs(comments)...)
			}
		}

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		return p.run(ctx, jobs)
	},
}

func init() {
	subredditCmd.Flags().StringVar(&listingSort, "sort", source.SortNew, "Listing to read: new or hot")
	subredditCmd.Flags().IntVar(&listingLimit, "limit", 25, "Number of posts to fetch (max 100)")
	subredditCmd.Flags().BoolVar(&withComments, "comments", false, "Also save the text of top-level comments")
}
