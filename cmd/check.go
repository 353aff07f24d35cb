package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"postfetch/dedup"
	"postfetch/utils"
)

var checkCmd = &cobra.Command{
	Use:   "check <url>...",
	Short: "Show whether source URLs were already downloaded",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		ledger, err := dedup.Open(ctx, config)
		if err != nil {
			return err
		}
		defer ledger.Close()

		out := cmd.OutOrStdout()
		for _, url := range args {
			path, err := ledger.Locate(ctx, url)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(out, "%s: not downloaded\n", url)
				continue
			}
			if !utils.FileExists(path) {
				fmt.Fprintf(out, "%s: %s (missing on disk)\n", url, path)
				continue
			}
			size, err := utils.GetFileSize(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s (%s)\n", url, path, utils.FormatBytes(size))
		}

		if counter, ok := ledger.(interface {
			Count(ctx context.Context) (int, error)
		}); ok {
			count, err := counter.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Ledger holds %d downloads\n", count)
		}
		return nil
	},
}
