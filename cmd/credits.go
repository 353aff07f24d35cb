package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"postfetch/imgur"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the remaining imgur API credits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		httpClient, err := newHTTPClient()
		if err != nil {
			return err
		}

		quota := imgur.NewQuotaManager(config, httpClient)
		state, err := quota.CheckCredits(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Remaining credits: %d\n", state.RemainingCredits)
		fmt.Fprintf(out, "Reset at:          %s (in %s)\n",
			state.ResetAt.Local().Format(time.RFC1123), time.Until(state.ResetAt).Round(time.Second))
		if _, ok := quota.FallbackEndpoint(); ok {
			fmt.Fprintln(out, "RapidAPI fallback: configured")
		} else {
			fmt.Fprintln(out, "RapidAPI fallback: not configured")
		}
		return nil
	},
}
