package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weekcal/internal/api"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Print a read-only link to your calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		if err := app.sess.Ensure(ctx, app.client); err != nil {
			return err
		}
		link, err := app.client.ShareLink(ctx, app.sess.Token())
		if err != nil {
			return api.Classify("could not create a share link", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}
