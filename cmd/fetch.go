package cmd

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "GET a URL through the retrying, caching fetcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := cmd.Flags().GetBool("body")

			resp, err := c.fetcher.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			c.printf(cmd, "status: %d\nurl: %s\nencoding: %s\n", resp.StatusCode, resp.URL, resp.Encoding)
			if body {
				c.printf(cmd, "\n%s\n", resp.Text())
			}
			return nil
		},
	}
	cmd.Flags().Bool("body", false, "print the decoded body")
	return cmd
}
