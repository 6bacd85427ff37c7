package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/pfczx/legiurls/internal/urllist"
)

func (c *CLI) newCanonicalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canonicalize [url...]",
		Short: "Print the canonical form of each URL (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if len(urls) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				urls = urllist.Parse(string(data))
			}

			for _, u := range urls {
				canonical, err := c.canonical.Canonicalize(cmd.Context(), u)
				if err != nil {
					return err
				}
				c.printf(cmd, "%s\n", canonical)
			}
			return nil
		},
	}
}
