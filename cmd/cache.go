package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pfczx/legiurls/internal/cache"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the HTTP response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := cache.New(c.cfg.Cache.Dir)
			if err := store.Clear(); err != nil {
				return err
			}
			c.log.Info("cache cleared", "dir", store.Dir())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "key <url>",
		Short: "Print the cache file a URL maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.New(c.cfg.Cache.Dir)
			c.printf(cmd, "%s/%s.json\n", store.Dir(), cache.Key(args[0]))
			return nil
		},
	})

	return cmd
}
