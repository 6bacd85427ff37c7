// Package cmd implements the legiurls command line.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pfczx/legiurls/internal/canonical"
	"github.com/pfczx/legiurls/internal/config"
	"github.com/pfczx/legiurls/internal/fetcher"
	"github.com/pfczx/legiurls/internal/logger"
)

// CLI holds the command tree and the dependencies built before each command.
type CLI struct {
	rootCmd *cobra.Command
	cfgFile string
	debug   bool

	cfg       *config.Config
	log       logger.Interface
	fetcher   *fetcher.Fetcher
	canonical *canonical.Canonicalizer

	// fetchOpts lets tests swap the HTTP client.
	fetchOpts []fetcher.Option
}

// New builds the command tree.
func New(fetchOpts ...fetcher.Option) *CLI {
	c := &CLI{fetchOpts: fetchOpts}

	c.rootCmd = &cobra.Command{
		Use:           "legiurls",
		Short:         "Canonicalize links to French legislative documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	flags.BoolVar(&c.debug, "debug", false, "log cache hits, misses and rewrite hops")
	flags.Bool("cache", false, "cache HTTP responses on disk")
	flags.String("cache-dir", "", "cache directory")

	c.rootCmd.AddCommand(c.newCanonicalizeCmd())
	c.rootCmd.AddCommand(c.newFetchCmd())
	c.rootCmd.AddCommand(c.newBatchCmd())
	c.rootCmd.AddCommand(c.newCacheCmd())
	return c
}

func (c *CLI) setup(cmd *cobra.Command) error {
	v := config.NewViper(c.cfgFile)
	if err := v.BindPFlag("cache.enabled", cmd.Flags().Lookup("cache")); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("cache-dir"); f != nil && f.Changed {
		v.Set("cache.dir", f.Value.String())
	}
	if c.debug {
		v.Set("log.level", "debug")
	}

	cfg, err := config.Load(v, c.cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}

	opts := []fetcher.Option{fetcher.WithLogger(log.With("component", "fetcher"))}
	if store := cfg.CacheStore(); store != nil {
		opts = append(opts, fetcher.WithCache(store))
	}
	opts = append(opts, c.fetchOpts...)

	c.cfg = cfg
	c.log = log
	c.fetcher = fetcher.New(cfg.FetcherConfig(), opts...)
	c.canonical = canonical.New(c.fetcher,
		canonical.WithLogger(log.With("component", "canonical")),
		canonical.WithMaxHops(cfg.Canonical.MaxHops),
	)
	return nil
}

// Execute runs the command line with ctx.
func (c *CLI) Execute(ctx context.Context) error {
	return c.rootCmd.ExecuteContext(ctx)
}

// SetArgs sets the arguments. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output, error and input streams. Used for testing.
func (c *CLI) SetOutput(out, errOut io.Writer, in io.Reader) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
	c.rootCmd.SetIn(in)
}

func (c *CLI) printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
