package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfczx/legiurls/internal/batch"
	"github.com/pfczx/legiurls/internal/linkstore"
	"github.com/pfczx/legiurls/internal/urllist"
)

func (c *CLI) newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Canonicalize a URL list file and record the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			db, _ := cmd.Flags().GetString("db")
			parallel, _ := cmd.Flags().GetBool("parallel")
			workers, _ := cmd.Flags().GetInt("workers")
			if in == "" {
				return errors.New("--in is required")
			}
			if db == "" {
				db = c.cfg.DB.Path
			}
			if workers <= 0 {
				workers = c.cfg.Batch.Workers
			}

			urls, err := urllist.Load(in)
			if err != nil {
				return err
			}

			store, err := linkstore.Open(db)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			runID := store.NewRun()
			log := c.log.With("run_id", runID)

			var canonicals []string
			failed := 0
			for res := range batch.Run(ctx, c.canonical, urls, parallel, workers, log) {
				link := linkstore.Link{RunID: runID, Raw: res.Raw, Canonical: res.Canonical}
				if res.Err != nil {
					link.Error = res.Err.Error()
					failed++
				} else {
					canonicals = append(canonicals, res.Canonical)
				}
				if err := store.Save(ctx, link); err != nil {
					return err
				}
			}

			if out != "" {
				if err := urllist.Save(out, canonicals); err != nil {
					return err
				}
			}

			c.printf(cmd, "run %s: %d urls, %d failed\n", runID, len(urls), failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d urls failed", failed, len(urls))
			}
			return nil
		},
	}

	cmd.Flags().String("in", "", "file with one URL per line")
	cmd.Flags().String("out", "", "file receiving the canonical URLs")
	cmd.Flags().String("db", "", "SQLite database recording the run (default from config)")
	cmd.Flags().Bool("parallel", false, "canonicalize URLs concurrently")
	cmd.Flags().Int("workers", 0, "concurrent workers with --parallel (default from config)")
	return cmd
}
