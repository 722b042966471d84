package cli

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/recall/internal/store"
)

// NewGCCommand creates the gc subcommand: reclaim discarded generations
// across every cache database under a directory.
func NewGCCommand(opts *RootOptions) *cobra.Command {
	var parallelism int

	cmd := &cobra.Command{
		Use:   "gc <dir>",
		Short: "Reclaim discarded generations in all cache databases under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := cacheFiles(args[0])
			if err != nil {
				return err
			}

			var reclaimed atomic.Int64
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(parallelism)
			for _, path := range paths {
				g.Go(func() error {
					s, err := store.Open(path)
					if err != nil {
						return fmt.Errorf("opening %s: %w", path, err)
					}
					defer s.Close()
					n, err := s.GC(ctx)
					if err != nil {
						return fmt.Errorf("gc %s: %w", path, err)
					}
					reclaimed.Add(n)
					if opts.Verbose {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: reclaimed %d row(s)\n", path, n)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d row(s) across %d database(s).\n",
				reclaimed.Load(), len(paths))
			return nil
		},
	}

	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "databases processed concurrently")
	return cmd
}
