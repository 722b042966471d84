package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear subcommand. Clearing removes whole
// database files; there is nothing to preserve inside a deleted target.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <dir>",
		Short: "Delete all cache databases under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := cacheFiles(args[0])
			if err != nil {
				return err
			}
			removed := 0
			for _, p := range paths {
				// WAL sidecars go with the database.
				for _, f := range []string{p, p + "-wal", p + "-shm"} {
					if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
						return fmt.Errorf("removing %s: %w", f, err)
					}
				}
				removed++
				if opts.Verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache database(s).\n", removed)
			return nil
		},
	}
}

// cacheFiles lists the cache databases directly under dir.
func cacheFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return paths, nil
}
