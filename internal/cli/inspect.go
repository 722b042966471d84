package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/store"
)

// inspectReport is the serializable view of one cache database.
type inspectReport struct {
	Path              string `json:"path"`
	Cached            bool   `json:"cached"`
	SchemaFingerprint string `json:"schema_fingerprint,omitempty"`
	DependencyKey     string `json:"dependency_key,omitempty"`
	ActiveGeneration  int64  `json:"active_generation,omitempty"`
	ActiveRows        int64  `json:"active_rows"`
	Generations       int64  `json:"generations"`
	Discarded         int64  `json:"discarded"`
}

// NewInspectCommand creates the inspect subcommand.
func NewInspectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <cache.db>",
		Short: "Show the metadata and generation state of a cache database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspect(cmd, args[0])
			if err != nil {
				return err
			}
			return writeReport(cmd, opts, report)
		},
	}
}

func inspect(cmd *cobra.Command, path string) (inspectReport, error) {
	s, err := store.Open(path)
	if err != nil {
		return inspectReport{}, fmt.Errorf("opening cache: %w", err)
	}
	defer s.Close()

	info, err := s.ReadInfo(cmd.Context())
	if err != nil {
		return inspectReport{}, fmt.Errorf("reading cache info: %w", err)
	}

	report := inspectReport{
		Path:        path,
		Cached:      info.Entry != nil,
		ActiveRows:  info.ActiveRows,
		Generations: info.Generations,
		Discarded:   info.Discarded,
	}
	if info.Entry != nil {
		report.SchemaFingerprint = info.Entry.SchemaFingerprint
		report.DependencyKey = info.Entry.DependencyKey
		report.ActiveGeneration = info.Entry.GenerationID
	}
	return report, nil
}

func writeReport(cmd *cobra.Command, opts *RootOptions, report inspectReport) error {
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Cache: %s\n", report.Path)
	if !report.Cached {
		fmt.Fprintln(out, "No committed generation.")
		return nil
	}
	fmt.Fprintf(out, "  schema fingerprint: %s\n", report.SchemaFingerprint)
	fmt.Fprintf(out, "  dependency key:     %s\n", report.DependencyKey)
	fmt.Fprintf(out, "  active generation:  %d (%d rows)\n", report.ActiveGeneration, report.ActiveRows)
	fmt.Fprintf(out, "  generations:        %d (%d discarded)\n", report.Generations, report.Discarded)
	return nil
}
