package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
)

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	var (
		appendMode bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize every extracted text and write the frequency store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *opts.cfg
			if appendMode {
				cfg.Store.Append = true
			}
			ix, cleanup, err := indexer.FromConfig(cmd.Context(), &cfg, metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := ix.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintf(out, "normalized %d documents (%d failed, %d skipped)\n",
				len(report.Normalized), len(report.Failed), len(report.Skipped))
			fmt.Fprintf(out, "store %s: %d documents, %d terms\n", report.StorePath, report.Documents, report.Terms)
			for _, id := range report.Failed {
				fmt.Fprintf(out, "failed: %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendMode, "append", false, "merge into the existing store instead of replacing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON")
	return cmd
}
