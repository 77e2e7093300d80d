package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/postgres"
)

func newResetCmd(opts *rootOptions) *cobra.Command {
	var (
		yes    bool
		whatIf bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove everything inside the results directory",
		Long: `Remove every file and directory inside the configured results directory.
The directory itself is kept. When Postgres status recording is enabled the
document_status table is cleared as well.

Without --yes the command asks for confirmation. --whatif only lists what
would be removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := opts.cfg.Store.ResultsDir
			out := cmd.OutOrStdout()

			entries, err := indexer.ListResults(dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "%s is already empty\n", dir)
				return nil
			}
			for _, e := range entries {
				kind := "file"
				if e.IsDir {
					kind = "dir "
				}
				fmt.Fprintf(out, "  %s  %s\n", kind, e.Name)
			}
			if whatIf {
				fmt.Fprintf(out, "would remove %d entries from %s\n", len(entries), dir)
				return nil
			}
			if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("remove %d entries from %s?", len(entries), dir)) {
				fmt.Fprintln(out, "aborted")
				return nil
			}

			result, err := indexer.Reset(dir, false)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %d files and %d directories\n", result.RemovedFiles, result.RemovedDirs)
			for name, reason := range result.Failures {
				fmt.Fprintf(out, "could not remove %s: %s\n", name, reason)
			}

			if opts.cfg.Postgres.Enabled {
				db, err := postgres.New(cmd.Context(), opts.cfg.Postgres)
				if err != nil {
					slog.Warn("document status not cleared", "error", err)
					return nil
				}
				defer db.Close()
				recorder, err := indexer.NewPostgresRecorder(cmd.Context(), db)
				if err != nil {
					return err
				}
				n, err := recorder.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "cleared %d document status rows\n", n)
			}
			if len(result.Failures) > 0 {
				return fmt.Errorf("%d entries could not be removed", len(result.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&whatIf, "whatif", false, "list what would be removed and exit")
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
