package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/vector"
)

func newBooleanCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "boolean <query...>",
		Short: "Evaluate a Boolean query (AND, OR, NOT, left to right)",
		Long: `Evaluate a Boolean query against the frequency store.

Operators are AND, OR and NOT, matched case-insensitively and applied
strictly left to right without precedence. Matching identifiers are
printed one per line in lexicographic order.

Examples:
  docsearch boolean agua
  docsearch boolean agua AND NOT sol
  docsearch boolean NOT lua OR sol`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := boolean.Load(opts.cfg.Store.Path)
			if err != nil {
				return err
			}
			ids, err := engine.Evaluate(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(ids)
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print identifiers as a JSON array")
	return cmd
}

func newVectorCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "vector <query...>",
		Short: "Rank documents by TF-IDF cosine similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := vector.Load(opts.cfg.Store.Path)
			if err != nil {
				return err
			}
			results := engine.Search(strings.Join(args, " "), limit)
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(results)
			}
			for i, r := range results {
				fmt.Fprintf(out, "%2d. %s\t%.4f\n", i+1, r.ID, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", vector.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
