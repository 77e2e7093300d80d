// Package cmd provides the docsearch subcommands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/logger"
)

// rootOptions is shared by every subcommand. cfg is loaded once the flags
// are parsed.
type rootOptions struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

// NewRootCmd creates the docsearch command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Normalize extracted texts and query the frequency store",
		Long: `docsearch builds the term frequency store from extracted document texts
and answers queries against it.

  docsearch normalize                 build the store from the configured texts
  docsearch boolean agua AND NOT sol  Boolean retrieval
  docsearch vector --limit 5 agua sol ranked retrieval (TF-IDF cosine)
  docsearch reset --whatif            list what a reset would remove`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if opts.verbose {
				level = "debug"
			}
			logger.SetupWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/development.yaml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newNormalizeCmd(opts))
	cmd.AddCommand(newBooleanCmd(opts))
	cmd.AddCommand(newVectorCmd(opts))
	cmd.AddCommand(newResetCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
