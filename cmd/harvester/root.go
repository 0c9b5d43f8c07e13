package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/config"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/logging"
)

type cliOptions struct {
	configFiles []string
	storePath   string
	useStore    bool
	development bool
	logLevel    string
	pretty      bool

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{
		configFiles: []string{"config.toml", ".secrets.toml"},
		logger:      logging.Nop(),
	}

	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Harvest Galaxy tool and workflow metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&opts.configFiles, "config", opts.configFiles, "TOML config files, later files override earlier ones")
	flags.StringVar(&opts.storePath, "store", "", "crawl record database (defaults to STORE_PATH)")
	flags.BoolVar(&opts.useStore, "records", false, "persist crawl records so interrupted runs resume")
	flags.BoolVar(&opts.development, "dev", false, "colored debug logging")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		newRepoCmd(opts),
		newFolderCmd(opts),
		newToolCmd(opts),
		newWorkflowCmd(opts),
		newHubCmd(opts),
		newSeedCmd(opts),
		newPendingCmd(opts),
		newLocalCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// load reads configuration and builds the logger; flags override both
func (o *cliOptions) load() error {
	cfg, err := config.Load(o.configFiles...)
	if err != nil {
		return err
	}
	if o.storePath != "" {
		cfg.Store.Path = o.storePath
	}
	if o.development {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	o.cfg = cfg

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}
