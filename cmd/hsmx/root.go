package main

import (
	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/config"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configFile string
	policy     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "hsmx",
		Short:         "hsmx drives hierarchical state machines under pluggable execution policies",
		Long:          `hsmx runs the bundled reference charts with the sync, async, observed or realtime policy and exports their structure as DOT, JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML configuration file overlaid on HSMX_ environment variables")
	pf.StringVar(&opts.policy, "policy", "", "execution policy: sync, async, observed or realtime")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newRunCmd(opts),
		newGraphCmd(),
		newDemosCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration and applies the flags the user set.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Policy = o.policy
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	return cfg, cfg.Validate()
}
