package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/voyagen/stalker2m3u/internal/config"
	"github.com/voyagen/stalker2m3u/internal/logging"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "stalker2m3u",
		Short:         "Convert Stalker middleware portals into M3U playlists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML); environment variables are used when empty")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts), newConvertCmd(opts))
	return cmd
}

// loadConfig reads the config file or the environment, then applies the
// log level and configures logging.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logging.Configure(logging.Config{Level: cfg.LogLevel, Output: os.Stderr})
	return cfg, nil
}
