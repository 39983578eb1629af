package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/byteowlz/mapscrape/internal/config"
	"github.com/byteowlz/mapscrape/pkg/extractor"
)

var classifyCmd = &cobra.Command{
	Use:   "classify URL...",
	Short: "Show which extraction strategy each URL would use",
	Long: `classify validates each URL and prints the bucket it falls into
(youtube, rss or article) without making any network request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rejected := 0
		for _, raw := range args {
			u, err := extractor.Validate(raw)
			if err != nil {
				rejected++
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", raw, err)
				}
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", extractor.Classify(u), raw)
		}
		if rejected > 0 {
			return &exitErr{code: ExitInvalidInput}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var forceConfig bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return exitError(ExitConfigError, "%v", err)
			}
		}

		if _, err := os.Stat(path); err == nil && !forceConfig {
			return exitError(ExitConfigError, "config file %s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().CreateExampleConfig(path); err != nil {
			return exitError(ExitFileIOError, "%v", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Created config file: %s\n", path)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceConfig, "force", "F", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}
