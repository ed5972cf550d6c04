package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/foldfile/config"
	"github.com/YuminosukeSato/foldfile/convert"
	"github.com/YuminosukeSato/foldfile/pkg/log"
)

var (
	configPath string
	overwrite  bool
	convCfg    *config.Config
)

// convertCmd runs the conversion described by a YAML config
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Run the conversion described by a YAML config",
	Example: `  foldconv convert -c conv.yaml
  foldconv convert -c conv.yaml --overwrite`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// the config file may set logging; flags and env still win
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		convCfg = cfg
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.Logging.Level
		}
		if !cmd.Flags().Changed("log-format") {
			logFormat = cfg.Logging.Format
		}
		return log.Setup(logLevel, logFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := convCfg
		if overwrite {
			cfg.Output.Overwrite = true
		}

		res, err := convert.ConvertFile(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events in %d folds to %s (%v)\n",
			res.NEvents, len(res.FoldSizes), res.Path, res.Duration.Round(1e6))
		for name, n := range res.Truncated {
			if n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  tensor %s: %d events truncated\n", name, n)
			}
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&configPath, "config", "c", "", "conversion config (YAML)")
	convertCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing output file")
	_ = convertCmd.MarkFlagRequired("config")
}
