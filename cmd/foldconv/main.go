// Command foldconv converts event files into fold files and inspects them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/foldfile/pkg/log"
)

var (
	// Global flags
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "foldconv",
	Short: "Convert event files into k-fold HDF5 fold files",
	Long: `foldconv reads columnar event data, normalizes variable-length object
collections into fixed-length tensors, partitions the events into folds and
writes one fold_<i> group per fold plus a meta_data group.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("log-level") {
			if env := os.Getenv("FOLDFILE_LOG_LEVEL"); env != "" {
				logLevel = env
			}
		}
		return log.Setup(logLevel, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json, console)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
