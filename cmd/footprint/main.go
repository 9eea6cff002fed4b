// Command footprint serves the store footprint dashboard and offers a few
// offline views of the same data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

var rootCmd = &cobra.Command{
	Use:   "footprint",
	Short: "Retail footprint dashboard for two competing brands",
	Long: `footprint serves the filter-and-classification engine behind the store
footprint dashboard: store filtering, region cascades, mall classification
and competition ranking.

Data comes from a JSON file (--data or FOOTPRINT_DATA_FILE) or from the SQLite
database (DATABASE_URL), which "footprint seed" fills.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		config.Level = level
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "CUE or JSON config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(regionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
