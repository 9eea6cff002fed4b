package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/dataset"
)

var (
	seedFrom  string
	seedForce bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a JSON dataset into the SQLite database",
	Long: `Copies {"stores": [...], "malls": [...]} from --from into DATABASE_URL.
An already seeded database is left alone unless --force is given.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFrom, "from", "", "JSON dataset file (required)")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Replace existing data")
	_ = seedCmd.MarkFlagRequired("from")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := dataset.Open(ctx, cfg.DatabaseURL, logger.Named("dataset"))
	if err != nil {
		return err
	}
	defer db.Close()

	skipped, err := dataset.Seed(ctx, db, dataset.FileProvider{Path: seedFrom}, seedForce)
	if err != nil {
		return err
	}
	if skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "database already seeded; use --force to replace")
		return nil
	}
	stores, malls, err := db.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d stores, %d malls\n", stores, malls)
	return nil
}
