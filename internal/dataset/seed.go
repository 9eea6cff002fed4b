package dataset

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Seed copies src into dst. If dst already holds data and force is false,
// seeding is skipped and skipped is true.
func Seed(ctx context.Context, dst *SQLStore, src Provider, force bool) (skipped bool, err error) {
	stores, malls, err := dst.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("checking existing data: %w", err)
	}
	if (stores > 0 || malls > 0) && !force {
		dst.logger.Info("dataset already seeded, skipping",
			zap.Int("stores", stores), zap.Int("malls", malls))
		return true, nil
	}

	d, err := src.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading seed data: %w", err)
	}
	if err := dst.Replace(ctx, d); err != nil {
		return false, fmt.Errorf("seeding: %w", err)
	}
	return false, nil
}
