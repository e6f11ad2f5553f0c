package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// seedAttempts are the starting rows of boards that would otherwise open
// empty.
var seedAttempts = map[string][]scoreboard.Attempt{
	"beerpong": {{ClientID: "rodri-33", Name: "Rodri", Score: 33}},
}

// Seed submits the starting rows into every configured board that is still
// empty. Idempotent: boards with entries are left alone, and a service
// without a backing store is skipped.
func Seed(ctx context.Context, logger *slog.Logger, svc *scoreboard.Service) error {
	if svc.LocalOnly() {
		return nil
	}
	for _, b := range svc.Boards() {
		attempts, ok := seedAttempts[b.Slug]
		if !ok {
			continue
		}

		entries, err := svc.Ranking(ctx, b.Slug)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			continue
		}

		res, err := svc.Submit(ctx, b.Slug, attempts)
		if err != nil {
			return err
		}
		if res.Failed > 0 {
			return fmt.Errorf("seeding %s: write failed", b.Slug)
		}
		logger.Info("board seeded", "board", b.Slug, "entries", res.Inserted)
	}
	return nil
}
