package worker

// reconcile_cron.go
// The orchestrators mark every (farm, material) pair dirty in a Redis set
// before running its ledger recalculation and recipe cascade, and clear it
// afterwards. A crash between the source-record write and the end of the
// cascade leaves the pair in the set; this cron re-derives it on the next
// tick. Recalculation is idempotent, so sweeping an already-consistent pair
// is harmless.

import (
	"context"
	"strings"
	"time"

	"feedstock/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const dirtySetKey = "ledger:dirty"

// DirtyTracker is the redis-backed service.RecalcTracker implementation.
type DirtyTracker struct {
	rdb *redis.Client
}

func NewDirtyTracker(rdb *redis.Client) *DirtyTracker {
	return &DirtyTracker{rdb: rdb}
}

func (t *DirtyTracker) MarkDirty(ctx context.Context, farmID, materialID uuid.UUID) {
	if err := t.rdb.SAdd(ctx, dirtySetKey, member(farmID, materialID)).Err(); err != nil {
		log.Warn().Err(err).Msg("dirty_tracker: mark failed")
	}
}

func (t *DirtyTracker) ClearDirty(ctx context.Context, farmID, materialID uuid.UUID) {
	if err := t.rdb.SRem(ctx, dirtySetKey, member(farmID, materialID)).Err(); err != nil {
		log.Warn().Err(err).Msg("dirty_tracker: clear failed")
	}
}

func member(farmID, materialID uuid.UUID) string {
	return farmID.String() + "|" + materialID.String()
}

// ReconcileCronConfig holds the sweep dependencies.
type ReconcileCronConfig struct {
	RDB      *redis.Client
	Ledger   service.LedgerService
	Recipes  service.RecipeService
	Interval time.Duration
}

// StartReconcileCron launches the background sweep goroutine. It respects the
// context for graceful shutdown.
func StartReconcileCron(ctx context.Context, cfg ReconcileCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("reconcile_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reconcile_cron: shutting down")
				return
			case <-ticker.C:
				sweep(ctx, cfg)
			}
		}
	}()
}

func sweep(ctx context.Context, cfg ReconcileCronConfig) {
	members, err := cfg.RDB.SMembers(ctx, dirtySetKey).Result()
	if err != nil {
		log.Error().Err(err).Msg("reconcile_cron: failed to read dirty set")
		return
	}
	if len(members) == 0 {
		return
	}
	log.Info().Int("pairs", len(members)).Msg("reconcile_cron: sweeping stale ledger pairs")

	for _, m := range members {
		parts := strings.SplitN(m, "|", 2)
		if len(parts) != 2 {
			_ = cfg.RDB.SRem(ctx, dirtySetKey, m).Err()
			continue
		}
		farmID, err1 := uuid.Parse(parts[0])
		materialID, err2 := uuid.Parse(parts[1])
		if err1 != nil || err2 != nil {
			_ = cfg.RDB.SRem(ctx, dirtySetKey, m).Err()
			continue
		}

		if _, err := cfg.Ledger.Recalculate(ctx, farmID, materialID); err != nil {
			log.Warn().Err(err).Str("pair", m).Msg("reconcile_cron: recalculation failed, will retry next tick")
			continue
		}
		if err := cfg.Recipes.RecalculateRecipesUsing(ctx, materialID); err != nil {
			log.Warn().Err(err).Str("pair", m).Msg("reconcile_cron: recipe cascade failed, will retry next tick")
			continue
		}
		_ = cfg.RDB.SRem(ctx, dirtySetKey, m).Err()
	}
}
