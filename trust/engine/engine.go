package engine

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/cachestore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/countstore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/hasher"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// Engine is the account-risk service: it ingests behavioral signals, keeps
// the per-user risk score and restriction state machine, aggregates content
// reports, and runs the appeal and identity-verification workflows.
//
// It is a stateless service object over an injected store handle; all
// per-user state lives in database rows keyed by user id.
type Engine struct {
	Logger   *slog.Logger
	DB       *gorm.DB
	Hasher   *hasher.Hasher
	Counters countstore.CountStore
	Cache    cachestore.CacheStore
	// optional admin webhook for automatic-restriction alerts
	Notifier *WebhookNotifier
}

const accessCacheName = "access"

// MigrateDatabase creates or updates the engine's tables.
func (eng *Engine) MigrateDatabase() error {
	return eng.DB.AutoMigrate(models.All()...)
}

// lockUserStatus takes the per-user row lock which serializes mutations of
// aggregate state for one user (report thresholds, restriction activation).
// The status row is created first if the user has never been seen.
func lockUserStatus(tx *gorm.DB, userID string, now time.Time) (*models.UserSecurityStatus, error) {
	seed := models.UserSecurityStatus{
		UserID:    userID,
		RiskLevel: models.RiskLevelLow,
		UpdatedAt: now,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var status models.UserSecurityStatus
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// upsertStatus writes the given columns of the status projection, keyed on
// user_id. The projection is a cache over event/restriction history, never
// the source of truth.
func upsertStatus(tx *gorm.DB, status *models.UserSecurityStatus, cols []string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(append(cols, "updated_at")),
	}).Create(status).Error
}

// purgeAccessCache drops the cached access-check projection for a user.
// Called after every mutation that can change permissions.
func (eng *Engine) purgeAccessCache(ctx context.Context, userID string) {
	if eng.Cache == nil {
		return
	}
	if err := eng.Cache.Purge(ctx, accessCacheName, userID); err != nil {
		eng.Logger.Error("failed to purge access cache", "uid", userID, "err", err)
	}
}

// incrementCounter bumps an operational velocity counter, best-effort.
func (eng *Engine) incrementCounter(ctx context.Context, name, val string) {
	if eng.Counters == nil {
		return
	}
	if err := eng.Counters.Increment(ctx, name, val); err != nil {
		eng.Logger.Error("failed to increment counter", "name", name, "err", err)
	}
}
