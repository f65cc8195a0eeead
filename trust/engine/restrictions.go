package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

const systemActor = "system"

// AccessStatus is the permission set derived from a user's current
// restriction and verification state.
type AccessStatus struct {
	CanPost              bool                     `json:"canPost"`
	CanBid               bool                     `json:"canBid"`
	CanComment           bool                     `json:"canComment"`
	Restrictions         []models.RestrictionType `json:"restrictions"`
	VerificationRequired bool                     `json:"verificationRequired"`
	RestrictionMessage   string                   `json:"restrictionMessage,omitempty"`
	Appealable           bool                     `json:"appealable"`
}

func knownRestrictionType(t models.RestrictionType) bool {
	switch t {
	case models.RestrictionWarning, models.RestrictionVisibilityLimit,
		models.RestrictionTemp, models.RestrictionVerifyRequired,
		models.RestrictionSuspend, models.RestrictionPermanentBan:
		return true
	}
	return false
}

// ApplyManual creates a new active restriction on behalf of an admin. The
// restriction row and the status projection update commit together.
func (eng *Engine) ApplyManual(ctx context.Context, userID string, rtype models.RestrictionType, reason, appliedBy string, endAt *time.Time) (*models.AccountRestriction, error) {
	if userID == "" {
		return nil, validationErr("userId", "must not be empty")
	}
	if !knownRestrictionType(rtype) {
		return nil, validationErr("restrictionType", "unknown restriction type")
	}
	if reason == "" {
		return nil, validationErr("reason", "must not be empty")
	}
	if appliedBy == "" {
		return nil, validationErr("appliedBy", "must not be empty")
	}

	now := time.Now()
	restriction := models.AccountRestriction{
		UserID:          userID,
		RestrictionType: rtype,
		Reason:          reason,
		StartAt:         now,
		EndAt:           endAt,
		AppliedBy:       appliedBy,
		IsActive:        true,
		CreatedAt:       now,
	}
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUserStatus(tx, userID, now); err != nil {
			return err
		}
		if err := tx.Create(&restriction).Error; err != nil {
			return err
		}
		return recomputeRestrictionStatus(tx, userID, now)
	})
	if err != nil {
		return nil, storageErr(err)
	}
	restrictionAppliedCount.WithLabelValues(string(rtype), "manual").Inc()

	eng.purgeAccessCache(ctx, userID)
	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        userID,
		Message:       fmt.Sprintf("account restriction applied: %s (%s)", rtype, reason),
		Category:      models.LogCategoryRestriction,
		RestrictionID: &restriction.ID,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	return &restriction, nil
}

// ApplyAutomatic applies the fixed automatic policy: a 24h temp_restrict
// attributed to the system. It never escalates to suspend or permanent_ban;
// those require an admin. Duplicate triggers while a system temp_restrict is
// already live are a logged no-op, which keeps the operation idempotent
// under concurrent qualifying events.
func (eng *Engine) ApplyAutomatic(ctx context.Context, userID string, trigger models.EventType) error {
	if userID == "" {
		return validationErr("userId", "must not be empty")
	}

	now := time.Now()
	endAt := now.Add(AutoRestrictDuration)
	restriction := models.AccountRestriction{
		UserID:          userID,
		RestrictionType: models.RestrictionTemp,
		Reason:          fmt.Sprintf("Automatic restriction due to %s", trigger),
		StartAt:         now,
		EndAt:           &endAt,
		AppliedBy:       systemActor,
		IsActive:        true,
		CreatedAt:       now,
	}
	applied := false
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUserStatus(tx, userID, now); err != nil {
			return err
		}
		var live int64
		err := tx.Model(&models.AccountRestriction{}).
			Where("user_id = ? AND is_active = ? AND applied_by = ? AND restriction_type = ? AND end_at > ?",
				userID, true, systemActor, models.RestrictionTemp, now).
			Count(&live).Error
		if err != nil {
			return err
		}
		if live > 0 {
			return nil
		}
		if err := tx.Create(&restriction).Error; err != nil {
			return err
		}
		applied = true
		return recomputeRestrictionStatus(tx, userID, now)
	})
	if err != nil {
		return storageErr(err)
	}
	if !applied {
		eng.Logger.Info("skipping automatic restriction, one already active", "uid", userID, "trigger", trigger)
		return nil
	}
	restrictionAppliedCount.WithLabelValues(string(models.RestrictionTemp), systemActor).Inc()

	eng.purgeAccessCache(ctx, userID)
	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        userID,
		Message:       restriction.Reason,
		Category:      models.LogCategoryRestriction,
		RestrictionID: &restriction.ID,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	eng.notifyAutomaticRestriction(userID, &restriction)
	return nil
}

// Lift deactivates every active restriction for the user and clears the
// restriction fields of the status projection. Lifting when nothing is
// active is a no-op success.
func (eng *Engine) Lift(ctx context.Context, userID, adminID, notes string) error {
	if userID == "" {
		return validationErr("userId", "must not be empty")
	}
	if adminID == "" {
		return validationErr("adminId", "must not be empty")
	}

	now := time.Now()
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUserStatus(tx, userID, now); err != nil {
			return err
		}
		return liftTx(tx, userID, adminID, notes, now)
	})
	if err != nil {
		return storageErr(err)
	}
	restrictionLiftedCount.Inc()

	eng.purgeAccessCache(ctx, userID)
	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        userID,
		Message:       "account restrictions lifted",
		Category:      models.LogCategoryRestriction,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	return nil
}

// liftTx deactivates active restrictions, recomputes the projection, and
// records the admin action, all inside the caller's transaction. Shared by
// Lift and the appeal-approval path.
func liftTx(tx *gorm.DB, userID, adminID, notes string, now time.Time) error {
	err := tx.Model(&models.AccountRestriction{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{"is_active": false, "end_at": now}).Error
	if err != nil {
		return err
	}
	if err := recomputeRestrictionStatus(tx, userID, now); err != nil {
		return err
	}
	return tx.Create(&models.AdminAction{
		AdminID:      adminID,
		ActionType:   "lift_restriction",
		TargetUserID: userID,
		Notes:        notes,
		Severity:     "medium",
		CreatedAt:    now,
	}).Error
}

// recomputeRestrictionStatus re-derives the restriction columns of the
// status projection from the restriction table, inside the caller's
// transaction. Active rows whose end time has passed are flipped inactive
// here, so the invariant "is_restricted == at least one active restriction
// exists" holds after every mutating operation.
func recomputeRestrictionStatus(tx *gorm.DB, userID string, now time.Time) error {
	err := tx.Model(&models.AccountRestriction{}).
		Where("user_id = ? AND is_active = ? AND end_at IS NOT NULL AND end_at <= ?", userID, true, now).
		Update("is_active", false).Error
	if err != nil {
		return err
	}

	var latest models.AccountRestriction
	status := models.UserSecurityStatus{UserID: userID, UpdatedAt: now}
	err = tx.Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_at desc").First(&latest).Error
	if err == nil {
		status.IsRestricted = true
		status.RestrictionReason = latest.Reason
		status.RestrictedAt = &latest.StartAt
		status.RestrictionExpiresAt = latest.EndAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return upsertStatus(tx, &status, []string{
		"is_restricted", "restriction_reason", "restricted_at", "restriction_expires_at",
	})
}

// CheckAccess derives the caller-facing permission set. Read-only and safe
// at high read concurrency; results may be served from a short-TTL cache,
// which is stale-at-worst (entries are written only from committed state and
// purged on every mutation).
func (eng *Engine) CheckAccess(ctx context.Context, userID string) (*AccessStatus, error) {
	if userID == "" {
		return nil, validationErr("userId", "must not be empty")
	}

	if eng.Cache != nil {
		cached, err := eng.Cache.Get(ctx, accessCacheName, userID)
		if err != nil {
			eng.Logger.Error("access cache read failed", "uid", userID, "err", err)
		} else if cached != "" {
			var out AccessStatus
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				accessCheckCount.WithLabelValues("hit").Inc()
				return &out, nil
			}
		}
	}
	accessCheckCount.WithLabelValues("miss").Inc()

	now := time.Now()
	db := eng.DB.WithContext(ctx)

	active, err := eng.activeRestrictions(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	var status models.UserSecurityStatus
	if err := db.Where("user_id = ?", userID).First(&status).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr(err)
	}

	out := AccessStatus{
		CanPost:              true,
		CanBid:               true,
		CanComment:           true,
		Restrictions:         []models.RestrictionType{},
		VerificationRequired: status.VerificationRequired,
		Appealable:           true,
	}
	for _, r := range active {
		out.Restrictions = append(out.Restrictions, r.RestrictionType)
	}

	// the most recently started active restriction determines the effective
	// permission set; older active rows remain for audit only
	if len(active) > 0 {
		switch effective := active[0]; effective.RestrictionType {
		case models.RestrictionTemp, models.RestrictionSuspend:
			out.CanPost, out.CanBid, out.CanComment = false, false, false
			out.RestrictionMessage = "Your account is temporarily restricted: " + effective.Reason
		case models.RestrictionPermanentBan:
			out.CanPost, out.CanBid, out.CanComment = false, false, false
			out.Appealable = false
			out.RestrictionMessage = "Your account has been permanently banned."
		case models.RestrictionVisibilityLimit:
			// posting allowed; de-ranking is enforced by the feed service
			out.RestrictionMessage = "Your content visibility is currently limited."
		case models.RestrictionVerifyRequired:
			out.VerificationRequired = true
			out.RestrictionMessage = "Identity verification is required: " + effective.Reason
		case models.RestrictionWarning:
			out.RestrictionMessage = "Warning: " + effective.Reason
		}
	}

	if eng.Cache != nil {
		if raw, err := json.Marshal(&out); err == nil {
			if err := eng.Cache.Set(ctx, accessCacheName, userID, string(raw)); err != nil {
				eng.Logger.Error("access cache write failed", "uid", userID, "err", err)
			}
		}
	}
	return &out, nil
}

func (eng *Engine) activeRestrictions(ctx context.Context, userID string, now time.Time) ([]models.AccountRestriction, error) {
	var active []models.AccountRestriction
	err := eng.DB.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND (end_at IS NULL OR end_at > ?)", userID, true, now).
		Order("start_at desc").
		Find(&active).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return active, nil
}

// GetActiveRestrictions lists a user's currently active restrictions, most
// recently started first.
func (eng *Engine) GetActiveRestrictions(ctx context.Context, userID string) ([]models.AccountRestriction, error) {
	if userID == "" {
		return nil, validationErr("userId", "must not be empty")
	}
	return eng.activeRestrictions(ctx, userID, time.Now())
}
