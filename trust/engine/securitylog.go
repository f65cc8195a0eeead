package engine

import (
	"context"
	"time"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// logSecurityEvent appends to the user-visible security journal. This is
// always a best-effort follow-up: a failed journal write must never change
// the outcome of the primary operation.
func (eng *Engine) logSecurityEvent(ctx context.Context, entry models.SecurityLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := eng.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		secondaryFailureCount.WithLabelValues("security_log").Inc()
		eng.Logger.Error("failed to append security log entry", "uid", entry.UserID, "category", entry.Category, "err", err)
	}
}

// GetSecurityLog returns a user's journal, newest first. With visibleOnly
// set, admin-only entries are filtered out (the user-facing activity feed).
func (eng *Engine) GetSecurityLog(ctx context.Context, userID string, visibleOnly bool, limit int) ([]models.SecurityLogEntry, error) {
	if userID == "" {
		return nil, validationErr("userId", "must not be empty")
	}
	if limit <= 0 {
		limit = 100
	}
	q := eng.DB.WithContext(ctx).Where("user_id = ?", userID)
	if visibleOnly {
		q = q.Where("visible_to_user = ?", true)
	}
	var entries []models.SecurityLogEntry
	if err := q.Order("created_at desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

// DashboardSummary is the aggregate view backing the admin dashboard.
type DashboardSummary struct {
	PendingReports       int64 `json:"pendingReports"`
	PendingAppeals       int64 `json:"pendingAppeals"`
	PendingVerifications int64 `json:"pendingVerifications"`
	ActiveRestrictions   int64 `json:"activeRestrictions"`
}

func (eng *Engine) GetDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	db := eng.DB.WithContext(ctx)
	var out DashboardSummary

	err := db.Model(&models.ContentReport{}).
		Where("status = ?", models.ReportStatusPending).Count(&out.PendingReports).Error
	if err != nil {
		return nil, storageErr(err)
	}
	err = db.Model(&models.Appeal{}).
		Where("status = ?", models.AppealStatusPending).Count(&out.PendingAppeals).Error
	if err != nil {
		return nil, storageErr(err)
	}
	err = db.Model(&models.IdentityVerification{}).
		Where("status = ?", models.VerificationStatusPending).Count(&out.PendingVerifications).Error
	if err != nil {
		return nil, storageErr(err)
	}
	err = db.Model(&models.AccountRestriction{}).
		Where("is_active = ? AND (end_at IS NULL OR end_at > ?)", true, time.Now()).
		Count(&out.ActiveRestrictions).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return &out, nil
}
