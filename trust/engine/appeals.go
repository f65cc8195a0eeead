package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// AppealInput is a user-initiated request to reverse a restriction or
// report-driven action. The publicInterest and whistleblower flags are
// carried through for human reviewers and never change automated behavior.
type AppealInput struct {
	UserID           string
	RestrictionID    *uint
	ReportID         *uint
	Explanation      string
	EvidenceURLs     []string
	PublicInterest   bool
	WhistleblowerTag bool
}

// SubmitAppeal accepts any appeal with a non-empty explanation.
func (eng *Engine) SubmitAppeal(ctx context.Context, in AppealInput) (*models.Appeal, error) {
	if in.UserID == "" {
		return nil, validationErr("userId", "must not be empty")
	}
	if in.Explanation == "" {
		return nil, validationErr("explanation", "missing reason")
	}

	evidence := ""
	if len(in.EvidenceURLs) > 0 {
		raw, err := json.Marshal(in.EvidenceURLs)
		if err != nil {
			return nil, validationErr("evidenceUrls", "not serializable")
		}
		evidence = string(raw)
	}

	now := time.Now()
	appeal := models.Appeal{
		UserID:           in.UserID,
		RestrictionID:    in.RestrictionID,
		ReportID:         in.ReportID,
		Explanation:      in.Explanation,
		EvidenceURLs:     evidence,
		PublicInterest:   in.PublicInterest,
		WhistleblowerTag: in.WhistleblowerTag,
		Status:           models.AppealStatusPending,
		CreatedAt:        now,
	}
	if err := eng.DB.WithContext(ctx).Create(&appeal).Error; err != nil {
		return nil, storageErr(err)
	}
	appealSubmittedCount.Inc()

	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        in.UserID,
		Message:       "appeal submitted",
		Category:      models.LogCategoryAppeal,
		AppealID:      &appeal.ID,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	return &appeal, nil
}

// ReviewAppeal records the single, terminal adjudication of an appeal. An
// approval that references a restriction lifts the user's restrictions in
// the same transaction; a rejected appeal requires a new appeal to retry.
func (eng *Engine) ReviewAppeal(ctx context.Context, appealID uint, adminID string, decision models.AppealStatus, notes string) error {
	if adminID == "" {
		return validationErr("adminId", "must not be empty")
	}
	if decision != models.AppealStatusApproved && decision != models.AppealStatusRejected {
		return validationErr("decision", "must be approved or rejected")
	}

	now := time.Now()
	var appeal models.Appeal
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appeal, appealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if appeal.Status != models.AppealStatusPending {
			return validationErr("appealId", "appeal already decided")
		}
		if appeal.RestrictionID != nil {
			// the referenced restriction must belong to the appealing user
			var restriction models.AccountRestriction
			if err := tx.First(&restriction, *appeal.RestrictionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			if restriction.UserID != appeal.UserID {
				return ErrNotFound
			}
		}

		updates := map[string]any{
			"status":      decision,
			"admin_notes": notes,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}
		if err := tx.Model(&appeal).Updates(updates).Error; err != nil {
			return err
		}

		if decision == models.AppealStatusApproved && appeal.RestrictionID != nil {
			if _, err := lockUserStatus(tx, appeal.UserID, now); err != nil {
				return err
			}
			if err := liftTx(tx, appeal.UserID, adminID, "Appeal approved", now); err != nil {
				return err
			}
		}

		return tx.Create(&models.AdminAction{
			AdminID:      adminID,
			ActionType:   "review_appeal",
			TargetUserID: appeal.UserID,
			Notes:        notes,
			Severity:     "medium",
			CreatedAt:    now,
		}).Error
	})
	if err != nil {
		return storageErr(err)
	}
	appealReviewedCount.WithLabelValues(string(decision)).Inc()

	eng.purgeAccessCache(ctx, appeal.UserID)
	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        appeal.UserID,
		Message:       "appeal " + string(decision),
		Category:      models.LogCategoryAppeal,
		AppealID:      &appeal.ID,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	return nil
}

// GetPendingAppeals lists undecided appeals for the admin dashboard, oldest
// first.
func (eng *Engine) GetPendingAppeals(ctx context.Context, limit int) ([]models.Appeal, error) {
	if limit <= 0 {
		limit = 50
	}
	var appeals []models.Appeal
	err := eng.DB.WithContext(ctx).
		Where("status = ?", models.AppealStatusPending).
		Order("created_at").
		Limit(limit).
		Find(&appeals).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return appeals, nil
}
