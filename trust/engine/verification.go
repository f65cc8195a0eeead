package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

type VerificationInput struct {
	UserID           string
	VerificationType string
	DocumentURL      string
	SelfieURL        string
}

var knownVerificationTypes = map[string]bool{
	"aadhaar":  true,
	"pan":      true,
	"dl":       true,
	"passport": true,
	"gst":      true,
}

// SubmitVerification records an identity-document submission as pending and
// marks the user as requiring verification until it is reviewed.
func (eng *Engine) SubmitVerification(ctx context.Context, in VerificationInput) (*models.IdentityVerification, error) {
	if in.UserID == "" {
		return nil, validationErr("userId", "must not be empty")
	}
	if !knownVerificationTypes[in.VerificationType] {
		return nil, validationErr("verificationType", "unknown document type")
	}
	if in.DocumentURL == "" {
		return nil, validationErr("documentUrl", "must not be empty")
	}

	now := time.Now()
	verification := models.IdentityVerification{
		UserID:           in.UserID,
		VerificationType: in.VerificationType,
		DocumentURL:      in.DocumentURL,
		SelfieURL:        in.SelfieURL,
		Status:           models.VerificationStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&verification).Error; err != nil {
			return err
		}
		status := models.UserSecurityStatus{
			UserID:               in.UserID,
			VerificationRequired: true,
			UpdatedAt:            now,
		}
		return upsertStatus(tx, &status, []string{"verification_required"})
	})
	if err != nil {
		return nil, storageErr(err)
	}

	eng.purgeAccessCache(ctx, in.UserID)
	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        in.UserID,
		Message:       "identity document submitted (" + in.VerificationType + ")",
		Category:      models.LogCategoryVerification,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	return &verification, nil
}

// ReviewVerification records the admin decision on a pending submission.
// A verified outcome clears the user's verification requirement; a rejection
// stores the reason. Restrictions are never touched here.
func (eng *Engine) ReviewVerification(ctx context.Context, verificationID uint, adminID string, status models.VerificationStatus, notes string) error {
	if adminID == "" {
		return validationErr("adminId", "must not be empty")
	}
	if status != models.VerificationStatusVerified && status != models.VerificationStatusRejected {
		return validationErr("status", "must be verified or rejected")
	}

	now := time.Now()
	var verification models.IdentityVerification
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&verification, verificationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if verification.Status != models.VerificationStatusPending {
			return validationErr("verificationId", "verification already reviewed")
		}

		updates := map[string]any{"status": status, "updated_at": now}
		if status == models.VerificationStatusRejected {
			updates["rejection_reason"] = notes
		}
		if err := tx.Model(&verification).Updates(updates).Error; err != nil {
			return err
		}

		if status == models.VerificationStatusVerified {
			userStatus := models.UserSecurityStatus{
				UserID:    verification.UserID,
				UpdatedAt: now,
			}
			if err := upsertStatus(tx, &userStatus, []string{"verification_required"}); err != nil {
				return err
			}
		}

		return tx.Create(&models.AdminAction{
			AdminID:      adminID,
			ActionType:   "review_verification",
			TargetUserID: verification.UserID,
			Notes:        notes,
			Severity:     "low",
			CreatedAt:    now,
		}).Error
	})
	if err != nil {
		return storageErr(err)
	}

	eng.purgeAccessCache(ctx, verification.UserID)
	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:        verification.UserID,
		Message:       "identity verification " + string(status),
		Category:      models.LogCategoryVerification,
		VisibleToUser: true,
		CreatedAt:     now,
	})
	return nil
}
