package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// ReportInput is a user-submitted content report at the ingest boundary.
// Raw IP and device fingerprint are hashed before persistence; the weight
// and coordination signal are computed, never caller-supplied.
type ReportInput struct {
	ReporterID        string
	ReportedUserID    string
	ContentType       string
	ContentID         string
	ReportReason      string
	IPAddress         string
	DeviceFingerprint string
}

var knownContentTypes = map[string]bool{
	"post":    true,
	"comment": true,
	"auction": true,
	"profile": true,
	"product": true,
}

// SubmitReport records a content report. Inside one per-user transaction it
// computes the coordination signal (same source hash against the same target
// inside the trailing hour) and evaluates the mass-report threshold, so two
// concurrent submissions serialize and the fifth pending report in 24h is
// attributed to exactly one trigger. The triggered mass_reports risk event
// is emitted after commit as a best-effort follow-up.
func (eng *Engine) SubmitReport(ctx context.Context, in ReportInput) (*models.ContentReport, error) {
	if in.ReporterID == "" {
		return nil, validationErr("reporterId", "must not be empty")
	}
	if in.ReportedUserID == "" {
		return nil, validationErr("reportedUserId", "must not be empty")
	}
	if in.ReportReason == "" {
		return nil, validationErr("reportReason", "missing reason")
	}
	if !knownContentTypes[in.ContentType] {
		return nil, validationErr("contentType", "unknown content type")
	}

	now := time.Now()
	report := models.ContentReport{
		ReporterID:     in.ReporterID,
		ReportedUserID: in.ReportedUserID,
		ContentType:    in.ContentType,
		ContentID:      in.ContentID,
		ReportReason:   in.ReportReason,
		IPHash:         eng.Hasher.HashIP(in.IPAddress),
		DeviceHash:     eng.Hasher.HashDevice(in.DeviceFingerprint),
		ReportWeight:   1.0,
		Status:         models.ReportStatusPending,
		CreatedAt:      now,
	}

	var pendingCount int64
	crossed := false
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUserStatus(tx, in.ReportedUserID, now); err != nil {
			return err
		}

		if report.IPHash != "" {
			var sameSource int64
			err := tx.Model(&models.ContentReport{}).
				Where("ip_hash = ? AND reported_user_id = ? AND created_at > ?",
					report.IPHash, in.ReportedUserID, now.Add(-coordinationWindow)).
				Count(&sameSource).Error
			if err != nil {
				return err
			}
			// count includes the report being submitted
			if sameSource+1 > coordinationThreshold {
				report.IsCoordinated = true
				report.ReportWeight = 0.5
			}
		}

		if err := tx.Create(&report).Error; err != nil {
			return err
		}

		err := tx.Model(&models.ContentReport{}).
			Where("reported_user_id = ? AND status = ? AND created_at > ?",
				in.ReportedUserID, models.ReportStatusPending, now.Add(-massReportWindow)).
			Count(&pendingCount).Error
		if err != nil {
			return err
		}
		crossed = pendingCount == massReportThreshold
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	reportSubmittedCount.WithLabelValues(fmt.Sprintf("%v", report.IsCoordinated)).Inc()
	eng.incrementCounter(ctx, "report", in.ReportedUserID)

	if crossed {
		massReportTriggerCount.Inc()
		// sole path by which reporting volume becomes a risk signal
		err := eng.RecordEvent(ctx, EventInput{
			UserID:    in.ReportedUserID,
			EventType: models.EventMassReports,
			Severity:  models.SeverityHigh,
			Metadata:  map[string]any{"reportCount": pendingCount},
		})
		if err != nil {
			secondaryFailureCount.WithLabelValues("mass_report_event").Inc()
			eng.Logger.Error("failed to record mass_reports event", "uid", in.ReportedUserID, "err", err)
		}
	}

	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:    in.ReportedUserID,
		Message:   fmt.Sprintf("content report received (%s)", in.ContentType),
		Category:  models.LogCategoryReport,
		CreatedAt: now,
	})
	return &report, nil
}

// ReviewReport is the admin status transition on a report; the only mutation
// reports ever receive after creation.
func (eng *Engine) ReviewReport(ctx context.Context, reportID uint, adminID string, status models.ReportStatus, notes string) error {
	if adminID == "" {
		return validationErr("adminId", "must not be empty")
	}
	switch status {
	case models.ReportStatusReviewed, models.ReportStatusDismissed, models.ReportStatusActioned:
	default:
		return validationErr("status", "not a review outcome")
	}

	now := time.Now()
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.ContentReport
		if err := tx.First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&report).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Create(&models.AdminAction{
			AdminID:           adminID,
			ActionType:        "review_report",
			TargetUserID:      report.ReportedUserID,
			TargetContentID:   report.ContentID,
			TargetContentType: report.ContentType,
			Notes:             notes,
			Severity:          "low",
			CreatedAt:         now,
		}).Error
	})
	return storageErr(err)
}

// GetPendingReports lists unreviewed reports for the admin dashboard, oldest
// first.
func (eng *Engine) GetPendingReports(ctx context.Context, limit int) ([]models.ContentReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var reports []models.ContentReport
	err := eng.DB.WithContext(ctx).
		Where("status = ?", models.ReportStatusPending).
		Order("created_at").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return reports, nil
}
