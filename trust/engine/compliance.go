package engine

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// ComplianceResult is a point-in-time judgment about whether a proposed
// action is permissible given the user's current risk/verification state.
type ComplianceResult struct {
	Compliant       bool     `json:"compliant"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
}

// PerformComplianceCheck derives compliance flags for an action from the
// status projection. Read-only; mutates nothing.
func (eng *Engine) PerformComplianceCheck(ctx context.Context, userID, action string) (*ComplianceResult, error) {
	if userID == "" {
		return nil, validationErr("userId", "must not be empty")
	}

	var status models.UserSecurityStatus
	err := eng.DB.WithContext(ctx).Where("user_id = ?", userID).First(&status).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr(err)
	}

	out := ComplianceResult{
		Violations:      []string{},
		Recommendations: []string{},
	}
	if status.RiskLevel == models.RiskLevelCritical {
		out.Violations = append(out.Violations, "critical risk")
	}
	if action == "bid" && status.VerificationRequired {
		out.Violations = append(out.Violations, "unverified financial action")
	}
	if status.IsRestricted {
		out.Recommendations = append(out.Recommendations, "disclose active account restriction to counterparties")
	}
	out.Compliant = len(out.Violations) == 0
	return &out, nil
}
