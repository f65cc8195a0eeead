package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// RiskScore is the derived, time-windowed risk assessment for one user.
type RiskScore struct {
	Score int              `json:"score"`
	Level models.RiskLevel `json:"level"`
	// contributing event descriptors, most recent first, for explainability
	Factors []string `json:"factors"`
}

// ComputeRiskScore is a pure function over a user's event history: events
// inside the trailing score window contribute base score times the recorded
// severity multiplier; everything older is excluded (not deleted). Events
// with an unknown type or severity contribute nothing.
func ComputeRiskScore(events []models.SecurityEvent, now time.Time) RiskScore {
	cutoff := now.Add(-ScoreWindow)

	inWindow := make([]models.SecurityEvent, 0, len(events))
	for _, evt := range events {
		if evt.CreatedAt.After(cutoff) {
			inWindow = append(inWindow, evt)
		}
	}
	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].CreatedAt.After(inWindow[j].CreatedAt)
	})

	total := 0
	factors := []string{}
	for _, evt := range inWindow {
		rule, ok := eventRules[evt.EventType]
		if !ok {
			continue
		}
		mult, ok := severityMultipliers[evt.Severity]
		if !ok {
			continue
		}
		total += rule.BaseScore * mult
		factors = append(factors, fmt.Sprintf("%s (%s)", evt.EventType, evt.Severity))
	}

	return RiskScore{
		Score:   total,
		Level:   RiskLevelForScore(total),
		Factors: factors,
	}
}

func loadWindowEvents(tx *gorm.DB, userID string, now time.Time) ([]models.SecurityEvent, error) {
	var events []models.SecurityEvent
	err := tx.Where("user_id = ? AND created_at > ?", userID, now.Add(-ScoreWindow)).
		Order("created_at desc").
		Find(&events).Error
	return events, err
}

// GetUserRiskScore recomputes the current risk score from event history.
// Read-only; used by dashboards.
func (eng *Engine) GetUserRiskScore(ctx context.Context, userID string) (*RiskScore, error) {
	if userID == "" {
		return nil, validationErr("userId", "must not be empty")
	}
	now := time.Now()
	events, err := loadWindowEvents(eng.DB.WithContext(ctx), userID, now)
	if err != nil {
		return nil, storageErr(err)
	}
	rs := ComputeRiskScore(events, now)
	return &rs, nil
}

// RefreshRiskScore recomputes the user's score and writes the derived
// risk_score/risk_level columns of the status projection, atomically.
func (eng *Engine) RefreshRiskScore(ctx context.Context, userID string) error {
	now := time.Now()
	err := eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events, err := loadWindowEvents(tx, userID, now)
		if err != nil {
			return err
		}
		rs := ComputeRiskScore(events, now)
		status := models.UserSecurityStatus{
			UserID:    userID,
			RiskScore: rs.Score,
			RiskLevel: rs.Level,
			UpdatedAt: now,
		}
		return upsertStatus(tx, &status, []string{"risk_score", "risk_level"})
	})
	if err != nil {
		return storageErr(err)
	}
	scoreRefreshCount.Inc()
	return nil
}
