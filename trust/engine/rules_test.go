package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

func TestEventRuleTable(t *testing.T) {
	assert := assert.New(t)

	fixture := []struct {
		eventType models.EventType
		severity  models.Severity
		baseScore int
	}{
		{models.EventLoginAnomaly, models.SeverityLow, 3},
		{models.EventDeviceChange, models.SeverityMedium, 5},
		{models.EventPolicyViolation, models.SeverityMedium, 8},
		{models.EventMisinformation, models.SeverityMedium, 6},
		{models.EventHarassment, models.SeverityMedium, 12},
		{models.EventSensitivePost, models.SeverityHigh, 10},
		{models.EventMassReports, models.SeverityHigh, 15},
		{models.EventPrivacyViolation, models.SeverityHigh, 18},
		{models.EventAPIAbuse, models.SeverityHigh, 20},
		{models.EventFraud, models.SeverityHigh, 25},
	}
	assert.Equal(len(fixture), len(eventRules))
	for _, row := range fixture {
		rule, ok := RuleFor(row.eventType)
		assert.True(ok, string(row.eventType))
		assert.Equal(row.severity, rule.TypicalSeverity, string(row.eventType))
		assert.Equal(row.baseScore, rule.BaseScore, string(row.eventType))
	}

	assert.False(KnownEventType("spam_call"))
	assert.True(KnownEventType(models.EventFraud))
}

func TestRiskLevelThresholds(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(models.RiskLevelLow, RiskLevelForScore(0))
	assert.Equal(models.RiskLevelLow, RiskLevelForScore(19))
	assert.Equal(models.RiskLevelMedium, RiskLevelForScore(20))
	assert.Equal(models.RiskLevelMedium, RiskLevelForScore(49))
	assert.Equal(models.RiskLevelHigh, RiskLevelForScore(50))
	assert.Equal(models.RiskLevelHigh, RiskLevelForScore(99))
	assert.Equal(models.RiskLevelCritical, RiskLevelForScore(100))
	assert.Equal(models.RiskLevelCritical, RiskLevelForScore(500))
}
