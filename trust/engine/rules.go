package engine

import (
	"time"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// EventRule is one row of the fixed scoring table: the typical severity for
// an event type and its base score contribution.
type EventRule struct {
	TypicalSeverity models.Severity
	BaseScore       int
}

// eventRules is the authoritative signal table. It is fixed at design time
// and kept as data (not control flow) so it can be tested on its own.
var eventRules = map[models.EventType]EventRule{
	models.EventLoginAnomaly:     {models.SeverityLow, 3},
	models.EventDeviceChange:     {models.SeverityMedium, 5},
	models.EventPolicyViolation:  {models.SeverityMedium, 8},
	models.EventMisinformation:   {models.SeverityMedium, 6},
	models.EventHarassment:       {models.SeverityMedium, 12},
	models.EventSensitivePost:    {models.SeverityHigh, 10},
	models.EventMassReports:      {models.SeverityHigh, 15},
	models.EventPrivacyViolation: {models.SeverityHigh, 18},
	models.EventAPIAbuse:         {models.SeverityHigh, 20},
	models.EventFraud:            {models.SeverityHigh, 25},
}

// the recorded severity of an event always wins over the table's typical one
var severityMultipliers = map[models.Severity]int{
	models.SeverityLow:    1,
	models.SeverityMedium: 2,
	models.SeverityHigh:   3,
}

// event types which, at high recorded severity, trigger an immediate
// automatic restriction rather than waiting for the next scoring pass
var autoRestrictTypes = map[models.EventType]bool{
	models.EventFraud:       true,
	models.EventAPIAbuse:    true,
	models.EventMassReports: true,
}

const (
	// trailing window over which events contribute to the risk score.
	// Older events fall out of the window; they are never deleted.
	ScoreWindow = 30 * 24 * time.Hour

	// automatic restrictions are always temp_restrict with this duration
	AutoRestrictDuration = 24 * time.Hour
)

// report aggregation policy
const (
	coordinationWindow    = time.Hour
	coordinationThreshold = 3
	massReportWindow      = 24 * time.Hour
	massReportThreshold   = 5
)

func KnownEventType(t models.EventType) bool {
	_, ok := eventRules[t]
	return ok
}

func knownSeverity(s models.Severity) bool {
	_, ok := severityMultipliers[s]
	return ok
}

// RuleFor returns the scoring table row for an event type.
func RuleFor(t models.EventType) (EventRule, bool) {
	r, ok := eventRules[t]
	return r, ok
}

// RiskLevelForScore buckets a total score into a risk level.
func RiskLevelForScore(score int) models.RiskLevel {
	switch {
	case score >= 100:
		return models.RiskLevelCritical
	case score >= 50:
		return models.RiskLevelHigh
	case score >= 20:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}
