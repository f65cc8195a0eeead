package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// EventInput is one behavioral/security signal at the ingest boundary. The
// raw IP address and device fingerprint are hashed here and never persisted.
type EventInput struct {
	UserID    string
	EventType models.EventType
	Severity  models.Severity
	Metadata  map[string]any
	IPAddress string
	UserAgent string
}

// RecordEvent validates and persists one risk event, then runs the follow-up
// steps: score refresh, automatic restriction for qualifying high-severity
// signals, and an audit log line. The event insert is the primary path; a
// failing follow-up is logged and swallowed, never surfaced to the caller.
func (eng *Engine) RecordEvent(ctx context.Context, in EventInput) error {
	// recover panics from follow-up logic, same as an HTTP server would
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("risk event processing exception", "err", r, "uid", in.UserID, "type", in.EventType)
		}
	}()

	if in.UserID == "" {
		return validationErr("userId", "must not be empty")
	}
	if !KnownEventType(in.EventType) {
		return validationErr("eventType", "unknown event type")
	}
	if in.Severity == "" {
		// fall back to the table's typical severity for the type
		in.Severity = eventRules[in.EventType].TypicalSeverity
	}
	if !knownSeverity(in.Severity) {
		return validationErr("severity", "unknown severity")
	}

	var metadata string
	if in.Metadata != nil {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return validationErr("metadata", "not serializable")
		}
		metadata = string(raw)
	}

	now := time.Now()
	evt := models.SecurityEvent{
		UserID:    in.UserID,
		EventType: in.EventType,
		Severity:  in.Severity,
		Metadata:  metadata,
		IPHash:    eng.Hasher.HashIP(in.IPAddress),
		UserAgent: in.UserAgent,
		CreatedAt: now,
	}
	if err := eng.DB.WithContext(ctx).Create(&evt).Error; err != nil {
		eventRejectedCount.Inc()
		return storageErr(err)
	}
	eventRecordedCount.WithLabelValues(string(in.EventType)).Inc()
	eng.incrementCounter(ctx, "event", in.UserID)

	if err := eng.RefreshRiskScore(ctx, in.UserID); err != nil {
		secondaryFailureCount.WithLabelValues("score_refresh").Inc()
		eng.Logger.Error("risk score refresh failed after event insert", "uid", in.UserID, "err", err)
	}

	if in.Severity == models.SeverityHigh && autoRestrictTypes[in.EventType] {
		if err := eng.ApplyAutomatic(ctx, in.UserID, in.EventType); err != nil {
			secondaryFailureCount.WithLabelValues("auto_restrict").Inc()
			eng.Logger.Error("automatic restriction failed after event insert", "uid", in.UserID, "type", in.EventType, "err", err)
		}
	}

	eng.logSecurityEvent(ctx, models.SecurityLogEntry{
		UserID:    in.UserID,
		Message:   "security signal recorded: " + string(in.EventType),
		Category:  logCategoryForEvent(in.EventType),
		EventID:   &evt.ID,
		CreatedAt: now,
	})

	return nil
}

func logCategoryForEvent(t models.EventType) models.LogCategory {
	switch t {
	case models.EventLoginAnomaly, models.EventDeviceChange:
		return models.LogCategoryLogin
	case models.EventMassReports:
		return models.LogCategoryReport
	default:
		return models.LogCategoryGeneral
	}
}
