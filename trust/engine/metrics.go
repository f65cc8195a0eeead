package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventRecordedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_events_recorded",
	Help: "Number of risk events persisted",
}, []string{"type"})

var eventRejectedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trust_events_rejected",
	Help: "Number of risk events which failed to persist",
})

var scoreRefreshCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trust_score_refreshes",
	Help: "Number of risk score recomputations",
})

var restrictionAppliedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_restrictions_applied",
	Help: "Number of account restrictions applied",
}, []string{"type", "applied_by"})

var restrictionLiftedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trust_restrictions_lifted",
	Help: "Number of restriction lift operations",
})

var reportSubmittedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_reports_submitted",
	Help: "Number of content reports submitted",
}, []string{"coordinated"})

var massReportTriggerCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trust_mass_report_triggers",
	Help: "Number of mass-report threshold crossings",
})

var appealSubmittedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trust_appeals_submitted",
	Help: "Number of appeals submitted",
})

var appealReviewedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_appeals_reviewed",
	Help: "Number of appeals adjudicated",
}, []string{"decision"})

var accessCheckCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_access_checks",
	Help: "Number of access permission checks",
}, []string{"cache"})

var secondaryFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_secondary_failures",
	Help: "Number of swallowed best-effort follow-up failures",
}, []string{"step"})

var notifierSentCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_notifier_sent",
	Help: "Number of admin webhook notifications, by outcome",
}, []string{"status"})
