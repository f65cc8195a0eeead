package models

import (
	"time"
)

type EventType string

const (
	EventLoginAnomaly     EventType = "login_anomaly"
	EventDeviceChange     EventType = "device_change"
	EventMassReports      EventType = "mass_reports"
	EventSensitivePost    EventType = "sensitive_post"
	EventAPIAbuse         EventType = "api_abuse"
	EventPolicyViolation  EventType = "policy_violation"
	EventHarassment       EventType = "harassment"
	EventFraud            EventType = "fraud"
	EventMisinformation   EventType = "misinformation"
	EventPrivacyViolation EventType = "privacy_violation"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

type RestrictionType string

const (
	RestrictionWarning         RestrictionType = "warning"
	RestrictionVisibilityLimit RestrictionType = "visibility_limit"
	RestrictionTemp            RestrictionType = "temp_restrict"
	RestrictionVerifyRequired  RestrictionType = "verify_required"
	RestrictionSuspend         RestrictionType = "suspend"
	RestrictionPermanentBan    RestrictionType = "permanent_ban"
)

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusDismissed ReportStatus = "dismissed"
	ReportStatusActioned  ReportStatus = "actioned"
)

type AppealStatus string

const (
	AppealStatusPending  AppealStatus = "pending"
	AppealStatusApproved AppealStatus = "approved"
	AppealStatusRejected AppealStatus = "rejected"
)

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

type LogCategory string

const (
	LogCategoryLogin        LogCategory = "login"
	LogCategoryRestriction  LogCategory = "restriction"
	LogCategoryVerification LogCategory = "verification"
	LogCategoryAppeal       LogCategory = "appeal"
	LogCategoryReport       LogCategory = "report"
	LogCategoryGeneral      LogCategory = "general"
)

// SecurityEvent is one recorded behavioral or security signal for a user.
// Rows are immutable once created; only the scorer reads them back.
type SecurityEvent struct {
	ID        uint      `gorm:"primarykey"`
	UserID    string    `gorm:"index:idx_security_events_user_created"`
	EventType EventType `gorm:"index"`
	Severity  Severity
	// opaque key/value context, serialized as JSON at the ingest boundary
	Metadata  string `gorm:"type:text"`
	IPHash    string
	UserAgent string
	CreatedAt time.Time `gorm:"index:idx_security_events_user_created"`
}

// UserSecurityStatus is the materialized per-user projection that other
// subsystems read. It is a cache over event/restriction history, never the
// source of truth; upserts are keyed on user_id.
type UserSecurityStatus struct {
	UserID               string `gorm:"primarykey"`
	RiskScore            int
	RiskLevel            RiskLevel
	IsRestricted         bool
	RestrictionReason    string
	RestrictedAt         *time.Time
	RestrictionExpiresAt *time.Time
	VerificationRequired bool
	UpdatedAt            time.Time
}

func (UserSecurityStatus) TableName() string {
	return "user_security_status"
}

// AccountRestriction rows are retained for audit after deactivation; at most
// one active row per user is treated as authoritative by access checks (the
// one with the latest start_at).
type AccountRestriction struct {
	ID              uint   `gorm:"primarykey"`
	UserID          string `gorm:"index:idx_restrictions_user_active"`
	RestrictionType RestrictionType
	Reason          string
	StartAt         time.Time `gorm:"index"`
	EndAt           *time.Time
	AppliedBy       string
	IsActive        bool `gorm:"index:idx_restrictions_user_active"`
	CreatedAt       time.Time
}

type ContentReport struct {
	ID             uint   `gorm:"primarykey"`
	ReporterID     string `gorm:"index"`
	ReportedUserID string `gorm:"index:idx_reports_reported_created"`
	ContentType    string
	ContentID      string
	ReportReason   string
	IPHash         string `gorm:"index"`
	DeviceHash     string
	ReportWeight   float64
	IsCoordinated  bool
	Status         ReportStatus `gorm:"index"`
	CreatedAt      time.Time    `gorm:"index:idx_reports_reported_created"`
}

type Appeal struct {
	ID               uint   `gorm:"primarykey"`
	UserID           string `gorm:"index"`
	RestrictionID    *uint
	ReportID         *uint
	Explanation      string `gorm:"type:text"`
	EvidenceURLs     string `gorm:"type:text"` // JSON array of URLs
	PublicInterest   bool
	WhistleblowerTag bool
	Status           AppealStatus `gorm:"index"`
	AdminNotes       string
	ReviewedBy       string
	ReviewedAt       *time.Time
	CreatedAt        time.Time
}

func (Appeal) TableName() string {
	return "content_appeals"
}

type IdentityVerification struct {
	ID               uint   `gorm:"primarykey"`
	UserID           string `gorm:"index"`
	VerificationType string
	DocumentURL      string
	SelfieURL        string
	Status           VerificationStatus `gorm:"index"`
	RejectionReason  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SecurityLogEntry is the append-only security journal. Entries are never
// mutated or deleted.
type SecurityLogEntry struct {
	ID            uint   `gorm:"primarykey"`
	UserID        string `gorm:"index"`
	Message       string
	Category      LogCategory
	EventID       *uint
	RestrictionID *uint
	AppealID      *uint
	VisibleToUser bool
	CreatedAt     time.Time
}

func (SecurityLogEntry) TableName() string {
	return "user_security_logs"
}

// AdminAction is the append-only audit of privileged operations.
type AdminAction struct {
	ID                uint   `gorm:"primarykey"`
	AdminID           string `gorm:"index"`
	ActionType        string
	TargetUserID      string
	TargetContentID   string
	TargetContentType string
	Notes             string
	Severity          string
	CreatedAt         time.Time
}

func (AdminAction) TableName() string {
	return "admin_moderation_actions"
}

// All returns the full model list, in migration order.
func All() []any {
	return []any{
		&SecurityEvent{},
		&UserSecurityStatus{},
		&AccountRestriction{},
		&ContentReport{},
		&Appeal{},
		&IdentityVerification{},
		&SecurityLogEntry{},
		&AdminAction{},
	}
}
