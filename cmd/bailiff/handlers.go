package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/engine"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

type submitReportRequest struct {
	ReporterID        string `json:"reporterId"`
	ReportedUserID    string `json:"reportedUserId"`
	ContentType       string `json:"contentType"`
	ContentID         string `json:"contentId"`
	ReportReason      string `json:"reportReason"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

func (srv *Server) HandleSubmitReport(c echo.Context) error {
	var req submitReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	report, err := srv.engine.SubmitReport(c.Request().Context(), engine.ReportInput{
		ReporterID:        req.ReporterID,
		ReportedUserID:    req.ReportedUserID,
		ContentType:       req.ContentType,
		ContentID:         req.ContentID,
		ReportReason:      req.ReportReason,
		IPAddress:         c.RealIP(),
		DeviceFingerprint: req.DeviceFingerprint,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, report)
}

type submitAppealRequest struct {
	UserID           string   `json:"userId"`
	RestrictionID    *uint    `json:"restrictionId"`
	ReportID         *uint    `json:"reportId"`
	Explanation      string   `json:"explanation"`
	EvidenceURLs     []string `json:"evidenceUrls"`
	PublicInterest   bool     `json:"publicInterest"`
	WhistleblowerTag bool     `json:"whistleblower"`
}

func (srv *Server) HandleSubmitAppeal(c echo.Context) error {
	var req submitAppealRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	appeal, err := srv.engine.SubmitAppeal(c.Request().Context(), engine.AppealInput{
		UserID:           req.UserID,
		RestrictionID:    req.RestrictionID,
		ReportID:         req.ReportID,
		Explanation:      req.Explanation,
		EvidenceURLs:     req.EvidenceURLs,
		PublicInterest:   req.PublicInterest,
		WhistleblowerTag: req.WhistleblowerTag,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appeal)
}

type submitVerificationRequest struct {
	UserID           string `json:"userId"`
	VerificationType string `json:"verificationType"`
	DocumentURL      string `json:"documentUrl"`
	SelfieURL        string `json:"selfieUrl"`
}

func (srv *Server) HandleSubmitVerification(c echo.Context) error {
	var req submitVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	verification, err := srv.engine.SubmitVerification(c.Request().Context(), engine.VerificationInput{
		UserID:           req.UserID,
		VerificationType: req.VerificationType,
		DocumentURL:      req.DocumentURL,
		SelfieURL:        req.SelfieURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, verification)
}

func (srv *Server) HandleCheckAccess(c echo.Context) error {
	access, err := srv.engine.CheckAccess(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, access)
}

func (srv *Server) HandleComplianceCheck(c echo.Context) error {
	action := c.QueryParam("action")
	if action == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing action query parameter")
	}
	result, err := srv.engine.PerformComplianceCheck(c.Request().Context(), c.Param("uid"), action)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (srv *Server) HandleUserSecurityLog(c echo.Context) error {
	entries, err := srv.engine.GetSecurityLog(c.Request().Context(), c.Param("uid"), true, queryLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

type recordEventRequest struct {
	UserID    string         `json:"userId"`
	EventType string         `json:"eventType"`
	Severity  string         `json:"severity"`
	Metadata  map[string]any `json:"metadata"`
	IPAddress string         `json:"ipAddress"`
	UserAgent string         `json:"userAgent"`
}

func (srv *Server) HandleRecordEvent(c echo.Context) error {
	var req recordEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	err := srv.engine.RecordEvent(c.Request().Context(), engine.EventInput{
		UserID:    req.UserID,
		EventType: models.EventType(req.EventType),
		Severity:  models.Severity(req.Severity),
		Metadata:  req.Metadata,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]any{"recorded": true})
}

func (srv *Server) HandleRiskScore(c echo.Context) error {
	score, err := srv.engine.GetUserRiskScore(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, score)
}

type applyRestrictionRequest struct {
	UserID          string     `json:"userId"`
	RestrictionType string     `json:"restrictionType"`
	Reason          string     `json:"reason"`
	AdminID         string     `json:"adminId"`
	EndAt           *time.Time `json:"endAt"`
}

func (srv *Server) HandleApplyRestriction(c echo.Context) error {
	var req applyRestrictionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	restriction, err := srv.engine.ApplyManual(c.Request().Context(), req.UserID,
		models.RestrictionType(req.RestrictionType), req.Reason, req.AdminID, req.EndAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, restriction)
}

type liftRestrictionRequest struct {
	UserID  string `json:"userId"`
	AdminID string `json:"adminId"`
	Notes   string `json:"notes"`
}

func (srv *Server) HandleLiftRestriction(c echo.Context) error {
	var req liftRestrictionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := srv.engine.Lift(c.Request().Context(), req.UserID, req.AdminID, req.Notes); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"lifted": true})
}

func (srv *Server) HandleActiveRestrictions(c echo.Context) error {
	restrictions, err := srv.engine.GetActiveRestrictions(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, restrictions)
}

func (srv *Server) HandlePendingReports(c echo.Context) error {
	reports, err := srv.engine.GetPendingReports(c.Request().Context(), queryLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

type reviewRequest struct {
	AdminID string `json:"adminId"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

func (srv *Server) HandleReviewReport(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	err = srv.engine.ReviewReport(c.Request().Context(), id, req.AdminID,
		models.ReportStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"reviewed": true})
}

func (srv *Server) HandlePendingAppeals(c echo.Context) error {
	appeals, err := srv.engine.GetPendingAppeals(c.Request().Context(), queryLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appeals)
}

func (srv *Server) HandleReviewAppeal(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	err = srv.engine.ReviewAppeal(c.Request().Context(), id, req.AdminID,
		models.AppealStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"reviewed": true})
}

func (srv *Server) HandleReviewVerification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	err = srv.engine.ReviewVerification(c.Request().Context(), id, req.AdminID,
		models.VerificationStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"reviewed": true})
}

func (srv *Server) HandleAdminSecurityLog(c echo.Context) error {
	entries, err := srv.engine.GetSecurityLog(c.Request().Context(), c.Param("uid"), false, queryLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (srv *Server) HandleDashboard(c echo.Context) error {
	summary, err := srv.engine.GetDashboardSummary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func queryLimit(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
