package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/engine"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/time/rate"
)

type Server struct {
	engine *engine.Engine
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger

	// per-remote-IP limiters for the report endpoint
	reportLimiters *expirable.LRU[string, *rate.Limiter]
	reportRate     rate.Limit
}

type Config struct {
	Logger          *slog.Logger
	Bind            string
	AdminToken      string
	ReportRateLimit int
}

func NewServer(eng *engine.Engine, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	e := echo.New()

	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		engine:         eng,
		echo:           e,
		logger:         logger,
		reportLimiters: expirable.NewLRU[string, *rate.Limiter](10_000, nil, time.Hour),
		reportRate:     rate.Limit(config.ReportRateLimit),
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)

	// user-facing surface
	e.POST("/api/report", srv.HandleSubmitReport, srv.reportRateLimitMiddleware)
	e.POST("/api/appeal", srv.HandleSubmitAppeal)
	e.POST("/api/verification", srv.HandleSubmitVerification)
	e.GET("/api/access/:uid", srv.HandleCheckAccess)
	e.GET("/api/compliance/:uid", srv.HandleComplianceCheck)
	e.GET("/api/log/:uid", srv.HandleUserSecurityLog)

	// admin surface
	admin := e.Group("/admin", srv.adminAuthMiddleware(config.AdminToken))
	admin.POST("/event", srv.HandleRecordEvent)
	admin.GET("/risk/:uid", srv.HandleRiskScore)
	admin.POST("/restriction", srv.HandleApplyRestriction)
	admin.POST("/restriction/lift", srv.HandleLiftRestriction)
	admin.GET("/restrictions/:uid", srv.HandleActiveRestrictions)
	admin.GET("/reports/pending", srv.HandlePendingReports)
	admin.POST("/report/:id/review", srv.HandleReviewReport)
	admin.GET("/appeals/pending", srv.HandlePendingAppeals)
	admin.POST("/appeal/:id/review", srv.HandleReviewAppeal)
	admin.POST("/verification/:id/review", srv.HandleReviewVerification)
	admin.GET("/log/:uid", srv.HandleAdminSecurityLog)
	admin.GET("/dashboard", srv.HandleDashboard)

	return srv, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI(ctx context.Context) error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-exitSignals:
			srv.logger.Info("received OS exit signal", "signal", sig)
		case <-ctx.Done():
		}
		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}
		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, map[string]any{"status": "ok"})
}

// adminAuthMiddleware requires the configured bearer token on the /admin
// group. With no token configured, the admin surface is disabled outright
// rather than left open.
func (srv *Server) adminAuthMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return echo.NewHTTPError(http.StatusForbidden, "admin API not configured")
			}
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			expected := "Bearer " + token
			if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin token")
			}
			return next(c)
		}
	}
}

// reportRateLimitMiddleware throttles report submissions per remote IP, to
// blunt scripted report floods before they reach coordination detection.
func (srv *Server) reportRateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if srv.reportRate <= 0 {
			return next(c)
		}
		ip := c.RealIP()
		limiter, ok := srv.reportLimiters.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(srv.reportRate, int(srv.reportRate)*2)
			srv.reportLimiters.Add(ip, limiter)
		}
		if !limiter.Allow() {
			return echo.NewHTTPError(http.StatusTooManyRequests, "report rate limit exceeded")
		}
		return next(c)
	}
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	var ve *engine.ValidationError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		msg = ve.Error()
	case errors.Is(err, engine.ErrNotFound):
		code = http.StatusNotFound
		msg = "not found"
	default:
		srv.logger.Error("unhandled request error", "err", err, "path", c.Path())
	}

	c.JSON(code, map[string]any{"error": msg})
}
