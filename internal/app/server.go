package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/service"
)

// Echo builds the HTTP API. Startup must have run.
func (a *App) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = a.errorHandler

	e.Use(middleware.Recover())
	e.Use(a.requestLogger())

	// ── Public ─────────────────────────────────────────
	e.GET("/api/health", a.handleHealth)
	e.GET("/api/products", a.handleListProducts)
	e.GET("/api/products/:slug", a.handleGetProduct)
	e.POST("/api/products/:id/click", a.handleTrackClick)
	e.GET("/go/:slug", a.handleGoRedirect)
	e.GET("/api/content", a.handleContent)
	e.GET("/api/nav", a.handleNav)
	e.GET("/api/pages/:slug", a.handlePublishedPage)
	e.POST("/api/newsletter", a.handleSubscribe)
	e.Static("/uploads", a.uploads.Dir())

	// ── Admin ──────────────────────────────────────────
	admin := e.Group("/api/admin", a.adminAuth())
	admin.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	admin.GET("/events", a.handleEvents)

	admin.GET("/products", a.handleAdminListProducts)
	admin.POST("/products", a.handleCreateProduct)
	admin.PUT("/products/:id", a.handleUpdateProduct)
	admin.DELETE("/products/:id", a.handleDeleteProduct)
	admin.GET("/products/:id/clicks", a.handleClickStats)

	admin.GET("/content", a.handleListContent)
	admin.PUT("/content/:key", a.handleSetContent)
	admin.DELETE("/content/:key", a.handleDeleteContent)

	admin.GET("/nav", a.handleListNav)
	admin.POST("/nav", a.handleCreateNav)
	admin.POST("/nav/reorder", a.handleReorderNav)
	admin.PUT("/nav/:id", a.handleUpdateNav)
	admin.DELETE("/nav/:id", a.handleDeleteNav)

	admin.GET("/pages", a.handleListPages)
	admin.POST("/pages", a.handleCreatePage)
	admin.GET("/pages/:id", a.handleGetPage)
	admin.PUT("/pages/:id", a.handleUpdatePage)
	admin.DELETE("/pages/:id", a.handleDeletePage)

	builder := admin.Group("/pages/:id/builder")
	builder.GET("", a.handleBuilderState)
	builder.DELETE("", a.handleDiscardSession)
	builder.POST("/elements", a.handleAddElement)
	builder.PATCH("/elements/:eid", a.handleUpdateElement)
	builder.DELETE("/elements/:eid", a.handleRemoveElement)
	builder.POST("/elements/:eid/duplicate", a.handleDuplicateElement)
	builder.POST("/elements/:eid/move", a.handleMoveElement)
	builder.PATCH("/settings", a.handleUpdateSettings)
	builder.POST("/undo", a.handleUndo)
	builder.POST("/redo", a.handleRedo)
	builder.POST("/save", a.handleSave)

	admin.POST("/uploads", a.handleUpload)
	admin.GET("/subscribers", a.handleListSubscribers)

	admin.GET("/feeds", a.handleListFeeds)
	admin.POST("/feeds/:name/run", a.handleRunFeed)

	admin.GET("/jobs", a.handleListJobs)
	admin.POST("/jobs/:name/run", a.handleRunJob)

	admin.GET("/approvals", a.handleListApprovals)
	admin.POST("/approvals/:id/approve", a.handleResolveApproval(true))
	admin.POST("/approvals/:id/reject", a.handleResolveApproval(false))

	if a.mcp != nil {
		admin.Any("/mcp", echo.WrapHandler(a.mcp.Handler()))
	}

	return e
}

// Run serves the HTTP API and runs the scheduler, the fallback watcher and
// the approval watcher until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Echo(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.scheduler.Run(ctx) })
	g.Go(func() error { return a.fallback.Watch(ctx) })
	g.Go(func() error {
		newApprovalWatcher(a.backend.Approvals, a.pages, a.broker, a.log.Named("watcher")).Run(ctx)
		return nil
	})

	return g.Wait()
}

// ── Middleware ─────────────────────────────────────────────

// requestLogger logs every request through zap.
func (a *App) requestLogger() echo.MiddlewareFunc {
	log := a.log.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Status >= http.StatusBadRequest:
				log.Info("request", fields...)
			default:
				log.Debug("request", fields...)
			}
			return nil
		},
	})
}

// adminAuth checks HTTP Basic credentials against the configured admin
// pair. With no password configured every admin request is refused.
func (a *App) adminAuth() echo.MiddlewareFunc {
	user := []byte(a.cfg.Admin.Username)
	pass := []byte(a.cfg.Admin.Password)
	if len(pass) == 0 {
		a.log.Warn("admin.password is not set, admin API disabled")
	}
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "storefront admin",
		Validator: func(u, p string, c echo.Context) (bool, error) {
			if len(pass) == 0 {
				return false, nil
			}
			userOK := subtle.ConstantTimeCompare([]byte(u), user) == 1
			passOK := subtle.ConstantTimeCompare([]byte(p), pass) == 1
			return userOK && passOK, nil
		},
	})
}

// ── Errors ─────────────────────────────────────────────────

// httpError maps service errors onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrUnknownElementType),
		errors.Is(err, domain.ErrInvalidUpload):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrJobRunning):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := httpError(err)
	if he.Code >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	body := map[string]any{"message": he.Message}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, body)
	}
	if err != nil {
		a.log.Warn("write error response", zap.Error(err))
	}
}

// withFallback marks responses served from the fallback data.
func withFallback(c echo.Context, fromFallback bool) {
	if fromFallback {
		c.Response().Header().Set("X-Fallback", "true")
	}
}
