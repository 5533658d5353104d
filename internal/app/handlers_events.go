package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront/internal/domain"
	mcpserver "storefront/internal/mcp"
)

// handleEvents streams broker events to the admin UI as server-sent events.
func (a *App) handleEvents(c echo.Context) error {
	events, unsubscribe := a.broker.Subscribe(32)
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				a.log.Warn("encode event", zap.String("event", ev.Name), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// ── MCP approvals ──────────────────────────────────────────

// handleListApprovals lists pending destructive agent actions from the
// in-process MCP server and from standalone processes.
func (a *App) handleListApprovals(c echo.Context) error {
	out := []mcpserver.PendingAction{}
	if a.mcp != nil {
		out = append(out, a.mcp.Approvals().Pending()...)
	}
	if a.backend.Approvals != nil {
		stored, err := a.backend.Approvals.ListPendingApprovals(c.Request().Context())
		if err != nil {
			return err
		}
		for _, ap := range stored {
			out = append(out, mcpserver.PendingAction{
				ID:          ap.ID,
				Tool:        ap.Tool,
				Description: ap.Description,
				CreatedAt:   ap.CreatedAt.UTC().Format(time.RFC3339),
				Metadata:    ap.Metadata,
			})
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (a *App) handleResolveApproval(approve bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if a.mcp != nil {
			q := a.mcp.Approvals()
			resolve := q.Reject
			if approve {
				resolve = q.Approve
			}
			if resolve(id) {
				return c.NoContent(http.StatusNoContent)
			}
		}
		if a.backend.Approvals == nil {
			return fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
		}
		status := domain.ApprovalRejected
		if approve {
			status = domain.ApprovalApproved
		}
		if err := a.backend.Approvals.SetApprovalStatus(c.Request().Context(), id, status); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
