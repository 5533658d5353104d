package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// logEmitter stands in for the event broker in MCP-only mode, where no
// admin UI is listening. Events only reach the debug log.
type logEmitter struct {
	log *zap.Logger
}

func (e logEmitter) Emit(_ context.Context, event string, data any) {
	e.log.Debug("event", zap.String("event", event), zap.Any("data", data))
}

// ServeMCP runs the standalone MCP server on stdin/stdout until the client
// disconnects. Destructive tools wait for approval through the store, so a
// running `serve` process must resolve them. Startup must have run.
func (a *App) ServeMCP(ctx context.Context) error {
	if a.backend.Approvals == nil {
		return fmt.Errorf("%s store has no approvals table", a.backend.Driver)
	}
	srv := a.newMCP(ctx, logEmitter{log: a.log.Named("events")})
	a.log.Info("mcp stdio server starting")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}
