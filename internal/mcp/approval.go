package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/service"
)

// Approval events sent to the admin UI.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// PendingAction is a destructive tool call awaiting the administrator.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with the affected ids
}

// actionResult is sent through the channel when the action is resolved.
type actionResult struct {
	approved bool
}

type pendingEntry struct {
	action PendingAction
	ch     chan actionResult
}

// ApprovalQueue holds destructive MCP tool calls until the administrator
// approves or rejects them. It has two modes:
//   - in-process (MCP mounted in the server): channels plus emitted events
//   - store-backed (standalone stdio MCP): rows in the approvals store,
//     polled until the server resolves them
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]pendingEntry
	ctx     context.Context
	emitter service.EventEmitter
	timeout time.Duration
	poll    time.Duration
	store   domain.ApprovalStore
}

func NewApprovalQueue(ctx context.Context, emitter service.EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]pendingEntry),
		ctx:     ctx,
		emitter: emitter,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// SetStore switches the queue to store-backed mode.
func (q *ApprovalQueue) SetStore(store domain.ApprovalStore) {
	q.store = store
}

// SetTimeout changes how long a request waits before it is rejected.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.timeout = d
}

// Request announces an approval request and blocks until it is approved,
// rejected, timed out or ctx is cancelled.
// metadata is optional JSON with extra context (e.g. the page id).
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string, metadata ...string) (bool, error) {
	id := uuid.NewString()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}

	if q.store != nil {
		return q.requestViaStore(ctx, id, tool, description, meta)
	}
	return q.requestViaChannel(ctx, id, tool, description, meta)
}

// requestViaStore writes a pending approval and polls until it is resolved.
func (q *ApprovalQueue) requestViaStore(ctx context.Context, id, tool, description, metadata string) (bool, error) {
	a := &domain.Approval{ID: id, Tool: tool, Description: description, Metadata: metadata}
	if err := q.store.CreateApproval(ctx, a); err != nil {
		return false, fmt.Errorf("create approval: %w", err)
	}
	// The row is removed whatever the outcome; a fresh context keeps the
	// cleanup working after cancellation.
	defer q.store.DeleteApproval(context.WithoutCancel(ctx), id)

	deadline := time.NewTimer(q.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			got, err := q.store.GetApproval(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return false, fmt.Errorf("approval %s disappeared: %s", id, tool)
				}
				continue
			}
			switch got.Status {
			case domain.ApprovalApproved:
				return true, nil
			case domain.ApprovalRejected:
				return false, fmt.Errorf("action rejected by user: %s", tool)
			}
		case <-deadline.C:
			return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
		case <-ctx.Done():
			return false, ctx.Err()
		case <-q.ctx.Done():
			return false, fmt.Errorf("context cancelled")
		}
	}
}

// requestViaChannel waits for Approve or Reject from the same process.
func (q *ApprovalQueue) requestViaChannel(ctx context.Context, id, tool, description, metadata string) (bool, error) {
	action := PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	}
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[id] = pendingEntry{action: action, ch: ch}
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(q.ctx, EventApprovalRequired, action)

	deadline := time.NewTimer(q.timeout)
	defer deadline.Stop()

	select {
	case result := <-ch:
		if !result.approved {
			return false, fmt.Errorf("action rejected by user: %s", tool)
		}
		return true, nil
	case <-deadline.C:
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": id})
		return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-ctx.Done():
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": id})
		return false, ctx.Err()
	}
}

// Pending lists the in-process actions awaiting a decision, oldest first.
func (q *ApprovalQueue) Pending() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, 0, len(q.pending))
	for _, e := range q.pending {
		out = append(out, e.action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// Approve resolves an in-process action. It reports whether the id was
// pending here.
func (q *ApprovalQueue) Approve(actionID string) bool {
	return q.resolve(actionID, true)
}

// Reject is Approve's counterpart.
func (q *ApprovalQueue) Reject(actionID string) bool {
	return q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) bool {
	q.mu.Lock()
	e, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case e.ch <- actionResult{approved: approved}:
	default:
	}
	return true
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
