package domain

import (
	"context"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is a destructive agent action waiting for the administrator.
type Approval struct {
	ID          string         `json:"id"`
	Tool        string         `json:"tool"`
	Description string         `json:"description"`
	Status      ApprovalStatus `json:"status"`
	Metadata    string         `json:"metadata"` // JSON with the affected ids
	CreatedAt   time.Time      `json:"createdAt"`
}

// ApprovalStore lets a standalone agent process and the server share
// pending approvals through the database.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a *Approval) error
	GetApproval(ctx context.Context, id string) (*Approval, error)
	ListPendingApprovals(ctx context.Context) ([]Approval, error)
	SetApprovalStatus(ctx context.Context, id string, status ApprovalStatus) error
	DeleteApproval(ctx context.Context, id string) error
}
