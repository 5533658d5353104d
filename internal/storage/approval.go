package storage

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// ApprovalStore implements domain.ApprovalStore on SQL.
type ApprovalStore struct {
	db *DB
}

func NewApprovalStore(db *DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

func (s *ApprovalStore) CreateApproval(ctx context.Context, a *domain.Approval) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = domain.ApprovalPending
	}
	_, err := s.db.exec(ctx,
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Tool, a.Description, string(a.Status), a.Metadata, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (s *ApprovalStore) GetApproval(ctx context.Context, id string) (*domain.Approval, error) {
	row := s.db.queryRow(ctx,
		`SELECT id, tool, description, status, metadata, created_at FROM mcp_approvals WHERE id = ?`, id,
	)
	a, err := scanApproval(row)
	if err != nil {
		return nil, notFound(err, "approval", id)
	}
	return a, nil
}

func (s *ApprovalStore) ListPendingApprovals(ctx context.Context) ([]domain.Approval, error) {
	rows, err := s.db.query(ctx,
		`SELECT id, tool, description, status, metadata, created_at FROM mcp_approvals WHERE status = ? ORDER BY created_at ASC`,
		string(domain.ApprovalPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var list []domain.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// SetApprovalStatus resolves a pending approval. Resolved approvals are
// not changed again.
func (s *ApprovalStore) SetApprovalStatus(ctx context.Context, id string, status domain.ApprovalStatus) error {
	res, err := s.db.exec(ctx,
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = ?`,
		string(status), id, string(domain.ApprovalPending),
	)
	if err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	return affected(res, "approval", id)
}

func (s *ApprovalStore) DeleteApproval(ctx context.Context, id string) error {
	if _, err := s.db.exec(ctx, `DELETE FROM mcp_approvals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	return nil
}

func scanApproval(row rowScanner) (*domain.Approval, error) {
	var (
		a      domain.Approval
		status string
	)
	if err := row.Scan(&a.ID, &a.Tool, &a.Description, &status, &a.Metadata, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Status = domain.ApprovalStatus(status)
	return &a, nil
}
