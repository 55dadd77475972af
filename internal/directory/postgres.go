package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"civicdesk/pkg/platform/sentinel"
)

// Postgres reads the live tables owned by the CRUD side of the application.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (d *Postgres) FindRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, title, description, category_id, requester_id, assignee_id, created_at, completed_at
		FROM requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (d *Postgres) FindOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var o Organization
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, postal_code, population
		FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.PostalCode, &o.Population)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &o, nil
}

func (d *Postgres) FindAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	var a Account
	err := d.db.QueryRowContext(ctx, `
		SELECT id, email, name, given_name, role, organization_id
		FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Email, &a.Name, &a.GivenName, &a.Role, &a.OrganizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (d *Postgres) FindCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &c, nil
}

func (d *Postgres) ListAttachments(ctx context.Context, requestID uuid.UUID) ([]Attachment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, request_id, filename, size_bytes
		FROM attachments WHERE request_id = $1 ORDER BY filename`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.Filename, &a.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *Postgres) ListMembers(ctx context.Context, organizationID uuid.UUID) ([]Account, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, email, name, given_name, role, organization_id
		FROM accounts WHERE organization_id = $1 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.GivenName, &a.Role, &a.OrganizationID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *Postgres) ListRecentRequestsByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]Request, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.title, r.description, r.category_id, r.requester_id, r.assignee_id, r.created_at, r.completed_at
		FROM requests r
		JOIN accounts a ON a.id = r.requester_id
		WHERE a.organization_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2`, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent requests: %w", err)
	}
	return collectRequests(rows)
}

func (d *Postgres) ListRequestsByRequester(ctx context.Context, accountID uuid.UUID) ([]Request, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, description, category_id, requester_id, assignee_id, created_at, completed_at
		FROM requests WHERE requester_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list requests by requester: %w", err)
	}
	return collectRequests(rows)
}

func (d *Postgres) ListRequestsByAssignee(ctx context.Context, accountID uuid.UUID) ([]Request, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, description, category_id, requester_id, assignee_id, created_at, completed_at
		FROM requests WHERE assignee_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list requests by assignee: %w", err)
	}
	return collectRequests(rows)
}

func (d *Postgres) ListCompletedRequests(ctx context.Context) ([]Request, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, description, category_id, requester_id, assignee_id, created_at, completed_at
		FROM requests WHERE completed_at IS NOT NULL ORDER BY completed_at`)
	if err != nil {
		return nil, fmt.Errorf("list completed requests: %w", err)
	}
	return collectRequests(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		r           Request
		assigneeID  uuid.NullUUID
		completedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.CategoryID, &r.RequesterID, &assigneeID, &r.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	if assigneeID.Valid {
		r.AssigneeID = &assigneeID.UUID
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func collectRequests(rows *sql.Rows) ([]Request, error) {
	defer rows.Close()
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
