package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civicdesk/internal/archive/models"
	"civicdesk/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists archive records with the snapshot as JSONB. The unique
// index on (entity_kind, entity_id) is the authoritative double-archive
// defense; Create never pre-checks.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the archive table and its uniqueness constraint.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS archive_records (
			id          UUID PRIMARY KEY,
			entity_kind TEXT NOT NULL,
			entity_id   UUID NOT NULL,
			snapshot    JSONB NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			archived_by UUID,
			archived_at TIMESTAMPTZ NOT NULL,
			UNIQUE (entity_kind, entity_id)
		)`)
	if err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

func (s *Postgres) Create(ctx context.Context, rec *models.ArchiveRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	var archivedBy any
	if rec.ArchivedBy != nil {
		archivedBy = *rec.ArchivedBy
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO archive_records (id, entity_kind, entity_id, snapshot, reason, archived_by, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.EntityKind, rec.EntityID, snapshot, rec.Reason, archivedBy, rec.ArchivedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert archive record: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) (*models.ArchiveRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_kind, entity_id, snapshot, reason, archived_by, archived_at
		FROM archive_records
		WHERE entity_kind = $1 AND entity_id = $2`, kind, entityID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find archive record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) Delete(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM archive_records
		WHERE entity_kind = $1 AND entity_id = $2`, kind, entityID)
	if err != nil {
		return fmt.Errorf("delete archive record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete archive record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, kind models.EntityKind, filters models.ListFilters, page models.Page) (*models.ListResult, error) {
	where, args := buildWhere(kind, filters)
	p := page.Normalize()

	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_records`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count archive records: %w", err)
	}

	query := `
		SELECT id, entity_kind, entity_id, snapshot, reason, archived_by, archived_at
		FROM archive_records` + where + `
		ORDER BY archived_at DESC
		LIMIT ` + strconv.Itoa(p.Limit) + ` OFFSET ` + strconv.Itoa(p.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archive records: %w", err)
	}
	defer rows.Close()

	records := []models.ArchiveRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list archive records: %w", err)
	}

	return &models.ListResult{Records: records, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (s *Postgres) CountByKind(ctx context.Context) (map[models.EntityKind]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_kind, COUNT(*) FROM archive_records GROUP BY entity_kind`)
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.EntityKind]int64)
	for rows.Next() {
		var (
			kind  models.EntityKind
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func (s *Postgres) ArchivedEntityIDs(ctx context.Context, kind models.EntityKind) (map[uuid.UUID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id FROM archive_records WHERE entity_kind = $1`, kind)
	if err != nil {
		return nil, fmt.Errorf("list archived entity ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// buildWhere compiles the typed filter struct to SQL over fixed snapshot
// paths. Filter fields map one-to-one to known JSONB keys; no caller-supplied
// path expressions are ever interpolated.
func buildWhere(kind models.EntityKind, f models.ListFilters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if kind != "" {
		clauses = append(clauses, "entity_kind = "+arg(kind))
	}
	if f.ArchivedFrom != nil {
		clauses = append(clauses, "archived_at >= "+arg(*f.ArchivedFrom))
	}
	if f.ArchivedTo != nil {
		clauses = append(clauses, "archived_at <= "+arg(*f.ArchivedTo))
	}
	if f.Role != "" {
		clauses = append(clauses, "snapshot->'account'->>'role' = "+arg(f.Role))
	}
	if f.PopulationMin != nil {
		clauses = append(clauses,
			"(snapshot->'organization'->>'population')::bigint >= "+arg(*f.PopulationMin))
	}
	if f.PopulationMax != nil {
		clauses = append(clauses,
			"(snapshot->'organization'->>'population')::bigint <= "+arg(*f.PopulationMax))
	}
	if f.Search != "" {
		pattern := arg("%" + f.Search + "%")
		clauses = append(clauses, `(
			snapshot->'request'->>'title' ILIKE `+pattern+` OR
			snapshot->'request'->'requester'->>'name' ILIKE `+pattern+` OR
			snapshot->'request'->'requester'->>'email' ILIKE `+pattern+` OR
			snapshot->'request'->'responder'->>'name' ILIKE `+pattern+` OR
			snapshot->'request'->'responder'->>'email' ILIKE `+pattern+` OR
			snapshot->'organization'->>'name' ILIKE `+pattern+` OR
			snapshot->'account'->>'name' ILIKE `+pattern+` OR
			snapshot->'account'->>'given_name' ILIKE `+pattern+` OR
			snapshot->'account'->>'email' ILIKE `+pattern+`
		)`)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ArchiveRecord, error) {
	var (
		rec        models.ArchiveRecord
		snapshot   []byte
		archivedBy uuid.NullUUID
	)
	err := row.Scan(&rec.ID, &rec.EntityKind, &rec.EntityID, &snapshot, &rec.Reason, &archivedBy, &rec.ArchivedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if archivedBy.Valid {
		rec.ArchivedBy = &archivedBy.UUID
	}
	return &rec, nil
}
