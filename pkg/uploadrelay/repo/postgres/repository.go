package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements uploadrelay.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const fileColumns = `file_key, custom_id, name, size, mime_type, status, acl,
	content_disposition, file_hash, uploaded_at, created_at, updated_at`

// CreateIfAbsent inserts the record unless the key is taken. The
// first-registration-wins race is resolved by the database, not by
// application-level locking.
func (r *Repository) CreateIfAbsent(ctx context.Context, record *uploadrelay.FileRecord) (*uploadrelay.FileRecord, bool, error) {
	query := `
		INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (file_key) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		record.Key, nullString(record.CustomID), record.Name, record.Size,
		nullString(record.Type), string(record.Status), string(record.ACL),
		string(record.ContentDisposition), nullString(record.FileHash),
		record.UploadedAt, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, false, r.handlePostgresError("create file", err)
	}

	if tag.RowsAffected() == 0 {
		existing, err := r.FindByIdentifier(ctx, record.Key)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	stored := *record
	return &stored, true, nil
}

// Update replaces the record identified by record.Key and returns the
// updated row
func (r *Repository) Update(ctx context.Context, record *uploadrelay.FileRecord) (*uploadrelay.FileRecord, error) {
	query := `
		UPDATE files SET
			custom_id = $2, name = $3, size = $4, mime_type = $5, status = $6,
			acl = $7, content_disposition = $8, file_hash = $9,
			uploaded_at = $10, updated_at = $11
		WHERE file_key = $1
		RETURNING ` + fileColumns

	row := r.db.QueryRow(ctx, query,
		record.Key, nullString(record.CustomID), record.Name, record.Size,
		nullString(record.Type), string(record.Status), string(record.ACL),
		string(record.ContentDisposition), nullString(record.FileHash),
		record.UploadedAt, record.UpdatedAt)

	updated, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uploadrelay.ErrFileNotFound
		}
		return nil, r.handlePostgresError("update file", err)
	}
	return updated, nil
}

// FindByIdentifier resolves a record by key or custom ID
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*uploadrelay.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE file_key = $1 OR custom_id = $1
		LIMIT 1`

	record, err := scanFile(r.db.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uploadrelay.ErrFileNotFound
		}
		return nil, r.handlePostgresError("find file", err)
	}
	return record, nil
}

// List returns records ordered by creation time, newest first, plus the
// total count matching the filter
func (r *Repository) List(ctx context.Context, filter uploadrelay.ListFilter) ([]*uploadrelay.FileRecord, int64, error) {
	where, args := statusPredicate(filter.Statuses)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files`+where, args...).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count files", err)
	}

	query := `SELECT ` + fileColumns + ` FROM files` + where +
		` ORDER BY created_at DESC, file_key DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handlePostgresError("list files", err)
	}
	defer rows.Close()

	var records []*uploadrelay.FileRecord
	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return nil, 0, r.handlePostgresError("list files", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.handlePostgresError("list files", err)
	}
	return records, total, nil
}

// DeleteByKeys removes records by key and returns the count removed
func (r *Repository) DeleteByKeys(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE file_key = ANY($1)`, keys)
	if err != nil {
		return 0, r.handlePostgresError("delete files", err)
	}
	return tag.RowsAffected(), nil
}

// SumSize returns the aggregate declared size of records in the given
// statuses (all records when none are given)
func (r *Repository) SumSize(ctx context.Context, statuses ...uploadrelay.FileStatus) (int64, error) {
	where, args := statusPredicate(statuses)

	var sum int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(size), 0) FROM files`+where, args...).Scan(&sum)
	if err != nil {
		return 0, r.handlePostgresError("sum file sizes", err)
	}
	return sum, nil
}

func statusPredicate(statuses []uploadrelay.FileStatus) (string, []interface{}) {
	if len(statuses) == 0 {
		return "", nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return " WHERE status = ANY($1)", []interface{}{values}
}

func scanFile(row pgx.Row) (*uploadrelay.FileRecord, error) {
	var record uploadrelay.FileRecord
	var customID, mimeType, fileHash sql.NullString
	var uploadedAt sql.NullTime

	err := row.Scan(
		&record.Key, &customID, &record.Name, &record.Size, &mimeType,
		&record.Status, &record.ACL, &record.ContentDisposition, &fileHash,
		&uploadedAt, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	record.CustomID = customID.String
	record.Type = mimeType.String
	record.FileHash = fileHash.String
	if uploadedAt.Valid {
		t := uploadedAt.Time
		record.UploadedAt = &t
	}
	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// handlePostgresError maps low-level driver errors to stable messages
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "custom_id") {
				return fmt.Errorf("custom id already in use")
			}
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
