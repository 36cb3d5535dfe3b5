// Package files stores the metadata rows written for uploaded blobs.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert writes rec and fills in the database generated ID and UploadedAt.
// A duplicate path yields common.ErrAlreadyExists; an unknown project yields
// common.ErrorNotFound.
func (r *PostgresRepository) Insert(ctx context.Context, rec *models.StorageRecord) error {
	query := `
		INSERT INTO project_files (project_id, file_name, file_path, file_size, mime_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ParentID, rec.DisplayName, rec.StorageKey, rec.SizeBytes, rec.MimeType).Scan(&rec.ID, &rec.UploadedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

// ListByProject returns the files of a project, newest first.
func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.StorageRecord, error) {
	query := `SELECT id, project_id, file_name, file_path, file_size, mime_type, uploaded_at FROM project_files
		WHERE project_id=$1 ORDER BY uploaded_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.StorageRecord
	for rows.Next() {
		var item models.StorageRecord
		if err := rows.Scan(&item.ID, &item.ParentID, &item.DisplayName, &item.StorageKey,
			&item.SizeBytes, &item.MimeType, &item.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, projectID, id string) (*models.StorageRecord, error) {
	query := `SELECT id, project_id, file_name, file_path, file_size, mime_type, uploaded_at FROM project_files
		WHERE project_id=$1 AND id=$2
	`
	item := &models.StorageRecord{}
	err := r.db.QueryRowContext(ctx, query, projectID, id).Scan(&item.ID, &item.ParentID, &item.DisplayName,
		&item.StorageKey, &item.SizeBytes, &item.MimeType, &item.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

// DeleteByID removes one row. Exactly one row must be affected.
func (r *PostgresRepository) DeleteByID(ctx context.Context, projectID, id string) error {
	query := `DELETE FROM project_files WHERE project_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, query, projectID, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// classify keeps the server message, which ends up in the per-file outcome,
// and attaches a sentinel for the constraint violations callers act on.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrAlreadyExists, pgErr.Message)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, pgErr.Message)
		}
		return errors.New(pgErr.Message)
	}
	return fmt.Errorf("db error: %w", err)
}
