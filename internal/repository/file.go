package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/model"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrShareTokenTaken = errors.New("share token already in use")
)

const fileColumns = `id, owner_id, name, content_type, size, storage_path, share_enabled, share_token, created_at, updated_at`

type FileRepository interface {
	Create(ctx context.Context, file *model.File) error
	ByID(ctx context.Context, id string) (*model.File, error)
	ByOwner(ctx context.Context, ownerID string) ([]*model.File, error)
	ByShareToken(ctx context.Context, token string) (*model.File, error)
	EnableShare(ctx context.Context, id, token string) (*model.File, error)
	DisableShare(ctx context.Context, id string) (*model.File, error)
	Delete(ctx context.Context, id string) error
	StoragePaths(ctx context.Context) (map[string]BlobRef, error)
}

// BlobRef is the part of a record reconciliation compares against the blob store.
type BlobRef struct {
	ID   string `db:"id"`
	Size int64  `db:"size"`
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

// Create assigns the file ID and timestamps, then inserts the row.
func (r *fileRepository) Create(ctx context.Context, file *model.File) error {
	file.ID = uuid.New().String()
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	query := `INSERT INTO files (` + fileColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.OwnerID,
		file.Name,
		file.ContentType,
		file.Size,
		file.StoragePath,
		file.ShareEnabled,
		file.ShareToken,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "share_token") {
			return ErrShareTokenTaken
		}
		return err
	}

	return nil
}

func (r *fileRepository) ByID(ctx context.Context, id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (r *fileRepository) ByOwner(ctx context.Context, ownerID string) ([]*model.File, error) {
	files := []*model.File{}
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY created_at DESC, id`

	err := r.db.SelectContext(ctx, &files, query, ownerID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ByShareToken only matches rows that are currently shared, so a replayed
// token of a disabled file never resolves.
func (r *fileRepository) ByShareToken(ctx context.Context, token string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT ` + fileColumns + ` FROM files WHERE share_token = $1 AND share_enabled = TRUE`

	err := r.db.GetContext(ctx, file, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// EnableShare atomically turns sharing on with the given token.
// Only one concurrent caller can win; the others get the row as it is
// after the winner's update.
func (r *fileRepository) EnableShare(ctx context.Context, id, token string) (*model.File, error) {
	file := &model.File{}
	query := `
		UPDATE files
		SET share_enabled = TRUE, share_token = $1, updated_at = $2
		WHERE id = $3
		AND share_enabled = FALSE
		RETURNING ` + fileColumns

	err := r.db.GetContext(ctx, file, query, token, time.Now().UTC(), id)
	if errors.Is(err, sql.ErrNoRows) {
		// Already shared or gone
		return r.ByID(ctx, id)
	}
	if err != nil {
		if isUniqueViolation(err, "share_token") {
			return nil, ErrShareTokenTaken
		}
		return nil, err
	}

	return file, nil
}

// DisableShare turns sharing off and clears the token unconditionally.
func (r *fileRepository) DisableShare(ctx context.Context, id string) (*model.File, error) {
	file := &model.File{}
	query := `
		UPDATE files
		SET share_enabled = FALSE, share_token = NULL, updated_at = $1
		WHERE id = $2
		RETURNING ` + fileColumns

	err := r.db.GetContext(ctx, file, query, time.Now().UTC(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Delete removes the row. Exactly one of several concurrent deletes
// succeeds; the rest see ErrFileNotFound.
func (r *fileRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrFileNotFound
	}

	return nil
}

// StoragePaths returns storage_path -> record for every file.
func (r *fileRepository) StoragePaths(ctx context.Context) (map[string]BlobRef, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT storage_path, id, size FROM files`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	paths := make(map[string]BlobRef)
	for rows.Next() {
		var storagePath string
		var ref BlobRef
		err = rows.Scan(&storagePath, &ref.ID, &ref.Size)
		if err != nil {
			return nil, err
		}
		paths[storagePath] = ref
	}

	return paths, rows.Err()
}
