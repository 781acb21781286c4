package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/blob"
)

// ImageStore is the inline blob.Store: image bytes live in the images
// table next to the rest of the data. Suited to profile pictures and other
// small files; use the GridFS backend for anything large.
type ImageStore struct {
	db *DB
}

var _ blob.Store = (*ImageStore)(nil)

// Images returns the inline blob store sharing this database.
func (db *DB) Images() *ImageStore {
	return &ImageStore{db: db}
}

// Put stores b and assigns its ID, Size and CreatedAt.
func (s *ImageStore) Put(ctx context.Context, b *blob.Blob) error {
	b.ID = xid.New().String()
	b.Size = int64(len(b.Data))
	b.CreatedAt = time.Now()

	_, err := s.db.conn.NamedExecContext(ctx,
		`INSERT INTO images (id, filename, content_type, size, uploaded_by, category, data, created_at)
		 VALUES (:id, :filename, :content_type, :size, :uploaded_by, :category, :data, :created_at)`,
		b,
	)
	if err != nil {
		return fmt.Errorf("sqlite: storing image %q: %w", b.Filename, err)
	}
	return nil
}

// Get loads an image with its bytes.
func (s *ImageStore) Get(ctx context.Context, id string) (*blob.Blob, error) {
	var b blob.Blob
	err := s.db.conn.GetContext(ctx, &b,
		`SELECT id, filename, content_type, size, uploaded_by, category, data, created_at
		 FROM images WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, fmt.Errorf("sqlite: getting image %s: %w", id, err)
	}
	return &b, nil
}

// Delete removes an image.
func (s *ImageStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting image %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("image", id)
	}
	return nil
}
