// Package blob defines the storage contract for uploaded binary data
// (profile pictures and other images).
//
// Two backends implement Store: inline rows in the SQLite database
// (repository/sqlite) for small deployments, and MongoDB GridFS
// (blob/gridfs) for large files. One is selected at startup; the rest of the
// application only sees the interface.
package blob

import (
	"context"
	"time"
)

// CategoryProfile tags images uploaded as profile pictures.
const CategoryProfile = "profile"

// Blob is an uploaded file and its metadata.
//
// Data is populated on Put and on Get. UploadedBy is the user id of the
// uploader and drives the ownership checks in the profile service.
type Blob struct {
	ID          string    `json:"id"          db:"id"`
	Filename    string    `json:"filename"    db:"filename"`
	ContentType string    `json:"contentType" db:"content_type"`
	Size        int64     `json:"size"        db:"size"`
	UploadedBy  string    `json:"uploadedBy"  db:"uploaded_by"`
	Category    string    `json:"category"    db:"category"`
	Data        []byte    `json:"-"           db:"data"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// Store persists blobs.
//
// Put assigns ID, Size and CreatedAt. Get returns apperror.ErrNotFound for
// unknown ids. Delete returns apperror.ErrNotFound when nothing was removed.
type Store interface {
	Put(ctx context.Context, b *Blob) error
	Get(ctx context.Context, id string) (*Blob, error)
	Delete(ctx context.Context, id string) error
}
