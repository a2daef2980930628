package model

import (
	"time"
)

// SharePath is the fixed path segment between the base URL and a share token.
const SharePath = "/files/shared/"

type File struct {
	ID           string    `db:"id"`
	OwnerID      string    `db:"owner_id"`
	Name         string    `db:"name"`         // Normalized logical name, never a path
	ContentType  string    `db:"content_type"` // Declared by the uploader, advisory only
	Size         int64     `db:"size"`
	StoragePath  string    `db:"storage_path"` // Opaque handle into the blob store
	ShareEnabled bool      `db:"share_enabled"`
	ShareToken   *string   `db:"share_token"` // Non-nil iff ShareEnabled
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (f *File) IsShared() bool {
	return f.ShareEnabled && f.ShareToken != nil && *f.ShareToken != ""
}

// Token returns the share token or an empty string when sharing is off.
func (f *File) Token() string {
	if !f.IsShared() {
		return ""
	}
	return *f.ShareToken
}
