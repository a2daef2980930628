package service

import (
	"errors"

	"github.com/templui/fileshare/internal/access"
)

// File operation failures. Every error returned by FileService and
// ShareService wraps exactly one of these.
var (
	ErrInvalidName         = errors.New("invalid file name")
	ErrTooLarge            = errors.New("file exceeds maximum upload size")
	ErrOwnerNotFound       = errors.New("owner not found")
	ErrNotFound            = errors.New("file not found")
	ErrForbidden           = access.ErrForbidden
	ErrStorageWriteFailed  = errors.New("failed to write file to storage")
	ErrStorageReadFailed   = errors.New("failed to read file from storage")
	ErrStorageDeleteFailed = errors.New("failed to delete file from storage")
	ErrMetadataFailed      = errors.New("failed to access file metadata")
	ErrTokenCollision      = errors.New("share token collision")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidName, "invalid_name"},
	{ErrTooLarge, "too_large"},
	{ErrOwnerNotFound, "owner_not_found"},
	{ErrNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrStorageWriteFailed, "storage_write_failed"},
	{ErrStorageReadFailed, "storage_read_failed"},
	{ErrStorageDeleteFailed, "storage_delete_failed"},
	{ErrMetadataFailed, "metadata_failed"},
	{ErrTokenCollision, "token_collision"},
}

// Kind returns a short label for the error's kind, "ok" for nil and
// "error" for anything unclassified (timeouts, cancellation).
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "error"
}
