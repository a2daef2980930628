package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidName  = errors.New("invalid file name")
	ErrBlobNotFound = errors.New("blob not found")
	ErrWriteFailed  = errors.New("failed to write blob")
	ErrReadFailed   = errors.New("failed to read blob")
	ErrDeleteFailed = errors.New("failed to delete blob")
)

const maxNameLength = 255

// Storage maps opaque storage paths to bytes.
// Every path, whether supplied by a caller or loaded from metadata,
// is re-validated against the backend root before use.
type Storage interface {
	// Put writes content under a unique name derived from suggestedName.
	// Read errors from content abort the write and are returned wrapped.
	Put(ctx context.Context, content io.Reader, suggestedName string) (*Blob, error)

	// Get opens the blob for reading. The caller must close it.
	Get(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes the blob. A missing blob yields ErrBlobNotFound.
	Delete(ctx context.Context, storagePath string) error

	// List returns every blob under the root.
	List(ctx context.Context) ([]BlobInfo, error)
}

// Blob is the result of a successful Put.
type Blob struct {
	Path string
	Size int64
}

type BlobInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// NormalizeName turns a client supplied file name into a flat, traversal
// free logical name. Names that still contain a parent segment after
// cleaning are rejected rather than silently rewritten.
func NormalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character in name", ErrInvalidName)
		}
	}

	// Windows clients send backslash separated paths
	name = strings.ReplaceAll(name, "\\", "/")

	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: parent directory segment", ErrInvalidName)
		}
	}

	base := path.Base(path.Clean(name))
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("%w: no file name", ErrInvalidName)
	}

	if len(base) > maxNameLength {
		return "", fmt.Errorf("%w: name longer than %d bytes", ErrInvalidName, maxNameLength)
	}

	return base, nil
}

// storageName builds the flat on-disk name: {unix nanos}_{12 hex chars of a uuid}_{name}.
// The prefix keeps identical names from concurrent uploads apart.
func storageName(name string, now time.Time) string {
	uid := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%d_%s_%s", now.UnixNano(), uid, name)
}

// ctxReader fails reads once the context is done so long copies stop early.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// countingReader records how many bytes passed through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
