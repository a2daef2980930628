package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tmpDirName = ".tmp"

// LocalStorage keeps blobs as flat files under a single root directory.
// All operations are confined to the root to prevent path traversal.
type LocalStorage struct {
	root string // Absolute, symlinks resolved
	now  func() time.Time
}

// NewLocalStorage creates the root (and its temp directory) if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	err = os.MkdirAll(filepath.Join(absRoot, tmpDirName), 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	// Compare against the real location so symlinked roots still pass the prefix check
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	slog.Info("initializing local storage", "root", realRoot)

	return &LocalStorage{
		root: realRoot,
		now:  time.Now,
	}, nil
}

// Root returns the absolute storage root.
func (s *LocalStorage) Root() string {
	return s.root
}

// Put streams content to a temp file, fsyncs it and publishes it with a
// hard link, which fails rather than overwriting an existing blob.
func (s *LocalStorage) Put(ctx context.Context, content io.Reader, suggestedName string) (*Blob, error) {
	name, err := NormalizeName(suggestedName)
	if err != nil {
		return nil, err
	}

	storagePath := storageName(name, s.now())
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDirName), "upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	src := &countingReader{r: ctxReader{ctx: ctx, r: content}}
	_, err = io.Copy(tmp, src)
	if err != nil {
		_ = tmp.Close()
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && pathErr.Path == tmpPath {
			return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}

	err = tmp.Sync()
	if err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("%w: fsync: %v", ErrWriteFailed, err)
	}

	err = tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	err = os.Link(tmpPath, fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: publish %s: %v", ErrWriteFailed, storagePath, err)
	}

	return &Blob{Path: storagePath, Size: src.n}, nil
}

func (s *LocalStorage) Get(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlobNotFound, err)
	}

	// A symlink planted inside the root must not lead outside it
	realPath, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, storagePath)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if !s.within(realPath) {
		return nil, fmt.Errorf("%w: %s resolves outside root", ErrBlobNotFound, storagePath)
	}

	f, err := os.Open(realPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, storagePath)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrBlobNotFound, storagePath)
	}

	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, storagePath string) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlobNotFound, err)
	}

	info, err := os.Lstat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, storagePath)
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	// Safety check - never remove directories through the blob API
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrDeleteFailed, storagePath)
	}

	err = os.Remove(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, storagePath)
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	return nil
}

func (s *LocalStorage) List(ctx context.Context) ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list root: %v", ErrReadFailed, err)
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		err = ctx.Err()
		if err != nil {
			return nil, err
		}

		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}

		blobs = append(blobs, BlobInfo{
			Path:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return blobs, nil
}

// resolve maps a storage path onto an absolute path inside the root.
// It never trusts that the value was normalized when it was stored.
func (s *LocalStorage) resolve(storagePath string) (string, error) {
	if storagePath == "" || strings.ContainsRune(storagePath, 0) {
		return "", fmt.Errorf("malformed storage path %q", storagePath)
	}

	cleaned := filepath.Clean(filepath.FromSlash(storagePath))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("absolute storage path %q", storagePath)
	}

	absPath, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", err
	}

	if !s.within(absPath) || filepath.Dir(absPath) == filepath.Join(s.root, tmpDirName) {
		return "", fmt.Errorf("storage path %q escapes root", storagePath)
	}

	return absPath, nil
}

func (s *LocalStorage) within(absPath string) bool {
	return strings.HasPrefix(absPath, s.root+string(filepath.Separator))
}
