package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/templui/fileshare/internal/access"
	"github.com/templui/fileshare/internal/metrics"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/storage"
)

const (
	DefaultMaxUploadSize int64 = 20 << 20
	defaultContentType         = "application/octet-stream"
)

// OwnerChecker reports whether a user id exists. UserService satisfies it.
type OwnerChecker interface {
	OwnerExists(ctx context.Context, id string) (bool, error)
}

type UploadInput struct {
	// OwnerID defaults to the caller when empty
	OwnerID     string
	Name        string
	ContentType string
	// Size is the declared length, or -1 when unknown
	Size    int64
	Content io.Reader
}

// FileService is the entry point for every file operation. It holds no
// per-call state; concurrent operations on one file are serialized by the
// repository.
type FileService struct {
	fileRepo      repository.FileRepository
	storage       storage.Storage
	shareService  *ShareService
	owners        OwnerChecker
	maxUploadSize int64
}

func NewFileService(
	fileRepo repository.FileRepository,
	storage storage.Storage,
	shareService *ShareService,
	owners OwnerChecker,
	maxUploadSize int64,
) *FileService {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &FileService{
		fileRepo:      fileRepo,
		storage:       storage,
		shareService:  shareService,
		owners:        owners,
		maxUploadSize: maxUploadSize,
	}
}

func (s *FileService) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// Upload writes the blob first and the record second. If the record cannot
// be created the blob is removed again before the error is returned.
func (s *FileService) Upload(ctx context.Context, caller model.Caller, in UploadInput) (file *model.File, err error) {
	defer func() { observe("upload", err) }()

	name, err := storage.NormalizeName(in.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, in.Name)
	}

	ownerID := in.OwnerID
	if ownerID == "" {
		ownerID = caller.ID
	}

	err = access.AuthorizeOwner(caller, ownerID, access.ActionUpload)
	if err != nil {
		return nil, err
	}

	if in.Size > s.maxUploadSize {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrTooLarge, in.Size, s.maxUploadSize)
	}

	exists, err := s.owners.OwnerExists(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: check owner %s: %w", ErrMetadataFailed, ownerID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrOwnerNotFound, ownerID)
	}

	if in.Content == nil {
		return nil, fmt.Errorf("%w: no content", ErrStorageWriteFailed)
	}

	blob, err := s.storage.Put(ctx, &limitedReader{r: in.Content, remaining: s.maxUploadSize}, name)
	if err != nil {
		return nil, translatePutErr(err, name)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	file = &model.File{
		OwnerID:     ownerID,
		Name:        name,
		ContentType: contentType,
		Size:        blob.Size,
		StoragePath: blob.Path,
	}

	err = s.fileRepo.Create(ctx, file)
	if err != nil {
		// Don't leave an orphaned blob behind; the caller's context may
		// already be done, so cleanup runs on its own.
		delErr := s.storage.Delete(context.WithoutCancel(ctx), blob.Path)
		if delErr != nil {
			slog.Error("failed to delete blob during upload cleanup", "error", delErr, "storage_path", blob.Path)
		}
		return nil, fmt.Errorf("%w: create record for %s: %w", ErrMetadataFailed, name, err)
	}

	metrics.UploadedBytesTotal.Add(float64(file.Size))
	slog.Info("file uploaded", "file_id", file.ID, "owner_id", file.OwnerID, "size", file.Size)

	return file, nil
}

// File returns the record after checking read access.
func (s *FileService) File(ctx context.Context, caller model.Caller, fileID string) (*model.File, error) {
	return s.authorized(ctx, caller, fileID, access.ActionRead)
}

// Download returns the record and an open stream of its bytes.
// The caller must close the stream.
func (s *FileService) Download(ctx context.Context, caller model.Caller, fileID string) (file *model.File, rc io.ReadCloser, err error) {
	defer func() { observe("download", err) }()

	file, err = s.authorized(ctx, caller, fileID, access.ActionRead)
	if err != nil {
		return nil, nil, err
	}

	rc, err = s.open(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	return file, rc, nil
}

// DownloadShared streams a file by share token. There is no ownership
// check; holding the token is enough.
func (s *FileService) DownloadShared(ctx context.Context, token string) (file *model.File, rc io.ReadCloser, err error) {
	defer func() { observe("download_shared", err) }()

	file, err = s.shareService.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	rc, err = s.open(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	return file, rc, nil
}

// Delete removes the record and then the blob. Both are attempted and both
// failures are reported. A blob that is already gone is not an error, so
// retrying a partially failed delete converges on "record absent".
func (s *FileService) Delete(ctx context.Context, caller model.Caller, fileID string) (err error) {
	defer func() { observe("delete", err) }()

	file, err := s.authorized(ctx, caller, fileID, access.ActionDelete)
	if err != nil {
		return err
	}

	var recordErr error
	err = s.fileRepo.Delete(ctx, file.ID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			// A concurrent delete won; it owns the blob cleanup
			return fmt.Errorf("%w: %s", ErrNotFound, file.ID)
		}
		recordErr = fmt.Errorf("%w: delete record %s: %w", ErrMetadataFailed, file.ID, err)
	}

	var blobErr error
	err = s.storage.Delete(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			slog.Warn("blob already absent during delete", "file_id", file.ID, "storage_path", file.StoragePath)
		} else {
			blobErr = fmt.Errorf("%w: file %s: %w", ErrStorageDeleteFailed, file.ID, err)
		}
	}

	err = errors.Join(recordErr, blobErr)
	if err != nil {
		slog.Error("file delete incomplete", "file_id", file.ID, "error", err)
		return err
	}

	slog.Info("file deleted", "file_id", file.ID, "owner_id", file.OwnerID)
	return nil
}

// ListByOwner returns the caller's own files, newest first.
func (s *FileService) ListByOwner(ctx context.Context, caller model.Caller) ([]*model.File, error) {
	return s.list(ctx, caller.ID)
}

// ListForOwner returns another user's files. Only admins and the owner
// themselves may call it.
func (s *FileService) ListForOwner(ctx context.Context, caller model.Caller, ownerID string) ([]*model.File, error) {
	err := access.AuthorizeOwner(caller, ownerID, access.ActionList)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, ownerID)
}

// ToggleShare flips the share state.
func (s *FileService) ToggleShare(ctx context.Context, caller model.Caller, fileID string) (file *model.File, err error) {
	defer func() { observe("toggle_share", err) }()

	file, err = s.authorized(ctx, caller, fileID, access.ActionShare)
	if err != nil {
		return nil, err
	}

	if file.IsShared() {
		file, err = s.shareService.Disable(ctx, file)
	} else {
		file, err = s.shareService.Enable(ctx, file)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("file share toggled", "file_id", file.ID, "share_enabled", file.ShareEnabled)
	return file, nil
}

// EnableShare makes sure the file is shared. An existing token is kept.
func (s *FileService) EnableShare(ctx context.Context, caller model.Caller, fileID string) (file *model.File, err error) {
	defer func() { observe("enable_share", err) }()

	file, err = s.authorized(ctx, caller, fileID, access.ActionShare)
	if err != nil {
		return nil, err
	}
	return s.shareService.Enable(ctx, file)
}

// DisableShare turns sharing off and clears the token.
func (s *FileService) DisableShare(ctx context.Context, caller model.Caller, fileID string) (file *model.File, err error) {
	defer func() { observe("disable_share", err) }()

	file, err = s.authorized(ctx, caller, fileID, access.ActionShare)
	if err != nil {
		return nil, err
	}
	return s.shareService.Disable(ctx, file)
}

// GenerateShareLink enables sharing if needed and returns the public URL.
// Calling it on a file that is already shared returns the existing link.
func (s *FileService) GenerateShareLink(ctx context.Context, caller model.Caller, fileID string) (url string, err error) {
	defer func() { observe("generate_share_link", err) }()

	file, err := s.authorized(ctx, caller, fileID, access.ActionShare)
	if err != nil {
		return "", err
	}

	file, err = s.shareService.Enable(ctx, file)
	if err != nil {
		return "", err
	}

	return s.shareService.URL(file.Token()), nil
}

// ShareURL returns the public link of a shared file, or "" when sharing is off.
func (s *FileService) ShareURL(file *model.File) string {
	if file == nil || !file.IsShared() {
		return ""
	}
	return s.shareService.URL(file.Token())
}

func (s *FileService) list(ctx context.Context, ownerID string) ([]*model.File, error) {
	files, err := s.fileRepo.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list files of %s: %w", ErrMetadataFailed, ownerID, err)
	}
	return files, nil
}

// authorized loads the record and applies the access guard.
func (s *FileService) authorized(ctx context.Context, caller model.Caller, fileID string, action access.Action) (*model.File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: empty file id", ErrNotFound)
	}

	file, err := s.fileRepo.ByID(ctx, fileID)
	if err != nil {
		return nil, wrapRepoErr(err, fileID)
	}

	err = access.Authorize(caller, file, action)
	if err != nil {
		slog.Warn("file access denied", "file_id", file.ID, "caller_id", caller.ID, "action", action.String())
		return nil, fmt.Errorf("file %s: %w", file.ID, err)
	}

	return file, nil
}

func (s *FileService) open(ctx context.Context, file *model.File) (io.ReadCloser, error) {
	rc, err := s.storage.Get(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			slog.Error("blob missing for file record", "file_id", file.ID, "storage_path", file.StoragePath)
			return nil, fmt.Errorf("%w: content of %s", ErrNotFound, file.ID)
		}
		return nil, fmt.Errorf("%w: file %s: %w", ErrStorageReadFailed, file.ID, err)
	}
	return rc, nil
}

func translatePutErr(err error, name string) error {
	switch {
	case errors.Is(err, ErrTooLarge):
		return err
	case errors.Is(err, storage.ErrInvalidName):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case errors.Is(err, storage.ErrWriteFailed):
		return fmt.Errorf("%w: %s: %w", ErrStorageWriteFailed, name, err)
	default:
		// Read errors from the client stream and context errors
		return fmt.Errorf("upload %s: %w", name, err)
	}
}

func observe(op string, err error) {
	metrics.FileOperationsTotal.WithLabelValues(op, Kind(err)).Inc()
}

// limitedReader fails with ErrTooLarge as soon as more than the allowed
// number of bytes has been read, so oversized uploads stop early.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}

	// Read one byte past the limit to detect overflow
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}

	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	return n, err
}
