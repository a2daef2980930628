package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/fileshare/internal/db/dbtest"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/storage"
)

const baseURL = "https://files.example.com"

type testEnv struct {
	files    *service.FileService
	fileRepo repository.FileRepository
	userRepo repository.UserRepository
	store    *storage.LocalStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, nil)
}

// newTestEnvWith lets a test swap in a failing repository or blob store.
func newTestEnvWith(t *testing.T, wrapRepo func(repository.FileRepository) repository.FileRepository, wrapStore func(storage.Storage) storage.Storage) *testEnv {
	t.Helper()

	database := dbtest.New(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	fileRepo := repository.NewFileRepository(database)
	userRepo := repository.NewUserRepository(database)

	var repo repository.FileRepository = fileRepo
	if wrapRepo != nil {
		repo = wrapRepo(fileRepo)
	}
	var blobs storage.Storage = store
	if wrapStore != nil {
		blobs = wrapStore(store)
	}

	users := service.NewUserService(userRepo)
	shares := service.NewShareService(repo, baseURL)

	return &testEnv{
		files:    service.NewFileService(repo, blobs, shares, users, service.DefaultMaxUploadSize),
		fileRepo: fileRepo,
		userRepo: userRepo,
		store:    store,
	}
}

// user inserts a user directly; bcrypt hashing is irrelevant here.
func (e *testEnv) user(t *testing.T, username string, role model.Role) model.Caller {
	t.Helper()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		RoleName:     role.String(),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user.Caller()
}

func (e *testEnv) upload(t *testing.T, caller model.Caller, name, content string) *model.File {
	t.Helper()
	file, err := e.files.Upload(context.Background(), caller, service.UploadInput{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	})
	require.NoError(t, err)
	return file
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	blobs, err := e.store.List(context.Background())
	require.NoError(t, err)
	return len(blobs)
}

func readAndClose(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestFileService_UploadDownload(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	admin := env.user(t, "root", model.RoleAdmin)

	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i * 7)
	}

	file, err := env.files.Upload(ctx, alice, service.UploadInput{
		Name:    "data.bin",
		Size:    -1,
		Content: bytes.NewReader(content),
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, file.OwnerID)
	assert.Equal(t, "data.bin", file.Name)
	assert.Equal(t, int64(len(content)), file.Size)
	assert.Equal(t, "application/octet-stream", file.ContentType)
	assert.False(t, file.ShareEnabled)

	for _, caller := range []model.Caller{alice, admin} {
		got, rc, err := env.files.Download(ctx, caller, file.ID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, got.ID)
		assert.Equal(t, content, readAndClose(t, rc))
	}

	_, _, err = env.files.Download(ctx, alice, uuid.New().String())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFileService_UploadRejectsTraversal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.user(t, "alice", model.RoleUser)

	for _, name := range []string{"../../etc/passwd", "..", "a/../../b", "..\\secret", ""} {
		_, err := env.files.Upload(context.Background(), alice, service.UploadInput{
			Name:    name,
			Size:    4,
			Content: strings.NewReader("evil"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidName, "%q", name)
	}

	assert.Zero(t, env.blobCount(t))
	files, err := env.files.ListByOwner(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileService_UploadTooLarge(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)

	t.Run("streamed", func(t *testing.T) {
		// Size unknown up front, so the limit has to trip mid-stream
		payload := io.LimitReader(zeroReader{}, 25<<20)
		_, err := env.files.Upload(ctx, alice, service.UploadInput{
			Name:    "big.iso",
			Size:    -1,
			Content: payload,
		})
		assert.ErrorIs(t, err, service.ErrTooLarge)
	})

	t.Run("declared", func(t *testing.T) {
		_, err := env.files.Upload(ctx, alice, service.UploadInput{
			Name:    "big.iso",
			Size:    25 << 20,
			Content: &failingReader{err: errors.New("must not be read")},
		})
		assert.ErrorIs(t, err, service.ErrTooLarge)
	})

	assert.Zero(t, env.blobCount(t))
	tmp, err := os.ReadDir(filepath.Join(env.store.Root(), ".tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp)

	files, err := env.files.ListByOwner(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileService_UploadAtLimit(t *testing.T) {
	t.Parallel()
	database := dbtest.New(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	fileRepo := repository.NewFileRepository(database)
	userRepo := repository.NewUserRepository(database)
	files := service.NewFileService(fileRepo, store, service.NewShareService(fileRepo, baseURL), service.NewUserService(userRepo), 10)

	env := &testEnv{files: files, fileRepo: fileRepo, userRepo: userRepo, store: store}
	alice := env.user(t, "alice", model.RoleUser)

	file, err := files.Upload(context.Background(), alice, service.UploadInput{Name: "ten.txt", Size: -1, Content: strings.NewReader("0123456789")})
	require.NoError(t, err)
	assert.Equal(t, int64(10), file.Size)

	_, err = files.Upload(context.Background(), alice, service.UploadInput{Name: "eleven.txt", Size: -1, Content: strings.NewReader("0123456789A")})
	assert.ErrorIs(t, err, service.ErrTooLarge)
	assert.Equal(t, 1, env.blobCount(t))
}

func TestFileService_UploadOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	bob := env.user(t, "bob", model.RoleUser)
	admin := env.user(t, "root", model.RoleAdmin)

	t.Run("admin on behalf of user", func(t *testing.T) {
		file, err := env.files.Upload(ctx, admin, service.UploadInput{
			OwnerID: alice.ID,
			Name:    "for-alice.txt",
			Size:    2,
			Content: strings.NewReader("hi"),
		})
		require.NoError(t, err)
		assert.Equal(t, alice.ID, file.OwnerID)
	})

	t.Run("admin for unknown owner", func(t *testing.T) {
		_, err := env.files.Upload(ctx, admin, service.UploadInput{
			OwnerID: uuid.New().String(),
			Name:    "ghost.txt",
			Size:    2,
			Content: strings.NewReader("hi"),
		})
		assert.ErrorIs(t, err, service.ErrOwnerNotFound)
	})

	t.Run("user on behalf of another user", func(t *testing.T) {
		_, err := env.files.Upload(ctx, bob, service.UploadInput{
			OwnerID: alice.ID,
			Name:    "sneaky.txt",
			Size:    2,
			Content: strings.NewReader("hi"),
		})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("deleted caller", func(t *testing.T) {
		gone := model.Caller{ID: uuid.New().String(), Role: model.RoleUser}
		_, err := env.files.Upload(ctx, gone, service.UploadInput{
			Name:    "orphan.txt",
			Size:    2,
			Content: strings.NewReader("hi"),
		})
		assert.ErrorIs(t, err, service.ErrOwnerNotFound)
	})

	assert.Equal(t, 1, env.blobCount(t))
}

func TestFileService_UploadCleansUpBlobWhenRecordFails(t *testing.T) {
	t.Parallel()
	env := newTestEnvWith(t, func(r repository.FileRepository) repository.FileRepository {
		return &failingCreateRepo{FileRepository: r}
	}, nil)
	alice := env.user(t, "alice", model.RoleUser)

	_, err := env.files.Upload(context.Background(), alice, service.UploadInput{
		Name:    "doomed.txt",
		Size:    4,
		Content: strings.NewReader("data"),
	})
	assert.ErrorIs(t, err, service.ErrMetadataFailed)
	assert.Zero(t, env.blobCount(t))
}

func TestFileService_ConcurrentUploadsSameName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)

	const n = 2
	results := make([]*model.File, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			file, err := env.files.Upload(ctx, alice, service.UploadInput{
				Name:    "photo.jpg",
				Size:    -1,
				Content: strings.NewReader(strings.Repeat("p", i+1)),
			})
			assert.NoError(t, err)
			results[i] = file
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.NotEqual(t, results[0].ID, results[1].ID)
	assert.NotEqual(t, results[0].StoragePath, results[1].StoragePath)

	for i, file := range results {
		_, rc, err := env.files.Download(ctx, alice, file.ID)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("p", i+1), string(readAndClose(t, rc)))
	}
}

func TestFileService_ForbiddenForOtherUsers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	mallory := env.user(t, "mallory", model.RoleUser)
	file := env.upload(t, alice, "private.txt", "secret")

	_, _, err := env.files.Download(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.NotErrorIs(t, err, service.ErrNotFound)

	_, err = env.files.File(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	err = env.files.Delete(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.files.ToggleShare(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.files.GenerateShareLink(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.files.EnableShare(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.files.DisableShare(ctx, mallory, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.files.ListForOwner(ctx, mallory, alice.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	// Unknown roles are denied even for the owner's id
	_, _, err = env.files.Download(ctx, model.Caller{ID: alice.ID}, file.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	// Nothing changed
	got, err := env.fileRepo.ByID(ctx, file.ID)
	require.NoError(t, err)
	assert.False(t, got.ShareEnabled)
}

func TestFileService_ShareScenario(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "report.pdf", "%PDF-1.7 quarterly numbers")

	shareURL, err := env.files.GenerateShareLink(ctx, alice, file.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(shareURL, baseURL+"/files/shared/"))
	token := strings.TrimPrefix(shareURL, baseURL+"/files/shared/")
	require.NotEmpty(t, token)

	// Anonymous download by token
	shared, rc, err := env.files.DownloadShared(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, file.ID, shared.ID)
	assert.Equal(t, "%PDF-1.7 quarterly numbers", string(readAndClose(t, rc)))

	disabled, err := env.files.DisableShare(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.False(t, disabled.ShareEnabled)
	assert.Nil(t, disabled.ShareToken)

	// Replaying the old token no longer works
	_, _, err = env.files.DownloadShared(ctx, token)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, _, err = env.files.DownloadShared(ctx, "")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFileService_GenerateShareLinkIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	admin := env.user(t, "root", model.RoleAdmin)
	file := env.upload(t, alice, "a.txt", "a")

	first, err := env.files.GenerateShareLink(ctx, alice, file.ID)
	require.NoError(t, err)
	second, err := env.files.GenerateShareLink(ctx, alice, file.ID)
	require.NoError(t, err)
	third, err := env.files.GenerateShareLink(ctx, admin, file.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)

	got, err := env.files.File(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.Equal(t, first, env.files.ShareURL(got))
}

func TestFileService_DisableShareIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "a.txt", "a")

	_, err := env.files.EnableShare(ctx, alice, file.ID)
	require.NoError(t, err)

	for range 2 {
		got, err := env.files.DisableShare(ctx, alice, file.ID)
		require.NoError(t, err)
		assert.False(t, got.ShareEnabled)
		assert.Nil(t, got.ShareToken)
		assert.Empty(t, env.files.ShareURL(got))
	}
}

func TestFileService_ToggleShare(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "a.txt", "a")

	on, err := env.files.ToggleShare(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.True(t, on.ShareEnabled)
	require.NotNil(t, on.ShareToken)
	oldToken := *on.ShareToken

	off, err := env.files.ToggleShare(ctx, alice, file.ID)
	require.NoError(t, err)
	assert.False(t, off.ShareEnabled)
	assert.Nil(t, off.ShareToken)

	// Re-enabling issues a fresh token
	again, err := env.files.ToggleShare(ctx, alice, file.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ShareToken)
	assert.NotEqual(t, oldToken, *again.ShareToken)

	_, err = env.files.ToggleShare(ctx, alice, uuid.New().String())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFileService_ConcurrentEnableShare(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "a.txt", "a")

	const n = 6
	urls := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := env.files.GenerateShareLink(ctx, alice, file.ID)
			assert.NoError(t, err)
			urls[i] = url
		}()
	}
	wg.Wait()

	for _, url := range urls {
		assert.Equal(t, urls[0], url)
	}
}

func TestFileService_DeleteTwice(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "bye.txt", "bye")

	require.NoError(t, env.files.Delete(ctx, alice, file.ID))
	assert.Zero(t, env.blobCount(t))

	err := env.files.Delete(ctx, alice, file.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, _, err = env.files.Download(ctx, alice, file.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFileService_DeleteWithBlobAlreadyGone(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "half.txt", "half")

	// A previous attempt removed the blob but not the record
	require.NoError(t, env.store.Delete(ctx, file.StoragePath))

	_, _, err := env.files.Download(ctx, alice, file.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, env.files.Delete(ctx, alice, file.ID))
	_, err = env.fileRepo.ByID(ctx, file.ID)
	assert.ErrorIs(t, err, repository.ErrFileNotFound)
}

func TestFileService_DeleteReportsStorageFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnvWith(t, nil, func(s storage.Storage) storage.Storage {
		return &failingDeleteStore{Storage: s}
	})
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	file := env.upload(t, alice, "stuck.txt", "stuck")

	err := env.files.Delete(ctx, alice, file.ID)
	assert.ErrorIs(t, err, service.ErrStorageDeleteFailed)
	assert.NotErrorIs(t, err, service.ErrNotFound)

	// The record is gone even though the blob could not be removed
	_, err = env.fileRepo.ByID(ctx, file.ID)
	assert.ErrorIs(t, err, repository.ErrFileNotFound)
}

func TestFileService_Lists(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", model.RoleUser)
	bob := env.user(t, "bob", model.RoleUser)
	admin := env.user(t, "root", model.RoleAdmin)

	env.upload(t, alice, "a1.txt", "1")
	env.upload(t, alice, "a2.txt", "2")
	env.upload(t, bob, "b1.txt", "3")

	files, err := env.files.ListByOwner(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = env.files.ListByOwner(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = env.files.ListForOwner(ctx, admin, bob.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b1.txt", files[0].Name)

	files, err = env.files.ListForOwner(ctx, bob, bob.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileService_CanceledContext(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.user(t, "alice", model.RoleUser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.files.Upload(ctx, alice, service.UploadInput{
		Name:    "late.txt",
		Size:    4,
		Content: strings.NewReader("late"),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, env.blobCount(t))
}

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", service.Kind(nil))
	assert.Equal(t, "forbidden", service.Kind(errors.Join(errors.New("x"), service.ErrForbidden)))
	assert.Equal(t, "storage_delete_failed", service.Kind(service.ErrStorageDeleteFailed))
	assert.Equal(t, "error", service.Kind(context.DeadlineExceeded))
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

type failingCreateRepo struct {
	repository.FileRepository
}

func (r *failingCreateRepo) Create(context.Context, *model.File) error {
	return errors.New("database is locked")
}

type failingDeleteStore struct {
	storage.Storage
}

func (s *failingDeleteStore) Delete(context.Context, string) error {
	return storage.ErrDeleteFailed
}
