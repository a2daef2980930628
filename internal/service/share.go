package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
)

const shareTokenBytes = 32

// ShareService issues, stores and resolves share tokens.
// It performs no authorization; FileService checks access before calling it.
type ShareService struct {
	fileRepo repository.FileRepository
	baseURL  string
	random   func([]byte) (int, error)
}

func NewShareService(fileRepo repository.FileRepository, baseURL string) *ShareService {
	return &ShareService{
		fileRepo: fileRepo,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		random:   rand.Read,
	}
}

// IssueToken returns 256 random bits, base64url encoded.
func (s *ShareService) IssueToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	_, err := s.random(buf)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// URL builds the public link for a token.
func (s *ShareService) URL(token string) string {
	return s.baseURL + model.SharePath + token
}

// Enable turns sharing on. A file that is already shared is returned
// unchanged, keeping its token.
func (s *ShareService) Enable(ctx context.Context, file *model.File) (*model.File, error) {
	if file.IsShared() {
		return file, nil
	}

	token, err := s.IssueToken()
	if err != nil {
		return nil, err
	}

	updated, err := s.fileRepo.EnableShare(ctx, file.ID, token)
	if err != nil {
		if errors.Is(err, repository.ErrShareTokenTaken) {
			slog.Error("share token collision", "file_id", file.ID)
			return nil, fmt.Errorf("%w: file %s", ErrTokenCollision, file.ID)
		}
		return nil, wrapRepoErr(err, file.ID)
	}

	return updated, nil
}

// Disable turns sharing off and clears the token, even when sharing is
// already off.
func (s *ShareService) Disable(ctx context.Context, file *model.File) (*model.File, error) {
	updated, err := s.fileRepo.DisableShare(ctx, file.ID)
	if err != nil {
		return nil, wrapRepoErr(err, file.ID)
	}
	return updated, nil
}

// Resolve finds the currently shared file for a token.
func (s *ShareService) Resolve(ctx context.Context, token string) (*model.File, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty share token", ErrNotFound)
	}

	file, err := s.fileRepo.ByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			// Never echo the token back
			return nil, fmt.Errorf("%w: share token does not resolve", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: resolve share token: %w", ErrMetadataFailed, err)
	}

	return file, nil
}

func wrapRepoErr(err error, fileID string) error {
	if errors.Is(err, repository.ErrFileNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	return fmt.Errorf("%w: file %s: %w", ErrMetadataFailed, fileID, err)
}
