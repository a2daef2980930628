package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/templui/fileshare/internal/access"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

type UserService struct {
	userRepository repository.UserRepository
}

func NewUserService(userRepository repository.UserRepository) *UserService {
	return &UserService{
		userRepository: userRepository,
	}
}

// Create validates the input, hashes the password and stores the user.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	username, err := validation.NormalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}

	email, err := validation.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	err = validation.ValidatePassword(in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == 0 {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, fmt.Errorf("invalid role %d", role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		RoleName:     role.String(),
		CreatedAt:    time.Now().UTC(),
	}

	err = s.userRepository.Create(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.RoleName)
	return user, nil
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Profile returns the user with id. Users may only look themselves up;
// admins may look up anyone.
func (s *UserService) Profile(ctx context.Context, caller model.Caller, id string) (*model.User, error) {
	err := access.AuthorizeOwner(caller, id, access.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.ByID(ctx, id)
}

func (s *UserService) ByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepository.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// OwnerExists is consulted by FileService at upload time.
func (s *UserService) OwnerExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return s.userRepository.Exists(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// EnsureUser creates the user unless the username is already taken.
// It is used to bootstrap the first admin from configuration.
func (s *UserService) EnsureUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	user, err := s.ByUsername(ctx, in.Username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	return s.Create(ctx, in)
}
