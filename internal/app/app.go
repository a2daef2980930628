package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/templui/fileshare/internal/config"
	"github.com/templui/fileshare/internal/db"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/storage"
)

type App struct {
	Cfg              *config.Config
	DB               *sqlx.DB
	Storage          storage.Storage
	AuthService      *service.AuthService
	UserService      *service.UserService
	ShareService     *service.ShareService
	FileService      *service.FileService
	ReconcileService *service.ReconcileService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Storage
	fileStorage, err := NewStorage(ctx, cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	fileRepository := repository.NewFileRepository(database)

	// Services
	userService := service.NewUserService(userRepository)
	authService := service.NewAuthService(userService, cfg.JWTSecret, cfg.JWTExpiry, cfg.IsProduction())
	shareService := service.NewShareService(fileRepository, cfg.AppURL)
	fileService := service.NewFileService(fileRepository, fileStorage, shareService, userService, cfg.MaxUploadSize)
	reconcileService := service.NewReconcileService(fileRepository, fileStorage, cfg.ReconcileInterval, cfg.ReconcileGrace)

	a := &App{
		Cfg:              cfg,
		DB:               database,
		Storage:          fileStorage,
		AuthService:      authService,
		UserService:      userService,
		ShareService:     shareService,
		FileService:      fileService,
		ReconcileService: reconcileService,
	}

	err = a.bootstrapAdmin(ctx)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	return a, nil
}

// NewStorage picks the blob backend named by STORAGE_DRIVER.
func NewStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			SpoolDir:  cfg.S3SpoolDir,
		})
	case "local", "":
		return storage.NewLocalStorage(cfg.StorageRoot)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	if a.Cfg.AdminUsername == "" || a.Cfg.AdminPassword == "" {
		return nil
	}

	admin, err := a.UserService.EnsureUser(ctx, service.CreateUserInput{
		Username: a.Cfg.AdminUsername,
		Email:    a.Cfg.AdminEmail,
		Password: a.Cfg.AdminPassword,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if !admin.IsAdmin() {
		slog.Warn("bootstrap admin username belongs to a non-admin user", "user_id", admin.ID)
	}

	return nil
}

// Start launches background work. Stop it with Close.
func (a *App) Start(ctx context.Context) {
	a.ReconcileService.Start(ctx)
}

func (a *App) Close() error {
	if a.ReconcileService != nil {
		a.ReconcileService.Stop()
	}
	return db.Close(a.DB)
}
