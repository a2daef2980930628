package cmd

import (
	"github.com/jmoiron/sqlx"

	"github.com/templui/fileshare/internal/config"
	"github.com/templui/fileshare/internal/db"
	"github.com/templui/fileshare/internal/logger"
)

// openDB loads configuration the same way the server does and connects
// to its database.
func openDB() (*config.Config, *sqlx.DB, error) {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.LogLevel, cfg.SentryDSN)

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}
