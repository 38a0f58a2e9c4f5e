package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/CoachHub/internal/config"
	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// Entity type names as stored in the entity_type column.
const (
	EntitySession          = "Session"
	EntityFile             = "File"
	EntityNote             = "Note"
	EntityAppliedReference = "AppliedReference"
	EntityAction           = "Action"
	EntityClient           = "Client"
	EntityKnowledgeBase    = "KnowledgeBase"
)

// Open connects to the platform database and bootstraps the entity schema.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return db, nil
}

// NewEntities builds Postgres-backed collections for every entity type.
func NewEntities(db *sql.DB) *core.Entities {
	return &core.Entities{
		Sessions:          NewCollection[models.Session](db, EntitySession),
		Files:             NewCollection[models.File](db, EntityFile),
		Notes:             NewCollection[models.Note](db, EntityNote),
		AppliedReferences: NewCollection[models.AppliedReference](db, EntityAppliedReference),
		Actions:           NewCollection[models.Action](db, EntityAction),
		Clients:           NewCollection[models.Client](db, EntityClient),
		KnowledgeBase:     NewCollection[models.KnowledgeBaseArticle](db, EntityKnowledgeBase),
	}
}
