// Package sqlite persists the books in a local SQLite file as one JSON document per
// ledger, written together in a single database transaction.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tallybook.org/internal/ledger"
	"tallybook.org/internal/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrMissingDocument is returned when a saved snapshot lacks one of its ledgers.
var ErrMissingDocument = errors.New("sqlite: snapshot document missing")

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type document struct {
	Key       string    `gorm:"column:doc_key;primaryKey"`
	Body      string    `gorm:"column:body;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (document) TableName() string { return "documents" }

type snapshotMeta struct {
	ID            int       `gorm:"column:id;primaryKey"`
	SchemaVersion int       `gorm:"column:schema_version"`
	SavedAt       time.Time `gorm:"column:saved_at"`
}

func (snapshotMeta) TableName() string { return "snapshot_meta" }

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path. Callers run
// Migrate before the first Load.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One writer; SQLite serialises anyway and this keeps :memory: databases whole.
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle for the migration manager and readiness probes.
func (s *Store) DB() (*sql.DB, error) { return s.db.DB() }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies the embedded migrations and returns the ones it ran.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	return migrate.NewManager(sqlDB, Migrations(), nil).Up(ctx)
}

// Load reads every ledger document. A database with no documents yields empty books;
// a version mismatch, a missing document or an unreadable one is an error.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	var docs []document
	if err := s.db.WithContext(ctx).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	if len(docs) == 0 {
		return &ledger.Snapshot{Version: ledger.SchemaVersion}, nil
	}

	var meta snapshotMeta
	err := s.db.WithContext(ctx).First(&meta, 1).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: documents present without a schema version", ledger.ErrSchemaMismatch)
	case err != nil:
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}

	if meta.SchemaVersion != ledger.SchemaVersion {
		return nil, fmt.Errorf("%w: stored version %d, want %d", ledger.ErrSchemaMismatch, meta.SchemaVersion, ledger.SchemaVersion)
	}
	snap := &ledger.Snapshot{Version: meta.SchemaVersion}
	byKey := make(map[string]string, len(docs))
	for _, d := range docs {
		byKey[d.Key] = d.Body
	}
	for _, d := range snap.Documents() {
		body, ok := byKey[d.Key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingDocument, d.Key)
		}
		if err := json.Unmarshal([]byte(body), d.Value); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Key, err)
		}
		delete(byKey, d.Key)
	}
	if extra := slices.Sorted(maps.Keys(byKey)); len(extra) > 0 {
		return nil, fmt.Errorf("%w: unexpected documents %v", ledger.ErrSchemaMismatch, extra)
	}
	return snap, nil
}

// Save writes every document and the schema version in one transaction.
func (s *Store) Save(ctx context.Context, snap *ledger.Snapshot) error {
	now := s.now().UTC()
	docs := snap.Documents()
	rows := make([]document, 0, len(docs))
	for _, d := range docs {
		body, err := json.Marshal(d.Value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.Key, err)
		}
		rows = append(rows, document{Key: d.Key, Body: string(body), UpdatedAt: now})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("write documents: %w", err)
		}
		meta := snapshotMeta{ID: 1, SchemaVersion: snap.Version, SavedAt: now}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&meta).Error; err != nil {
			return fmt.Errorf("write snapshot meta: %w", err)
		}
		return nil
	})
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
