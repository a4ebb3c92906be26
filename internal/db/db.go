package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"contact-splitter/internal/config"
)

// Run is one completed split, kept for auditing.
type Run struct {
	bun.BaseModel  `bun:"table:runs,alias:r"`
	ID             int64     `bun:"id,pk,autoincrement"`
	RunID          string    `bun:"run_id,notnull,unique"`
	SourceFilename string    `bun:"source_filename,notnull"`
	ContactColumn  string    `bun:"contact_column,notnull"`
	NumbersRemoved int       `bun:"numbers_removed,notnull"`
	RowsIn         int       `bun:"rows_in,notnull"`
	RowsOut        int       `bun:"rows_out,notnull"`
	ChunkCount     int       `bun:"chunk_count,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == config.DriverPq {
		return sql.Open("postgres", cfg.DSN)
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Run)(nil)).IfNotExists().Exec(ctx)
	return err
}

func StoreRun(ctx context.Context, db *bun.DB, run *Run) error {
	_, err := db.NewInsert().Model(run).Exec(ctx)
	return err
}

// ListRuns returns the latest runs first.
func ListRuns(ctx context.Context, db *bun.DB, limit int) ([]Run, error) {
	var runs []Run
	err := db.NewSelect().
		Model(&runs).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	return runs, err
}

// drop table runs
func DropRuns(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Run)(nil)).IfExists().Exec(ctx)
	return err
}

// RunStore records runs through a bun connection.
type RunStore struct {
	db *bun.DB
}

func NewRunStore(db *bun.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) RecordRun(ctx context.Context, run *Run) error {
	return StoreRun(ctx, s.db, run)
}

func (s *RunStore) Close() error {
	return s.db.Close()
}
