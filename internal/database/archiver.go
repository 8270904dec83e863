package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// EntityArchiver moves expired rows of a live table into its archive
// table in one statement. The mapping from entity type to table name
// comes from configuration; table names never come from request input.
type EntityArchiver struct {
	db     *sqlx.DB
	tables map[string]string
	logger *zap.Logger
}

// NewEntityArchiver creates an archiver over the configured entity tables
func NewEntityArchiver(db *sqlx.DB, tables map[string]string, logger *zap.Logger) *EntityArchiver {
	return &EntityArchiver{db: db, tables: tables, logger: logger}
}

// Archive moves rows older than cutoff from the entity's live table into
// <table>_archive and reports how many were moved. An entity type with
// no configured table is an error; partial moves are not possible since
// the move is a single statement.
func (a *EntityArchiver) Archive(ctx context.Context, entityType string, cutoff time.Time) (archived, failed int64, err error) {
	table, ok := a.tables[entityType]
	if !ok {
		return 0, 0, fmt.Errorf("no archive table configured for entity type %q", entityType)
	}

	query := fmt.Sprintf(`
		WITH moved AS (
			DELETE FROM %s WHERE created_at < $1 RETURNING *
		)
		INSERT INTO %s_archive SELECT * FROM moved`, table, table)

	result, err := a.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		a.logger.Error("Failed to archive entity rows",
			zap.String("entity_type", entityType),
			zap.String("table", table),
			zap.Error(err))
		return 0, 0, fmt.Errorf("failed to archive %s rows: %w", entityType, err)
	}

	archived, err = result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get archived row count: %w", err)
	}

	a.logger.Info("Entity rows archived",
		zap.String("entity_type", entityType),
		zap.String("table", table),
		zap.Time("cutoff", cutoff),
		zap.Int64("archived", archived),
	)

	return archived, 0, nil
}
