package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/occusearch/core"
)

// SQLSource reads entries with a query returning (title, code) rows.
// A NULL code becomes the empty string; rows with a NULL or blank title
// are skipped.
type SQLSource struct {
	db     *sql.DB
	query  string
	logger *slog.Logger
}

// NewSQLSource creates a source running query against db.
func NewSQLSource(db *sql.DB, query string) (*SQLSource, error) {
	if db == nil {
		return nil, errors.New("database handle cannot be nil")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	return &SQLSource{
		db:     db,
		query:  query,
		logger: slog.Default().With("component", "catalog-sql"),
	}, nil
}

// Load runs the query and collects every row.
func (s *SQLSource) Load(ctx context.Context) ([]core.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var entries []core.CatalogEntry
	for rows.Next() {
		var title, code sql.NullString
		if err := rows.Scan(&title, &code); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		entry := core.CatalogEntry{
			Title: strings.TrimSpace(title.String),
			Code:  strings.TrimSpace(code.String),
		}
		if core.ValidateCatalogEntry(entry) != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog rows: %w", err)
	}

	s.logger.Debug("catalog loaded", "entries", len(entries))
	return entries, nil
}
