package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/occusearch/core"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource reads a delimited file whose first row is a header.
// Files that are not valid UTF-8 are decoded as Latin-1.
type CSVSource struct {
	path      string
	delimiter rune
	columns   Columns
	logger    *slog.Logger
}

// CSVOption configures a CSVSource.
type CSVOption func(*CSVSource)

// WithDelimiter sets the field delimiter. Default is ','.
func WithDelimiter(d rune) CSVOption {
	return func(s *CSVSource) {
		s.delimiter = d
	}
}

// WithColumns sets the header names of the title and code fields.
func WithColumns(c Columns) CSVOption {
	return func(s *CSVSource) {
		if c.Title != "" {
			s.columns.Title = c.Title
		}
		if c.Code != "" {
			s.columns.Code = c.Code
		}
	}
}

// WithLogger sets the logger used by the source.
func WithLogger(logger *slog.Logger) CSVOption {
	return func(s *CSVSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCSVSource creates a source reading path.
func NewCSVSource(path string, opts ...CSVOption) *CSVSource {
	s := &CSVSource{
		path:      path,
		delimiter: ',',
		columns:   DefaultColumns(),
		logger:    slog.Default().With("component", "catalog-csv"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads every row of the file.
func (s *CSVSource) Load(ctx context.Context) ([]core.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	if !utf8.Valid(data) {
		s.logger.Info("file is not valid UTF-8, decoded as Latin-1", "path", s.path)
	}

	entries, err := s.parse(ctx, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.logger.Debug("catalog loaded", "path", s.path, "entries", len(entries))
	return entries, nil
}

func (s *CSVSource) parse(ctx context.Context, r io.Reader) ([]core.CatalogEntry, error) {
	reader := csv.NewReader(r)
	reader.Comma = s.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrMissingColumn)
		}
		return nil, err
	}

	titleCol, err := columnIndex(header, s.columns.Title)
	if err != nil {
		return nil, err
	}
	codeCol, err := columnIndex(header, s.columns.Code)
	if err != nil {
		return nil, err
	}

	var entries []core.CatalogEntry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		if titleCol >= len(record) {
			s.logger.Warn("skipping short row", "line", line, "fields", len(record))
			continue
		}
		entry := core.CatalogEntry{Title: strings.TrimSpace(record[titleCol])}
		if codeCol < len(record) {
			entry.Code = strings.TrimSpace(record[codeCol])
		}
		if core.ValidateCatalogEntry(entry) != nil {
			s.logger.Debug("skipping row without title", "line", line)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// decodeText returns data as UTF-8, decoding it as Latin-1 when it is not
// valid UTF-8. A leading byte order mark is dropped.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}
