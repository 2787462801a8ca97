package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"github.com/poiesic/occusearch/core"
)

var (
	infilePattern     = regexp.MustCompile(`(?i)INFILE\s+'([^']+)'`)
	terminatedPattern = regexp.MustCompile(`(?i)FIELDS\s+TERMINATED\s+BY\s+'([^']+)'`)
)

// ControlFile is the subset of a SQL*Loader control file needed to read
// its data file.
type ControlFile struct {
	InFile    string // as written; may be relative to the control file
	Delimiter rune
}

// ParseControlFile extracts the INFILE path and field delimiter.
// The delimiter defaults to ','.
func ParseControlFile(content string) (*ControlFile, error) {
	m := infilePattern.FindStringSubmatch(content)
	if m == nil {
		return nil, ErrNoInfile
	}

	ctl := &ControlFile{InFile: m[1], Delimiter: ','}
	if d := terminatedPattern.FindStringSubmatch(content); d != nil {
		if utf8.RuneCountInString(d[1]) != 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, d[1])
		}
		ctl.Delimiter, _ = utf8.DecodeRuneInString(d[1])
	}
	return ctl, nil
}

// ControlFileSource loads the delimited extract described by a control file.
type ControlFileSource struct {
	path    string
	columns Columns
	logger  *slog.Logger
}

// NewControlFileSource creates a source for the control file at path.
func NewControlFileSource(path string, columns Columns) *ControlFileSource {
	return &ControlFileSource{
		path:    path,
		columns: columns,
		logger:  slog.Default().With("component", "catalog-ctl"),
	}
}

// DataPath resolves the INFILE of ctl relative to the control file.
func (s *ControlFileSource) DataPath(ctl *ControlFile) string {
	if filepath.IsAbs(ctl.InFile) {
		return ctl.InFile
	}
	return filepath.Join(filepath.Dir(s.path), ctl.InFile)
}

// Load parses the control file and reads its data file.
func (s *ControlFileSource) Load(ctx context.Context) ([]core.CatalogEntry, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	ctl, err := ParseControlFile(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	dataPath := s.DataPath(ctl)
	s.logger.Debug("control file parsed", "infile", dataPath, "delimiter", string(ctl.Delimiter))

	return NewCSVSource(dataPath,
		WithDelimiter(ctl.Delimiter),
		WithColumns(s.columns),
		WithLogger(s.logger),
	).Load(ctx)
}
