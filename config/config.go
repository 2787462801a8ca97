// Package config loads occusearch settings from a TOML file.
//
// Every field has a default, so a missing file section keeps the built-in
// behavior. Command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/occusearch/ai"
)

// Catalog formats.
const (
	FormatCSV     = "csv"
	FormatControl = "ctl"
	FormatSQL     = "sql"
)

var (
	// ErrUnknownKeys is returned when the file contains keys no field accepts.
	ErrUnknownKeys = errors.New("unknown configuration keys")

	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Duration is a time.Duration written as a string such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full settings tree.
type Config struct {
	Catalog   CatalogConfig   `toml:"catalog"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
	Cache     CacheConfig     `toml:"cache"`
}

// CatalogConfig selects and configures the catalog source.
type CatalogConfig struct {
	Format      string `toml:"format"` // csv, ctl or sql; inferred from Path when empty
	Path        string `toml:"path"`
	Delimiter   string `toml:"delimiter"`
	TitleColumn string `toml:"title_column"`
	CodeColumn  string `toml:"code_column"`
	Driver      string `toml:"driver"`
	DSN         string `toml:"dsn"`
	Query       string `toml:"query"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Disabled     bool     `toml:"disabled"`
	Host         string   `toml:"host"`
	Model        string   `toml:"model"`
	Token        string   `toml:"token"`
	BatchSize    int      `toml:"batch_size"`
	ProbeTimeout Duration `toml:"probe_timeout"`
	EmbedTimeout Duration `toml:"embed_timeout"`
}

// SearchConfig configures ranking.
type SearchConfig struct {
	TopK           int     `toml:"top_k"`
	SemanticWeight float64 `toml:"semantic_weight"`
	LexicalWeight  float64 `toml:"lexical_weight"`
}

// CacheConfig configures the persistent vector cache. An empty Path
// disables it.
type CacheConfig struct {
	Path string `toml:"path"`
}

// Default returns the built-in settings.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Catalog: CatalogConfig{
			Path:        "data/occupations.csv",
			Delimiter:   ",",
			TitleColumn: "occupation_title",
			CodeColumn:  "nco_code",
			Driver:      "sqlite3",
			Query:       "SELECT occupation_title, nco_code FROM occupations",
		},
		Embedding: EmbeddingConfig{
			Host:         aiDefaults.EmbeddingHost,
			Model:        aiDefaults.EmbeddingModel,
			Token:        aiDefaults.Token,
			BatchSize:    aiDefaults.BatchSize,
			ProbeTimeout: Duration{30 * time.Second},
			EmbedTimeout: Duration{10 * time.Second},
		},
		Search: SearchConfig{
			TopK:           3,
			SemanticWeight: 0.7,
			LexicalWeight:  0.3,
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w in %s: %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// CatalogFormat returns the configured format, inferring it from the path
// extension when unset.
func (c *Config) CatalogFormat() string {
	if c.Catalog.Format != "" {
		return strings.ToLower(c.Catalog.Format)
	}
	if strings.HasSuffix(strings.ToLower(c.Catalog.Path), ".ctl") {
		return FormatControl
	}
	return FormatCSV
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.CatalogFormat() {
	case FormatCSV, FormatControl:
		if c.Catalog.Path == "" {
			return fmt.Errorf("%w: catalog.path is required", ErrInvalidConfig)
		}
	case FormatSQL:
		if c.Catalog.Driver == "" || c.Catalog.DSN == "" || c.Catalog.Query == "" {
			return fmt.Errorf("%w: catalog.driver, catalog.dsn and catalog.query are required for sql catalogs", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown catalog.format %q", ErrInvalidConfig, c.Catalog.Format)
	}
	if len([]rune(c.Catalog.Delimiter)) != 1 {
		return fmt.Errorf("%w: catalog.delimiter must be one character", ErrInvalidConfig)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("%w: search.top_k must be positive", ErrInvalidConfig)
	}
	if c.Search.SemanticWeight < 0 || c.Search.LexicalWeight < 0 {
		return fmt.Errorf("%w: search weights must not be negative", ErrInvalidConfig)
	}
	if c.Embedding.ProbeTimeout.Duration <= 0 || c.Embedding.EmbedTimeout.Duration <= 0 {
		return fmt.Errorf("%w: embedding timeouts must be positive", ErrInvalidConfig)
	}
	if !c.Embedding.Disabled {
		if err := c.AIConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// AIConfig returns the embedding provider configuration in normalized form.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithToken(c.Embedding.Token),
		ai.WithBatchSize(c.Embedding.BatchSize),
	)
	cfg.Normalize()
	return cfg
}

// Delimiter returns the catalog delimiter as a rune.
func (c *Config) Delimiter() rune {
	for _, r := range c.Catalog.Delimiter {
		return r
	}
	return ','
}
