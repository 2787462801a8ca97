// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/poiesic/occusearch"
	"github.com/poiesic/occusearch/config"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/reembed"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "occusearch",
		Usage:     "Rank occupation titles against free-text job descriptions",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "Catalog file (.csv or SQL*Loader .ctl); overrides catalog.path",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL; overrides embedding.host",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name; overrides embedding.model",
			},
			&cli.BoolFlag{
				Name:  "no-embedding",
				Usage: "Skip the embedding provider and search in fallback mode",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "BadgerDB directory for persisted embeddings; overrides cache.path",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Find the occupations closest to a description",
				ArgsUsage: "<description>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return (defaults to search.top_k)",
					},
				},
			},
			{
				Name:   "probe",
				Usage:  "Report whether hybrid or fallback search is available",
				Action: probeCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Embed every catalog title into the persistent cache",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of titles to send in each embedding request",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of batches embedded concurrently",
						Value: 2,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N titles",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "purge",
						Usage: "Delete the model's cached embeddings before embedding",
					},
				},
			},
			{
				Name:   "catalog",
				Usage:  "Show the size of the catalog and its first entries",
				Action: catalogCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of entries to show",
						Value: 10,
					},
				},
			},
		},
	}
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("catalog") {
		cfg.Catalog.Path = c.String("catalog")
		cfg.Catalog.Format = ""
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.Bool("no-embedding") {
		cfg.Embedding.Disabled = true
	}
	if c.IsSet("cache") {
		cfg.Cache.Path = c.String("cache")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(c *cli.Context) (*occusearch.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return occusearch.NewEngine(c.Context, cfg)
}

func searchCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("a description is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	topK := c.Int("top-k")
	if !c.IsSet("top-k") {
		topK = engine.DefaultTopK()
	}

	resp := engine.Handle(c.Context, text, topK)
	printResponse(c.App.Writer, resp)

	switch resp.Status {
	case core.StatusInvalidArgument, core.StatusError:
		return errors.New(resp.Message)
	}
	return nil
}

func printResponse(w io.Writer, resp *core.Response) {
	fmt.Fprintf(w, "%s\n", resp.Message)
	if len(resp.Results) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tCODE\tSCORE")
	for i, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\n", i+1, r.Title, r.Code, r.Score)
	}
	tw.Flush()
}

func probeCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(c.App.Writer, "State: %s\n", engine.State())
	fmt.Fprintf(c.App.Writer, "Mode: %s\n", engine.Mode())
	fmt.Fprintf(c.App.Writer, "Entries: %d\n", engine.Index().Len())
	if model := engine.Index().ModelID(); model != "" {
		fmt.Fprintf(c.App.Writer, "Model: %s\n", model)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		Workers:        c.Int("workers"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Cache.Path == "" {
		return fmt.Errorf("a cache path is required (--cache or cache.path)")
	}

	engine, err := occusearch.NewEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if engine.Mode() != core.ModeHybrid {
		return fmt.Errorf("%w: cannot embed the catalog in fallback mode", core.ErrProviderUnavailable)
	}

	out := c.App.ErrWriter
	fmt.Fprintf(out, "Cache: %s\n", cfg.Cache.Path)
	fmt.Fprintf(out, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(out, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(out)

	if c.Bool("purge") {
		purged, err := engine.PurgeCache(c.Context)
		if err != nil {
			return fmt.Errorf("purging cache: %w", err)
		}
		fmt.Fprintf(out, "Purged %d cached embeddings\n", purged)
	}

	if _, err := engine.Warm(c.Context, out, reembedConfig); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func catalogCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Embedding.Disabled = true

	engine, err := occusearch.NewEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	idx := engine.Index()
	fmt.Fprintf(c.App.Writer, "Entries: %d\n", idx.Len())

	limit := c.Int("limit")
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCODE")
	for i, entry := range idx.All() {
		if i >= limit {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\n", entry.Title, entry.Code)
	}
	return tw.Flush()
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
