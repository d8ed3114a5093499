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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/poiesic/nbharvest/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "nbharvest",
		Usage: "Harvest, classify and search Jupyter notebooks",
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
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"NBHARVEST_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Additional dotenv file to load before reading configuration",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Download notebooks and store them",
				ArgsUsage: "[url...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read URLs from a file, one per line",
					},
				},
			},
			{
				Name:   "enrich",
				Usage:  "Classify and embed stored notebooks",
				Action: enrichCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Re-enrich notebooks that were already processed",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Number of notebooks enriched at once (overrides config)",
					},
				},
			},
			{
				Name:   "run",
				Usage:  "Ingest the given URLs, then enrich everything unprocessed",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read URLs from a file, one per line",
					},
				},
				ArgsUsage: "[url...]",
			},
			{
				Name:      "search",
				Usage:     "Find notebooks similar to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Only notebooks in this programming language",
					},
					&cli.StringFlag{
						Name:  "course-level",
						Usage: "Only notebooks at this course level (introductory, intermediate, advanced)",
					},
					&cli.StringFlag{
						Name:  "context",
						Usage: "Only notebooks whose context contains this text",
					},
					&cli.StringFlag{
						Name:  "position",
						Usage: "Only notebooks at this sequence position (beginning, middle, end)",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Log each search stage",
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write stored notebooks to .ipynb files",
				Action: exportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "processed",
						Usage: "Only export enriched notebooks",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute embeddings with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include notebooks that were never enriched",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of notebooks to embed in each request",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N notebooks",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "authorize",
				Usage:  "Grant read-only Google Drive access for Colab notebooks",
				Action: authorizeCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show collection counts",
				Action: statsCommand,
			},
		},
	}
}

func setup(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	if path := c.String("env-file"); path != "" {
		if err := config.LoadDotEnv(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
