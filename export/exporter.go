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

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
)

// DefaultDir is the output directory used when none is given.
const DefaultDir = "downloaded_notebooks"

// ErrRepositoryRequired is returned when a notebook repository is not provided.
var ErrRepositoryRequired = errors.New("notebook repository required")

// Exporter writes every stored notebook into one directory.
type Exporter struct {
	repo   storage.NotebookRepository
	dir    string
	filter storage.Filter
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter) error

// WithDir sets the output directory. Default is DefaultDir.
func WithDir(dir string) Option {
	return func(e *Exporter) error {
		if dir == "" {
			return fmt.Errorf("output directory is empty")
		}
		e.dir = dir
		return nil
	}
}

// WithFilter limits the export to matching notebooks. Default is storage.FilterAll.
func WithFilter(filter storage.Filter) Option {
	return func(e *Exporter) error {
		e.filter = filter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "export")
		return nil
	}
}

// NewExporter creates an exporter over repo.
func NewExporter(repo storage.NotebookRepository, opts ...Option) (*Exporter, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	e := &Exporter{
		repo:   repo,
		dir:    DefaultDir,
		filter: storage.FilterAll,
		logger: slog.Default().With("component", "export"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Report lists what an export wrote and what it skipped.
type Report struct {
	Written []string // file paths
	Errors  []error
}

// Export writes each notebook to its own file. A notebook that cannot be
// written is logged and skipped; the returned error is reserved for storage
// and context failures.
func (e *Exporter) Export(ctx context.Context) (*Report, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	report := &Report{}
	names := newNamer()
	err := e.repo.ForEachNotebook(ctx, e.filter, func(record *core.NotebookRecord) error {
		name := names.next(record.URL, len(report.Written))
		path := filepath.Join(e.dir, name)
		if err := writeNotebook(path, record.Content); err != nil {
			e.logger.Warn("skipping notebook", "url", record.URL, "err", err)
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", record.URL, err))
			return nil
		}
		e.logger.Debug("exported notebook", "url", record.URL, "path", path)
		report.Written = append(report.Written, path)
		return nil
	})
	if err != nil {
		return report, err
	}

	e.logger.Info("export finished", "dir", e.dir, "written", len(report.Written), "failed", len(report.Errors))
	return report, nil
}

func writeNotebook(path string, content []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, content, "", "  "); err != nil {
		return fmt.Errorf("format notebook: %w", err)
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
