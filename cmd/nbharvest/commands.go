package main

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/nbharvest"
	"github.com/poiesic/nbharvest/auth"
	"github.com/poiesic/nbharvest/config"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/enrichment"
	"github.com/poiesic/nbharvest/export"
	"github.com/poiesic/nbharvest/ingestion"
	"github.com/poiesic/nbharvest/reembed"
	"github.com/poiesic/nbharvest/search"
	"github.com/poiesic/nbharvest/storage"
	"github.com/urfave/cli/v2"
)

//go:embed resources.txt
var defaultResources string

func openHarvester(c *cli.Context) (*nbharvest.Harvester, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	h, err := nbharvest.Open(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open notebook store: %w", err)
	}
	return h, nil
}

// readURLs parses one URL per line. Blank lines and lines starting with # are skipped.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func collectURLs(c *cli.Context) ([]string, error) {
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open url file: %w", err)
		}
		defer f.Close()
		return readURLs(f)
	}
	if c.Args().Present() {
		return c.Args().Slice(), nil
	}
	return readURLs(strings.NewReader(defaultResources))
}

func ingest(c *cli.Context, h *nbharvest.Harvester) error {
	urls, err := collectURLs(c)
	if err != nil {
		return err
	}

	pipeline, err := h.NewIngestionPipeline(c.Context)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	report, err := pipeline.Ingest(c.Context, urls)
	if report != nil {
		printIngestReport(c.App.Writer, report)
	}
	if err != nil {
		return fmt.Errorf("ingestion interrupted: %w", err)
	}
	return nil
}

func printIngestReport(w io.Writer, report *ingestion.Report) {
	for _, f := range report.Failures {
		fmt.Fprintf(w, "Skipped %s (%s): %v\n", f.URL, f.Kind, f.Err)
	}
	fmt.Fprintf(w, "Saved %d notebooks, skipped %d\n", len(report.Saved), len(report.Failures))
	if transient := report.Transient(); len(transient) > 0 {
		fmt.Fprintf(w, "%d failures may succeed on retry\n", len(transient))
	}
}

func ingestCommand(c *cli.Context) error {
	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()
	return ingest(c, h)
}

func enrich(c *cli.Context, h *nbharvest.Harvester, filter storage.Filter, workers int) error {
	opts := []enrichment.Option{enrichment.WithProgress(c.App.ErrWriter)}
	if workers > 0 {
		opts = append(opts, enrichment.WithWorkers(workers))
	}
	enricher, err := h.NewEnricher(opts...)
	if err != nil {
		return fmt.Errorf("failed to create enricher: %w", err)
	}
	defer enricher.Release()

	report, err := enricher.Run(c.Context, filter)
	if report != nil {
		fmt.Fprintf(c.App.Writer, "Enriched %d notebooks (%d with defaulted fields, %d without embedding), %d failed\n",
			report.Enriched, report.Defaulted, report.Unembedded, report.Failed)
	}
	if err != nil {
		return fmt.Errorf("enrichment interrupted: %w", err)
	}
	return nil
}

func enrichCommand(c *cli.Context) error {
	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	filter := storage.FilterUnprocessed
	if c.Bool("all") {
		filter = storage.FilterAll
	}
	return enrich(c, h, filter, c.Int("workers"))
}

func runCommand(c *cli.Context) error {
	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := ingest(c, h); err != nil {
		return err
	}
	return enrich(c, h, storage.FilterUnprocessed, 0)
}

func searchFilters(c *cli.Context) (search.Filters, error) {
	filters := search.Filters{
		Language:         c.String("language"),
		CourseLevel:      core.CourseLevel(strings.ToLower(c.String("course-level"))),
		Context:          c.String("context"),
		SequencePosition: core.SequencePosition(strings.ToLower(c.String("position"))),
	}
	if filters.CourseLevel != "" {
		if err := core.ValidateCourseLevel(filters.CourseLevel); err != nil {
			return filters, err
		}
	}
	if filters.SequencePosition != "" {
		if err := core.ValidateSequencePosition(filters.SequencePosition); err != nil {
			return filters, err
		}
	}
	return filters, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a search query is required")
	}
	filters, err := searchFilters(c)
	if err != nil {
		return err
	}

	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	searcher, err := h.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &search.LogMonitor{}
	}
	results, err := searcher.SearchWithMonitor(c.Context, query, filters, c.Int("limit"), monitor)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d notebooks\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s [%0.3f]\n", i+1, r.URL, r.Score)
		fmt.Fprintf(w, "   %s | %s | %s | %s\n", r.Language, r.CourseLevel, r.SequencePosition, r.Context)
		if r.CSConcepts != "" {
			fmt.Fprintf(w, "   concepts: %s\n", r.CSConcepts)
		}
	}
	return nil
}

func exportCommand(c *cli.Context) error {
	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	var opts []export.Option
	if dir := c.String("dir"); dir != "" {
		opts = append(opts, export.WithDir(dir))
	}
	if c.Bool("processed") {
		opts = append(opts, export.WithFilter(storage.FilterProcessed))
	}
	exporter, err := h.NewExporter(opts...)
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	report, err := exporter.Export(c.Context)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(c.App.Writer, "Error exporting notebook: %v\n", e)
	}
	fmt.Fprintf(c.App.Writer, "Exported %d notebooks to %s\n", len(report.Written), exporter.Dir())
	return nil
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Filter:         storage.FilterProcessed,
	}
	if c.Bool("all") {
		reembedConfig.Filter = storage.FilterAll
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	reembedder, err := h.NewReembedder(reembedConfig, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	cfg := h.Config().AI
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n\n", cfg.EmbeddingModel)

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func authorizeCommand(c *cli.Context) error {
	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	open := auth.OpenBrowser
	if c.Bool("no-browser") {
		open = func(url string) error {
			fmt.Fprintf(c.App.Writer, "Open this URL to grant access:\n%s\n", url)
			return nil
		}
	}
	if err := h.Authorize(c.Context, open); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Token saved to %s\n", h.Config().Google.TokenFile)
	return nil
}

func statsCommand(c *cli.Context) error {
	h, err := openHarvester(c)
	if err != nil {
		return err
	}
	defer h.Close()

	stats, err := h.Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Notebooks: %d\nEnriched:  %d\nEmbedded:  %d\n",
		stats.Total, stats.Processed, stats.Embedded)
	return nil
}
