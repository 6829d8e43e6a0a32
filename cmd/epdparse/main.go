// Command epdparse parses EPD files offline and prints the results as JSON.
//
//	epdparse [-profile layout.yaml] [-concurrency 4] [-out report.xlsx] file.pdf file.txt ...
//
// A single "-" reads text from stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"epdparser/internal/config"
	"epdparser/internal/domain"
	"epdparser/internal/epd"
	"epdparser/internal/epd/pipeline"
	"epdparser/internal/epd/profile"
	"epdparser/internal/export"
	"epdparser/internal/logger"
	"epdparser/internal/port"
	"epdparser/internal/textextract"
)

// result is one line of output. Error is set when no text could be extracted.
type result struct {
	Source string              `json:"source"`
	Error  string              `json:"error,omitempty"`
	Parsed *epd.ParsedDocument `json:"result,omitempty"`
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		profilePath = flag.String("profile", "", "layout profile YAML (default: embedded profile)")
		concurrency = flag.Int("concurrency", 4, "files parsed in parallel")
		out         = flag.String("out", "", "also write a .csv or .xlsx report to this path")
		pretty      = flag.Bool("pretty", false, "indent JSON output")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		printError("Usage: epdparse [flags] FILE...\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *concurrency < 1 {
		printError("Error: --concurrency must be at least 1\n")
		os.Exit(2)
	}

	lg, err := logger.New(config.LogConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = lg.Sync() }()

	prof, err := profile.Default()
	if *profilePath != "" {
		prof, err = profile.Load(*profilePath)
	}
	if err != nil {
		lg.Fatal("loading profile", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	parser := pipeline.New(prof, pipeline.WithLogger(lg))
	results, err := parseAll(ctx, flag.Args(), textextract.New(), parser, *concurrency)
	if err != nil {
		lg.Fatal("parsing interrupted", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		lg.Fatal("writing output", zap.Error(err))
	}

	if *out != "" {
		if err := writeReport(*out, results); err != nil {
			lg.Fatal("writing report", zap.Error(err), zap.String("path", *out))
		}
	}

	for i := range results {
		if results[i].Error != "" {
			os.Exit(1)
		}
	}
}

// parseAll parses every path with at most limit files in flight. Results keep
// argument order. Per-file extraction errors are reported in the result.
func parseAll(ctx context.Context, paths []string, ex port.TextExtractor, parser port.EPDParser, limit int) ([]result, error) {
	results := make([]result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = parseOne(ctx, path, ex, parser)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseOne(ctx context.Context, path string, ex port.TextExtractor, parser port.EPDParser) result {
	res := result{Source: path}

	var (
		data     []byte
		err      error
		fileType = domain.FileTypeTXT
	)
	if path == "-" {
		res.Source = "stdin"
		data, err = io.ReadAll(os.Stdin)
	} else {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		ft, ok := domain.AllowedExtensions[ext]
		if !ok {
			res.Error = domain.ErrUnsupportedFileType.Error()
			return res
		}
		fileType = ft
		data, err = os.ReadFile(path)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	text, err := ex.Extract(ctx, fileType, data)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	parsed := parser.Parse(pipeline.Input{Text: text, SourceName: filepath.Base(res.Source)})
	res.Parsed = &parsed
	return res
}

// writeReport renders parsed results through the same exporter the API uses.
func writeReport(path string, results []result) error {
	format := domain.ExportFormat(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if format != domain.ExportFormatCSV && format != domain.ExportFormatXLSX {
		return fmt.Errorf("unsupported report extension %q", filepath.Ext(path))
	}

	now := time.Now().UTC()
	recs := make([]export.Record, 0, len(results))
	for i := range results {
		r := &results[i]
		if r.Parsed == nil {
			continue
		}
		doc := domain.Document{ID: uuid.New(), SourceName: filepath.Base(r.Source), CreatedAt: now}
		if err := doc.ApplyParse(r.Parsed, now); err != nil {
			return err
		}
		recs = append(recs, export.Record{
			Document: doc,
			Services: domain.NewServiceChargeRecords(doc.ID, r.Parsed.Services),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if format == domain.ExportFormatXLSX {
		err = export.WriteXLSX(f, recs)
	} else {
		err = export.WriteCSV(f, recs)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
