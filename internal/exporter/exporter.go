// =============================================================================
// TTC Price Export - Exporter Module
// =============================================================================
//
// This module runs the export pipeline for a single region. It owns all I/O
// around the pure converter.
//
// EXPORT PIPELINE:
//   1. Download the region's price table archive
//   2. Extract the price table and item lookup members
//   3. Convert the price table into records
//   4. Parse the item lookup (best effort)
//   5. Resolve the snapshot time (table TimeStamp, else now)
//   6. Write <prefix>.csv and lookup.csv to the dated and latest folders,
//      plus the optional XLSX, JSON and XML files
//   7. Save the snapshot to the database, if configured
//
// CONCURRENCY:
//   Each region runs in its own goroutine with its own Exporter. Regions
//   share only the FileManager, whose writes are atomic renames, and the
//   store, which is safe for concurrent use.
//
// =============================================================================

package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ttc-tools/ttc-price-export/internal/archive"
	"github.com/ttc-tools/ttc-price-export/internal/config"
	"github.com/ttc-tools/ttc-price-export/internal/converter"
	"github.com/ttc-tools/ttc-price-export/internal/csvwriter"
	"github.com/ttc-tools/ttc-price-export/internal/jsonwriter"
	"github.com/ttc-tools/ttc-price-export/internal/logger"
	"github.com/ttc-tools/ttc-price-export/internal/types"
	"github.com/ttc-tools/ttc-price-export/internal/xlsxwriter"
	"github.com/ttc-tools/ttc-price-export/internal/xmlwriter"
	"github.com/ttc-tools/ttc-price-export/pkg/utils"
)

// LookupFileName is the name of the shared item lookup CSV.
const LookupFileName = "lookup.csv"

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of exporting a single region.
type Result struct {
	// Region is the configured region name.
	Region string

	// OutputFiles lists every file written, empty on failure or dry run.
	OutputFiles []string

	// SnapshotAt is the time the dated folder was derived from.
	SnapshotAt time.Time

	// Success indicates whether the export was successful.
	Success bool

	// Error contains the error if the export failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about one export.
type ProcessingStats struct {
	// ArchiveBytes is the size of the downloaded archive.
	ArchiveBytes int

	// Records is the number of price records converted.
	Records int

	// LookupEntries is the number of item names found.
	LookupEntries int

	// StoredRows is the number of rows written to the database.
	StoredRows int

	// TimestampFallback is set when the table had no TimeStamp.
	TimestampFallback bool

	// ProcessingTime is the time taken to export the region.
	ProcessingTime time.Duration
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Fetcher downloads a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SnapshotStore persists converted records.
type SnapshotStore interface {
	SavePrices(ctx context.Context, region string, snapshotAt time.Time, records []types.PriceRecord) (int, error)
	SaveLookup(ctx context.Context, lookup types.Lookup) (int, error)
}

// Options control which outputs are produced.
type Options struct {
	WriteXLSX bool
	WriteJSON bool
	WriteXML  bool

	// DryRun converts without writing files or database rows.
	DryRun bool

	// Now returns the fallback snapshot time. Default: time.Now
	Now func() time.Time
}

// =============================================================================
// EXPORTER STRUCTURE
// =============================================================================

// Exporter handles the export of a single region.
type Exporter struct {
	region  config.RegionConfig
	opts    Options
	fetcher Fetcher
	files   *utils.FileManager
	store   SnapshotStore
	logger  logger.Logger
}

// New creates a new Exporter instance.
//
// PARAMETERS:
//   - region: The region to export.
//   - opts: Output options.
//   - fetcher: Downloads the archive.
//   - files: Writes the output files.
//   - store: Optional snapshot store, nil to disable.
//   - log: Logger for progress and warnings.
func New(region config.RegionConfig, opts Options, fetcher Fetcher, files *utils.FileManager, store SnapshotStore, log logger.Logger) *Exporter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{
		region:  region,
		opts:    opts,
		fetcher: fetcher,
		files:   files,
		store:   store,
		logger:  log,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the export pipeline for the region.
//
// RETURNS:
//   - A Result struct containing the outcome of the export.
func (e *Exporter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{Region: e.region.Name}

	done := func(err error) Result {
		result.Error = err
		result.Success = err == nil
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 1: DOWNLOAD
	// =========================================================================

	e.logger.Info("Downloading %s price table from %s", e.region.Name, e.region.URL)

	data, err := e.fetcher.Fetch(ctx, e.region.URL)
	if err != nil {
		return done(fmt.Errorf("failed to download archive: %w", err))
	}
	result.Stats.ArchiveBytes = len(data)

	// =========================================================================
	// STEP 2: EXTRACT MEMBERS
	// =========================================================================

	zipFile, err := archive.Open(data)
	if err != nil {
		return done(err)
	}

	priceText, err := zipFile.ReadMember(e.region.LuaFile)
	if err != nil {
		if errors.Is(err, archive.ErrMemberNotFound) {
			err = fmt.Errorf("%w (archive holds %s)", err, strings.Join(zipFile.Names(), ", "))
		}
		return done(fmt.Errorf("failed to extract price table: %w", err))
	}

	var lookupText []byte
	if e.region.LookupFile != "" {
		lookupText, err = zipFile.ReadMember(e.region.LookupFile)
		if err != nil {
			if !errors.Is(err, archive.ErrMemberNotFound) {
				return done(fmt.Errorf("failed to extract item lookup: %w", err))
			}
			e.logger.Warn("%s not found in archive; item names will be empty", e.region.LookupFile)
			e.logger.Debug("Archive members: %s", strings.Join(zipFile.Names(), ", "))
		}
	}

	// =========================================================================
	// STEPS 3-5: CONVERT
	// =========================================================================

	converted, err := Convert(priceText, lookupText, e.opts.Now, e.logger)
	if err != nil {
		return done(err)
	}
	result.SnapshotAt = converted.SnapshotAt
	result.Stats.Records = len(converted.Result.Records)
	result.Stats.LookupEntries = len(converted.Lookup)
	result.Stats.TimestampFallback = converted.TimestampFallback

	e.logger.Debug("Converted %d records and %d item names", result.Stats.Records, result.Stats.LookupEntries)

	if e.opts.DryRun {
		e.logger.Info("Dry run: skipping output for %s", e.region.Name)
		return done(nil)
	}

	// =========================================================================
	// STEP 6: WRITE OUTPUT FILES
	// =========================================================================

	outputs, err := e.publish(converted)
	if err != nil {
		return done(fmt.Errorf("failed to write output: %w", err))
	}
	result.OutputFiles = outputs

	// =========================================================================
	// STEP 7: SAVE SNAPSHOT
	// =========================================================================

	if e.store != nil {
		rows, err := e.store.SavePrices(ctx, e.region.Name, converted.SnapshotAt, converted.Result.Records)
		if err != nil {
			return done(err)
		}
		result.Stats.StoredRows = rows
		if _, err := e.store.SaveLookup(ctx, converted.Lookup); err != nil {
			return done(err)
		}
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	e.logger.Info("Exported %d %s records for %s", result.Stats.Records, e.region.Name,
		converted.SnapshotAt.UTC().Format("2006-01-02"))

	return done(nil)
}

// publish writes every configured output format for the region.
func (e *Exporter) publish(converted *Converted) ([]string, error) {
	var outputs []string

	formats := []Format{FormatCSV}
	if e.opts.WriteXLSX {
		formats = append(formats, FormatXLSX)
	}
	if e.opts.WriteJSON {
		formats = append(formats, FormatJSON)
	}
	if e.opts.WriteXML {
		formats = append(formats, FormatXML)
	}

	for _, format := range formats {
		paths, err := e.files.Publish(converted.SnapshotAt, e.region.CSVPrefix+format.Extension(), func(w io.Writer) error {
			return Render(w, format, converted.Result, converted.Lookup)
		})
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, paths...)
	}

	entries := converted.Lookup.Entries()
	paths, err := e.files.Publish(converted.SnapshotAt, LookupFileName, func(w io.Writer) error {
		return csvwriter.WriteLookup(w, entries)
	})
	if err != nil {
		return nil, err
	}
	return append(outputs, paths...), nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// Converted is a price table plus the data resolved around it.
type Converted struct {
	Result *types.ConversionResult
	Lookup types.Lookup

	// SnapshotAt is the table TimeStamp, or now when the table has none.
	SnapshotAt        time.Time
	TimestampFallback bool
}

// Convert converts a price table and an optional lookup source. A missing
// or empty lookup is logged as a warning and yields an empty lookup.
func Convert(priceText, lookupText []byte, now func() time.Time, log logger.Logger) (*Converted, error) {
	conv, err := converter.Convert(string(priceText))
	if err != nil {
		return nil, err
	}

	out := &Converted{Result: conv, Lookup: make(types.Lookup)}

	if lookupText != nil {
		lookup, err := converter.ParseLookup(string(lookupText))
		if err != nil {
			log.Warn("Item lookup unavailable: %v", err)
		}
		out.Lookup = lookup
	}

	if conv.Timestamp != nil {
		out.SnapshotAt = time.Unix(*conv.Timestamp, 0).UTC()
	} else {
		out.SnapshotAt = now().UTC()
		out.TimestampFallback = true
		log.Warn("Price table has no TimeStamp; using %s", out.SnapshotAt.Format(time.RFC3339))
	}

	return out, nil
}

// =============================================================================
// OUTPUT FORMATS
// =============================================================================

// Format is a price output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatXML  Format = "xml"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatCSV, FormatJSON, FormatXLSX, FormatXML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want csv, json, xlsx or xml)", name)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Render writes the price output in the given format. CSV is the only
// format that does not embed the lookup.
func Render(w io.Writer, format Format, conv *types.ConversionResult, lookup types.Lookup) error {
	switch format {
	case FormatCSV:
		return csvwriter.WritePrices(w, conv.Records)
	case FormatJSON:
		return jsonwriter.Write(w, conv, lookup)
	case FormatXLSX:
		return xlsxwriter.Write(w, conv.Records, lookup.Entries())
	case FormatXML:
		return xmlwriter.Write(w, conv, lookup)
	}
	return fmt.Errorf("unknown format %q", format)
}
