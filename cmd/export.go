// =============================================================================
// TTC Price Export - Export Command
// =============================================================================
//
// This file defines the 'export' command, the main command of the tool. It
// downloads and converts every configured region.
//
// COMMAND USAGE:
//   ttcexport export [flags]
//
// FLAGS:
//   --region   : Export only the named region (repeatable)
//   --dry-run  : Download and convert without writing files or rows
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Open the snapshot store, if enabled
//   3. Export each region concurrently (see internal/exporter)
//   4. Write the run summary and prune old dated folders
//
// A failing region does not stop the others, but any failure makes the
// command exit non-zero.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ttc-tools/ttc-price-export/internal/config"
	"github.com/ttc-tools/ttc-price-export/internal/download"
	"github.com/ttc-tools/ttc-price-export/internal/exporter"
	"github.com/ttc-tools/ttc-price-export/internal/store"
	"github.com/ttc-tools/ttc-price-export/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// exportRegions restricts the export to the named regions.
var exportRegions []string

// dryRun converts without writing output files.
var dryRun bool

// =============================================================================
// EXPORT COMMAND DEFINITION
// =============================================================================

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download and convert the price tables of every region",
	Long: `The export command downloads the price table archive of each configured
region, converts the Lua price table to CSV and publishes it.

For a table with timestamp T the files are written to:
  <output_dir>/YYYY/MM/DD/<prefix>.csv   (date of T in UTC)
  <latest_dir>/<prefix>.csv
together with lookup.csv, the item id to name mapping.

Regions are processed concurrently. A failing region is reported in the run
summary and does not affect the others.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceVar(
		&exportRegions,
		"region",
		nil,
		"Export only this region (repeatable, default all)",
	)

	exportCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Download and convert without writing files or database rows",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runExport(ctx context.Context) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, baseLog, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = baseLog.Sync() }()

	regions, err := cfg.SelectRegions(exportRegions)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := baseLog.With("run", runID)
	log.Info("Exporting %d region(s) into %s", len(regions), cfg.OutputDir)

	files := utils.NewFileManager(afero.NewOsFs(), cfg.OutputDir, cfg.LatestDir)
	client := download.New(cfg.HTTP, log)

	// =========================================================================
	// STEP 2: OPEN SNAPSHOT STORE
	// =========================================================================

	var snapshots exporter.SnapshotStore
	if cfg.Database.Enabled && !dryRun {
		db, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		snapshots = db
	}

	// =========================================================================
	// STEP 3: EXPORT REGIONS CONCURRENTLY
	// =========================================================================

	opts := exporter.Options{
		WriteXLSX: cfg.WriteXLSX,
		WriteJSON: cfg.WriteJSON,
		WriteXML:  cfg.WriteXML,
		DryRun:    dryRun,
	}

	results := exportRegionsConcurrently(ctx, cfg, regions, func(region config.RegionConfig) *exporter.Exporter {
		return exporter.New(region, opts, client, files, snapshots, log.With("region", region.Name))
	})

	// =========================================================================
	// STEP 4: SUMMARY AND RETENTION
	// =========================================================================

	summary := utils.RunSummary{
		RunID:     runID,
		StartTime: startTime,
		EndTime:   time.Now(),
	}
	for _, result := range results {
		summary.Regions = append(summary.Regions, regionSummary(result))
		if result.Success {
			fmt.Printf("  ✓ %s: %d records (%s)\n", result.Region, result.Stats.Records,
				result.SnapshotAt.Format(time.RFC3339))
		} else {
			fmt.Printf("  ✗ %s: %v\n", result.Region, result.Error)
		}
	}

	if dryRun {
		return summaryError(summary)
	}

	if path, err := files.WriteSummaryLog(summary); err != nil {
		log.Error("%v", err)
	} else {
		log.Debug("Summary written to %s", path)
	}

	if cfg.RetentionDays > 0 && summary.Failed() == 0 {
		removed, err := files.CleanOldDatedDirs(time.Now(), time.Duration(cfg.RetentionDays)*24*time.Hour)
		if err != nil {
			log.Warn("Retention cleanup failed: %v", err)
		} else if removed > 0 {
			log.Info("Removed %d dated folder(s) older than %d days", removed, cfg.RetentionDays)
		}
	}

	return summaryError(summary)
}

// exportRegionsConcurrently runs one exporter per region, at most
// cfg.MaxConcurrency at a time. Results keep the region order.
func exportRegionsConcurrently(ctx context.Context, cfg *config.Config, regions []config.RegionConfig,
	build func(config.RegionConfig) *exporter.Exporter) []exporter.Result {

	results := make([]exporter.Result, len(regions))

	var g errgroup.Group
	g.SetLimit(cfg.MaxConcurrency)
	for i, region := range regions {
		g.Go(func() error {
			results[i] = build(region).Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func regionSummary(result exporter.Result) utils.RegionSummary {
	rs := utils.RegionSummary{
		Name:          result.Region,
		Records:       result.Stats.Records,
		LookupEntries: result.Stats.LookupEntries,
		Timestamp:     result.SnapshotAt,
		Duration:      result.Stats.ProcessingTime,
		OutputFiles:   result.OutputFiles,
	}
	if result.Error != nil {
		rs.ErrorMessage = result.Error.Error()
	}
	return rs
}

func summaryError(summary utils.RunSummary) error {
	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d region(s) failed", failed, len(summary.Regions))
	}
	return nil
}
