// =============================================================================
// TTC Price Export - Load Command
// =============================================================================
//
// This file defines the 'load' command, which backfills the snapshot store
// from price CSV files written by earlier exports.
//
// COMMAND USAGE:
//   ttcexport load <na.csv> --region NA --at 2024-05-01T10:00:00Z
//
// When --at is omitted the snapshot time is taken from a dated output path
// (.../YYYY/MM/DD/na.csv) at midnight UTC.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttc-tools/ttc-price-export/internal/csvreader"
	"github.com/ttc-tools/ttc-price-export/internal/store"
)

var (
	loadRegion string
	loadAt     string
)

var loadCmd = &cobra.Command{
	Use:   "load <prices.csv>...",
	Short: "Load exported price CSV files into the database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadRegion, "region", "", "Region the files belong to (required)")
	loadCmd.Flags().StringVar(&loadAt, "at", "", "Snapshot time, RFC 3339 or unix seconds (default: from the dated path)")
	_ = loadCmd.MarkFlagRequired("region")
}

func runLoad(ctx context.Context, paths []string) error {
	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Database.Enabled {
		return errors.New("database is not configured (set database.dsn or TTC_DATABASE_DSN)")
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range paths {
		at, err := snapshotTime(loadAt, path)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		records, err := csvreader.ReadPrices(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rows, err := db.SavePrices(ctx, loadRegion, at, records)
		if err != nil {
			return err
		}
		log.Info("Loaded %d rows from %s as %s %s", rows, path, loadRegion, at.Format(time.RFC3339))
	}
	return nil
}

// snapshotTime parses the --at flag, or derives midnight UTC from a
// YYYY/MM/DD/<file> path when the flag is empty.
func snapshotTime(at, path string) (time.Time, error) {
	if at != "" {
		if secs, err := strconv.ParseInt(at, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or unix seconds", at)
		}
		return t.UTC(), nil
	}

	day := filepath.Dir(path)
	month := filepath.Dir(day)
	year := filepath.Dir(month)
	date := filepath.Base(year) + "-" + filepath.Base(month) + "-" + filepath.Base(day)

	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s is not in a dated folder, pass --at", path)
	}
	return t, nil
}
