// =============================================================================
// TTC Price Export - File Manager Utility
// =============================================================================
//
// This module owns the output layout of the exporter:
//
//   <output_dir>/YYYY/MM/DD/<prefix>.csv     dated copy, one folder per day
//   <output_dir>/YYYY/MM/DD/lookup.csv
//   <latest_dir>/<prefix>.csv                 always the newest export
//   <latest_dir>/lookup.csv
//   <output_dir>/summary_YYYYMMDD_HHMMSS.txt  one per run
//
// WRITE STRATEGY:
//   - Files are written to a hidden temp file in the target folder and renamed
//     into place, so readers never see a half written CSV
//   - A failed write removes its temp file and leaves the old file untouched
//
// RETENTION:
//   - Dated folders older than the retention period are removed
//   - Year and month folders left empty are removed as well
//
// All file access goes through an afero.Fs so tests can run in memory.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the exporter.
type FileManager struct {
	fs afero.Fs

	// OutputDir is the root of the dated folders.
	OutputDir string

	// LatestDir holds the newest copy of every output file.
	LatestDir string
}

// NewFileManager creates a new FileManager on the given filesystem.
func NewFileManager(fs afero.Fs, outputDir, latestDir string) *FileManager {
	return &FileManager{
		fs:        fs,
		OutputDir: outputDir,
		LatestDir: latestDir,
	}
}

// DatedDir returns root/YYYY/MM/DD for the UTC date of ts.
func DatedDir(root string, ts time.Time) string {
	ts = ts.UTC()
	return filepath.Join(root, ts.Format("2006"), ts.Format("01"), ts.Format("02"))
}

// Publish writes the same content to the dated folder of ts and to the
// latest folder.
//
// PARAMETERS:
//   - ts: The price table timestamp, selects the dated folder.
//   - name: The file name, e.g. "na.csv".
//   - write: Produces the file content. It is called once per destination.
//
// RETURNS:
//   - The paths written, dated path first.
//   - An error if any destination could not be written.
func (fm *FileManager) Publish(ts time.Time, name string, write func(io.Writer) error) ([]string, error) {
	paths := []string{
		filepath.Join(DatedDir(fm.OutputDir, ts), name),
		filepath.Join(fm.LatestDir, name),
	}
	for _, path := range paths {
		if err := fm.WriteFileAtomic(path, write); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// WriteFileAtomic writes a file through a temp file in the same folder and
// renames it into place.
func (fm *FileManager) WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := fm.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	file, err := fm.fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	defer func() {
		if err != nil {
			_ = fm.fs.Remove(tmpPath)
		}
	}()

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := fm.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// =============================================================================
// RETENTION
// =============================================================================

// CleanOldDatedDirs removes dated folders whose date is older than maxAge.
//
// PARAMETERS:
//   - now: The reference time.
//   - maxAge: The maximum age of folders to keep.
//
// RETURNS:
//   - The number of day folders removed.
//   - An error if cleaning fails.
//
// Only folders matching the YYYY/MM/DD layout are considered, so the latest
// folder and summaries are never touched.
func (fm *FileManager) CleanOldDatedDirs(now time.Time, maxAge time.Duration) (int, error) {
	cutoff := now.UTC().Add(-maxAge)
	cutoffDay := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	removed := 0

	years, err := fm.numericDirs(fm.OutputDir, 4)
	if err != nil {
		return 0, fmt.Errorf("failed to clean dated folders: %w", err)
	}

	for _, year := range years {
		yearDir := filepath.Join(fm.OutputDir, year)
		months, err := fm.numericDirs(yearDir, 2)
		if err != nil {
			return removed, fmt.Errorf("failed to clean dated folders: %w", err)
		}

		for _, month := range months {
			monthDir := filepath.Join(yearDir, month)
			days, err := fm.numericDirs(monthDir, 2)
			if err != nil {
				return removed, fmt.Errorf("failed to clean dated folders: %w", err)
			}

			for _, day := range days {
				date, err := time.Parse("2006/01/02", year+"/"+month+"/"+day)
				if err != nil || !date.Before(cutoffDay) {
					continue
				}
				if err := fm.fs.RemoveAll(filepath.Join(monthDir, day)); err != nil {
					return removed, fmt.Errorf("failed to remove %s: %w", filepath.Join(monthDir, day), err)
				}
				removed++
			}
			fm.removeIfEmpty(monthDir)
		}
		fm.removeIfEmpty(yearDir)
	}

	return removed, nil
}

// numericDirs lists sub folders whose name is a number of the given width.
func (fm *FileManager) numericDirs(dir string, width int) ([]string, error) {
	exists, err := afero.DirExists(fm.fs, dir)
	if err != nil || !exists {
		return nil, err
	}

	infos, err := afero.ReadDir(fm.fs, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, info := range infos {
		if !info.IsDir() || len(info.Name()) != width {
			continue
		}
		if _, err := strconv.Atoi(info.Name()); err != nil {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (fm *FileManager) removeIfEmpty(dir string) {
	if empty, err := afero.IsEmpty(fm.fs, dir); err == nil && empty {
		_ = fm.fs.Remove(dir)
	}
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about an export run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Regions   []RegionSummary
}

// RegionSummary describes the outcome of one region.
type RegionSummary struct {
	Name          string
	Records       int
	LookupEntries int
	// Timestamp is the price table timestamp (or the fallback time).
	Timestamp   time.Time
	Duration    time.Duration
	OutputFiles []string
	// ErrorMessage is empty for successful regions.
	ErrorMessage string
}

// Failed returns the number of regions that did not export.
func (s RunSummary) Failed() int {
	failed := 0
	for _, r := range s.Regions {
		if r.ErrorMessage != "" {
			failed++
		}
	}
	return failed
}

// WriteSummaryLog writes a run summary to the output directory.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	summaryFileName := fmt.Sprintf("summary_%s.txt", summary.StartTime.UTC().Format("20060102_150405"))
	summaryPath := filepath.Join(fm.OutputDir, summaryFileName)

	err := fm.WriteFileAtomic(summaryPath, func(w io.Writer) error {
		_, err := io.WriteString(w, FormatSummary(summary))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return summaryPath, nil
}

// FormatSummary renders a run summary as text.
func FormatSummary(summary RunSummary) string {
	var b []byte
	line := func(format string, args ...interface{}) {
		b = fmt.Appendf(b, format+"\n", args...)
	}

	line("TTC Price Export - Run Summary")
	line("================================================================================")
	line("")
	line("Run Information:")
	line("  Run ID:         %s", summary.RunID)
	line("  Start Time:     %s", summary.StartTime.UTC().Format("2006-01-02 15:04:05"))
	line("  End Time:       %s", summary.EndTime.UTC().Format("2006-01-02 15:04:05"))
	line("  Duration:       %s", summary.EndTime.Sub(summary.StartTime))
	line("")
	line("Statistics:")
	line("  Total Regions:  %d", len(summary.Regions))
	line("  Successful:     %d", len(summary.Regions)-summary.Failed())
	line("  Failed:         %d", summary.Failed())
	line("")

	for _, r := range summary.Regions {
		line("Region %s:", r.Name)
		line("--------------------------------------------------------------------------------")
		if r.ErrorMessage != "" {
			line("  Error:          %s", r.ErrorMessage)
			line("")
			continue
		}
		line("  Records:        %d", r.Records)
		line("  Lookup Entries: %d", r.LookupEntries)
		line("  Timestamp:      %s", r.Timestamp.UTC().Format(time.RFC3339))
		line("  Process Time:   %s", r.Duration)
		for _, f := range r.OutputFiles {
			line("  Output:         %s", f)
		}
		line("")
	}

	line("================================================================================")
	line("End of Summary")
	return string(b)
}
