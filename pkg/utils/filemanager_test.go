package utils

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatedDir(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0) // 2023-11-14 22:13:20 UTC
	assert.Equal(t, filepath.Join("out", "2023", "11", "14"), DatedDir("out", ts))

	// the date is always taken in UTC
	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, filepath.Join("out", "2023", "11", "14"), DatedDir("out", ts.In(tokyo)))
}

func TestPublish(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	fm := NewFileManager(fs, "/out", "/out/latest")

	paths, err := fm.Publish(time.Unix(1700000000, 0), "na.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "item_id\n1\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/out", "2023", "11", "14", "na.csv"),
		filepath.Join("/out", "latest", "na.csv"),
	}, paths)

	for _, p := range paths {
		content, err := afero.ReadFile(fs, p)
		require.NoError(t, err)
		assert.Equal(t, "item_id\n1\n", string(content))
	}
}

func TestWriteFileAtomic_FailureKeepsOldFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	fm := NewFileManager(fs, "/out", "/out/latest")
	require.NoError(t, afero.WriteFile(fs, "/out/latest/eu.csv", []byte("old"), 0o644))

	err := fm.WriteFileAtomic("/out/latest/eu.csv", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	content, err := afero.ReadFile(fs, "/out/latest/eu.csv")
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))

	infos, err := afero.ReadDir(fs, "/out/latest")
	require.NoError(t, err)
	require.Len(t, infos, 1, "temp file left behind")
}

func TestCleanOldDatedDirs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	fm := NewFileManager(fs, "/out", "/out/latest")
	for _, p := range []string{
		"/out/2024/01/30/na.csv",
		"/out/2024/02/01/na.csv",
		"/out/2024/02/10/na.csv",
		"/out/latest/na.csv",
		"/out/notes/readme.txt",
	} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}

	now := time.Date(2024, 2, 11, 12, 0, 0, 0, time.UTC)
	removed, err := fm.CleanOldDatedDirs(now, 5*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for path, want := range map[string]bool{
		"/out/2024/01":           false,
		"/out/2024/02/01":        false,
		"/out/2024/02/10/na.csv": true,
		"/out/latest/na.csv":     true,
		"/out/notes/readme.txt":  true,
	} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.Equal(t, want, exists, path)
	}
}

func TestWriteSummaryLog(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	fm := NewFileManager(fs, "/out", "/out/latest")
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	path, err := fm.WriteSummaryLog(RunSummary{
		RunID:     "run-1",
		StartTime: start,
		EndTime:   start.Add(90 * time.Second),
		Regions: []RegionSummary{
			{Name: "NA", Records: 120, LookupEntries: 30, Timestamp: start, OutputFiles: []string{"/out/2024/03/01/na.csv"}},
			{Name: "EU", ErrorMessage: "download failed"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "summary_20240301_060000.txt"), path)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Run ID:         run-1")
	assert.Contains(t, text, "Successful:     1")
	assert.Contains(t, text, "Failed:         1")
	assert.Contains(t, text, "Records:        120")
	assert.Contains(t, text, "Output:         /out/2024/03/01/na.csv")
	assert.Contains(t, text, "Error:          download failed")
}
