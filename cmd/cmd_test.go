package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttc-tools/ttc-price-export/internal/config"
	"github.com/ttc-tools/ttc-price-export/internal/exporter"
	"github.com/ttc-tools/ttc-price-export/internal/logger"
	"github.com/ttc-tools/ttc-price-export/pkg/utils"
)

func TestSnapshotTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		at      string
		path    string
		want    time.Time
		wantErr bool
	}{
		{name: "unix seconds", at: "1700000000", path: "na.csv", want: time.Unix(1700000000, 0).UTC()},
		{name: "rfc3339", at: "2024-05-01T12:00:00+02:00", path: "na.csv", want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{name: "dated path", path: filepath.Join("output", "2024", "05", "01", "na.csv"), want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{name: "undated path", path: filepath.Join("output", "latest", "na.csv"), wantErr: true},
		{name: "bad flag", at: "yesterday", path: "na.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := snapshotTime(tt.at, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestOutputBaseName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pricetablena", outputBaseName(filepath.Join("saved", "PriceTableNA.lua")))
	assert.Equal(t, "prices", outputBaseName("prices"))
}

type zipFetcher struct {
	archives map[string][]byte
}

func (f zipFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	return f.archives[url], nil
}

func buildZip(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExportRegionsConcurrently(t *testing.T) {
	t.Parallel()

	regions := config.DefaultRegions()
	fetcher := zipFetcher{archives: map[string][]byte{
		regions[0].URL: buildZip(t, "PriceTableNA.lua", `self.PriceTable = { TimeStamp = 1700000000, Data = { [1] = { A=1, X=1, N=1, EC=1, AC=1 } } }`),
		// EU archive carries the wrong member
		regions[1].URL: buildZip(t, "PriceTableNA.lua", `self.PriceTable = { Data = {} }`),
	}}
	files := utils.NewFileManager(afero.NewMemMapFs(), "/out", "/out/latest")
	cfg := &config.Config{MaxConcurrency: 1}

	results := exportRegionsConcurrently(context.Background(), cfg, regions, func(region config.RegionConfig) *exporter.Exporter {
		return exporter.New(region, exporter.Options{}, fetcher, files, nil, logger.Nop())
	})

	require.Len(t, results, 2)
	assert.Equal(t, "NA", results[0].Region)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, results[0].Stats.Records)
	assert.Equal(t, "EU", results[1].Region)
	assert.False(t, results[1].Success)

	summary := utils.RunSummary{}
	for _, r := range results {
		summary.Regions = append(summary.Regions, regionSummary(r))
	}
	assert.Equal(t, 1, summary.Failed())
	assert.EqualError(t, summaryError(summary), "1 of 2 region(s) failed")
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	pricePath := filepath.Join(dir, "PriceTableEU.lua")
	lookupPath := filepath.Join(dir, "ItemLookUpTable_EN.lua")
	outDir := filepath.Join(dir, "csv")

	require.NoError(t, os.WriteFile(pricePath, []byte(
		`self.PriceTable = { ["Data"] = { [4521] = { [1] = { A=10.5, X=20, N=5, EC=3, AC=4 } } }, ["TimeStamp"] = 1700000000 }`,
	), 0o644))
	require.NoError(t, os.WriteFile(lookupPath, []byte(
		"self.ItemLookUpTable = {\n\t[\"Steel Sword\"] = {[1] = 4521,},\n} end",
	), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"convert", pricePath,
		"--lookup", lookupPath,
		"--out", outDir,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	prices, err := os.ReadFile(filepath.Join(outDir, "pricetableeu.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"item_id,quality,level,trait,variant,avg,max,min,entry_count,amount_count,suggested_price,sale_avg,sale_entry_count,sale_amount_count\n"+
			"4521,1,,,,10.5,20,5,3,4,,,,\n",
		string(prices))

	lookup, err := os.ReadFile(filepath.Join(outDir, "lookup.csv"))
	require.NoError(t, err)
	assert.Equal(t, "item_id,item_name\n4521,\"Steel Sword\"\n", string(lookup))

	assert.Contains(t, stdout.String(), "1 records")
	assert.Contains(t, stdout.String(), "1 items")
}
