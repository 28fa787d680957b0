// =============================================================================
// TTC Price Export - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which converts a price table that
// is already on disk. Nothing is downloaded and no dated folders are used.
//
// COMMAND USAGE:
//   ttcexport convert <PriceTable.lua> [flags]
//
// FLAGS:
//   --lookup  : Item lookup Lua file, also writes lookup.csv
//   --out     : Output directory (default ".")
//   --name    : Output base name (default: input name, lowercased)
//   --format  : csv, json, xlsx or xml (default csv)
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ttc-tools/ttc-price-export/internal/csvwriter"
	"github.com/ttc-tools/ttc-price-export/internal/exporter"
	"github.com/ttc-tools/ttc-price-export/pkg/utils"
)

var (
	convertLookup string
	convertOut    string
	convertName   string
	convertFormat string
)

var convertCmd = &cobra.Command{
	Use:   "convert <PriceTable.lua>",
	Short: "Convert a price table file on disk",
	Long: `The convert command converts a local Lua price table, for example one
copied from the game's SavedVariables or AddOns folder, into a single output
file. With --lookup the item lookup table is converted to lookup.csv as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertLookup, "lookup", "", "Item lookup Lua file")
	convertCmd.Flags().StringVar(&convertOut, "out", ".", "Output directory")
	convertCmd.Flags().StringVar(&convertName, "name", "", "Output base name (default: input file name, lowercased)")
	convertCmd.Flags().StringVar(&convertFormat, "format", string(exporter.FormatCSV), "Output format: csv, json, xlsx or xml")
}

func runConvert(input string, stdout io.Writer) error {
	_, log, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	format, err := exporter.ParseFormat(convertFormat)
	if err != nil {
		return err
	}

	priceText, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read price table: %w", err)
	}

	var lookupText []byte
	if convertLookup != "" {
		lookupText, err = os.ReadFile(convertLookup)
		if err != nil {
			return fmt.Errorf("failed to read item lookup: %w", err)
		}
	}

	converted, err := exporter.Convert(priceText, lookupText, time.Now, log)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", input, err)
	}

	name := convertName
	if name == "" {
		name = outputBaseName(input)
	}

	files := utils.NewFileManager(afero.NewOsFs(), convertOut, convertOut)
	pricePath := filepath.Join(convertOut, name+format.Extension())
	err = files.WriteFileAtomic(pricePath, func(w io.Writer) error {
		return exporter.Render(w, format, converted.Result, converted.Lookup)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d records\n", pricePath, len(converted.Result.Records))

	if lookupText != nil {
		lookupPath := filepath.Join(convertOut, exporter.LookupFileName)
		entries := converted.Lookup.Entries()
		err = files.WriteFileAtomic(lookupPath, func(w io.Writer) error {
			return csvwriter.WriteLookup(w, entries)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d items\n", lookupPath, len(entries))
	}

	return nil
}

// outputBaseName turns "PriceTableNA.lua" into "pricetablena".
func outputBaseName(input string) string {
	base := filepath.Base(input)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
