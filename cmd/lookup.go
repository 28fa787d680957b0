package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ttc-tools/ttc-price-export/internal/converter"
	"github.com/ttc-tools/ttc-price-export/internal/csvwriter"
	"github.com/ttc-tools/ttc-price-export/pkg/utils"
)

var lookupOut string

// lookupCmd converts an ItemLookUpTable file to lookup.csv.
var lookupCmd = &cobra.Command{
	Use:   "lookup <ItemLookUpTable.lua>",
	Short: "Convert an item lookup table to CSV",
	Long: `The lookup command writes the item id to name mapping of an item lookup
Lua file as CSV, sorted by item id. Use --out - to print to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupOut, "out", "lookup.csv", `Output file, "-" for standard output`)
}

func runLookup(input string, stdout io.Writer) error {
	_, log, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	text, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read item lookup: %w", err)
	}

	lookup, err := converter.ParseLookup(string(text))
	if err != nil {
		if !errors.Is(err, converter.ErrLookupTableAbsent) {
			return err
		}
		log.Warn("%s: %v", input, err)
	}
	entries := lookup.Entries()

	if lookupOut == "-" {
		return csvwriter.WriteLookup(stdout, entries)
	}

	files := utils.NewFileManager(afero.NewOsFs(), ".", ".")
	err = files.WriteFileAtomic(lookupOut, func(w io.Writer) error {
		return csvwriter.WriteLookup(w, entries)
	})
	if err != nil {
		return err
	}
	log.Info("Wrote %d item names to %s", len(entries), lookupOut)
	return nil
}
