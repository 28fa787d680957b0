// =============================================================================
// TTC Price Export - CSV Writer Module
// =============================================================================
//
// This module serializes price records and lookup entries. Downstream tools
// parse these files by position, so the layout is fixed:
//
//   PRICES:
//     item_id,quality,level,trait,variant,avg,max,min,entry_count,amount_count,suggested_price,sale_avg,sale_entry_count,sale_amount_count
//     1234,1,2,3,4,10.5,20,5,3,4,,,,
//
//   LOOKUP:
//     item_id,item_name
//     4521,"Steel Sword"
//
// FORMATTING RULES:
//   - Numbers use the shortest decimal form without an exponent (20, 10.5)
//   - Absent optional values are empty fields
//   - Records keep the order they are given in
//   - Price rows go through encoding/csv, so a key segment holding a comma,
//     a double quote or a newline is quoted ("a,b"). Keys from the price
//     table are numeric in practice, so rows match a plain comma join.
//   - Lookup names are always quoted and never escaped. A name containing a
//     double quote produces a malformed row; consumers rely on this layout.
//
// =============================================================================

package csvwriter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// PriceHeader is the header row of a price CSV.
var PriceHeader = []string{
	"item_id", "quality", "level", "trait", "variant",
	"avg", "max", "min", "entry_count", "amount_count",
	"suggested_price", "sale_avg", "sale_entry_count", "sale_amount_count",
}

// LookupHeader is the header row of the lookup CSV.
var LookupHeader = []string{"item_id", "item_name"}

// WritePrices writes the header and one row per record.
func WritePrices(w io.Writer, records []types.PriceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PriceHeader); err != nil {
		return fmt.Errorf("failed to write price header: %w", err)
	}
	for i := range records {
		if err := cw.Write(PriceRow(records[i])); err != nil {
			return fmt.Errorf("failed to write price row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush price rows: %w", err)
	}
	return nil
}

// PriceRow renders a record in PriceHeader column order.
func PriceRow(r types.PriceRecord) []string {
	p := r.Price
	return []string{
		r.Key.ItemID(), r.Key.Quality(), r.Key.Level(), r.Key.TraitID(), r.Key.Variant(),
		FormatFloat(p.Avg),
		FormatFloat(p.Max),
		FormatFloat(p.Min),
		strconv.FormatUint(uint64(p.EntryCount), 10),
		strconv.FormatUint(uint64(p.AmountCount), 10),
		optionalFloat(p.SuggestedPrice),
		optionalFloat(p.SaleAvg),
		optionalCount(p.SaleEntryCount),
		optionalCount(p.SaleAmountCount),
	}
}

// WriteLookup writes the header and one row per entry.
func WriteLookup(w io.Writer, entries []types.LookupEntry) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s,%s\n", LookupHeader[0], LookupHeader[1]); err != nil {
		return fmt.Errorf("failed to write lookup header: %w", err)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s,\"%s\"\n", e.ItemID, e.Name); err != nil {
			return fmt.Errorf("failed to write lookup row %s: %w", e.ItemID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush lookup rows: %w", err)
	}
	return nil
}

// FormatFloat renders v in the shortest form that parses back to v, never
// using exponent notation.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

func optionalCount(v *uint32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}
