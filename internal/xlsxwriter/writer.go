// =============================================================================
// TTC Price Export - XLSX Writer Module
// =============================================================================
//
// This module writes an Excel workbook holding the same data as the CSV files:
//
//   Sheet "Prices":  PriceHeader columns, one row per record
//   Sheet "Lookup":  item_id, item_name
//
// Numbers are stored as numeric cells so spreadsheets can sort and sum them.
// Absent optional values are left as empty cells. Rows are streamed, so large
// price tables do not build a full cell model in memory.
//
// =============================================================================

package xlsxwriter

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ttc-tools/ttc-price-export/internal/csvwriter"
	"github.com/ttc-tools/ttc-price-export/internal/types"
)

const (
	// PricesSheet is the name of the price sheet.
	PricesSheet = "Prices"

	// LookupSheet is the name of the lookup sheet.
	LookupSheet = "Lookup"
)

// ErrTooManyRows is returned when a sheet would exceed the Excel row limit.
var ErrTooManyRows = errors.New("too many rows for an Excel sheet")

// Write renders the workbook to w. An empty lookup still produces a Lookup
// sheet holding only the header.
func Write(w io.Writer, records []types.PriceRecord, entries []types.LookupEntry) error {
	if len(records)+1 > excelize.TotalRows || len(entries)+1 > excelize.TotalRows {
		return fmt.Errorf("%w: %d prices, %d lookup entries", ErrTooManyRows, len(records), len(entries))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), PricesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(LookupSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := streamRows(f, PricesSheet, csvwriter.PriceHeader, len(records), func(i int) []interface{} {
		return priceCells(records[i])
	}); err != nil {
		return err
	}

	if err := streamRows(f, LookupSheet, csvwriter.LookupHeader, len(entries), func(i int) []interface{} {
		return []interface{}{entries[i].ItemID, entries[i].Name}
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// streamRows writes the header and count rows produced by row.
func streamRows(f *excelize.File, sheet string, header []string, count int, row func(int) []interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i := 0; i < count; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row(i)); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", sheet, err)
	}
	return nil
}

func priceCells(r types.PriceRecord) []interface{} {
	p := r.Price
	cells := []interface{}{
		r.Key.ItemID(), r.Key.Quality(), r.Key.Level(), r.Key.TraitID(), r.Key.Variant(),
		p.Avg, p.Max, p.Min, p.EntryCount, p.AmountCount,
		nil, nil, nil, nil,
	}
	if p.SuggestedPrice != nil {
		cells[10] = *p.SuggestedPrice
	}
	if p.SaleAvg != nil {
		cells[11] = *p.SaleAvg
	}
	if p.SaleEntryCount != nil {
		cells[12] = *p.SaleEntryCount
	}
	if p.SaleAmountCount != nil {
		cells[13] = *p.SaleAmountCount
	}
	return cells
}
