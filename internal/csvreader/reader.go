// =============================================================================
// TTC Price Export - CSV Reader Module
// =============================================================================
//
// This module reads price CSV files produced by the exporter back into
// PriceRecords. It is used to backfill the snapshot store from dated folders
// written by earlier runs.
//
// PARSING RULES:
//   - The header row is required; columns are located by name
//   - A UTF-8 byte order mark on the first header is ignored
//   - Every row must have as many fields as the header
//   - Empty optional fields decode as "absent"
//
// =============================================================================

package csvreader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ttc-tools/ttc-price-export/internal/csvwriter"
	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// ErrMissingColumn is returned when the header lacks a price column.
var ErrMissingColumn = errors.New("missing column")

// ReadPrices parses a price CSV.
//
// RETURNS:
//   - The records in file order.
//   - An error naming the line and column of the first invalid value.
func ReadPrices(r io.Reader) ([]types.PriceRecord, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	csvReader.ReuseRecord = true

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	records := make([]types.PriceRecord, 0)
	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := csvReader.FieldPos(0)
		record, err := parseRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// indexColumns maps every price column to its position in the header.
func indexColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		positions[strings.TrimSpace(name)] = i
	}

	columns := make(map[string]int, len(csvwriter.PriceHeader))
	for _, name := range csvwriter.PriceHeader {
		pos, ok := positions[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		columns[name] = pos
	}
	return columns, nil
}

// parseRow decodes one data row.
func parseRow(row []string, columns map[string]int) (types.PriceRecord, error) {
	var (
		record types.PriceRecord
		err    error
	)
	field := func(name string) string {
		return row[columns[name]]
	}

	for i, name := range csvwriter.PriceHeader[:types.KeyDepth] {
		record.Key[i] = field(name)
	}

	p := &record.Price
	if p.Avg, err = parseFloat(field("avg"), "avg"); err != nil {
		return record, err
	}
	if p.Max, err = parseFloat(field("max"), "max"); err != nil {
		return record, err
	}
	if p.Min, err = parseFloat(field("min"), "min"); err != nil {
		return record, err
	}
	if p.EntryCount, err = parseCount(field("entry_count"), "entry_count"); err != nil {
		return record, err
	}
	if p.AmountCount, err = parseCount(field("amount_count"), "amount_count"); err != nil {
		return record, err
	}
	if p.SuggestedPrice, err = optionalFloat(field("suggested_price"), "suggested_price"); err != nil {
		return record, err
	}
	if p.SaleAvg, err = optionalFloat(field("sale_avg"), "sale_avg"); err != nil {
		return record, err
	}
	if p.SaleEntryCount, err = optionalCount(field("sale_entry_count"), "sale_entry_count"); err != nil {
		return record, err
	}
	if p.SaleAmountCount, err = optionalCount(field("sale_amount_count"), "sale_amount_count"); err != nil {
		return record, err
	}
	return record, nil
}

func parseFloat(s, column string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", column, s)
	}
	return v, nil
}

func parseCount(s, column string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid count %q", column, s)
	}
	return uint32(v), nil
}

func optionalFloat(s, column string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFloat(s, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalCount(s, column string) (*uint32, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseCount(s, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
