// =============================================================================
// TTC Price Export - Converter Module
// =============================================================================
//
// This module turns the text of a Tamriel Trade Centre PriceTable Lua file
// into flat price records. It performs no I/O: callers hand in the decompressed
// file text and receive a ConversionResult.
//
// CONVERSION PIPELINE:
//   1. Extract the balanced table literal assigned to self.PriceTable
//   2. Read the TimeStamp value from the extracted literal
//   3. Translate the literal into an ordered document
//   4. Flatten the "Data" subtree into PriceRecords (none when Data is absent)
//
// CONCURRENCY:
//   Every function in this package is a pure function of its input and can be
//   called from several goroutines at once.
//
// =============================================================================

package converter

import (
	"fmt"

	"github.com/ttc-tools/ttc-price-export/internal/luatable"
	"github.com/ttc-tools/ttc-price-export/internal/types"
)

const (
	// PriceTablePrefix is the assignment target of the price table.
	PriceTablePrefix = "self.PriceTable"

	// DataKey is the top level key holding the price tree.
	DataKey = "Data"
)

// Convert runs the conversion pipeline over the text of one price table file.
//
// RETURNS:
//   - The records in traversal order plus the table timestamp, if any.
//   - A *luatable.StructuralParseError, *luatable.TranslationError or
//     *SchemaError when the document cannot be converted. No partial result
//     is returned with an error.
func Convert(text string) (*types.ConversionResult, error) {
	// =========================================================================
	// STEP 1: EXTRACT THE TABLE LITERAL
	// =========================================================================

	span, err := luatable.ExtractTable(text, PriceTablePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to extract price table: %w", err)
	}

	// =========================================================================
	// STEP 2: TIMESTAMP
	// =========================================================================

	result := &types.ConversionResult{}
	if ts, ok := ExtractTimestamp(span); ok {
		result.Timestamp = &ts
	}

	// =========================================================================
	// STEP 3: TRANSLATE
	// =========================================================================

	doc, err := luatable.Translate(span)
	if err != nil {
		return nil, fmt.Errorf("failed to translate price table: %w", err)
	}

	// =========================================================================
	// STEP 4: FLATTEN
	// =========================================================================

	// A missing or non-table Data holds no prices.
	raw, _ := doc.Get(DataKey)
	data, _ := asObject(raw)

	records, err := Flatten(data)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten price table: %w", err)
	}
	result.Records = records

	return result, nil
}
