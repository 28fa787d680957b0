// Package jsonwriter renders a conversion result as a JSON document:
//
//	{
//	  "timestamp": 1700000000,
//	  "records": [
//	    {"item_id": "1234", "quality": "1", ..., "avg": 10.5, "suggested_price": null, ...}
//	  ],
//	  "lookup": {"4521": "Steel Sword"}
//	}
//
// Field names match the CSV columns. Absent optional values are null.
package jsonwriter

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/ttc-tools/ttc-price-export/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the top level JSON object.
type Document struct {
	Timestamp *int64            `json:"timestamp"`
	Records   []Record          `json:"records"`
	Lookup    map[string]string `json:"lookup,omitempty"`
}

// Record is one price row.
type Record struct {
	ItemID          string   `json:"item_id"`
	Quality         string   `json:"quality"`
	Level           string   `json:"level"`
	Trait           string   `json:"trait"`
	Variant         string   `json:"variant"`
	Avg             float64  `json:"avg"`
	Max             float64  `json:"max"`
	Min             float64  `json:"min"`
	EntryCount      uint32   `json:"entry_count"`
	AmountCount     uint32   `json:"amount_count"`
	SuggestedPrice  *float64 `json:"suggested_price"`
	SaleAvg         *float64 `json:"sale_avg"`
	SaleEntryCount  *uint32  `json:"sale_entry_count"`
	SaleAmountCount *uint32  `json:"sale_amount_count"`
}

// NewDocument builds the JSON view of a conversion. lookup may be nil.
func NewDocument(result *types.ConversionResult, lookup types.Lookup) Document {
	doc := Document{
		Timestamp: result.Timestamp,
		Records:   make([]Record, len(result.Records)),
	}
	if len(lookup) > 0 {
		doc.Lookup = lookup
	}
	for i, r := range result.Records {
		p := r.Price
		doc.Records[i] = Record{
			ItemID:          r.Key.ItemID(),
			Quality:         r.Key.Quality(),
			Level:           r.Key.Level(),
			Trait:           r.Key.TraitID(),
			Variant:         r.Key.Variant(),
			Avg:             p.Avg,
			Max:             p.Max,
			Min:             p.Min,
			EntryCount:      p.EntryCount,
			AmountCount:     p.AmountCount,
			SuggestedPrice:  p.SuggestedPrice,
			SaleAvg:         p.SaleAvg,
			SaleEntryCount:  p.SaleEntryCount,
			SaleAmountCount: p.SaleAmountCount,
		}
	}
	return doc
}

// Write encodes the document to w, indented, followed by a newline.
func Write(w io.Writer, result *types.ConversionResult, lookup types.Lookup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(result, lookup)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
