// =============================================================================
// TTC Price Export - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - converter
//   - validation
//   - csvwriter / csvreader / jsonwriter / xlsxwriter
//   - store
//
// =============================================================================

package types

import "sort"

// KeyDepth is the fixed width of a record identity.
const KeyDepth = 5

// =============================================================================
// PRICE TYPES
// =============================================================================

// RecordKey is the identity of a price record: the chain of ancestor keys
// leading to the price leaf. Levels that do not exist in the source are
// stored as empty strings so keys always compare as fixed-width tuples.
type RecordKey [KeyDepth]string

// NewRecordKey pads or truncates path to exactly KeyDepth entries.
func NewRecordKey(path []string) RecordKey {
	var key RecordKey
	copy(key[:], path)
	return key
}

// ItemID is the first key level.
func (k RecordKey) ItemID() string { return k[0] }

// Quality is the second key level.
func (k RecordKey) Quality() string { return k[1] }

// Level is the third key level.
func (k RecordKey) Level() string { return k[2] }

// TraitID is the fourth key level.
func (k RecordKey) TraitID() string { return k[3] }

// Variant is the fifth key level.
func (k RecordKey) Variant() string { return k[4] }

// PriceInfo holds the statistics stored in one price leaf.
// Field comments name the key used in the Lua source.
type PriceInfo struct {
	// Avg is the average listing price (A).
	Avg float64

	// Max is the highest listing price (X).
	Max float64

	// Min is the lowest listing price (N).
	Min float64

	// EntryCount is the number of listings seen (EC).
	EntryCount uint32

	// AmountCount is the number of items across all listings (AC).
	AmountCount uint32

	// SuggestedPrice is the suggested price (S), nil when absent.
	SuggestedPrice *float64

	// SaleAvg is the average sale price (SA), nil when absent.
	SaleAvg *float64

	// SaleEntryCount is the number of sales seen (SE), nil when absent.
	SaleEntryCount *uint32

	// SaleAmountCount is the number of items sold (SAC), nil when absent.
	SaleAmountCount *uint32
}

// PriceRecord is one flattened price leaf.
type PriceRecord struct {
	Key   RecordKey
	Price PriceInfo
}

// ConversionResult is the output of converting one price table document.
type ConversionResult struct {
	// Records are the price leaves in traversal order.
	Records []PriceRecord

	// Timestamp is the TimeStamp value found in the table (epoch seconds),
	// nil when the table carries none.
	Timestamp *int64
}

// =============================================================================
// LOOKUP TYPES
// =============================================================================

// LookupEntry maps an item id to its display name.
type LookupEntry struct {
	ItemID string
	Name   string
}

// Lookup is an item id -> display name map. Later inserts of the same id
// overwrite earlier ones.
type Lookup map[string]string

// Entries returns the lookup sorted by ascending string order of the id.
func (l Lookup) Entries() []LookupEntry {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]LookupEntry, len(ids))
	for i, id := range ids {
		entries[i] = LookupEntry{ItemID: id, Name: l[id]}
	}
	return entries
}
