// =============================================================================
// TTC Price Export - Validation Module
// =============================================================================
//
// This module validates price leaves before they become PriceRecords. A leaf
// is the object found at the end of a key path in the price table, e.g.:
//
//   { A = 10.5, X = 20, N = 5, EC = 3, AC = 4, S = 12, SA = 11, SE = 2, SAC = 3 }
//
// VALIDATION RULES:
//   - A, X, N          : required, numeric
//   - EC, AC           : required, whole number in the uint32 range
//   - S, SA            : optional, numeric (nil or absent means "no value")
//   - SE, SAC          : optional, whole number in the uint32 range
//   - Any other key    : ignored
//
// A leaf that fails any rule is reported with every failing field at once, so
// a corrupt source can be diagnosed in a single run.
//
// =============================================================================

package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// Keys of a price leaf in the Lua source.
const (
	AvgKey             = "A"
	MaxKey             = "X"
	MinKey             = "N"
	EntryCountKey      = "EC"
	AmountCountKey     = "AC"
	SuggestedPriceKey  = "S"
	SaleAvgKey         = "SA"
	SaleEntryCountKey  = "SE"
	SaleAmountCountKey = "SAC"
)

// =============================================================================
// VALIDATION ERROR STRUCTURE
// =============================================================================

// ValidationError represents a single failing field of a price leaf.
type ValidationError struct {
	// Field is the leaf key that failed, e.g. "EC".
	Field string

	// Value is the decoded value, nil when the field is missing.
	Value interface{}

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("field %s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is the list of failures of one leaf.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// =============================================================================
// FIELD RULES
// =============================================================================

type fieldKind int

const (
	kindPrice fieldKind = iota
	kindCount
)

type fieldRule struct {
	key      string
	kind     fieldKind
	required bool
}

// priceRules lists the leaf fields in CSV column order.
var priceRules = []fieldRule{
	{key: AvgKey, kind: kindPrice, required: true},
	{key: MaxKey, kind: kindPrice, required: true},
	{key: MinKey, kind: kindPrice, required: true},
	{key: EntryCountKey, kind: kindCount, required: true},
	{key: AmountCountKey, kind: kindCount, required: true},
	{key: SuggestedPriceKey, kind: kindPrice},
	{key: SaleAvgKey, kind: kindPrice},
	{key: SaleEntryCountKey, kind: kindCount},
	{key: SaleAmountCountKey, kind: kindCount},
}

// Fields is the read access a leaf object offers.
type Fields interface {
	Get(key string) (interface{}, bool)
}

// =============================================================================
// DECODING
// =============================================================================

// DecodePriceInfo validates a leaf and converts it to a PriceInfo.
//
// RETURNS:
//   - The decoded PriceInfo (zero value when errors are returned).
//   - Every failing field, or nil when the leaf is valid.
func DecodePriceInfo(fields Fields) (types.PriceInfo, ValidationErrors) {
	var (
		info   types.PriceInfo
		errs   ValidationErrors
		prices = make(map[string]*float64, len(priceRules))
		counts = make(map[string]*uint32, len(priceRules))
	)

	for _, rule := range priceRules {
		raw, found := fields.Get(rule.key)
		if !found || raw == nil {
			if rule.required {
				errs = append(errs, &ValidationError{Field: rule.key, Message: "required field is missing"})
			}
			continue
		}

		switch rule.kind {
		case kindPrice:
			v, msg := validatePrice(raw)
			if msg != "" {
				errs = append(errs, &ValidationError{Field: rule.key, Value: raw, Message: msg})
				continue
			}
			prices[rule.key] = &v
		case kindCount:
			v, msg := validateCount(raw)
			if msg != "" {
				errs = append(errs, &ValidationError{Field: rule.key, Value: raw, Message: msg})
				continue
			}
			counts[rule.key] = &v
		}
	}

	if len(errs) > 0 {
		return types.PriceInfo{}, errs
	}

	info.Avg = *prices[AvgKey]
	info.Max = *prices[MaxKey]
	info.Min = *prices[MinKey]
	info.EntryCount = *counts[EntryCountKey]
	info.AmountCount = *counts[AmountCountKey]
	info.SuggestedPrice = prices[SuggestedPriceKey]
	info.SaleAvg = prices[SaleAvgKey]
	info.SaleEntryCount = counts[SaleEntryCountKey]
	info.SaleAmountCount = counts[SaleAmountCountKey]
	return info, nil
}

// validatePrice returns an empty message when the value is a number.
func validatePrice(raw interface{}) (float64, string) {
	v, ok := toFloat(raw)
	if !ok {
		return 0, "must be a number"
	}
	return v, ""
}

// validateCount returns an empty message when the value is a whole number that
// fits in uint32.
func validateCount(raw interface{}) (uint32, string) {
	v, ok := toFloat(raw)
	switch {
	case !ok:
		return 0, "must be a number"
	case v != math.Trunc(v):
		return 0, "must be a whole number"
	case v < 0:
		return 0, "must not be negative"
	case v > math.MaxUint32:
		return 0, "exceeds the uint32 range"
	}
	return uint32(v), ""
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	}
	return 0, false
}
