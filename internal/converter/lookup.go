package converter

import (
	"errors"
	"regexp"

	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// ErrLookupTableAbsent is returned with an empty lookup when the item lookup
// table is missing or has no usable entry. Callers treat it as a warning.
var ErrLookupTableAbsent = errors.New("item lookup table absent or empty")

var (
	lookupBodyPattern  = regexp.MustCompile(`self\.ItemLookUpTable\s*=\s*\{(?s)(.*?)\}\s*end`)
	lookupEntryPattern = regexp.MustCompile(`\[\s*"([^"]+)"\s*\]\s*=\s*\{\s*\[\s*\d+\s*\]\s*=\s*(\d+)\s*,?\s*\}`)
)

// ExtractLookupBody returns the text between the braces of the
// self.ItemLookUpTable assignment. The table ends at the first "} end".
func ExtractLookupBody(text string) (string, bool) {
	match := lookupBodyPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseLookup builds the id to name mapping from a lookup source file.
// Entries that do not have the ["name"] = {[1] = id} shape are skipped.
// A later entry with the same id replaces the earlier name.
func ParseLookup(text string) (types.Lookup, error) {
	lookup := make(types.Lookup)

	body, ok := ExtractLookupBody(text)
	if !ok {
		return lookup, ErrLookupTableAbsent
	}

	for _, match := range lookupEntryPattern.FindAllStringSubmatch(body, -1) {
		lookup[match[2]] = match[1]
	}
	if len(lookup) == 0 {
		return lookup, ErrLookupTableAbsent
	}
	return lookup, nil
}
