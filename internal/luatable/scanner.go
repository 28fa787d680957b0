// =============================================================================
// TTC Price Export - Lua Table Literal Scanner
// =============================================================================
//
// This file locates a named table assignment in Lua source text and returns
// the body of its table constructor. Saved-variable and export files contain
// a single large literal such as:
//
//   self.PriceTable = {
//       ["Data"] = { ... },
//       TimeStamp = 1700000000,
//   }
//
// SCANNING RULES:
//   - The prefix and the braces are only recognized in code, never inside
//     strings or comments.
//   - Depth counting starts at the first '{' following the prefix.
//   - Comments inside the returned span are blanked out.
//
// =============================================================================

package luatable

import "strings"

// ExtractTable returns the text strictly between the first '{' following
// prefix and its balancing '}', trimmed of surrounding whitespace.
//
// PARAMETERS:
//   - src: The Lua source text.
//   - prefix: The text preceding the table, e.g. "self.PriceTable".
//
// RETURNS:
//   - The table body.
//   - A *StructuralParseError if the prefix or a balanced table is missing.
func ExtractTable(src, prefix string) (string, error) {
	open, closing, err := locateTable(src, prefix)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(blankComments(src[open+1 : closing])), nil
}

// locateTable returns the offsets of the opening and closing braces.
func locateTable(src, prefix string) (int, int, error) {
	foundPrefix := prefix == ""
	open, depth := -1, 0

	for seg := range segments(src) {
		if seg.Kind != segmentCode {
			continue
		}

		i := seg.Start
		if !foundPrefix {
			idx := strings.Index(src[i:seg.End], prefix)
			if idx < 0 {
				continue
			}
			foundPrefix = true
			i += idx + len(prefix)
		}

		for ; i < seg.End; i++ {
			switch src[i] {
			case '{':
				if open < 0 {
					open = i
				}
				depth++
			case '}':
				if open < 0 {
					continue
				}
				depth--
				if depth == 0 {
					return open, i, nil
				}
			}
		}
	}

	switch {
	case !foundPrefix:
		return -1, -1, &StructuralParseError{Prefix: prefix, Offset: -1, Reason: "assignment prefix not found"}
	case open < 0:
		return -1, -1, &StructuralParseError{Prefix: prefix, Offset: len(src), Reason: "no opening brace after prefix"}
	default:
		return -1, -1, &StructuralParseError{Prefix: prefix, Offset: open, Reason: "no balanced closing brace"}
	}
}
