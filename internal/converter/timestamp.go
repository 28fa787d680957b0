package converter

import (
	"regexp"
	"strconv"
)

// timestampPattern accepts TimeStamp, ["TimeStamp"] and ['TimeStamp'] keys.
var timestampPattern = regexp.MustCompile(`\[?\s*['"]?TimeStamp['"]?\s*\]?\s*=\s*(\d+)`)

// ExtractTimestamp returns the first TimeStamp value found in the literal span.
// A missing key, or a value that does not fit in int64, reports false.
func ExtractTimestamp(span string) (int64, bool) {
	match := timestampPattern.FindStringSubmatch(span)
	if match == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
