package luatable

import (
	"iter"
	"strings"
)

// segmentKind classifies a run of Lua source text.
type segmentKind int

const (
	segmentCode segmentKind = iota
	segmentString
	segmentComment
)

// segment is a half-open byte range [Start, End) of the source.
type segment struct {
	Kind  segmentKind
	Start int
	End   int
}

// segments splits src into code, string and comment runs with a single state
// machine, so a "--" inside a string is never a comment and a quote inside a
// comment never opens a string.
//
// Recognized forms:
//   - short strings delimited by ' or ", with backslash escapes
//   - long strings [[ ... ]] and [==[ ... ]==]
//   - line comments -- ... (the newline stays in the following code run)
//   - block comments --[[ ... ]] and --[==[ ... ]==]
//
// Unterminated strings and comments run to the end of src.
func segments(src string) iter.Seq[segment] {
	return func(yield func(segment) bool) {
		start := 0
		for i := 0; i < len(src); {
			kind, end, ok := delimitedAt(src, i)
			if !ok {
				i++
				continue
			}
			if start < i && !yield(segment{Kind: segmentCode, Start: start, End: i}) {
				return
			}
			if !yield(segment{Kind: kind, Start: i, End: end}) {
				return
			}
			i, start = end, end
		}
		if start < len(src) {
			yield(segment{Kind: segmentCode, Start: start, End: len(src)})
		}
	}
}

// delimitedAt reports whether a string or comment opens at src[i] and where it ends.
func delimitedAt(src string, i int) (segmentKind, int, bool) {
	switch c := src[i]; {
	case c == '-' && strings.HasPrefix(src[i:], "--"):
		if level, ok := longBracketAt(src, i+2); ok {
			return segmentComment, closeLongBracket(src, i+2+level+2, level), true
		}
		if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
			return segmentComment, i + nl, true
		}
		return segmentComment, len(src), true
	case c == '\'' || c == '"':
		return segmentString, closeQuoted(src, i), true
	case c == '[':
		if level, ok := longBracketAt(src, i); ok {
			return segmentString, closeLongBracket(src, i+level+2, level), true
		}
	}
	return 0, 0, false
}

// longBracketAt matches an opening long bracket ([[, [=[, [==[ ...) at src[i]
// and returns its level (the number of '=' signs).
func longBracketAt(src string, i int) (int, bool) {
	if i >= len(src) || src[i] != '[' {
		return 0, false
	}
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j < len(src) && src[j] == '[' {
		return j - i - 1, true
	}
	return 0, false
}

// closeLongBracket returns the offset just past the closing bracket of the
// given level, searching from src[from].
func closeLongBracket(src string, from, level int) int {
	if from > len(src) {
		return len(src)
	}
	closing := "]" + strings.Repeat("=", level) + "]"
	if idx := strings.Index(src[from:], closing); idx >= 0 {
		return from + idx + len(closing)
	}
	return len(src)
}

// closeQuoted returns the offset just past the quote closing the short string
// opened at src[i]. A backslash escapes the following byte.
func closeQuoted(src string, i int) int {
	end, _ := quotedEnd(src, i)
	return end
}

// quotedEnd is closeQuoted that also reports whether the string was terminated.
func quotedEnd(src string, i int) (int, bool) {
	quote := src[i]
	escaped := false
	for j := i + 1; j < len(src); j++ {
		switch {
		case escaped:
			escaped = false
		case src[j] == '\\':
			escaped = true
		case src[j] == quote:
			return j + 1, true
		}
	}
	return len(src), false
}

// blankComments replaces every comment in src with spaces, keeping line breaks
// so offsets and line numbers stay stable.
func blankComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for seg := range segments(src) {
		text := src[seg.Start:seg.End]
		if seg.Kind != segmentComment {
			b.WriteString(text)
			continue
		}
		for i := 0; i < len(text); i++ {
			if text[i] == '\n' {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}
