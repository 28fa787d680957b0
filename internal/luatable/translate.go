// =============================================================================
// TTC Price Export - Lua Table Literal Translator
// =============================================================================
//
// This file rewrites the body of a Lua table constructor into JSON and parses
// it into an ordered document.
//
// REWRITE RULES (applied in one token-aware pass, in this precedence):
//   1. Line endings are normalized to "\n".
//   2. Single-quoted strings become double-quoted strings. Escapes are kept
//      where JSON shares them and converted where it does not (\' \a \v \ddd \xXX).
//   3. Bracket keys ["k"]=, ['k']=, [123]= and [-1.5]= become "k":, "123":, "-1.5":.
//   4. Bare keys name= become "name":.
//   5. nil becomes null; true and false are kept.
//
// Rewrites never look inside string literals, so a string containing "nil",
// "x=" or "--" is copied unchanged.
//
// TABLE SHAPES:
//   A constructor whose first field is keyed (or that is empty) becomes a JSON
//   object; a constructor whose first field is positional becomes a JSON array.
//   Tables mixing both forms are rejected by the JSON parser.
//
// DUPLICATE KEYS:
//   The document keeps the last value of a duplicated key and moves the key to
//   the position of its last occurrence.
//
// =============================================================================

package luatable

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/keboola/go-utils/pkg/orderedmap"
)

// Translate converts a table body (as returned by ExtractTable) into an
// ordered document. The body is wrapped in an enclosing object.
//
// RETURNS:
//   - The root object, keys in document order.
//   - A *TranslationError if the rewritten text is not valid JSON.
func Translate(body string) (*orderedmap.OrderedMap, error) {
	doc := "{" + RemoveTrailingCommas(ToJSON(body)) + "}"

	root := orderedmap.New()
	if err := json.Unmarshal([]byte(doc), root); err != nil {
		return nil, newTranslationError(doc, err)
	}
	return root, nil
}

// ToJSON rewrites Lua table syntax into JSON syntax. Trailing commas are left
// in place; see RemoveTrailingCommas.
func ToJSON(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	r := &rewriter{src: body}
	r.out.Grow(len(body) + len(body)/4)
	r.run()
	return r.out.String()
}

// RemoveTrailingCommas drops every comma that is followed (after optional
// whitespace) by '}' or ']' or by the end of the text. It repeats until the
// text no longer changes, so runs such as ",,}" are fully cleaned and calling
// it again is a no-op. Commas inside double-quoted strings are kept.
func RemoveTrailingCommas(s string) string {
	for {
		next := removeTrailingCommasOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func removeTrailingCommasOnce(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == ',':
			j := skipSpace(s, i+1)
			if j == len(s) || s[j] == '}' || s[j] == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// newTranslationError wraps a parser error with its position in doc.
func newTranslationError(doc string, err error) *TranslationError {
	out := &TranslationError{Offset: -1, Err: err}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		out.Offset = syntaxErr.Offset
		from := max(0, int(syntaxErr.Offset)-24)
		to := min(len(doc), int(syntaxErr.Offset)+24)
		out.Snippet = doc[from:to]
	}
	return out
}

// =============================================================================
// REWRITER
// =============================================================================

// rewriter walks the Lua source once and writes JSON to out.
type rewriter struct {
	src string
	pos int
	out strings.Builder

	// closers holds the JSON closing delimiter of every open table.
	closers []byte
}

func (r *rewriter) run() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == '-' && strings.HasPrefix(r.src[r.pos:], "--"):
			_, end, _ := delimitedAt(r.src, r.pos)
			r.out.WriteByte(' ')
			r.pos = end
		case c == '"' || c == '\'':
			r.shortString()
		case c == '[':
			r.bracket()
		case c == '{':
			r.openTable()
		case c == '}':
			r.closeTable()
		case c == ';':
			r.out.WriteByte(',')
			r.pos++
		case isIdentStart(c):
			r.word()
		case isDigit(c) || (c == '.' && r.pos+1 < len(r.src) && isDigit(r.src[r.pos+1])):
			end := numberEnd(r.src, r.pos)
			r.out.WriteString(normalizeNumber(r.src[r.pos:end]))
			r.pos = end
		default:
			r.out.WriteByte(c)
			r.pos++
		}
	}
}

func (r *rewriter) shortString() {
	end, ok := quotedEnd(r.src, r.pos)
	body := r.src[r.pos+1 : end]
	if ok {
		body = r.src[r.pos+1 : end-1]
	}
	writeShortString(&r.out, body, ok)
	r.pos = end
}

// bracket handles '[': a long string, a bracket key or a stray bracket.
func (r *rewriter) bracket() {
	if level, ok := longBracketAt(r.src, r.pos); ok {
		open := r.pos + level + 2
		end := closeLongBracket(r.src, open, level)
		closing := level + 2
		terminated := strings.HasSuffix(r.src[open:end], "]"+strings.Repeat("=", level)+"]")
		if !terminated {
			closing = 0
		}
		writeLongString(&r.out, r.src[open:end-closing], terminated)
		r.pos = end
		return
	}

	if key, end, ok := bracketKeyAt(r.src, r.pos); ok {
		r.out.WriteString(key)
		r.out.WriteByte(':')
		r.pos = end
		return
	}

	r.out.WriteByte('[')
	r.pos++
}

func (r *rewriter) openTable() {
	r.pos++
	if keyedTableAt(r.src, r.pos) {
		r.closers = append(r.closers, '}')
		r.out.WriteByte('{')
		return
	}
	r.closers = append(r.closers, ']')
	r.out.WriteByte('[')
}

func (r *rewriter) closeTable() {
	r.pos++
	if n := len(r.closers); n > 0 {
		r.out.WriteByte(r.closers[n-1])
		r.closers = r.closers[:n-1]
		return
	}
	r.out.WriteByte('}')
}

// word handles identifiers: bare keys, nil and the boolean literals.
func (r *rewriter) word() {
	end := identEnd(r.src, r.pos)
	ident := r.src[r.pos:end]

	if next, ok := assignmentAt(r.src, end); ok {
		r.out.WriteString(strconv.Quote(ident))
		r.out.WriteByte(':')
		r.pos = next
		return
	}

	if ident == "nil" {
		r.out.WriteString("null")
	} else {
		r.out.WriteString(ident)
	}
	r.pos = end
}

// =============================================================================
// KEY AND TABLE SHAPE DETECTION
// =============================================================================

// bracketKeyAt matches a bracket key at src[i] and returns it as a JSON
// string together with the offset just past '='.
func bracketKeyAt(src string, i int) (string, int, bool) {
	j := skipSpace(src, i+1)
	if j >= len(src) {
		return "", 0, false
	}

	var key string
	switch c := src[j]; {
	case c == '"' || c == '\'':
		end, ok := quotedEnd(src, j)
		if !ok {
			return "", 0, false
		}
		var b strings.Builder
		writeShortString(&b, src[j+1:end-1], true)
		key, j = b.String(), end
	case c == '-' || c == '.' || isDigit(c):
		start := j
		if c == '-' {
			j++
		}
		if j >= len(src) || !(isDigit(src[j]) || src[j] == '.') {
			return "", 0, false
		}
		j = numberEnd(src, j)
		key = strconv.Quote(src[start:j])
	default:
		return "", 0, false
	}

	j = skipSpace(src, j)
	if j >= len(src) || src[j] != ']' {
		return "", 0, false
	}
	next, ok := assignmentAt(src, j+1)
	if !ok {
		return "", 0, false
	}
	return key, next, true
}

// keyedTableAt reports whether the constructor starting at src[i] (just past
// '{') holds keyed fields. Empty constructors count as keyed.
func keyedTableAt(src string, i int) bool {
	j := skipSpaceAndComments(src, i)
	if j >= len(src) {
		return true
	}
	switch c := src[j]; {
	case c == '}':
		return true
	case c == '[':
		_, isLongString := longBracketAt(src, j)
		return !isLongString
	case isIdentStart(c):
		_, ok := assignmentAt(src, identEnd(src, j))
		return ok
	}
	return false
}

// assignmentAt matches optional whitespace and a single '=' at src[i] and
// returns the offset just past it. "==" is not an assignment.
func assignmentAt(src string, i int) (int, bool) {
	j := skipSpace(src, i)
	if j < len(src) && src[j] == '=' && (j+1 >= len(src) || src[j+1] != '=') {
		return j + 1, true
	}
	return 0, false
}

// =============================================================================
// LITERALS
// =============================================================================

// writeShortString writes the body of a quoted Lua string as a JSON string.
// Escapes are decoded to bytes first, so "\195\169" becomes "é" rather than
// two separate code points.
func writeShortString(b *strings.Builder, body string, terminated bool) {
	b.WriteByte('"')
	writeJSONBytes(b, unescapeLua(body))
	if terminated {
		b.WriteByte('"')
	}
}

// unescapeLua decodes the escape sequences of a short string body. Unknown
// escapes keep the escaped character; a trailing lone backslash is kept.
func unescapeLua(body string) []byte {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}

		i++
		if i >= len(body) {
			out = append(out, '\\')
			break
		}
		switch e := body[i]; e {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'a':
			out = append(out, 0x07)
		case 'v':
			out = append(out, 0x0b)
		case 'x':
			if i+2 < len(body) {
				if v, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
					out = append(out, byte(v))
					i += 2
					continue
				}
			}
			out = append(out, 'x')
		default:
			if !isDigit(e) {
				out = append(out, e)
				continue
			}
			j := i
			for j < len(body) && j < i+3 && isDigit(body[j]) {
				j++
			}
			if v, _ := strconv.Atoi(body[i:j]); v <= 0xff {
				out = append(out, byte(v))
			} else {
				out = append(out, body[i:j]...)
			}
			i = j - 1
		}
	}
	return out
}

// writeJSONBytes writes decoded string bytes as JSON string content. Valid
// UTF-8 passes through; a byte that starts no valid sequence is written as
// its Latin-1 code point.
func writeJSONBytes(b *strings.Builder, raw []byte) {
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(b, `\u%04x`, raw[0])
		case size == 1:
			writeJSONByte(b, raw[0])
		default:
			b.Write(raw[:size])
		}
		raw = raw[size:]
	}
}

// writeLongString writes the content of a [[...]] string as a JSON string.
// A newline directly after the opening bracket is skipped, as in Lua.
func writeLongString(b *strings.Builder, content string, terminated bool) {
	content = strings.TrimPrefix(content, "\n")
	b.WriteByte('"')
	for i := 0; i < len(content); i++ {
		writeJSONByte(b, content[i])
	}
	if terminated {
		b.WriteByte('"')
	}
}

func writeJSONByte(b *strings.Builder, c byte) {
	switch {
	case c == '"':
		b.WriteString(`\"`)
	case c == '\\':
		b.WriteString(`\\`)
	case c == '\n':
		b.WriteString(`\n`)
	case c == '\t':
		b.WriteString(`\t`)
	case c == '\r':
		b.WriteString(`\r`)
	case c < 0x20:
		fmt.Fprintf(b, `\u%04x`, c)
	default:
		b.WriteByte(c)
	}
}

// numberEnd returns the offset just past the numeral starting at src[i].
func numberEnd(src string, i int) int {
	j := i
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		j += 2
		for j < len(src) && isHexDigit(src[j]) {
			j++
		}
		return j
	}

	for j < len(src) && isDigit(src[j]) {
		j++
	}
	if j < len(src) && src[j] == '.' {
		j++
		for j < len(src) && isDigit(src[j]) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			for k < len(src) && isDigit(src[k]) {
				k++
			}
			j = k
		}
	}
	return j
}

// normalizeNumber turns a Lua numeral into a JSON number: hex integers become
// decimal, ".5" becomes "0.5", "5." becomes "5" and leading zeros are dropped.
func normalizeNumber(tok string) string {
	if len(tok) > 2 && (tok[1] == 'x' || tok[1] == 'X') {
		if v, err := strconv.ParseUint(tok[2:], 16, 64); err == nil {
			return strconv.FormatUint(v, 10)
		}
		return tok
	}

	mantissa, exponent := tok, ""
	if idx := strings.IndexAny(tok, "eE"); idx >= 0 {
		mantissa, exponent = tok[:idx], tok[idx:]
	}
	intPart, frac, _ := strings.Cut(mantissa, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if frac != "" {
		return intPart + "." + frac + exponent
	}
	return intPart + exponent
}

// =============================================================================
// CHARACTER CLASSES
// =============================================================================

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func skipSpaceAndComments(s string, i int) int {
	for {
		i = skipSpace(s, i)
		if !strings.HasPrefix(s[i:], "--") {
			return i
		}
		_, i, _ = delimitedAt(s, i)
	}
}

func identEnd(s string, i int) int {
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
