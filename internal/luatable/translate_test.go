package luatable

import (
	"errors"
	"strings"
	"testing"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		lua  string
		want string
	}{
		{name: "bare keys", lua: `A=10.5, X=20`, want: `"A":10.5, "X":20`},
		{name: "bare key with spaces", lua: `name = 1`, want: `"name": 1`},
		{name: "double quoted bracket key", lua: `["name"] = 1`, want: `"name": 1`},
		{name: "single quoted bracket key", lua: `['name'] = 1`, want: `"name": 1`},
		{name: "integer bracket key", lua: `[123]=1`, want: `"123":1`},
		{name: "negative decimal bracket key", lua: `[-1.5] = nil`, want: `"-1.5": null`},
		{name: "single quoted value with escaped quote", lua: `s = 'it\'s'`, want: `"s": "it's"`},
		{name: "single quoted value with double quotes", lua: `s = 'He said "yo"'`, want: `"s": "He said \"yo\""`},
		{name: "escaped double quote kept", lua: `s = "say \"hi\""`, want: `"s": "say \"hi\""`},
		{name: "string content untouched", lua: `s = "x = nil -- y"`, want: `"s": "x = nil -- y"`},
		{name: "booleans", lua: `a = true, b = false`, want: `"a": true, "b": false`},
		{name: "comparison is not a key", lua: `a = b == c`, want: `"a": b == c`},
		{name: "positional table becomes array", lua: `[12]={ 'a', "b" }`, want: `"12":[ "a", "b" ]`},
		{name: "empty table", lua: `t = {}`, want: `"t": {}`},
		{name: "semicolon separator", lua: `a = 1; b = 2`, want: `"a": 1, "b": 2`},
		{name: "hex number", lua: `n = 0x1F`, want: `"n": 31`},
		{name: "leading dot number", lua: `n = .5`, want: `"n": 0.5`},
		{name: "trailing dot number", lua: `n = 5.`, want: `"n": 5`},
		{name: "exponent", lua: `n = 1e5`, want: `"n": 1e5`},
		{name: "decimal escape", lua: `s = "\65"`, want: `"s": "A"`},
		{name: "decimal escaped utf-8", lua: `s = "caf\195\169"`, want: `"s": "café"`},
		{name: "hex escaped utf-8", lua: `s = "caf\xC3\xA9"`, want: `"s": "café"`},
		{name: "mixed raw and escaped utf-8", lua: "s = \"\xC3\\169\"", want: `"s": "é"`},
		{name: "invalid utf-8 escape", lua: `s = "\233t\233"`, want: `"s": "\u00e9t\u00e9"`},
		{name: "control escapes", lua: `s = "a\tb\a\\"`, want: `"s": "a\tb\u0007\\"`},
		{name: "long string", lua: "s = [[\nline \"1\"]]", want: `"s": "line \"1\""`},
		{name: "crlf normalized", lua: "a = 1,\r\nb = 2", want: "\"a\": 1,\n\"b\": 2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ToJSON(tc.lua))
		})
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: `{"a":1,}`, want: `{"a":1}`},
		{in: `{"a":{"b":[1,2,],},}`, want: `{"a":{"b":[1,2]}}`},
		{in: "{\"a\":1,\n  }", want: "{\"a\":1\n  }"},
		{in: `"a":1,,}`, want: `"a":1}`},
		{in: `"a":1,`, want: `"a":1`},
		{in: `"a":1 , `, want: `"a":1  `},
		{in: `"s":",}"`, want: `"s":",}"`},
		{in: `"s":"\",}"`, want: `"s":"\",}"`},
	}

	for _, tc := range cases {
		once := RemoveTrailingCommas(tc.in)
		assert.Equal(t, tc.want, once, tc.in)
		assert.Equal(t, once, RemoveTrailingCommas(once), "not idempotent: %s", tc.in)
	}
}

func TestRemoveTrailingCommas_DeepNesting(t *testing.T) {
	t.Parallel()

	depth := 50
	in := strings.Repeat(`{"k":`, depth) + "1" + strings.Repeat(",}", depth)
	want := strings.Repeat(`{"k":`, depth) + "1" + strings.Repeat("}", depth)

	once := RemoveTrailingCommas(in)
	assert.Equal(t, want, once)
	assert.Equal(t, once, RemoveTrailingCommas(once))
}

func TestTranslate_KeyForms(t *testing.T) {
	t.Parallel()

	doc, err := Translate(`bare = 1, ["q"] = 2, ['q'] = 3, [3] = 4,`)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"bare", "q", "3"}, doc.Keys())
	assert.Equal(t, 1.0, value(doc, "bare"))
	assert.Equal(t, 3.0, value(doc, "q"))
	assert.Equal(t, 4.0, value(doc, "3"))
}

func TestTranslate_DocumentOrder(t *testing.T) {
	t.Parallel()

	doc, err := Translate(`z = 1, [10] = 2, a = 3, ["m"] = { y = 1, b = 2 }`)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "10", "a", "m"}, doc.Keys())

	nested, ok := value(doc, "m").(*orderedmap.OrderedMap)
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, nested.Keys())
}

func TestTranslate_Values(t *testing.T) {
	t.Parallel()

	body := `
		-- header comment
		["Data"] = {
			[1] = { A = 1.5, X = 2, S = nil, }, -- trailing comment
		},
		list = { 1, 2, 3, },
		name = 'Iron -- Sword',
		ok = true,
	`
	doc, err := Translate(body)
	require.NoError(t, err)

	assert.Equal(t, []string{"Data", "list", "name", "ok"}, doc.Keys())
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, value(doc, "list"))
	assert.Equal(t, "Iron -- Sword", value(doc, "name"))
	assert.Equal(t, true, value(doc, "ok"))

	data, ok := value(doc, "Data").(*orderedmap.OrderedMap)
	require.True(t, ok)
	leaf, ok := value(data, "1").(*orderedmap.OrderedMap)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "X", "S"}, leaf.Keys())
	assert.Nil(t, value(leaf, "S"))
}

func TestTranslate_InvalidDocument(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{name: "function call", body: `a = math.floor(1)`},
		{name: "variable reference", body: `a = someVar`},
		{name: "mixed table", body: `a = { 1, x = 2 }`},
		{name: "unterminated string", body: `a = "open`},
		{name: "stray closing brace", body: `a = 1 }`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Translate(tc.body)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument))

			var translationErr *TranslationError
			require.True(t, errors.As(err, &translationErr))
			assert.NotNil(t, translationErr.Err)
		})
	}
}

func TestExtractThenTranslate(t *testing.T) {
	t.Parallel()

	src := `self.PriceTable = { ["Data"] = { [1234] = { [1] = { [2] = { [3] = { [4] = { A=10.5, X=20, N=5, EC=3, AC=4 } } } } } }, TimeStamp = 1700000000 }`
	body, err := ExtractTable(src, "self.PriceTable")
	require.NoError(t, err)

	doc, err := Translate(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "TimeStamp"}, doc.Keys())
	assert.Equal(t, 1700000000.0, value(doc, "TimeStamp"))
}

func value(m *orderedmap.OrderedMap, key string) interface{} {
	v, _ := m.Get(key)
	return v
}
