package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldMap is a Fields backed by a plain map.
type fieldMap map[string]interface{}

func (m fieldMap) Get(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func TestDecodePriceInfo_Required(t *testing.T) {
	t.Parallel()

	info, errs := DecodePriceInfo(fieldMap{"A": 10.5, "X": 20.0, "N": 5.0, "EC": 3.0, "AC": 4.0})
	require.Empty(t, errs)

	assert.Equal(t, 10.5, info.Avg)
	assert.Equal(t, 20.0, info.Max)
	assert.Equal(t, 5.0, info.Min)
	assert.Equal(t, uint32(3), info.EntryCount)
	assert.Equal(t, uint32(4), info.AmountCount)
	assert.Nil(t, info.SuggestedPrice)
	assert.Nil(t, info.SaleAvg)
	assert.Nil(t, info.SaleEntryCount)
	assert.Nil(t, info.SaleAmountCount)
}

func TestDecodePriceInfo_Optional(t *testing.T) {
	t.Parallel()

	info, errs := DecodePriceInfo(fieldMap{
		"A": 1.0, "X": 2.0, "N": 0.5, "EC": 1.0, "AC": 1.0,
		"S": 1.25, "SA": nil, "SE": 7.0, "SAC": 9.0, "Extra": "ignored",
	})
	require.Empty(t, errs)

	require.NotNil(t, info.SuggestedPrice)
	assert.Equal(t, 1.25, *info.SuggestedPrice)
	assert.Nil(t, info.SaleAvg)
	require.NotNil(t, info.SaleEntryCount)
	assert.Equal(t, uint32(7), *info.SaleEntryCount)
	require.NotNil(t, info.SaleAmountCount)
	assert.Equal(t, uint32(9), *info.SaleAmountCount)
}

func TestDecodePriceInfo_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fields  fieldMap
		field   string
		message string
	}{
		{
			name:    "average is a string",
			fields:  fieldMap{"A": "10.5", "X": 20.0, "N": 5.0, "EC": 3.0, "AC": 4.0},
			field:   "A",
			message: "must be a number",
		},
		{
			name:    "min missing",
			fields:  fieldMap{"A": 1.0, "X": 2.0, "EC": 3.0, "AC": 4.0},
			field:   "N",
			message: "required field is missing",
		},
		{
			name:    "max is nil",
			fields:  fieldMap{"A": 1.0, "X": nil, "N": 1.0, "EC": 3.0, "AC": 4.0},
			field:   "X",
			message: "required field is missing",
		},
		{
			name:    "fractional count",
			fields:  fieldMap{"A": 1.0, "X": 2.0, "N": 1.0, "EC": 3.5, "AC": 4.0},
			field:   "EC",
			message: "must be a whole number",
		},
		{
			name:    "negative count",
			fields:  fieldMap{"A": 1.0, "X": 2.0, "N": 1.0, "EC": 3.0, "AC": -4.0},
			field:   "AC",
			message: "must not be negative",
		},
		{
			name:    "optional count too large",
			fields:  fieldMap{"A": 1.0, "X": 2.0, "N": 1.0, "EC": 3.0, "AC": 4.0, "SAC": 5e10},
			field:   "SAC",
			message: "exceeds the uint32 range",
		},
		{
			name:    "optional price is a table",
			fields:  fieldMap{"A": 1.0, "X": 2.0, "N": 1.0, "EC": 3.0, "AC": 4.0, "S": []interface{}{}},
			field:   "S",
			message: "must be a number",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, errs := DecodePriceInfo(tc.fields)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.field, errs[0].Field)
			assert.Equal(t, tc.message, errs[0].Message)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	_, errs := DecodePriceInfo(fieldMap{"A": "x", "X": 1.0})
	require.Len(t, errs, 4)
	assert.Equal(t,
		"field A: must be a number (got x); field N: required field is missing; "+
			"field EC: required field is missing; field AC: required field is missing",
		errs.Error(),
	)
}
