package archive

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip creates an in-memory archive from name/content pairs.
func buildZip(t *testing.T, files ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i := 0; i < len(files); i += 2 {
		f, err := w.Create(files[i])
		require.NoError(t, err)
		_, err = f.Write([]byte(files[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestReadMember(t *testing.T) {
	t.Parallel()

	a, err := Open(buildZip(t,
		"TamrielTradeCentre/PriceTableNA.lua", "self.PriceTable = {}",
		"TamrielTradeCentre/ItemLookUpTable_EN.lua", "self.ItemLookUpTable = {} end",
	))
	require.NoError(t, err)

	content, err := a.ReadMember("PriceTableNA.lua")
	require.NoError(t, err)
	assert.Equal(t, "self.PriceTable = {}", string(content))

	content, err = a.ReadMember("ItemLookUpTable_EN.lua")
	require.NoError(t, err)
	assert.Equal(t, "self.ItemLookUpTable = {} end", string(content))
}

func TestReadMember_FirstMatchWins(t *testing.T) {
	t.Parallel()

	data := buildZip(t, "a/PriceTableEU.lua", "first", "b/PriceTableEU.lua", "second")

	a, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/PriceTableEU.lua", "b/PriceTableEU.lua"}, a.Names())

	content, err := a.ReadMember("PriceTableEU.lua")
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))
}

func TestReadMember_NotFound(t *testing.T) {
	t.Parallel()

	a, err := Open(buildZip(t, "PriceTableNA.lua", "x"))
	require.NoError(t, err)

	_, err = a.ReadMember("PriceTableEU.lua")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestOpen_NotAZip(t *testing.T) {
	t.Parallel()

	_, err := Open([]byte("<html>maintenance</html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open archive")
}
