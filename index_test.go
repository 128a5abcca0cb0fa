package gotensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Index tests
// ============================================================

func TestIndex_Parse(t *testing.T) {
	a := gotensor.Idx("_a")
	assert.Equal(t, 0, a.ID())
	assert.Equal(t, gotensor.LatinLower, a.Type())
	assert.False(t, a.IsUpper())
	assert.Equal(t, "_a", a.String())

	b := gotensor.Idx("^B")
	assert.Equal(t, gotensor.LatinUpper, b.Type())
	assert.True(t, b.IsUpper())
	assert.Equal(t, "^B", b.String())

	mu := gotensor.Idx(`^\mu`)
	assert.Equal(t, gotensor.GreekLower, mu.Type())
	assert.Equal(t, `\mu`, mu.NameString())
}

func TestIndex_LongNames(t *testing.T) {
	i := gotensor.Idx("_{a1}")
	assert.Equal(t, 26, i.ID())
	assert.Equal(t, "a1", i.NameString())
}

func TestIndex_InverseKeepsName(t *testing.T) {
	i := gotensor.Idx("_m")
	assert.Equal(t, gotensor.Idx("^m"), i.Inverse())
	assert.Equal(t, i.Name(), i.Inverse().Name())
}

func TestIndex_Malformed(t *testing.T) {
	for _, s := range []string{"", "a", "_", "_ab", `_\notgreek`, "_1"} {
		_, err := gotensor.ParseIndex(s)
		assert.Error(t, err, s)
	}
}

func TestIndices_ParseGroups(t *testing.T) {
	is, err := gotensor.ParseIndices("_{mn}^{a}")
	require.NoError(t, err)
	require.Len(t, is, 3)
	assert.Equal(t, gotensor.Idx("_m"), is[0])
	assert.Equal(t, gotensor.Idx("_n"), is[1])
	assert.Equal(t, gotensor.Idx("^a"), is[2])
	assert.Equal(t, "_{mn}^{a}", is.String())

	greek, err := gotensor.ParseIndices(`_{\alpha \beta}`)
	require.NoError(t, err)
	assert.Equal(t, `_{\alpha \beta}`, greek.String())
}

func TestIndices_FreeAndNames(t *testing.T) {
	is, err := gotensor.ParseIndices("_{am}^{a}")
	require.NoError(t, err)
	assert.Equal(t, gotensor.Indices{gotensor.Idx("_m")}, is.Free())
	names := is.Names()
	assert.Len(t, names, 2)
	assert.True(t, names[0] < names[1])
}

func TestIndices_RepeatedState(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.ParseTensor("T_{aa}")
	assert.ErrorIs(t, err, gotensor.ErrContractionViolation)
}

func TestIndexType_Parse(t *testing.T) {
	typ, err := gotensor.ParseIndexType("greek_upper")
	require.NoError(t, err)
	assert.Equal(t, gotensor.GreekUpper, typ)
	_, err = gotensor.ParseIndexType("hebrew")
	assert.Error(t, err)
}
