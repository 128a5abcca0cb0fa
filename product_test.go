package gotensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Product tests
// ============================================================

func TestProduct_CanonicalOrder(t *testing.T) {
	eng := newEngine(t)
	p := mul(t, eng, eng.MustTensor("V^a"), eng.MustTensor("x"), eng.MustTensor("U_a"))
	q := mul(t, eng, eng.MustTensor("U_a"), eng.MustTensor("V^a"), eng.MustTensor("x"))
	assert.Equal(t, "x*U_{a}*V^{a}", p.String())
	assert.True(t, p.Equals(q))
}

func TestProduct_FoldsNumbersAndFlattens(t *testing.T) {
	eng := newEngine(t)
	x, y := eng.MustTensor("x"), eng.MustTensor("y")
	p := mul(t, eng, mul(t, eng, gotensor.N(2), x), mul(t, eng, gotensor.N(3), y))
	assert.Equal(t, "6*x*y", p.String())

	assert.Equal(t, "-x", mul(t, eng, gotensor.N(-1), x).String())
	assert.Equal(t, "(1+I)*x", mul(t, eng, gotensor.N(1).Add(gotensor.ImaginaryUnit()), x).String())
}

func TestProduct_ZeroAbsorbs(t *testing.T) {
	eng := newEngine(t)
	out := mul(t, eng, gotensor.N(0), eng.MustTensor("T_m"), eng.MustTensor("x"))
	assert.True(t, out.Equals(gotensor.N(0)))
}

func TestProduct_MergesPowers(t *testing.T) {
	eng := newEngine(t)
	x := eng.MustTensor("x")
	assert.Equal(t, "x**2", mul(t, eng, x, x).String())

	x2, err := eng.Pow(x, gotensor.N(2))
	require.NoError(t, err)
	assert.Equal(t, "2*x**3", mul(t, eng, gotensor.N(2), x2, x).String())

	inv, err := eng.Pow(x, gotensor.N(-1))
	require.NoError(t, err)
	assert.True(t, mul(t, eng, x, inv).Equals(gotensor.N(1)))
}

func TestProduct_Accessors(t *testing.T) {
	eng := newEngine(t)
	out := mul(t, eng, gotensor.N(2), eng.MustTensor("a"), eng.MustTensor("T_m"))
	p, ok := out.(*gotensor.Product)
	require.True(t, ok)

	assert.Equal(t, 3, p.Size())
	assert.Equal(t, "2", p.Get(0).String())
	assert.Equal(t, "a", p.Get(1).String())
	assert.Equal(t, "T_{m}", p.Get(2).String())
	assert.Equal(t, gotensor.KindProduct, gotensor.KindOf(p))
	assert.Equal(t, gotensor.Indices{gotensor.Idx("_m")}, p.FreeIndices())
	assert.Len(t, gotensor.Children(p), 3)
}

func TestProduct_ContractionViolation(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Multiply(eng.MustTensor("T_m"), eng.MustTensor("U_m"))
	assert.ErrorIs(t, err, gotensor.ErrContractionViolation)

	_, err = eng.Multiply(eng.MustTensor("T_m"), eng.MustTensor("U^m"), eng.MustTensor("V_m"))
	assert.ErrorIs(t, err, gotensor.ErrContractionViolation)
}

func TestProductBuilder_Protocol(t *testing.T) {
	eng := newEngine(t)
	b := eng.NewProductBuilder()
	require.NoError(t, b.Put(eng.MustTensor("x")))
	c := b.Clone()
	require.NoError(t, c.Put(eng.MustTensor("y")))

	out, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "x", out.String())
	out, err = c.Build()
	require.NoError(t, err)
	assert.Equal(t, "x*y", out.String())

	_, err = b.Build()
	assert.ErrorIs(t, err, gotensor.ErrBuilderProtocol)
	assert.ErrorIs(t, b.Put(gotensor.N(2)), gotensor.ErrBuilderProtocol)
}

func TestProduct_SumFactor(t *testing.T) {
	eng := newEngine(t)
	s := sum(t, eng, eng.MustTensor("A_m"), eng.MustTensor("B_m"))
	p := mul(t, eng, s, eng.MustTensor("C^m"))
	assert.Equal(t, "(A_{m} + B_{m})*C^{m}", p.String())
	assert.Empty(t, p.FreeIndices())
}
