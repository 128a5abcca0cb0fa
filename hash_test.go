package gotensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Hash tests
// ============================================================

func TestStructuralHash_DummyRelabeling(t *testing.T) {
	eng := newEngine(t)
	p := mul(t, eng, eng.MustTensor("U_a"), eng.MustTensor("V^a"))
	q := mul(t, eng, eng.MustTensor("U_b"), eng.MustTensor("V^b"))
	assert.Equal(t, gotensor.StructuralHash(p), gotensor.StructuralHash(q))
}

func TestStructuralHash_SignInsensitive(t *testing.T) {
	eng := newEngine(t)
	T := eng.MustTensor("T_m^n")
	assert.Equal(t, gotensor.StructuralHash(T), gotensor.StructuralHash(gotensor.Negate(T)))
	assert.Equal(t, gotensor.StructuralHash(gotensor.N(3)), gotensor.StructuralHash(gotensor.N(-3)))
}

func TestStructuralHash_Distinguishes(t *testing.T) {
	eng := newEngine(t)
	// Same factors, different contraction pattern.
	p := mul(t, eng, eng.MustTensor("A_{ab}"), eng.MustTensor("B^{ab}"))
	q := mul(t, eng, eng.MustTensor("A_{ab}"), eng.MustTensor("B^{ba}"))
	assert.NotEqual(t, gotensor.StructuralHash(p), gotensor.StructuralHash(q))

	assert.NotEqual(t, gotensor.StructuralHash(eng.MustTensor("A_{ab}")), gotensor.StructuralHash(eng.MustTensor("C_{ab}")))
	assert.NotEqual(t, gotensor.StructuralHash(mul(t, eng, gotensor.N(2), eng.MustTensor("x"))),
		gotensor.StructuralHash(mul(t, eng, gotensor.N(3), eng.MustTensor("x"))))
}

func TestStructuralHash_SumOrder(t *testing.T) {
	eng := newEngine(t)
	x, y := eng.MustTensor("x"), eng.MustTensor("y")
	assert.Equal(t, gotensor.StructuralHash(sum(t, eng, x, y)), gotensor.StructuralHash(sum(t, eng, y, x)))
}

func TestIndexSensitiveHash_SeparatesFreePositions(t *testing.T) {
	eng := newEngine(t)
	gmn := eng.MustTensor("G_{mn}")
	gnm := eng.MustTensor("G_{nm}")
	names := gmn.FreeIndices().Names()
	assert.Equal(t, gotensor.StructuralHash(gmn), gotensor.StructuralHash(gnm))
	assert.NotEqual(t, gotensor.IndexSensitiveHash(gmn, names), gotensor.IndexSensitiveHash(gnm, names))
}

func TestIndexSensitiveHash_SymmetricSlots(t *testing.T) {
	eng := newEngine(t)
	s := eng.Declare("S", gotensor.LatinLower, gotensor.LatinLower)
	require.NoError(t, s.Symmetric())
	smn, err := s.Tensor(gotensor.Idx("_m"), gotensor.Idx("_n"))
	require.NoError(t, err)
	snm, err := s.Tensor(gotensor.Idx("_n"), gotensor.Idx("_m"))
	require.NoError(t, err)
	names := smn.FreeIndices().Names()
	assert.Equal(t, gotensor.IndexSensitiveHash(smn, names), gotensor.IndexSensitiveHash(snm, names))
}

func TestIndexSensitiveHash_ProductFreeIndices(t *testing.T) {
	eng := newEngine(t)
	p := mul(t, eng, eng.MustTensor("A_{m}"), eng.MustTensor("B_{n}"))
	q := mul(t, eng, eng.MustTensor("A_{n}"), eng.MustTensor("B_{m}"))
	names := p.FreeIndices().Names()
	assert.Equal(t, gotensor.StructuralHash(p), gotensor.StructuralHash(q))
	assert.NotEqual(t, gotensor.IndexSensitiveHash(p, names), gotensor.IndexSensitiveHash(q, names))
	assert.Equal(t, gotensor.StructuralHash(p), gotensor.IndexSensitiveHash(p, nil))
}
