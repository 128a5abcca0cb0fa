package gotensor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Sum tests
// ============================================================

func TestSum_CollectsScalarFactors(t *testing.T) {
	eng := newEngine(t)
	a, T := eng.MustTensor("a"), eng.MustTensor("T_m^n")
	out := sum(t, eng, mul(t, eng, gotensor.N(2), a, T), mul(t, eng, gotensor.N(3), a, T))
	assert.Equal(t, "5*a*T_{m}^{n}", out.String())
}

func TestSum_DummyRelabelingCancels(t *testing.T) {
	eng := newEngine(t)
	fm := mul(t, eng, eng.MustTensor("f_m"), eng.MustTensor("f^m"))
	fn := mul(t, eng, eng.MustTensor("f_n"), eng.MustTensor("f^n"))
	out := sum(t, eng, fm, gotensor.Negate(fn))
	assert.True(t, out.Equals(gotensor.N(0)), out.String())
}

func TestSum_Antisymmetric(t *testing.T) {
	eng := newEngine(t)
	f := eng.Declare("F", gotensor.LatinLower, gotensor.LatinLower)
	require.NoError(t, f.Antisymmetric())
	fmn := gotensor.Must(f.Tensor(gotensor.Idx("_m"), gotensor.Idx("_n")))
	fnm := gotensor.Must(f.Tensor(gotensor.Idx("_n"), gotensor.Idx("_m")))

	assert.True(t, sum(t, eng, fmn, fnm).Equals(gotensor.N(0)))
	assert.Equal(t, "2*F_{mn}", sum(t, eng, fmn, gotensor.Negate(fnm)).String())
}

func TestSum_MergesSummandsUnderRelabeling(t *testing.T) {
	eng := newEngine(t)
	x, y := eng.MustTensor("x"), eng.MustTensor("y")
	p := mul(t, eng, x, eng.MustTensor("U_a"), eng.MustTensor("V^a"))
	q := mul(t, eng, y, eng.MustTensor("U_b"), eng.MustTensor("V^b"))

	assert.Equal(t, "(x + y)*U_{a}*V^{a}", sum(t, eng, p, q).String())
	// The lexicographically smallest factor is the representative either way.
	assert.Equal(t, "(x + y)*U_{a}*V^{a}", sum(t, eng, q, p).String())
}

func TestSum_DistinctTermsStay(t *testing.T) {
	eng := newEngine(t)
	A, B := eng.MustTensor("A_{mn}"), eng.MustTensor("B_{mn}")
	assert.Equal(t, "2*A_{mn} + B_{mn}", sum(t, eng, A, B, A).String())
	assert.Equal(t, "A_{mn} - B_{mn}", sum(t, eng, A, gotensor.Negate(B)).String())
}

func TestSum_SingleTermCollapses(t *testing.T) {
	eng := newEngine(t)
	T := eng.MustTensor("T_m")
	assert.Same(t, T, sum(t, eng, T))
	assert.True(t, sum(t, eng).Equals(gotensor.N(0)))
	assert.Equal(t, "x + 3", sum(t, eng, eng.MustTensor("x"), gotensor.N(1), gotensor.N(2)).String())
}

func TestSum_Flattens(t *testing.T) {
	eng := newEngine(t)
	x, y, z := eng.MustTensor("x"), eng.MustTensor("y"), eng.MustTensor("z")
	inner := sum(t, eng, x, y)
	assert.Equal(t, sum(t, eng, x, y, z).String(), sum(t, eng, inner, z).String())
	assert.True(t, sum(t, eng, inner, gotensor.Negate(inner)).Equals(gotensor.N(0)))
}

func TestSum_OrderIndependent(t *testing.T) {
	eng := newEngine(t)
	terms := []gotensor.Tensor{
		mul(t, eng, gotensor.N(2), eng.MustTensor("A_{ma}"), eng.MustTensor("B^a")),
		mul(t, eng, eng.MustTensor("x"), eng.MustTensor("A_{mb}"), eng.MustTensor("B^b")),
		eng.MustTensor("C_m"),
		gotensor.Negate(eng.MustTensor("C_m")),
		mul(t, eng, eng.MustTensor("y"), eng.MustTensor("C_m")),
		mul(t, eng, eng.MustTensor("x"), eng.MustTensor("D_m")),
	}
	want := sum(t, eng, terms...)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]gotensor.Tensor(nil), terms...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := sum(t, eng, shuffled...)
		assert.True(t, want.Equals(got), "%s vs %s", want, got)
	}
}

func TestSum_ScaledSumCancels(t *testing.T) {
	eng := newEngine(t)
	s := sum(t, eng, eng.MustTensor("A_m"), eng.MustTensor("B_m"))
	neg := mul(t, eng, gotensor.N(-1), s)
	assert.True(t, sum(t, eng, s, neg).Equals(gotensor.N(0)))
	assert.True(t, sum(t, eng, neg, s).Equals(gotensor.N(0)))

	twice := mul(t, eng, gotensor.N(2), s)
	assert.True(t, sum(t, eng, twice, neg).Equals(s), sum(t, eng, twice, neg).String())
	assert.True(t, sum(t, eng, twice, neg, neg).Equals(gotensor.N(0)))

	x, y := eng.MustTensor("x"), eng.MustTensor("y")
	c := sum(t, eng, x, y)
	assert.True(t, sum(t, eng, c, mul(t, eng, gotensor.N(-1), c)).Equals(gotensor.N(0)))

	xyT := mul(t, eng, c, eng.MustTensor("T_m"))
	assert.True(t, sum(t, eng, xyT, gotensor.Negate(xyT)).Equals(gotensor.N(0)))
}

func TestSum_CompoundCoefficientCancels(t *testing.T) {
	eng := newEngine(t)
	coeff := sum(t, eng, eng.MustTensor("x"), gotensor.N(1))
	term := mul(t, eng, coeff, eng.MustTensor("P_{am}"), eng.MustTensor("Q^m_b"))
	assert.True(t, sum(t, eng, term, gotensor.Negate(term)).Equals(gotensor.N(0)))
	assert.True(t, sum(t, eng, gotensor.Negate(term), term).Equals(gotensor.N(0)))

	relabeled := mul(t, eng, coeff, eng.MustTensor("P_{an}"), eng.MustTensor("Q^n_b"))
	assert.True(t, sum(t, eng, term, gotensor.Negate(relabeled)).Equals(gotensor.N(0)))
}

func TestSum_FloatZeroSwitchesToNumeric(t *testing.T) {
	eng := newEngine(t)
	x := eng.MustTensor("x")
	out := sum(t, eng, gotensor.Float(0, 0), mul(t, eng, gotensor.F(1, 2), x))
	assert.Equal(t, "0.5*x", out.String())
}

func TestSum_Idempotent(t *testing.T) {
	eng := newEngine(t)
	s := sum(t, eng,
		mul(t, eng, gotensor.N(2), eng.MustTensor("A_{ma}"), eng.MustTensor("B^a")),
		eng.MustTensor("C_m"),
	)
	again := sum(t, eng, s)
	assert.True(t, s.Equals(again), "%s vs %s", s, again)
}

func TestSum_FreeIndexMismatch(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Sum(eng.MustTensor("T_m"), eng.MustTensor("T_n"))
	assert.ErrorIs(t, err, gotensor.ErrStructuralInconsistency)

	_, err = eng.Sum(eng.MustTensor("T_m"), gotensor.N(1))
	assert.ErrorIs(t, err, gotensor.ErrStructuralInconsistency)

	_, err = eng.Sum(gotensor.N(1), eng.MustTensor("T_m"))
	assert.ErrorIs(t, err, gotensor.ErrStructuralInconsistency)

	// Zero is compatible with anything.
	out, err := eng.Sum(eng.MustTensor("T_m"), gotensor.N(0))
	require.NoError(t, err)
	assert.Equal(t, "T_{m}", out.String())
}

func TestSum_NaNAbsorbs(t *testing.T) {
	eng := newEngine(t)
	out := sum(t, eng, eng.MustTensor("T_m"), gotensor.NaN(), eng.MustTensor("T_m"))
	c, ok := out.(*gotensor.Complex)
	require.True(t, ok)
	assert.True(t, c.IsNaN())

	inf := sum(t, eng, eng.MustTensor("x"), gotensor.ComplexInfinity())
	assert.Equal(t, "ComplexInfinity", inf.String())
}

func TestSum_NumericMode(t *testing.T) {
	eng := newEngine(t)
	out := sum(t, eng, gotensor.Float(1, 0), gotensor.N(2))
	c, ok := out.(*gotensor.Complex)
	require.True(t, ok)
	assert.True(t, c.IsNumeric())
	assert.Equal(t, complex(3, 0), c.Complex128())

	x := eng.MustTensor("x")
	mixed := sum(t, eng, mul(t, eng, gotensor.F(1, 2), x), mul(t, eng, gotensor.Float(0.25, 0), x))
	p, ok := mixed.(*gotensor.Product)
	require.True(t, ok, mixed.String())
	assert.True(t, p.Factor().IsNumeric())
	assert.Equal(t, complex(0.75, 0), p.Factor().Complex128())
}

func TestSumBuilder_Protocol(t *testing.T) {
	eng := newEngine(t)
	b := eng.NewSumBuilder()
	require.NoError(t, b.Put(eng.MustTensor("x")))
	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	assert.ErrorIs(t, err, gotensor.ErrBuilderProtocol)
	assert.ErrorIs(t, b.Put(eng.MustTensor("y")), gotensor.ErrBuilderProtocol)
}

func TestSumBuilder_Clone(t *testing.T) {
	eng := newEngine(t)
	x := eng.MustTensor("x")
	b := eng.NewSumBuilder()
	require.NoError(t, b.Put(x))
	c := b.Clone()
	require.NoError(t, c.Put(x))

	bs, err := b.Build()
	require.NoError(t, err)
	cs, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, "x", bs.String())
	assert.Equal(t, "2*x", cs.String())
}

func TestSum_CountsBuilds(t *testing.T) {
	eng := newEngine(t)
	sum(t, eng, eng.MustTensor("x"), eng.MustTensor("y"))
	assert.GreaterOrEqual(t, metricValue(t, eng, "gotensor_sum_builds_total"), 1.0)
}

func TestSplit(t *testing.T) {
	eng := newEngine(t)
	p := mul(t, eng, gotensor.N(2), eng.MustTensor("a"), eng.MustTensor("T_{mn}"))
	factor, summand := gotensor.Split(p)
	assert.Equal(t, "T_{mn}", factor.String())
	assert.Equal(t, "2*a", summand.String())

	q := mul(t, eng, gotensor.N(2), eng.MustTensor("a"), eng.MustTensor("b"))
	factor, summand = gotensor.Split(q)
	assert.Equal(t, "a*b", factor.String())
	assert.Equal(t, "2", summand.String())

	factor, summand = gotensor.Split(eng.MustTensor("x"))
	assert.Equal(t, "x", factor.String())
	assert.Equal(t, "1", summand.String())
}
