package gotensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Symmetry tests
// ============================================================

func TestSymmetry_Closure(t *testing.T) {
	eng := newEngine(t)
	r := eng.Declare("R", gotensor.LatinLower, gotensor.LatinLower, gotensor.LatinLower)
	require.NoError(t, r.Antisymmetric())
	syms := r.Symmetries()
	assert.Len(t, syms, 6)
	assert.True(t, syms[0].Perm.IsIdentity())
	assert.False(t, syms[0].Negate)
	assert.Equal(t, []int{0, 0, 0}, r.Orbits())

	odd := 0
	for _, s := range syms {
		if s.Negate {
			odd++
		}
	}
	assert.Equal(t, 3, odd)
}

func TestSymmetry_PartialOrbits(t *testing.T) {
	eng := newEngine(t)
	g := eng.Declare("G", gotensor.LatinLower, gotensor.LatinLower, gotensor.LatinLower, gotensor.LatinLower)
	require.NoError(t, g.AddSymmetry(gotensor.Permutation{1, 0, 2, 3}, false))
	assert.Equal(t, []int{0, 0, 2, 3}, g.Orbits())
	assert.Len(t, g.Symmetries(), 2)
}

func TestSymmetry_SignConflict(t *testing.T) {
	eng := newEngine(t)
	s := eng.Declare("S", gotensor.LatinLower, gotensor.LatinLower)
	require.NoError(t, s.AddSymmetry(gotensor.Permutation{1, 0}, false))
	err := s.AddSymmetry(gotensor.Permutation{1, 0}, true)
	assert.ErrorIs(t, err, gotensor.ErrStructuralInconsistency)
}

func TestSymmetry_Invalid(t *testing.T) {
	eng := newEngine(t)
	m := eng.Declare("M", gotensor.LatinLower, gotensor.GreekLower)
	assert.ErrorIs(t, m.AddSymmetry(gotensor.Permutation{1, 0}, false), gotensor.ErrStructuralInconsistency)
	assert.ErrorIs(t, m.AddSymmetry(gotensor.Permutation{0, 0}, false), gotensor.ErrStructuralInconsistency)
	assert.ErrorIs(t, m.AddSymmetry(gotensor.Permutation{0, 1}, true), gotensor.ErrStructuralInconsistency)
	assert.NoError(t, m.AddSymmetry(gotensor.Permutation{0, 1}, false))
}

func TestSymmetry_MaxGroupOrder(t *testing.T) {
	eng := newEngine(t, func(c *gotensor.Config) { c.Symmetry.MaxGroupOrder = 10 })
	s := eng.Declare("S", gotensor.LatinLower, gotensor.LatinLower, gotensor.LatinLower, gotensor.LatinLower)
	assert.ErrorIs(t, s.Symmetric(), gotensor.ErrStructuralInconsistency)
}

func TestSymmetry_FrozenAfterUse(t *testing.T) {
	eng := newEngine(t)
	s := eng.Declare("S", gotensor.LatinLower, gotensor.LatinLower)
	_, err := s.Tensor(gotensor.Idx("_a"), gotensor.Idx("_b"))
	require.NoError(t, err)
	assert.True(t, s.Frozen())
	assert.ErrorIs(t, s.Symmetric(), gotensor.ErrBuilderProtocol)
}

func TestSymbol_DeclareIsIdempotent(t *testing.T) {
	eng := newEngine(t)
	a := eng.Declare("T", gotensor.LatinLower)
	b := eng.Declare("T", gotensor.LatinLower)
	c := eng.Declare("T", gotensor.LatinLower, gotensor.LatinLower)
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Len(t, eng.Symbols(), 2)
}

func TestSymbol_WrongStructure(t *testing.T) {
	eng := newEngine(t)
	s := eng.Declare("V", gotensor.LatinLower)
	_, err := s.Tensor(gotensor.Idx(`_\mu`))
	assert.ErrorIs(t, err, gotensor.ErrStructuralInconsistency)
	_, err = s.Tensor()
	assert.ErrorIs(t, err, gotensor.ErrStructuralInconsistency)
}
