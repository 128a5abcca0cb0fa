package gotensor

import "maps"

// ============================================================
// Equivalence oracle
// ============================================================

// Verdict is the outcome of Compare.
type Verdict int8

const (
	VerdictIncomparable Verdict = iota
	VerdictEqual
	VerdictNegated
)

func (v Verdict) String() string {
	switch v {
	case VerdictEqual:
		return verdictLabelEqual
	case VerdictNegated:
		return verdictLabelNegated
	}
	return verdictLabelIncomparable
}

// Compare decides whether a equals b or -b up to a renaming of dummy
// indices, using the declared symmetries of their symbols. Free indices must
// agree exactly.
func Compare(a, b Tensor) Verdict {
	if a == b {
		return VerdictEqual
	}
	fa, fb := a.FreeIndices(), b.FreeIndices()
	if !fa.Equal(fb) || StructuralHash(a) != StructuralHash(b) {
		return VerdictIncomparable
	}
	st := newMatchState()
	for _, i := range fa {
		st.fwd[i.Name()] = i.Name()
		st.rev[i.Name()] = i.Name()
	}
	verdict := VerdictIncomparable
	match(a, b, st, func(s *matchState) bool {
		verdict = VerdictEqual
		if s.negated {
			verdict = VerdictNegated
		}
		return true
	})
	return verdict
}

// Compare is the package-level Compare with the verdict counted in the
// engine's metrics.
func (e *Engine) Compare(a, b Tensor) Verdict {
	v := Compare(a, b)
	e.m().compared(v)
	return v
}

// matchState is a partial bijection between index names of the two sides
// plus the accumulated sign. States are never mutated once shared.
type matchState struct {
	fwd     map[Index]Index
	rev     map[Index]Index
	negated bool
}

func newMatchState() *matchState {
	return &matchState{fwd: map[Index]Index{}, rev: map[Index]Index{}}
}

func (s *matchState) clone() *matchState {
	return &matchState{fwd: maps.Clone(s.fwd), rev: maps.Clone(s.rev), negated: s.negated}
}

func (s *matchState) flip(neg bool) *matchState {
	if !neg {
		return s
	}
	return &matchState{fwd: s.fwd, rev: s.rev, negated: !s.negated}
}

// bind maps the occurrence from onto to. It returns s itself when the pair
// is already bound.
func (s *matchState) bind(from, to Index) (*matchState, bool) {
	if from.IsUpper() != to.IsUpper() || from.Type() != to.Type() {
		return nil, false
	}
	f, t := from.Name(), to.Name()
	if cur, ok := s.fwd[f]; ok {
		return s, cur == t
	}
	if cur, ok := s.rev[t]; ok {
		return s, cur == f
	}
	c := s.clone()
	c.fwd[f] = t
	c.rev[t] = f
	return c, true
}

func (s *matchState) bindAll(from, to Indices) (*matchState, bool) {
	cur := s
	for k := range from {
		var ok bool
		if cur, ok = cur.bind(from[k], to[k]); !ok {
			return nil, false
		}
	}
	return cur, true
}

// restrict keeps the bindings of the from-side names in keep.
func (s *matchState) restrict(keep Indices) *matchState {
	c := &matchState{fwd: map[Index]Index{}, rev: map[Index]Index{}, negated: s.negated}
	for _, f := range keep {
		if t, ok := s.fwd[f]; ok {
			c.fwd[f] = t
			c.rev[t] = f
		}
	}
	return c
}

// stripSign unwraps -x into x and a sign.
func stripSign(t Tensor) (Tensor, bool) {
	if p, ok := t.(*Product); ok && p.factor.IsMinusOne() {
		if single := p.unitSingle(); single != nil {
			return single, true
		}
	}
	return t, false
}

// match enumerates states extending st under which from equals ±to and
// calls yield for each. It stops and returns true as soon as yield does.
func match(from, to Tensor, st *matchState, yield func(*matchState) bool) bool {
	from, nf := stripSign(from)
	to, nt := stripSign(to)
	st = st.flip(nf != nt)
	if from.kind() != to.kind() {
		return false
	}
	switch f := from.(type) {
	case *Complex:
		t := to.(*Complex)
		if f.Equals(t) {
			return yield(st)
		}
		if f.Equals(t.Negate()) {
			return yield(st.flip(true))
		}
		return false
	case *SimpleTensor:
		t := to.(*SimpleTensor)
		if f.symbol != t.symbol {
			return false
		}
		return matchIndexed(f.group, f.indices, t.indices, st, yield)
	case *TensorField:
		t := to.(*TensorField)
		if f.symbol != t.symbol || f.head != t.head || len(f.args) != len(t.args) {
			return false
		}
		for i := range f.args {
			if Compare(f.args[i], t.args[i]) != VerdictEqual {
				return false
			}
		}
		return matchIndexed(f.group, f.indices, t.indices, st, yield)
	case *Product:
		return matchProduct(f, to.(*Product), st, yield)
	case *Sum:
		return matchSum(f, to.(*Sum), st, yield)
	case *Power:
		t := to.(*Power)
		if Compare(f.base, t.base) != VerdictEqual || Compare(f.exp, t.exp) != VerdictEqual {
			return false
		}
		return yield(st)
	}
	return false
}

// matchIndexed tries every symmetry element: from[π(k)] binds to to[k].
func matchIndexed(g *symmetryGroup, from, to Indices, st *matchState, yield func(*matchState) bool) bool {
	if len(from) != len(to) {
		return false
	}
	permuted := make(Indices, len(from))
	for _, el := range g.elements {
		for k := range to {
			permuted[k] = from[el.Perm[k]]
		}
		next, ok := st.flip(el.Negate).bindAll(permuted, to)
		if !ok {
			continue
		}
		if yield(next) {
			return true
		}
	}
	return false
}

func matchProduct(f, t *Product, st *matchState, yield func(*matchState) bool) bool {
	if len(f.indexless) != len(t.indexless) || len(f.data) != len(t.data) {
		return false
	}
	switch {
	case f.factor.Equals(t.factor):
	case f.factor.Equals(t.factor.Negate()):
		st = st.flip(true)
	default:
		return false
	}
	fc, tc := f.Content(), t.Content()
	fh := make([]uint64, len(f.indexless))
	th := make([]uint64, len(t.indexless))
	for i := range f.indexless {
		fh[i] = StructuralHash(f.indexless[i])
		th[i] = StructuralHash(t.indexless[i])
	}
	return matchSet(f.indexless, t.indexless, fh, th, st, func(s *matchState) bool {
		return matchSet(fc.Data, tc.Data, fc.StructureHashes, tc.StructureHashes, s, yield)
	})
}

// matchSet matches from against some permutation of to, only pairing
// elements with equal hashes.
func matchSet(from, to []Tensor, fh, th []uint64, st *matchState, yield func(*matchState) bool) bool {
	used := make([]bool, len(to))
	var rec func(i int, s *matchState) bool
	rec = func(i int, s *matchState) bool {
		if i == len(from) {
			return yield(s)
		}
		for j := range to {
			if used[j] || fh[i] != th[j] {
				continue
			}
			used[j] = true
			done := match(from[i], to[j], s, func(next *matchState) bool {
				return rec(i+1, next)
			})
			used[j] = false
			if done {
				return true
			}
		}
		return false
	}
	return rec(0, st)
}

// matchSum pairs the terms of two sums. Every term is its own dummy scope;
// only the bindings of the sum's free names carry over between terms and
// back to the caller. All pairs must agree on one relative sign.
func matchSum(f, t *Sum, st *matchState, yield func(*matchState) bool) bool {
	if len(f.terms) != len(t.terms) {
		return false
	}
	freeNames := f.free.Names()
	fh := make([]uint64, len(f.terms))
	th := make([]uint64, len(t.terms))
	for i := range f.terms {
		fh[i] = StructuralHash(f.terms[i])
		th[i] = StructuralHash(t.terms[i])
	}
	for _, neg := range []bool{false, true} {
		used := make([]bool, len(t.terms))
		var rec func(i int, scope *matchState) bool
		rec = func(i int, scope *matchState) bool {
			if i == len(f.terms) {
				merged := st.flip(neg)
				for _, name := range freeNames {
					to, ok := scope.fwd[name]
					if !ok {
						return false
					}
					if merged, ok = merged.bind(name, to); !ok {
						return false
					}
				}
				return yield(merged)
			}
			for j := range t.terms {
				if used[j] || fh[i] != th[j] {
					continue
				}
				used[j] = true
				start := &matchState{fwd: scope.fwd, rev: scope.rev}
				done := match(f.terms[i], t.terms[j], start, func(s *matchState) bool {
					if s.negated != neg {
						return false
					}
					return rec(i+1, s.restrict(freeNames))
				})
				used[j] = false
				if done {
					return true
				}
			}
			return false
		}
		if rec(0, st.restrict(freeNames)) {
			return true
		}
	}
	return false
}
