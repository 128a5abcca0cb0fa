package gotensor

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// ============================================================
// Index mappings
// ============================================================

// Mapping renames index names. States are preserved: a mapping only ever
// replaces names, never raises or lowers an index.
type Mapping struct {
	from   Indices
	to     Indices
	negate bool
}

// NewMapping maps from[k] onto to[k]. Each from name may occur once, and
// both sides of a pair must have the same type and state.
func NewMapping(from, to []Index) (Mapping, error) {
	if len(from) != len(to) {
		return Mapping{}, newError("NewMapping", ErrInvalidMapping, nil, "%d sources but %d targets", len(from), len(to))
	}
	type pair struct{ from, to Index }
	pairs := make([]pair, len(from))
	for k := range from {
		if from[k].Type() != to[k].Type() {
			return Mapping{}, newError("NewMapping", ErrInvalidMapping, nil,
				"%s and %s have different types", from[k].NameString(), to[k].NameString())
		}
		if from[k].IsUpper() != to[k].IsUpper() {
			return Mapping{}, newError("NewMapping", ErrInvalidMapping, nil,
				"%s -> %s changes the index state", from[k], to[k])
		}
		pairs[k] = pair{from[k].Name(), to[k].Name()}
	}
	slices.SortFunc(pairs, func(a, b pair) int { return cmp.Compare(a.from, b.from) })
	m := Mapping{from: make(Indices, len(pairs)), to: make(Indices, len(pairs))}
	for k, p := range pairs {
		if k > 0 && pairs[k-1].from == p.from {
			return Mapping{}, newError("NewMapping", ErrInvalidMapping, nil, "%s is mapped twice", p.from.NameString())
		}
		m.from[k], m.to[k] = p.from, p.to
	}
	return m, nil
}

// ParseMapping reads "_a->_b, ^c->^d".
func ParseMapping(s string) (Mapping, error) {
	var from, to []Index
	neg := false
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") && !strings.HasPrefix(s, "->") {
		neg = true
		s = s[1:]
	}
	s = strings.Trim(strings.TrimSpace(s), "{}")
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lhs, rhs, ok := strings.Cut(part, "->")
		if !ok {
			return Mapping{}, newError("ParseMapping", ErrInvalidMapping, nil, "missing -> in %q", part)
		}
		f, err := ParseIndex(strings.TrimSpace(lhs))
		if err != nil {
			return Mapping{}, err
		}
		t, err := ParseIndex(strings.TrimSpace(rhs))
		if err != nil {
			return Mapping{}, err
		}
		from, to = append(from, f), append(to, t)
	}
	m, err := NewMapping(from, to)
	if err != nil {
		return Mapping{}, err
	}
	m.negate = neg
	return m, nil
}

// IdentityMapping maps every name of names onto itself.
func IdentityMapping(names Indices) Mapping {
	n := names.Names()
	return Mapping{from: n, to: slices.Clone(n)}
}

func (m Mapping) From() Indices   { return slices.Clone(m.from) }
func (m Mapping) To() Indices     { return slices.Clone(m.to) }
func (m Mapping) IsNegated() bool { return m.negate }

func (m Mapping) Negated() Mapping {
	m.negate = !m.negate
	return m
}

func (m Mapping) IsIdentity() bool {
	return !m.negate && m.from.Equal(m.to)
}

// Inverse maps the targets back to the sources. It fails when two sources
// share a target.
func (m Mapping) Inverse() (Mapping, error) {
	inv, err := NewMapping(m.to, m.from)
	if err != nil {
		return Mapping{}, err
	}
	inv.negate = m.negate
	return inv, nil
}

func (m Mapping) String() string {
	parts := make([]string, len(m.from))
	for k := range m.from {
		parts[k] = "_" + m.from[k].NameString() + "->_" + m.to[k].NameString()
	}
	s := "{" + strings.Join(parts, ", ") + "}"
	if m.negate {
		return "-" + s
	}
	return s
}

// ============================================================
// Applying mappings
// ============================================================

// ApplyIndexMapping renames the free indices of t by m. The sources of m
// must be exactly the free names of t. Dummies of t that clash with a
// target or with forbidden are renamed to fresh names. Subtrees that need
// no change are returned as is.
//
// When two free indices of opposite state are mapped onto one name they
// become a dummy pair. Nodes whose free indices contain both are rebuilt,
// a warning is logged, and the call fails instead if the engine runs with
// mapping.strict_self_contraction.
func (e *Engine) ApplyIndexMapping(t Tensor, m Mapping, forbidden []Index) (Tensor, error) {
	free := t.FreeIndices()
	if !free.Names().Equal(m.from) {
		return nil, newError("ApplyIndexMapping", ErrInvalidMapping, t,
			"mapping %s does not match free indices %s", m, free)
	}

	collapsed := set.New[Index](0)
	byTarget := map[Index][]Index{}
	for k, to := range m.to {
		byTarget[to] = append(byTarget[to], m.from[k])
	}
	for _, to := range m.to {
		froms := byTarget[to]
		if len(froms) < 2 {
			continue
		}
		if len(froms) > 2 || stateOf(free, froms[0]) == stateOf(free, froms[1]) {
			return nil, newError("ApplyIndexMapping", ErrInvalidMapping, t,
				"mapping %s would duplicate index %s", m, to.NameString())
		}
		if e.strictSelfContraction() {
			return nil, newError("ApplyIndexMapping", ErrInvalidMapping, t,
				"mapping %s contracts %s with %s", m, froms[0].NameString(), froms[1].NameString())
		}
		if collapsed.InsertSlice(froms) {
			e.log().Warn("index mapping contracts free indices",
				"tensor", t.String(), "mapping", m.String(),
				"from", froms[0].NameString()+","+froms[1].NameString(), "to", to.NameString())
			e.m().selfContracted()
		}
	}

	forbid := set.From[Index](Indices(forbidden).Names())
	forbid.InsertSlice(m.to)
	sub := make(map[Index]Index, len(m.from))
	for k := range m.from {
		sub[m.from[k]] = m.to[k]
	}
	r := &rewriter{eng: e, root: t, base: forbid, collapsed: collapsed}
	out, err := r.rewrite(t, sub, forbid)
	if err != nil {
		return nil, err
	}
	e.m().renamed(r.renames)
	if m.negate {
		out = Negate(out)
	}
	return out, nil
}

func stateOf(free Indices, name Index) bool {
	for _, i := range free {
		if i.Name() == name {
			return i.IsUpper()
		}
	}
	return false
}

// RenameDummy renames the dummies of t that clash with forbidden. Free
// indices are kept.
func (e *Engine) RenameDummy(t Tensor, forbidden []Index) Tensor {
	if len(forbidden) == 0 {
		return t
	}
	dummies := collectDummyNames(t)
	clash := false
	for _, f := range forbidden {
		if dummies.Contains(f.Name()) {
			clash = true
			break
		}
	}
	if !clash {
		return t
	}
	out, err := e.ApplyIndexMapping(t, IdentityMapping(t.FreeIndices()), forbidden)
	if err != nil {
		// The identity mapping always matches its own free indices.
		panic(err)
	}
	return out
}

// ============================================================
// Rewriter
// ============================================================

type rewriter struct {
	eng       *Engine
	root      Tensor
	base      *set.Set[Index]
	collapsed *set.Set[Index]
	gen       *indexGenerator
	renames   int
}

// generator returns the fresh-name source shared by every scope of the
// tree, so that a name allocated in one scope is never reused in another.
func (r *rewriter) generator() *indexGenerator {
	if r.gen == nil {
		taken := collectNames(r.root)
		taken.InsertSet(r.base)
		r.gen = newIndexGenerator(taken)
	}
	return r.gen
}

// rewrite applies sub (restricted to the names t exposes) to t, renaming
// t's own dummies that clash with forbidden or with sub's targets.
func (r *rewriter) rewrite(t Tensor, sub map[Index]Index, forbidden *set.Set[Index]) (Tensor, error) {
	if _, ok := t.(*Complex); ok {
		return t, nil
	}
	local := map[Index]Index{}
	freeNames := t.FreeIndices().Names()
	for _, n := range freeNames {
		if to, ok := sub[n]; ok && to != n {
			local[n] = to
		}
	}

	// Own dummies clashing with forbidden or with a new name move away.
	dummies := ownDummies(t)
	targets := set.New[Index](len(local))
	for _, to := range local {
		targets.Insert(to)
	}
	for _, d := range dummies {
		if !forbidden.Contains(d) && !targets.Contains(d) {
			continue
		}
		local[d] = r.generator().next(d.Type())
		r.renames++
	}
	if len(local) == 0 && !r.hasNestedWork(t, forbidden) {
		return t, nil
	}

	inner := forbidden.Copy()
	for _, to := range local {
		inner.Insert(to)
	}
	rebuild := r.needsRebuild(freeNames)

	switch v := t.(type) {
	case *SimpleTensor:
		is, changed := substitute(v.indices, local)
		if !changed {
			return v, nil
		}
		return v.withIndices(is), nil

	case *TensorField:
		is, changed := substitute(v.indices, local)
		if !changed {
			return v, nil
		}
		return v.withIndices(is), nil

	case *Product:
		changed := false
		indexless := make([]Tensor, len(v.indexless))
		for i, c := range v.indexless {
			nc, err := r.rewrite(c, local, inner)
			if err != nil {
				return nil, err
			}
			indexless[i] = nc
			changed = changed || nc != c
		}
		data := make([]Tensor, len(v.data))
		for i, c := range v.data {
			nc, err := r.rewrite(c, local, inner)
			if err != nil {
				return nil, err
			}
			data[i] = nc
			changed = changed || nc != c
		}
		if !changed {
			return v, nil
		}
		if !rebuild {
			return assembleProduct(v.factor, indexless, data), nil
		}
		b := r.eng.NewProductBuilder()
		for _, c := range append(append([]Tensor{v.factor}, indexless...), data...) {
			if err := b.Put(c); err != nil {
				return nil, err
			}
		}
		return b.Build()

	case *Sum:
		changed := false
		terms := make([]Tensor, len(v.terms))
		for i, c := range v.terms {
			nc, err := r.rewrite(c, local, inner)
			if err != nil {
				return nil, err
			}
			terms[i] = nc
			changed = changed || nc != c
		}
		if !changed {
			return v, nil
		}
		if !rebuild {
			free, _ := substitute(v.free, local)
			return newSum(terms, free.Sorted()), nil
		}
		b := r.eng.NewSumBuilder()
		for _, c := range terms {
			if err := b.Put(c); err != nil {
				return nil, err
			}
		}
		return b.Build()

	case *Power:
		base, err := r.rewrite(v.base, nil, inner)
		if err != nil {
			return nil, err
		}
		exp, err := r.rewrite(v.exp, nil, inner)
		if err != nil {
			return nil, err
		}
		if base == v.base && exp == v.exp {
			return v, nil
		}
		return &Power{base: base, exp: exp}, nil
	}
	return t, nil
}

// hasNestedWork reports whether some dummy below t clashes with forbidden.
func (r *rewriter) hasNestedWork(t Tensor, forbidden *set.Set[Index]) bool {
	if forbidden.Size() == 0 {
		return false
	}
	for _, d := range collectDummyNames(t).Slice() {
		if forbidden.Contains(d) {
			return true
		}
	}
	return false
}

func (r *rewriter) needsRebuild(freeNames Indices) bool {
	if r.collapsed.Size() == 0 {
		return false
	}
	n := 0
	for _, f := range freeNames {
		if r.collapsed.Contains(f) {
			n++
		}
	}
	return n >= 2
}

func substitute(is Indices, sub map[Index]Index) (Indices, bool) {
	var out Indices
	for k, i := range is {
		to, ok := sub[i.Name()]
		if !ok || to == i.Name() {
			continue
		}
		if out == nil {
			out = slices.Clone(is)
		}
		out[k] = i.withName(to)
	}
	if out == nil {
		return is, false
	}
	return out, true
}

// ownDummies returns the sorted dummy names contracted at t's own level.
func ownDummies(t Tensor) Indices {
	var all Indices
	switch v := t.(type) {
	case *SimpleTensor:
		all = v.indices
	case *TensorField:
		all = v.indices
	case *Product:
		for _, d := range v.data {
			all = append(all, topIndices(d)...)
		}
	default:
		return nil
	}
	_, dummies, _, _ := splitIndices(all)
	return dummies
}

// collectDummyNames returns every dummy name in t, at any depth. Field
// arguments are a closed scope and are not visited.
func collectDummyNames(t Tensor) *set.Set[Index] {
	out := set.New[Index](0)
	var walk func(Tensor)
	walk = func(t Tensor) {
		out.InsertSlice(ownDummies(t))
		switch v := t.(type) {
		case *Product:
			for _, c := range v.indexless {
				walk(c)
			}
			for _, c := range v.data {
				walk(c)
			}
		case *Sum:
			for _, c := range v.terms {
				walk(c)
			}
		case *Power:
			walk(v.base)
			walk(v.exp)
		}
	}
	walk(t)
	return out
}

// collectNames returns every index name in t outside field arguments.
func collectNames(t Tensor) *set.Set[Index] {
	out := collectDummyNames(t)
	out.InsertSlice(t.FreeIndices().Names())
	return out
}

// indexGenerator hands out the smallest unused id per index type.
type indexGenerator struct {
	taken  *set.Set[Index]
	cursor map[IndexType]int
}

func newIndexGenerator(taken *set.Set[Index]) *indexGenerator {
	return &indexGenerator{taken: taken, cursor: map[IndexType]int{}}
}

func (g *indexGenerator) next(typ IndexType) Index {
	for id := g.cursor[typ]; id <= maxIndexID; id++ {
		n := NewIndex(typ, id, false)
		if g.taken.Insert(n) {
			g.cursor[typ] = id + 1
			return n
		}
	}
	panic("gotensor: index space exhausted for " + typ.String())
}
