package gotensor

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ============================================================
// Symbols
// ============================================================

// Symbol is a declared tensor name with a fixed index structure and an
// optional permutation symmetry group. A symbol freezes the first time a
// tensor is built from it.
type Symbol struct {
	name      string
	id        int
	structure []IndexType
	field     bool
	seed      uint64
	maxOrder  int

	mu     sync.Mutex
	group  *symmetryGroup
	frozen bool
}

func (s *Symbol) Name() string           { return s.name }
func (s *Symbol) ID() int                { return s.id }
func (s *Symbol) IsField() bool          { return s.field }
func (s *Symbol) Structure() []IndexType { return slices.Clone(s.structure) }
func (s *Symbol) String() string         { return s.name + structureString(s.structure) }

func (s *Symbol) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

func (s *Symbol) symmetry() *symmetryGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group
}

func structureString(ts []IndexType) string {
	if len(ts) == 0 {
		return ""
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Symmetries returns every element of the closed group, identity first.
func (s *Symbol) Symmetries() []Symmetry {
	g := s.symmetry()
	out := make([]Symmetry, len(g.elements))
	for i, el := range g.elements {
		out[i] = Symmetry{Perm: slices.Clone(el.Perm), Negate: el.Negate}
	}
	return out
}

// Orbits returns, per index position, the smallest position it can be
// permuted to.
func (s *Symbol) Orbits() []int { return slices.Clone(s.symmetry().orbits) }

// AddSymmetry declares T_{i_0..i_n} = ±T_{i_perm(0)..i_perm(n)}.
func (s *Symbol) AddSymmetry(perm Permutation, negate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return newError("AddSymmetry", ErrBuilderProtocol, nil, "symbol %s is frozen", s.name)
	}
	if len(perm) != len(s.structure) || !perm.valid() {
		return newError("AddSymmetry", ErrStructuralInconsistency, nil,
			"%v is not a permutation of %d positions of %s", perm, len(s.structure), s.name)
	}
	for k, v := range perm {
		if s.structure[k] != s.structure[v] {
			return newError("AddSymmetry", ErrStructuralInconsistency, nil,
				"%v mixes index types %s and %s of %s", perm, s.structure[k], s.structure[v], s.name)
		}
	}
	if perm.IsIdentity() {
		if negate {
			return newError("AddSymmetry", ErrStructuralInconsistency, nil, "identity with a minus sign on %s", s.name)
		}
		return nil
	}
	g, err := s.group.extend(Symmetry{Perm: slices.Clone(perm), Negate: negate}, s.maxOrder)
	if err != nil {
		return newError("AddSymmetry", ErrStructuralInconsistency, nil, "%s: %v", s.name, err)
	}
	s.group = g
	return nil
}

// Symmetric and Antisymmetric declare full (anti)symmetry over all positions
// via adjacent transpositions.
func (s *Symbol) Symmetric() error     { return s.addTranspositions(false) }
func (s *Symbol) Antisymmetric() error { return s.addTranspositions(true) }

func (s *Symbol) addTranspositions(negate bool) error {
	n := len(s.structure)
	for k := 0; k+1 < n; k++ {
		p := identityPermutation(n)
		p[k], p[k+1] = p[k+1], p[k]
		if err := s.AddSymmetry(p, negate); err != nil {
			return err
		}
	}
	return nil
}

func (s *Symbol) freeze() *symmetryGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
	return s.group
}

func symbolKey(name string, field bool, types []IndexType) string {
	var sb strings.Builder
	sb.WriteString(name)
	if field {
		sb.WriteString("[]")
	}
	for _, t := range types {
		sb.WriteByte('|')
		sb.WriteString(t.String())
	}
	return sb.String()
}

func sortSymbols(ss []*Symbol) {
	slices.SortFunc(ss, func(a, b *Symbol) int { return a.id - b.id })
}

// Declare returns the symbol name with the given index structure, creating
// it on first use. Symbols with the same name but different structures are
// distinct.
func (e *Engine) Declare(name string, types ...IndexType) *Symbol {
	return e.declare(name, false, types)
}

// DeclareField is Declare for tensor fields.
func (e *Engine) DeclareField(name string, types ...IndexType) *Symbol {
	return e.declare(name, true, types)
}

func (e *Engine) declare(name string, field bool, types []IndexType) *Symbol {
	key := symbolKey(name, field, types)
	e.mu.RLock()
	s, ok := e.symbols[key]
	e.mu.RUnlock()
	if ok {
		return s
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.symbols[key]; ok {
		return s
	}
	s = &Symbol{
		name:      name,
		id:        e.nextID,
		structure: slices.Clone(types),
		field:     field,
		seed:      symbolSeed(name, field, types),
		maxOrder:  e.cfg.Symmetry.MaxGroupOrder,
		group:     trivialGroup(len(types)),
	}
	e.nextID++
	e.symbols[key] = s
	return s
}

func indexTypes(is Indices) []IndexType {
	out := make([]IndexType, len(is))
	for k, i := range is {
		out[k] = i.Type()
	}
	return out
}

// Tensor builds name with the given indices, declaring the symbol if needed.
func (e *Engine) Tensor(name string, indices ...Index) (*SimpleTensor, error) {
	if name == "" {
		return nil, newError("Tensor", ErrStructuralInconsistency, nil, "empty symbol name")
	}
	return e.Declare(name, indexTypes(indices)...).Tensor(indices...)
}

// Tensor builds a tensor of s. Indices must match the declared structure.
func (s *Symbol) Tensor(indices ...Index) (*SimpleTensor, error) {
	if s.field {
		return nil, newError("Tensor", ErrBuilderProtocol, nil, "%s is a field; use Field", s.name)
	}
	is, err := s.checkIndices("Tensor", indices)
	if err != nil {
		return nil, err
	}
	group := s.freeze()
	t := &SimpleTensor{symbol: s, group: group, indices: is, free: is.Free()}
	return t, nil
}

func (s *Symbol) checkIndices(op string, indices []Index) (Indices, error) {
	if len(indices) != len(s.structure) {
		return nil, newError(op, ErrStructuralInconsistency, nil,
			"%s takes %d indices, got %d", s.name, len(s.structure), len(indices))
	}
	for k, i := range indices {
		if i.Type() != s.structure[k] {
			return nil, newError(op, ErrStructuralInconsistency, nil,
				"index %d of %s must be %s, got %s", k, s.name, s.structure[k], i.Type())
		}
	}
	is := slices.Clone(Indices(indices))
	if _, _, bad, ok := splitIndices(is); !ok {
		return nil, newError(op, ErrContractionViolation, nil, "index %s of %s", bad.NameString(), s.name)
	}
	return is, nil
}

// ParseTensor reads a simple tensor such as "T_{mn}^{a}" or "x".
func (e *Engine) ParseTensor(s string) (*SimpleTensor, error) {
	cut := strings.IndexAny(s, "_^")
	if cut < 0 {
		cut = len(s)
	}
	name := strings.TrimSpace(s[:cut])
	is, err := ParseIndices(s[cut:])
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("gotensor: missing symbol name in %q", s)
	}
	return e.Tensor(name, is...)
}

// MustTensor is ParseTensor for literals; it panics on malformed input.
func (e *Engine) MustTensor(s string) *SimpleTensor {
	t, err := e.ParseTensor(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Field builds a tensor field name_{indices}[args...]. Arguments form a
// closed scope: their free indices are bound to the field and never leak.
func (e *Engine) Field(name string, indices Indices, args ...Tensor) (*TensorField, error) {
	if len(args) == 0 {
		return nil, newError("Field", ErrStructuralInconsistency, nil, "field %s needs at least one argument", name)
	}
	s := e.DeclareField(name, indexTypes(indices)...)
	is, err := s.checkIndices("Field", indices)
	if err != nil {
		return nil, err
	}
	argIndices := make([]Indices, len(args))
	for k, a := range args {
		argIndices[k] = a.FreeIndices()
	}
	group := s.freeze()
	return &TensorField{
		symbol:     s,
		head:       s,
		group:      group,
		indices:    is,
		free:       is.Free(),
		args:       slices.Clone(args),
		argIndices: argIndices,
	}, nil
}
