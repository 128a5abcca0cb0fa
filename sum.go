package gotensor

import (
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-set/v3"
)

// ============================================================
// Sum
// ============================================================

// Sum is a canonical sum: terms are sorted and share one set of free
// indices. Build sums with SumBuilder or Engine.Sum.
type Sum struct {
	terms []Tensor
	free  Indices

	hashOnce sync.Once
	hash     uint64
}

func newSum(terms []Tensor, free Indices) *Sum {
	ts := slices.Clone(terms)
	slices.SortStableFunc(ts, compareTerms)
	return &Sum{terms: ts, free: free}
}

// compareTerms orders summands ignoring a leading minus sign, with the
// numeric term last.
func compareTerms(a, b Tensor) int {
	if na, nb := isNumber(a), isNumber(b); na != nb {
		if na {
			return 1
		}
		return -1
	}
	sa, sb := a.String(), b.String()
	if c := strings.Compare(strings.TrimPrefix(sa, "-"), strings.TrimPrefix(sb, "-")); c != 0 {
		return c
	}
	return compareTensors(a, b)
}

func (s *Sum) Terms() []Tensor      { return slices.Clone(s.terms) }
func (s *Sum) FreeIndices() Indices { return s.free }
func (s *Sum) Size() int            { return len(s.terms) }
func (s *Sum) Get(i int) Tensor     { return s.terms[i] }
func (s *Sum) kind() Kind           { return KindSum }

func (s *Sum) String() string {
	var sb strings.Builder
	for i, t := range s.terms {
		str := t.String()
		switch {
		case i == 0:
			sb.WriteString(str)
		case strings.HasPrefix(str, "-"):
			sb.WriteString(" - ")
			sb.WriteString(str[1:])
		default:
			sb.WriteString(" + ")
			sb.WriteString(str)
		}
	}
	return sb.String()
}

func (s *Sum) Equals(other Tensor) bool {
	o, ok := other.(*Sum)
	if !ok || len(o.terms) != len(s.terms) || !o.free.Equal(s.free) {
		return false
	}
	for i := range s.terms {
		if !s.terms[i].Equals(o.terms[i]) {
			return false
		}
	}
	return true
}

func (s *Sum) structuralHash() uint64 {
	s.hashOnce.Do(func() {
		var h uint64
		for _, t := range s.terms {
			h += StructuralHash(t)
		}
		s.hash = mix64(h ^ saltSum)
	})
	return s.hash
}

func (s *Sum) toJSON() map[string]interface{} {
	terms := make([]interface{}, len(s.terms))
	for i, t := range s.terms {
		terms[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "sum", "terms": terms}
}

// ============================================================
// Split
// ============================================================

// Split separates t into its structural factor and its indexless summand,
// so that t == summand*factor. For 2*a*T_{mn} the factor is T_{mn} and the
// summand is 2*a; for 2*a*b it is a*b and 2.
func Split(t Tensor) (factor, summand Tensor) {
	p, ok := t.(*Product)
	if !ok {
		return t, N(1)
	}
	if len(p.data) > 0 {
		return p.DataProduct(), p.IndexlessProduct()
	}
	return assembleProduct(N(1), p.indexless, nil), p.factor
}

// scaledSum returns s when p is a number times the single sum s.
func (p *Product) scaledSum() *Sum {
	if len(p.indexless)+len(p.data) != 1 {
		return nil
	}
	if len(p.data) == 1 {
		s, _ := p.data[0].(*Sum)
		return s
	}
	s, _ := p.indexless[0].(*Sum)
	return s
}

// ============================================================
// SumBuilder
// ============================================================

// SumBuilder aggregates terms. Terms that are equal up to dummy relabeling
// and sign after Split share a factorNode and have their summands added.
// A builder is single-use: Build may be called once and Put not after it.
type SumBuilder struct {
	eng       *Engine
	total     *Complex
	buckets   map[uint64][]*factorNode
	free      Indices
	freeNames Indices
	freeSet   bool
	built     bool
}

// factorNode is one distinct factor of a sum. Its summands are kept as put,
// each with its sign relative to the node's factor, so that a change of
// representative re-expresses them from scratch.
type factorNode struct {
	factor    Tensor
	forbidden *set.Set[Index]
	builder   *SumBuilder
	summands  []signedSummand
}

type signedSummand struct {
	t   Tensor
	neg bool
}

func (e *Engine) NewSumBuilder() *SumBuilder {
	return &SumBuilder{eng: e, total: N(0), buckets: map[uint64][]*factorNode{}}
}

// Sum adds ts.
func (e *Engine) Sum(ts ...Tensor) (Tensor, error) {
	b := e.NewSumBuilder()
	for _, t := range ts {
		if err := b.Put(t); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func (b *SumBuilder) Put(t Tensor) error {
	if b.built {
		return newError("SumBuilder.Put", ErrBuilderProtocol, t, "builder already built")
	}
	switch v := t.(type) {
	case *Sum:
		if err := b.checkFree(v); err != nil {
			return err
		}
		for _, term := range v.terms {
			if err := b.Put(term); err != nil {
				return err
			}
		}
		return nil
	case *Complex:
		if v.IsZero() {
			if v.IsNumeric() && !b.total.IsNaN() {
				b.total = b.total.Add(v)
			}
			return nil
		}
		if b.freeSet && len(b.free) > 0 && !v.IsNaN() && !v.IsInfinite() {
			return newError("SumBuilder.Put", ErrStructuralInconsistency, t,
				"number added to a sum with free indices %s", b.free)
		}
		b.total = b.total.Add(v)
		return nil
	}
	if b.total.IsNaN() {
		return nil
	}
	if err := b.checkFree(t); err != nil {
		return err
	}
	// c*(x + y) is added as c*x + c*y.
	if p, ok := t.(*Product); ok {
		if inner := p.scaledSum(); inner != nil {
			for _, term := range inner.terms {
				if err := b.Put(scale(p.factor, term)); err != nil {
					return err
				}
			}
			return nil
		}
	}

	factor, summand := Split(t)
	h := IndexSensitiveHash(factor, b.freeNames)
	for _, node := range b.buckets[h] {
		switch b.eng.Compare(factor, node.factor) {
		case VerdictEqual:
			return node.add(b.eng, factor, summand, false)
		case VerdictNegated:
			return node.add(b.eng, factor, summand, true)
		}
		b.eng.m().collision()
		b.eng.log().Debug("hash collision in sum", "factor", factor.String(), "candidate", node.factor.String())
	}
	node := &factorNode{factor: factor, forbidden: collectNames(factor), builder: b.eng.NewSumBuilder()}
	b.buckets[h] = append(b.buckets[h], node)
	return node.push(b.eng, summand, false)
}

func (b *SumBuilder) checkFree(t Tensor) error {
	f := t.FreeIndices()
	if !b.freeSet {
		if len(f) > 0 && !b.total.IsZero() && !b.total.IsNaN() && !b.total.IsInfinite() {
			return newError("SumBuilder.Put", ErrStructuralInconsistency, t,
				"term with free indices %s added to a number", f)
		}
		b.free, b.freeNames, b.freeSet = f, f.Names(), true
		return nil
	}
	if !f.Equal(b.free) {
		return newError("SumBuilder.Put", ErrStructuralInconsistency, t,
			"free indices %s, expected %s", f, b.free)
	}
	return nil
}

// add merges a summand whose factor is equivalent (neg: negated) to the
// node's factor. The lexicographically smallest factor becomes the node's
// representative.
func (n *factorNode) add(eng *Engine, factor, summand Tensor, neg bool) error {
	if factor.String() >= n.factor.String() {
		return n.push(eng, summand, neg)
	}
	eng.log().Debug("sum representative swap", "old", n.factor.String(), "new", factor.String())
	old := n.summands
	n.factor = factor
	n.forbidden = collectNames(factor)
	n.builder = eng.NewSumBuilder()
	n.summands = nil
	for _, s := range old {
		if err := n.push(eng, s.t, s.neg != neg); err != nil {
			return err
		}
	}
	return n.push(eng, summand, false)
}

func (n *factorNode) push(eng *Engine, summand Tensor, neg bool) error {
	n.summands = append(n.summands, signedSummand{t: summand, neg: neg})
	s := eng.RenameDummy(summand, n.forbidden.Slice())
	if neg {
		s = Negate(s)
	}
	return n.builder.Put(s)
}

func (b *SumBuilder) Clone() *SumBuilder {
	c := &SumBuilder{
		eng:       b.eng,
		total:     b.total,
		buckets:   make(map[uint64][]*factorNode, len(b.buckets)),
		free:      b.free,
		freeNames: b.freeNames,
		freeSet:   b.freeSet,
		built:     b.built,
	}
	for h, nodes := range b.buckets {
		cn := make([]*factorNode, len(nodes))
		for i, n := range nodes {
			cn[i] = &factorNode{
				factor:    n.factor,
				forbidden: n.forbidden,
				builder:   n.builder.Clone(),
				summands:  slices.Clone(n.summands),
			}
		}
		c.buckets[h] = cn
	}
	return c
}

func (b *SumBuilder) Build() (Tensor, error) {
	if b.built {
		return nil, newError("SumBuilder.Build", ErrBuilderProtocol, nil, "builder already built")
	}
	b.built = true
	if b.total.IsNaN() || b.total.IsInfinite() {
		b.eng.m().built(0)
		return b.total, nil
	}

	keys := make([]uint64, 0, len(b.buckets))
	for h := range b.buckets {
		keys = append(keys, h)
	}
	slices.Sort(keys)

	total := b.total
	numeric := total.IsNumeric()
	var terms []Tensor
	for _, h := range keys {
		for _, node := range b.buckets[h] {
			s, err := node.builder.Build()
			if err != nil {
				return nil, err
			}
			if isZero(s) {
				continue
			}
			pb := b.eng.NewProductBuilder()
			if err := pb.Put(s); err != nil {
				return nil, err
			}
			if err := pb.Put(node.factor); err != nil {
				return nil, err
			}
			term, err := pb.Build()
			if err != nil {
				return nil, err
			}
			if numeric {
				term = b.eng.ToNumeric(term)
			}
			if c, ok := term.(*Complex); ok {
				total = total.Add(c)
				continue
			}
			terms = append(terms, term)
		}
	}
	if total.IsNaN() || total.IsInfinite() {
		b.eng.m().built(0)
		return total, nil
	}
	b.eng.m().built(len(terms))

	switch {
	case len(terms) == 0:
		return total, nil
	case len(terms) == 1 && total.IsZero():
		return terms[0], nil
	}
	if !total.IsZero() {
		terms = append(terms, total)
	}
	return newSum(terms, b.free), nil
}
