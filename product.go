package gotensor

import (
	"slices"
	"strings"
	"sync"
)

// ============================================================
// Product
// ============================================================

// Product is factor * indexless... * data... where indexless factors carry
// no indices at all and data factors carry the product's index structure.
// Both lists are kept in canonical order. The contraction content is
// computed on first use and held for the product's lifetime.
type Product struct {
	factor    *Complex
	indexless []Tensor
	data      []Tensor
	free      Indices

	once    sync.Once
	content *ContractionContent
	err     error
}

func (p *Product) Factor() *Complex     { return p.factor }
func (p *Product) Indexless() []Tensor  { return slices.Clone(p.indexless) }
func (p *Product) Data() []Tensor       { return slices.Clone(p.data) }
func (p *Product) FreeIndices() Indices { return p.free }
func (p *Product) kind() Kind           { return KindProduct }
func (p *Product) hasFactor() bool      { return !p.factor.IsOne() }

func (p *Product) Size() int {
	n := len(p.indexless) + len(p.data)
	if p.hasFactor() {
		n++
	}
	return n
}

func (p *Product) Get(i int) Tensor {
	if p.hasFactor() {
		if i == 0 {
			return p.factor
		}
		i--
	}
	if i < len(p.indexless) {
		return p.indexless[i]
	}
	return p.data[i-len(p.indexless)]
}

// Content returns the contraction content of the data factors.
func (p *Product) Content() *ContractionContent {
	p.once.Do(func() {
		p.content, p.err = BuildContent(p.data, p.free)
	})
	if p.err != nil {
		// Products are validated on construction.
		panic(p.err)
	}
	return p.content
}

// NonScalar returns the sub-product that carries the free indices, or 1.
func (p *Product) NonScalar() Tensor {
	c := p.Content()
	data := make([]Tensor, len(c.NonScalar))
	for k, pos := range c.NonScalar {
		data[k] = c.Data[pos]
	}
	return assembleProduct(N(1), nil, data)
}

// Scalars returns the indexless factors followed by every fully contracted
// component as its own sub-product. Together with NonScalar it covers each
// non-numeric factor exactly once.
func (p *Product) Scalars() []Tensor {
	c := p.Content()
	out := slices.Clone(p.indexless)
	for _, comp := range c.Scalars {
		data := make([]Tensor, len(comp))
		for k, pos := range comp {
			data[k] = c.Data[pos]
		}
		out = append(out, assembleProduct(N(1), nil, data))
	}
	return out
}

// DataProduct returns the product of the data factors alone.
func (p *Product) DataProduct() Tensor { return assembleProduct(N(1), nil, p.data) }

// IndexlessProduct returns factor times the indexless factors.
func (p *Product) IndexlessProduct() Tensor { return assembleProduct(p.factor, p.indexless, nil) }

func (p *Product) String() string {
	parts := make([]string, 0, len(p.indexless)+len(p.data))
	for _, t := range p.indexless {
		parts = append(parts, factorString(t))
	}
	for _, t := range p.data {
		parts = append(parts, factorString(t))
	}
	body := strings.Join(parts, "*")
	switch {
	case p.factor.IsOne():
		return body
	case p.factor.IsMinusOne():
		return "-" + body
	}
	fs := p.factor.String()
	if strings.ContainsAny(fs[1:], "+-") {
		fs = "(" + fs + ")"
	}
	return fs + "*" + body
}

func factorString(t Tensor) string {
	switch t.(type) {
	case *Sum:
		return "(" + t.String() + ")"
	}
	return t.String()
}

func (p *Product) Equals(other Tensor) bool {
	o, ok := other.(*Product)
	if !ok || !p.factor.Equals(o.factor) || len(p.indexless) != len(o.indexless) || len(p.data) != len(o.data) {
		return false
	}
	for i := range p.indexless {
		if !p.indexless[i].Equals(o.indexless[i]) {
			return false
		}
	}
	for i := range p.data {
		if !p.data[i].Equals(o.data[i]) {
			return false
		}
	}
	return true
}

func (p *Product) toJSON() map[string]interface{} {
	factors := make([]interface{}, 0, p.Size())
	for i := 0; i < p.Size(); i++ {
		factors = append(factors, p.Get(i).toJSON())
	}
	return map[string]interface{}{"type": "product", "factors": factors}
}

// ============================================================
// Assembly
// ============================================================

func isIndexless(t Tensor) bool { return !isNumber(t) && len(topIndices(t)) == 0 }

// assembleProduct builds a product from already classified, valid parts.
// It collapses degenerate shapes but performs no merging or validation.
func assembleProduct(factor *Complex, indexless, data []Tensor) Tensor {
	if factor.IsNaN() {
		return factor
	}
	if factor.IsZero() {
		return factor
	}
	n := len(indexless) + len(data)
	switch {
	case n == 0:
		return factor
	case n == 1 && factor.IsOne():
		if len(data) == 1 {
			return data[0]
		}
		return indexless[0]
	}
	il := slices.Clone(indexless)
	sortTensors(il)
	d := slices.Clone(data)
	sortTensors(d)
	var all Indices
	for _, t := range d {
		all = append(all, topIndices(t)...)
	}
	return &Product{factor: factor, indexless: il, data: d, free: all.Free()}
}

// scale returns c*t.
func scale(c *Complex, t Tensor) Tensor {
	switch v := t.(type) {
	case *Complex:
		return c.Multiply(v)
	case *Product:
		return assembleProduct(c.Multiply(v.factor), v.indexless, v.data)
	}
	if isIndexless(t) {
		return assembleProduct(c, []Tensor{t}, nil)
	}
	return assembleProduct(c, nil, []Tensor{t})
}

// ============================================================
// ProductBuilder
// ============================================================

// ProductBuilder multiplies factors together. It flattens nested products,
// folds numbers, merges equal indexless bases into powers and checks that
// every index name occurs at most twice with opposite states.
type ProductBuilder struct {
	eng       *Engine
	factor    *Complex
	indexless []Tensor
	data      []Tensor
	built     bool
}

func (e *Engine) NewProductBuilder() *ProductBuilder {
	return &ProductBuilder{eng: e, factor: N(1)}
}

func (b *ProductBuilder) Put(t Tensor) error {
	if b.built {
		return newError("ProductBuilder.Put", ErrBuilderProtocol, t, "builder already built")
	}
	switch v := t.(type) {
	case *Complex:
		b.factor = b.factor.Multiply(v)
	case *Product:
		b.factor = b.factor.Multiply(v.factor)
		b.indexless = append(b.indexless, v.indexless...)
		b.data = append(b.data, v.data...)
	default:
		if isIndexless(t) {
			b.indexless = append(b.indexless, t)
		} else {
			b.data = append(b.data, t)
		}
	}
	return nil
}

func (b *ProductBuilder) Clone() *ProductBuilder {
	return &ProductBuilder{
		eng:       b.eng,
		factor:    b.factor,
		indexless: slices.Clone(b.indexless),
		data:      slices.Clone(b.data),
		built:     b.built,
	}
}

func (b *ProductBuilder) Build() (Tensor, error) {
	if b.built {
		return nil, newError("ProductBuilder.Build", ErrBuilderProtocol, nil, "builder already built")
	}
	b.built = true
	if b.factor.IsNaN() || b.factor.IsZero() {
		return b.factor, nil
	}

	var all Indices
	for _, t := range b.data {
		all = append(all, topIndices(t)...)
	}
	if _, _, bad, ok := splitIndices(all); !ok {
		return nil, newError("Multiply", ErrContractionViolation, assembleProduct(b.factor, b.indexless, b.data),
			"index %s occurs more than once with the same state or more than twice", bad.NameString())
	}

	factor, indexless, err := b.mergePowers()
	if err != nil {
		return nil, err
	}
	return assembleProduct(factor, indexless, b.data), nil
}

// mergePowers groups equal indexless bases: x*x**a becomes x**(1+a).
func (b *ProductBuilder) mergePowers() (*Complex, []Tensor, error) {
	factor := b.factor
	type group struct {
		first Tensor
		base  Tensor
		exps  []Tensor
	}
	var groups []*group
next:
	for _, t := range b.indexless {
		base, exp := t, Tensor(N(1))
		if p, ok := t.(*Power); ok {
			base, exp = p.base, p.exp
		}
		for _, g := range groups {
			if g.base.Equals(base) || Compare(g.base, base) == VerdictEqual {
				g.exps = append(g.exps, exp)
				continue next
			}
		}
		groups = append(groups, &group{first: t, base: base, exps: []Tensor{exp}})
	}

	out := make([]Tensor, 0, len(groups))
	for _, g := range groups {
		if len(g.exps) == 1 {
			out = append(out, g.first)
			continue
		}
		sb := b.eng.NewSumBuilder()
		for _, e := range g.exps {
			if err := sb.Put(e); err != nil {
				return nil, nil, err
			}
		}
		exp, err := sb.Build()
		if err != nil {
			return nil, nil, err
		}
		r, err := powerOf(b.eng, g.base, exp)
		if err != nil {
			return nil, nil, err
		}
		switch v := r.(type) {
		case *Complex:
			factor = factor.Multiply(v)
		case *Product:
			factor = factor.Multiply(v.factor)
			out = append(out, v.indexless...)
		default:
			out = append(out, r)
		}
	}
	return factor, out, nil
}

// ============================================================
// Engine-level multiplication
// ============================================================

// Multiply returns the product of ts. Dummy indices of each factor are first
// renamed away from every name the other factors use.
func (e *Engine) Multiply(ts ...Tensor) (Tensor, error) {
	b := e.NewProductBuilder()
	for _, t := range e.resolveDummies(ts) {
		if err := b.Put(t); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func (e *Engine) resolveDummies(ts []Tensor) []Tensor {
	if len(ts) < 2 {
		return ts
	}
	free := make([]Indices, len(ts))
	for i, t := range ts {
		free[i] = t.FreeIndices().Names()
	}
	out := make([]Tensor, len(ts))
	var seen Indices
	for i, t := range ts {
		forbidden := slices.Clone(seen)
		for j := range ts {
			if j != i {
				forbidden = append(forbidden, free[j]...)
			}
		}
		out[i] = e.RenameDummy(t, forbidden)
		seen = append(seen, collectNames(out[i]).Slice()...)
	}
	return out
}
