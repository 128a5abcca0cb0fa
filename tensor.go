package gotensor

import (
	"fmt"
	"slices"
	"strings"
)

// ============================================================
// Core Tensor Interface
// ============================================================

// Tensor is an immutable expression node. The set of implementations is
// closed: *Complex, *SimpleTensor, *TensorField, *Sum, *Product, *Power.
type Tensor interface {
	String() string
	// FreeIndices returns the sorted free indices.
	FreeIndices() Indices
	// Equals is exact structural equality, not equality up to relabeling;
	// see Compare for that.
	Equals(other Tensor) bool
	Size() int
	Get(i int) Tensor
	kind() Kind
	toJSON() map[string]interface{}
}

type Kind uint8

const (
	KindComplex Kind = iota
	KindSimple
	KindField
	KindSum
	KindProduct
	KindPower
)

var kindNames = [...]string{"complex", "tensor", "field", "sum", "product", "power"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// KindOf reports the variant of t.
func KindOf(t Tensor) Kind { return t.kind() }

// Children returns the direct children of t.
func Children(t Tensor) []Tensor {
	out := make([]Tensor, t.Size())
	for i := range out {
		out[i] = t.Get(i)
	}
	return out
}

// ============================================================
// SimpleTensor
// ============================================================

type SimpleTensor struct {
	symbol  *Symbol
	group   *symmetryGroup
	indices Indices
	free    Indices
}

func (t *SimpleTensor) Symbol() *Symbol      { return t.symbol }
func (t *SimpleTensor) Name() string         { return t.symbol.name }
func (t *SimpleTensor) Indices() Indices     { return slices.Clone(t.indices) }
func (t *SimpleTensor) FreeIndices() Indices { return t.free }
func (t *SimpleTensor) Size() int            { return 0 }
func (t *SimpleTensor) kind() Kind           { return KindSimple }
func (t *SimpleTensor) String() string       { return t.symbol.name + t.indices.String() }
func (t *SimpleTensor) Get(i int) Tensor     { panic(fmt.Sprintf("gotensor: %s has no child %d", t, i)) }

func (t *SimpleTensor) withIndices(is Indices) *SimpleTensor {
	return &SimpleTensor{symbol: t.symbol, group: t.group, indices: is, free: is.Free()}
}

func (t *SimpleTensor) Equals(other Tensor) bool {
	o, ok := other.(*SimpleTensor)
	return ok && o.symbol == t.symbol && o.indices.Equal(t.indices)
}

func (t *SimpleTensor) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "tensor", "name": t.symbol.name, "indices": t.indices.String()}
}

// ============================================================
// TensorField
// ============================================================

// TensorField is a symbol applied to arguments, such as F_{mn}[x]. The
// arguments are a closed scope: their indices do not contract with the
// outside and are never renamed by the mapper.
type TensorField struct {
	symbol     *Symbol
	head       *Symbol
	group      *symmetryGroup
	indices    Indices
	free       Indices
	args       []Tensor
	argIndices []Indices
}

func (f *TensorField) Symbol() *Symbol          { return f.symbol }
func (f *TensorField) Head() *Symbol            { return f.head }
func (f *TensorField) Name() string             { return f.symbol.name }
func (f *TensorField) Indices() Indices         { return slices.Clone(f.indices) }
func (f *TensorField) FreeIndices() Indices     { return f.free }
func (f *TensorField) Args() []Tensor           { return slices.Clone(f.args) }
func (f *TensorField) ArgIndices(i int) Indices { return f.argIndices[i] }
func (f *TensorField) Size() int                { return len(f.args) }
func (f *TensorField) Get(i int) Tensor         { return f.args[i] }
func (f *TensorField) kind() Kind               { return KindField }

func (f *TensorField) withIndices(is Indices) *TensorField {
	c := *f
	c.indices = is
	c.free = is.Free()
	return &c
}

func (f *TensorField) String() string {
	args := make([]string, len(f.args))
	for i, a := range f.args {
		args[i] = a.String()
	}
	return f.symbol.name + f.indices.String() + "[" + strings.Join(args, ", ") + "]"
}

func (f *TensorField) Equals(other Tensor) bool {
	o, ok := other.(*TensorField)
	if !ok || o.symbol != f.symbol || o.head != f.head || !o.indices.Equal(f.indices) || len(o.args) != len(f.args) {
		return false
	}
	for i := range f.args {
		if !f.args[i].Equals(o.args[i]) {
			return false
		}
	}
	return true
}

func (f *TensorField) toJSON() map[string]interface{} {
	args := make([]interface{}, len(f.args))
	for i, a := range f.args {
		args[i] = a.toJSON()
	}
	return map[string]interface{}{"type": "field", "name": f.symbol.name, "indices": f.indices.String(), "args": args}
}

// ============================================================
// Shared helpers
// ============================================================

// topIndices returns the index occurrences t contributes to an enclosing
// product: all indices of a simple tensor or field, the free indices of a
// sum, nothing for scalars.
func topIndices(t Tensor) Indices {
	switch v := t.(type) {
	case *SimpleTensor:
		return v.indices
	case *TensorField:
		return v.indices
	case *Sum:
		return v.free
	}
	return nil
}

// compareTensors is the canonical ordering of sibling nodes.
func compareTensors(a, b Tensor) int {
	if c := strings.Compare(a.String(), b.String()); c != 0 {
		return c
	}
	ha, hb := StructuralHash(a), StructuralHash(b)
	switch {
	case ha < hb:
		return -1
	case ha > hb:
		return 1
	}
	return 0
}

func sortTensors(ts []Tensor) { slices.SortStableFunc(ts, compareTensors) }

func isNumber(t Tensor) bool {
	_, ok := t.(*Complex)
	return ok
}

func isZero(t Tensor) bool {
	c, ok := t.(*Complex)
	return ok && c.IsZero()
}

// Negate returns -t, distributing over sums.
func Negate(t Tensor) Tensor {
	switch v := t.(type) {
	case *Complex:
		return v.Negate()
	case *Sum:
		terms := make([]Tensor, len(v.terms))
		for i, term := range v.terms {
			terms[i] = Negate(term)
		}
		return newSum(terms, v.free)
	case *Product:
		return assembleProduct(v.factor.Negate(), v.indexless, v.data)
	}
	return scale(N(-1), t)
}

func isNegativeTerm(t Tensor) bool {
	switch v := t.(type) {
	case *Complex:
		return v.isNegative()
	case *Product:
		return v.factor.isNegative()
	}
	return false
}
