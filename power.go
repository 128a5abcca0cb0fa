package gotensor

import "strings"

// ============================================================
// Power
// ============================================================

// Power is base**exp. Both operands are scalars; tensors with free indices
// cannot be raised to a power.
type Power struct {
	base Tensor
	exp  Tensor
}

func (p *Power) Base() Tensor         { return p.base }
func (p *Power) Exponent() Tensor     { return p.exp }
func (p *Power) FreeIndices() Indices { return nil }
func (p *Power) Size() int            { return 2 }
func (p *Power) kind() Kind           { return KindPower }

func (p *Power) Get(i int) Tensor {
	if i == 0 {
		return p.base
	}
	return p.exp
}

func (p *Power) String() string {
	return operandString(p.base) + "**" + operandString(p.exp)
}

func operandString(t Tensor) string {
	s := t.String()
	switch v := t.(type) {
	case *Sum, *Product, *Power:
		return "(" + s + ")"
	case *Complex:
		if v.isNegative() || strings.ContainsAny(s, "/*") {
			return "(" + s + ")"
		}
	}
	return s
}

func (p *Power) Equals(other Tensor) bool {
	o, ok := other.(*Power)
	return ok && p.base.Equals(o.base) && p.exp.Equals(o.exp)
}

func (p *Power) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "power", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}

// powerOf returns base**exp in canonical form.
func powerOf(eng *Engine, base, exp Tensor) (Tensor, error) {
	if len(base.FreeIndices()) > 0 || len(exp.FreeIndices()) > 0 {
		return nil, newError("Pow", ErrStructuralInconsistency, &Power{base: base, exp: exp},
			"operands must not carry free indices")
	}
	e, expNumber := exp.(*Complex)
	if expNumber {
		switch {
		case e.IsNaN():
			return e, nil
		case e.IsZero():
			if isZero(base) {
				return NaN(), nil
			}
			return N(1), nil
		case e.IsOne():
			return base, nil
		}
	}

	switch b := base.(type) {
	case *Complex:
		if !expNumber {
			break
		}
		if b.IsNaN() {
			return b, nil
		}
		if e.IsInteger() && e.Real().Num().IsInt64() {
			if r, ok := b.PowInt(e.Real().Num().Int64()); ok {
				return r, nil
			}
		}
		if b.IsNumeric() || e.IsNumeric() {
			return b.PowComplex(e), nil
		}
	case *Power:
		// (x**a)**n == x**(a*n) for integer n.
		if expNumber && e.IsInteger() {
			pb := eng.NewProductBuilder()
			if err := pb.Put(b.exp); err != nil {
				return nil, err
			}
			if err := pb.Put(e); err != nil {
				return nil, err
			}
			ne, err := pb.Build()
			if err != nil {
				return nil, err
			}
			return powerOf(eng, b.base, ne)
		}
	}
	return &Power{base: base, exp: exp}, nil
}

// PowerBuilder takes exactly two operands: the base, then the exponent.
type PowerBuilder struct {
	eng      *Engine
	operands []Tensor
	built    bool
}

func (e *Engine) NewPowerBuilder() *PowerBuilder {
	return &PowerBuilder{eng: e}
}

func (b *PowerBuilder) Put(t Tensor) error {
	if b.built {
		return newError("PowerBuilder.Put", ErrBuilderProtocol, t, "builder already built")
	}
	if len(b.operands) == 2 {
		return newError("PowerBuilder.Put", ErrBuilderProtocol, t, "power takes two operands")
	}
	b.operands = append(b.operands, t)
	return nil
}

func (b *PowerBuilder) Clone() *PowerBuilder {
	return &PowerBuilder{eng: b.eng, operands: append([]Tensor(nil), b.operands...), built: b.built}
}

func (b *PowerBuilder) Build() (Tensor, error) {
	if b.built {
		return nil, newError("PowerBuilder.Build", ErrBuilderProtocol, nil, "builder already built")
	}
	if len(b.operands) != 2 {
		return nil, newError("PowerBuilder.Build", ErrBuilderProtocol, nil, "power needs two operands, got %d", len(b.operands))
	}
	b.built = true
	return powerOf(b.eng, b.operands[0], b.operands[1])
}

// Pow returns base**exp.
func (e *Engine) Pow(base, exp Tensor) (Tensor, error) {
	b := e.NewPowerBuilder()
	if err := b.Put(base); err != nil {
		return nil, err
	}
	if err := b.Put(exp); err != nil {
		return nil, err
	}
	return b.Build()
}
