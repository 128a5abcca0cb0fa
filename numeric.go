package gotensor

// ToNumeric replaces every number in t by its floating-point value and
// re-canonicalizes the result, so numeric factors fold together. Field
// arguments are converted too.
func (e *Engine) ToNumeric(t Tensor) Tensor {
	out, err := e.toNumeric(t)
	if err != nil {
		// Conversion keeps every index structure that was already valid.
		e.log().Error("numeric conversion failed", "tensor", t.String(), "err", err)
		return t
	}
	return out
}

func (e *Engine) toNumeric(t Tensor) (Tensor, error) {
	switch v := t.(type) {
	case *Complex:
		return v.ToNumeric(), nil
	case *SimpleTensor:
		return v, nil
	case *TensorField:
		args := make([]Tensor, len(v.args))
		changed := false
		for i, a := range v.args {
			na, err := e.toNumeric(a)
			if err != nil {
				return nil, err
			}
			args[i] = na
			changed = changed || !na.Equals(a)
		}
		if !changed {
			return v, nil
		}
		c := *v
		c.args = args
		return &c, nil
	case *Product:
		b := e.NewProductBuilder()
		if err := b.Put(v.factor.ToNumeric()); err != nil {
			return nil, err
		}
		for _, c := range append(append([]Tensor(nil), v.indexless...), v.data...) {
			nc, err := e.toNumeric(c)
			if err != nil {
				return nil, err
			}
			if err := b.Put(nc); err != nil {
				return nil, err
			}
		}
		return b.Build()
	case *Sum:
		b := e.NewSumBuilder()
		b.total = Float(0, 0)
		for _, c := range v.terms {
			nc, err := e.toNumeric(c)
			if err != nil {
				return nil, err
			}
			if err := b.Put(nc); err != nil {
				return nil, err
			}
		}
		return b.Build()
	case *Power:
		base, err := e.toNumeric(v.base)
		if err != nil {
			return nil, err
		}
		exp, err := e.toNumeric(v.exp)
		if err != nil {
			return nil, err
		}
		return powerOf(e, base, exp)
	}
	return t, nil
}
