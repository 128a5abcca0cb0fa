package gotensor

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

func ToJSON(t Tensor) (string, error) {
	b, err := json.Marshal(t.toJSON())
	return string(b), err
}

// JSONValue returns the decoded JSON form of t for embedding in larger
// documents.
func JSONValue(t Tensor) map[string]interface{} { return t.toJSON() }

// FromJSON rebuilds a tensor from its JSON form. Symbols are declared in e
// on first use; products, sums and powers go through their builders, so the
// result is canonical even for hand-written input.
func (e *Engine) FromJSON(data map[string]interface{}) (Tensor, error) {
	if data == nil {
		return nil, fmt.Errorf("tensor must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (map[string]interface{}, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		return m, nil
	}

	subTensors := func(field string) ([]Tensor, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]Tensor, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			t, err := e.FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %s[%d]: %w", typ, field, i, err)
			}
			out[i] = t
		}
		return out, nil
	}

	subString := func(field string, required bool) (string, error) {
		v, ok := data[field]
		if !ok {
			if !required {
				return "", nil
			}
			return "", fmt.Errorf("%s: missing %q", typ, field)
		}
		s, ok := v.(string)
		if !ok || (required && s == "") {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	subRat := func(field string) (*big.Rat, error) {
		s, err := subString(field, false)
		if err != nil || s == "" {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, fmt.Errorf("%s: invalid %s %q", typ, field, s)
		}
		return r, nil
	}

	switch typ {
	case "num":
		re, err := subRat("value")
		if err != nil {
			return nil, err
		}
		if re == nil {
			return nil, fmt.Errorf("num: missing 'value'")
		}
		im, err := subRat("imag")
		if err != nil {
			return nil, err
		}
		return NewComplex(re, im), nil

	case "float":
		if v, ok := data["value"]; ok {
			switch v {
			case "NaN":
				return NaN(), nil
			case "ComplexInfinity":
				return ComplexInfinity(), nil
			}
			return nil, fmt.Errorf("float: unknown value %v", v)
		}
		re, _ := data["re"].(float64)
		im, _ := data["im"].(float64)
		if math.IsNaN(re) || math.IsNaN(im) {
			return NaN(), nil
		}
		return Float(re, im), nil

	case "tensor":
		name, err := subString("name", true)
		if err != nil {
			return nil, err
		}
		raw, err := subString("indices", false)
		if err != nil {
			return nil, err
		}
		is, err := ParseIndices(raw)
		if err != nil {
			return nil, fmt.Errorf("tensor: %w", err)
		}
		return e.Tensor(name, is...)

	case "field":
		name, err := subString("name", true)
		if err != nil {
			return nil, err
		}
		raw, err := subString("indices", false)
		if err != nil {
			return nil, err
		}
		is, err := ParseIndices(raw)
		if err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
		args, err := subTensors("args")
		if err != nil {
			return nil, err
		}
		return e.Field(name, is, args...)

	case "sum":
		terms, err := subTensors("terms")
		if err != nil {
			return nil, err
		}
		return e.Sum(terms...)

	case "product":
		factors, err := subTensors("factors")
		if err != nil {
			return nil, err
		}
		b := e.NewProductBuilder()
		for _, f := range factors {
			if err := b.Put(f); err != nil {
				return nil, err
			}
		}
		return b.Build()

	case "power":
		baseM, err := subObj("base")
		if err != nil {
			return nil, err
		}
		expM, err := subObj("exp")
		if err != nil {
			return nil, err
		}
		base, err := e.FromJSON(baseM)
		if err != nil {
			return nil, fmt.Errorf("power: base: %w", err)
		}
		exp, err := e.FromJSON(expM)
		if err != nil {
			return nil, fmt.Errorf("power: exp: %w", err)
		}
		return e.Pow(base, exp)
	}
	return nil, fmt.Errorf("unknown tensor type: %s", typ)
}
