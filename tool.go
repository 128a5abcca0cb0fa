package gotensor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================
// Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HandleToolCall dispatches one tool request against e. Errors are reported
// in the response, never returned.
func (e *Engine) HandleToolCall(ctx context.Context, req ToolRequest) (resp ToolResponse) {
	_, span := e.tracer.Start(ctx, "gotensor.tool", trace.WithAttributes(attribute.String("gotensor.tool", req.Tool)))
	defer func() {
		if resp.Error != "" {
			span.SetStatus(codes.Error, resp.Error)
		}
		span.End()
	}()
	resp = e.handleToolCall(req)
	if resp.Error != "" {
		e.log().Info("tool call failed", "tool", req.Tool, "err", resp.Error)
	}
	return resp
}

func (e *Engine) handleToolCall(req ToolRequest) ToolResponse {
	getTensor := func(key string) (Tensor, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		val, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid type for param %s", key)
		}
		return e.FromJSON(val)
	}
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	optString := func(key string) (string, error) {
		if _, ok := req.Params[key]; !ok {
			return "", nil
		}
		return getString(key)
	}
	getStrings := func(key string) ([]string, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be array", key)
		}
		result := make([]string, len(raw))
		for i, r := range raw {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("param %s[%d] must be string", key, i)
			}
			result[i] = s
		}
		return result, nil
	}
	getTensorList := func(key string) ([]Tensor, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be array", key)
		}
		result := make([]Tensor, len(raw))
		for i, r := range raw {
			m, ok := r.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("param %s[%d] must be tensor object", key, i)
			}
			t, err := e.FromJSON(m)
			if err != nil {
				return nil, err
			}
			result[i] = t
		}
		return result, nil
	}
	getIndices := func(key string) (Indices, error) {
		s, err := optString(key)
		if err != nil {
			return nil, err
		}
		return ParseIndices(s)
	}
	respond := func(t Tensor, err error) ToolResponse {
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{Result: t.toJSON(), String: t.String()}
	}
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	switch req.Tool {
	case "declare":
		name, err := getString("name")
		if err != nil {
			return fail(err)
		}
		names, err := getStrings("types")
		if err != nil {
			return fail(err)
		}
		types := make([]IndexType, len(names))
		for i, n := range names {
			if types[i], err = ParseIndexType(n); err != nil {
				return fail(err)
			}
		}
		sym := e.Declare(name, types...)
		symmetry, err := optString("symmetry")
		if err != nil {
			return fail(err)
		}
		switch symmetry {
		case "":
		case "symmetric":
			err = sym.Symmetric()
		case "antisymmetric":
			err = sym.Antisymmetric()
		default:
			err = fmt.Errorf("unknown symmetry %q", symmetry)
		}
		if err != nil {
			return fail(err)
		}
		return ToolResponse{
			Result: map[string]interface{}{"name": sym.Name(), "id": sym.ID(), "orbits": sym.Orbits()},
			String: sym.String(),
		}

	case "parse_tensor":
		s, err := getString("tensor")
		if err != nil {
			return fail(err)
		}
		return respond(e.ParseTensor(s))

	case "sum":
		terms, err := getTensorList("terms")
		if err != nil {
			return fail(err)
		}
		return respond(e.Sum(terms...))

	case "multiply":
		factors, err := getTensorList("factors")
		if err != nil {
			return fail(err)
		}
		return respond(e.Multiply(factors...))

	case "pow":
		base, err := getTensor("base")
		if err != nil {
			return fail(err)
		}
		exp, err := getTensor("exp")
		if err != nil {
			return fail(err)
		}
		return respond(e.Pow(base, exp))

	case "compare":
		a, err := getTensor("a")
		if err != nil {
			return fail(err)
		}
		b, err := getTensor("b")
		if err != nil {
			return fail(err)
		}
		v := e.Compare(a, b)
		return ToolResponse{Result: v.String(), String: v.String()}

	case "rename_dummy":
		t, err := getTensor("expr")
		if err != nil {
			return fail(err)
		}
		forbidden, err := getIndices("forbidden")
		if err != nil {
			return fail(err)
		}
		return respond(e.RenameDummy(t, forbidden), nil)

	case "apply_mapping":
		t, err := getTensor("expr")
		if err != nil {
			return fail(err)
		}
		ms, err := getString("mapping")
		if err != nil {
			return fail(err)
		}
		m, err := ParseMapping(ms)
		if err != nil {
			return fail(err)
		}
		forbidden, err := getIndices("forbidden")
		if err != nil {
			return fail(err)
		}
		return respond(e.ApplyIndexMapping(t, m, forbidden))

	case "partition":
		t, err := getTensor("expr")
		if err != nil {
			return fail(err)
		}
		p, ok := t.(*Product)
		if !ok {
			return ToolResponse{
				Result: map[string]interface{}{"nonscalar": t.toJSON(), "scalars": []interface{}{}},
				String: t.String(),
			}
		}
		ns := p.NonScalar()
		scalars := p.Scalars()
		return ToolResponse{
			Result: map[string]interface{}{
				"nonscalar": ns.toJSON(),
				"scalars":   lo.Map(scalars, func(s Tensor, _ int) interface{} { return s.toJSON() }),
			},
			String: ns.String() + " | " + fmt.Sprint(lo.Map(scalars, func(s Tensor, _ int) string { return s.String() })),
		}

	case "hash":
		t, err := getTensor("expr")
		if err != nil {
			return fail(err)
		}
		names, err := getIndices("names")
		if err != nil {
			return fail(err)
		}
		if len(names) == 0 {
			names = t.FreeIndices()
		}
		sh := strconv.FormatUint(StructuralHash(t), 16)
		ih := strconv.FormatUint(IndexSensitiveHash(t, names.Names()), 16)
		return ToolResponse{
			Result: map[string]interface{}{"structural": sh, "index_sensitive": ih},
			String: sh + " " + ih,
		}

	case "numeric":
		t, err := getTensor("expr")
		if err != nil {
			return fail(err)
		}
		return respond(e.ToNumeric(t), nil)

	case "tool_spec":
		return ToolResponse{Result: json.RawMessage(ToolSpec()), String: ToolSpec()}
	}
	return ToolResponse{Error: "unknown tool: " + req.Tool}
}

type toolDef struct {
	name        string
	description string
	required    []string
	props       map[string]string
}

var toolDefs = []toolDef{
	{"declare", "Declare a symbol. types: index type names; optional symmetry: symmetric|antisymmetric", []string{"name", "types"}, map[string]string{"name": "string", "types": "array", "symmetry": "string"}},
	{"parse_tensor", "Build a simple tensor from text such as T_{mn}^{a}", []string{"tensor"}, map[string]string{"tensor": "string"}},
	{"sum", "Add tensors, collecting terms equal up to dummy relabeling and sign", []string{"terms"}, map[string]string{"terms": "array"}},
	{"multiply", "Multiply tensors, renaming clashing dummies", []string{"factors"}, map[string]string{"factors": "array"}},
	{"pow", "Raise a scalar to a scalar power", []string{"base", "exp"}, map[string]string{"base": "object", "exp": "object"}},
	{"compare", "Compare two tensors: equal, negated or incomparable", []string{"a", "b"}, map[string]string{"a": "object", "b": "object"}},
	{"rename_dummy", "Rename dummies clashing with forbidden (index string such as _{ab})", []string{"expr"}, map[string]string{"expr": "object", "forbidden": "string"}},
	{"apply_mapping", "Rename free indices, e.g. mapping \"_a->_b, ^c->^d\"", []string{"expr", "mapping"}, map[string]string{"expr": "object", "mapping": "string", "forbidden": "string"}},
	{"partition", "Split a product into its free-carrying part and scalar components", []string{"expr"}, map[string]string{"expr": "object"}},
	{"hash", "Structural and index-sensitive hashes in hex", []string{"expr"}, map[string]string{"expr": "object", "names": "string"}},
	{"numeric", "Convert every number to floating point", []string{"expr"}, map[string]string{"expr": "object"}},
	{"tool_spec", "Return this tool schema", []string{}, map[string]string{}},
}

// ToolSpec returns the JSON schema of every tool HandleToolCall accepts.
func ToolSpec() string {
	tools := lo.Map(toolDefs, func(d toolDef, _ int) map[string]interface{} {
		return ts(d.name, d.description, d.required, d.props)
	})
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
