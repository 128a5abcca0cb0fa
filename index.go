package gotensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ============================================================
// IndexType
// ============================================================

// IndexType distinguishes independent index alphabets. Indices of different
// types never contract with each other.
type IndexType uint8

const (
	LatinLower IndexType = iota
	LatinUpper
	GreekLower
	GreekUpper
)

var indexTypeNames = [...]string{"latin_lower", "latin_upper", "greek_lower", "greek_upper"}

func (t IndexType) String() string {
	if int(t) < len(indexTypeNames) {
		return indexTypeNames[t]
	}
	return "type" + strconv.Itoa(int(t))
}

func ParseIndexType(s string) (IndexType, error) {
	for i, n := range indexTypeNames {
		if n == s {
			return IndexType(i), nil
		}
	}
	return 0, fmt.Errorf("gotensor: unknown index type %q", s)
}

func (t IndexType) alphabet() int {
	switch t {
	case GreekLower, GreekUpper:
		return len(greekNames)
	}
	return 26
}

var greekNames = []string{
	"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
	"iota", "kappa", "lambda", "mu", "nu", "xi", "omicron", "pi",
	"rho", "sigma", "tau", "upsilon", "phi", "chi", "psi", "omega",
}

// ============================================================
// Index — packed integer
// ============================================================

// Index packs one index occurrence into an integer: bits 0-15 hold the
// numeric id, bits 24-30 the IndexType and bit 31 the upper/lower state.
// The name of an index is the index with the state bit cleared.
type Index uint32

const (
	idMask     Index = 0x0000FFFF
	typeMask   Index = 0x7F000000
	typeShift        = 24
	stateBit   Index = 0x80000000
	nameMask   Index = 0x7FFFFFFF
	maxIndexID       = 0xFFFF
)

func NewIndex(typ IndexType, id int, upper bool) Index {
	i := (Index(typ) << typeShift & typeMask) | (Index(id) & idMask)
	if upper {
		i |= stateBit
	}
	return i
}

func Lower(typ IndexType, id int) Index { return NewIndex(typ, id, false) }
func Upper(typ IndexType, id int) Index { return NewIndex(typ, id, true) }

func (i Index) ID() int         { return int(i & idMask) }
func (i Index) Type() IndexType { return IndexType((i & typeMask) >> typeShift) }
func (i Index) IsUpper() bool   { return i&stateBit != 0 }
func (i Index) Name() Index     { return i & nameMask }
func (i Index) Inverse() Index  { return i ^ stateBit }

func (i Index) withName(n Index) Index { return n&nameMask | i&stateBit }

// NameString renders the name without state: a, B, \alpha, a1 (id 26), ...
func (i Index) NameString() string {
	id := i.ID()
	n := i.Type().alphabet()
	var base string
	switch i.Type() {
	case LatinLower:
		base = string(rune('a' + id%n))
	case LatinUpper:
		base = string(rune('A' + id%n))
	case GreekLower:
		base = `\` + greekNames[id%n]
	case GreekUpper:
		g := greekNames[id%n]
		base = `\` + strings.ToUpper(g[:1]) + g[1:]
	default:
		return fmt.Sprintf("?%d", id)
	}
	if id >= n {
		base += strconv.Itoa(id / n)
	}
	return base
}

func (i Index) String() string {
	if i.IsUpper() {
		return "^" + i.NameString()
	}
	return "_" + i.NameString()
}

// ParseIndex reads a single index such as "_a", "^b", "_{a1}" or `^\mu`.
func ParseIndex(s string) (Index, error) {
	if len(s) < 2 || (s[0] != '_' && s[0] != '^') {
		return 0, fmt.Errorf("gotensor: malformed index %q", s)
	}
	body := s[1:]
	if strings.HasPrefix(body, "{") && strings.HasSuffix(body, "}") {
		body = body[1 : len(body)-1]
	}
	name, err := parseIndexName(strings.TrimSpace(body))
	if err != nil {
		return 0, err
	}
	if s[0] == '^' {
		name |= stateBit
	}
	return name, nil
}

// Idx is ParseIndex for literals; it panics on malformed input.
func Idx(s string) Index {
	i, err := ParseIndex(s)
	if err != nil {
		panic(err)
	}
	return i
}

func parseIndexName(s string) (Index, error) {
	if s == "" {
		return 0, fmt.Errorf("gotensor: empty index name")
	}
	cut := len(s)
	for k := 0; k < len(s); k++ {
		if isDigit(s[k]) {
			cut = k
			break
		}
	}
	letters, digits := s[:cut], s[cut:]
	var typ IndexType
	var base int
	if strings.HasPrefix(letters, `\`) {
		g := letters[1:]
		lower := strings.ToLower(g)
		pos := slices.Index(greekNames, lower)
		if pos < 0 {
			return 0, fmt.Errorf("gotensor: unknown greek index %q", s)
		}
		typ, base = GreekLower, pos
		if g != lower {
			typ = GreekUpper
		}
	} else {
		if len(letters) != 1 {
			return 0, fmt.Errorf("gotensor: malformed index name %q", s)
		}
		c := letters[0]
		switch {
		case c >= 'a' && c <= 'z':
			typ, base = LatinLower, int(c-'a')
		case c >= 'A' && c <= 'Z':
			typ, base = LatinUpper, int(c-'A')
		default:
			return 0, fmt.Errorf("gotensor: malformed index name %q", s)
		}
	}
	id := base
	if digits != "" {
		k, err := strconv.Atoi(digits)
		if err != nil {
			return 0, fmt.Errorf("gotensor: malformed index name %q: %w", s, err)
		}
		id += k * typ.alphabet()
	}
	if id > maxIndexID {
		return 0, fmt.Errorf("gotensor: index id out of range in %q", s)
	}
	return NewIndex(typ, id, false), nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// nextIndexToken returns the next index name token of s and its length.
func nextIndexToken(s string) (string, int, error) {
	i := 0
	switch {
	case s[0] == '\\':
		i = 1
		for i < len(s) && isLetter(s[i]) {
			i++
		}
	case isLetter(s[0]):
		i = 1
	default:
		return "", 0, fmt.Errorf("gotensor: unexpected %q in indices", s[0])
	}
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], i, nil
}

// ParseIndices reads index groups like "_{mn}^{a}", "_m^n" or `_{\alpha \beta}`.
func ParseIndices(s string) (Indices, error) {
	var out Indices
	for pos := 0; pos < len(s); {
		c := s[pos]
		if c == ' ' {
			pos++
			continue
		}
		if c != '_' && c != '^' {
			return nil, fmt.Errorf("gotensor: malformed indices %q", s)
		}
		var state Index
		if c == '^' {
			state = stateBit
		}
		pos++
		if pos >= len(s) {
			return nil, fmt.Errorf("gotensor: dangling %q in %q", c, s)
		}
		if s[pos] == '{' {
			end := strings.IndexByte(s[pos:], '}')
			if end < 0 {
				return nil, fmt.Errorf("gotensor: unterminated group in %q", s)
			}
			body := s[pos+1 : pos+end]
			for k := 0; k < len(body); {
				if body[k] == ' ' {
					k++
					continue
				}
				tok, n, err := nextIndexToken(body[k:])
				if err != nil {
					return nil, err
				}
				name, err := parseIndexName(tok)
				if err != nil {
					return nil, err
				}
				out = append(out, name|state)
				k += n
			}
			pos += end + 1
			continue
		}
		tok, n, err := nextIndexToken(s[pos:])
		if err != nil {
			return nil, err
		}
		name, err := parseIndexName(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, name|state)
		pos += n
	}
	return out, nil
}

// ============================================================
// Indices
// ============================================================

// Indices is an ordered list of index occurrences.
type Indices []Index

func (is Indices) Sorted() Indices {
	out := slices.Clone(is)
	slices.Sort(out)
	return out
}

// Names returns the sorted, de-duplicated names.
func (is Indices) Names() Indices {
	out := make(Indices, len(is))
	for k, i := range is {
		out[k] = i.Name()
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (is Indices) Equal(o Indices) bool { return slices.Equal(is, o) }

// Free returns the sorted free indices, ignoring malformed occurrences.
func (is Indices) Free() Indices {
	free, _, _, _ := splitIndices(is)
	return free
}

func (is Indices) String() string {
	var sb strings.Builder
	spaced := false
	for _, i := range is {
		if len(i.NameString()) > 1 {
			spaced = true
			break
		}
	}
	for i := 0; i < len(is); {
		j := i
		for j < len(is) && is[j].IsUpper() == is[i].IsUpper() {
			j++
		}
		if is[i].IsUpper() {
			sb.WriteString("^{")
		} else {
			sb.WriteString("_{")
		}
		for k := i; k < j; k++ {
			if spaced && k > i {
				sb.WriteByte(' ')
			}
			sb.WriteString(is[k].NameString())
		}
		sb.WriteByte('}')
		i = j
	}
	return sb.String()
}

// splitIndices partitions occurrences into sorted free indices and sorted
// dummy names. ok is false when a name occurs more than twice or twice with
// the same state; bad is then the offending index.
func splitIndices(is Indices) (free, dummies Indices, bad Index, ok bool) {
	sorted := slices.Clone(is)
	slices.SortFunc(sorted, func(a, b Index) int {
		if a.Name() != b.Name() {
			if a.Name() < b.Name() {
				return -1
			}
			return 1
		}
		switch {
		case a.IsUpper() == b.IsUpper():
			return 0
		case b.IsUpper():
			return -1
		}
		return 1
	})
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Name() == sorted[i].Name() {
			j++
		}
		switch j - i {
		case 1:
			free = append(free, sorted[i])
		case 2:
			if sorted[i].IsUpper() == sorted[i+1].IsUpper() {
				return nil, nil, sorted[i], false
			}
			dummies = append(dummies, sorted[i].Name())
		default:
			return nil, nil, sorted[i], false
		}
		i = j
	}
	slices.Sort(free)
	return free, dummies, 0, true
}
