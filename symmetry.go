package gotensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ============================================================
// Permutation symmetries
// ============================================================

// Permutation maps index positions: a tensor with a symmetry {π, s} obeys
// T_{i_0 ... i_n} = s * T_{i_π(0) ... i_π(n)}.
type Permutation []int

// Symmetry is a permutation together with its sign.
type Symmetry struct {
	Perm   Permutation
	Negate bool
}

func identityPermutation(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func (p Permutation) IsIdentity() bool {
	for i, v := range p {
		if i != v {
			return false
		}
	}
	return true
}

func (p Permutation) valid() bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// compose returns p∘q, i.e. r[k] = p[q[k]].
func (p Permutation) compose(q Permutation) Permutation {
	r := make(Permutation, len(q))
	for k, v := range q {
		r[k] = p[v]
	}
	return r
}

func (p Permutation) key() string {
	var sb strings.Builder
	for i, v := range p {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

func (p Permutation) String() string { return "[" + p.key() + "]" }

func (s Symmetry) String() string {
	if s.Negate {
		return "-" + s.Perm.String()
	}
	return "+" + s.Perm.String()
}

// symmetryGroup is the closed group generated by a symbol's symmetries.
// elements[0] is always the identity; orbits[k] is the smallest position
// reachable from k.
type symmetryGroup struct {
	generators []Symmetry
	elements   []Symmetry
	orbits     []int
}

func trivialGroup(n int) *symmetryGroup {
	g := &symmetryGroup{elements: []Symmetry{{Perm: identityPermutation(n)}}}
	g.orbits = identityPermutation(n)
	return g
}

// extend returns a new group with gen added. It fails if the closure
// exceeds maxOrder or maps a permutation to both signs.
func (g *symmetryGroup) extend(gen Symmetry, maxOrder int) (*symmetryGroup, error) {
	gens := append(slices.Clone(g.generators), gen)
	n := len(gen.Perm)

	id := Symmetry{Perm: identityPermutation(n)}
	elements := []Symmetry{id}
	index := map[string]int{id.Perm.key(): 0}
	for head := 0; head < len(elements); head++ {
		e := elements[head]
		for _, s := range gens {
			c := Symmetry{Perm: s.Perm.compose(e.Perm), Negate: s.Negate != e.Negate}
			k := c.Perm.key()
			if at, ok := index[k]; ok {
				if elements[at].Negate != c.Negate {
					return nil, fmt.Errorf("permutation %v occurs with both signs", c.Perm)
				}
				continue
			}
			if maxOrder > 0 && len(elements) >= maxOrder {
				return nil, fmt.Errorf("group order exceeds %d", maxOrder)
			}
			index[k] = len(elements)
			elements = append(elements, c)
		}
	}

	parent := identityPermutation(n)
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, s := range gens {
		for k, v := range s.Perm {
			a, b := find(k), find(v)
			if a == b {
				continue
			}
			if a < b {
				parent[b] = a
			} else {
				parent[a] = b
			}
		}
	}
	orbits := make([]int, n)
	for k := range orbits {
		orbits[k] = find(k)
	}
	return &symmetryGroup{generators: gens, elements: elements, orbits: orbits}, nil
}

func (g *symmetryGroup) order() int { return len(g.elements) }
