package gotensor

import (
	"cmp"
	"slices"
)

// ============================================================
// Contraction content
// ============================================================

// refinementDepth is the number of neighbour-propagation rounds. It is not
// configurable: hashes computed with different depths do not compare.
const refinementDepth = 2

// Contraction points at the slot an index is contracted with. Factor is -1
// for a free index, in which case Position indexes the product's free list.
type Contraction struct {
	Factor   int
	Position int
}

func (c Contraction) IsFree() bool { return c.Factor < 0 }

type slot struct {
	index Index
	key   uint64
	peer  Contraction
}

// ContractionContent is the contraction graph of a product's data factors in
// canonical order. It is immutable once built.
type ContractionContent struct {
	// Data holds the factors in canonical order; every other array is
	// parallel to it.
	Data []Tensor
	// Contractions[k][j] is the peer of the j-th index of Data[k].
	Contractions [][]Contraction
	// Components[k] is the component of Data[k]; component 0 holds the free
	// indices when there are any.
	Components []int
	// NonScalar lists the positions carrying free indices.
	NonScalar []int
	// Scalars lists every fully contracted component.
	Scalars [][]int

	StructureHashes []uint64
	IndexHashes     []uint64

	freeNames Indices
	local     []uint64
	slots     [][]slot
}

type endpoint struct {
	index    Index
	factor   int
	position int
}

// BuildContent computes the contraction content of data, whose product has
// the free indices free.
func BuildContent(data []Tensor, free Indices) (*ContractionContent, error) {
	c := &ContractionContent{freeNames: free.Names()}
	if len(data) == 0 {
		if len(free) != 0 {
			return nil, newError("BuildContent", ErrContractionViolation, nil, "free indices %s without factors", free)
		}
		return c, nil
	}

	n := len(data)
	slots := make([][]slot, n)
	var uppers, lowers []endpoint
	for k, t := range data {
		is := topIndices(t)
		g := groupOf(t)
		slots[k] = make([]slot, len(is))
		for j, i := range is {
			orbit := -1
			if _, ok := t.(*Sum); !ok {
				orbit = orbitOf(g, j)
			}
			slots[k][j] = slot{index: i, key: slotKey(orbit, i)}
			ep := endpoint{index: i, factor: k, position: j}
			if i.IsUpper() {
				uppers = append(uppers, ep)
			} else {
				lowers = append(lowers, ep)
			}
		}
	}
	// Sentinel endpoints close every free index.
	for p, i := range free {
		ep := endpoint{index: i.Inverse(), factor: -1, position: p}
		if ep.index.IsUpper() {
			uppers = append(uppers, ep)
		} else {
			lowers = append(lowers, ep)
		}
	}

	byName := func(a, b endpoint) int { return cmp.Compare(a.index.Name(), b.index.Name()) }
	slices.SortStableFunc(uppers, byName)
	slices.SortStableFunc(lowers, byName)
	if len(uppers) != len(lowers) {
		return nil, newError("BuildContent", ErrContractionViolation, assembleProduct(N(1), nil, data),
			"%d upper and %d lower endpoints", len(uppers), len(lowers))
	}
	contracted := 0
	for q := range uppers {
		u, l := uppers[q], lowers[q]
		if u.index.Name() != l.index.Name() || (q > 0 && uppers[q-1].index.Name() == u.index.Name()) {
			return nil, newError("BuildContent", ErrContractionViolation, assembleProduct(N(1), nil, data),
				"index %s is not paired", u.index.NameString())
		}
		switch {
		case u.factor < 0 && l.factor < 0:
			return nil, newError("BuildContent", ErrContractionViolation, nil, "index %s is free twice", u.index.NameString())
		case u.factor < 0:
			slots[l.factor][l.position].peer = Contraction{Factor: -1, Position: u.position}
		case l.factor < 0:
			slots[u.factor][u.position].peer = Contraction{Factor: -1, Position: l.position}
		default:
			slots[u.factor][u.position].peer = Contraction{Factor: l.factor, Position: l.position}
			slots[l.factor][l.position].peer = Contraction{Factor: u.factor, Position: u.position}
			contracted++
		}
	}

	local := make([]uint64, n)
	for k, t := range data {
		local[k] = StructuralHash(t)
	}
	seeds := indexSeeds(data, local, c.freeNames)
	var structural, indexed []uint64
	if contracted == 0 {
		// Nothing propagates between factors.
		structural = refineFree(local, slots, nil)
		indexed = refineFree(seeds, slots, c.freeNames)
	} else {
		structural = refine(local, slots, nil)
		indexed = refine(seeds, slots, c.freeNames)
	}

	components := partition(slots, contracted)

	// Canonical order: hashes first, then component (ids by first appearance
	// in hash order), each stage stable over the incoming order.
	order := make([]int, n)
	for k := range order {
		order[k] = k
	}
	byHash := func(a, b int) int {
		if r := cmp.Compare(local[a], local[b]); r != 0 {
			return r
		}
		if r := cmp.Compare(structural[a], structural[b]); r != 0 {
			return r
		}
		return cmp.Compare(indexed[a], indexed[b])
	}
	if n > 1 {
		slices.SortStableFunc(order, byHash)
	}
	compID := relabelComponents(order, components)
	if n > 1 {
		slices.SortStableFunc(order, func(a, b int) int {
			if r := byHash(a, b); r != 0 {
				return r
			}
			return cmp.Compare(compID[a], compID[b])
		})
	}

	newPos := make([]int, n)
	for to, from := range order {
		newPos[from] = to
	}
	c.Data = make([]Tensor, n)
	c.Contractions = make([][]Contraction, n)
	c.Components = make([]int, n)
	c.StructureHashes = make([]uint64, n)
	c.IndexHashes = make([]uint64, n)
	c.local = make([]uint64, n)
	c.slots = make([][]slot, n)
	for to, from := range order {
		c.Data[to] = data[from]
		c.Components[to] = compID[from]
		c.StructureHashes[to] = structural[from]
		c.IndexHashes[to] = indexed[from]
		c.local[to] = local[from]
		ss := make([]slot, len(slots[from]))
		cs := make([]Contraction, len(slots[from]))
		for j, s := range slots[from] {
			if !s.peer.IsFree() {
				s.peer.Factor = newPos[s.peer.Factor]
			}
			ss[j] = s
			cs[j] = s.peer
		}
		c.slots[to] = ss
		c.Contractions[to] = cs
	}

	hasFree := len(free) > 0
	groups := map[int][]int{}
	maxComp := 0
	for k, id := range c.Components {
		groups[id] = append(groups[id], k)
		maxComp = max(maxComp, id)
	}
	for id := 0; id <= maxComp; id++ {
		members := groups[id]
		if len(members) == 0 {
			continue
		}
		if id == 0 && hasFree {
			c.NonScalar = members
			continue
		}
		c.Scalars = append(c.Scalars, members)
	}
	return c, nil
}

func groupOf(t Tensor) *symmetryGroup {
	switch v := t.(type) {
	case *SimpleTensor:
		return v.group
	case *TensorField:
		return v.group
	}
	return nil
}

func indexSeeds(data []Tensor, local []uint64, names Indices) []uint64 {
	seeds := slices.Clone(local)
	for k, t := range data {
		if _, ok := t.(*Sum); ok {
			seeds[k] = IndexSensitiveHash(t, names)
		}
	}
	return seeds
}

// refine propagates neighbour hashes along contractions. With names == nil
// free slots are mixed with a constant (structural pass); otherwise with the
// rank of their name in names, or 0 when absent.
func refine(seed []uint64, slots [][]slot, names Indices) []uint64 {
	cur := slices.Clone(seed)
	next := make([]uint64, len(cur))
	var edges []uint64
	for round := 0; round < refinementDepth; round++ {
		for k, ss := range slots {
			edges = edges[:0]
			for _, s := range ss {
				if s.peer.IsFree() {
					var extra uint64
					if names != nil {
						if r, ok := slices.BinarySearch(names, s.index.Name()); ok {
							extra = uint64(r + 1)
						}
					}
					edges = append(edges, combine(combine(s.key, saltFree), extra))
					continue
				}
				peer := slots[s.peer.Factor][s.peer.Position]
				edges = append(edges, combine(combine(s.key, peer.key), cur[s.peer.Factor]))
			}
			next[k] = foldSorted(cur[k], edges)
		}
		cur, next = next, cur
	}
	return cur
}

// refineFree is refine for a product without contractions. Every edge is a
// free slot, so the edges are computed once and folded refinementDepth times.
func refineFree(seed []uint64, slots [][]slot, names Indices) []uint64 {
	out := slices.Clone(seed)
	var edges []uint64
	for k, ss := range slots {
		edges = edges[:0]
		for _, s := range ss {
			var extra uint64
			if names != nil {
				if r, ok := slices.BinarySearch(names, s.index.Name()); ok {
					extra = uint64(r + 1)
				}
			}
			edges = append(edges, combine(combine(s.key, saltFree), extra))
		}
		for round := 0; round < refinementDepth; round++ {
			out[k] = foldSorted(out[k], edges)
		}
	}
	return out
}

// partition returns a component id per factor. Free-carrying factors share
// the sentinel's component, reported as -1.
func partition(slots [][]slot, contracted int) []int {
	n := len(slots)
	comp := make([]int, n)
	if contracted == 0 {
		for k, ss := range slots {
			comp[k] = k
			if len(ss) > 0 {
				comp[k] = -1
			}
		}
		return comp
	}
	sentinel := n
	parent := make([]int, n+1)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for k, ss := range slots {
		for _, s := range ss {
			if s.peer.IsFree() {
				union(k, sentinel)
			} else {
				union(k, s.peer.Factor)
			}
		}
	}
	root := find(sentinel)
	for k := range comp {
		if r := find(k); r == root {
			comp[k] = -1
		} else {
			comp[k] = r
		}
	}
	return comp
}

// relabelComponents maps raw component ids to 0 (sentinel) and 1.. in order
// of first appearance along order.
func relabelComponents(order []int, raw []int) []int {
	ids := map[int]int{-1: 0}
	next := 1
	out := make([]int, len(raw))
	for _, k := range order {
		id, ok := ids[raw[k]]
		if !ok {
			id = next
			ids[raw[k]] = id
			next++
		}
		out[k] = id
	}
	return out
}

// indexHashesFor returns index-sensitive factor hashes against names, reusing
// the cached array when names are the product's own free names.
func (c *ContractionContent) indexHashesFor(names Indices) []uint64 {
	if names.Equal(c.freeNames) {
		return slices.Clone(c.IndexHashes)
	}
	seeds := indexSeeds(c.Data, c.local, names)
	return refine(seeds, c.slots, names)
}
