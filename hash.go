package gotensor

import (
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ============================================================
// Hashing
// ============================================================

// Salts keep the hash spaces of different node kinds apart.
const (
	saltSum     uint64 = 0x8d2e5c41b7a3f019
	saltProduct uint64 = 0x3f84d5b5b5470917
	saltPower   uint64 = 0x51afd7ed558ccd27
	saltField   uint64 = 0xc4ceb9fe1a85ec53
	saltFree    uint64 = 0x2545f4914f6cdd1d
	saltSelf    uint64 = 0x9e3779b97f4a7c15
)

// mix64 is the murmur3 finalizer.
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

func combine(a, b uint64) uint64 {
	return mix64(a ^ (b + saltSelf + a<<6 + a>>2))
}

// foldSorted sorts hs in place and folds it into seed.
func foldSorted(seed uint64, hs []uint64) uint64 {
	slices.Sort(hs)
	h := seed
	for _, x := range hs {
		h = combine(h, x)
	}
	return h
}

func symbolSeed(name string, field bool, types []IndexType) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	if field {
		_, _ = d.Write([]byte{0, 1})
	} else {
		_, _ = d.Write([]byte{0, 0})
	}
	for _, t := range types {
		_, _ = d.Write([]byte{byte(t)})
	}
	return d.Sum64()
}

// slotKey identifies an index slot up to renaming: its symmetry orbit, type
// and state. Sum slots use orbit -1.
func slotKey(orbit int, i Index) uint64 {
	k := uint64(orbit+2)<<32 | uint64(i.Type())<<8
	if i.IsUpper() {
		k |= 1
	}
	return mix64(k)
}

func complexHash(c *Complex) uint64 {
	return xxhash.Sum64String(c.signNormalized().String())
}

// StructuralHash is invariant under dummy relabeling, reordering of
// commutative children and an overall sign.
func StructuralHash(t Tensor) uint64 {
	switch v := t.(type) {
	case *Complex:
		return complexHash(v)
	case *SimpleTensor:
		return indexedHash(v.symbol.seed, v.group, v.indices)
	case *TensorField:
		h := combine(saltField, indexedHash(v.symbol.seed, v.group, v.indices))
		for _, a := range v.args {
			h = combine(h, StructuralHash(a))
		}
		return h
	case *Sum:
		return v.structuralHash()
	case *Product:
		if single := v.unitSingle(); single != nil {
			return StructuralHash(single)
		}
		hs := make([]uint64, 0, len(v.indexless)+len(v.data))
		for _, t := range v.indexless {
			hs = append(hs, StructuralHash(t))
		}
		hs = append(hs, v.Content().StructureHashes...)
		return foldSorted(combine(saltProduct, complexHash(v.factor)), hs)
	case *Power:
		return combine(saltPower, combine(StructuralHash(v.base), StructuralHash(v.exp)))
	}
	return 0
}

// IndexSensitiveHash is StructuralHash additionally mixing, for every index
// of t whose name occurs in the sorted list names, its slot and its rank in
// names. Terms that bind an outer index differently hash apart.
func IndexSensitiveHash(t Tensor, names Indices) uint64 {
	if len(names) == 0 {
		return StructuralHash(t)
	}
	switch v := t.(type) {
	case *SimpleTensor:
		return combine(StructuralHash(v), freeSlotsHash(v.group, v.indices, names))
	case *TensorField:
		return combine(StructuralHash(v), freeSlotsHash(v.group, v.indices, names))
	case *Sum:
		var h uint64
		for _, term := range v.terms {
			h += IndexSensitiveHash(term, names)
		}
		return mix64(h ^ saltSum)
	case *Product:
		if single := v.unitSingle(); single != nil {
			return IndexSensitiveHash(single, names)
		}
		hs := make([]uint64, 0, len(v.indexless)+len(v.data))
		for _, t := range v.indexless {
			hs = append(hs, StructuralHash(t))
		}
		hs = append(hs, v.Content().indexHashesFor(names)...)
		return foldSorted(combine(saltProduct, complexHash(v.factor)), hs)
	}
	return StructuralHash(t)
}

// unitSingle returns the only factor of ±x, or nil.
func (p *Product) unitSingle() Tensor {
	if len(p.indexless)+len(p.data) != 1 || !(p.factor.IsOne() || p.factor.IsMinusOne()) {
		return nil
	}
	if len(p.data) == 1 {
		return p.data[0]
	}
	return p.indexless[0]
}

func orbitOf(g *symmetryGroup, pos int) int {
	if g == nil || pos >= len(g.orbits) {
		return pos
	}
	return g.orbits[pos]
}

// indexedHash hashes a symbol occurrence: its seed, the multiset of slot
// keys and the orbit pairs of self-contracted indices.
func indexedHash(seed uint64, g *symmetryGroup, is Indices) uint64 {
	keys := make([]uint64, 0, len(is))
	for j, i := range is {
		keys = append(keys, slotKey(orbitOf(g, j), i))
	}
	h := foldSorted(seed, keys)
	var self []uint64
	for j := range is {
		for k := j + 1; k < len(is); k++ {
			if is[j].Name() == is[k].Name() {
				a, b := slotKey(orbitOf(g, j), is[j]), slotKey(orbitOf(g, k), is[k])
				self = append(self, a+b)
			}
		}
	}
	if len(self) > 0 {
		h = foldSorted(combine(h, saltSelf), self)
	}
	return h
}

func freeSlotsHash(g *symmetryGroup, is Indices, names Indices) uint64 {
	var hs []uint64
	for j, i := range is {
		if r, ok := slices.BinarySearch(names, i.Name()); ok {
			hs = append(hs, combine(slotKey(orbitOf(g, j), i), uint64(r+1)))
		}
	}
	return foldSorted(saltFree, hs)
}
