// Package gotensor provides a deterministic symbolic tensor-algebra kernel for Go.
//
// Design goals:
//   - Exact Einstein-notation arithmetic over immutable, structurally shared trees
//   - Exact rational scalars (math/big.Rat) with an explicit floating "numeric" mode
//   - Canonical sums: terms equal up to dummy relabeling and symmetry sign are merged
//   - Dummy indices never collide across merged or multiplied subexpressions
//   - No ambient state: symbols, symmetries, logging and metrics live on an Engine
//
// A short tour:
//
//	eng, _ := gotensor.NewEngine(gotensor.DefaultConfig())
//	f1 := eng.MustTensor("f_m")
//	f2 := eng.MustTensor("f^m")
//	g1 := eng.MustTensor("f_n")
//	g2 := eng.MustTensor("f^n")
//	a, _ := eng.Multiply(f1, f2)
//	b, _ := eng.Multiply(gotensor.N(-1), g1, g2)
//	s, _ := eng.Sum(a, b) // 0
package gotensor
