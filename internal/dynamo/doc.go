// Package dynamo provides core primitives shared by the coarse-grained
// model-construction pipeline.
//
// The package defines the small vocabulary every stage speaks:
//
//   - [Vec3]: a position or displacement in nm
//   - [Box]: an orthorhombic periodic box anchored at the origin
//   - sentinel errors ([ErrStructureMismatch], [ErrPackingInfeasible], ...)
//     and typed errors that carry the offending values
//
// # Pipeline
//
//	mol, _ := structure.ParseAtomistic(aa, cg, structure.DefaultParseOptions())
//	mol = contacts.Filter(mol, contacts.ResidueRange(23, 96))
//	packed, _, _ := packing.PackCached(packer, cache, req)
//	sys, _ := builder.CreateSystem(top, box, true)
//
// # Thread Safety
//
// Nothing in the pipeline is safe for concurrent mutation. Values are built by
// one goroutine and handed downstream.
package dynamo
