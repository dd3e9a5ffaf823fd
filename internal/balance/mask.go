package balance

import "github.com/banshee-data/weaklabel/internal/tensor"

// OverlapsMask builds the validity mask for the overlaps tensor. The entry
// at (i,j,l,*,*,*) is true exactly when the three source indices are
// pairwise distinct. Repeated-index entries of the overlaps tensor are fixed
// by marginal identities rather than independent evidence, so the
// factorization objective must exclude them.
func OverlapsMask(m, kLF int) *tensor.Bool {
	mask := tensor.NewBool(m, m, m, kLF, kLF, kLF)
	block := kLF * kLF * kLF
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			for l := 0; l < m; l++ {
				if i == j || i == l || j == l {
					continue
				}
				off := mask.Offset(i, j, l, 0, 0, 0)
				for x := 0; x < block; x++ {
					mask.Data[off+x] = true
				}
			}
		}
	}
	return mask
}
