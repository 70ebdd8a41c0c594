package mesh

import "github.com/ayusman/drape/internal/garment"

// Indices returns the triangle list for a row-major grid: two triangles per
// cell, all with the same winding. Grids without at least one cell yield nil.
//
//	a ---- a+1
//	|    /  |
//	|  /    |
//	a+c -- a+c+1
func Indices(g garment.Grid) []uint32 {
	if g.Cols < 2 || g.Rows < 2 {
		return nil
	}

	cols := uint32(g.Cols)
	out := make([]uint32, 0, (g.Cols-1)*(g.Rows-1)*6)
	for j := 0; j < g.Rows-1; j++ {
		for i := 0; i < g.Cols-1; i++ {
			a := uint32(j)*cols + uint32(i)
			out = append(out,
				a, a+cols, a+1,
				a+1, a+cols, a+cols+1,
			)
		}
	}
	return out
}
