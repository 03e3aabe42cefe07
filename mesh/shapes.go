package mesh

import "gonum.org/v1/gonum/spatial/r3"

// Grid returns a flat square of side size in the XY plane centered at the
// origin, divided into n×n quads of two triangles each. Normals point to +Z.
func Grid(n int, size float64) *Mesh {
	if n < 1 {
		panic("grid needs at least one division")
	}
	step := size / float64(n)
	points := make([]r3.Vec, 0, (n+1)*(n+1))
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			points = append(points, r3.Vec{X: float64(i)*step - size/2, Y: float64(j)*step - size/2})
		}
	}
	idx := func(i, j int) int { return j*(n+1) + i }
	faces := make([][3]int, 0, 2*n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v00, v10, v11, v01 := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			faces = append(faces, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
		}
	}
	m, err := New(points, faces)
	if err != nil {
		panic("bug: " + err.Error())
	}
	return m
}

// Octahedron returns a closed octahedron with vertices at distance r from the origin.
func Octahedron(r float64) *Mesh {
	points := []r3.Vec{
		{X: r}, {Y: r}, {Z: r}, {X: -r}, {Y: -r}, {Z: -r},
	}
	const px, py, pz, nx, ny, nz = 0, 1, 2, 3, 4, 5
	faces := [][3]int{
		{px, py, pz}, {py, nx, pz}, {nx, ny, pz}, {ny, px, pz},
		{py, px, nz}, {nx, py, nz}, {ny, nx, nz}, {px, ny, nz},
	}
	m, err := New(points, faces)
	if err != nil {
		panic("bug: " + err.Error())
	}
	return m
}
