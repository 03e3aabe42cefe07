// Package meshio reads and writes triangle meshes.
//
// STL and OFF are read and written natively. OBJ and PLY files are read
// with fauxgl.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fogleman/fauxgl"
	"github.com/soypat/remesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnsupportedFormat is returned by Load and Save for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// Load reads the mesh at path. The format is chosen by file extension:
// .stl, .off, .obj or .ply. Triangle soups are welded into a mesh.
func Load(path string) (*mesh.Mesh, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".off":
		fp, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer fp.Close()
		return ReadOFF(fp)
	case ".stl":
		fp, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer fp.Close()
		tris, err := ReadSTL(fp)
		if err != nil && !errors.Is(err, ErrNormalMismatch) {
			return nil, err
		}
		return mesh.FromTriangles(tris, 0)
	case ".obj", ".ply":
		var fm *fauxgl.Mesh
		var err error
		if ext == ".obj" {
			fm, err = fauxgl.LoadOBJ(path)
		} else {
			fm, err = fauxgl.LoadPLY(path)
		}
		if err != nil {
			return nil, err
		}
		return mesh.FromTriangles(fromFauxgl(fm), 0)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Save writes m to path in the format given by the file extension:
// .stl or .off.
func Save(path string, m *mesh.Mesh) error {
	var write func(io.Writer, *mesh.Mesh) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".off":
		write = WriteOFF
	case ".stl":
		write = func(w io.Writer, m *mesh.Mesh) error { return WriteSTL(w, Triangles(m)) }
	default:
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fp, m); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// Triangles returns the geometry of the live faces of m in face order.
func Triangles(m *mesh.Mesh) []r3.Triangle {
	faces := m.Faces()
	tris := make([]r3.Triangle, len(faces))
	for i, f := range faces {
		tris[i] = m.Triangle(f)
	}
	return tris
}

func fromFauxgl(fm *fauxgl.Mesh) []r3.Triangle {
	vec := func(v fauxgl.Vector) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
	tris := make([]r3.Triangle, 0, len(fm.Triangles))
	for _, t := range fm.Triangles {
		tris = append(tris, r3.Triangle{vec(t.V1.Position), vec(t.V2.Position), vec(t.V3.Position)})
	}
	return tris
}

// ReadOFF reads a mesh in Object File Format. Polygons with more than three
// vertices are triangulated as fans.
func ReadOFF(r io.Reader) (*mesh.Mesh, error) {
	sc := bufio.NewScanner(r)
	line := 0
	// next returns the fields of the next line that is not empty or a comment.
	next := func() ([]string, error) {
		for sc.Scan() {
			line++
			text := sc.Text()
			if i := strings.IndexByte(text, '#'); i >= 0 {
				text = text[:i]
			}
			if fields := strings.Fields(text); len(fields) > 0 {
				return fields, nil
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}
	fields, err := next()
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fields[0], "OFF") {
		return nil, fmt.Errorf("line %d: missing OFF header", line)
	}
	fields = fields[1:]
	if len(fields) == 0 {
		if fields, err = next(); err != nil {
			return nil, err
		}
	}
	counts, err := atoiAll(fields)
	if err != nil || len(counts) < 2 {
		return nil, fmt.Errorf("line %d: bad element counts", line)
	}
	nv, nf := counts[0], counts[1]
	points := make([]r3.Vec, nv)
	for i := range points {
		if fields, err = next(); err != nil {
			return nil, err
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
		}
		var c [3]float64
		for j := range c {
			if c[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		points[i] = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
	}
	faces := make([][3]int, 0, nf)
	for i := 0; i < nf; i++ {
		if fields, err = next(); err != nil {
			return nil, err
		}
		idx, err := atoiAll(fields)
		if err != nil || len(idx) == 0 || len(idx) < idx[0]+1 || idx[0] < 3 {
			return nil, fmt.Errorf("line %d: malformed face", line)
		}
		poly := idx[1 : idx[0]+1]
		for j := 1; j+1 < len(poly); j++ {
			faces = append(faces, [3]int{poly[0], poly[j], poly[j+1]})
		}
	}
	return mesh.New(points, faces)
}

// WriteOFF writes the live elements of m in Object File Format.
// Vertices are renumbered densely.
func WriteOFF(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	verts := m.Vertices()
	index := make(map[mesh.Vertex]int, len(verts))
	fmt.Fprintf(bw, "OFF\n%d %d %d\n", len(verts), m.NumFaces(), m.NumEdges())
	for i, v := range verts {
		index[v] = i
		p := m.Point(v)
		fmt.Fprintf(bw, "%s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	for _, f := range m.Faces() {
		vs := m.FaceVertices(f)
		fmt.Fprintf(bw, "3 %d %d %d\n", index[vs[0]], index[vs[1]], index[vs[2]])
	}
	return bw.Flush()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func atoiAll(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, s := range fields {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
