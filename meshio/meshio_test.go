package meshio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/remesh/mesh"
)

func TestSTLWeldsToClosedMesh(t *testing.T) {
	var buf bytes.Buffer
	oct := mesh.Octahedron(2)
	if err := WriteSTL(&buf, Triangles(oct)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 84+50*8 {
		t.Fatalf("unexpected binary size %d", buf.Len())
	}
	tris, err := ReadSTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	m, err := mesh.FromTriangles(tris, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumVertices() != 6 || m.NumFaces() != 8 || m.NumEdges() != 12 {
		t.Fatalf("got V=%d F=%d E=%d", m.NumVertices(), m.NumFaces(), m.NumEdges())
	}
}

func TestReadASCIISTL(t *testing.T) {
	const src = `solid square
facet normal 0 0 1
 outer loop
  vertex 0 0 0
  vertex 1 0 0
  vertex 1 1 0
 endloop
endfacet
facet normal 0 0 1
 outer loop
  vertex 0 0 0
  vertex 1 1 0
  vertex 0 1 0
 endloop
endfacet
endsolid square
`
	tris, err := ReadSTL(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != 2 || tris[1][2].Y != 1 {
		t.Fatalf("unexpected triangles %v", tris)
	}
}

func TestReadSTLNormalMismatch(t *testing.T) {
	var buf bytes.Buffer
	tris := Triangles(mesh.Grid(1, 1))
	if err := WriteSTL(&buf, tris); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	// Overwrite the normal of the first triangle with +X.
	put3F32(data[84:], [3]float32{1, 0, 0})
	got, err := ReadSTL(bytes.NewReader(data))
	if !errors.Is(err, ErrNormalMismatch) {
		t.Fatalf("expected normal mismatch, got %v", err)
	}
	if len(got) != len(tris) {
		t.Fatalf("mismatched normals must not drop triangles, got %d", len(got))
	}
}

func TestOFF(t *testing.T) {
	const src = `OFF
# unit square as a single quad
4 1 0
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`
	m, err := ReadOFF(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if m.NumFaces() != 2 || m.NumVertices() != 4 {
		t.Fatalf("quad not triangulated: F=%d V=%d", m.NumFaces(), m.NumVertices())
	}
	var buf bytes.Buffer
	g := mesh.Grid(3, 1)
	if err := WriteOFF(&buf, g); err != nil {
		t.Fatal(err)
	}
	back, err := ReadOFF(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.NumFaces() != g.NumFaces() || back.NumEdges() != g.NumEdges() {
		t.Fatalf("OFF round trip changed topology")
	}
	if _, err := ReadOFF(strings.NewReader("PLY\n")); err == nil {
		t.Fatal("expected header error")
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	oct := mesh.Octahedron(1)
	for _, name := range []string{"oct.stl", "oct.off"} {
		path := filepath.Join(dir, name)
		if err := Save(path, oct); err != nil {
			t.Fatal(err)
		}
		m, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if m.NumFaces() != 8 || m.NumVertices() != 6 {
			t.Fatalf("%s: got F=%d V=%d", name, m.NumFaces(), m.NumVertices())
		}
	}
	obj := filepath.Join(dir, "tet.obj")
	const tet = "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 0 0 1\nf 1 3 2\nf 1 2 4\nf 2 3 4\nf 1 4 3\n"
	if err := os.WriteFile(obj, []byte(tet), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(obj)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumFaces() != 4 || m.NumVertices() != 4 {
		t.Fatalf("obj: got F=%d V=%d", m.NumFaces(), m.NumVertices())
	}
	if _, err := Load(filepath.Join(dir, "x.3mf")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}
