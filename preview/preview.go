// Package preview draws error maps of a linked surface: shaded renders with
// faces colored by their maximum error, and histograms of the error
// distribution.
package preview

import (
	"errors"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/remesh"
	"github.com/soypat/remesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoErrors is returned when a surface has no measured face errors.
var ErrNoErrors = errors.New("surface has no measured errors")

var (
	background = fauxgl.HexColor("#FFF8E3")
	unmeasured = fauxgl.HexColor("#B0B0B0")
)

// View describes the camera used by Render.
type View struct {
	// what position (point) to look at
	LookAt r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	Eye r3.Vec
	// near and far clipping planes
	Near, Far float64
	// vertical field of view in degrees
	Fovy float64
	// output size in pixels
	Width, Height int
	// supersampling factor
	Scale int
}

// DefaultView looks at the origin from (3,3,3) with Z up.
func DefaultView() View {
	return View{
		Up:     r3.Vec{Z: 1},
		Eye:    d3.Elem(3),
		Near:   1,
		Far:    10,
		Fovy:   30,
		Width:  640,
		Height: 480,
		Scale:  2,
	}
}

// Render shades s fit in a bi-unit cube centered at the origin. Faces are
// colored from blue to red by maximum error relative to limit. A limit of 0
// uses the largest error on s. Faces without measured error are gray.
func Render(s *remesh.Surface, view View, limit float64) image.Image {
	if view.Scale < 1 {
		view.Scale = 1
	}
	if limit <= 0 {
		_, se := s.MaxErrorFace()
		limit = math.Sqrt(math.Max(se, 0))
	}
	if limit == 0 {
		limit = 1
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(0)
	cmap.SetMax(limit)

	m := s.Mesh
	tris := make([]*fauxgl.Triangle, 0, m.NumFaces())
	for _, f := range m.Faces() {
		c := unmeasured
		if se := s.FaceMaxError(f); se != remesh.Unset {
			c = mapColor(cmap.At, math.Min(math.Sqrt(se), limit))
		}
		tri := m.Triangle(f)
		t := fauxgl.NewTriangleForPoints(vec(tri[0]), vec(tri[1]), vec(tri[2]))
		t.V1.Color, t.V2.Color, t.V3.Color = c, c, c
		tris = append(tris, t)
	}
	fm := fauxgl.NewTriangleMesh(tris)
	// fit mesh in a bi-unit cube centered at the origin
	fm.BiUnitCube()

	w, h := view.Width*view.Scale, view.Height*view.Scale
	context := fauxgl.NewContext(w, h)
	context.ClearColorBufferWith(background)
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(vec(view.Eye), vec(view.LookAt), vec(view.Up)).Perspective(view.Fovy, aspect, view.Near, view.Far)
	context.Shader = &errorShader{
		matrix: matrix,
		light:  fauxgl.V(-0.75, 1, 0.25).Normalize(),
	}
	context.DrawMesh(fm)
	// downsample image for antialiasing
	img := context.Image()
	if view.Scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	return fauxgl.SavePNG(path, img)
}

// errorShader lights the per-vertex color from both sides so open surfaces
// read the same from either side.
type errorShader struct {
	matrix fauxgl.Matrix
	light  fauxgl.Vector
}

func (sh *errorShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = sh.matrix.MulPositionW(v.Position)
	return v
}

func (sh *errorShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	const ambient = 0.3
	k := ambient + (1-ambient)*math.Abs(v.Normal.Dot(sh.light))
	c := v.Color
	return fauxgl.Color{R: c.R * k, G: c.G * k, B: c.B * k, A: 1}
}

func mapColor(at func(float64) (color.Color, error), v float64) fauxgl.Color {
	c, err := at(v)
	if err != nil {
		return unmeasured
	}
	return fauxgl.MakeColor(c)
}

func vec(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }

// Histogram plots the distribution of face maximum errors of s in bins.
func Histogram(s *remesh.Surface, bins int) (*plot.Plot, error) {
	vals := s.Values()
	if len(vals) == 0 {
		return nil, ErrNoErrors
	}
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = "Face maximum error"
	p.X.Label.Text = "distance"
	p.Y.Label.Text = "faces"
	p.Add(h)
	return p, nil
}

// WriteHistogram writes p as an image of the given format ("png", "svg",
// "pdf") to w.
func WriteHistogram(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveHistogram writes p to path. The format is chosen by file extension.
func SaveHistogram(path string, p *plot.Plot) error {
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
