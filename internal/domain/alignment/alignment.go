// Package alignment computes the geometric transform that maps a face's
// 5-point landmarks onto a canonical square chip.
package alignment

import (
	"errors"
	"math"

	"github.com/okian/faceattr/internal/domain/model"
)

// ErrDegenerate is returned when the source points do not span any area,
// e.g. all landmarks coincide.
var ErrDegenerate = errors.New("degenerate landmark set")

// meanFace is dlib's reference 5-point shape in unit chip coordinates
// (padding 0), in the same order the shape predictor emits points.
var meanFace = model.Landmarks{
	{X: 0.8595674595992, Y: 0.2134981538014},
	{X: 0.6460604764104, Y: 0.2289674387677},
	{X: 0.1205750620789, Y: 0.2137274526848},
	{X: 0.3340850613712, Y: 0.2290642403242},
	{X: 0.4901123135679, Y: 0.6277975316475},
}

// ChipTemplate returns where the 5 landmarks land in a size x size chip when
// the reference shape is surrounded by padding (fraction of the face width)
// on every side.
func ChipTemplate(size int, padding float64) model.Landmarks {
	var out model.Landmarks
	scale := float64(size)
	for i, p := range meanFace {
		out[i] = model.Point{
			X: (padding + p.X) / (2*padding + 1) * scale,
			Y: (padding + p.Y) / (2*padding + 1) * scale,
		}
	}
	return out
}

// Similarity is a rotation + uniform scale + translation:
//
//	x' = A*x - B*y + Tx
//	y' = B*x + A*y + Ty
type Similarity struct {
	A, B   float64
	Tx, Ty float64
}

// Apply maps p through the transform.
func (s Similarity) Apply(p model.Point) model.Point {
	return model.Point{
		X: s.A*p.X - s.B*p.Y + s.Tx,
		Y: s.B*p.X + s.A*p.Y + s.Ty,
	}
}

// Scale returns the uniform scale factor.
func (s Similarity) Scale() float64 { return math.Hypot(s.A, s.B) }

// Angle returns the rotation in radians.
func (s Similarity) Angle() float64 { return math.Atan2(s.B, s.A) }

// Invert returns the inverse transform. The zero transform has no inverse
// and yields ErrDegenerate.
func (s Similarity) Invert() (Similarity, error) {
	det := s.A*s.A + s.B*s.B
	if det == 0 {
		return Similarity{}, ErrDegenerate
	}
	a := s.A / det
	b := -s.B / det
	return Similarity{
		A:  a,
		B:  b,
		Tx: -(a*s.Tx - b*s.Ty),
		Ty: -(b*s.Tx + a*s.Ty),
	}, nil
}

// Matrix returns the 2x3 affine matrix in row-major order, the layout
// OpenCV's warpAffine expects.
func (s Similarity) Matrix() [2][3]float64 {
	return [2][3]float64{
		{s.A, -s.B, s.Tx},
		{s.B, s.A, s.Ty},
	}
}

// Estimate finds the least-squares similarity transform mapping from[i] onto
// to[i]. Reflections are not allowed.
func Estimate(from, to []model.Point) (Similarity, error) {
	if len(from) != len(to) || len(from) < 2 {
		return Similarity{}, ErrDegenerate
	}

	n := float64(len(from))
	var fx, fy, tx, ty float64
	for i := range from {
		fx += from[i].X
		fy += from[i].Y
		tx += to[i].X
		ty += to[i].Y
	}
	fx, fy, tx, ty = fx/n, fy/n, tx/n, ty/n

	var dot, cross, norm float64
	for i := range from {
		x, y := from[i].X-fx, from[i].Y-fy
		u, v := to[i].X-tx, to[i].Y-ty
		dot += x*u + y*v
		cross += x*v - y*u
		norm += x*x + y*y
	}
	if norm < 1e-12 {
		return Similarity{}, ErrDegenerate
	}

	a := dot / norm
	b := cross / norm
	return Similarity{
		A:  a,
		B:  b,
		Tx: tx - (a*fx - b*fy),
		Ty: ty - (b*fx + a*fy),
	}, nil
}

// ImageToChip returns the transform that carries source-image pixels into a
// size x size chip so that the landmarks line up with ChipTemplate. The fit is
// done chip -> image, the way dlib extracts face chips, and then inverted.
func ImageToChip(landmarks model.Landmarks, size int, padding float64) (Similarity, error) {
	template := ChipTemplate(size, padding)
	chipToImage, err := Estimate(template[:], landmarks[:])
	if err != nil {
		return Similarity{}, err
	}
	return chipToImage.Invert()
}
