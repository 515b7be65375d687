// Package model contains domain models passed between layers.
package model

import (
	"image"
	"image/color"
	"math"
)

// LandmarkCount is the number of points produced by the 5-point shape predictor.
const LandmarkCount = 5

// Point is a sub-pixel location in image coordinates.
type Point struct {
	X float64
	Y float64
}

// Landmarks holds the 5-point shape in the predictor's output order:
// two corners of one eye, two corners of the other eye, base of the nose.
type Landmarks [LandmarkCount]Point

// DetectedFace is a detector hit plus its landmarks. It only lives for the
// duration of one request.
type DetectedFace struct {
	Rect       image.Rectangle
	Landmarks  Landmarks
	Confidence float64
}

// Scaled maps the face into an image resized by factor, e.g. 0.5 to undo a
// 2x upsample. Confidence is unchanged.
func (f DetectedFace) Scaled(factor float64) DetectedFace {
	scale := func(v int) int { return int(math.Round(float64(v) * factor)) }
	out := DetectedFace{
		Rect:       image.Rect(scale(f.Rect.Min.X), scale(f.Rect.Min.Y), scale(f.Rect.Max.X), scale(f.Rect.Max.Y)),
		Confidence: f.Confidence,
	}
	for i, p := range f.Landmarks {
		out.Landmarks[i] = Point{X: p.X * factor, Y: p.Y * factor}
	}
	return out
}

// FromUpsampled maps detections found on an image pyramid-upsampled
// upsample times (each step doubles both sides) back to the source image.
// Order is preserved.
func FromUpsampled(faces []DetectedFace, upsample int) []DetectedFace {
	if upsample <= 0 {
		return faces
	}
	factor := 1 / float64(int(1)<<upsample)
	out := make([]DetectedFace, len(faces))
	for i, f := range faces {
		out[i] = f.Scaled(factor)
	}
	return out
}

// RGBImage is a packed 8-bit RGB pixel grid, row-major, 3 bytes per pixel.
// It satisfies image.Image so standard encoders and resizers accept it.
type RGBImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGBImage allocates a black image of the given size.
func NewRGBImage(width, height int) *RGBImage {
	return &RGBImage{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// ColorModel implements image.Image.
func (m *RGBImage) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (m *RGBImage) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

// At implements image.Image.
func (m *RGBImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	i := (y*m.Width + x) * 3
	return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 0xff}
}

// Set writes one pixel; out of range coordinates are ignored.
func (m *RGBImage) Set(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	i := (y*m.Width + x) * 3
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = r, g, b
}

// Valid reports whether the buffer length matches the dimensions.
func (m *RGBImage) Valid() bool {
	return m != nil && m.Width > 0 && m.Height > 0 && len(m.Pix) == m.Width*m.Height*3
}

// AlignedFace is the normalized square face crop fed to the classifier.
type AlignedFace struct {
	Image *RGBImage
}

// Size returns the edge length of the crop.
func (f *AlignedFace) Size() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Width
}
