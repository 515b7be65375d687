package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/okian/faceattr/internal/domain/alignment"
	"github.com/okian/faceattr/internal/domain/model"
)

// Aligner warps a detected face onto a square chip using its landmarks.
type Aligner struct {
	size    int
	padding float64
}

// NewAligner returns an Aligner producing size x size chips with the given
// padding around the canonical face shape.
func NewAligner(size int, padding float64) *Aligner {
	return &Aligner{size: size, padding: padding}
}

// Align extracts the chip for f from img.
func (a *Aligner) Align(img *model.RGBImage, f model.DetectedFace) (*model.AlignedFace, error) {
	tr, err := alignment.ImageToChip(f.Landmarks, a.size, a.padding)
	if err != nil {
		return nil, fmt.Errorf("estimate transform: %w", err)
	}

	src, err := matFromRGB(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r, row := range tr.Matrix() {
		for c, v := range row {
			m.SetDoubleAt(r, c, v)
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffine(src, &dst, m, image.Pt(a.size, a.size))
	if dst.Empty() {
		return nil, ErrWarpFailed
	}

	chip, err := rgbFromMat(dst)
	if err != nil {
		return nil, err
	}
	return &model.AlignedFace{Image: chip}, nil
}
