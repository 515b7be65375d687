// Package vision wraps OpenCV (gocv) and dlib's CNN face detector behind
// plain Go types so the rest of the service never touches a Mat.
package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/okian/faceattr/internal/domain/model"
)

// matFromRGB copies an RGB image into a 3-channel Mat in OpenCV's BGR order.
// The caller owns the returned Mat.
func matFromRGB(img *model.RGBImage) (gocv.Mat, error) {
	if !img.Valid() {
		return gocv.NewMat(), ErrEmptyImage
	}
	rgb, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap pixels: %w", err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	if err := gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR); err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("rgb to bgr: %w", err)
	}
	return bgr, nil
}

// rgbFromMat converts a BGR Mat into a packed RGB image.
func rgbFromMat(bgr gocv.Mat) (*model.RGBImage, error) {
	if bgr.Empty() {
		return nil, ErrEmptyImage
	}
	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB); err != nil {
		return nil, fmt.Errorf("bgr to rgb: %w", err)
	}
	return &model.RGBImage{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pix:    rgb.ToBytes(),
	}, nil
}
