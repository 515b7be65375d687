package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/okian/faceattr/internal/domain/model"
)

// Decoder turns uploaded bytes into an RGB pixel grid. Any format OpenCV's
// imdecode understands is accepted; alpha and grayscale are expanded to three
// channels.
type Decoder struct{}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode parses data. Malformed or unsupported input yields ErrEmptyImage.
func (Decoder) Decode(data []byte) (*model.RGBImage, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyImage, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	return rgbFromMat(mat)
}
