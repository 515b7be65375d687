package vision

/*
#cgo CXXFLAGS: -std=c++14 -Wall -O3 -DNDEBUG
#cgo LDFLAGS: -ldlib -lblas -lcblas -llapack
#include <stdlib.h>
#include <stdint.h>
#include "mmod.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/okian/faceattr/internal/domain/model"
)

// mmodNet owns dlib's CNN face detector and 5-point shape predictor.
// It is not safe for concurrent use.
type mmodNet struct {
	ptr *C.mmod_detector
}

func newMMODNet(detectorPath, shapePath string) (*mmodNet, error) {
	cdet := C.CString(detectorPath)
	defer C.free(unsafe.Pointer(cdet))
	cshape := C.CString(shapePath)
	defer C.free(unsafe.Pointer(cshape))

	var cerr *C.char
	ptr := C.mmod_new(cdet, cshape, &cerr)
	if ptr == nil {
		return nil, takeError(cerr)
	}
	return &mmodNet{ptr: ptr}, nil
}

// detect returns faces in the network's output order, in the coordinates
// of the upsampled image.
func (n *mmodNet) detect(img *model.RGBImage, upsample int) ([]model.DetectedFace, error) {
	if !img.Valid() {
		return nil, ErrEmptyImage
	}

	var count C.int
	var cerr *C.char
	found := C.mmod_detect(n.ptr, (*C.uint8_t)(unsafe.Pointer(&img.Pix[0])),
		C.int(img.Width), C.int(img.Height), C.int(upsample), &count, &cerr)
	if cerr != nil {
		return nil, takeError(cerr)
	}
	if found == nil {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(found))

	raw := unsafe.Slice(found, int(count))
	out := make([]model.DetectedFace, len(raw))
	for i, f := range raw {
		// dlib rectangles are inclusive on the right and bottom edges
		out[i] = model.DetectedFace{
			Rect:       image.Rect(int(f.left), int(f.top), int(f.right)+1, int(f.bottom)+1),
			Confidence: float64(f.confidence),
		}
		for k := 0; k < model.LandmarkCount; k++ {
			out[i].Landmarks[k] = model.Point{X: float64(f.x[k]), Y: float64(f.y[k])}
		}
	}
	return out, nil
}

func (n *mmodNet) close() {
	if n.ptr != nil {
		C.mmod_free(n.ptr)
		n.ptr = nil
	}
}

func takeError(cerr *C.char) error {
	if cerr == nil {
		return errors.New("dlib: unknown error")
	}
	defer C.free(unsafe.Pointer(cerr))
	return fmt.Errorf("dlib: %s", C.GoString(cerr))
}
