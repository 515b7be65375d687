package inference

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/faceattr/internal/domain/model"
)

func gradient(w, h int) *model.RGBImage {
	img := model.NewRGBImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, uint8(x), uint8(y), uint8((x+y)/2))
		}
	}
	return img
}

func TestTensor(t *testing.T) {
	Convey("Given a uniform white crop", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, 300, 300))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}

		data := Tensor(img, 224)

		Convey("Then the buffer should be 3x224x224", func() {
			So(len(data), ShouldEqual, 3*224*224)
		})

		Convey("And each plane should hold (1-mean)/std", func() {
			plane := 224 * 224
			So(data[0], ShouldAlmostEqual, (1-0.485)/0.229, 1e-5)
			So(data[plane], ShouldAlmostEqual, (1-0.456)/0.224, 1e-5)
			So(data[2*plane+plane-1], ShouldAlmostEqual, (1-0.406)/0.225, 1e-5)
		})
	})

	Convey("Given a black pixel", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.RGBA{A: 0xff})

		data := Tensor(img, 1)

		Convey("Then it should map to -mean/std", func() {
			So(data[0], ShouldAlmostEqual, -0.485/0.229, 1e-5)
			So(data[1], ShouldAlmostEqual, -0.456/0.224, 1e-5)
			So(data[2], ShouldAlmostEqual, -0.406/0.225, 1e-5)
		})
	})

	Convey("Given the same crop twice", t, func() {
		crop := gradient(300, 300)

		Convey("Then the tensors should be identical", func() {
			So(Tensor(crop, 224), ShouldResemble, Tensor(crop, 224))
		})
	})
}

func TestNewClassifierMissingModel(t *testing.T) {
	Convey("Given a path that does not exist", t, func() {
		_, err := NewClassifier(t.TempDir()+"/nope.onnx", WithDevice("cpu"))

		Convey("Then loading should fail before touching onnxruntime", func() {
			So(errors.Is(err, ErrModelMissing), ShouldBeTrue)
		})
	})
}

func TestClassifyRejectsEmptyCrop(t *testing.T) {
	Convey("Given a classifier without a session", t, func() {
		c := &Classifier{inputSize: 224}

		Convey("Then a nil or empty crop should be refused", func() {
			_, err := c.Classify(context.Background(), nil)
			So(errors.Is(err, ErrNoFace), ShouldBeTrue)

			_, err = c.Classify(context.Background(), &model.AlignedFace{Image: &model.RGBImage{}})
			So(errors.Is(err, ErrNoFace), ShouldBeTrue)
		})

		Convey("And Close should be a no-op", func() {
			So(c.Close(), ShouldBeNil)
		})
	})
}

func TestOptions(t *testing.T) {
	Convey("Given options", t, func() {
		c := &Classifier{wantDevice: "auto", inputSize: 224}
		WithDevice("cpu")(c)
		WithInputSize(0)(c)
		WithLibraryPath("/opt/ort/libonnxruntime.so")(c)

		Convey("Then they should apply, ignoring zero sizes", func() {
			So(c.wantDevice, ShouldEqual, "cpu")
			So(c.inputSize, ShouldEqual, 224)
			So(c.libraryPath, ShouldEqual, "/opt/ort/libonnxruntime.so")
		})
	})
}
