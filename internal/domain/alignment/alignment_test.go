package alignment_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/faceattr/internal/domain/alignment"
	"github.com/okian/faceattr/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func TestChipTemplate(t *testing.T) {
	Convey("Given the 300px chip with 0.25 padding", t, func() {
		tpl := alignment.ChipTemplate(300, 0.25)

		Convey("Then every point should fall inside the chip", func() {
			for _, p := range tpl {
				So(p.X, ShouldBeBetween, 0, 300)
				So(p.Y, ShouldBeBetween, 0, 300)
			}
		})

		Convey("And the nose should sit below both eyes", func() {
			So(tpl[4].Y, ShouldBeGreaterThan, tpl[0].Y)
			So(tpl[4].Y, ShouldBeGreaterThan, tpl[2].Y)
		})

		Convey("And padding should shrink the face towards the centre", func() {
			tight := alignment.ChipTemplate(300, 0)
			So(tight[0].X-tight[2].X, ShouldBeGreaterThan, tpl[0].X-tpl[2].X)
			So(tight[0].X, ShouldAlmostEqual, 0.8595674595992*300, eps)
		})
	})
}

func TestEstimate(t *testing.T) {
	Convey("Given points moved by a known similarity", t, func() {
		known := alignment.Similarity{
			A:  2 * math.Cos(0.3),
			B:  2 * math.Sin(0.3),
			Tx: 40,
			Ty: -12,
		}
		from := alignment.ChipTemplate(300, 0.25)
		var to model.Landmarks
		for i, p := range from {
			to[i] = known.Apply(p)
		}

		got, err := alignment.Estimate(from[:], to[:])

		Convey("Then it should recover the transform", func() {
			So(err, ShouldBeNil)
			So(got.A, ShouldAlmostEqual, known.A, 1e-9)
			So(got.B, ShouldAlmostEqual, known.B, 1e-9)
			So(got.Tx, ShouldAlmostEqual, known.Tx, 1e-6)
			So(got.Ty, ShouldAlmostEqual, known.Ty, 1e-6)
			So(got.Scale(), ShouldAlmostEqual, 2, 1e-9)
			So(got.Angle(), ShouldAlmostEqual, 0.3, 1e-9)
		})

		Convey("And the inverse should map the points back", func() {
			inv, err := got.Invert()
			So(err, ShouldBeNil)
			for i := range to {
				back := inv.Apply(to[i])
				So(back.X, ShouldAlmostEqual, from[i].X, 1e-6)
				So(back.Y, ShouldAlmostEqual, from[i].Y, 1e-6)
			}
		})

		Convey("And Matrix should agree with Apply", func() {
			m := got.Matrix()
			p := model.Point{X: 17, Y: 5}
			q := got.Apply(p)
			So(m[0][0]*p.X+m[0][1]*p.Y+m[0][2], ShouldAlmostEqual, q.X, eps)
			So(m[1][0]*p.X+m[1][1]*p.Y+m[1][2], ShouldAlmostEqual, q.Y, eps)
		})
	})

	Convey("Given degenerate inputs", t, func() {
		same := []model.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}

		Convey("Then coincident points should fail", func() {
			_, err := alignment.Estimate(same, same)
			So(errors.Is(err, alignment.ErrDegenerate), ShouldBeTrue)
		})

		Convey("And mismatched lengths should fail", func() {
			_, err := alignment.Estimate(same, same[:2])
			So(errors.Is(err, alignment.ErrDegenerate), ShouldBeTrue)
		})

		Convey("And the zero transform should not invert", func() {
			_, err := alignment.Similarity{}.Invert()
			So(errors.Is(err, alignment.ErrDegenerate), ShouldBeTrue)
		})
	})
}

func TestImageToChip(t *testing.T) {
	Convey("Given landmarks of an upright face in a large photo", t, func() {
		// a face twice the chip scale, shifted into the photo
		tpl := alignment.ChipTemplate(300, 0.25)
		var landmarks model.Landmarks
		for i, p := range tpl {
			landmarks[i] = model.Point{X: p.X*2 + 500, Y: p.Y*2 + 200}
		}

		m, err := alignment.ImageToChip(landmarks, 300, 0.25)

		Convey("Then the landmarks should land on the template", func() {
			So(err, ShouldBeNil)
			for i := range landmarks {
				q := m.Apply(landmarks[i])
				So(q.X, ShouldAlmostEqual, tpl[i].X, 1e-6)
				So(q.Y, ShouldAlmostEqual, tpl[i].Y, 1e-6)
			}
			So(m.Scale(), ShouldAlmostEqual, 0.5, 1e-9)
			So(m.Angle(), ShouldAlmostEqual, 0, 1e-9)
		})
	})

	Convey("Given collapsed landmarks", t, func() {
		var landmarks model.Landmarks
		_, err := alignment.ImageToChip(landmarks, 300, 0.25)

		Convey("Then it should report a degenerate set", func() {
			So(errors.Is(err, alignment.ErrDegenerate), ShouldBeTrue)
		})
	})
}
