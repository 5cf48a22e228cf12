// Package warp applies the fixed road-to-bird's-eye perspective mapping.
package warp

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Point is one corner of the perspective mapping, in pixels.
type Point struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Config holds the four-point source quadrilateral and destination
// rectangle defining the perspective transform.
type Config struct {
	Src []Point `yaml:"src"`
	Dst []Point `yaml:"dst"`
}

// DefaultConfig returns the mapping calibrated for 1280x720 dashcam
// footage: the source quadrilateral hugs the lane ahead of the hood and
// maps onto a vertical rectangle.
func DefaultConfig() Config {
	return Config{
		Src: []Point{{277, 670}, {581, 460}, {701, 460}, {1028, 670}},
		Dst: []Point{{200, 720}, {200, 0}, {980, 0}, {980, 720}},
	}
}

// Transform warps frames into bird's-eye view and maps bird's-eye
// points back into original-frame coordinates. Safe for reuse across a
// whole video; Close releases the underlying matrices.
type Transform struct {
	forward gocv.Mat
	// Homography coefficients, row-major, extracted once for point
	// mapping without round trips through OpenCV point containers.
	fwd [9]float64
	inv [9]float64
}

// New computes the forward and reverse perspective matrices from the
// four-point mapping.
func New(cfg Config) (*Transform, error) {
	if len(cfg.Src) != 4 || len(cfg.Dst) != 4 {
		return nil, fmt.Errorf("warp: mapping needs exactly 4 source and 4 destination points, got %d/%d",
			len(cfg.Src), len(cfg.Dst))
	}

	src := pointVector(cfg.Src)
	defer src.Close()
	dst := pointVector(cfg.Dst)
	defer dst.Close()

	forward := gocv.GetPerspectiveTransform2f(src, dst)
	reverse := gocv.GetPerspectiveTransform2f(dst, src)
	defer reverse.Close()

	t := &Transform{forward: forward}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			t.fwd[row*3+col] = forward.GetDoubleAt(row, col)
			t.inv[row*3+col] = reverse.GetDoubleAt(row, col)
		}
	}
	return t, nil
}

// Close releases the transform matrices.
func (t *Transform) Close() error {
	return t.forward.Close()
}

// Warp transforms a frame into bird's-eye view, keeping its dimensions.
func (t *Transform) Warp(src gocv.Mat, dst *gocv.Mat) {
	gocv.WarpPerspective(src, dst, t.forward, image.Pt(src.Cols(), src.Rows()))
}

// WarpPoints maps original-frame pixel coordinates into bird's-eye
// space. Inputs are parallel x/y slices of equal length.
func (t *Transform) WarpPoints(xs, ys []float64) (outX, outY []float64) {
	return applyHomography(t.fwd, xs, ys)
}

// UnwarpPoints maps bird's-eye pixel coordinates back into
// original-frame space.
func (t *Transform) UnwarpPoints(xs, ys []float64) (outX, outY []float64) {
	return applyHomography(t.inv, xs, ys)
}

func applyHomography(h [9]float64, xs, ys []float64) (outX, outY []float64) {
	outX = make([]float64, len(xs))
	outY = make([]float64, len(ys))
	for i := range xs {
		x, y := xs[i], ys[i]
		w := h[6]*x + h[7]*y + h[8]
		outX[i] = (h[0]*x + h[1]*y + h[2]) / w
		outY[i] = (h[3]*x + h[4]*y + h[5]) / w
	}
	return outX, outY
}

func pointVector(pts []Point) gocv.Point2fVector {
	converted := make([]gocv.Point2f, len(pts))
	for i, p := range pts {
		converted[i] = gocv.Point2f{X: p.X, Y: p.Y}
	}
	return gocv.NewPoint2fVectorFromPoints(converted)
}
