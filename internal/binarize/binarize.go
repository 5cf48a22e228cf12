// Package binarize extracts candidate lane pixels from a bird's-eye BGR
// frame by combining several independently thresholded detectors.
package binarize

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"github.com/velyan/lanetrace/internal/lane"
)

// Thresholds holds the detector parameters. Gradient-based detectors are
// applied after rescaling the response to [0,255]; the direction window
// is in radians; the saturation window applies to the raw HLS channel.
type Thresholds struct {
	KernelSize int     `yaml:"kernel-size"`
	GradLow    float64 `yaml:"grad-low"`
	GradHigh   float64 `yaml:"grad-high"`
	MagLow     float64 `yaml:"mag-low"`
	MagHigh    float64 `yaml:"mag-high"`
	DirLow     float64 `yaml:"dir-low"`
	DirHigh    float64 `yaml:"dir-high"`
	SatLow     float64 `yaml:"sat-low"`
	SatHigh    float64 `yaml:"sat-high"`
}

// DefaultThresholds returns the detector parameters tuned for daylight
// highway footage.
func DefaultThresholds() Thresholds {
	return Thresholds{
		KernelSize: 5,
		GradLow:    50,
		GradHigh:   200,
		MagLow:     10,
		MagHigh:    80,
		DirLow:     0.0,
		DirHigh:    0.3,
		SatLow:     200,
		SatHigh:    255,
	}
}

// Masks bundles the three outputs of Combined: the final OR of all
// detectors, the gradient-only composite, and the color-only mask.
type Masks struct {
	Final    *lane.Mask
	Gradient *lane.Mask
	Color    *lane.Mask
}

// Binarizer converts frames into binary candidate-lane masks. It is
// pure and stateless; the same frame always yields the same masks.
type Binarizer struct {
	t Thresholds
}

// New creates a Binarizer with the given thresholds.
func New(t Thresholds) *Binarizer {
	return &Binarizer{t: t}
}

// Combined runs every detector on the frame and combines them:
// the gradient composite is (gradX AND gradY) OR (magnitude AND direction),
// and the final mask is color OR gradient composite. ORing the detector
// families trades precision for recall; any detector firing marks a
// candidate pixel.
func (b *Binarizer) Combined(frame gocv.Mat) (Masks, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	width, height := gray.Cols(), gray.Rows()

	gx, err := sobelPlane(gray, 1, 0, b.t.KernelSize)
	if err != nil {
		return Masks{}, err
	}
	gy, err := sobelPlane(gray, 0, 1, b.t.KernelSize)
	if err != nil {
		return Masks{}, err
	}

	gradX := rescaledWindow(absolute(gx), width, height, b.t.GradLow, b.t.GradHigh)
	gradY := rescaledWindow(absolute(gy), width, height, b.t.GradLow, b.t.GradHigh)
	magnitude := rescaledWindow(norm(gx, gy), width, height, b.t.MagLow, b.t.MagHigh)
	direction := window(gradientDirection(gx, gy), width, height, b.t.DirLow, b.t.DirHigh)

	gradient := or(and(gradX, gradY), and(magnitude, direction))

	color, err := b.saturationMask(frame)
	if err != nil {
		return Masks{}, err
	}

	return Masks{
		Final:    or(color, gradient),
		Gradient: gradient,
		Color:    color,
	}, nil
}

// saturationMask thresholds the HLS saturation channel directly. It
// catches faded or shadowed markings the gradient detectors miss.
func (b *Binarizer) saturationMask(frame gocv.Mat) (*lane.Mask, error) {
	hls := gocv.NewMat()
	defer hls.Close()
	gocv.CvtColor(frame, &hls, gocv.ColorBGRToHLS)

	channels := gocv.Split(hls)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()

	sat, err := channels[2].DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("binarize: saturation channel: %w", err)
	}

	m := lane.NewMask(frame.Cols(), frame.Rows())
	for i, v := range sat {
		fv := float64(v)
		if fv >= b.t.SatLow && fv <= b.t.SatHigh {
			m.Pix[i] = 1
		}
	}
	return m, nil
}

// sobelPlane computes one directional derivative of the grayscale image
// and copies it out as a float64 plane.
func sobelPlane(gray gocv.Mat, dx, dy, kernelSize int) ([]float64, error) {
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Sobel(gray, &dst, gocv.MatTypeCV64F, dx, dy, kernelSize, 1, 0, gocv.BorderDefault)

	data, err := dst.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("binarize: sobel plane: %w", err)
	}
	out := make([]float64, len(data))
	copy(out, data)
	return out, nil
}

func absolute(plane []float64) []float64 {
	out := make([]float64, len(plane))
	for i, v := range plane {
		out[i] = math.Abs(v)
	}
	return out
}

func norm(gx, gy []float64) []float64 {
	out := make([]float64, len(gx))
	for i := range gx {
		out[i] = math.Hypot(gx[i], gy[i])
	}
	return out
}

func gradientDirection(gx, gy []float64) []float64 {
	out := make([]float64, len(gx))
	for i := range gx {
		out[i] = math.Atan2(math.Abs(gy[i]), math.Abs(gx[i]))
	}
	return out
}

// rescaledWindow rescales a non-negative response plane to [0,255] by
// its maximum, then applies a [low,high] window. A uniformly flat plane
// has no usable maximum; it yields an all-zero mask instead of a divide
// by zero.
func rescaledWindow(plane []float64, width, height int, low, high float64) *lane.Mask {
	m := lane.NewMask(width, height)

	maxVal := 0.0
	for _, v := range plane {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return m
	}

	scale := 255 / maxVal
	for i, v := range plane {
		scaled := v * scale
		if scaled >= low && scaled <= high {
			m.Pix[i] = 1
		}
	}
	return m
}

// window applies a plain [low,high] window with no rescaling.
func window(plane []float64, width, height int, low, high float64) *lane.Mask {
	m := lane.NewMask(width, height)
	for i, v := range plane {
		if v >= low && v <= high {
			m.Pix[i] = 1
		}
	}
	return m
}

func and(a, b *lane.Mask) *lane.Mask {
	out := lane.NewMask(a.Width, a.Height)
	for i := range out.Pix {
		if a.Pix[i] != 0 && b.Pix[i] != 0 {
			out.Pix[i] = 1
		}
	}
	return out
}

func or(a, b *lane.Mask) *lane.Mask {
	out := lane.NewMask(a.Width, a.Height)
	for i := range out.Pix {
		if a.Pix[i] != 0 || b.Pix[i] != 0 {
			out.Pix[i] = 1
		}
	}
	return out
}
