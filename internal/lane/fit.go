package lane

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrTooFewPoints is returned when a pixel set is too small for a
// quadratic fit.
var ErrTooFewPoints = errors.New("lane: not enough points for a quadratic fit")

// PolyFit holds the coefficients of a quadratic lane line model
// x = A*y^2 + B*y + C.
type PolyFit struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
}

// Eval returns the x coordinate of the modeled line at the given y.
func (f PolyFit) Eval(y float64) float64 {
	return f.A*y*y + f.B*y + f.C
}

// Fit performs an ordinary least-squares quadratic regression of x on y
// over the pixel set.
func Fit(p PixelSet) (PolyFit, error) {
	n := p.Len()
	if n < 3 {
		return PolyFit{}, ErrTooFewPoints
	}

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		y := p.Y[i]
		a.Set(i, 0, y*y)
		a.Set(i, 1, y)
		a.Set(i, 2, 1)
		b.SetVec(i, p.X[i])
	}

	var qr mat.QR
	qr.Factorize(a)

	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return PolyFit{}, fmt.Errorf("lane: least squares solve: %w", err)
	}
	return PolyFit{A: c.AtVec(0), B: c.AtVec(1), C: c.AtVec(2)}, nil
}

// RadiusOfCurvature evaluates the curvature radius of the fitted line at
// the given y, using R = (1 + (2Ay + B)^2)^1.5 / |2A|. A straight line
// (A = 0) yields +Inf.
func RadiusOfCurvature(f PolyFit, y float64) float64 {
	d := 2*f.A*y + f.B
	return math.Pow(1+d*d, 1.5) / math.Abs(2*f.A)
}

// blendFit mixes two fits coefficient-wise, keeping the given fraction of
// prev and taking the rest from next.
func blendFit(prev, next PolyFit, keep float64) PolyFit {
	take := 1 - keep
	return PolyFit{
		A: keep*prev.A + take*next.A,
		B: keep*prev.B + take*next.B,
		C: keep*prev.C + take*next.C,
	}
}
