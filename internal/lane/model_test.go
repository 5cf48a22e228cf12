package lane

import (
	"math"
	"testing"
)

// trackableCandidate returns a candidate whose lane width (3.7 m) falls
// inside the acceptance band.
func trackableCandidate() Candidate {
	return Candidate{
		LeftFit:        PolyFit{A: 0.0001, B: -0.1, C: 310},
		RightFit:       PolyFit{A: 0.0001, B: -0.1, C: 1090},
		LeftCurvature:  820,
		RightCurvature: 860,
		XLeft:          0.6,
		XRight:         4.3,
	}
}

func TestModel_FirstFrameAlwaysAccepts(t *testing.T) {
	m := NewModel(DefaultModelConfig())

	if m.Tracking() {
		t.Fatal("model should start untracked")
	}
	if _, ok := m.Current(); ok {
		t.Fatal("no state should be available before the first frame")
	}

	// Even an implausible width is accepted on the first frame
	c := trackableCandidate()
	c.XLeft = 0
	c.XRight = 5.0

	res := m.Update(c)

	if !res.Tracked {
		t.Error("first frame must be accepted unconditionally")
	}
	if !m.Tracking() {
		t.Error("model must be tracking after the first frame")
	}
	if res.State.LeftFit != c.LeftFit || res.State.RightFit != c.RightFit ||
		res.State.LeftCurvature != c.LeftCurvature || res.State.RightCurvature != c.RightCurvature {
		t.Error("first frame state must equal the raw candidate")
	}
}

func TestModel_BlendsAcceptedCandidates(t *testing.T) {
	m := NewModel(DefaultModelConfig())
	first := trackableCandidate()
	m.Update(first)

	second := trackableCandidate()
	second.LeftFit.C = 320
	second.LeftCurvature = 900

	res := m.Update(second)

	if !res.Tracked {
		t.Fatal("in-band candidate should be tracked")
	}
	wantC := 0.7*first.LeftFit.C + 0.3*second.LeftFit.C
	if math.Abs(res.State.LeftFit.C-wantC) > 1e-9 {
		t.Errorf("expected blended c of %f, got %f", wantC, res.State.LeftFit.C)
	}
	wantCurve := 0.7*first.LeftCurvature + 0.3*second.LeftCurvature
	if math.Abs(res.State.LeftCurvature-wantCurve) > 1e-9 {
		t.Errorf("expected blended curvature of %f, got %f", wantCurve, res.State.LeftCurvature)
	}
}

func TestModel_SmoothingIdempotence(t *testing.T) {
	// Blending an identical candidate must leave the state unchanged:
	// 0.7*S + 0.3*S = S
	m := NewModel(DefaultModelConfig())
	c := trackableCandidate()

	first := m.Update(c)
	second := m.Update(c)

	if diff := math.Abs(second.State.LeftFit.C - first.State.LeftFit.C); diff > 1e-12 {
		t.Errorf("left fit drifted by %g on an identical candidate", diff)
	}
	if diff := math.Abs(second.State.RightCurvature - first.State.RightCurvature); diff > 1e-9 {
		t.Errorf("right curvature drifted by %g on an identical candidate", diff)
	}
}

func TestModel_RejectsImplausibleWidth(t *testing.T) {
	m := NewModel(DefaultModelConfig())
	before := m.Update(trackableCandidate()).State

	outlier := trackableCandidate()
	outlier.XLeft = 0
	outlier.XRight = 5.0 // 5.0 m lane width is outside the band

	res := m.Update(outlier)

	if res.Tracked {
		t.Error("out-of-band candidate must be rejected")
	}
	// The retained state must be bit-identical to the pre-frame state
	if res.State != before {
		t.Error("rejected candidate must leave the state untouched")
	}
}

func TestModel_AcceptanceBandBoundsInclusive(t *testing.T) {
	for _, width := range []float64{3.6, 4.0} {
		m := NewModel(DefaultModelConfig())
		m.Update(trackableCandidate())

		// XLeft of zero keeps the recomputed width exact; a nonzero
		// left edge would push 3.6 just below the bound in floats
		c := trackableCandidate()
		c.XLeft = 0
		c.XRight = width

		if res := m.Update(c); !res.Tracked {
			t.Errorf("width %.1f m is on the band boundary and must be accepted", width)
		}
	}
}

func TestModel_Offset(t *testing.T) {
	m := NewModel(DefaultModelConfig())
	center := 640 * MetersPerPixelX

	// Lane centered on the camera: zero offset
	if got := m.Offset(center-1.85, center+1.85); math.Abs(got) > 1e-9 {
		t.Errorf("expected zero offset for a centered lane, got %f", got)
	}

	// Lane center left of the image center: vehicle sits right of it
	if got := m.Offset(center-2.0, center+1.7); got <= 0 {
		t.Errorf("expected positive offset, got %f", got)
	}
}

func TestModel_CurvatureFromPixels(t *testing.T) {
	// Pixels sampled from x = 0.001y^2 + 0.5y + 200 in meter space must
	// yield the closed-form radius within 1%
	curve := PolyFit{A: 0.001, B: 0.5, C: 200}

	var left, right PixelSet
	for yPix := 0.0; yPix < 720; yPix++ {
		yM := yPix * MetersPerPixelY
		xM := curve.Eval(yM)
		left.X = append(left.X, xM/MetersPerPixelX)
		left.Y = append(left.Y, yPix)
		right.X = append(right.X, (xM+3.7)/MetersPerPixelX)
		right.Y = append(right.Y, yPix)
	}

	m := NewModel(DefaultModelConfig())
	radiusLeft, radiusRight, xLeft, xRight, err := m.Curvature(left, right)
	if err != nil {
		t.Fatalf("curvature failed: %v", err)
	}

	yEval := 720 * MetersPerPixelY
	d := 2*curve.A*yEval + curve.B
	want := math.Pow(1+d*d, 1.5) / math.Abs(2*curve.A)

	if math.Abs(radiusLeft-want)/want > 0.01 {
		t.Errorf("expected left radius %f, got %f", want, radiusLeft)
	}
	if math.Abs(radiusRight-want)/want > 0.01 {
		t.Errorf("expected right radius %f, got %f", want, radiusRight)
	}
	if width := xRight - xLeft; math.Abs(width-3.7) > 0.01 {
		t.Errorf("expected 3.7 m lane width, got %f", width)
	}
}

func TestModel_CurvatureEmptySide(t *testing.T) {
	m := NewModel(DefaultModelConfig())

	var empty PixelSet
	full := PixelSet{X: []float64{1, 2, 3, 4}, Y: []float64{1, 2, 3, 4}}

	if _, _, _, _, err := m.Curvature(empty, full); err == nil {
		t.Error("expected an error for an empty left side")
	}
	if _, _, _, _, err := m.Curvature(full, empty); err == nil {
		t.Error("expected an error for an empty right side")
	}
}
