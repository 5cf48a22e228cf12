package lane

// Meter-per-pixel scale factors for the bird's-eye view, derived from
// the known lane geometry (3 m dash spacing over ~110 px, 3.7 m lane
// width over ~780 px).
const (
	MetersPerPixelY = 3.0 / 110.0
	MetersPerPixelX = 3.7 / 780.0
)

// ModelConfig holds the geometry assumptions and the acceptance policy
// parameters of the lane model.
type ModelConfig struct {
	// ImageWidth and ImageHeight are the bird's-eye frame dimensions.
	ImageWidth  int `yaml:"image-width"`
	ImageHeight int `yaml:"image-height"`
	// MinLaneWidth and MaxLaneWidth bound the plausible lane width in
	// meters; candidates outside the band are rejected as outliers.
	MinLaneWidth float64 `yaml:"min-lane-width"`
	MaxLaneWidth float64 `yaml:"max-lane-width"`
	// Retain is the weight of the previous state when blending an
	// accepted candidate into the running estimate.
	Retain float64 `yaml:"retain"`
}

// DefaultModelConfig returns the standard model parameters for 1280x720
// frames.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ImageWidth:   1280,
		ImageHeight:  720,
		MinLaneWidth: 3.6,
		MaxLaneWidth: 4.0,
		Retain:       0.7,
	}
}

// State is the smoothed lane geometry carried across frames. The fits
// are expressed in original-frame pixel coordinates for drawing; the
// curvature radii are in meters. The four fields are set and replaced
// as a group, never partially.
type State struct {
	LeftFit        PolyFit
	RightFit       PolyFit
	LeftCurvature  float64
	RightCurvature float64
}

// Candidate is one frame's raw measurement, before the acceptance
// policy has had a say.
type Candidate struct {
	// LeftFit and RightFit are the original-frame-space fits.
	LeftFit  PolyFit
	RightFit PolyFit
	// LeftCurvature and RightCurvature are the curvature radii in
	// meters, measured at the bottom of the frame.
	LeftCurvature  float64
	RightCurvature float64
	// XLeft and XRight are the lane line positions at the bottom of the
	// frame, in meters.
	XLeft  float64
	XRight float64
}

// Result reports the outcome of one frame update. Tracked is true when
// the candidate was blended into the state; a false value means the
// candidate was rejected and the frame geometry is estimated from the
// retained state.
type Result struct {
	State     State
	Tracked   bool
	LaneWidth float64
	Offset    float64
}

// Model converts per-frame lane measurements into a smoothed geometry
// estimate. It starts untracked; the first candidate is always accepted,
// after which the model stays in tracking mode for the rest of the video
// and every further candidate passes through the lane-width acceptance
// band. Single writer only; frames must be presented in order.
type Model struct {
	cfg      ModelConfig
	tracking bool
	state    State
}

// NewModel creates an untracked Model with the given configuration.
func NewModel(cfg ModelConfig) *Model {
	return &Model{cfg: cfg}
}

// Tracking reports whether the model has accepted at least one frame.
func (m *Model) Tracking() bool {
	return m.tracking
}

// Current returns the smoothed state. The second return value is false
// before the first accepted frame, in which case no geometry is
// available and the state must not be used.
func (m *Model) Current() (State, bool) {
	return m.state, m.tracking
}

// Curvature fits both sides in meter space and evaluates the curvature
// radius and line position of each at the bottom of the frame.
func (m *Model) Curvature(left, right PixelSet) (radiusLeft, radiusRight, xLeft, xRight float64, err error) {
	leftFit, err := Fit(left.Scaled(MetersPerPixelX, MetersPerPixelY))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	rightFit, err := Fit(right.Scaled(MetersPerPixelX, MetersPerPixelY))
	if err != nil {
		return 0, 0, 0, 0, err
	}

	yEval := float64(m.cfg.ImageHeight) * MetersPerPixelY
	radiusLeft = RadiusOfCurvature(leftFit, yEval)
	radiusRight = RadiusOfCurvature(rightFit, yEval)
	xLeft = leftFit.Eval(yEval)
	xRight = rightFit.Eval(yEval)
	return radiusLeft, radiusRight, xLeft, xRight, nil
}

// Offset returns the vehicle's distance from the lane center in meters,
// assuming the camera is mounted at the image center. Positive means
// the vehicle sits right of center.
func (m *Model) Offset(xLeft, xRight float64) float64 {
	center := float64(m.cfg.ImageWidth) / 2 * MetersPerPixelX
	return center - (xLeft + (xRight-xLeft)/2)
}

// Update applies the acceptance policy to one frame's candidate and
// returns the resulting state snapshot. The first candidate is accepted
// unconditionally; afterwards a candidate is blended in only when its
// lane width falls inside the acceptance band, otherwise the previous
// state is retained unchanged.
func (m *Model) Update(c Candidate) Result {
	width := c.XRight - c.XLeft
	res := Result{
		LaneWidth: width,
		Offset:    m.Offset(c.XLeft, c.XRight),
	}

	switch {
	case !m.tracking:
		m.state = State{
			LeftFit:        c.LeftFit,
			RightFit:       c.RightFit,
			LeftCurvature:  c.LeftCurvature,
			RightCurvature: c.RightCurvature,
		}
		m.tracking = true
		res.Tracked = true

	case width >= m.cfg.MinLaneWidth && width <= m.cfg.MaxLaneWidth:
		keep := m.cfg.Retain
		take := 1 - keep
		m.state = State{
			LeftFit:        blendFit(m.state.LeftFit, c.LeftFit, keep),
			RightFit:       blendFit(m.state.RightFit, c.RightFit, keep),
			LeftCurvature:  keep*m.state.LeftCurvature + take*c.LeftCurvature,
			RightCurvature: keep*m.state.RightCurvature + take*c.RightCurvature,
		}
		res.Tracked = true
	}

	res.State = m.state
	return res
}
