package lane

import "math"

// SearchConfig holds the sliding window geometry.
type SearchConfig struct {
	// HalfWidth is half the width of a pixel-collection window.
	HalfWidth int `yaml:"half-width"`
	// Stride is the vertical step between windows.
	Stride int `yaml:"stride"`
	// Radius is the horizontal search radius around the expected line
	// position when no prior fit is available.
	Radius int `yaml:"radius"`
	// PriorRadius is the narrowed search radius used when a prior fit
	// predicts the line position.
	PriorRadius int `yaml:"prior-radius"`
	// NoiseFloor is the minimum pixel count a window peak must reach
	// before the window is allowed to move.
	NoiseFloor int `yaml:"noise-floor"`
	// SeedRadius is half the width of the histogram window used to find
	// the starting x positions.
	SeedRadius int `yaml:"seed-radius"`
}

// DefaultSearchConfig returns the standard window geometry for 1280x720
// bird's-eye frames.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		HalfWidth:   30,
		Stride:      100,
		Radius:      100,
		PriorRadius: 50,
		NoiseFloor:  20,
		SeedRadius:  50,
	}
}

// Priors carries the previous frame's bird's-eye fits for both lane
// sides. When present, the searcher follows the predicted line instead
// of reseeding from the histogram, with a tighter trust region.
type Priors struct {
	Left  PolyFit
	Right PolyFit
}

// Searcher recovers raw lane pixel coordinates from a binary mask by
// scanning stacked windows from the bottom of the image to the top.
// It is stateless; temporal continuity comes from the caller-provided
// priors.
type Searcher struct {
	cfg SearchConfig
}

// NewSearcher creates a Searcher with the given window geometry.
func NewSearcher(cfg SearchConfig) *Searcher {
	return &Searcher{cfg: cfg}
}

// Search finds the lane pixels for both sides. Without priors the
// starting positions come from the bottom-half histogram; with priors
// each window is centered on the predicted line position. A side may
// come back empty, which is a valid outcome.
func (s *Searcher) Search(m *Mask, priors *Priors) (left, right PixelSet) {
	if priors == nil {
		seedLeft, seedRight := s.SeedHistogram(m)
		left = s.searchSide(m, float64(seedLeft), nil)
		right = s.searchSide(m, float64(seedRight), nil)
		return left, right
	}

	left = s.searchSide(m, priors.Left.Eval(float64(m.Height)), &priors.Left)
	right = s.searchSide(m, priors.Right.Eval(float64(m.Height)), &priors.Right)
	return left, right
}

// SeedHistogram computes starting x positions for both sides from a
// column-sum histogram over the bottom half of the mask. A window of
// width 2*SeedRadius slides across the histogram; the strongest window
// position in the left half seeds the left line and the strongest in the
// right half seeds the right line. Flat peaks resolve to their midpoint
// so symmetric density seeds dead center.
func (s *Searcher) SeedHistogram(m *Mask) (seedLeft, seedRight int) {
	hist := make([]int, m.Width)
	for y := m.Height / 2; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v != 0 {
				hist[x]++
			}
		}
	}

	r := s.cfg.SeedRadius
	sums := make([]int, m.Width)
	window := 0
	for x := 0; x < r && x < m.Width; x++ {
		window += hist[x]
	}
	for i := range sums {
		sums[i] = window
		// Advance the [i-r, i+r) window by one column.
		if i+r < m.Width {
			window += hist[i+r]
		}
		if i-r >= 0 {
			window -= hist[i-r]
		}
	}

	half := m.Width / 2
	seedLeft = peakIndex(sums[:half])
	seedRight = half + peakIndex(sums[half:])
	return seedLeft, seedRight
}

// searchSide runs the window scan for one lane side.
func (s *Searcher) searchSide(m *Mask, startX float64, prior *PolyFit) PixelSet {
	radius := s.cfg.Radius
	if prior != nil {
		radius = s.cfg.PriorRadius
	}

	var px PixelSet
	x := startX
	yBottom := m.Height
	for yBottom > 0 {
		yTop := yBottom - s.cfg.Stride
		if yTop < 0 {
			yTop = 0
		}

		if prior != nil {
			x = prior.Eval(float64(yBottom))
		}
		x = s.step(m, x, yTop, yBottom, radius)
		s.collect(m, &px, int(math.Round(x)), yTop, yBottom)

		yBottom = yTop
	}
	return px
}

// step evaluates the vote array over horizontal offsets [-radius, radius)
// and returns the new window center. A peak below the noise floor keeps
// the window where it is, so sparse noise cannot drag the line sideways.
func (s *Searcher) step(m *Mask, x float64, yTop, yBottom, radius int) float64 {
	cx := int(math.Round(x))
	votes := make([]int, 2*radius)
	for off := -radius; off < radius; off++ {
		votes[off+radius] = m.CountRegion(
			cx+off-s.cfg.HalfWidth, cx+off+s.cfg.HalfWidth,
			yTop, yBottom,
		)
	}

	peak := peakIndex(votes)
	if votes[peak] < s.cfg.NoiseFloor {
		return x
	}
	return float64(cx + peak - radius)
}

// collect appends every set mask cell inside the accepted window to the
// pixel set.
func (s *Searcher) collect(m *Mask, px *PixelSet, cx, yTop, yBottom int) {
	x0 := cx - s.cfg.HalfWidth
	x1 := cx + s.cfg.HalfWidth
	if x0 < 0 {
		x0 = 0
	}
	if x1 > m.Width {
		x1 = m.Width
	}
	if yTop < 0 {
		yTop = 0
	}
	if yBottom > m.Height {
		yBottom = m.Height
	}

	for y := yTop; y < yBottom; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := x0; x < x1; x++ {
			if row[x] != 0 {
				px.X = append(px.X, float64(x))
				px.Y = append(px.Y, float64(y))
			}
		}
	}
}

// peakIndex returns the index of the maximum value. When the maximum
// forms a plateau the midpoint between its first and last occurrence is
// returned, keeping window moves centered on symmetric pixel density.
func peakIndex(values []int) int {
	best := values[0]
	first, last := 0, 0
	for i, v := range values {
		switch {
		case v > best:
			best = v
			first, last = i, i
		case v == best:
			last = i
		}
	}
	return (first + last) / 2
}
