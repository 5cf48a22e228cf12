package lane

// PixelSet holds the discovered lane-marking pixel coordinates for one
// side of the lane, as parallel X/Y slices of equal length. The
// coordinate space (bird's-eye or original frame, pixels or meters)
// depends on where the set came from.
type PixelSet struct {
	X []float64
	Y []float64
}

// Len returns the number of pixels in the set.
func (p PixelSet) Len() int {
	return len(p.X)
}

// Empty reports whether the set contains no pixels. An empty set is a
// valid search outcome, not an error.
func (p PixelSet) Empty() bool {
	return len(p.X) == 0
}

// Scaled returns a copy of the set with X and Y multiplied by the given
// factors. Used to re-express pixel coordinates in meters.
func (p PixelSet) Scaled(xScale, yScale float64) PixelSet {
	out := PixelSet{
		X: make([]float64, len(p.X)),
		Y: make([]float64, len(p.Y)),
	}
	for i := range p.X {
		out.X[i] = p.X[i] * xScale
		out.Y[i] = p.Y[i] * yScale
	}
	return out
}
