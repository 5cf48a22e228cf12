// Package overlay renders detected lane geometry onto the original
// frame: a filled lane polygon plus a HUD with the current measurements.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/velyan/lanetrace/internal/lane"
)

// Config holds the rendering parameters.
type Config struct {
	// MarkingTop is the original-frame y coordinate where the drawn
	// markings end; the polygon spans from here to the frame bottom.
	MarkingTop int `yaml:"marking-top"`
	// Alpha is the lane polygon blend weight.
	Alpha float64 `yaml:"alpha"`
}

// DefaultConfig returns the standard rendering parameters for 720p
// frames.
func DefaultConfig() Config {
	return Config{
		MarkingTop: 450,
		Alpha:      0.3,
	}
}

var (
	trackedColor   = color.RGBA{G: 255}          // green
	estimatedColor = color.RGBA{R: 255}          // red marks retained-state frames
	hudColor       = color.RGBA{R: 255, G: 255, B: 255}
)

// Renderer draws lane geometry. One renderer serves a whole video.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a Renderer with the given parameters.
func NewRenderer(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// DrawLane fills the polygon between the left and right fitted lines and
// blends it onto the frame in place. Tracked frames are green; frames
// estimated from retained state are red.
func (r *Renderer) DrawLane(frame *gocv.Mat, left, right lane.PolyFit, tracked bool) {
	height := frame.Rows()
	if r.cfg.MarkingTop >= height {
		return
	}

	span := height - r.cfg.MarkingTop
	pts := make([]image.Point, 0, 2*span)
	for y := r.cfg.MarkingTop; y < height; y++ {
		pts = append(pts, image.Pt(int(left.Eval(float64(y))), y))
	}
	for y := height - 1; y >= r.cfg.MarkingTop; y-- {
		pts = append(pts, image.Pt(int(right.Eval(float64(y))), y))
	}

	fill := trackedColor
	if !tracked {
		fill = estimatedColor
	}

	layer := gocv.NewMatWithSize(height, frame.Cols(), gocv.MatTypeCV8UC3)
	defer layer.Close()

	poly := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer poly.Close()
	gocv.FillPoly(&layer, poly, fill)

	gocv.AddWeighted(*frame, 1, layer, r.cfg.Alpha, 0, frame)
}

// DrawHUD writes the current measurements in the top-right area of the
// frame.
func (r *Renderer) DrawHUD(frame *gocv.Mat, offset, radiusLeft, radiusRight, laneWidth float64) {
	lines := []string{
		fmt.Sprintf("car offset: %.2f m", offset),
		fmt.Sprintf("left curve rad: %.2f m", radiusLeft),
		fmt.Sprintf("right curve rad: %.2f m", radiusRight),
		fmt.Sprintf("lane width: %.2f m", laneWidth),
	}
	for i, line := range lines {
		gocv.PutText(frame, line, image.Pt(800, 70+30*i),
			gocv.FontHersheySimplex, 1, hudColor, 1)
	}
}
