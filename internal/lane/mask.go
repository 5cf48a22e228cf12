// Package lane implements the core lane-finding pipeline: sliding window
// pixel search over binary masks and temporal lane geometry modeling.
package lane

// Mask is a binary image. Cells hold 0 or 1 and are addressed as (x, y)
// with the origin at the top-left corner, matching the frame it was
// extracted from.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask creates an all-zero mask with the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the cell value at (x, y). Coordinates outside the mask
// read as zero.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set writes the cell at (x, y). Coordinates outside the mask are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// CountRegion returns the number of set cells in the half-open region
// [x0,x1) x [y0,y1). The region is clipped to the mask bounds.
func (m *Mask) CountRegion(x0, x1, y0, y1 int) int {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > m.Width {
		x1 = m.Width
	}
	if y1 > m.Height {
		y1 = m.Height
	}

	count := 0
	for y := y0; y < y1; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := x0; x < x1; x++ {
			if row[x] != 0 {
				count++
			}
		}
	}
	return count
}
