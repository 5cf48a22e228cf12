package store

import "database/sql"

// Frame holds one frame's lane measurements. Detected is false for
// frames that precede the model's first accepted fit; their geometry
// columns are stored as NULL.
type Frame struct {
	RunID          string  `json:"run_id"`
	Index          int     `json:"frame_index"`
	Detected       bool    `json:"detected"`
	Tracked        bool    `json:"tracked"`
	LaneWidth      float64 `json:"lane_width"`
	Offset         float64 `json:"offset_m"`
	LeftCurvature  float64 `json:"left_curvature"`
	RightCurvature float64 `json:"right_curvature"`
}

// FrameRepository provides insert and query operations for per-frame
// telemetry.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append inserts one frame's measurements.
func (r *FrameRepository) Append(f Frame) error {
	if !f.Detected {
		_, err := r.db.Exec(
			`INSERT INTO frames (run_id, frame_index, tracked) VALUES (?, ?, 0)`,
			f.RunID, f.Index,
		)
		return err
	}

	_, err := r.db.Exec(
		`INSERT INTO frames
		 (run_id, frame_index, tracked, lane_width, offset_m, left_curvature, right_curvature)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Index, f.Tracked, f.LaneWidth, f.Offset, f.LeftCurvature, f.RightCurvature,
	)
	return err
}

// GetByRunID retrieves all frames for a run ordered by frame index.
func (r *FrameRepository) GetByRunID(runID string) ([]Frame, error) {
	rows, err := r.db.Query(
		`SELECT run_id, frame_index, tracked, lane_width, offset_m, left_curvature, right_curvature
		 FROM frames
		 WHERE run_id = ?
		 ORDER BY frame_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var width, offset, left, right sql.NullFloat64
		if err := rows.Scan(&f.RunID, &f.Index, &f.Tracked, &width, &offset, &left, &right); err != nil {
			return nil, err
		}
		f.Detected = width.Valid
		f.LaneWidth = width.Float64
		f.Offset = offset.Float64
		f.LeftCurvature = left.Float64
		f.RightCurvature = right.Float64
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// CountTracked returns how many frames of a run were tracked rather
// than estimated.
func (r *FrameRepository) CountTracked(runID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM frames WHERE run_id = ? AND tracked = 1`,
		runID,
	).Scan(&count)
	return count, err
}
