package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per processed video
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0
		)`,

		// Frames table - per-frame lane measurements; geometry columns
		// are NULL until the model's first accepted fit
		`CREATE TABLE IF NOT EXISTS frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			tracked INTEGER NOT NULL DEFAULT 0,
			lane_width REAL,
			offset_m REAL,
			left_curvature REAL,
			right_curvature REAL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_frames_run_id ON frames(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
