package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Run represents one processed video.
type Run struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt sql.NullTime `json:"completed_at"`
	Frames      int          `json:"frames"`
}

// RunRepository provides CRUD operations for processing runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run for the given source video and returns its
// generated ID.
func (r *RunRepository) Create(source string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(`INSERT INTO runs (id, source) VALUES (?, ?)`, id, source)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Finish marks a run completed and records its final frame count.
func (r *RunRepository) Finish(id string, frames int) error {
	_, err := r.db.Exec(
		`UPDATE runs SET completed_at = ?, frames = ? WHERE id = ?`,
		time.Now(), frames, id,
	)
	return err
}

// Get retrieves one run by ID.
func (r *RunRepository) Get(id string) (*Run, error) {
	var run Run
	err := r.db.QueryRow(
		`SELECT id, source, started_at, completed_at, frames FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Source, &run.StartedAt, &run.CompletedAt, &run.Frames)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
