package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/drape/internal/pose"
)

// Recording is a captured pose session. Frames hold the raw estimator
// output so a replay can use a different viewport or adapter options than
// the live session did.
type Recording struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ImageWidth  float64   `json:"imageWidth"`
	ImageHeight float64   `json:"imageHeight"`
	Mirrored    bool      `json:"mirrored"`
	Frames      int       `json:"frames"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Frame is one recorded estimator result. Pose is nil for frames where
// nobody was detected.
type Frame struct {
	Sequence    int       `json:"sequence"`
	TimestampMs int64     `json:"timestampMs"`
	Pose        *pose.Raw `json:"pose"`
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts rec and its frames in a single transaction. Frame
// sequence numbers are assigned in order; Frames and DurationMs are derived
// from the frames.
func (r *RecordingRepository) Create(rec *Recording, frames []Frame) error {
	rec.CreatedAt = time.Now()
	rec.Frames = len(frames)
	rec.DurationMs = 0
	if n := len(frames); n > 1 {
		rec.DurationMs = frames[n-1].TimestampMs - frames[0].TimestampMs
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO recordings (id, name, image_width, image_height, mirrored, frames, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.ImageWidth, rec.ImageHeight, rec.Mirrored, rec.Frames, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO recording_frames (recording_id, sequence, timestamp_ms, pose) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range frames {
		frames[i].Sequence = i
		data, err := json.Marshal(frames[i].Pose)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(rec.ID, i, frames[i].TimestampMs, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a recording header by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	var mirrored int

	err := r.db.QueryRow(
		`SELECT id, name, image_width, image_height, mirrored, frames, duration_ms, created_at
		 FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.ImageWidth, &rec.ImageHeight, &mirrored, &rec.Frames, &rec.DurationMs, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Mirrored = mirrored != 0
	return rec, nil
}

// List retrieves all recording headers, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, name, image_width, image_height, mirrored, frames, duration_ms, created_at
		 FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec := &Recording{}
		var mirrored int
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.ImageWidth, &rec.ImageHeight, &mirrored, &rec.Frames, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Mirrored = mirrored != 0
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Frames retrieves all frames of a recording in sequence order.
func (r *RecordingRepository) Frames(recordingID string) ([]Frame, error) {
	rows, err := r.db.Query(
		`SELECT sequence, timestamp_ms, pose
		 FROM recording_frames
		 WHERE recording_id = ?
		 ORDER BY sequence`,
		recordingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var data string
		if err := rows.Scan(&f.Sequence, &f.TimestampMs, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &f.Pose); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", f.Sequence, err)
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Delete removes a recording and its frames.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
