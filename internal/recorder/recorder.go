// Package recorder logs pipeline results to a sqlite file so runs can be
// reviewed and charted after a match.
package recorder

import (
	"database/sql"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/target-vision/internal/pipeline"
)

// Recorder writes sessions and frames to sqlite.
type Recorder struct {
	db *sql.DB
}

// Session is one run of the pipeline over a source.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Config    string    `json:"config"`
	StartedAt time.Time `json:"started_at"`
	Frames    int       `json:"frames"`
}

// FrameRecord is the stored outcome of one frame.
type FrameRecord struct {
	Seq        int       `json:"seq"`
	Found      bool      `json:"found"`
	Heading    float64   `json:"heading"`
	Offset     float64   `json:"offset"`
	Candidates int       `json:"candidates"`
	Pairs      int       `json:"pairs"`
	ElapsedMS  float64   `json:"elapsed_ms"`
	At         time.Time `json:"at"`
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	r := &Recorder{db: db}
	if err := r.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartSession registers a new session and returns its ID.
func (r *Recorder) StartSession(source, configJSON string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(
		`INSERT INTO sessions (session_id, source, config_json, started_at) VALUES (?, ?, ?, ?)`,
		id, source, configJSON, time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// RecordFrame stores one frame of a session. A zero At is set to now.
func (r *Recorder) RecordFrame(session string, f FrameRecord) error {
	if f.At.IsZero() {
		f.At = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO frames (session_id, seq, found, heading, offset_deg, candidates, pairs, elapsed_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session, f.Seq, f.Found, f.Heading, f.Offset, f.Candidates, f.Pairs, f.ElapsedMS, f.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record frame %d: %w", f.Seq, err)
	}
	return nil
}

// Sessions lists every session, newest first.
func (r *Recorder) Sessions() ([]Session, error) {
	rows, err := r.db.Query(`
		SELECT s.session_id, s.source, s.config_json, s.started_at, COUNT(f.seq)
		FROM sessions s
		LEFT JOIN frames f ON f.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var started int64
		if err := rows.Scan(&s.ID, &s.Source, &s.Config, &started, &s.Frames); err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}
		s.StartedAt = time.UnixMilli(started)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Frames returns the frames of a session in order.
func (r *Recorder) Frames(session string) ([]FrameRecord, error) {
	rows, err := r.db.Query(`
		SELECT seq, found, heading, offset_deg, candidates, pairs, elapsed_ms, recorded_at
		FROM frames WHERE session_id = ? ORDER BY seq`, session)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var f FrameRecord
		var at int64
		if err := rows.Scan(&f.Seq, &f.Found, &f.Heading, &f.Offset, &f.Candidates, &f.Pairs, &f.ElapsedMS, &at); err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		f.At = time.UnixMilli(at)
		out = append(out, f)
	}
	return out, rows.Err()
}

// FromResult converts a pipeline result into a frame record.
func FromResult(seq int, res pipeline.Result) FrameRecord {
	return FrameRecord{
		Seq:        seq,
		Found:      res.Found,
		Heading:    res.Heading,
		Offset:     res.Offset,
		Candidates: len(res.Candidates),
		Pairs:      len(res.Pairs),
		ElapsedMS:  float64(res.Elapsed) / float64(time.Millisecond),
	}
}

// Listener records every processed frame into session. Write failures are
// logged and do not stop the pipeline.
func (r *Recorder) Listener(session string) pipeline.Listener {
	seq := 0
	return pipeline.ListenerFunc(func(_ image.Image, res pipeline.Result) {
		if err := r.RecordFrame(session, FromResult(seq, res)); err != nil {
			log.Printf("[recorder] %v", err)
		}
		seq++
	})
}
