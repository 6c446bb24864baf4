// Package store persists intermediate transcript artifacts in SQLite so a
// session can be reprocessed without re-running transcription or
// diarization.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/VE7LTX/echoframe/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS asr_segments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sessionId    TEXT NOT NULL,
	startSec     REAL NOT NULL,
	endSec       REAL NOT NULL,
	text         TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_asr_session ON asr_segments(sessionId, startSec);

CREATE TABLE IF NOT EXISTS diarization_turns (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sessionId    TEXT NOT NULL,
	startSec     REAL NOT NULL,
	endSec       REAL NOT NULL,
	speakerLabel TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turn_session ON diarization_turns(sessionId, startSec);
`

// Store is an append-only segment store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with WAL enabled.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutASR appends transcription segments for a session.
func (s *Store) PutASR(sessionID string, segments []models.Segment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO asr_segments (sessionId, startSec, endSec, text, source)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, seg := range segments {
		if _, err := stmt.Exec(sessionID, seg.StartSec, seg.EndSec, seg.Text, seg.Source); err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}
	return tx.Commit()
}

// PutDiarization appends speaker turns for a session.
func (s *Store) PutDiarization(sessionID string, turns []models.SpeakerTurn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO diarization_turns (sessionId, startSec, endSec, speakerLabel)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range turns {
		if _, err := stmt.Exec(sessionID, t.StartSec, t.EndSec, t.SpeakerLabel); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return tx.Commit()
}

// ASRSegments returns all transcription segments for a session ordered by
// start time.
func (s *Store) ASRSegments(sessionID string) ([]models.Segment, error) {
	rows, err := s.db.Query(`
		SELECT startSec, endSec, text, source
		FROM asr_segments
		WHERE sessionId = ?
		ORDER BY startSec ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segs []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.StartSec, &seg.EndSec, &seg.Text, &seg.Source); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// DiarizationTurns returns all speaker turns for a session ordered by start
// time.
func (s *Store) DiarizationTurns(sessionID string) ([]models.SpeakerTurn, error) {
	rows, err := s.db.Query(`
		SELECT startSec, endSec, speakerLabel
		FROM diarization_turns
		WHERE sessionId = ?
		ORDER BY startSec ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []models.SpeakerTurn
	for rows.Next() {
		var t models.SpeakerTurn
		if err := rows.Scan(&t.StartSec, &t.EndSec, &t.SpeakerLabel); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Discard deletes every stored artifact for a session. Used when a capture
// fails or a session is reprocessed from scratch.
func (s *Store) Discard(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM asr_segments WHERE sessionId = ?`, sessionID); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM diarization_turns WHERE sessionId = ?`, sessionID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	return tx.Commit()
}
