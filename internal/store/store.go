// Package store handles SQLite persistence of trial results.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/keytrial/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for trial data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trials (
			id INTEGER PRIMARY KEY,
			trial_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			target_text TEXT NOT NULL,
			user_input TEXT NOT NULL,
			accuracy INTEGER NOT NULL,
			reaction_time_ms REAL,
			sound_mode INTEGER NOT NULL,
			match_policy TEXT NOT NULL,
			had_errors INTEGER NOT NULL,
			is_real_sentence INTEGER,
			end_reason TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trial_keystrokes (
			trial_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			key TEXT NOT NULL,
			offset_ms REAL NOT NULL,
			matched INTEGER NOT NULL,
			sound_condition INTEGER NOT NULL,
			PRIMARY KEY (trial_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trials_started_at ON trials(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrial stores a finished trial and its keystrokes.
func (s *Store) InsertTrial(ctx context.Context, result model.TrialResult) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var reaction sql.NullFloat64
	if result.ReactionTimeMs != nil {
		reaction = sql.NullFloat64{Float64: *result.ReactionTimeMs, Valid: true}
	}
	var isReal sql.NullBool
	if result.IsRealSentence != nil {
		isReal = sql.NullBool{Bool: *result.IsRealSentence, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO trials (trial_id, started_at, target_text, user_input, accuracy, reaction_time_ms, sound_mode, match_policy, had_errors, is_real_sentence, end_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.TrialID,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.TargetText,
		result.UserInput,
		result.Accuracy,
		reaction,
		int(result.SoundMode),
		string(result.MatchPolicy),
		result.HadErrors,
		isReal,
		string(result.EndReason),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(result.Keystrokes) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO trial_keystrokes (trial_id, seq, key, offset_ms, matched, sound_condition)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, k := range result.Keystrokes {
			if _, err = stmt.ExecContext(ctx, id, i, k.Key, k.OffsetMs, k.Matched, int(k.Condition)); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListTrials returns the most recent trials, newest first. A non-positive
// limit returns every trial.
func (s *Store) ListTrials(ctx context.Context, limit int) ([]model.TrialSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.trial_id, t.started_at, t.target_text, t.user_input, t.accuracy,
			t.reaction_time_ms, t.sound_mode, t.match_policy, t.end_reason,
			(SELECT COUNT(*) FROM trial_keystrokes k WHERE k.trial_id = t.id)
		FROM trials t
		ORDER BY t.started_at DESC, t.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var trials []model.TrialSummary
	for rows.Next() {
		var (
			sum       model.TrialSummary
			startedAt string
			reaction  sql.NullFloat64
			mode      int
			policy    string
			reason    string
		)
		if err := rows.Scan(&sum.ID, &sum.TrialID, &startedAt, &sum.TargetText, &sum.UserInput, &sum.Accuracy,
			&reaction, &mode, &policy, &reason, &sum.Keystrokes); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		sum.StartedAt = parsed
		if reaction.Valid {
			rt := reaction.Float64
			sum.ReactionTimeMs = &rt
		}
		sum.SoundMode = model.SoundMode(mode)
		sum.MatchPolicy = model.MatchPolicy(policy)
		sum.EndReason = model.EndReason(reason)
		trials = append(trials, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trials, nil
}

// ListKeystrokes returns the recorded keystrokes of one trial in order.
func (s *Store) ListKeystrokes(ctx context.Context, id int64) ([]model.KeystrokeEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, offset_ms, matched, sound_condition
		FROM trial_keystrokes
		WHERE trial_id = ?
		ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var keys []model.KeystrokeEvent
	for rows.Next() {
		var (
			k    model.KeystrokeEvent
			cond int
		)
		if err := rows.Scan(&k.Key, &k.OffsetMs, &k.Matched, &cond); err != nil {
			return nil, err
		}
		k.Condition = model.SoundCondition(cond)
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
