package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/narratives/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		strategy TEXT NOT NULL,
		embedding_model TEXT,
		num_posts INTEGER NOT NULL,
		num_anchors INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posts (
		run_id TEXT NOT NULL REFERENCES runs(id),
		id TEXT NOT NULL,
		text TEXT NOT NULL,
		parent_id TEXT,
		matched_id TEXT,
		platform TEXT,
		author TEXT,
		created_at DATETIME,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS scores (
		run_id TEXT NOT NULL REFERENCES runs(id),
		post_id TEXT NOT NULL,
		score REAL NOT NULL,
		rank INTEGER NOT NULL,
		PRIMARY KEY (run_id, post_id)
	);

	CREATE TABLE IF NOT EXISTS anchors (
		run_id TEXT NOT NULL REFERENCES runs(id),
		post_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (run_id, post_id)
	);

	CREATE TABLE IF NOT EXISTS tree_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		root TEXT NOT NULL,
		depth INTEGER NOT NULL,
		breadth INTEGER NOT NULL,
		num_nodes INTEGER NOT NULL,
		PRIMARY KEY (run_id, root)
	);

	CREATE TABLE IF NOT EXISTS classifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		post_id TEXT,
		platform TEXT,
		narrative_frame TEXT,
		main_subject TEXT,
		stance TEXT,
		topic_focus TEXT,
		raw_response TEXT,
		analyzed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reply_chains (
		run_id TEXT NOT NULL REFERENCES runs(id),
		root TEXT NOT NULL,
		category TEXT NOT NULL,
		num_replies INTEGER NOT NULL,
		raw_response TEXT,
		PRIMARY KEY (run_id, root)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(run_id, rank);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes a run and all of its artifacts in one transaction
func (s *Store) SaveRun(r *Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, strategy, embedding_model, num_posts, num_anchors)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.StartedAt, r.FinishedAt, r.Strategy, r.EmbeddingModel, len(r.Posts), len(r.Anchors))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, p := range r.Posts {
		_, err := tx.Exec(`
			INSERT INTO posts (run_id, id, text, parent_id, matched_id, platform, author, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, id) DO NOTHING
		`, r.ID, p.ID, p.Text, nullableID(p.ParentID), nullableID(p.MatchedID), p.Platform, p.Author, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save post %s: %w", p.ID, err)
		}
	}

	for _, sp := range r.Scores {
		_, err := tx.Exec(`
			INSERT INTO scores (run_id, post_id, score, rank) VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, post_id) DO NOTHING
		`, r.ID, sp.Post.ID, sp.Score, sp.Rank)
		if err != nil {
			return fmt.Errorf("failed to save score for %s: %w", sp.Post.ID, err)
		}
	}

	for i, id := range r.Anchors {
		_, err := tx.Exec(`
			INSERT INTO anchors (run_id, post_id, position) VALUES (?, ?, ?)
			ON CONFLICT(run_id, post_id) DO NOTHING
		`, r.ID, id, i)
		if err != nil {
			return fmt.Errorf("failed to save anchor %s: %w", id, err)
		}
	}

	for _, ts := range r.TreeStats {
		_, err := tx.Exec(`
			INSERT INTO tree_stats (run_id, root, depth, breadth, num_nodes) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, root) DO NOTHING
		`, r.ID, ts.Root, ts.Depth, ts.Breadth, ts.NumNodes)
		if err != nil {
			return fmt.Errorf("failed to save tree stats for %s: %w", ts.Root, err)
		}
	}

	for _, c := range r.Classifications {
		_, err := tx.Exec(`
			INSERT INTO classifications (run_id, post_id, platform, narrative_frame, main_subject,
				stance, topic_focus, raw_response, analyzed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, c.PostID, c.Platform, c.NarrativeFrame, c.MainSubject,
			c.Stance, c.TopicFocus, c.RawResponse, c.AnalyzedAt)
		if err != nil {
			return fmt.Errorf("failed to save classification: %w", err)
		}
	}

	for _, rc := range r.ReplyChains {
		_, err := tx.Exec(`
			INSERT INTO reply_chains (run_id, root, category, num_replies, raw_response) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, root) DO NOTHING
		`, r.ID, rc.Root, rc.Category, rc.NumReplies, rc.RawResponse)
		if err != nil {
			return fmt.Errorf("failed to save reply chain for %s: %w", rc.Root, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, strategy, embedding_model, num_posts, num_anchors
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var model sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Strategy, &model, &r.NumPosts, &r.NumAnchors); err != nil {
			return nil, err
		}
		r.EmbeddingModel = model.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetScores returns a run's ranked posts in rank order
func (s *Store) GetScores(runID string, limit int) ([]types.ScoredPost, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.text, p.parent_id, p.matched_id, p.platform, p.author, p.created_at,
			s.score, s.rank
		FROM scores s
		JOIN posts p ON p.run_id = s.run_id AND p.id = s.post_id
		WHERE s.run_id = ?
		ORDER BY s.rank
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ScoredPost
	for rows.Next() {
		var sp types.ScoredPost
		var parent, matched, platform, author sql.NullString
		var created sql.NullTime
		err := rows.Scan(&sp.Post.ID, &sp.Post.Text, &parent, &matched, &platform, &author, &created,
			&sp.Score, &sp.Rank)
		if err != nil {
			return nil, err
		}
		sp.Post.ParentID = idFromNull(parent)
		sp.Post.MatchedID = idFromNull(matched)
		sp.Post.Platform = platform.String
		sp.Post.Author = author.String
		if created.Valid {
			t := created.Time
			sp.Post.CreatedAt = &t
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// GetTreeStats returns the tree statistics recorded for a run
func (s *Store) GetTreeStats(runID string) ([]types.TreeStats, error) {
	rows, err := s.db.Query(`
		SELECT t.root, t.depth, t.breadth, t.num_nodes
		FROM tree_stats t
		LEFT JOIN anchors a ON a.run_id = t.run_id AND a.post_id = t.root
		WHERE t.run_id = ?
		ORDER BY a.position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TreeStats
	for rows.Next() {
		var ts types.TreeStats
		if err := rows.Scan(&ts.Root, &ts.Depth, &ts.Breadth, &ts.NumNodes); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// GetClassifications returns the classifications recorded for a run
func (s *Store) GetClassifications(runID string) ([]types.Classification, error) {
	rows, err := s.db.Query(`
		SELECT post_id, platform, narrative_frame, main_subject, stance, topic_focus,
			raw_response, analyzed_at
		FROM classifications
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Classification
	for rows.Next() {
		var c types.Classification
		var postID, platform, frame, subject, stance, focus, raw sql.NullString
		err := rows.Scan(&postID, &platform, &frame, &subject, &stance, &focus, &raw, &c.AnalyzedAt)
		if err != nil {
			return nil, err
		}
		c.PostID = types.PostID(postID.String)
		c.Platform = platform.String
		c.NarrativeFrame = frame.String
		c.MainSubject = subject.String
		c.Stance = stance.String
		c.TopicFocus = focus.String
		c.RawResponse = raw.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// RunExists checks if a run ID already exists
func (s *Store) RunExists(id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM runs WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

// DeleteRunsBefore removes runs started before cutoff and returns how many
// were removed.
func (s *Store) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, table := range []string{"posts", "scores", "anchors", "tree_stats", "classifications", "reply_chains"} {
		_, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func nullableID(id *types.PostID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func idFromNull(s sql.NullString) *types.PostID {
	if !s.Valid {
		return nil
	}
	id := types.PostID(s.String)
	return &id
}
