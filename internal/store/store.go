// Package store persists evaluation runs and their results in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkraev/rubriceval/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		questions_file TEXT NOT NULL,
		answers_dir TEXT NOT NULL,
		model TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		question_raw TEXT NOT NULL,
		question_type TEXT NOT NULL,
		question_path_or_text TEXT NOT NULL,
		answer_image_paths TEXT NOT NULL DEFAULT '[]',
		num_answer_images INTEGER NOT NULL DEFAULT 0,
		category_scores TEXT,
		total_score INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun records the start of an evaluation run.
func (s *Store) CreateRun(run model.Run) (int64, error) {
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, questions_file, answers_dir, model)
		 VALUES (?, ?, ?, ?)`,
		startedAt, run.QuestionsFile, run.AnswersDir, run.Model,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRun returns one stored run.
func (s *Store) GetRun(id int64) (model.Run, error) {
	var run model.Run
	err := s.db.QueryRow(
		`SELECT id, started_at, questions_file, answers_dir, model
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.StartedAt, &run.QuestionsFile, &run.AnswersDir, &run.Model)
	return run, err
}

// LatestRunID returns the id of the most recent run, or sql.ErrNoRows when
// the store is empty.
func (s *Store) LatestRunID() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	return id, err
}

// SaveResults stores all entries of a run in a single transaction.
func (s *Store) SaveResults(runID int64, results []model.ResultEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO results (run_id, question_id, subject, question_raw,
			question_type, question_path_or_text, answer_image_paths,
			num_answer_images, category_scores, total_score, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		paths, err := json.Marshal(r.AnswerImagePaths)
		if err != nil {
			return fmt.Errorf("marshal answer paths for %s: %w", r.QuestionID, err)
		}
		var scores any
		if r.CategoryScores != nil {
			data, err := json.Marshal(r.CategoryScores)
			if err != nil {
				return fmt.Errorf("marshal scores for %s: %w", r.QuestionID, err)
			}
			scores = string(data)
		}
		_, err = stmt.Exec(
			runID, r.QuestionID, r.Subject, r.QuestionRaw,
			string(r.QuestionType), r.QuestionPathOrText, string(paths),
			r.NumAnswerImages, scores, r.TotalScore, r.ErrorMessage,
		)
		if err != nil {
			return fmt.Errorf("insert result for %s: %w", r.QuestionID, err)
		}
	}

	return tx.Commit()
}

// ResultsForRun returns a run's entries in insertion order.
func (s *Store) ResultsForRun(runID int64) ([]model.ResultEntry, error) {
	rows, err := s.db.Query(
		`SELECT question_id, subject, question_raw, question_type,
			question_path_or_text, answer_image_paths, num_answer_images,
			category_scores, total_score, error_message
		 FROM results WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ResultEntry
	for rows.Next() {
		var r model.ResultEntry
		var qType, paths string
		var scores sql.NullString
		err := rows.Scan(
			&r.QuestionID, &r.Subject, &r.QuestionRaw, &qType,
			&r.QuestionPathOrText, &paths, &r.NumAnswerImages,
			&scores, &r.TotalScore, &r.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}
		r.QuestionType = model.QuestionType(qType)
		if err := json.Unmarshal([]byte(paths), &r.AnswerImagePaths); err != nil {
			return nil, fmt.Errorf("decode answer paths for %s: %w", r.QuestionID, err)
		}
		if scores.Valid {
			if err := json.Unmarshal([]byte(scores.String), &r.CategoryScores); err != nil {
				return nil, fmt.Errorf("decode scores for %s: %w", r.QuestionID, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
