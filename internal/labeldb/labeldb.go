// Package labeldb persists class-balance fit runs to a local SQLite
// database so estimates can be compared across label-matrix revisions.
package labeldb

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type LabelDB struct {
	*sql.DB
}

// schema.sql defines the fit_runs and label_matrices tables.
//
//go:embed schema.sql
var schemaSQL string

// Open opens (creating if needed) the fit-run database at path.
func Open(path string) (*LabelDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &LabelDB{db}, nil
}

// FitRun is one persisted estimate. CondProbs is stored row-major with
// shape (Sources, KLF, Classes), matching balance.Model.CondProbs.
type FitRun struct {
	RunID            string
	CreatedUnixNanos int64
	Examples         int
	Sources          int
	Classes          int
	Abstains         bool
	LearnRate        float64
	MaxIter          int
	FinalLoss        float64
	ClassBalance     []float64
	CondProbs        []float64
}

// InsertRun stores a fit run and returns its run ID, generating a fresh
// uuid when the caller left RunID empty.
func (ldb *LabelDB) InsertRun(run *FitRun) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedUnixNanos == 0 {
		run.CreatedUnixNanos = time.Now().UnixNano()
	}

	balanceJSON, err := json.Marshal(run.ClassBalance)
	if err != nil {
		return "", fmt.Errorf("failed to encode class balance: %w", err)
	}
	cpsJSON, err := json.Marshal(run.CondProbs)
	if err != nil {
		return "", fmt.Errorf("failed to encode cond probs: %w", err)
	}

	query := `
		INSERT INTO fit_runs (run_id, created_unix_nanos, n_examples, m_sources, k_classes,
			abstains, learn_rate, max_iter, final_loss, class_balance_json, cond_probs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = ldb.Exec(query, run.RunID, run.CreatedUnixNanos, run.Examples, run.Sources,
		run.Classes, run.Abstains, run.LearnRate, run.MaxIter, run.FinalLoss,
		string(balanceJSON), string(cpsJSON))
	if err != nil {
		return "", fmt.Errorf("failed to insert fit run: %w", err)
	}
	return run.RunID, nil
}

// GetRun loads a fit run by ID.
func (ldb *LabelDB) GetRun(runID string) (*FitRun, error) {
	query := `
		SELECT run_id, created_unix_nanos, n_examples, m_sources, k_classes,
			abstains, learn_rate, max_iter, final_loss, class_balance_json, cond_probs_json
		FROM fit_runs WHERE run_id = ?
	`
	var run FitRun
	var balanceJSON, cpsJSON string
	err := ldb.QueryRow(query, runID).Scan(&run.RunID, &run.CreatedUnixNanos,
		&run.Examples, &run.Sources, &run.Classes, &run.Abstains, &run.LearnRate,
		&run.MaxIter, &run.FinalLoss, &balanceJSON, &cpsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to load fit run %s: %w", runID, err)
	}

	if err := json.Unmarshal([]byte(balanceJSON), &run.ClassBalance); err != nil {
		return nil, fmt.Errorf("failed to decode class balance: %w", err)
	}
	if err := json.Unmarshal([]byte(cpsJSON), &run.CondProbs); err != nil {
		return nil, fmt.Errorf("failed to decode cond probs: %w", err)
	}
	return &run, nil
}

// ListRuns returns run IDs ordered newest first, capped at limit
// (or all runs when limit <= 0).
func (ldb *LabelDB) ListRuns(limit int) ([]string, error) {
	query := `SELECT run_id FROM fit_runs ORDER BY created_unix_nanos DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := ldb.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fit runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertLabelMatrix attaches the raw label matrix to an existing run.
func (ldb *LabelDB) InsertLabelMatrix(runID string, L [][]int) error {
	matrixJSON, err := json.Marshal(L)
	if err != nil {
		return fmt.Errorf("failed to encode label matrix: %w", err)
	}
	_, err = ldb.Exec(`INSERT INTO label_matrices (run_id, matrix_json) VALUES (?, ?)`,
		runID, string(matrixJSON))
	if err != nil {
		return fmt.Errorf("failed to insert label matrix: %w", err)
	}
	return nil
}

// GetLabelMatrix loads the raw label matrix stored for a run.
func (ldb *LabelDB) GetLabelMatrix(runID string) ([][]int, error) {
	var matrixJSON string
	err := ldb.QueryRow(`SELECT matrix_json FROM label_matrices WHERE run_id = ?`, runID).Scan(&matrixJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to load label matrix for %s: %w", runID, err)
	}
	var L [][]int
	if err := json.Unmarshal([]byte(matrixJSON), &L); err != nil {
		return nil, fmt.Errorf("failed to decode label matrix: %w", err)
	}
	return L, nil
}
