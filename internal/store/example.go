package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Example is a training example as stored in the database.
type Example struct {
	ID               string
	Label            string
	Symbols          []int
	AcceptanceFactor float64
	// CalibratedLikelihood is nil until the example has been through a
	// successful training run.
	CalibratedLikelihood *float64
	CreatedAt            time.Time
}

// ExampleRepository persists training examples.
type ExampleRepository struct {
	db *sql.DB
}

// Examples returns the example repository for this store.
func (s *Store) Examples() *ExampleRepository {
	return &ExampleRepository{db: s.db}
}

// Create appends an example. Examples are listed back in creation order.
func (r *ExampleRepository) Create(e *Example) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	symbols, err := json.Marshal(e.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO training_examples (id, label, symbols, acceptance_factor, calibrated_likelihood, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Label, string(symbols), e.AcceptanceFactor, nullFloat(e.CalibratedLikelihood), e.CreatedAt,
	)
	return err
}

// GetByID retrieves an example by its ID.
func (r *ExampleRepository) GetByID(id string) (*Example, error) {
	row := r.db.QueryRow(
		`SELECT id, label, symbols, acceptance_factor, calibrated_likelihood, created_at
		 FROM training_examples WHERE id = ?`,
		id,
	)

	e, err := scanExample(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List retrieves every example in insertion order.
func (r *ExampleRepository) List() ([]*Example, error) {
	rows, err := r.db.Query(
		`SELECT id, label, symbols, acceptance_factor, calibrated_likelihood, created_at
		 FROM training_examples ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var examples []*Example
	for rows.Next() {
		e, err := scanExample(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return examples, nil
}

// UpdateCalibration stores the calibrated log-likelihood of an example.
func (r *ExampleRepository) UpdateCalibration(id string, logLikelihood float64) error {
	result, err := r.db.Exec(
		`UPDATE training_examples SET calibrated_likelihood = ? WHERE id = ?`,
		logLikelihood, id,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// Count returns the number of stored examples.
func (r *ExampleRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM training_examples`).Scan(&n)
	return n, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExample(row rowScanner) (*Example, error) {
	e := &Example{}
	var symbols string
	var calibrated sql.NullFloat64

	err := row.Scan(&e.ID, &e.Label, &symbols, &e.AcceptanceFactor, &calibrated, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symbols), &e.Symbols); err != nil {
		return nil, fmt.Errorf("decode symbols of %s: %w", e.ID, err)
	}
	if calibrated.Valid {
		v := calibrated.Float64
		e.CalibratedLikelihood = &v
	}
	return e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
