package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/pipeline"
)

// SaveAlgorithms replaces the stored catalog with algs in one transaction.
// Order is preserved.
func (s *Store) SaveAlgorithms(ctx context.Context, algs []pipeline.Algorithm) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_algorithms`); err != nil {
		return fmt.Errorf("pipeline: clear algorithms: %w", err)
	}

	for i, a := range algs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_algorithms (id, position, name, description, inputs, outputs)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, i, a.Name, a.Description, nonNil(a.Inputs), nonNil(a.Outputs),
		); err != nil {
			return fmt.Errorf("pipeline: insert algorithm %q: %w", a.ID, err)
		}
		for name, def := range a.Parameters {
			if _, err := tx.Exec(ctx,
				`INSERT INTO pipeline_algorithm_params (algorithm_id, name, def) VALUES ($1, $2, $3)`,
				a.ID, name, def,
			); err != nil {
				return fmt.Errorf("pipeline: insert param %q.%q: %w", a.ID, name, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pipeline: commit tx: %w", err)
	}
	return nil
}

// ListAlgorithms returns the stored catalog in saved order.
// Returns an empty slice (not nil) when nothing is stored.
func (s *Store) ListAlgorithms(ctx context.Context) ([]pipeline.Algorithm, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, inputs, outputs FROM pipeline_algorithms ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list algorithms: %w", err)
	}
	defer rows.Close()

	algs := []pipeline.Algorithm{}
	index := make(map[string]int)
	for rows.Next() {
		var a pipeline.Algorithm
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Inputs, &a.Outputs); err != nil {
			return nil, fmt.Errorf("pipeline: scan algorithm: %w", err)
		}
		index[a.ID] = len(algs)
		algs = append(algs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows algorithms: %w", err)
	}

	prows, err := s.db.Query(ctx, `SELECT algorithm_id, name, def FROM pipeline_algorithm_params`)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list params: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var algID, name string
		var def pipeline.ParamDef
		if err := prows.Scan(&algID, &name, &def); err != nil {
			return nil, fmt.Errorf("pipeline: scan param: %w", err)
		}
		i, ok := index[algID]
		if !ok {
			continue
		}
		if algs[i].Parameters == nil {
			algs[i].Parameters = make(map[string]pipeline.ParamDef)
		}
		algs[i].Parameters[name] = def
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows params: %w", err)
	}

	return algs, nil
}

// GetAlgorithm fetches one algorithm without its parameters.
// Returns pipeline.ErrUnknownAlgorithm if it is not stored.
func (s *Store) GetAlgorithm(ctx context.Context, id string) (pipeline.Algorithm, error) {
	var a pipeline.Algorithm
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, inputs, outputs FROM pipeline_algorithms WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Inputs, &a.Outputs)
	if err != nil {
		if isNoRows(err) {
			return pipeline.Algorithm{}, fmt.Errorf("%w: %s", pipeline.ErrUnknownAlgorithm, id)
		}
		return pipeline.Algorithm{}, fmt.Errorf("pipeline: get algorithm: %w", err)
	}
	return a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
