package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_algorithms (
    id          TEXT PRIMARY KEY,
    position    INT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    inputs      TEXT[] NOT NULL DEFAULT '{}',
    outputs     TEXT[] NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pipeline_algorithm_params (
    algorithm_id TEXT NOT NULL REFERENCES pipeline_algorithms(id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    def          JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (algorithm_id, name)
);

CREATE INDEX IF NOT EXISTS idx_pipeline_algorithms_position ON pipeline_algorithms(position);
`

// CreateSchema creates the catalog tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the catalog tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS pipeline_algorithm_params, pipeline_algorithms CASCADE;`)
	return err
}
