package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_results_run ON results (run_id, row_index);
CREATE INDEX IF NOT EXISTS idx_results_position ON results (run_id, pipe, pos)`

	insertRunSQL = `
INSERT INTO runs (run_uuid,
                  created_at,
                  config)
VALUES (?, CURRENT_TIMESTAMP, ?)`

	selectRunSQL = `
SELECT
    id,
    run_uuid,
    created_at,
    config
FROM runs
WHERE
    id = ?`

	selectRunsSQL = `
SELECT
    id,
    run_uuid,
    created_at,
    config
FROM runs
ORDER BY created_at`

	insertResultSQL = `
INSERT INTO results (run_id,
                     row_index,
                     file_name,
                     pipe,
                     pos,
                     keys,
                     prim_sec_amp,
                     prim_sec_phi,
                     prim_rec_amp,
                     prim_rec_phi,
                     sec_rec_amp,
                     sec_rec_phi,
                     sec_harm_db,
                     rec_harm_db)
VALUES `

	selectResultsSQL = `
SELECT
    id,
    run_id,
    row_index,
    file_name,
    pipe,
    pos,
    keys,
    prim_sec_amp,
    prim_sec_phi,
    prim_rec_amp,
    prim_rec_phi,
    sec_rec_amp,
    sec_rec_phi,
    sec_harm_db,
    rec_harm_db
FROM results
WHERE
    run_id = ?
ORDER BY row_index`
)
