// Package storage persists analysis runs and their derived results in a
// SQLite database, one row per analysed recording.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

// Store handles database operations
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a new database handle. Connections are opened lazily and
// the schema is initialized on first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateRun records a new analysis run and returns its identifier. The
// run is tagged with a fresh UUID so databases can be merged later
// without identifier clashes. Config can be a string, []byte, or any
// JSON-serializable value.
func (s *Store) CreateRun(ctx context.Context, config any) (runID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch config.(type) {
		case string:
			configData.Valid = true
			configData.String = config.(string)

		case []byte:
			configData.Valid = true
			configData.String = string(config.([]byte))

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, uuid.NewString(), configData)
	if err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	runID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting run ID: %w", err)
	}
	return
}

// Run retrieves a single analysis run by its ID.
func (s *Store) Run(ctx context.Context, id int64) (run *RunData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var r RunData
	if err = stmt.QueryRowContext(ctx, id).Scan(&r.ID, &r.RunUUID, &r.CreatedAt, &r.Config); err != nil {
		err = fmt.Errorf("scanning run: %w", err)
		return
	}

	return &r, nil
}

// Runs returns all analysis runs, ordered by creation time.
func (s *Store) Runs(ctx context.Context) (runs []*RunData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r RunData
		if err = rows.Scan(&r.ID, &r.RunUUID, &r.CreatedAt, &r.Config); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// StoreResults saves the whole batch in a single transaction, one row
// per record, in table order. Non-finite derived values are stored as
// NULL.
func (s *Store) StoreResults(ctx context.Context, runID int64, table *analysis.Table) (err error) {
	if len(table.Records) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	values := make([]any, 0, len(table.Records)*14)
	valuesPlaceholder := "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertResultSQL)

	for i := range table.Records {
		rec := &table.Records[i]

		keys, kErr := keysJSON(rec)
		if kErr != nil {
			return fmt.Errorf("encoding keys for row %d: %w", i, kErr)
		}

		values = append(values,
			runID,
			int64(i),
			rec.Path,
			toNullString(rec.Key(analysis.PipeColumn)),
			toNullString(rec.Key(analysis.PositionColumn)),
			keys,
		)
		for _, field := range resultColumns {
			values = append(values, toNullFloat(rec.Derived[field]))
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting results: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Results returns all stored results for a run, in the original batch
// row order.
func (s *Store) Results(ctx context.Context, runID int64) (results []*ResultData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectResultsSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying results: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r ResultData
		if err = rows.Scan(
			&r.ID,
			&r.RunID,
			&r.RowIndex,
			&r.FileName,
			&r.Pipe,
			&r.Position,
			&r.Keys,
			&r.PrimSecAmp,
			&r.PrimSecPhi,
			&r.PrimRecAmp,
			&r.PrimRecPhi,
			&r.SecRecAmp,
			&r.SecRecPhi,
			&r.SecHarmDB,
			&r.RecHarmDB,
		); err != nil {
			err = fmt.Errorf("scanning result: %w", err)
			return
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

func keysJSON(rec *analysis.Record) (sql.NullString, error) {
	if len(rec.Keys) == 0 {
		return sql.NullString{}, nil
	}

	kv := make(map[string]string, len(rec.Keys))
	for _, k := range rec.Keys {
		kv[k.Name] = k.Value
	}

	p, err := json.Marshal(kv)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(p), Valid: true}, nil
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
