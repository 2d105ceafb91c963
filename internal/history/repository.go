// Package history keeps a log of print jobs in a sqlite database.
package history

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"tomgalvin.uk/sketchprint/printer"
)

//go:embed schema.sql
var schema string

type Job struct {
	Id        int
	Uuid      uuid.UUID
	Device    string
	Model     string
	Rows      int
	Frames    int
	Bytes     int
	PrintedAt time.Time
	Duration  time.Duration
	// Empty when the job was sent successfully
	Error string
}

type Repository struct {
	Db *sql.DB
}

// Opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("Couldn't open database:\n%w", err)
	}
	// sqlite only allows one writer, and an in-memory database only exists
	// on the connection that created it
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Couldn't initialise database:\n%w", err)
	}
	return &Repository{Db: db}, nil
}

func (r *Repository) Close() error {
	return r.Db.Close()
}

func JobFromReport(rep printer.PrintReport) (Job, error) {
	u, err := uuid.Parse(rep.JobID)
	if err != nil {
		return Job{}, fmt.Errorf("Print job id is not valid:\n%w", err)
	}
	j := Job{
		Uuid:      u,
		Device:    rep.Device,
		Model:     rep.Model,
		Rows:      rep.Rows,
		Frames:    rep.Frames,
		Bytes:     rep.Bytes,
		PrintedAt: rep.Started,
		Duration:  rep.Duration,
	}
	if rep.Err != nil {
		j.Error = rep.Err.Error()
	}
	return j, nil
}

// Observe records a print report, suitable for printer.Session.OnPrint.
// Failures are logged since there's no caller left to return them to.
func (r *Repository) Observe(rep printer.PrintReport) {
	j, err := JobFromReport(rep)
	if err == nil {
		err = r.Transact(func(tx *sql.Tx) error {
			return r.Create(tx, &j)
		})
	}
	if err != nil {
		slog.Error("Couldn't record print job", "job", rep.JobID, "error", err)
	}
}

func (r *Repository) Create(tx *sql.Tx, j *Job) error {
	row := tx.QueryRow(`
    INSERT INTO print_job(uuid, device, model, row_count, frame_count, byte_count, printed_at, duration_ms, error)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    RETURNING id`,
		j.Uuid.String(), j.Device, j.Model, j.Rows, j.Frames, j.Bytes,
		j.PrintedAt.UnixMilli(), j.Duration.Milliseconds(), j.Error)
	if err := row.Scan(&j.Id); err != nil {
		return fmt.Errorf("Failed to insert into print_job:\n%w", err)
	}
	return nil
}

const jobColumns = `id, uuid, device, model, row_count, frame_count, byte_count, printed_at, duration_ms, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner, j *Job) error {
	var uuidString string
	var printedAt, durationMs int64
	if err := s.Scan(&j.Id, &uuidString, &j.Device, &j.Model, &j.Rows, &j.Frames, &j.Bytes,
		&printedAt, &durationMs, &j.Error); err != nil {
		return err
	}
	u, err := uuid.Parse(uuidString)
	if err != nil {
		return fmt.Errorf("Stored job id %q is not valid:\n%w", uuidString, err)
	}
	j.Uuid = u
	j.PrintedAt = time.UnixMilli(printedAt)
	j.Duration = time.Duration(durationMs) * time.Millisecond
	return nil
}

// Returns nil without an error when no job has the id
func (r *Repository) Get(u uuid.UUID) (*Job, error) {
	row := r.Db.QueryRow(`SELECT `+jobColumns+` FROM print_job WHERE uuid = ?`, u.String())

	var j Job
	if err := scanJob(row, &j); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("Failed to read print job:\n%w", err)
	}
	return &j, nil
}

// Lists the most recent jobs first, at most limit of them
func (r *Repository) List(limit int) ([]Job, error) {
	rows, err := r.Db.Query(`
    SELECT `+jobColumns+`
    FROM print_job
    ORDER BY printed_at DESC, id DESC
    LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("Query execution failed:\n%w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		var j Job
		if err := scanJob(rows, &j); err != nil {
			return nil, fmt.Errorf("Row scanning failed:\n%w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Error iterating rows:\n%w", err)
	}
	return jobs, nil
}

// Run operations in a transaction, committing afterward, or rolling back if the
// passed function returns an error
func (r *Repository) Transact(f func(*sql.Tx) error) error {
	tx, err := r.Db.Begin()
	if err != nil {
		return err
	}

	if err = f(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("Failed to roll back transaction: %w\n\nAfter handling: %v", err2, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Failed to commit transaction:\n%w", err)
	}
	return nil
}
