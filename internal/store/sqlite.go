// Package store mirrors the derived tables into a SQLite database for ad hoc SQL access.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/medloom/internal/tables"
)

// SQLiteStore holds the four relations of the latest run.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open creates the database file and schema if they don't exist.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	visit_id TEXT PRIMARY KEY,
	visit_timestamp TEXT NOT NULL,
	branch_name TEXT DEFAULT '',
	area TEXT DEFAULT '',
	patient_id TEXT DEFAULT '',
	patient_name TEXT DEFAULT '',
	gender TEXT DEFAULT '',
	age INTEGER,
	doctor_name TEXT DEFAULT '',
	specialty TEXT DEFAULT '',
	disease_name TEXT DEFAULT ''
);
CREATE TABLE IF NOT EXISTS doctors (
	doctor_id INTEGER PRIMARY KEY,
	doctor_name TEXT NOT NULL UNIQUE,
	specialty TEXT DEFAULT '',
	visit_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS branches (
	branch_id INTEGER PRIMARY KEY,
	branch_name TEXT NOT NULL UNIQUE,
	area TEXT DEFAULT '',
	visit_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS diseases (
	disease_id INTEGER PRIMARY KEY,
	disease_name TEXT NOT NULL UNIQUE,
	category TEXT DEFAULT '',
	case_count INTEGER NOT NULL,
	percentage REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments(doctor_name);
CREATE INDEX IF NOT EXISTS idx_appointments_timestamp ON appointments(visit_timestamp);
`

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Replace swaps the contents of every table for t in a single transaction.
func (s *SQLiteStore) Replace(ctx context.Context, t *tables.Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, name := range []string{"appointments", "doctors", "branches", "diseases"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	if err := insertAppointments(ctx, tx, t); err != nil {
		return err
	}
	for _, d := range t.Doctors {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO doctors (doctor_id, doctor_name, specialty, visit_count) VALUES (?, ?, ?, ?)",
			d.ID, d.Name, d.Specialty, d.Visits); err != nil {
			return fmt.Errorf("insert doctor %q: %w", d.Name, err)
		}
	}
	for _, b := range t.Branches {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO branches (branch_id, branch_name, area, visit_count) VALUES (?, ?, ?, ?)",
			b.ID, b.Name, b.Area, b.Visits); err != nil {
			return fmt.Errorf("insert branch %q: %w", b.Name, err)
		}
	}
	for _, d := range t.Diseases {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO diseases (disease_id, disease_name, category, case_count, percentage) VALUES (?, ?, ?, ?, ?)",
			d.ID, d.Name, d.Category, d.Count, d.Percentage); err != nil {
			return fmt.Errorf("insert disease %q: %w", d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertAppointments(ctx context.Context, tx *sql.Tx, t *tables.Tables) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO appointments
		(visit_id, visit_timestamp, branch_name, area, patient_id, patient_name, gender, age, doctor_name, specialty, disease_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare appointments: %w", err)
	}
	defer stmt.Close()
	for _, a := range t.Appointments {
		var age sql.NullInt64
		if a.Age != nil {
			age = sql.NullInt64{Int64: int64(*a.Age), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			a.VisitID, a.Timestamp.Format(tables.TimestampFormat), a.BranchName, a.Area,
			a.PatientID, a.PatientName, a.Gender, age, a.DoctorName, a.Specialty, a.DiseaseName,
		); err != nil {
			return fmt.Errorf("insert appointment %s: %w", a.VisitID, err)
		}
	}
	return nil
}

// Count returns the number of rows in one of the four tables.
func (s *SQLiteStore) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "appointments", "doctors", "branches", "diseases":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// DoctorVisits returns the visit count of one doctor as recorded in the appointments table.
func (s *SQLiteStore) DoctorVisits(ctx context.Context, doctor string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM appointments WHERE doctor_name = ?", doctor).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("doctor visits: %w", err)
	}
	return n, nil
}
