package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
)

// CommonDB provides shared database functionality
type CommonDB struct {
	db           *sql.DB
	driverName   string
	placeholders PlaceholderFunc
	now          func() time.Time
}

// PlaceholderFunc generates parameter placeholders for different SQL dialects
type PlaceholderFunc func(n int) string

const recordColumns = "id, name, filename, created_at, status, url, stage, cause, updated_at, version"

// Schema is the job record table definition shared by SQLite and PostgreSQL
const Schema = `CREATE TABLE IF NOT EXISTS job_records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	filename TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	status TEXT NOT NULL,
	url TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	cause TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL,
	version BIGINT NOT NULL
)`

// NewCommonDB creates a new CommonDB instance
func NewCommonDB(db *sql.DB, driverName string) *CommonDB {
	var placeholders PlaceholderFunc

	switch driverName {
	case "sqlite3":
		placeholders = func(n int) string { return "?" }
	case "postgres":
		placeholders = func(n int) string { return fmt.Sprintf("$%d", n) }
	default:
		placeholders = func(n int) string { return "?" }
	}

	return &CommonDB{
		db:           db,
		driverName:   driverName,
		placeholders: placeholders,
		now:          time.Now,
	}
}

// EnsureSchema creates the job record table when absent
func (c *CommonDB) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create table failed: %w", err)
	}
	return nil
}

func (c *CommonDB) params(from, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = c.placeholders(from + i)
	}
	return out
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (model.JobRecord, error) {
	var r model.JobRecord
	var status, stage string
	err := row.Scan(&r.ID, &r.Name, &r.Filename, &r.CreatedAt, &status, &r.URL, &stage, &r.Cause, &r.UpdatedAt, &r.Version)
	r.Status = model.JobStatus(status)
	r.Stage = model.Stage(stage)
	return r, err
}

func recordArgs(r model.JobRecord) []interface{} {
	return []interface{}{r.ID, r.Name, r.Filename, r.CreatedAt, string(r.Status), r.URL, string(r.Stage), r.Cause, r.UpdatedAt, r.Version}
}

// Load returns all records ordered by creation time
func (c *CommonDB) Load(ctx context.Context) ([]model.JobRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM job_records ORDER BY created_at, id", recordColumns)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := []model.JobRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedRecordStore, fmt.Sprintf("scan failed: %v", err))
		}
		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

// Save replaces every row inside one transaction
func (c *CommonDB) Save(ctx context.Context, records []model.JobRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM job_records"); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO job_records (%s) VALUES (%s)", recordColumns, strings.Join(c.params(1, 10), ", "))
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, insert, recordArgs(r)...); err != nil {
			return fmt.Errorf("insert failed: %w", err)
		}
	}

	return tx.Commit()
}

// FindByID returns one record or NotFound
func (c *CommonDB) FindByID(ctx context.Context, id string) (*model.JobRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM job_records WHERE id = %s", recordColumns, c.placeholders(1))

	r, err := scanRecord(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &r, nil
}

// Create inserts a new record
func (c *CommonDB) Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error) {
	PrepareNew(&rec, c.now())

	var count int
	exists := fmt.Sprintf("SELECT COUNT(*) FROM job_records WHERE id = %s", c.placeholders(1))
	if err := c.db.QueryRowContext(ctx, exists, rec.ID).Scan(&count); err != nil {
		return model.JobRecord{}, fmt.Errorf("query failed: %w", err)
	}
	if count > 0 {
		return model.JobRecord{}, apperrors.Wrapf(apperrors.ErrConcurrentModification, "job %s already exists", rec.ID)
	}

	insert := fmt.Sprintf("INSERT INTO job_records (%s) VALUES (%s)", recordColumns, strings.Join(c.params(1, 10), ", "))
	if _, err := c.db.ExecContext(ctx, insert, recordArgs(rec)...); err != nil {
		return model.JobRecord{}, fmt.Errorf("insert failed: %w", err)
	}
	return rec, nil
}

// Update performs a read-modify-write guarded by the version column
func (c *CommonDB) Update(ctx context.Context, id string, mutate func(*model.JobRecord) error) (model.JobRecord, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("SELECT %s FROM job_records WHERE id = %s", recordColumns, c.placeholders(1))
	current, err := scanRecord(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return model.JobRecord{}, apperrors.NotFound(id)
	}
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("query failed: %w", err)
	}

	next := current
	if err := mutate(&next); err != nil {
		return model.JobRecord{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version
	Touch(&next, c.now())

	if err := c.updateVersioned(ctx, tx, next, current.Version); err != nil {
		return model.JobRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.JobRecord{}, fmt.Errorf("commit failed: %w", err)
	}
	return next, nil
}

// CompareAndSwap writes rec when the stored version still equals rec.Version
func (c *CommonDB) CompareAndSwap(ctx context.Context, rec model.JobRecord) (model.JobRecord, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback()

	expected := rec.Version
	Touch(&rec, c.now())
	if err := c.updateVersioned(ctx, tx, rec, expected); err != nil {
		return model.JobRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.JobRecord{}, fmt.Errorf("commit failed: %w", err)
	}
	return rec, nil
}

func (c *CommonDB) updateVersioned(ctx context.Context, tx *sql.Tx, rec model.JobRecord, expected int64) error {
	p := c.params(1, 9)
	query := fmt.Sprintf(
		`UPDATE job_records SET name = %s, filename = %s, status = %s, url = %s, stage = %s,
		        cause = %s, updated_at = %s, version = %s
		 WHERE id = %s AND version = %s`,
		p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7], p[8], c.placeholders(10),
	)

	res, err := tx.ExecContext(ctx, query,
		rec.Name, rec.Filename, string(rec.Status), rec.URL, string(rec.Stage),
		rec.Cause, rec.UpdatedAt, rec.Version, rec.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.Wrapf(apperrors.ErrConcurrentModification, "job %s changed since version %d", rec.ID, expected)
	}
	return nil
}

// Delete removes one record
func (c *CommonDB) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM job_records WHERE id = %s", c.placeholders(1))
	res, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(id)
	}
	return nil
}

// Close closes the database connection
func (c *CommonDB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB returns the underlying database connection
func (c *CommonDB) DB() *sql.DB {
	return c.db
}
