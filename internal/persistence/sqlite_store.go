package persistence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore caches line translations and keeps a history of jobs.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS paths always use forward slashes
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *SQLiteStore) GetTranslation(ctx context.Context, source, target, text string) (string, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT translated_text
		 FROM translations
		 WHERE source_lang = ? AND target_lang = ? AND text_hash = ?`,
		source,
		target,
		textHash(text),
	)
	var translated string
	if err := row.Scan(&translated); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return translated, true, nil
}

func (s *SQLiteStore) PutTranslation(ctx context.Context, entry CachedTranslation) error {
	updatedAt := entry.UpdatedAt.UTC()
	if entry.UpdatedAt.IsZero() {
		updatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO translations (
			source_lang, target_lang, text_hash, source_text, translated_text, backend, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_lang, target_lang, text_hash) DO UPDATE SET
			translated_text=excluded.translated_text,
			backend=excluded.backend,
			updated_at=excluded.updated_at`,
		entry.Source,
		entry.Target,
		textHash(entry.Text),
		entry.Text,
		entry.Translated,
		entry.Backend,
		updatedAt,
	)
	return err
}

// DeleteTranslationsBefore prunes cache rows last written before cutoff.
func (s *SQLiteStore) DeleteTranslationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NewJobRecord returns a running job with a fresh id.
func (s *SQLiteStore) NewJobRecord(inputPath, source, target string, lines int) JobRecord {
	now := s.now().UTC()
	return JobRecord{
		ID:        uuid.NewString(),
		InputPath: inputPath,
		Source:    source,
		Target:    target,
		Status:    JobStatusRunning,
		Lines:     lines,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job JobRecord) error {
	if strings.TrimSpace(job.ID) == "" {
		return fmt.Errorf("job id is required")
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = s.now().UTC()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, input_path, output_path, source_lang, target_lang, status, error, lines, cached_lines, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			output_path=excluded.output_path,
			status=excluded.status,
			error=excluded.error,
			lines=excluded.lines,
			cached_lines=excluded.cached_lines,
			updated_at=excluded.updated_at`,
		job.ID,
		job.InputPath,
		job.OutputPath,
		job.Source,
		job.Target,
		string(job.Status),
		job.Error,
		job.Lines,
		job.CachedLines,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

// LoadJobs returns the most recent jobs first. limit <= 0 means all.
func (s *SQLiteStore) LoadJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	query := `SELECT id, input_path, output_path, source_lang, target_lang, status, error, lines, cached_lines, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]JobRecord, 0)
	for rows.Next() {
		var item JobRecord
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.InputPath,
			&item.OutputPath,
			&item.Source,
			&item.Target,
			&status,
			&item.Error,
			&item.Lines,
			&item.CachedLines,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = JobStatus(status)
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
