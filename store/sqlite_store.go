package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/models"
)

var _ Store = (*SQLiteStore)(nil)

//go:embed schema/migrations/*.sql
var migrations embed.FS

const (
	migrationsDir   = "schema/migrations"
	defaultDebounce = 5 * time.Second
	timeLayout      = "2006-01-02T15:04:05.000000000Z07:00"
)

type SQLiteStore struct {
	mu           sync.RWMutex
	db           *sql.DB
	dsn          string
	snapshotPath string
	logger       logger.Logger
	clock        clock.Clock

	// Debounced flush
	flushDebounce time.Duration
	flushTimer    *time.Timer
	flushMu       sync.Mutex
	dirty         bool

	// Bumped by every scheduleFlush; a flush only clears dirty if no save
	// happened while it ran.
	generation uint64

	ctx    context.Context
	cancel context.CancelFunc
}

type Params struct {
	Config Config
	Logger logger.Logger
	Clock  clock.Clock
}

func NewSQLiteStore(p Params) *SQLiteStore {
	cfg := p.Config
	cfg.Defaults()

	c := p.Clock
	if c == nil {
		c = clock.System()
	}

	return &SQLiteStore{
		// Each store gets its own named in-memory database.
		dsn:           fmt.Sprintf("file:leetcode_tracker_%s?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000", uuid.NewString()),
		snapshotPath:  cfg.Path,
		flushDebounce: cfg.FlushDebounce,
		logger:        logger.OrNop(p.Logger),
		clock:         c,
	}
}

// SetFlushDebounce sets the debounce duration for disk flushes.
// Must be called before Open().
func (s *SQLiteStore) SetFlushDebounce(d time.Duration) {
	s.flushDebounce = d
}

func (s *SQLiteStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	database, err := sql.Open("sqlite3", s.dsn)
	if err != nil {
		return err
	}
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	if err = database.PingContext(ctx); err != nil {
		_ = database.Close()
		return err
	}

	s.db = database
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s.applyMigrations(ctx)
}

// Close closes the database without flushing. Use Shutdown for graceful shutdown.
func (s *SQLiteStore) Close() error {
	s.flushMu.Lock()
	s.stopFlushTimer()
	s.flushMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Shutdown performs a final flush to disk and closes the database.
func (s *SQLiteStore) Shutdown(ctx context.Context) error {
	s.flushMu.Lock()
	s.stopFlushTimer()
	dirty := s.dirty
	s.flushMu.Unlock()

	if dirty && s.snapshotPath != "" {
		if err := s.FlushToDisk(ctx, s.snapshotPath); err != nil {
			s.logger.ErrorW("shutdown flush failed", "path", s.snapshotPath, "error", err)
		}
	}

	return s.Close()
}

func (s *SQLiteStore) RestoreFromDisk(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrNotOpen
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	fileDB, err := sql.Open("sqlite3", sqliteFileDSN(path))
	if err != nil {
		return err
	}
	defer fileDB.Close()

	if err := s.backup(ctx, fileDB, s.db); err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}

	s.logger.InfoW("run history restored", "path", path)
	return s.applyMigrations(ctx)
}

func (s *SQLiteStore) FlushToDisk(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked(ctx, path)
}

func (s *SQLiteStore) scheduleFlush() {
	if s.snapshotPath == "" {
		return
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.dirty = true
	s.generation++
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}

	s.flushTimer = time.AfterFunc(s.flushDebounce, s.performScheduledFlush)
}

func (s *SQLiteStore) performScheduledFlush() {
	s.flushMu.Lock()
	if !s.dirty {
		s.flushMu.Unlock()
		return
	}
	gen := s.generation
	s.flushMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	if err := s.FlushToDisk(ctx, s.snapshotPath); err != nil {
		s.logger.ErrorW("scheduled flush failed", "path", s.snapshotPath, "error", err)
		return
	}
	s.markFlushed(gen)
}

// markFlushed clears dirty when no save has been scheduled since gen was
// read.
func (s *SQLiteStore) markFlushed(gen uint64) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if s.generation == gen {
		s.dirty = false
	}
}

func (s *SQLiteStore) stopFlushTimer() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
}

// SaveRun writes a run with its records and failures in one transaction and
// returns the run ID. A missing ID is generated and a zero CompletedAt is
// taken from the store clock.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return "", ErrNotOpen
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = s.clock.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.CompletedAt
	}

	s.logger.DebugW("saving run",
		"run_id", run.ID,
		"records", len(run.Result.Records),
		"failures", len(run.Result.Failures),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.ErrorW("failed to begin transaction", "error", err)
		return "", err
	}

	if err := insertRun(ctx, tx, run); err != nil {
		_ = tx.Rollback()
		s.logger.ErrorW("failed to save run", "run_id", run.ID, "error", err)
		return "", err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorW("failed to commit transaction", "error", err)
		return "", err
	}

	s.scheduleFlush()
	return run.ID, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	query, args, err := sq.Insert("runs").
		Columns("id", "started_at", "completed_at", "identities", "record_count", "failure_count").
		Values(
			run.ID,
			formatTime(run.StartedAt),
			formatTime(run.CompletedAt),
			run.Result.Total(),
			len(run.Result.Records),
			len(run.Result.Failures),
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Result.Records) > 0 {
		insert := sq.Insert("profile_records").
			Columns("run_id", "position", "username", "reputation", "solved", "ranking", "badges")
		for i, r := range run.Result.Records {
			badges, err := json.Marshal(nonNil(r.Badges))
			if err != nil {
				return fmt.Errorf("encode badges for %s: %w", r.Identity, err)
			}
			insert = insert.Values(run.ID, i, r.Identity.String(),
				nullStat(r.Reputation), nullStat(r.Solved), nullStat(r.Ranking), string(badges))
		}
		if err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
	}

	if len(run.Result.Failures) > 0 {
		insert := sq.Insert("failures").Columns("run_id", "position", "username", "reason")
		for i, f := range run.Result.Failures {
			insert = insert.Values(run.ID, i, f.Identity, f.Reason)
		}
		if err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert failures: %w", err)
		}
	}
	return nil
}

func execBuilder(ctx context.Context, tx *sql.Tx, b sq.InsertBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// ListRuns returns run summaries, most recently completed first. A
// non-positive limit returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotOpen
	}

	builder := sq.Select("id", "started_at", "completed_at", "identities", "record_count", "failure_count").
		From("runs").
		OrderBy("completed_at DESC", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorW("failed to list runs", "error", err)
		return nil, err
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var (
			row                  RunSummary
			startedAt, completed string
		)
		if err := rows.Scan(&row.ID, &startedAt, &completed, &row.Identities, &row.RecordCount, &row.FailureCount); err != nil {
			return nil, err
		}
		if row.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if row.CompletedAt, err = parseTime(completed); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListRecords returns the records of a run in the order they were saved.
func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]models.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotOpen
	}

	query, args, err := sq.Select("username", "reputation", "solved", "ranking", "badges").
		From("profile_records").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorW("failed to list records", "run_id", runID, "error", err)
		return nil, err
	}
	defer rows.Close()

	out := []models.ProfileRecord{}
	for rows.Next() {
		var (
			username                    string
			reputation, solved, ranking sql.NullFloat64
			badges                      string
		)
		if err := rows.Scan(&username, &reputation, &solved, &ranking, &badges); err != nil {
			return nil, err
		}
		rec := models.ProfileRecord{
			Identity:   models.Identity(username),
			Reputation: statFromNull(reputation),
			Solved:     statFromNull(solved),
			Ranking:    statFromNull(ranking),
			Badges:     []string{},
		}
		if err := json.Unmarshal([]byte(badges), &rec.Badges); err != nil {
			return nil, fmt.Errorf("decode badges for %s: %w", username, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListFailures returns the failures of a run in the order they were saved.
func (s *SQLiteStore) ListFailures(ctx context.Context, runID string) ([]models.Failure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotOpen
	}

	query, args, err := sq.Select("username", "reason").
		From("failures").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Failure{}
	for rows.Next() {
		var f models.Failure
		if err := rows.Scan(&f.Identity, &f.Reason); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) flushLocked(ctx context.Context, path string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	fileDB, err := sql.Open("sqlite3", sqliteFileDSN(path))
	if err != nil {
		return err
	}
	defer fileDB.Close()

	if err := s.backup(ctx, s.db, fileDB); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	s.logger.DebugW("run history flushed", "path", path)
	return nil
}

func (s *SQLiteStore) backup(ctx context.Context, src *sql.DB, dst *sql.DB) error {
	srcConn, err := src.Conn(ctx)
	if err != nil {
		return err
	}
	defer srcConn.Close()

	dstConn, err := dst.Conn(ctx)
	if err != nil {
		return err
	}
	defer dstConn.Close()

	return dstConn.Raw(func(dstDriver any) error {
		return srcConn.Raw(func(srcDriver any) error {
			dstSQLite, ok := dstDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected destination driver: %T", dstDriver)
			}
			srcSQLite, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected source driver: %T", srcDriver)
			}

			backup, err := dstSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return err
			}
			defer backup.Finish()

			_, err = backup.Step(-1)
			return err
		})
	})
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	if s.db == nil {
		return ErrNotOpen
	}

	entries, err := fs.ReadDir(migrations, migrationsDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		content, err := fs.ReadFile(migrations, path.Join(migrationsDir, name))
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(content))
		if sqlText == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func sqliteFileDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func nullStat(s models.Stat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: s.Value, Valid: s.Valid}
}

func statFromNull(n sql.NullFloat64) models.Stat {
	if !n.Valid {
		return models.Stat{}
	}
	return models.Available(n.Float64)
}

func nonNil(badges []string) []string {
	if badges == nil {
		return []string{}
	}
	return badges
}
