// Package audit keeps a journal of every remote command in SQLite.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/dimsync/pkg/models"
)

// Logger writes and queries journal entries in a dedicated SQLite database.
type Logger struct {
	db      *sql.DB
	cfg     models.AuditConfig
	done    chan struct{}
	wg      sync.WaitGroup
	include map[string]bool
}

// New opens the journal database and creates the schema. An empty DBPath or
// ":memory:" keeps the journal in process memory.
func New(cfg models.AuditConfig) (*Logger, error) {
	inMemory := cfg.DBPath == "" || cfg.DBPath == ":memory:"
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if inMemory {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	inc := make(map[string]bool)
	for _, v := range cfg.Include {
		inc[v] = true
	}

	l := &Logger{
		db:      db,
		cfg:     cfg,
		done:    make(chan struct{}),
		include: inc,
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS command_log (
		id            TEXT PRIMARY KEY,
		namespace     TEXT NOT NULL,
		command       TEXT NOT NULL,
		outcome       TEXT NOT NULL,
		message       TEXT,
		request_body  TEXT,
		response_body TEXT,
		latency_ms    INTEGER,
		created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_command_log_command ON command_log(command)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_command_log_created ON command_log(created_at)`)
	return err
}

// Log inserts a journal entry. Bodies are kept only when listed in
// Include and are truncated to MaxBodySize.
func (l *Logger) Log(ctx context.Context, entry models.CommandEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	reqBody := entry.RequestBody
	respBody := entry.ResponseBody
	if !l.include["requests"] {
		reqBody = ""
	}
	if !l.include["responses"] {
		respBody = ""
	}
	if l.cfg.MaxBodySize > 0 {
		if len(reqBody) > l.cfg.MaxBodySize {
			reqBody = reqBody[:l.cfg.MaxBodySize]
		}
		if len(respBody) > l.cfg.MaxBodySize {
			respBody = respBody[:l.cfg.MaxBodySize]
		}
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO command_log
		(id, namespace, command, outcome, message, request_body, response_body, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Namespace, entry.Command, entry.Outcome, entry.Message,
		reqBody, respBody, entry.LatencyMs, entry.CreatedAt.UTC(),
	)
	return err
}

// Query returns journal entries matching opts, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.CommandEntry, error) {
	q := `SELECT id, namespace, command, outcome, message, request_body, response_body, latency_ms, created_at
		FROM command_log WHERE 1=1`
	var args []any

	if opts.ID != "" {
		q += " AND id = ?"
		args = append(args, opts.ID)
	}
	if opts.Command != "" {
		q += " AND command = ?"
		args = append(args, opts.Command)
	}
	if opts.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, opts.Outcome)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY created_at DESC, rowid DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.CommandEntry
	for rows.Next() {
		var e models.CommandEntry
		var message, reqBody, respBody sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Namespace, &e.Command, &e.Outcome, &message,
			&reqBody, &respBody, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Message = message.String
		e.RequestBody = reqBody.String
		e.ResponseBody = respBody.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns entry counts grouped by command and outcome.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT command, outcome, count(*) AS cnt
		 FROM command_log GROUP BY command, outcome ORDER BY command, outcome`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		if err := rows.Scan(&s.Command, &s.Outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays).UTC()
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM command_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
