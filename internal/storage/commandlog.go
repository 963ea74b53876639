package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	envCommandLogDBPath = "COMMAND_LOG_DB_PATH"
	defaultDBDirName    = ".energyagent"
	defaultDBFileName   = "records.sqlite"
	commandTableName    = "command_checks"
)

// CommandCheck is one persisted outcome of a device command status check.
type CommandCheck struct {
	RecordID      string
	SettingCode   string
	Success       bool
	ControlResult *bool
	CurrentValue  string
	ErrorMessage  string
	CheckedAt     int64
}

// CommandLog appends command check outcomes to a local SQLite database so
// operators can audit what the agent did to their inverters.
type CommandLog struct {
	db   *sql.DB
	stmt *sql.Stmt
	path string
}

// OpenCommandLog opens (creating if needed) the command log database at
// COMMAND_LOG_DB_PATH, or ~/.energyagent/records.sqlite by default.
func OpenCommandLog() (*CommandLog, error) {
	dbPath, err := resolveDatabasePath()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "storage: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(`INSERT INTO ` + commandTableName + `
		(RecordID, SettingCode, Success, ControlResult, CurrentValue, ErrorMessage, CheckedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "storage: prepare sqlite insert failed")
	}
	return &CommandLog{db: db, stmt: stmt, path: dbPath}, nil
}

// Append records one check outcome. Failures are returned but callers are
// expected to log and continue; the log must never block command handling.
func (l *CommandLog) Append(ctx context.Context, check CommandCheck) error {
	if l == nil || l.db == nil || l.stmt == nil {
		return pkgerrors.New("storage: command log nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if check.CheckedAt == 0 {
		check.CheckedAt = time.Now().Unix()
	}
	var controlResult any
	if check.ControlResult != nil {
		controlResult = *check.ControlResult
	}
	_, err := l.stmt.ExecContext(ctx,
		check.RecordID,
		check.SettingCode,
		check.Success,
		controlResult,
		check.CurrentValue,
		check.ErrorMessage,
		check.CheckedAt,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "storage: sqlite insert failed")
	}
	return nil
}

// Recent returns the newest check outcomes, most recent first.
func (l *CommandLog) Recent(ctx context.Context, limit int) ([]CommandCheck, error) {
	if l == nil || l.db == nil {
		return nil, pkgerrors.New("storage: command log nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `SELECT RecordID, SettingCode, Success, ControlResult, CurrentValue, ErrorMessage, CheckedAt
		FROM `+commandTableName+` ORDER BY CheckedAt DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "storage: query command checks failed")
	}
	defer rows.Close()
	var checks []CommandCheck
	for rows.Next() {
		var (
			check         CommandCheck
			controlResult sql.NullBool
		)
		if err := rows.Scan(&check.RecordID, &check.SettingCode, &check.Success,
			&controlResult, &check.CurrentValue, &check.ErrorMessage, &check.CheckedAt); err != nil {
			return nil, pkgerrors.Wrap(err, "storage: scan command check failed")
		}
		if controlResult.Valid {
			value := controlResult.Bool
			check.ControlResult = &value
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "storage: iterate command checks failed")
	}
	return checks, nil
}

func (l *CommandLog) Close() error {
	if l == nil {
		return nil
	}
	if l.stmt != nil {
		l.stmt.Close()
	}
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func (l *CommandLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func resolveDatabasePath() (string, error) {
	if custom := strings.TrimSpace(os.Getenv(envCommandLogDBPath)); custom != "" {
		if err := ensureDirExists(filepath.Dir(custom)); err != nil {
			return "", err
		}
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "storage: locate user home failed")
	}
	dir := filepath.Join(home, defaultDBDirName)
	if err := ensureDirExists(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBFileName), nil
}

func ensureDirExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return pkgerrors.Wrapf(err, "storage: create dir %s failed", path)
	}
	return nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA busy_timeout=60000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return pkgerrors.Wrapf(err, "storage: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	createTable := `CREATE TABLE IF NOT EXISTS ` + commandTableName + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			RecordID TEXT NOT NULL,
			SettingCode TEXT,
			Success INTEGER NOT NULL DEFAULT 0,
			ControlResult INTEGER,
			CurrentValue TEXT,
			ErrorMessage TEXT,
			CheckedAt INTEGER NOT NULL
		);`
	if _, err := db.Exec(createTable); err != nil {
		return pkgerrors.Wrap(err, "storage: init sqlite schema failed")
	}
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_command_checks_record ON ` + commandTableName + `(RecordID);`,
		`CREATE INDEX IF NOT EXISTS idx_command_checks_checked_at ON ` + commandTableName + `(CheckedAt DESC);`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return pkgerrors.Wrap(err, "storage: init sqlite indexes failed")
		}
	}
	return nil
}

// LogCheckOutcome is a convenience wrapper that opens the log, appends one
// outcome and closes it again. Persistence failures are logged, not returned;
// a broken audit log must not fail the command itself.
func LogCheckOutcome(ctx context.Context, check CommandCheck) {
	commandLog, err := OpenCommandLog()
	if err != nil {
		log.Warn().Err(err).Msg("storage: command log unavailable, outcome not persisted")
		return
	}
	defer commandLog.Close()
	if err := commandLog.Append(ctx, check); err != nil {
		log.Warn().Err(err).Str("record_id", check.RecordID).Msg("storage: append command check failed")
	}
}
