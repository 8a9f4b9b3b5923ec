// internal/model/event_store.go

package model

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/godror/godror"
	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"folderMon/internal/monitor"
)

// init loads environment variables from .env (if present).
func init() {
	_ = godotenv.Load()
}

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	driver      string
	placeholder func(n int) string
	quote       func(ident string) string
	createTable string
}

var postgresDialect = dialect{
	driver:      "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	quote:       pq.QuoteIdentifier,
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		event_type TEXT NOT NULL,
		path TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		snapshot_time TIMESTAMPTZ,
		line TEXT NOT NULL
	)`,
}

var oracleDialect = dialect{
	driver:      "godror",
	placeholder: func(n int) string { return fmt.Sprintf(":%d", n) },
	quote:       func(ident string) string { return strings.ToUpper(ident) },
	createTable: `CREATE TABLE %s (
		id NUMBER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		event_type VARCHAR2(16) NOT NULL,
		path VARCHAR2(4000) NOT NULL,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
		snapshot_time TIMESTAMP WITH TIME ZONE,
		line VARCHAR2(4000) NOT NULL
	)`,
}

// EventStore mirrors change events into a SQL table. It implements
// monitor.EventSink.
type EventStore struct {
	db        *sql.DB
	tableName string
	dialect   dialect
}

// NewPostgresEventStore reads PG_* variables and connects with lib/pq.
func NewPostgresEventStore() (*EventStore, error) {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASS")
	dbname := envOr("PG_DB", "postgres")
	tableName := envOr("PG_EVENTS_TABLE", "folder_events")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if pass != "" {
		connStr += fmt.Sprintf(" password=%s", pass)
	}

	return openEventStore(postgresDialect, connStr, tableName)
}

// NewOracleEventStore reads ORACLE_USER, ORACLE_PASS, ORACLE_DSN from env and
// connects with godror.
func NewOracleEventStore() (*EventStore, error) {
	user := os.Getenv("ORACLE_USER")
	pass := os.Getenv("ORACLE_PASS")
	dsn := os.Getenv("ORACLE_DSN")

	if user == "" || pass == "" || dsn == "" {
		return nil, fmt.Errorf("ORACLE_USER, ORACLE_PASS, and ORACLE_DSN environment variables must be set")
	}
	tableName := envOr("ORACLE_EVENTS_TABLE", "FOLDER_EVENTS")

	connStr := fmt.Sprintf(`user="%s" password="%s" connectString="%s"`, user, pass, dsn)
	return openEventStore(oracleDialect, connStr, tableName)
}

func openEventStore(d dialect, connStr, tableName string) (*EventStore, error) {
	db, err := sql.Open(d.driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	store := &EventStore{db: db, tableName: tableName, dialect: d}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return store, nil
}

// initialize creates the events table if needed
func (s *EventStore) initialize() error {
	_, err := s.db.Exec(fmt.Sprintf(s.dialect.createTable, s.dialect.quote(s.tableName)))
	if err != nil && s.dialect.driver == "godror" && strings.Contains(err.Error(), "ORA-00955") {
		// name is already used by an existing object
		return nil
	}
	return err
}

// insertQuery builds the parameterized INSERT for one event row.
func (s *EventStore) insertQuery() string {
	p := s.dialect.placeholder
	return fmt.Sprintf(
		"INSERT INTO %s (event_type, path, occurred_at, snapshot_time, line) VALUES (%s, %s, %s, %s, %s)",
		s.dialect.quote(s.tableName), p(1), p(2), p(3), p(4), p(5))
}

// SaveEvents inserts a batch in one transaction, preserving order.
func (s *EventStore) SaveEvents(ctx context.Context, events []monitor.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insertQuery())
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		var snapshot sql.NullTime
		if !ev.SnapshotTime.IsZero() {
			snapshot = sql.NullTime{Time: ev.SnapshotTime, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, string(ev.Type), ev.Path, ev.Timestamp, snapshot, ev.String()); err != nil {
			return fmt.Errorf("failed to insert event for %s: %w", ev.Path, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *EventStore) Close() error {
	return s.db.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
