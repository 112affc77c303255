package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/mnemos/internal/profile"
	"github.com/hrygo/mnemos/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with the DSN from the given profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database with dsn: %s", profile.DSN)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	driver := DB{db: db, profile: profile}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "fail to ping database")
	}

	return &driver, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func marshalJSON(v any) string {
	buf, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

func unmarshalStrings(raw string) []string {
	var out []string
	if raw == "" {
		return out
	}
	// Rows written by older builds may hold malformed JSON; treat them
	// as empty rather than failing the read.
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func unmarshalInt64s(raw string) []int64 {
	var out []int64
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

const schema = `
CREATE TABLE IF NOT EXISTS turn (
	id BIGSERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	thread_id TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	content TEXT NOT NULL,
	agent_tag TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turn_user_thread ON turn (user_id, thread_id, created_ts);

CREATE TABLE IF NOT EXISTS concept (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	topic TEXT NOT NULL,
	canonical TEXT NOT NULL DEFAULT '',
	mention_count INTEGER NOT NULL DEFAULT 1,
	thread_ids TEXT NOT NULL DEFAULT '[]',
	origin_message_id BIGINT NOT NULL DEFAULT 0,
	first_mention_ts BIGINT NOT NULL,
	last_mention_ts BIGINT NOT NULL,
	vitality DOUBLE PRECISION NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_concept_user ON concept (user_id, last_mention_ts);

CREATE TABLE IF NOT EXISTS preference (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	topic TEXT NOT NULL,
	action TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	timeframe TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	entities TEXT NOT NULL DEFAULT '[]',
	source_message_ids TEXT NOT NULL DEFAULT '[]',
	occurrences INTEGER NOT NULL DEFAULT 1,
	surfaced_ts BIGINT,
	captured_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_preference_user ON preference (user_id, confidence);

CREATE TABLE IF NOT EXISTS consolidation (
	thread_id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	turn_count INTEGER NOT NULL DEFAULT 0,
	consolidated_ts BIGINT NOT NULL DEFAULT 0,
	updated_ts BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_summary (
	user_id INTEGER NOT NULL,
	session_id TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	turn_count INTEGER NOT NULL DEFAULT 0,
	updated_ts BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, session_id)
);

CREATE TABLE IF NOT EXISTS memory_event (
	id BIGSERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS metric_bucket (
	bucket_ts BIGINT NOT NULL,
	metric TEXT NOT NULL,
	count BIGINT NOT NULL DEFAULT 0,
	sum DOUBLE PRECISION NOT NULL DEFAULT 0,
	min DOUBLE PRECISION NOT NULL DEFAULT 0,
	max DOUBLE PRECISION NOT NULL DEFAULT 0,
	p50 DOUBLE PRECISION NOT NULL DEFAULT 0,
	p95 DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (bucket_ts, metric)
);
`
