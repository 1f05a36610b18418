package eventlog

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS webhook_events (
	message_id   TEXT PRIMARY KEY,
	sender_phone TEXT NOT NULL,
	message_type TEXT NOT NULL,
	disposition  TEXT NOT NULL,
	received_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists events in Postgres, deduplicating on the
// message id primary key.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn and ensures the events table
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, Registry.New(ErrConnectionFailed).WithCause(err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, Registry.New(ErrConnectionFailed).WithCause(err).WithDetail("operation", "ensure_schema")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Record(ctx context.Context, ev Event) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_events (message_id, sender_phone, message_type, disposition, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO NOTHING`,
		ev.MessageID, ev.SenderPhone, ev.MessageType, ev.Disposition, ev.ReceivedAt)
	if err != nil {
		return false, Registry.New(ErrRecordFailed).WithCause(err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, Registry.New(ErrRecordFailed).WithCause(err)
	}
	return inserted == 0, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	return s.db.Close()
}
