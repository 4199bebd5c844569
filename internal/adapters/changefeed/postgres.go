package changefeed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/tallerhub/tallerhub/internal/data/pgxutil"
	"github.com/tallerhub/tallerhub/internal/domain/change"
)

// DefaultChannel is the NOTIFY channel used by the tallerhub_notify_change trigger.
const DefaultChannel = "tallerhub_changes"

// PostgresSource listens on a NOTIFY channel over a dedicated pooled connection.
type PostgresSource struct {
	db      *sql.DB
	channel string
	decoder *Decoder
	logger  *slog.Logger
}

// PostgresSourceOptions configure NewPostgresSource.
type PostgresSourceOptions struct {
	DB      *sql.DB
	Channel string
	Decoder *Decoder
	Logger  *slog.Logger
}

// NewPostgresSource constructs a LISTEN/NOTIFY change source.
func NewPostgresSource(opts PostgresSourceOptions) (*PostgresSource, error) {
	if opts.DB == nil {
		return nil, errors.New("changefeed: DB is required")
	}
	dec := opts.Decoder
	if dec == nil {
		var err error
		if dec, err = NewDecoder("", ""); err != nil {
			return nil, err
		}
	}
	channel := opts.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{
		db:      opts.DB,
		channel: channel,
		decoder: dec,
		logger:  logger.With("component", "changefeed", "backend", "postgres"),
	}, nil
}

// Listen blocks delivering events until ctx is done or the connection fails.
func (s *PostgresSource) Listen(ctx context.Context, deliver func(change.Event)) error {
	quoted := pgx.Identifier{s.channel}.Sanitize()

	return pgxutil.WithPgxConn(ctx, s.db, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "LISTEN "+quoted); err != nil {
			return fmt.Errorf("listen %s: %w", s.channel, err)
		}
		defer func() {
			// The pooled connection outlives this listener.
			if _, err := conn.Exec(context.Background(), "UNLISTEN "+quoted); err != nil {
				s.logger.Warn("unlisten failed", "channel", s.channel, "error", err)
			}
		}()

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("wait for notification: %w", err)
			}
			ev, err := s.decoder.Decode([]byte(n.Payload))
			if err != nil {
				s.logger.WarnContext(ctx, "dropping change notification", "payload", n.Payload, "error", err)
				continue
			}
			deliver(ev)
		}
	})
}

// NopPublisher discards events. With the postgres backend the table triggers
// emit notifications, so application writes need not publish.
type NopPublisher struct{}

// Publish implements ports.ChangePublisher.
func (NopPublisher) Publish(context.Context, change.Event) error { return nil }
