package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storelink/internal/apperr"
)

// Conn is the part of *pgx.Conn the handlers use.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// PgConnector opens one unpooled connection per call.
type PgConnector struct {
	URL         string
	TLSInsecure bool
	Timeout     time.Duration
}

var ErrNoDatabaseURL = errors.New("DATABASE_URL not set")

func (c PgConnector) Connect(ctx context.Context) (Conn, error) {
	if c.URL == "" {
		return nil, ErrNoDatabaseURL
	}
	cfg, err := pgx.ParseConfig(c.URL)
	if err != nil {
		return nil, err
	}
	if c.Timeout > 0 {
		cfg.ConnectTimeout = c.Timeout
	}
	if c.TLSInsecure {
		if cfg.TLSConfig != nil {
			cfg.TLSConfig.InsecureSkipVerify = true
		}
		for _, fb := range cfg.Fallbacks {
			if fb.TLSConfig != nil {
				fb.TLSConfig.InsecureSkipVerify = true
			}
		}
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

const closeTimeout = 2 * time.Second

// WithConn connects, runs fn and always closes the connection, including
// when fn fails or panics. timeout bounds the whole scope.
func WithConn(ctx context.Context, c Connector, timeout time.Duration, fn func(ctx context.Context, conn Conn) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := c.Connect(ctx)
	if err != nil {
		return apperr.Persistence("connect to database", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	return fn(ctx, conn)
}
