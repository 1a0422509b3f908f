// Package wrds provides the Postgres-backed connection client for WRDS
// TAQ data. WRDS exposes its historical libraries over the Postgres wire
// protocol, so the client is a pgx connection pool wrapped with dial
// backoff and a query rate limiter for the shared cluster.
//
// The client satisfies taq.Querier; the fetch layer consumes only that
// capability and never manages the pool's lifecycle.
package wrds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/quantbench/taqload/internal/taq"
)

// Config is the WRDS connection configuration.
type Config struct {
	Host     string `json:"host" env:"WRDS_HOST"`
	Port     int    `json:"port" env:"WRDS_PORT"`
	Database string `json:"database" env:"WRDS_DATABASE"`
	Username string `json:"username" env:"WRDS_USERNAME"`
	Password string `json:"password" env:"WRDS_PASSWORD"`
	SSLMode  string `json:"sslmode" env:"WRDS_SSLMODE"`

	// Connection pool settings
	MaxConns        int32         `json:"max_conns"`
	MinConns        int32         `json:"min_conns"`
	MaxConnLifetime time.Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `json:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `json:"connect_timeout"`

	// DialMaxElapsed bounds the exponential backoff spent establishing and
	// verifying the initial connection.
	DialMaxElapsed time.Duration `json:"dial_max_elapsed"`

	// QueriesPerSecond and Burst throttle outbound queries. The WRDS
	// clusters are shared; zero QueriesPerSecond disables throttling.
	QueriesPerSecond float64 `json:"queries_per_second"`
	Burst            int     `json:"burst"`

	// RetryAttempts is the number of tries per query for transient
	// failures. 1 keeps the fetch contract single-shot.
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
}

// DefaultConfig targets the WRDS cloud Postgres endpoint with a small pool
// and single-shot queries.
func DefaultConfig() Config {
	return Config{
		Host:             "wrds-pgdata.wharton.upenn.edu",
		Port:             9737,
		Database:         "wrds",
		SSLMode:          "require",
		MaxConns:         4,
		MinConns:         1,
		MaxConnLifetime:  time.Hour,
		MaxConnIdleTime:  30 * time.Minute,
		ConnectTimeout:   10 * time.Second,
		DialMaxElapsed:   time.Minute,
		QueriesPerSecond: 2,
		Burst:            1,
		RetryAttempts:    1,
		RetryDelay:       500 * time.Millisecond,
	}
}

// ConnString builds the pgx connection string.
func (c Config) ConnString() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, sslmode)
}

// Validate checks the fields the client depends on.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("database cannot be empty")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	return nil
}

// Client is a pooled WRDS connection.
type Client struct {
	pool    *pgxpool.Pool
	limiter *rate.Limiter
	cfg     Config
	logger  *slog.Logger
}

// Client satisfies the fetch layer's query capability.
var _ taq.Querier = (*Client)(nil)

// Connect establishes and verifies a WRDS connection, retrying the initial
// ping with exponential backoff up to cfg.DialMaxElapsed.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wrds config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse wrds connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create wrds pool: %w", err)
	}

	dial := backoff.NewExponentialBackOff()
	dial.MaxElapsedTime = cfg.DialMaxElapsed
	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			logger.Debug("wrds ping failed, retrying", "host", cfg.Host, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(dial, ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach wrds at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	var limiter *rate.Limiter
	if cfg.QueriesPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), burst)
	}

	logger.Info("connected to wrds", "host", cfg.Host, "database", cfg.Database)
	return &Client{pool: pool, limiter: limiter, cfg: cfg, logger: logger}, nil
}

// Query executes a parameterized statement and returns its rows. Queries
// pass through the rate limiter; transient connection failures are retried
// up to cfg.RetryAttempts times.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (taq.Rows, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait failed: %w", err)
			}
		}

		rows, err := c.pool.Query(ctx, sql, args...)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if attempt == c.cfg.RetryAttempts || !pgconn.SafeToRetry(err) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("transient query failure, retrying",
			"attempt", attempt, "max_attempts", c.cfg.RetryAttempts, "error", err)
		select {
		case <-time.After(c.cfg.RetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close releases the pool. The caller that opened the client owns this.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
