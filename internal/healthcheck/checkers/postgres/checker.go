package postgreschecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatline/chatline/internal/healthcheck"
)

const checkTypePostgres = "postgres.ping"

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker pings the database with a short deadline.
type Checker struct {
	logger  *slog.Logger
	pinger  Pinger
	timeout time.Duration
}

func NewChecker(log *slog.Logger, pinger Pinger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_postgres")),
		pinger:  pinger,
		timeout: 2 * time.Second,
	}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{ID: checkTypePostgres, Type: checkTypePostgres}
	if c.pinger == nil {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Database pool is not available."
		return []healthcheck.CheckResult{item}
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	started := time.Now()
	if err := c.pinger.Ping(pingCtx); err != nil {
		c.logger.Warn("postgres ping failed", slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Database is unreachable."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	item.Status = healthcheck.StatusOK
	item.Summary = "Database is reachable."
	item.Metadata = map[string]any{"latency_ms": time.Since(started).Milliseconds()}
	return []healthcheck.CheckResult{item}
}
