// Package advisor resolves the owning advisor for a gateway sending address.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"

	"github.com/chatline/chatline/internal/db"
	"github.com/chatline/chatline/internal/db/sqlc"
)

var ErrNotFound = errors.New("advisor not found")

// Advisor is the read-only advisor reference.
type Advisor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	GatewayAddress string `json:"gateway_address"`
}

// Queries is the subset of sqlc.Queries the directory needs.
type Queries interface {
	GetActiveAdvisorByGatewayAddress(ctx context.Context, gatewayAddress string) (sqlc.Advisor, error)
}

// Directory caches active advisors by gateway address. Entries expire after
// the TTL; there is no manual invalidation, so advisor changes show up once
// the entry ages out. Misses are not cached.
type Directory struct {
	queries Queries
	cache   *expirable.LRU[string, Advisor]
	group   singleflight.Group
	logger  *slog.Logger
}

func NewDirectory(log *slog.Logger, queries Queries, size int, ttl time.Duration) *Directory {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Directory{
		queries: queries,
		cache:   expirable.NewLRU[string, Advisor](size, nil, ttl),
		logger:  log.With(slog.String("service", "advisor")),
	}
}

// ByGatewayAddress returns the active advisor that owns address.
func (d *Directory) ByGatewayAddress(ctx context.Context, address string) (Advisor, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Advisor{}, ErrNotFound
	}
	if a, ok := d.cache.Get(address); ok {
		return a, nil
	}
	v, err, _ := d.group.Do(address, func() (any, error) {
		row, err := d.queries.GetActiveAdvisorByGatewayAddress(ctx, address)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Advisor{}, ErrNotFound
			}
			return Advisor{}, fmt.Errorf("lookup advisor: %w", err)
		}
		a := Advisor{
			ID:             db.UUIDToString(row.ID),
			Name:           row.Name,
			GatewayAddress: row.GatewayAddress,
		}
		d.cache.Add(address, a)
		d.logger.Debug("advisor cached", slog.String("address", address), slog.String("advisor_id", a.ID))
		return a, nil
	})
	if err != nil {
		return Advisor{}, err
	}
	return v.(Advisor), nil
}

// Len reports the number of cached entries.
func (d *Directory) Len() int {
	return d.cache.Len()
}
