package advisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatline/chatline/internal/db"
	"github.com/chatline/chatline/internal/db/sqlc"
)

type fakeQueries struct {
	calls atomic.Int32
	rows  map[string]sqlc.Advisor
	err   error
	delay time.Duration
}

func (f *fakeQueries) GetActiveAdvisorByGatewayAddress(_ context.Context, address string) (sqlc.Advisor, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return sqlc.Advisor{}, f.err
	}
	row, ok := f.rows[address]
	if !ok {
		return sqlc.Advisor{}, pgx.ErrNoRows
	}
	return row, nil
}

func newFake(t *testing.T) *fakeQueries {
	t.Helper()
	id, err := db.ParseUUID("0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, err)
	return &fakeQueries{rows: map[string]sqlc.Advisor{
		"+5742044644": {ID: id, Name: "Luis", GatewayAddress: "+5742044644", IsActive: true},
	}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestByGatewayAddressCaches(t *testing.T) {
	t.Parallel()

	q := newFake(t)
	d := NewDirectory(testLogger(), q, 8, time.Hour)

	a, err := d.ByGatewayAddress(context.Background(), "+5742044644")
	require.NoError(t, err)
	assert.Equal(t, Advisor{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Name: "Luis", GatewayAddress: "+5742044644"}, a)

	_, err = d.ByGatewayAddress(context.Background(), " +5742044644 ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), q.calls.Load())
	assert.Equal(t, 1, d.Len())
}

func TestByGatewayAddressExpires(t *testing.T) {
	t.Parallel()

	q := newFake(t)
	d := NewDirectory(testLogger(), q, 8, 20*time.Millisecond)

	_, err := d.ByGatewayAddress(context.Background(), "+5742044644")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = d.ByGatewayAddress(context.Background(), "+5742044644")
	require.NoError(t, err)
	assert.Equal(t, int32(2), q.calls.Load())
}

func TestByGatewayAddressNotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	q := newFake(t)
	d := NewDirectory(testLogger(), q, 8, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := d.ByGatewayAddress(context.Background(), "+10000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(2), q.calls.Load())

	_, err := d.ByGatewayAddress(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), q.calls.Load())
}

func TestByGatewayAddressWrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	d := NewDirectory(testLogger(), &fakeQueries{err: boom}, 8, time.Hour)
	_, err := d.ByGatewayAddress(context.Background(), "+5742044644")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestByGatewayAddressCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()

	q := newFake(t)
	q.delay = 50 * time.Millisecond
	d := NewDirectory(testLogger(), q, 8, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.ByGatewayAddress(context.Background(), "+5742044644")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, q.calls.Load(), int32(2))
}
