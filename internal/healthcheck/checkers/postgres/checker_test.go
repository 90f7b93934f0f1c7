package postgreschecker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/chatline/chatline/internal/healthcheck"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckerListChecks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		pinger Pinger
		want   string
	}{
		{name: "ok", pinger: fakePinger{}, want: healthcheck.StatusOK},
		{name: "down", pinger: fakePinger{err: errors.New("connection refused")}, want: healthcheck.StatusError},
		{name: "missing", pinger: nil, want: healthcheck.StatusWarn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			items := NewChecker(newTestLogger(), tc.pinger).ListChecks(context.Background())
			if len(items) != 1 {
				t.Fatalf("expected one item, got %d", len(items))
			}
			if items[0].Status != tc.want {
				t.Fatalf("status = %q, want %q", items[0].Status, tc.want)
			}
		})
	}
}
