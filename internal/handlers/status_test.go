package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatline/chatline/internal/delivery"
	"github.com/chatline/chatline/internal/healthcheck"
	"github.com/chatline/chatline/internal/message"
	"github.com/chatline/chatline/internal/storage"
	"github.com/chatline/chatline/internal/storage/providers/localfs"
)

type fakeTimelines struct {
	byID map[string]delivery.Timeline
	err  error
}

func (f fakeTimelines) Timeline(_ context.Context, sid string) (delivery.Timeline, error) {
	if f.err != nil {
		return delivery.Timeline{}, f.err
	}
	tl, ok := f.byID[sid]
	if !ok {
		return delivery.Timeline{}, fmt.Errorf("load message %s: %w", sid, message.ErrNotFound)
	}
	return tl, nil
}

func TestMessageStatus(t *testing.T) {
	t.Parallel()

	sent := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timelines := fakeTimelines{byID: map[string]delivery.Timeline{
		"SM1": {
			CurrentStatus: "delivered",
			Message:       message.Message{ID: "m1", GatewaySID: "SM1", Status: "delivered"},
			StatusHistory: []message.StatusRecord{{GatewaySID: "SM1", Status: "sent"}, {GatewaySID: "SM1", Status: "delivered", PreviousStatus: "sent"}},
			Timeline:      delivery.Timestamps{Sent: &sent},
		},
	}}
	e := newTestEcho(NewStatusHandler(testLogger(), timelines))

	cases := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "found", path: "/message-status/SM1", wantCode: http.StatusOK, wantBody: `"currentStatus":"delivered"`},
		{name: "missing", path: "/message-status/SM404", wantCode: http.StatusNotFound, wantBody: `"error":"Message not found"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestMessageStatusTimelineShape(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewStatusHandler(testLogger(), fakeTimelines{byID: map[string]delivery.Timeline{
		"SM2": {CurrentStatus: "sent", StatusHistory: []message.StatusRecord{}},
	}}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/message-status/SM2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"currentStatus", "message", "statusHistory", "timeline"} {
		assert.Contains(t, body, key)
	}
	assert.JSONEq(t, `[]`, string(body["statusHistory"]))
}

func TestMessageStatusStorageError(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewStatusHandler(testLogger(), fakeTimelines{err: errors.New("db down")}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/message-status/SM1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type staticChecker []healthcheck.CheckResult

func (s staticChecker) ListChecks(context.Context) []healthcheck.CheckResult { return s }

func TestHealth(t *testing.T) {
	t.Parallel()

	h := NewPingHandler(testLogger(), staticChecker{
		{ID: "postgres", Type: "database", Status: healthcheck.StatusOK},
		{ID: "gateway", Type: "gateway", Status: healthcheck.StatusWarn, Summary: "status callback not configured"},
	})
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	e := newTestEcho(h)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                      `json:"success"`
		Message string                    `json:"message"`
		Status  string                    `json:"status"`
		Checks  []healthcheck.CheckResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Health check - 2026-03-01T12:00:00Z", body.Message)
	assert.Equal(t, healthcheck.StatusWarn, body.Status)
	assert.Len(t, body.Checks, 2)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMediaServe(t *testing.T) {
	t.Parallel()

	objects, err := localfs.New(t.TempDir(), "https://chat.example.com/media")
	require.NoError(t, err)
	_, err = objects.Put(context.Background(), "documents/menu.pdf", strings.NewReader("%PDF-1.4"), storage.PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)
	e := newTestEcho(NewMediaHandler(testLogger(), objects))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/documents/menu.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	for _, path := range []string{"/media/documents/none.pdf", "/media/"} {
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
