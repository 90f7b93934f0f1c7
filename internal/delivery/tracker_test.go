package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatline/chatline/internal/message"
)

type fakeMessages struct {
	mu      sync.Mutex
	msgs    map[string]*message.Message
	records []message.RecordInput
	getErr  error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{msgs: map[string]*message.Message{
		"SM1": {ID: "m1", GatewaySID: "SM1"},
	}}
}

func (f *fakeMessages) GetByGatewaySID(_ context.Context, sid string) (message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return message.Message{}, f.getErr
	}
	m, ok := f.msgs[sid]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	return *m, nil
}

func (f *fakeMessages) ApplyStatus(_ context.Context, u message.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == u.MessageID {
			m.Status = u.Status
			m.ErrorCode = u.ErrorCode
			now := time.Now()
			switch u.Status {
			case StatusSent:
				m.SentAt = &now
			case StatusDelivered:
				m.DeliveredAt = &now
			case StatusRead:
				m.ReadAt = &now
			case StatusFailed:
				m.FailedAt = &now
			}
		}
	}
	return nil
}

func (f *fakeMessages) AppendStatusRecord(_ context.Context, in message.RecordInput) (message.StatusRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, in)
	return message.StatusRecord{ID: int64(len(f.records)), MessageID: in.MessageID, Status: in.Status}, nil
}

func (f *fakeMessages) ListStatusRecords(_ context.Context, sid string) ([]message.StatusRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []message.StatusRecord
	for i, r := range f.records {
		if r.GatewaySID == sid {
			out = append(out, message.StatusRecord{ID: int64(i + 1), GatewaySID: sid, Status: r.Status, PreviousStatus: r.PreviousStatus})
		}
	}
	return out, nil
}

func newTestTracker(f *fakeMessages) *Tracker {
	return NewTracker(slog.New(slog.NewTextHandler(io.Discard, nil)), f)
}

func TestRankAndShouldApply(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Rank("queued"))
	assert.Equal(t, 4, Rank("READ"))
	assert.Equal(t, 5, Rank("undelivered"))
	assert.Equal(t, 0, Rank("accepted"))
	assert.Equal(t, StatusFailed, Normalize(" Undelivered "))

	tests := []struct {
		current, next string
		want          bool
	}{
		{"", "queued", true},
		{"sent", "delivered", true},
		{"read", "delivered", false},
		{"delivered", "delivered", false},
		{"read", "failed", true},
		{"failed", "failed", true},
		{"failed", "read", false},
		{"read", "undelivered", true},
		{"sent", "accepted", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldApply(tt.current, tt.next), "%s -> %s", tt.current, tt.next)
	}
}

func TestOutOfOrderCallbacksEndOnRead(t *testing.T) {
	t.Parallel()

	f := newFakeMessages()
	tr := newTestTracker(f)
	ctx := context.Background()

	for _, status := range []string{"delivered", "sent", "read"} {
		raw, _ := json.Marshal(map[string]string{"MessageSid": "SM1", "MessageStatus": status})
		_, err := tr.OnStatusCallback(ctx, Callback{SID: "SM1", Status: status, Raw: raw})
		require.NoError(t, err)
	}

	assert.Equal(t, StatusRead, f.msgs["SM1"].Status)
	assert.Nil(t, f.msgs["SM1"].SentAt, "sent arrived after delivered and must not apply")
	require.Len(t, f.records, 3)
	assert.Equal(t, []string{"delivered", "sent", "read"}, []string{f.records[0].Status, f.records[1].Status, f.records[2].Status})
	assert.Equal(t, []string{"", "delivered", "delivered"}, []string{f.records[0].PreviousStatus, f.records[1].PreviousStatus, f.records[2].PreviousStatus})
	assert.NotEmpty(t, f.records[0].RawPayload)
}

func TestErrorStatusAlwaysOverwrites(t *testing.T) {
	t.Parallel()

	f := newFakeMessages()
	f.msgs["SM1"].Status = StatusRead
	tr := newTestTracker(f)

	out, err := tr.OnStatusCallback(context.Background(), Callback{SID: "SM1", Status: "undelivered", ErrorCode: "63016", ErrorMessage: "outside window"})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, StatusRead, out.Previous)
	assert.Equal(t, StatusFailed, f.msgs["SM1"].Status)
	assert.Equal(t, "63016", f.msgs["SM1"].ErrorCode)
	assert.NotNil(t, f.msgs["SM1"].FailedAt)
}

func TestOrphanCallback(t *testing.T) {
	t.Parallel()

	f := newFakeMessages()
	tr := newTestTracker(f)

	out, err := tr.OnStatusCallback(context.Background(), Callback{SID: "SM404", Status: "delivered"})
	require.NoError(t, err)
	assert.True(t, out.Orphan)
	assert.Empty(t, f.records)

	out, err = tr.OnStatusCallback(context.Background(), Callback{Status: "delivered"})
	require.NoError(t, err)
	assert.True(t, out.Orphan)
}

func TestCallbackStorageError(t *testing.T) {
	t.Parallel()

	f := newFakeMessages()
	f.getErr = errors.New("db down")
	_, err := newTestTracker(f).OnStatusCallback(context.Background(), Callback{SID: "SM1", Status: "sent"})
	assert.ErrorIs(t, err, f.getErr)
}

func TestTimeline(t *testing.T) {
	t.Parallel()

	f := newFakeMessages()
	tr := newTestTracker(f)
	ctx := context.Background()

	_, err := tr.Timeline(ctx, "SM1")
	require.NoError(t, err)

	for _, s := range []string{"sent", "delivered"} {
		_, err := tr.OnStatusCallback(ctx, Callback{SID: "SM1", Status: s})
		require.NoError(t, err)
	}
	tl, err := tr.Timeline(ctx, "SM1")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, tl.CurrentStatus)
	assert.Len(t, tl.StatusHistory, 2)
	assert.NotNil(t, tl.Timeline.Sent)
	assert.NotNil(t, tl.Timeline.Delivered)
	assert.Nil(t, tl.Timeline.Read)

	raw, err := json.Marshal(tl)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"currentStatus", "message", "statusHistory", "timeline"} {
		assert.Contains(t, decoded, key)
	}

	_, err = tr.Timeline(ctx, "SM404")
	assert.ErrorIs(t, err, message.ErrNotFound)
}
