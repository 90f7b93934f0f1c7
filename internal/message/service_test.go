package message

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/chatline/chatline/internal/db"
	"github.com/chatline/chatline/internal/db/sqlc"
)

type fakeQueries struct {
	message sqlc.Message
	applied []sqlc.ApplyMessageStatusParams
	history []sqlc.MessageStatusHistory
	err     error
}

func (f *fakeQueries) GetMessageByGatewaySID(_ context.Context, sid pgtype.Text) (sqlc.Message, error) {
	if f.err != nil {
		return sqlc.Message{}, f.err
	}
	if !f.message.GatewaySid.Valid || f.message.GatewaySid != sid {
		return sqlc.Message{}, pgx.ErrNoRows
	}
	return f.message, nil
}

func (f *fakeQueries) ApplyMessageStatus(_ context.Context, arg sqlc.ApplyMessageStatusParams) error {
	f.applied = append(f.applied, arg)
	return f.err
}

func (f *fakeQueries) CreateMessageStatusHistory(_ context.Context, arg sqlc.CreateMessageStatusHistoryParams) (sqlc.MessageStatusHistory, error) {
	if f.err != nil {
		return sqlc.MessageStatusHistory{}, f.err
	}
	row := sqlc.MessageStatusHistory{
		ID:             int64(len(f.history) + 1),
		MessageID:      arg.MessageID,
		GatewaySid:     arg.GatewaySid,
		Status:         arg.Status,
		PreviousStatus: arg.PreviousStatus,
		ErrorCode:      arg.ErrorCode,
		ErrorMessage:   arg.ErrorMessage,
		RawPayload:     arg.RawPayload,
		CreatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.history = append(f.history, row)
	return row, nil
}

func (f *fakeQueries) ListMessageStatusHistory(_ context.Context, sid string) ([]sqlc.MessageStatusHistory, error) {
	var out []sqlc.MessageStatusHistory
	for _, h := range f.history {
		if h.GatewaySid == sid {
			out = append(out, h)
		}
	}
	return out, f.err
}

const testMessageID = "7b7f2f6e-6f2e-4a57-9a3e-2b0f5f9d1c11"

func newFixture(t *testing.T) (*fakeQueries, *DBService) {
	t.Helper()
	id, err := dbpkg.ParseUUID(testMessageID)
	require.NoError(t, err)
	sent := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &fakeQueries{message: sqlc.Message{
		ID:         id,
		Sender:     "agent_message",
		Body:       "hola",
		GatewaySid: pgtype.Text{String: "SM1", Valid: true},
		Status:     pgtype.Text{String: "sent", Valid: true},
		SentAt:     pgtype.Timestamptz{Time: sent, Valid: true},
		CreatedAt:  pgtype.Timestamptz{Time: sent, Valid: true},
	}}
	return q, NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), q)
}

func TestGetByGatewaySID(t *testing.T) {
	t.Parallel()

	_, s := newFixture(t)
	m, err := s.GetByGatewaySID(context.Background(), " SM1 ")
	require.NoError(t, err)
	assert.Equal(t, testMessageID, m.ID)
	assert.Equal(t, "sent", m.Status)
	require.NotNil(t, m.SentAt)
	assert.Nil(t, m.DeliveredAt)

	_, err = s.GetByGatewaySID(context.Background(), "SM404")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetByGatewaySID(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByGatewaySIDWrapsErrors(t *testing.T) {
	t.Parallel()

	q, s := newFixture(t)
	q.err = errors.New("conn closed")
	_, err := s.GetByGatewaySID(context.Background(), "SM1")
	assert.ErrorIs(t, err, q.err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestApplyStatusAndHistory(t *testing.T) {
	t.Parallel()

	q, s := newFixture(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyStatus(ctx, StatusUpdate{MessageID: testMessageID, Status: "failed", ErrorCode: "63016"}))
	require.Len(t, q.applied, 1)
	assert.Equal(t, "failed", q.applied[0].Status)
	assert.Equal(t, "63016", q.applied[0].ErrorCode.String)
	assert.False(t, q.applied[0].ErrorMessage.Valid)
	assert.Error(t, s.ApplyStatus(ctx, StatusUpdate{MessageID: "x"}))

	rec, err := s.AppendStatusRecord(ctx, RecordInput{
		MessageID: testMessageID, GatewaySID: "SM1", Status: "delivered", PreviousStatus: "sent",
		RawPayload: json.RawMessage(`{"MessageStatus":"delivered"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", rec.PreviousStatus)

	_, err = s.AppendStatusRecord(ctx, RecordInput{MessageID: testMessageID, GatewaySID: "SM1", Status: "read", RawPayload: json.RawMessage("not json")})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(q.history[1].RawPayload))

	list, err := s.ListStatusRecords(ctx, "SM1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"delivered", "read"}, []string{list[0].Status, list[1].Status})
}
