package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbpkg "github.com/chatline/chatline/internal/db"
	"github.com/chatline/chatline/internal/db/sqlc"
)

// Queries is the subset of sqlc.Queries the service uses.
type Queries interface {
	GetMessageByGatewaySID(ctx context.Context, gatewaySid pgtype.Text) (sqlc.Message, error)
	ApplyMessageStatus(ctx context.Context, arg sqlc.ApplyMessageStatusParams) error
	CreateMessageStatusHistory(ctx context.Context, arg sqlc.CreateMessageStatusHistoryParams) (sqlc.MessageStatusHistory, error)
	ListMessageStatusHistory(ctx context.Context, gatewaySid string) ([]sqlc.MessageStatusHistory, error)
}

// DBService reads messages by gateway SID and persists delivery status.
type DBService struct {
	queries Queries
	logger  *slog.Logger
}

// NewService creates a message service.
func NewService(log *slog.Logger, queries Queries) *DBService {
	if log == nil {
		log = slog.Default()
	}
	return &DBService{
		queries: queries,
		logger:  log.With(slog.String("service", "message")),
	}
}

func (s *DBService) GetByGatewaySID(ctx context.Context, sid string) (Message, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return Message{}, ErrNotFound
	}
	row, err := s.queries.GetMessageByGatewaySID(ctx, dbpkg.ToText(sid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	return toMessage(row), nil
}

func (s *DBService) ApplyStatus(ctx context.Context, update StatusUpdate) error {
	pgID, err := dbpkg.ParseUUID(update.MessageID)
	if err != nil {
		return fmt.Errorf("invalid message id: %w", err)
	}
	if err := s.queries.ApplyMessageStatus(ctx, sqlc.ApplyMessageStatusParams{
		ID:           pgID,
		Status:       update.Status,
		ErrorCode:    dbpkg.ToText(update.ErrorCode),
		ErrorMessage: dbpkg.ToText(update.ErrorMessage),
	}); err != nil {
		return fmt.Errorf("apply status: %w", err)
	}
	return nil
}

func (s *DBService) AppendStatusRecord(ctx context.Context, input RecordInput) (StatusRecord, error) {
	pgID, err := dbpkg.ParseUUID(input.MessageID)
	if err != nil {
		return StatusRecord{}, fmt.Errorf("invalid message id: %w", err)
	}
	raw := input.RawPayload
	if len(raw) == 0 || !json.Valid(raw) {
		raw = json.RawMessage("{}")
	}
	row, err := s.queries.CreateMessageStatusHistory(ctx, sqlc.CreateMessageStatusHistoryParams{
		MessageID:      pgID,
		GatewaySid:     input.GatewaySID,
		Status:         input.Status,
		PreviousStatus: dbpkg.ToText(input.PreviousStatus),
		ErrorCode:      dbpkg.ToText(input.ErrorCode),
		ErrorMessage:   dbpkg.ToText(input.ErrorMessage),
		RawPayload:     raw,
	})
	if err != nil {
		return StatusRecord{}, fmt.Errorf("insert status history: %w", err)
	}
	return toStatusRecord(row), nil
}

func (s *DBService) ListStatusRecords(ctx context.Context, sid string) ([]StatusRecord, error) {
	rows, err := s.queries.ListMessageStatusHistory(ctx, strings.TrimSpace(sid))
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	out := make([]StatusRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStatusRecord(row))
	}
	return out, nil
}

func toMessage(row sqlc.Message) Message {
	m := Message{
		ID:             dbpkg.UUIDToString(row.ID),
		ConversationID: dbpkg.UUIDToString(row.ConversationID),
		AdvisorID:      dbpkg.UUIDToString(row.AdvisorID),
		Sender:         row.Sender,
		Body:           row.Body,
		MediaURL:       dbpkg.TextToString(row.MediaUrl),
		FileName:       dbpkg.TextToString(row.FileName),
		GatewaySID:     dbpkg.TextToString(row.GatewaySid),
		Status:         dbpkg.TextToString(row.Status),
		ErrorCode:      dbpkg.TextToString(row.ErrorCode),
		ErrorMessage:   dbpkg.TextToString(row.ErrorMessage),
		SentAt:         dbpkg.TimePtr(row.SentAt),
		DeliveredAt:    dbpkg.TimePtr(row.DeliveredAt),
		ReadAt:         dbpkg.TimePtr(row.ReadAt),
		FailedAt:       dbpkg.TimePtr(row.FailedAt),
	}
	if row.CreatedAt.Valid {
		m.CreatedAt = row.CreatedAt.Time
	}
	return m
}

func toStatusRecord(row sqlc.MessageStatusHistory) StatusRecord {
	r := StatusRecord{
		ID:             row.ID,
		MessageID:      dbpkg.UUIDToString(row.MessageID),
		GatewaySID:     row.GatewaySid,
		Status:         row.Status,
		PreviousStatus: dbpkg.TextToString(row.PreviousStatus),
		ErrorCode:      dbpkg.TextToString(row.ErrorCode),
		ErrorMessage:   dbpkg.TextToString(row.ErrorMessage),
		RawPayload:     json.RawMessage(row.RawPayload),
	}
	if row.CreatedAt.Valid {
		r.CreatedAt = row.CreatedAt.Time
	}
	return r
}
