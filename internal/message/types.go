package message

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("message not found")

// Message represents a single persisted conversation message.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	AdvisorID      string     `json:"advisor_id"`
	Sender         string     `json:"sender"`
	Body           string     `json:"message"`
	MediaURL       string     `json:"url,omitempty"`
	FileName       string     `json:"file_name,omitempty"`
	GatewaySID     string     `json:"twilio_sid,omitempty"`
	Status         string     `json:"status,omitempty"`
	ErrorCode      string     `json:"error_code,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StatusRecord is one delivery-status audit row.
type StatusRecord struct {
	ID             int64           `json:"id"`
	MessageID      string          `json:"message_id"`
	GatewaySID     string          `json:"twilio_sid"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	ErrorCode      string          `json:"error_code,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	RawPayload     json.RawMessage `json:"raw_webhook_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StatusUpdate sets the denormalized status on a message.
type StatusUpdate struct {
	MessageID    string
	Status       string
	ErrorCode    string
	ErrorMessage string
}

// RecordInput appends a status audit row.
type RecordInput struct {
	MessageID      string
	GatewaySID     string
	Status         string
	PreviousStatus string
	ErrorCode      string
	ErrorMessage   string
	RawPayload     json.RawMessage
}

// Service defines the delivery-side message operations.
type Service interface {
	GetByGatewaySID(ctx context.Context, sid string) (Message, error)
	ApplyStatus(ctx context.Context, update StatusUpdate) error
	AppendStatusRecord(ctx context.Context, input RecordInput) (StatusRecord, error)
	ListStatusRecords(ctx context.Context, sid string) ([]StatusRecord, error)
}
