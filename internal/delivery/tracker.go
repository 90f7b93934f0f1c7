package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chatline/chatline/internal/message"
)

// ErrOrphanCallback marks a callback for a SID no message carries. It is
// logged, never returned to the gateway.
var ErrOrphanCallback = errors.New("status callback for unknown message")

// Callback is one status webhook.
type Callback struct {
	SID          string
	Status       string
	ErrorCode    string
	ErrorMessage string
	Raw          json.RawMessage
}

// Outcome reports what a callback did.
type Outcome struct {
	Orphan   bool
	Applied  bool
	Previous string
	Status   string
}

// Timestamps are the per-status times on a message.
type Timestamps struct {
	Sent      *time.Time `json:"sent"`
	Delivered *time.Time `json:"delivered"`
	Read      *time.Time `json:"read"`
	Failed    *time.Time `json:"failed"`
}

// Timeline is the status view of one message.
type Timeline struct {
	CurrentStatus string                 `json:"currentStatus"`
	Message       message.Message        `json:"message"`
	StatusHistory []message.StatusRecord `json:"statusHistory"`
	Timeline      Timestamps             `json:"timeline"`
}

// Tracker applies callbacks. The status read and write are not atomic with
// the dispatcher's SID write; forward-only ranks keep the final state right.
type Tracker struct {
	messages message.Service
	logger   *slog.Logger
}

func NewTracker(log *slog.Logger, messages message.Service) *Tracker {
	return &Tracker{messages: messages, logger: log.With(slog.String("service", "delivery"))}
}

// OnStatusCallback applies cb if it moves the status forward (or is an
// error) and always appends an audit record.
func (t *Tracker) OnStatusCallback(ctx context.Context, cb Callback) (Outcome, error) {
	sid := strings.TrimSpace(cb.SID)
	next := Normalize(cb.Status)
	log := t.logger.With(slog.String("sid", sid), slog.String("status", next))
	if sid == "" || next == "" {
		log.Warn("status callback missing sid or status")
		return Outcome{Orphan: true}, nil
	}

	msg, err := t.messages.GetByGatewaySID(ctx, sid)
	if err != nil {
		if errors.Is(err, message.ErrNotFound) {
			log.Warn("status callback ignored", slog.Any("error", ErrOrphanCallback))
			return Outcome{Orphan: true, Status: next}, nil
		}
		return Outcome{}, fmt.Errorf("load message: %w", err)
	}

	out := Outcome{Previous: msg.Status, Status: next}
	if ShouldApply(msg.Status, next) {
		if err := t.messages.ApplyStatus(ctx, message.StatusUpdate{
			MessageID:    msg.ID,
			Status:       next,
			ErrorCode:    cb.ErrorCode,
			ErrorMessage: cb.ErrorMessage,
		}); err != nil {
			return out, err
		}
		out.Applied = true
		log.Info("message status updated", slog.String("previous", msg.Status))
	} else {
		log.Debug("status callback out of order", slog.String("current", msg.Status))
	}

	if _, err := t.messages.AppendStatusRecord(ctx, message.RecordInput{
		MessageID:      msg.ID,
		GatewaySID:     sid,
		Status:         next,
		PreviousStatus: msg.Status,
		ErrorCode:      cb.ErrorCode,
		ErrorMessage:   cb.ErrorMessage,
		RawPayload:     cb.Raw,
	}); err != nil {
		return out, err
	}
	return out, nil
}

// Timeline returns the message, its audit trail and key timestamps.
func (t *Tracker) Timeline(ctx context.Context, sid string) (Timeline, error) {
	msg, err := t.messages.GetByGatewaySID(ctx, sid)
	if err != nil {
		return Timeline{}, err
	}
	history, err := t.messages.ListStatusRecords(ctx, sid)
	if err != nil {
		return Timeline{}, err
	}
	if history == nil {
		history = []message.StatusRecord{}
	}
	return Timeline{
		CurrentStatus: msg.Status,
		Message:       msg,
		StatusHistory: history,
		Timeline: Timestamps{
			Sent:      msg.SentAt,
			Delivered: msg.DeliveredAt,
			Read:      msg.ReadAt,
			Failed:    msg.FailedAt,
		},
	}, nil
}
