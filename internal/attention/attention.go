// Package attention decides, per inbound message, whether the automated agent
// or a human operator answers.
package attention

import (
	"context"
	"log/slog"
	"strings"
)

// Mode is who currently owns replies.
type Mode string

const (
	ModeHuman   Mode = "HUMAN"
	ModeAI      Mode = "AI"
	ModeUnknown Mode = "UNKNOWN"
)

// FromFlag maps the persisted chat_on flag: true is HUMAN, false is AI and
// nil is UNKNOWN.
func FromFlag(flag *bool) Mode {
	switch {
	case flag == nil:
		return ModeUnknown
	case *flag:
		return ModeHuman
	default:
		return ModeAI
	}
}

// Decision is the outcome for one inbound message.
type Decision struct {
	Mode     Mode
	Automate bool
	Reason   string
}

// FlagReader reads the attention flag for a conversation.
type FlagReader interface {
	Attention(ctx context.Context, clientID, advisorID string) (*bool, error)
}

// Machine reads the flag on every call. Nothing is cached, operators can
// toggle it between messages.
type Machine struct {
	flags  FlagReader
	logger *slog.Logger
}

func NewMachine(log *slog.Logger, flags FlagReader) *Machine {
	return &Machine{flags: flags, logger: log.With(slog.String("service", "attention"))}
}

// Decide reads the flag and gates automation. A lookup error counts as UNKNOWN.
func (m *Machine) Decide(ctx context.Context, clientID, advisorID, text string) Decision {
	flag, err := m.flags.Attention(ctx, clientID, advisorID)
	if err != nil {
		m.logger.Warn("attention lookup failed, treating as unknown",
			slog.String("client", clientID), slog.Any("error", err))
		flag = nil
	}
	return m.decide(FromFlag(flag), clientID, text)
}

func (m *Machine) decide(mode Mode, clientID, text string) Decision {
	switch mode {
	case ModeHuman:
		return Decision{Mode: mode, Reason: "human attention"}
	case ModeUnknown:
		m.logger.Warn("attention flag unknown, suppressing automation", slog.String("client", clientID))
		return Decision{Mode: mode, Reason: "attention unknown"}
	}
	if strings.TrimSpace(text) == "" {
		return Decision{Mode: mode, Reason: "empty message"}
	}
	return Decision{Mode: mode, Automate: true, Reason: "ai attention"}
}
