package conversation

import (
	"errors"
	"time"
)

// Sender roles stored on messages. Operators are stored by name.
const (
	SenderClient = "client_message"
	SenderAgent  = "agent_message"
)

// Conversation origins.
const (
	OriginCampaign = "campaign"
	OriginOrganic  = "organic"
)

// Lifecycle statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

var (
	// ErrNotFound indicates no conversation exists for the client/advisor pair.
	ErrNotFound = errors.New("conversation not found")
	// ErrConversationConflict marks a lost first-contact race. Append resolves it
	// internally and never returns it.
	ErrConversationConflict = errors.New("conversation created concurrently")
	// ErrMessageNotFound indicates the message id is unknown.
	ErrMessageNotFound = errors.New("message not found")
)

// AppendInput is one message to persist.
type AppendInput struct {
	ClientID   string
	AdvisorID  string
	Text       string
	FromClient bool
	MediaURL   string
	FileName   string
	// Sender overrides the default client/agent role, e.g. an operator name.
	Sender string
	// Origin is used only when a conversation is created. Empty means organic.
	Origin string
}

// TemplateInput is an operator template send to persist.
type TemplateInput struct {
	ClientID  string
	AdvisorID string
	Text      string
	MediaURL  string
	// Sender is the operator who sent the template.
	Sender string
}

// Conversation is the domain view of a conversations row.
type Conversation struct {
	ID           string    `json:"id"`
	ClientNumber string    `json:"client_number"`
	AdvisorID    string    `json:"advisor_id"`
	ChatOn       *bool     `json:"chat_on"`
	Audio        bool      `json:"audio"`
	IsArchived   bool      `json:"is_archived"`
	ChatStatus   string    `json:"chat_status"`
	Origin       string    `json:"origin"`
	ClientName   string    `json:"client_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Company      string    `json:"company,omitempty"`
	Service      string    `json:"service,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
