// Package conversation owns the conversations and messages tables: it finds
// or creates the conversation for a client/advisor pair and appends messages.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbpkg "github.com/chatline/chatline/internal/db"
	"github.com/chatline/chatline/internal/db/sqlc"
)

// Queries is the subset of sqlc.Queries the store uses.
type Queries interface {
	GetLatestConversation(ctx context.Context, arg sqlc.GetLatestConversationParams) (sqlc.Conversation, error)
	CreateConversation(ctx context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error)
	ResetConversationNotifications(ctx context.Context, id pgtype.UUID) error
	UnarchiveConversation(ctx context.Context, id pgtype.UUID) error
	ReopenConversation(ctx context.Context, id pgtype.UUID) error
	SetConversationAudio(ctx context.Context, arg sqlc.SetConversationAudioParams) error
	SetConversationClientName(ctx context.Context, arg sqlc.SetConversationClientNameParams) error
	SetConversationService(ctx context.Context, arg sqlc.SetConversationServiceParams) error
	GetClientProfileByPhone(ctx context.Context, phone string) (sqlc.ClientProfile, error)
	CreateMessage(ctx context.Context, arg sqlc.CreateMessageParams) (sqlc.Message, error)
	GetLastMessageTime(ctx context.Context, conversationID pgtype.UUID) (pgtype.Timestamptz, error)
	UpdateMessageGatewaySID(ctx context.Context, arg sqlc.UpdateMessageGatewaySIDParams) (int64, error)
}

// DBService persists conversations and their messages.
type DBService struct {
	queries     Queries
	reopenAfter time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates a conversation store. reopenAfter is the minimum gap
// since the last message for a client message to reopen a closed conversation.
func NewService(log *slog.Logger, queries Queries, reopenAfter time.Duration) *DBService {
	if log == nil {
		log = slog.Default()
	}
	return &DBService{
		queries:     queries,
		reopenAfter: reopenAfter,
		now:         time.Now,
		logger:      log.With(slog.String("service", "conversation")),
	}
}

// Append finds or creates the conversation for (ClientID, AdvisorID), applies
// the lifecycle side effects and inserts the message. It returns the message id.
func (s *DBService) Append(ctx context.Context, in AppendInput) (string, error) {
	advisorID, err := dbpkg.ParseUUID(in.AdvisorID)
	if err != nil {
		return "", fmt.Errorf("invalid advisor id: %w", err)
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return "", errors.New("client id is required")
	}

	conv, created, err := s.findOrCreate(ctx, clientID, advisorID, in.Origin)
	if err != nil {
		return "", err
	}
	if !created {
		s.touch(ctx, conv, in.FromClient)
	}

	sender := strings.TrimSpace(in.Sender)
	if sender == "" {
		sender = SenderAgent
		if in.FromClient {
			sender = SenderClient
		}
	}
	return s.insertMessage(ctx, conv, sender, in.Text, in.MediaURL, in.FileName)
}

// AppendTemplate stores an operator template message. Existing conversations
// are only un-archived.
func (s *DBService) AppendTemplate(ctx context.Context, in TemplateInput) (string, error) {
	return s.Append(ctx, AppendInput{
		ClientID:   in.ClientID,
		AdvisorID:  in.AdvisorID,
		Text:       in.Text,
		MediaURL:   in.MediaURL,
		Sender:     in.Sender,
		FromClient: false,
	})
}

// UpdateGatewayID attaches the gateway message SID to a message. A message
// that already carries a SID is left unchanged.
func (s *DBService) UpdateGatewayID(ctx context.Context, messageID, sid string) error {
	pgID, err := dbpkg.ParseUUID(messageID)
	if err != nil {
		return fmt.Errorf("invalid message id: %w", err)
	}
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return errors.New("gateway sid is required")
	}
	n, err := s.queries.UpdateMessageGatewaySID(ctx, sqlc.UpdateMessageGatewaySIDParams{
		ID:         pgID,
		GatewaySid: dbpkg.ToText(sid),
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return fmt.Errorf("gateway sid %s already attached to another message: %w", sid, err)
		}
		return fmt.Errorf("update gateway sid: %w", err)
	}
	if n == 0 {
		s.logger.Warn("gateway sid not attached", slog.String("message_id", messageID), slog.String("sid", sid))
	}
	return nil
}

// Get returns the canonical conversation for the pair.
func (s *DBService) Get(ctx context.Context, clientID, advisorID string) (Conversation, error) {
	pgAdvisor, err := dbpkg.ParseUUID(advisorID)
	if err != nil {
		return Conversation{}, fmt.Errorf("invalid advisor id: %w", err)
	}
	row, err := s.queries.GetLatestConversation(ctx, sqlc.GetLatestConversationParams{
		ClientNumber: strings.TrimSpace(clientID),
		AdvisorID:    pgAdvisor,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return toConversation(row), nil
}

// Attention returns the raw attention flag: nil when there is no conversation
// or the flag is NULL.
func (s *DBService) Attention(ctx context.Context, clientID, advisorID string) (*bool, error) {
	conv, err := s.Get(ctx, clientID, advisorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return conv.ChatOn, nil
}

// AudioPreference reports whether the client prefers voice replies.
func (s *DBService) AudioPreference(ctx context.Context, clientID, advisorID string) (bool, error) {
	conv, err := s.Get(ctx, clientID, advisorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return conv.Audio, nil
}

func (s *DBService) SetAudioPreference(ctx context.Context, clientID, advisorID string, enabled bool) error {
	pgAdvisor, err := dbpkg.ParseUUID(advisorID)
	if err != nil {
		return fmt.Errorf("invalid advisor id: %w", err)
	}
	return s.queries.SetConversationAudio(ctx, sqlc.SetConversationAudioParams{
		ClientNumber: strings.TrimSpace(clientID),
		AdvisorID:    pgAdvisor,
		Audio:        enabled,
	})
}

func (s *DBService) SetClientName(ctx context.Context, clientID, advisorID, name string) error {
	pgAdvisor, err := dbpkg.ParseUUID(advisorID)
	if err != nil {
		return fmt.Errorf("invalid advisor id: %w", err)
	}
	return s.queries.SetConversationClientName(ctx, sqlc.SetConversationClientNameParams{
		ClientNumber: strings.TrimSpace(clientID),
		AdvisorID:    pgAdvisor,
		ClientName:   dbpkg.ToText(name),
	})
}

// SetService records the product line a conversation is about.
func (s *DBService) SetService(ctx context.Context, clientID, advisorID, service string) error {
	pgAdvisor, err := dbpkg.ParseUUID(advisorID)
	if err != nil {
		return fmt.Errorf("invalid advisor id: %w", err)
	}
	return s.queries.SetConversationService(ctx, sqlc.SetConversationServiceParams{
		ClientNumber: strings.TrimSpace(clientID),
		AdvisorID:    pgAdvisor,
		Service:      dbpkg.ToText(service),
	})
}

func (s *DBService) findOrCreate(ctx context.Context, clientID string, advisorID pgtype.UUID, origin string) (sqlc.Conversation, bool, error) {
	key := sqlc.GetLatestConversationParams{ClientNumber: clientID, AdvisorID: advisorID}
	row, err := s.queries.GetLatestConversation(ctx, key)
	if err == nil {
		return row, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return sqlc.Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}

	params := sqlc.CreateConversationParams{
		ClientNumber: clientID,
		AdvisorID:    advisorID,
		ChatOn:       pgtype.Bool{Bool: true, Valid: true},
		Origin:       normalizeOrigin(origin),
	}
	s.enrich(ctx, &params)

	created, err := s.queries.CreateConversation(ctx, params)
	if err == nil {
		s.logger.Info("conversation created",
			slog.String("conversation_id", dbpkg.UUIDToString(created.ID)),
			slog.String("client", clientID),
			slog.String("origin", params.Origin))
		return created, true, nil
	}
	if !dbpkg.IsUniqueViolation(err) {
		return sqlc.Conversation{}, false, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Info("conversation creation raced, using existing row",
		slog.String("client", clientID), slog.Any("error", ErrConversationConflict))
	row, err = s.queries.GetLatestConversation(ctx, key)
	if err != nil {
		return sqlc.Conversation{}, false, fmt.Errorf("%w: re-query: %w", ErrConversationConflict, err)
	}
	return row, true, nil
}

// enrich copies reference profile fields onto a new conversation. Lookup
// failures are logged and ignored.
func (s *DBService) enrich(ctx context.Context, params *sqlc.CreateConversationParams) {
	profile, err := s.queries.GetClientProfileByPhone(ctx, params.ClientNumber)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("client profile lookup failed", slog.String("client", params.ClientNumber), slog.Any("error", err))
		}
		return
	}
	params.ClientName = profile.Name
	params.Email = profile.Email
	params.Company = profile.Company
	params.Nit = profile.Nit
	params.Category = profile.Category
}

// touch applies the side effects of a new message on an existing conversation.
// Failures are logged; the message is still stored.
func (s *DBService) touch(ctx context.Context, conv sqlc.Conversation, fromClient bool) {
	log := s.logger.With(slog.String("conversation_id", dbpkg.UUIDToString(conv.ID)))
	closed := conv.ChatStatus == StatusClosed

	if fromClient && !closed {
		if err := s.queries.ResetConversationNotifications(ctx, conv.ID); err != nil {
			log.Warn("reset notification flags failed", slog.Any("error", err))
		}
	}
	if conv.IsArchived {
		if err := s.queries.UnarchiveConversation(ctx, conv.ID); err != nil {
			log.Warn("unarchive failed", slog.Any("error", err))
		}
	}
	if !fromClient || !closed {
		return
	}
	last, err := s.queries.GetLastMessageTime(ctx, conv.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Warn("last message lookup failed", slog.Any("error", err))
		return
	}
	if !last.Valid {
		log.Debug("closed conversation has no prior message, left closed")
		return
	}
	if gap := s.now().Sub(last.Time); gap < s.reopenAfter {
		log.Debug("closed conversation left closed", slog.Duration("gap", gap))
		return
	}
	if err := s.queries.ReopenConversation(ctx, conv.ID); err != nil {
		log.Warn("reopen failed", slog.Any("error", err))
		return
	}
	log.Info("conversation reopened")
}

func (s *DBService) insertMessage(ctx context.Context, conv sqlc.Conversation, sender, text, mediaURL, fileName string) (string, error) {
	row, err := s.queries.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID: conv.ID,
		AdvisorID:      conv.AdvisorID,
		Sender:         sender,
		Body:           text,
		MediaUrl:       dbpkg.ToText(mediaURL),
		FileName:       dbpkg.ToText(fileName),
	})
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return dbpkg.UUIDToString(row.ID), nil
}

func normalizeOrigin(origin string) string {
	if strings.EqualFold(strings.TrimSpace(origin), OriginCampaign) {
		return OriginCampaign
	}
	return OriginOrganic
}

func toConversation(row sqlc.Conversation) Conversation {
	var chatOn *bool
	if row.ChatOn.Valid {
		v := row.ChatOn.Bool
		chatOn = &v
	}
	var created time.Time
	if row.CreatedAt.Valid {
		created = row.CreatedAt.Time
	}
	return Conversation{
		ID:           dbpkg.UUIDToString(row.ID),
		ClientNumber: row.ClientNumber,
		AdvisorID:    dbpkg.UUIDToString(row.AdvisorID),
		ChatOn:       chatOn,
		Audio:        row.Audio,
		IsArchived:   row.IsArchived,
		ChatStatus:   row.ChatStatus,
		Origin:       row.Origin,
		ClientName:   dbpkg.TextToString(row.ClientName),
		Email:        dbpkg.TextToString(row.Email),
		Company:      dbpkg.TextToString(row.Company),
		Service:      dbpkg.TextToString(row.Service),
		CreatedAt:    created,
	}
}
