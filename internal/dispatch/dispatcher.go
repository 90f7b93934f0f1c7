// Package dispatch delivers agent replies: speech or text, long-reply
// splitting, paced sends and gateway-id correlation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/media"
)

// AudioBody is the message text stored and sent with a synthesized reply.
const AudioBody = "Audio message"

const (
	ModeText   = "text"
	ModeSpeech = "speech"
)

// Store is the conversation persistence the dispatcher needs.
type Store interface {
	Append(ctx context.Context, in conversation.AppendInput) (string, error)
	UpdateGatewayID(ctx context.Context, messageID, sid string) error
	AudioPreference(ctx context.Context, clientID, advisorID string) (bool, error)
}

// Sender sends one outbound message.
type Sender interface {
	SendMessage(ctx context.Context, p gateway.SendParams) (gateway.Message, error)
}

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// Uploader stores synthesized audio and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, in media.UploadInput) (media.Object, error)
}

// Route addresses one reply.
type Route struct {
	// ClientNumber is the bare E.164 number the conversation is keyed by.
	ClientNumber string
	AdvisorID    string
	// From is the advisor's gateway address.
	From string
}

// Report summarizes one Dispatch call.
type Report struct {
	Mode       string
	Segments   int
	Sent       int
	Failed     int
	MessageIDs []string
	SIDs       []string
	Fallback   bool
}

type Options struct {
	LongReplyLimit int
	SpeechLimit    int
}

type Dispatcher struct {
	store       Store
	sender      Sender
	synthesizer Synthesizer
	uploader    Uploader
	pacer       Pacer
	opts        Options
	logger      *slog.Logger
}

// NewDispatcher builds a dispatcher. A nil synthesizer or uploader disables
// speech replies.
func NewDispatcher(log *slog.Logger, store Store, sender Sender, synthesizer Synthesizer, uploader Uploader, pacer Pacer, opts Options) *Dispatcher {
	if pacer == nil {
		pacer = NoPacer{}
	}
	if opts.LongReplyLimit <= 0 {
		opts.LongReplyLimit = 1000
	}
	if opts.SpeechLimit <= 0 {
		opts.SpeechLimit = 400
	}
	return &Dispatcher{
		store:       store,
		sender:      sender,
		synthesizer: synthesizer,
		uploader:    uploader,
		pacer:       pacer,
		opts:        opts,
		logger:      log.With(slog.String("service", "dispatch")),
	}
}

// Dispatch delivers reply to the route. Send failures are logged and counted
// in the report, never returned. Each text segment is persisted before it is
// sent; an audio reply is persisted once the gateway has accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, reply string, route Route) Report {
	log := d.logger.With(slog.String("client", route.ClientNumber), slog.String("advisor_id", route.AdvisorID))
	if strings.TrimSpace(reply) == "" {
		log.Debug("empty reply, nothing to dispatch")
		return Report{Mode: ModeText}
	}

	if d.speechEnabled() {
		pref, err := d.store.AudioPreference(ctx, route.ClientNumber, route.AdvisorID)
		if err != nil {
			log.Warn("audio preference lookup failed", slog.Any("error", err))
		}
		if SpeechEligible(reply, pref, d.opts.SpeechLimit) {
			report, paced, err := d.sendSpeech(ctx, reply, route)
			if err == nil {
				return report
			}
			log.Warn("speech reply failed, falling back to text", slog.Any("error", err))
			fallback := d.sendText(ctx, log, []string{reply}, route, paced)
			fallback.Fallback = true
			return fallback
		}
	}
	return d.sendText(ctx, log, Split(reply, d.opts.LongReplyLimit), route, false)
}

func (d *Dispatcher) speechEnabled() bool {
	return d.synthesizer != nil && d.uploader != nil
}

// sendSpeech reports whether the pacing delay was already spent, so a text
// fallback does not wait twice.
func (d *Dispatcher) sendSpeech(ctx context.Context, reply string, route Route) (Report, bool, error) {
	report := Report{Mode: ModeSpeech, Segments: 1}
	audio, contentType, err := d.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		return report, false, fmt.Errorf("synthesize: %w", err)
	}
	obj, err := d.uploader.Upload(ctx, media.UploadInput{
		Prefix:      media.PrefixAgentAudio,
		Stem:        "audio",
		Ext:         media.ExtensionFor(media.KindAudio, contentType),
		ContentType: contentType,
		Data:        audio,
		Metadata:    map[string]string{"sender": conversation.SenderAgent},
	})
	if err != nil {
		return report, false, err
	}
	if err := d.pacer.Pause(ctx); err != nil {
		return report, false, err
	}
	sent, err := d.sender.SendMessage(ctx, gateway.SendParams{
		From:     route.From,
		To:       route.ClientNumber,
		Body:     AudioBody,
		MediaURL: []string{obj.URL},
	})
	if err != nil {
		return report, true, fmt.Errorf("send audio reply: %w", err)
	}
	report.Sent = 1
	report.SIDs = append(report.SIDs, sent.SID)

	// the client already has the audio, a persist failure must not trigger a
	// text resend
	msgID, err := d.store.Append(ctx, conversation.AppendInput{
		ClientID:  route.ClientNumber,
		AdvisorID: route.AdvisorID,
		Text:      AudioBody,
		MediaURL:  obj.URL,
	})
	if err != nil {
		d.logger.Error("persist audio reply failed", slog.String("sid", sent.SID), slog.Any("error", err))
		return report, true, nil
	}
	report.MessageIDs = append(report.MessageIDs, msgID)
	d.correlate(ctx, msgID, sent.SID)
	return report, true, nil
}

// sendText skips the first pause when paced is set.
func (d *Dispatcher) sendText(ctx context.Context, log *slog.Logger, segments []string, route Route, paced bool) Report {
	report := Report{Mode: ModeText, Segments: len(segments)}
	for i, segment := range segments {
		msgID, err := d.store.Append(ctx, conversation.AppendInput{
			ClientID:  route.ClientNumber,
			AdvisorID: route.AdvisorID,
			Text:      segment,
		})
		if err != nil {
			// an unpersisted segment is not sent
			log.Error("persist reply segment failed", slog.Int("segment", i), slog.Any("error", err))
			report.Failed++
			continue
		}
		report.MessageIDs = append(report.MessageIDs, msgID)
		if !paced || i > 0 {
			if err := d.pacer.Pause(ctx); err != nil {
				log.Warn("dispatch interrupted", slog.Any("error", err))
				report.Failed += len(segments) - i
				return report
			}
		}
		sent, err := d.sender.SendMessage(ctx, gateway.SendParams{
			From: route.From,
			To:   route.ClientNumber,
			Body: segment,
		})
		if err != nil {
			log.Error("send reply segment failed", slog.Int("segment", i), slog.Any("error", err))
			report.Failed++
			continue
		}
		report.Sent++
		report.SIDs = append(report.SIDs, sent.SID)
		d.correlate(ctx, msgID, sent.SID)
	}
	if report.Segments > 1 {
		log.Info("long reply dispatched", slog.Int("segments", report.Segments), slog.Int("sent", report.Sent))
	}
	return report
}

func (d *Dispatcher) correlate(ctx context.Context, messageID, sid string) {
	if sid == "" {
		return
	}
	if err := d.store.UpdateGatewayID(ctx, messageID, sid); err != nil && !errors.Is(err, conversation.ErrMessageNotFound) {
		d.logger.Warn("attach gateway sid failed", slog.String("message_id", messageID), slog.String("sid", sid), slog.Any("error", err))
	}
}
