// Package inbound runs the receive webhook pipeline: classify, persist,
// decide attention, then generate and dispatch a reply in the background.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chatline/chatline/internal/advisor"
	"github.com/chatline/chatline/internal/agent"
	"github.com/chatline/chatline/internal/attention"
	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/dispatch"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/media"
)

var ErrShuttingDown = errors.New("inbound processor is shutting down")

type AdvisorLookup interface {
	ByGatewayAddress(ctx context.Context, address string) (advisor.Advisor, error)
}

type MediaResolver interface {
	Resolve(ctx context.Context, att media.Attachment) media.Result
}

type Store interface {
	Append(ctx context.Context, in conversation.AppendInput) (string, error)
	UpdateGatewayID(ctx context.Context, messageID, sid string) error
}

type AttentionGate interface {
	Decide(ctx context.Context, clientID, advisorID, text string) attention.Decision
}

type Dispatcher interface {
	Dispatch(ctx context.Context, reply string, route dispatch.Route) dispatch.Report
}

// Route is the per-request addressing context. It is passed explicitly to
// every collaborator; nothing about the current client is global.
type Route struct {
	ClientNumber   string
	GatewayAddress string
	Advisor        advisor.Advisor
	ThreadID       string
}

func (r Route) dispatchRoute() dispatch.Route {
	return dispatch.Route{ClientNumber: r.ClientNumber, AdvisorID: r.Advisor.ID, From: r.GatewayAddress}
}

// Outcome reports what Handle did with one webhook.
type Outcome struct {
	Ignored   bool
	Reason    string
	Route     Route
	MessageID string
	Media     media.Result
	Decision  attention.Decision
	// Replying is true when reply generation was scheduled.
	Replying bool
}

type Deps struct {
	Advisors   AdvisorLookup
	Media      MediaResolver
	Store      Store
	Attention  AttentionGate
	Agent      agent.Generator
	Dispatcher Dispatcher
}

// Processor handles receive webhooks. Replies run on background goroutines
// detached from the request; Shutdown drains them.
type Processor struct {
	deps       Deps
	ownNumbers map[string]struct{}
	mu         sync.Mutex
	closed     bool
	wg         sync.WaitGroup
	logger     *slog.Logger
}

func NewProcessor(log *slog.Logger, deps Deps, ownNumbers []string) *Processor {
	own := make(map[string]struct{}, len(ownNumbers))
	for _, n := range ownNumbers {
		if n = gateway.StripChannel(n); n != "" {
			own[n] = struct{}{}
		}
	}
	return &Processor{
		deps:       deps,
		ownNumbers: own,
		logger:     log.With(slog.String("service", "inbound")),
	}
}

// Handle ingests one inbound message. Ignored messages return a nil error;
// an error means the message could not be stored.
func (p *Processor) Handle(ctx context.Context, msg gateway.InboundMessage) (Outcome, error) {
	from := gateway.StripChannel(msg.From)
	to := gateway.StripChannel(msg.To)
	if from == "" || to == "" {
		return Outcome{Ignored: true, Reason: "missing address"}, nil
	}
	if _, own := p.ownNumbers[from]; own {
		return Outcome{Ignored: true, Reason: "own number"}, nil
	}

	adv, err := p.deps.Advisors.ByGatewayAddress(ctx, to)
	if err != nil {
		if errors.Is(err, advisor.ErrNotFound) {
			p.logger.Warn("no advisor for gateway address", slog.String("to", to))
			return Outcome{Ignored: true, Reason: "unknown advisor"}, nil
		}
		return Outcome{}, fmt.Errorf("resolve advisor: %w", err)
	}
	route := Route{
		ClientNumber:   from,
		GatewayAddress: to,
		Advisor:        adv,
		ThreadID:       agent.ThreadID(adv.ID, from),
	}
	log := p.logger.With(slog.String("client", from), slog.String("advisor", adv.Name))

	res := p.deps.Media.Resolve(ctx, media.Attachment{
		URL:         attachmentURL(msg),
		ContentType: attachmentType(msg),
		FileName:    msg.MediaFileName,
		Body:        msg.Body,
		Sender:      from,
	})
	msgID, err := p.deps.Store.Append(ctx, conversation.AppendInput{
		ClientID:   route.ClientNumber,
		AdvisorID:  adv.ID,
		Text:       res.Text,
		FromClient: true,
		MediaURL:   res.MediaURL,
		FileName:   res.FileName,
		Origin:     DetectOrigin(msg),
	})
	if err != nil {
		return Outcome{Route: route, Media: res}, fmt.Errorf("persist inbound message: %w", err)
	}
	if sid := msg.SID(); sid != "" {
		if err := p.deps.Store.UpdateGatewayID(ctx, msgID, sid); err != nil {
			log.Warn("attach inbound sid failed", slog.String("sid", sid), slog.Any("error", err))
		}
	}

	out := Outcome{Route: route, MessageID: msgID, Media: res}
	out.Decision = p.deps.Attention.Decide(ctx, route.ClientNumber, adv.ID, res.Text)
	log.Info("inbound message stored",
		slog.String("kind", res.Kind.String()),
		slog.String("mode", string(out.Decision.Mode)),
		slog.String("reason", out.Decision.Reason))
	if !out.Decision.Automate || p.deps.Agent == nil {
		return out, nil
	}

	req := agent.Request{
		ThreadID:     route.ThreadID,
		ClientNumber: route.ClientNumber,
		AdvisorID:    adv.ID,
		Text:         res.Text,
		ImageDataURL: res.ImageDataURL,
	}
	if err := p.goReply(ctx, req, route); err != nil {
		log.Warn("reply not scheduled", slog.Any("error", err))
		return out, nil
	}
	out.Replying = true
	return out, nil
}

func (p *Processor) goReply(ctx context.Context, req agent.Request, route Route) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrShuttingDown
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reply(context.WithoutCancel(ctx), req, route)
	}()
	return nil
}

func (p *Processor) reply(ctx context.Context, req agent.Request, route Route) {
	log := p.logger.With(slog.String("thread_id", route.ThreadID))
	text, err := p.deps.Agent.Generate(ctx, req)
	if err != nil {
		log.Error("agent reply failed", slog.Any("error", err))
		return
	}
	report := p.deps.Dispatcher.Dispatch(ctx, text, route.dispatchRoute())
	log.Info("reply dispatched",
		slog.String("mode", report.Mode),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Bool("fallback", report.Fallback))
}

// Wait blocks until every scheduled reply finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Shutdown stops scheduling replies and waits for running ones until ctx ends.
func (p *Processor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func attachmentURL(msg gateway.InboundMessage) string {
	if msg.NumMedia <= 0 && msg.MediaContentType == "" {
		return ""
	}
	return strings.TrimSpace(msg.MediaURL)
}

func attachmentType(msg gateway.InboundMessage) string {
	if attachmentURL(msg) == "" {
		return ""
	}
	return msg.MediaContentType
}
