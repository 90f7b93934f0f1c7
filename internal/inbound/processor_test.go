package inbound

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatline/chatline/internal/advisor"
	"github.com/chatline/chatline/internal/agent"
	"github.com/chatline/chatline/internal/attention"
	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/dispatch"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/media"
)

type fakeAdvisors struct {
	advisors map[string]advisor.Advisor
	err      error
}

func (f fakeAdvisors) ByGatewayAddress(_ context.Context, addr string) (advisor.Advisor, error) {
	if f.err != nil {
		return advisor.Advisor{}, f.err
	}
	a, ok := f.advisors[addr]
	if !ok {
		return advisor.Advisor{}, advisor.ErrNotFound
	}
	return a, nil
}

type fakeMedia struct {
	result media.Result
	got    media.Attachment
}

func (f *fakeMedia) Resolve(_ context.Context, att media.Attachment) media.Result {
	f.got = att
	if f.result.Text == "" {
		return media.Result{Text: att.Body}
	}
	return f.result
}

type fakeStore struct {
	mu       sync.Mutex
	appended []conversation.AppendInput
	sids     map[string]string
	err      error
}

func (f *fakeStore) Append(_ context.Context, in conversation.AppendInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, in)
	return "msg-1", nil
}

func (f *fakeStore) UpdateGatewayID(_ context.Context, id, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sids == nil {
		f.sids = map[string]string{}
	}
	f.sids[id] = sid
	return nil
}

type fixedGate struct{ mode attention.Mode }

func (g fixedGate) Decide(_ context.Context, _, _, text string) attention.Decision {
	return attention.Decision{Mode: g.mode, Automate: g.mode == attention.ModeAI && text != ""}
}

type fakeAgent struct {
	mu    sync.Mutex
	reqs  []agent.Request
	reply string
	err   error
	block chan struct{}
}

func (f *fakeAgent) Generate(ctx context.Context, req agent.Request) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []string
	routes []dispatch.Route
}

func (f *fakeDispatcher) Dispatch(_ context.Context, reply string, r dispatch.Route) dispatch.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reply)
	f.routes = append(f.routes, r)
	return dispatch.Report{Mode: dispatch.ModeText, Sent: 1}
}

type fixture struct {
	media      *fakeMedia
	store      *fakeStore
	agent      *fakeAgent
	dispatcher *fakeDispatcher
	p          *Processor
}

func newFixture(mode attention.Mode) *fixture {
	f := &fixture{
		media:      &fakeMedia{},
		store:      &fakeStore{},
		agent:      &fakeAgent{reply: "Hola, te ayudo"},
		dispatcher: &fakeDispatcher{},
	}
	advisors := fakeAdvisors{advisors: map[string]advisor.Advisor{
		"+5742044645": {ID: "adv-1", Name: "Laura", GatewayAddress: "+5742044645"},
	}}
	f.p = NewProcessor(slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Advisors:   advisors,
		Media:      f.media,
		Store:      f.store,
		Attention:  fixedGate{mode: mode},
		Agent:      f.agent,
		Dispatcher: f.dispatcher,
	}, []string{"+14155238886", "whatsapp:+5742044644"})
	return f
}

func inbound(body string) gateway.InboundMessage {
	return gateway.InboundMessage{
		From:       "whatsapp:+573001112233",
		To:         "whatsapp:+5742044645",
		Body:       body,
		MessageSID: "SMin1",
	}
}

func TestHandleAIModeRepliesInBackground(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	ctx, cancel := context.WithCancel(context.Background())
	out, err := f.p.Handle(ctx, inbound("hola"))
	cancel()
	require.NoError(t, err)
	assert.True(t, out.Replying)
	assert.Equal(t, "adv-1_+573001112233", out.Route.ThreadID)

	f.p.Wait()
	require.Len(t, f.dispatcher.calls, 1, "reply survives request cancellation")
	assert.Equal(t, "Hola, te ayudo", f.dispatcher.calls[0])
	assert.Equal(t, dispatch.Route{ClientNumber: "+573001112233", AdvisorID: "adv-1", From: "+5742044645"}, f.dispatcher.routes[0])

	require.Len(t, f.store.appended, 1)
	in := f.store.appended[0]
	assert.True(t, in.FromClient)
	assert.Equal(t, "+573001112233", in.ClientID)
	assert.Equal(t, conversation.OriginOrganic, in.Origin)
	assert.Equal(t, "SMin1", f.store.sids["msg-1"])
}

func TestHandleHumanModeStoresOnly(t *testing.T) {
	t.Parallel()

	for _, mode := range []attention.Mode{attention.ModeHuman, attention.ModeUnknown} {
		f := newFixture(mode)
		out, err := f.p.Handle(context.Background(), inbound("hola"))
		require.NoError(t, err)
		assert.False(t, out.Replying)
		f.p.Wait()
		assert.Empty(t, f.agent.reqs)
		assert.Len(t, f.store.appended, 1)
	}
}

func TestHandleIgnoresOwnNumbersAndUnknownAdvisor(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	msg := inbound("eco")
	msg.From = "whatsapp:+5742044644"
	out, err := f.p.Handle(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, out.Ignored)

	msg = inbound("hola")
	msg.To = "whatsapp:+10000000000"
	out, err = f.p.Handle(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, "unknown advisor", out.Reason)
	assert.Empty(t, f.store.appended)
}

func TestHandleAdvisorLookupError(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	f.p.deps.Advisors = fakeAdvisors{err: errors.New("db down")}
	_, err := f.p.Handle(context.Background(), inbound("hola"))
	assert.Error(t, err)
}

func TestHandleStoreError(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	f.store.err = errors.New("insert failed")
	_, err := f.p.Handle(context.Background(), inbound("hola"))
	require.Error(t, err)
	f.p.Wait()
	assert.Empty(t, f.agent.reqs)
}

func TestHandleMediaPassesImageToAgent(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	f.media.result = media.Result{
		Kind:         media.KindImage,
		Text:         media.TextImageDefault,
		MediaURL:     "https://cdn.test/images/a.jpg",
		ImageDataURL: "data:image/jpeg;base64,AAAA",
	}
	msg := inbound("")
	msg.NumMedia = 1
	msg.MediaURL = "https://api.twilio.com/media/ME1"
	msg.MediaContentType = "image/jpeg"

	_, err := f.p.Handle(context.Background(), msg)
	require.NoError(t, err)
	f.p.Wait()

	assert.Equal(t, "image/jpeg", f.media.got.ContentType)
	assert.Equal(t, "https://cdn.test/images/a.jpg", f.store.appended[0].MediaURL)
	require.Len(t, f.agent.reqs, 1)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", f.agent.reqs[0].ImageDataURL)
}

func TestAgentErrorSkipsDispatch(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	f.agent.err = agent.ErrEmptyReply
	_, err := f.p.Handle(context.Background(), inbound("hola"))
	require.NoError(t, err)
	f.p.Wait()
	assert.Empty(t, f.dispatcher.calls)
}

func TestShutdownDrainsAndRejects(t *testing.T) {
	t.Parallel()

	f := newFixture(attention.ModeAI)
	f.agent.block = make(chan struct{})
	out, err := f.p.Handle(context.Background(), inbound("hola"))
	require.NoError(t, err)
	require.True(t, out.Replying)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.p.Shutdown(short), context.DeadlineExceeded)

	close(f.agent.block)
	require.NoError(t, f.p.Shutdown(context.Background()))
	assert.Len(t, f.dispatcher.calls, 1)

	out, err = f.p.Handle(context.Background(), inbound("otra"))
	require.NoError(t, err)
	assert.False(t, out.Replying)
}

func TestDetectOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  gateway.InboundMessage
		want string
	}{
		{"plain", gateway.InboundMessage{Body: "hola"}, conversation.OriginOrganic},
		{"ad referral", gateway.InboundMessage{ReferralSourceType: "ad"}, conversation.OriginCampaign},
		{"referral utm", gateway.InboundMessage{ReferralSourceURL: "https://x.co/?utm_source=ultim"}, conversation.OriginCampaign},
		{"body utm", gateway.InboundMessage{Body: "vengo de wa.me?utm_medium=meta"}, conversation.OriginCampaign},
		{"post referral", gateway.InboundMessage{ReferralSourceType: "post"}, conversation.OriginOrganic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectOrigin(tt.msg))
		})
	}
}
