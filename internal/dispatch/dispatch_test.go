package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/media"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakeStore struct {
	rec       *recorder
	audio     bool
	audioErr  error
	appendErr error
	appended  []conversation.AppendInput
	sids      map[string]string
}

func (f *fakeStore) Append(_ context.Context, in conversation.AppendInput) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appended = append(f.appended, in)
	id := fmt.Sprintf("m%d", len(f.appended))
	f.rec.add("persist %s", id)
	return id, nil
}

func (f *fakeStore) UpdateGatewayID(_ context.Context, messageID, sid string) error {
	if f.sids == nil {
		f.sids = map[string]string{}
	}
	f.sids[messageID] = sid
	f.rec.add("correlate %s %s", messageID, sid)
	return nil
}

func (f *fakeStore) AudioPreference(context.Context, string, string) (bool, error) {
	return f.audio, f.audioErr
}

type fakeSender struct {
	rec   *recorder
	sent  []gateway.SendParams
	fail  func(p gateway.SendParams) error
	count int
}

func (f *fakeSender) SendMessage(_ context.Context, p gateway.SendParams) (gateway.Message, error) {
	if f.fail != nil {
		if err := f.fail(p); err != nil {
			return gateway.Message{}, err
		}
	}
	f.count++
	f.sent = append(f.sent, p)
	sid := fmt.Sprintf("SM%d", f.count)
	f.rec.add("send %s", sid)
	return gateway.Message{SID: sid}, nil
}

type fakeSynth struct {
	err   error
	calls int
}

func (f *fakeSynth) Synthesize(context.Context, string) ([]byte, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("ID3audio"), "audio/mpeg", nil
}

type fakeUploader struct {
	inputs []media.UploadInput
}

func (f *fakeUploader) Upload(_ context.Context, in media.UploadInput) (media.Object, error) {
	f.inputs = append(f.inputs, in)
	key := in.Prefix + "/audio." + in.Ext
	return media.Object{Key: key, URL: "https://cdn.test/" + key}, nil
}

type countingPacer struct{ n int }

func (p *countingPacer) Pause(context.Context) error {
	p.n++
	return nil
}

type fixture struct {
	rec      *recorder
	store    *fakeStore
	sender   *fakeSender
	synth    *fakeSynth
	uploader *fakeUploader
	pacer    *countingPacer
	d        *Dispatcher
}

func newFixture() *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:      rec,
		store:    &fakeStore{rec: rec},
		sender:   &fakeSender{rec: rec},
		synth:    &fakeSynth{},
		uploader: &fakeUploader{},
		pacer:    &countingPacer{},
	}
	f.d = NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), f.store, f.sender, f.synth, f.uploader, f.pacer, Options{LongReplyLimit: 1000, SpeechLimit: 400})
	return f
}

var route = Route{ClientNumber: "+573001112233", AdvisorID: "adv-1", From: "+5742044644"}

func TestSpeechEligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		pref bool
		want bool
	}{
		{"plain", "Hola, claro que si te ayudo con eso", true, true},
		{"preference off", "Hola, claro que si", false, false},
		{"digit", "Cuesta 25 mil pesos", true, false},
		{"acronym", "Enviamos por DHL manana", true, false},
		{"dotted abbreviation", "Lo envia la S.A.S hoy", true, false},
		{"slash", "Visita nuestra web/tienda", true, false},
		{"too long", strings.Repeat("a", 401), true, false},
		{"at limit", strings.Repeat("a", 400), true, true},
		{"single capital", "Yo te aviso", true, true},
		{"blank", "   ", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SpeechEligible(tt.text, tt.pref, 400))
		})
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("a", 1000)
	assert.Equal(t, []string{exact}, Split(exact, 1000))

	long := strings.Repeat("a", 500) + "\n\n" + strings.Repeat("b", 499) + "\n\n\n\n"
	require.Greater(t, len(long), 1000)
	parts := Split(long, 1000)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("b", 499), parts[1])

	assert.Nil(t, Split(" ", 1000))
}

func TestDispatchExactLimitIsOneSend(t *testing.T) {
	t.Parallel()

	f := newFixture()
	reply := strings.Repeat("y", 1000)
	report := f.d.Dispatch(context.Background(), reply, route)

	assert.Equal(t, ModeText, report.Mode)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, reply, f.sender.sent[0].Body)
	assert.Equal(t, 1, f.pacer.n)
	assert.Equal(t, "SM1", f.store.sids["m1"])
	assert.Equal(t, 0, f.synth.calls)
}

func TestDispatchLongReplyPersistsEachSegmentBeforeSending(t *testing.T) {
	t.Parallel()

	f := newFixture()
	reply := strings.Repeat("a", 600) + "\n\n" + strings.Repeat("b", 399)
	require.Len(t, reply, 1001)

	report := f.d.Dispatch(context.Background(), reply, route)

	assert.Equal(t, 2, report.Segments)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, []string{"SM1", "SM2"}, report.SIDs)
	assert.Equal(t, []string{
		"persist m1", "send SM1", "correlate m1 SM1",
		"persist m2", "send SM2", "correlate m2 SM2",
	}, f.rec.events)
	for _, in := range f.store.appended {
		assert.False(t, in.FromClient)
		assert.Equal(t, "+573001112233", in.ClientID)
	}
	assert.Equal(t, 2, f.pacer.n)
}

func TestDispatchSpeech(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.audio = true
	report := f.d.Dispatch(context.Background(), "Claro que si, te lo envio hoy mismo", route)

	assert.Equal(t, ModeSpeech, report.Mode)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, f.uploader.inputs, 1)
	assert.Equal(t, media.PrefixAgentAudio, f.uploader.inputs[0].Prefix)
	assert.Equal(t, "mp3", f.uploader.inputs[0].Ext)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, AudioBody, f.sender.sent[0].Body)
	assert.Equal(t, []string{"https://cdn.test/audios/audio.mp3"}, f.sender.sent[0].MediaURL)
	require.Len(t, f.store.appended, 1)
	assert.Equal(t, AudioBody, f.store.appended[0].Text)
	assert.NotEmpty(t, f.store.appended[0].MediaURL)
}

func TestDispatchSpeechFailureFallsBackToText(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.audio = true
	f.synth.err = errors.New("tts down")
	reply := "Claro que si, te lo envio hoy mismo"
	report := f.d.Dispatch(context.Background(), reply, route)

	assert.True(t, report.Fallback)
	assert.Equal(t, ModeText, report.Mode)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, reply, f.sender.sent[0].Body)
	assert.Empty(t, f.sender.sent[0].MediaURL)
}

func TestDispatchAudioSendFailureLeavesOnlyTextRow(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.audio = true
	f.sender.fail = func(p gateway.SendParams) error {
		if len(p.MediaURL) > 0 {
			return &gateway.APIError{Status: 400, Code: 21620, Message: "invalid media url"}
		}
		return nil
	}
	reply := "Claro que si, te lo envio hoy mismo"
	report := f.d.Dispatch(context.Background(), reply, route)

	assert.True(t, report.Fallback)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, f.store.appended, 1)
	assert.Equal(t, reply, f.store.appended[0].Text)
	assert.Empty(t, f.store.appended[0].MediaURL)
	assert.Equal(t, []string{"m1"}, report.MessageIDs)
	assert.Equal(t, "SM1", f.store.sids["m1"])
	assert.Equal(t, 1, f.pacer.n)
	assert.Equal(t, []string{"persist m1", "send SM1", "correlate m1 SM1"}, f.rec.events)
}

func TestDispatchSpeechPersistsAfterSend(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.audio = true
	report := f.d.Dispatch(context.Background(), "Claro que si, te lo envio hoy mismo", route)

	assert.Equal(t, []string{"send SM1", "persist m1", "correlate m1 SM1"}, f.rec.events)
	assert.Equal(t, []string{"m1"}, report.MessageIDs)
	assert.Equal(t, 1, f.pacer.n)
}

func TestDispatchSpeechPersistErrorDoesNotResend(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.audio = true
	f.store.appendErr = errors.New("db down")
	report := f.d.Dispatch(context.Background(), "Claro que si, te lo envio hoy mismo", route)

	assert.False(t, report.Fallback)
	assert.Equal(t, ModeSpeech, report.Mode)
	assert.Len(t, f.sender.sent, 1)
	assert.Empty(t, report.MessageIDs)
}

func TestDispatchIneligibleSpeechUsesText(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.audio = true
	f.d.Dispatch(context.Background(), "Son 3 unidades", route)
	assert.Equal(t, 0, f.synth.calls)
	require.Len(t, f.sender.sent, 1)
}

func TestDispatchSendErrorIsCounted(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.sender.fail = func(p gateway.SendParams) error {
		if strings.HasPrefix(p.Body, "a") {
			return &gateway.APIError{Status: 400, Code: 63016, Message: "outside window"}
		}
		return nil
	}
	reply := strings.Repeat("a", 600) + "\n\n" + strings.Repeat("b", 500)
	report := f.d.Dispatch(context.Background(), reply, route)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Sent)
	assert.Len(t, report.MessageIDs, 2)
	_, correlated := f.store.sids["m1"]
	assert.False(t, correlated)
}

func TestDispatchPersistErrorSkipsSend(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.appendErr = errors.New("db down")
	report := f.d.Dispatch(context.Background(), "hola", route)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, f.sender.sent)
}

func TestRandomPacerBounds(t *testing.T) {
	t.Parallel()

	p := NewRandomPacer(15*time.Second, 25*time.Second)
	for range 200 {
		d := p.Next()
		assert.GreaterOrEqual(t, d, 15*time.Second)
		assert.LessOrEqual(t, d, 25*time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
	assert.Equal(t, 5*time.Second, NewRandomPacer(5*time.Second, time.Second).Next())
}
