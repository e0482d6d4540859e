package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketqa/internal/model"
)

func goldenCross() model.Signal {
	return model.Signal{
		Kind:   model.SignalGoldenCross,
		Ticker: "AAPL",
		Date:   time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Value:  190.25,
		Close:  195.5,
	}
}

func TestSignalAlert(t *testing.T) {
	a := SignalAlert(goldenCross())
	assert.Equal(t, AlertWarning, a.Level)
	assert.Equal(t, "AAPL: Golden Cross", a.Title)
	assert.Equal(t, "Golden Cross on 2024-06-28 at close $195.50 (value 190.25)", a.Message)
	require.NotNil(t, a.Signal)
	assert.Equal(t, model.SignalGoldenCross, a.Signal.Kind)

	rsi := SignalAlert(model.Signal{Kind: model.SignalRSIOversoldExit, Ticker: "X"})
	assert.Equal(t, AlertInfo, rsi.Level)
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), SignalAlert(goldenCross())))
	assert.Equal(t, "WARNING", got.Level)
	assert.Equal(t, "AAPL: Golden Cross", got.Title)
	require.NotNil(t, got.Signal)
	assert.Equal(t, 195.5, got.Signal.Close)
	assert.NotEmpty(t, got.TS)
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"})
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestTelegramNotifier_Send(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, n.Send(context.Background(), SignalAlert(goldenCross())))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "MarkdownV2", body["parse_mode"])
	text := body["text"].(string)
	assert.Contains(t, text, `2024\-06\-28`)
	assert.Contains(t, text, `$195\.50 \(value 190\.25\)`, "dots and parens are escaped")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b \(c\) 1\.5 \- ok\!`, escapeMarkdown("a_b (c) 1.5 - ok!"))
	assert.Equal(t, "héllo", escapeMarkdown("héllo"))
}

type recordingNotifier struct {
	name   string
	err    error
	alerts []Alert
}

func (r *recordingNotifier) Name() string { return r.name }
func (r *recordingNotifier) Send(ctx context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{name: "ok"}
	bad := &recordingNotifier{name: "bad", err: errors.New("boom")}
	last := &recordingNotifier{name: "last"}

	var sent []string
	m := NewMulti(ok, nil, bad, last)
	m.OnSent = func(name string) { sent = append(sent, name) }
	assert.Equal(t, 3, m.Len())

	err := m.Send(context.Background(), Alert{Title: "t"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad: boom"))
	assert.Len(t, ok.alerts, 1)
	assert.Len(t, last.alerts, 1, "a failing backend does not stop the rest")
	assert.Equal(t, []string{"ok", "last"}, sent)
}

type fakePublisher struct {
	channel string
	msg     []byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message []byte) error {
	f.channel, f.msg = channel, message
	return nil
}

func TestPubSubNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewPubSubNotifier(pub, SignalChannel)
	require.NoError(t, n.Send(context.Background(), SignalAlert(goldenCross())))

	assert.Equal(t, SignalChannel, pub.channel)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.msg, &decoded))
	assert.Equal(t, "AAPL: Golden Cross", decoded["title"])
	assert.NotEmpty(t, decoded["ts"])
	sig := decoded["signal"].(map[string]any)
	assert.Equal(t, "golden_cross", sig["kind"])
}
