package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/mail.v2"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

func upCheck() domain.Check {
	at := time.Now()
	return domain.Check{
		ID:            "c1",
		OwnerID:       "7700900123",
		Protocol:      domain.ProtocolHTTP,
		URL:           "example.com",
		Method:        domain.MethodGet,
		State:         domain.StateUp,
		LastCheckedAt: &at,
	}
}

type captured struct {
	to, body string
}

func capture(out *[]captured, err error) Sender {
	return SenderFunc(func(ctx context.Context, to, body string) error {
		*out = append(*out, captured{to, body})
		return err
	})
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Alert: Your check for GET http://example.com is currently up", Message(upCheck()))
	c := upCheck()
	c.State = domain.StateDown
	c.Method = domain.MethodPost
	c.Protocol = domain.ProtocolHTTPS
	assert.Equal(t, "Alert: Your check for POST https://example.com is currently down", Message(c))
}

func TestDirectory(t *testing.T) {
	d := Directory{Table: map[string]string{"7700900123": "ops@example.com"}, Prefix: "+44", Passthrough: true}

	to, err := d.Resolve("7700900123")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", to)

	to, err = d.Resolve("7700900999")
	require.NoError(t, err)
	assert.Equal(t, "+447700900999", to)

	_, err = Directory{}.Resolve("7700900999")
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = d.Resolve("  ")
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestParseTable(t *testing.T) {
	m, err := ParseTable(" a=+1555 , b=ops@example.com,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "+1555", "b": "ops@example.com"}, m)

	_, err = ParseTable("novalue")
	assert.Error(t, err)
}

func TestAlerter_SendsResolvedMessage(t *testing.T) {
	var got []captured
	a := NewAlerter(zap.NewNop(), capture(&got, nil), Directory{Prefix: "+44", Passthrough: true})

	require.NoError(t, a.Alert(context.Background(), upCheck()))
	require.Len(t, got, 1)
	assert.Equal(t, "+447700900123", got[0].to)
	assert.Equal(t, Message(upCheck()), got[0].body)
}

func TestAlerter_UnresolvedOwnerIsNotSent(t *testing.T) {
	var got []captured
	a := NewAlerter(zap.NewNop(), capture(&got, nil), Directory{})

	err := a.Alert(context.Background(), upCheck())
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, got)
}

func TestMulti_TriesAllAndCombinesErrors(t *testing.T) {
	var a, b []captured
	m := Multi{capture(&a, errors.New("first")), nil, capture(&b, errors.New("second"))}

	err := m.Send(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestLog_WritesEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, Log{Logger: zap.New(core)}.Send(context.Background(), "+44123", "hello"))

	entries := logs.FilterMessage("alert_log_only").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "+44123", entries[0].ContextMap()["recipient"])
}

func TestTwilio_PostsForm(t *testing.T) {
	var form map[string]string
	var user, pass, path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		path = r.URL.Path
		assert.NoError(t, r.ParseForm())
		form = map[string]string{"From": r.PostForm.Get("From"), "To": r.PostForm.Get("To"), "Body": r.PostForm.Get("Body")}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	tw := NewTwilio("AC123", "secret", "+15005550006")
	tw.BaseURL = ts.URL
	require.NoError(t, tw.Send(context.Background(), "+447700900123", "  hello  "))

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", path)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, map[string]string{"From": "+15005550006", "To": "+447700900123", "Body": "hello"}, form)
}

func TestTwilio_Rejects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	tw := NewTwilio("AC123", "secret", "+15005550006")
	tw.BaseURL = ts.URL

	assert.Error(t, tw.Send(context.Background(), "+447700900123", "hello"))
	assert.Error(t, tw.Send(context.Background(), "12345", "hello"))
	assert.Error(t, tw.Send(context.Background(), "+447700900123", "   "))
	assert.Error(t, tw.Send(context.Background(), "+447700900123", strings.Repeat("x", 1601)))

	var disabled *Twilio
	assert.ErrorIs(t, disabled.Send(context.Background(), "+447700900123", "hello"), ErrDisabled)
	assert.Nil(t, NewTwilio("", "", ""))
}

type mockDialer struct {
	sent *mail.Message
	err  error
}

func (d *mockDialer) DialAndSend(m ...*mail.Message) error {
	if d.err != nil {
		return d.err
	}
	if len(m) > 0 {
		d.sent = m[0]
	}
	return nil
}

func TestMail(t *testing.T) {
	t.Run("sends plain text", func(t *testing.T) {
		d := &mockDialer{}
		m := &Mail{From: "uptime@example.com", Subject: "Uptime alert", dialer: d}
		require.NoError(t, m.Send(context.Background(), "ops@example.com", "hello"))
		require.NotNil(t, d.sent)
		assert.Equal(t, "ops@example.com", d.sent.GetHeader("To")[0])
		var body bytes.Buffer
		_, _ = d.sent.WriteTo(&body)
		assert.Contains(t, body.String(), "hello")
	})

	t.Run("dialer error", func(t *testing.T) {
		m := &Mail{From: "uptime@example.com", dialer: &mockDialer{err: errors.New("smtp down")}}
		assert.Error(t, m.Send(context.Background(), "ops@example.com", "hello"))
	})
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}
func (f *fakeWriter) Close() error { return nil }

func TestKafka_KeysByRecipient(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{w: w, now: func() time.Time { return time.Unix(0, 0) }}
	require.NoError(t, k.Send(context.Background(), "+44123", "hello"))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "+44123", string(w.msgs[0].Key))
	var ev alertEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "hello", ev.Body)
	assert.Nil(t, NewKafka(nil, "alerts"))
}
