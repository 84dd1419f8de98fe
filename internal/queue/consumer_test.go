package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to, subject, body string
	calls             int
	err               error
}

func (f *fakeSender) Send(to, subject, htmlBody string) error {
	f.calls++
	f.to, f.subject, f.body = to, subject, htmlBody
	return f.err
}

func TestHandleMessage(t *testing.T) {
	body, err := json.Marshal(VerificationEmailEvent{
		Email:    "alice@example.com",
		FullName: "Alice",
		Kind:     "pass",
		ItemID:   7,
	})
	require.NoError(t, err)

	s := &fakeSender{}
	require.NoError(t, handleMessage(body, s))
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, "alice@example.com", s.to)
	assert.Equal(t, "Your pass has been verified", s.subject)
	assert.Contains(t, s.body, "Alice")
}

func TestHandleMessageBadPayload(t *testing.T) {
	s := &fakeSender{}
	assert.Error(t, handleMessage([]byte("{not json"), s))
	assert.Error(t, handleMessage([]byte(`{"email":""}`), s))
	assert.Equal(t, 0, s.calls)
}

func TestRenderVerificationMail(t *testing.T) {
	subject, html := RenderVerificationMail(VerificationEmailEvent{Kind: "accommodation"})
	assert.Equal(t, "Your accommodation booking is confirmed", subject)
	assert.Contains(t, html, "participant") // fallback name

	subject, _ = RenderVerificationMail(VerificationEmailEvent{Kind: "event", FullName: "Bob"})
	assert.Equal(t, "Your event registration has been verified", subject)

	subject, _ = RenderVerificationMail(VerificationEmailEvent{Kind: "transaction"})
	assert.Equal(t, "Your payment has been verified", subject)
}
