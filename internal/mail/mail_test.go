package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

func testConfig() types.MailConfig {
	return types.MailConfig{
		To:       []string{"ops@example.org"},
		CC:       []string{"lead@example.org", "audit@example.org"},
		From:     "reports@example.org",
		ReplyTo:  "support@example.org",
		SMTPHost: "smtp.example.org",
		SMTPPort: 25,
		StartTLS: true,
	}
}

func TestWriterSender_Send(t *testing.T) {
	var buf bytes.Buffer
	sender := &WriterSender{W: &buf}

	msg := Envelope(testConfig(), "(1 files, +1.0 KiB) S3 Storage Report for 2024-05-10", "<p>hi</p>", "hi")
	require.NoError(t, sender.Send(context.Background(), msg))

	out := buf.String()
	assert.Contains(t, out, "S3 Storage Report for 2024-05-10")
	assert.Contains(t, out, "reports@example.org")
	assert.Contains(t, out, "ops@example.org")
	assert.Contains(t, out, "lead@example.org")
	assert.Contains(t, out, "support@example.org")
	assert.Contains(t, out, "multipart/alternative")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "text/html")
	assert.Less(t, strings.Index(out, "text/plain"), strings.Index(out, "text/html"))
}

func TestMessage_BuildRejectsBadAddresses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Message)
	}{
		{"bad from", func(m *Message) { m.From = "not an address" }},
		{"bad to", func(m *Message) { m.To = []string{"nope"} }},
		{"bad cc", func(m *Message) { m.CC = []string{"nope"} }},
		{"bad reply-to", func(m *Message) { m.ReplyTo = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Envelope(testConfig(), "s", "h", "t")
			tt.mutate(&msg)
			_, err := msg.Build()
			assert.Error(t, err)
		})
	}
}

func TestMessage_BuildWithoutOptionalFields(t *testing.T) {
	cfg := testConfig()
	cfg.CC = nil
	cfg.ReplyTo = ""

	msg, err := Envelope(cfg, "s", "h", "t").Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Cc:")
	assert.NotContains(t, buf.String(), "Reply-To:")
}

func TestSMTPSender_InvalidMessage(t *testing.T) {
	sender := NewSMTPSender(testConfig(), zap.NewNop())
	msg := Envelope(testConfig(), "s", "h", "t")
	msg.From = "bad"

	err := sender.Send(context.Background(), msg)
	assert.Error(t, err)
}
