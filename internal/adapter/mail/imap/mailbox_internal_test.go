package imap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMessage = "Subject: Re: RFP: Office Chairs - 7\r\n" +
	"From: Acme Sales <sales@acme.test>\r\n" +
	"To: procurement@buyer.test\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=frontier\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"We can deliver for $900 total.\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>We can deliver for $900 total.</p>\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Disposition: attachment; filename=\"quote.txt\"\r\n" +
	"\r\n" +
	"item,qty,price\r\nchair,5,180\r\n" +
	"--frontier--\r\n"

func TestParseMessage_FullMultipart(t *testing.T) {
	msg, err := parseMessage(strings.NewReader(sampleMessage))
	require.NoError(t, err)

	assert.Equal(t, "Re: RFP: Office Chairs - 7", msg.Subject)
	assert.Equal(t, "sales@acme.test", msg.From)
	assert.Contains(t, msg.Text, "$900 total")
	assert.Contains(t, msg.HTML, "<p>")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "quote.txt", msg.Attachments[0].Filename)
	assert.Contains(t, string(msg.Attachments[0].Data), "chair,5,180")
}

func TestParseMessage_PlainOnly(t *testing.T) {
	raw := "Subject: RFP: Desks - 2\r\n" +
		"From: bids@globex.test\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Our offer attached below.\r\n"
	msg, err := parseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Our offer attached below.\r\n", msg.Text)
	assert.Empty(t, msg.Attachments)
}

func TestParseMessage_NilBody(t *testing.T) {
	_, err := parseMessage(nil)
	assert.Error(t, err)
}
