package mailthread

import (
	"testing"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/stretchr/testify/assert"
)

func TestDisplayBodyPrefersParsed(t *testing.T) {
	m := crm.MailMessage{RawBody: "raw", ParsedBody: crm.StringPtr("parsed")}
	assert.Equal(t, "parsed", DisplayBody(m))
}

func TestDisplayBodyPlainRaw(t *testing.T) {
	m := crm.MailMessage{RawBody: "just text, nothing fancy"}
	assert.Equal(t, "just text, nothing fancy", DisplayBody(m))
}

func TestDisplayBodyExtractsMIMEText(t *testing.T) {
	raw := "From: ada@example.com\r\n" +
		"To: ops@example.com\r\n" +
		"Subject: Hello\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Body line\r\n"
	m := crm.MailMessage{RawBody: raw}
	assert.Equal(t, "Body line", DisplayBody(m))
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("1")
	assert.False(t, ok)

	built := c.Build("1", []crm.MailMessage{{MessageID: "m", ThreadID: "t"}})
	got, ok := c.Get("1")
	assert.True(t, ok)
	assert.Equal(t, built, got)

	c.Invalidate("1")
	_, ok = c.Get("1")
	assert.False(t, ok)
}
