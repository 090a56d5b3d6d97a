package mailthread

import (
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/matheus3301/crmlive/internal/crm"
)

// DisplayBody returns the text to show for a mail message: the parsed body
// when the backend provides one, otherwise the text part of the raw MIME
// body, otherwise the raw body as-is.
func DisplayBody(m crm.MailMessage) string {
	if m.ParsedBody != nil && *m.ParsedBody != "" {
		return *m.ParsedBody
	}
	if !looksLikeMIME(m.RawBody) {
		return m.RawBody
	}
	env, err := enmime.ReadEnvelope(strings.NewReader(m.RawBody))
	if err != nil {
		return m.RawBody
	}
	if text := strings.TrimSpace(env.Text); text != "" {
		return text
	}
	return m.RawBody
}

// looksLikeMIME reports whether raw starts with a header block.
func looksLikeMIME(raw string) bool {
	head, _, ok := strings.Cut(raw, "\n")
	if !ok {
		return false
	}
	name, _, ok := strings.Cut(head, ":")
	return ok && name != "" && !strings.ContainsAny(name, " \t")
}
