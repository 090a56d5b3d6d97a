package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/mailthread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMail struct {
	mails     []crm.MailMessage
	sent      []crm.MailMessage
	listCalls int
	err       error
}

func (f *fakeMail) ListMail(context.Context, crm.ID) ([]crm.MailMessage, error) {
	f.listCalls++
	return f.mails, nil
}

func (f *fakeMail) SendMail(_ context.Context, m crm.MailMessage) (crm.MailMessage, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return crm.MailMessage{}, f.err
	}
	m.MessageID = "new-id"
	if m.ThreadID == "" {
		m.ThreadID = "new-thread"
	}
	return m, nil
}

func rootMail() crm.MailMessage {
	return crm.MailMessage{
		MessageID: "m1", ThreadID: "t1", ClientID: "1", Subject: "Hi",
		ToAddress: []string{"ada@example.com"}, SentAt: "2024-01-01T10:00:00Z",
	}
}

func TestReplySetsInReplyToLastMessage(t *testing.T) {
	api := &fakeMail{}
	mb := NewMailbox(ada, api, nil, nil, nil)
	second := crm.MailMessage{MessageID: "m2", InReplyTo: crm.StringPtr("m1"), ThreadID: "t1"}
	chain := []crm.MailMessage{rootMail(), second}

	got, err := mb.Reply(context.Background(), chain, " thanks ", nil)
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	sent := api.sent[0]
	assert.Equal(t, "m2", sent.ParentID())
	assert.Equal(t, "t1", sent.ThreadID)
	assert.Equal(t, "Hi", sent.Subject)
	assert.Equal(t, []string{"ada@example.com"}, sent.ToAddress)
	assert.Equal(t, DirectionOutgoing, sent.Direction)
	assert.Equal(t, "thanks", sent.RawBody)
	assert.Empty(t, sent.MessageID)

	require.Len(t, got, 3)
	assert.Equal(t, "new-id", got[2].MessageID)
	assert.Len(t, chain, 2, "input chain unchanged")
}

func TestReplyRejections(t *testing.T) {
	api := &fakeMail{}
	mb := NewMailbox(ada, api, nil, nil, nil)

	_, err := mb.Reply(context.Background(), nil, "hi", nil)
	assert.ErrorIs(t, err, ErrEmptyChain)
	_, err = mb.Reply(context.Background(), []crm.MailMessage{rootMail()}, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = mb.Reply(context.Background(), []crm.MailMessage{{ThreadID: "t"}}, "hi", nil)
	assert.ErrorIs(t, err, ErrReplyTargetMissing)
	assert.Empty(t, api.sent)
}

func TestReplyFailureLeavesChain(t *testing.T) {
	api := &fakeMail{err: errors.New("down")}
	mb := NewMailbox(ada, api, nil, nil, nil)
	chain := []crm.MailMessage{rootMail()}

	got, err := mb.Reply(context.Background(), chain, "hi", nil)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Nil(t, got)
	assert.Len(t, chain, 1)
}

func TestNewThread(t *testing.T) {
	api := &fakeMail{}
	mb := NewMailbox(ada, api, nil, nil, nil)
	att := []crm.Attachment{{Name: "a.pdf", URL: "https://files/a.pdf"}}

	created, err := mb.NewThread(context.Background(), "Contract", "Please sign", att)
	require.NoError(t, err)
	assert.Equal(t, "new-thread", created.ThreadID)
	sent := api.sent[0]
	assert.True(t, sent.IsRoot())
	assert.Equal(t, crm.ID("1"), sent.ClientID)
	assert.Equal(t, []string{"ada@example.com"}, sent.ToAddress)
	assert.Equal(t, att, sent.Attachments)
}

func TestNewThreadRejections(t *testing.T) {
	api := &fakeMail{}
	mb := NewMailbox(ada, api, nil, nil, nil)
	_, err := mb.NewThread(context.Background(), "", "body", nil)
	assert.ErrorIs(t, err, ErrSubjectRequired)
	_, err = mb.NewThread(context.Background(), "subj", "", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	noMail := NewMailbox(crm.Client{ID: "2"}, api, nil, nil, nil)
	_, err = noMail.NewThread(context.Background(), "subj", "body", nil)
	assert.ErrorIs(t, err, ErrClientEmailMissing)
	assert.Empty(t, api.sent)
}

func TestNewThreadUsesAlternateEmail(t *testing.T) {
	api := &fakeMail{}
	mb := NewMailbox(crm.Client{ID: "3", AlternateEmail: "alt@example.com"}, api, nil, nil, nil)
	_, err := mb.NewThread(context.Background(), "s", "b", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alt@example.com"}, api.sent[0].ToAddress)
}

func TestThreadsUsesCacheUntilSend(t *testing.T) {
	api := &fakeMail{mails: []crm.MailMessage{rootMail()}}
	cache := mailthread.NewCache()
	mb := NewMailbox(ada, api, cache, nil, nil)

	threads, err := mb.Threads(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	_, err = mb.Threads(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCalls)

	_, err = mb.Reply(context.Background(), threads[0].Chain, "hi", nil)
	require.NoError(t, err)
	_, err = mb.Threads(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls, "send invalidates the cache")

	_, err = mb.Threads(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, api.listCalls)
}
