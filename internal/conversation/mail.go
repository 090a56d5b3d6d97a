package conversation

import (
	"context"
	"slices"
	"strings"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/mailthread"
	"go.uber.org/zap"
)

// DirectionOutgoing is the mail direction the backend expects for sends.
const DirectionOutgoing = "outgoing"

// MailAPI is the backend mail endpoint.
type MailAPI interface {
	ListMail(ctx context.Context, clientID crm.ID) ([]crm.MailMessage, error)
	SendMail(ctx context.Context, m crm.MailMessage) (crm.MailMessage, error)
}

// Mailbox lists a client's threads and composes new mail and replies.
type Mailbox struct {
	client crm.Client
	api    MailAPI
	cache  *mailthread.Cache
	bus    *bus.Bus
	logger *zap.Logger
}

// NewMailbox creates a mailbox for client. cache may be shared between
// mailboxes.
func NewMailbox(client crm.Client, api MailAPI, cache *mailthread.Cache, b *bus.Bus, logger *zap.Logger) *Mailbox {
	if cache == nil {
		cache = mailthread.NewCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailbox{
		client: client,
		api:    api,
		cache:  cache,
		bus:    b,
		logger: logger.With(zap.String("client_id", string(client.ID))),
	}
}

// Threads returns the client's threads, newest first. Cached threads are
// returned unless refresh is set.
func (m *Mailbox) Threads(ctx context.Context, refresh bool) ([]mailthread.Thread, error) {
	if !refresh {
		if threads, ok := m.cache.Get(m.client.ID); ok {
			return threads, nil
		}
	}
	mails, err := m.api.ListMail(ctx, m.client.ID)
	if err != nil {
		return nil, err
	}
	return m.cache.Build(m.client.ID, mails), nil
}

// NewThread sends a new mail to the client's address.
func (m *Mailbox) NewThread(ctx context.Context, subject, body string, attachments []crm.Attachment) (crm.MailMessage, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	switch {
	case subject == "":
		return crm.MailMessage{}, ErrSubjectRequired
	case body == "":
		return crm.MailMessage{}, ErrEmptyMessage
	case m.client.Email() == "":
		return crm.MailMessage{}, ErrClientEmailMissing
	}

	created, err := m.send(ctx, crm.MailMessage{
		ClientID:    m.client.ID,
		Direction:   DirectionOutgoing,
		ToAddress:   []string{m.client.Email()},
		Subject:     subject,
		RawBody:     body,
		ParsedBody:  crm.StringPtr(body),
		Attachments: attachments,
	})
	if err != nil {
		return crm.MailMessage{}, err
	}
	m.logger.Info("mail thread started", zap.String("thread_id", created.ThreadID))
	return created, nil
}

// Reply answers the last message of chain. The reply keeps the root's
// thread id, subject and recipients. On success it returns a new chain
// with the stored reply appended; chain itself is never modified.
func (m *Mailbox) Reply(ctx context.Context, chain []crm.MailMessage, body string, attachments []crm.Attachment) ([]crm.MailMessage, error) {
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	last := chain[len(chain)-1]
	if last.MessageID == "" {
		return nil, ErrReplyTargetMissing
	}

	root := chain[0]
	reply := crm.MailMessage{
		ClientID:    root.ClientID,
		ThreadID:    root.ThreadID,
		Direction:   DirectionOutgoing,
		ToAddress:   slices.Clone(root.ToAddress),
		Subject:     root.Subject,
		RawBody:     body,
		ParsedBody:  crm.StringPtr(body),
		InReplyTo:   crm.StringPtr(last.MessageID),
		Attachments: attachments,
	}
	if reply.ClientID == "" {
		reply.ClientID = m.client.ID
	}
	if len(reply.ToAddress) == 0 && m.client.Email() != "" {
		reply.ToAddress = []string{m.client.Email()}
	}

	created, err := m.send(ctx, reply)
	if err != nil {
		return nil, err
	}
	m.logger.Info("mail reply sent", zap.String("thread_id", created.ThreadID), zap.String("in_reply_to", last.MessageID))
	return append(slices.Clone(chain), created), nil
}

func (m *Mailbox) send(ctx context.Context, msg crm.MailMessage) (crm.MailMessage, error) {
	created, err := m.api.SendMail(ctx, msg)
	if err != nil {
		m.logger.Warn("mail send failed", zap.Error(err))
		return crm.MailMessage{}, &SendError{Err: err}
	}
	m.cache.Invalidate(m.client.ID)
	m.bus.Emit(bus.MailThreadsChanged, m.client.ID)
	return created, nil
}
