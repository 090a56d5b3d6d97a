package api

import (
	"context"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/conversation"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/livesync"
	"github.com/matheus3301/crmlive/internal/mailthread"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MailThreadService lists mail threads and sends mail.
type MailThreadService struct {
	mail   conversation.MailAPI
	dir    *livesync.Directory
	cache  *mailthread.Cache
	bus    *bus.Bus
	logger *zap.Logger
}

// NewMailThreadService creates the Mail service.
func NewMailThreadService(mail conversation.MailAPI, dir *livesync.Directory, cache *mailthread.Cache, b *bus.Bus, logger *zap.Logger) *MailThreadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailThreadService{mail: mail, dir: dir, cache: cache, bus: b, logger: logger}
}

var mailDesc = grpc.ServiceDesc{
	ServiceName: MailService,
	HandlerType: anyHandler,
	Methods: []grpc.MethodDesc{
		method(MailService, "Threads", (*MailThreadService).Threads),
		method(MailService, "Reply", (*MailThreadService).Reply),
		method(MailService, "Compose", (*MailThreadService).Compose),
	},
}

// Register attaches the service to a gRPC server.
func (s *MailThreadService) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&mailDesc, s)
}

func (s *MailThreadService) mailbox(in *structpb.Struct) (*conversation.Mailbox, error) {
	id := idField(in, "client_id")
	if id == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "client_id is required")
	}
	client, ok := s.dir.Lookup(id)
	if !ok {
		client = crm.Client{ID: id}
	}
	return conversation.NewMailbox(client, s.mail, s.cache, s.bus, s.logger), nil
}

// Threads returns {"threads": [...]} newest first for {"client_id",
// "refresh"}.
func (s *MailThreadService) Threads(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	mb, err := s.mailbox(in)
	if err != nil {
		return nil, err
	}
	threads, err := mb.Threads(ctx, boolField(in, "refresh"))
	if err != nil {
		return nil, rpcError(err)
	}
	return reply(map[string]any{"threads": threadViews(threads)})
}

// Reply answers thread {"client_id", "thread_id", "body"} and returns the
// updated {"chain"}.
func (s *MailThreadService) Reply(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	mb, err := s.mailbox(in)
	if err != nil {
		return nil, err
	}
	threadID, err := required(in, "thread_id")
	if err != nil {
		return nil, err
	}
	threads, err := mb.Threads(ctx, false)
	if err != nil {
		return nil, rpcError(err)
	}
	var chain []crm.MailMessage
	for _, t := range threads {
		if t.ThreadID == threadID {
			chain = t.Chain
			break
		}
	}
	if chain == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "thread %q not found", threadID)
	}

	var attachments []crm.Attachment
	if err := decodeAttachments(in, &attachments); err != nil {
		return nil, err
	}
	updated, err := mb.Reply(ctx, chain, stringField(in, "body"), attachments)
	if err != nil {
		return nil, rpcError(err)
	}
	return reply(map[string]any{"chain": mailViews(updated)})
}

// Compose starts a thread: {"client_id", "subject", "body", "attachments"}
// -> {"message"}.
func (s *MailThreadService) Compose(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	mb, err := s.mailbox(in)
	if err != nil {
		return nil, err
	}
	var attachments []crm.Attachment
	if err := decodeAttachments(in, &attachments); err != nil {
		return nil, err
	}
	created, err := mb.NewThread(ctx, stringField(in, "subject"), stringField(in, "body"), attachments)
	if err != nil {
		return nil, rpcError(err)
	}
	return reply(map[string]any{"message": mailViews([]crm.MailMessage{created})[0]})
}

func decodeAttachments(in *structpb.Struct, dst *[]crm.Attachment) error {
	list := in.GetFields()["attachments"].GetListValue()
	if list == nil {
		return nil
	}
	for _, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return grpcstatus.Error(codes.InvalidArgument, "attachments must be objects")
		}
		*dst = append(*dst, crm.Attachment{Name: stringField(s, "name"), URL: stringField(s, "url")})
	}
	return nil
}
