package api

import (
	"context"
	"errors"
	"sync"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/conversation"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/livesync"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ConversationService drives the client-scoped synchronizer and the SMS
// composer of the open conversation. One conversation is open per daemon.
type ConversationService struct {
	session  string
	sync     *livesync.Synchronizer
	dir      *livesync.Directory
	sender   conversation.MessageSender
	operator crm.Operator
	bus      *bus.Bus
	logger   *zap.Logger

	mu       sync.Mutex
	composer *conversation.Composer
}

// NewConversationService creates the Conversations service.
func NewConversationService(
	session string,
	s *livesync.Synchronizer,
	dir *livesync.Directory,
	sender conversation.MessageSender,
	operator crm.Operator,
	b *bus.Bus,
	logger *zap.Logger,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		session:  session,
		sync:     s,
		dir:      dir,
		sender:   sender,
		operator: operator,
		bus:      b,
		logger:   logger,
	}
}

var conversationsDesc = grpc.ServiceDesc{
	ServiceName: ConversationsService,
	HandlerType: anyHandler,
	Methods: []grpc.MethodDesc{
		method(ConversationsService, "Open", (*ConversationService).Open),
		method(ConversationsService, "Close", (*ConversationService).Close),
		method(ConversationsService, "Messages", (*ConversationService).Messages),
		method(ConversationsService, "Draft", (*ConversationService).Draft),
		method(ConversationsService, "Send", (*ConversationService).Send),
	},
	Streams: []grpc.StreamDesc{
		serverStream("Watch", (*ConversationService).Watch),
	},
}

// Register attaches the service to a gRPC server.
func (s *ConversationService) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&conversationsDesc, s)
}

// Open switches the conversation to {"client_id"}. A failed history load
// is reported in load_error, not as an RPC error, so the live feed still
// shows new messages.
func (s *ConversationService) Open(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := idField(in, "client_id")
	if id == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "client_id is required")
	}

	err := s.sync.Activate(ctx, livesync.Client(id))
	if errors.Is(err, livesync.ErrSuperseded) || errors.Is(err, livesync.ErrNoClient) {
		return nil, rpcError(err)
	}
	if err != nil {
		s.logger.Warn("conversation opened with errors", zap.String("client_id", string(id)), zap.Error(err))
	}

	client, ok := s.dir.Lookup(id)
	if !ok {
		client = crm.Client{ID: id}
	}
	if client.PrimaryPhone == "" {
		client.PrimaryPhone = s.sync.State().ClientPhone
	}

	if !s.install(client) {
		return nil, rpcError(livesync.ErrSuperseded)
	}
	return reply(s.view())
}

// install sets the composer for client unless another Open or a Close
// changed the scope since its activation.
func (s *ConversationService) install(client crm.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sync.Scope() != livesync.Client(client.ID) {
		return false
	}
	s.composer = conversation.NewComposer(client, s.sender, s.bus, s.logger)
	return true
}

// Close deactivates the conversation.
func (s *ConversationService) Close(ctx context.Context, _ *structpb.Struct) (*emptypb.Empty, error) {
	if err := s.sync.Deactivate(ctx); err != nil {
		return nil, rpcError(err)
	}
	s.dropStale()
	return &emptypb.Empty{}, nil
}

// dropStale clears the composer unless a newer Open already installed one
// for the active scope.
func (s *ConversationService) dropStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composer != nil && s.sync.Scope() != livesync.Client(s.composer.Client().ID) {
		s.composer = nil
	}
}

// Messages returns the current ConversationView.
func (s *ConversationService) Messages(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.view())
}

// Draft stores {"text"} in the compose buffer.
func (s *ConversationService) Draft(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	c.SetText(stringField(in, "text"))
	return reply(s.view())
}

// Send sends {"text"} from the operator's number. The message appears in
// the conversation once the feed delivers it.
func (s *ConversationService) Send(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	msg, err := c.Send(ctx, stringField(in, "text"), s.operator.PhoneNumber)
	if err != nil {
		return nil, rpcError(err)
	}
	return reply(map[string]any{"message": msg})
}

// Watch streams conversation events; the namespace defaults to
// "conversation.".
func (s *ConversationService) Watch(in *structpb.Struct, stream grpc.ServerStream) error {
	ns := stringField(in, "namespace")
	if ns == "" {
		ns = "conversation."
	}
	return watch(s.bus, s.session, ns, stream, s.logger)
}

func (s *ConversationService) current() (*conversation.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composer == nil || s.sync.Scope() != livesync.Client(s.composer.Client().ID) {
		return nil, grpcstatus.Error(codes.FailedPrecondition, "no conversation is open")
	}
	return s.composer, nil
}

func (s *ConversationService) view() ConversationView {
	st := s.sync.State()
	status := s.sync.Status()
	v := ConversationView{
		ClientID:     st.Scope.ClientID,
		ClientPhone:  st.ClientPhone,
		Active:       status.Active && st.Scope.Kind == livesync.ScopeClient,
		Messages:     st.Messages,
		ComposeState: string(conversation.Idle),
		LoadError:    errString(status.LoadErr),
		FeedError:    errString(status.FeedErr),
	}
	if v.Messages == nil {
		v.Messages = []crm.Message{}
	}
	if c, ok := s.dir.Lookup(v.ClientID); ok {
		v.ClientName = c.DisplayName()
	}

	s.mu.Lock()
	c := s.composer
	s.mu.Unlock()
	if c != nil && c.Client().ID == v.ClientID {
		v.ComposeState = string(c.State())
		v.Draft = c.Text()
	}
	return v
}
