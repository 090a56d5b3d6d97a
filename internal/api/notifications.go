package api

import (
	"context"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/notify"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// NotificationService serves the notification store.
type NotificationService struct {
	session string
	store   *notify.Store
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewNotificationService creates the Notifications service.
func NewNotificationService(session string, store *notify.Store, b *bus.Bus, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{session: session, store: store, bus: b, logger: logger}
}

var notificationsDesc = grpc.ServiceDesc{
	ServiceName: NotificationsService,
	HandlerType: anyHandler,
	Methods: []grpc.MethodDesc{
		method(NotificationsService, "List", (*NotificationService).List),
		method(NotificationsService, "Dismiss", (*NotificationService).Dismiss),
		method(NotificationsService, "Open", (*NotificationService).Open),
		method(NotificationsService, "Clear", (*NotificationService).Clear),
	},
	Streams: []grpc.StreamDesc{
		serverStream("Watch", (*NotificationService).Watch),
	},
}

// Register attaches the service to a gRPC server.
func (s *NotificationService) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&notificationsDesc, s)
}

// List returns {"notifications": [...]} in arrival order.
func (s *NotificationService) List(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(map[string]any{"notifications": s.store.List()})
}

// Dismiss removes one notification by id: {"id"} -> {"removed"}.
func (s *NotificationService) Dismiss(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	return reply(map[string]any{"removed": s.store.Remove(id)})
}

// Open dismisses a notification and returns the client to navigate to:
// {"id"} -> {"found", "client_id"}.
func (s *NotificationService) Open(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := required(in, "id")
	if err != nil {
		return nil, err
	}
	clientID, ok := s.store.Open(id)
	return reply(map[string]any{"found": ok, "client_id": clientID})
}

// Clear empties the store.
func (s *NotificationService) Clear(_ context.Context, _ *structpb.Struct) (*emptypb.Empty, error) {
	s.store.Clear()
	return &emptypb.Empty{}, nil
}

// Watch streams notification events. {"namespace"} may widen or narrow
// the bus prefix; it defaults to "notification.".
func (s *NotificationService) Watch(in *structpb.Struct, stream grpc.ServerStream) error {
	ns := stringField(in, "namespace")
	if ns == "" {
		ns = "notification."
	}
	return watch(s.bus, s.session, ns, stream, s.logger)
}
