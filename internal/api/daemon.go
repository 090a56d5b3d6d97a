package api

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/livesync"
	"github.com/matheus3301/crmlive/internal/notify"
	"github.com/matheus3301/crmlive/internal/status"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Activator re-establishes the global notification scope.
type Activator interface {
	ActivateGlobal(ctx context.Context) error
}

// SessionService reports daemon health and the client directory.
type SessionService struct {
	session    string
	startedAt  time.Time
	machine    *status.Machine
	global     *livesync.Synchronizer
	dir        *livesync.Directory
	notes      *notify.Store
	activator  Activator
	operator   crm.Operator
	feedDriver string
}

// NewSessionService creates the Daemon service.
func NewSessionService(
	session string,
	machine *status.Machine,
	global *livesync.Synchronizer,
	dir *livesync.Directory,
	notes *notify.Store,
	activator Activator,
	operator crm.Operator,
	feedDriver string,
) *SessionService {
	return &SessionService{
		session:    session,
		startedAt:  time.Now(),
		machine:    machine,
		global:     global,
		dir:        dir,
		notes:      notes,
		activator:  activator,
		operator:   operator,
		feedDriver: feedDriver,
	}
}

var daemonDesc = grpc.ServiceDesc{
	ServiceName: DaemonService,
	HandlerType: anyHandler,
	Methods: []grpc.MethodDesc{
		method(DaemonService, "Status", (*SessionService).Status),
		method(DaemonService, "Clients", (*SessionService).Clients),
		method(DaemonService, "Reactivate", (*SessionService).Reactivate),
	},
}

// Register attaches the service to a gRPC server.
func (s *SessionService) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&daemonDesc, s)
}

// Status returns a DaemonStatus.
func (s *SessionService) Status(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st := DaemonStatus{
		Session:    s.session,
		Status:     string(s.machine.Current()),
		Reason:     s.machine.Reason(),
		UptimeMs:   time.Since(s.startedAt).Milliseconds(),
		Operator:   s.operator,
		FeedDriver: s.feedDriver,
	}
	if s.global != nil {
		gs := s.global.Status()
		st.Scope = gs.Scope.String()
		st.FeedError = errString(gs.FeedErr)
	}
	if s.notes != nil {
		st.Notifications = s.notes.Len()
	}
	if s.dir != nil {
		st.Clients = len(s.dir.Clients())
	}
	return reply(st)
}

// Clients returns {"clients": [...]} sorted by display name.
func (s *SessionService) Clients(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	clients := s.dir.Clients()
	slices.SortFunc(clients, func(a, b crm.Client) int {
		if c := strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return reply(map[string]any{"clients": clients})
}

// Reactivate re-subscribes the global scope, the retry path after a feed
// failure.
func (s *SessionService) Reactivate(ctx context.Context, _ *structpb.Struct) (*emptypb.Empty, error) {
	if err := s.activator.ActivateGlobal(ctx); err != nil {
		return nil, rpcError(err)
	}
	return &emptypb.Empty{}, nil
}
