package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/crm"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, service, method string, req map[string]any, out proto.Message) error {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.conn.Invoke(ctx, "/"+service+"/"+method, in, out)
}

// call invokes a Struct-returning method and decodes the result into dst.
func (c *Client) call(ctx context.Context, service, method string, req map[string]any, dst any) error {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, service, method, req, out); err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	return decode(out, dst)
}

func decode(s *structpb.Struct, dst any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Status returns the daemon health summary.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var st api.DaemonStatus
	err := c.call(ctx, api.DaemonService, "Status", nil, &st)
	return st, err
}

// Clients returns the client directory sorted by name.
func (c *Client) Clients(ctx context.Context) ([]crm.Client, error) {
	var resp struct {
		Clients []crm.Client `json:"clients"`
	}
	err := c.call(ctx, api.DaemonService, "Clients", nil, &resp)
	return resp.Clients, err
}

// Reactivate re-subscribes the daemon's notification feed.
func (c *Client) Reactivate(ctx context.Context) error {
	return c.invoke(ctx, api.DaemonService, "Reactivate", nil, new(emptypb.Empty))
}

// Notifications lists pending notifications in arrival order.
func (c *Client) Notifications(ctx context.Context) ([]crm.Notification, error) {
	var resp struct {
		Notifications []crm.Notification `json:"notifications"`
	}
	err := c.call(ctx, api.NotificationsService, "List", nil, &resp)
	return resp.Notifications, err
}

// Dismiss removes one notification.
func (c *Client) Dismiss(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Removed bool `json:"removed"`
	}
	err := c.call(ctx, api.NotificationsService, "Dismiss", map[string]any{"id": id}, &resp)
	return resp.Removed, err
}

// OpenNotification dismisses a notification and returns its client.
func (c *Client) OpenNotification(ctx context.Context, id string) (crm.ID, bool, error) {
	var resp struct {
		Found    bool   `json:"found"`
		ClientID crm.ID `json:"client_id"`
	}
	err := c.call(ctx, api.NotificationsService, "Open", map[string]any{"id": id}, &resp)
	return resp.ClientID, resp.Found, err
}

// ClearNotifications removes every notification.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.invoke(ctx, api.NotificationsService, "Clear", nil, new(emptypb.Empty))
}

// OpenConversation makes clientID the live conversation.
func (c *Client) OpenConversation(ctx context.Context, clientID crm.ID) (api.ConversationView, error) {
	var v api.ConversationView
	err := c.call(ctx, api.ConversationsService, "Open", map[string]any{"client_id": string(clientID)}, &v)
	return v, err
}

// CloseConversation ends the live conversation.
func (c *Client) CloseConversation(ctx context.Context) error {
	return c.invoke(ctx, api.ConversationsService, "Close", nil, new(emptypb.Empty))
}

// Conversation returns the open conversation.
func (c *Client) Conversation(ctx context.Context) (api.ConversationView, error) {
	var v api.ConversationView
	err := c.call(ctx, api.ConversationsService, "Messages", nil, &v)
	return v, err
}

// Draft stores the compose buffer.
func (c *Client) Draft(ctx context.Context, text string) (api.ConversationView, error) {
	var v api.ConversationView
	err := c.call(ctx, api.ConversationsService, "Draft", map[string]any{"text": text}, &v)
	return v, err
}

// Send sends an SMS in the open conversation.
func (c *Client) Send(ctx context.Context, text string) (crm.Message, error) {
	var resp struct {
		Message crm.Message `json:"message"`
	}
	err := c.call(ctx, api.ConversationsService, "Send", map[string]any{"text": text}, &resp)
	return resp.Message, err
}

// Threads lists a client's mail threads, newest first.
func (c *Client) Threads(ctx context.Context, clientID crm.ID, refresh bool) ([]api.ThreadView, error) {
	var resp struct {
		Threads []api.ThreadView `json:"threads"`
	}
	err := c.call(ctx, api.MailService, "Threads", map[string]any{
		"client_id": string(clientID),
		"refresh":   refresh,
	}, &resp)
	return resp.Threads, err
}

// Reply answers a thread and returns its updated chain.
func (c *Client) Reply(ctx context.Context, clientID crm.ID, threadID, body string) ([]api.MailView, error) {
	var resp struct {
		Chain []api.MailView `json:"chain"`
	}
	err := c.call(ctx, api.MailService, "Reply", map[string]any{
		"client_id": string(clientID),
		"thread_id": threadID,
		"body":      body,
	}, &resp)
	return resp.Chain, err
}

// Compose starts a new mail thread.
func (c *Client) Compose(ctx context.Context, clientID crm.ID, subject, body string) (api.MailView, error) {
	var resp struct {
		Message api.MailView `json:"message"`
	}
	err := c.call(ctx, api.MailService, "Compose", map[string]any{
		"client_id": string(clientID),
		"subject":   subject,
		"body":      body,
	}, &resp)
	return resp.Message, err
}

// EventStream receives watched bus events.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (s *EventStream) Recv() (api.WatchEvent, error) {
	var evt api.WatchEvent
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return evt, err
	}
	err := decode(out, &evt)
	return evt, err
}

// Watch streams events from service whose kind starts with namespace. An
// empty namespace uses the service default. Cancel ctx to stop.
func (c *Client) Watch(ctx context.Context, service, namespace string) (*EventStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Watch", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+service+"/Watch")
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"namespace": namespace})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
