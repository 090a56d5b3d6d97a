// Package api exposes the daemon over gRPC. Messages are
// google.protobuf.Struct documents shaped like the view types in this
// package, so no generated code is needed on either side.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/matheus3301/crmlive/internal/backend"
	"github.com/matheus3301/crmlive/internal/conversation"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/livesync"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service names.
const (
	NotificationsService = "crmlive.v1.Notifications"
	ConversationsService = "crmlive.v1.Conversations"
	MailService          = "crmlive.v1.Mail"
	DaemonService        = "crmlive.v1.Daemon"
)

// anyHandler lets RegisterService accept any implementation; the method
// tables below do the type assertions.
var anyHandler = (*any)(nil)

func method[S any, R proto.Message](service, name string, call func(S, context.Context, *structpb.Struct) (R, error)) grpc.MethodDesc {
	full := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			})
		},
	}
}

func serverStream[S any](name string, call func(S, *structpb.Struct, grpc.ServerStream) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(structpb.Struct)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(S), in, stream)
		},
	}
}

// toStruct converts a JSON-serialisable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// toValue converts any JSON-serialisable value, or an error, into a Value.
func toValue(v any) (*structpb.Value, error) {
	if err, ok := v.(error); ok {
		return structpb.NewStringValue(err.Error()), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// fromStruct decodes s into dst through its JSON form.
func fromStruct(s *structpb.Struct, dst any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func reply(v any) (*structpb.Struct, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func stringField(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

func idField(in *structpb.Struct, key string) crm.ID {
	return crm.ID(stringField(in, key))
}

func boolField(in *structpb.Struct, key string) bool {
	return in.GetFields()[key].GetBoolValue()
}

func required(in *structpb.Struct, key string) (string, error) {
	v := stringField(in, key)
	if v == "" {
		return "", grpcstatus.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

// rpcError maps domain errors onto gRPC status codes.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	var apiErr *backend.APIError
	var sendErr *conversation.SendError
	switch {
	case conversation.IsValidation(err),
		errors.Is(err, livesync.ErrNoClient),
		errors.Is(err, livesync.ErrNoOperatorPhone):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, conversation.ErrSendInProgress):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, livesync.ErrSuperseded):
		return grpcstatus.Error(codes.Aborted, err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode == 404:
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.As(err, &sendErr), errors.As(err, &apiErr):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, fmt.Sprint(err))
	}
}
