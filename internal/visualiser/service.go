package visualiser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
)

const (
	serviceName        = "aura.v1.AuraService"
	streamFramesMethod = "/" + serviceName + "/StreamFrames"
	updateParamsMethod = "/" + serviceName + "/UpdateParams"
)

// AuraServiceServer is the server API for aura.v1.AuraService.
//
//	service AuraService {
//	  rpc StreamFrames(google.protobuf.UInt32Value) returns (stream google.protobuf.BytesValue);
//	  rpc UpdateParams(google.protobuf.Struct) returns (google.protobuf.Empty);
//	}
//
// StreamFrames takes the maximum points per frame (zero for all) and streams
// frames encoded by EncodeFrame. UpdateParams takes a params.Patch as a
// JSON-shaped struct.
type AuraServiceServer interface {
	StreamFrames(req *wrapperspb.UInt32Value, stream FrameStream) error
	UpdateParams(ctx context.Context, patch *structpb.Struct) (*emptypb.Empty, error)
}

// FrameStream is the server side of a StreamFrames call.
type FrameStream interface {
	Send(*wrapperspb.BytesValue) error
	Context() context.Context
}

type frameStreamServer struct {
	grpc.ServerStream
}

func (s *frameStreamServer) Send(m *wrapperspb.BytesValue) error {
	return s.ServerStream.SendMsg(m)
}

func streamFramesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.UInt32Value)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AuraServiceServer).StreamFrames(in, &frameStreamServer{stream})
}

func updateParamsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuraServiceServer).UpdateParams(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: updateParamsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuraServiceServer).UpdateParams(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes aura.v1.AuraService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AuraServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UpdateParams", Handler: updateParamsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamFrames", Handler: streamFramesHandler, ServerStreams: true},
	},
	Metadata: "aura/v1/aura.proto",
}

// ParamsUpdater applies a patch between ticks. *Driver implements it.
type ParamsUpdater interface {
	UpdateParams(ctx context.Context, patch params.Patch) (params.Change, error)
}

// Server implements AuraServiceServer on top of a Publisher and a driver.
type Server struct {
	publisher *Publisher
	updater   ParamsUpdater
}

var _ AuraServiceServer = (*Server)(nil)

// NewServer creates a service streaming from publisher and applying patches
// through updater.
func NewServer(publisher *Publisher, updater ParamsUpdater) *Server {
	return &Server{publisher: publisher, updater: updater}
}

// RegisterService registers the service with the publisher's gRPC server.
func RegisterService(grpcServer *grpc.Server, server *Server) {
	grpcServer.RegisterService(&ServiceDesc, server)
}

// StreamFrames streams frames from the publisher until the client goes away.
func (s *Server) StreamFrames(req *wrapperspb.UInt32Value, stream FrameStream) error {
	ctx := stream.Context()
	clientID := "grpc-" + uuid.NewString()
	client, err := s.publisher.addClient(clientID)
	if err != nil {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	defer s.publisher.removeClient(clientID)

	limit := int(req.GetValue())
	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-client.doneCh:
			return nil
		case pc := <-client.frameCh:
			buf = encodeLimited(buf[:0], pc, limit)
			pc.Release()
			if err := stream.Send(wrapperspb.Bytes(buf)); err != nil {
				logf("Send error for %s: %v", clientID, err)
				return err
			}
		}
	}
}

// encodeLimited encodes pc, striding it down to limit points without
// touching the shared frame.
func encodeLimited(dst []byte, pc *render.PointCloud, limit int) []byte {
	if limit <= 0 || pc.PointCount <= limit {
		return EncodeFrame(dst, pc)
	}
	sub := render.NewPointCloud(pc.PointCount)
	defer sub.Release()
	sub.FrameID, sub.Time = pc.FrameID, pc.Time
	sub.PulseMultiplier, sub.Radius = pc.PulseMultiplier, pc.Radius
	copy(sub.X, pc.X)
	copy(sub.Y, pc.Y)
	copy(sub.Z, pc.Z)
	copy(sub.R, pc.R)
	copy(sub.G, pc.G)
	copy(sub.B, pc.B)
	copy(sub.Size, pc.Size)
	copy(sub.Seed, pc.Seed)
	sub.Decimate(limit)
	return EncodeFrame(dst, sub)
}

// UpdateParams decodes the patch and applies it through the driver.
func (s *Server) UpdateParams(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	patch, err := PatchFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	change, err := s.updater.UpdateParams(ctx, patch)
	if err != nil {
		if errors.Is(err, ErrDisposed) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.FromContextError(err).Err()
	}
	if change != 0 {
		logf("params updated: %s", change)
	}
	return &emptypb.Empty{}, nil
}

// PatchToStruct converts a patch into its JSON-shaped struct form.
func PatchToStruct(p params.Patch) (*structpb.Struct, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patch: %w", err)
	}
	return structpb.NewStruct(m)
}

// PatchFromStruct converts a struct into a patch. Unknown keys are rejected.
func PatchFromStruct(s *structpb.Struct) (params.Patch, error) {
	var p params.Patch
	if s == nil {
		return p, nil
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return p, fmt.Errorf("failed to marshal struct: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("invalid patch: %w", err)
	}
	return p, nil
}
