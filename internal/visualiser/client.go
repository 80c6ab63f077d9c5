package visualiser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
)

// Client talks to a remote aura.v1.AuraService.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr. Extra options are appended after the
// defaults (insecure transport, 16 MB receive limit).
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	const maxMsgSize = 16 * 1024 * 1024
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxMsgSize)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// StreamFrames calls fn with each decoded frame until the stream ends, ctx
// is cancelled or fn returns an error. fn owns the frame and must Release
// it. maxPoints of zero requests full frames.
func (c *Client) StreamFrames(ctx context.Context, maxPoints uint32, fn func(*render.PointCloud) error) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], streamFramesMethod)
	if err != nil {
		return fmt.Errorf("failed to open frame stream: %w", err)
	}
	if err := stream.SendMsg(wrapperspb.UInt32(maxPoints)); err != nil {
		return fmt.Errorf("failed to send stream request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send: %w", err)
	}
	for {
		msg := new(wrapperspb.BytesValue)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		pc, err := DecodeFrame(msg.GetValue())
		if err != nil {
			return err
		}
		if err := fn(pc); err != nil {
			return err
		}
	}
}

// UpdateParams sends patch to the server.
func (c *Client) UpdateParams(ctx context.Context, patch params.Patch) error {
	in, err := PatchToStruct(patch)
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, updateParamsMethod, in, new(emptypb.Empty))
}
