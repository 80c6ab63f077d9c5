package visualiser

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/aura/internal/aura/render"
)

// Frames are encoded as a protobuf message without generated code:
//
//	message Frame {
//	  uint64 frame_id = 1;
//	  double time = 2;
//	  float pulse_multiplier = 3;
//	  float radius = 4;
//	  uint32 point_count = 5;
//	  repeated float x = 6 [packed = true];
//	  ... y = 7, z = 8, r = 9, g = 10, b = 11, size = 12, seed = 13
//	}
const (
	fieldFrameID    protowire.Number = 1
	fieldTime       protowire.Number = 2
	fieldPulse      protowire.Number = 3
	fieldRadius     protowire.Number = 4
	fieldPointCount protowire.Number = 5
	fieldX          protowire.Number = 6
	fieldSeed       protowire.Number = 13
)

// MaxFramePoints bounds the point count a decoder accepts.
const MaxFramePoints = 1 << 20

// ErrMalformedFrame is returned by DecodeFrame for inconsistent input.
var ErrMalformedFrame = errors.New("malformed frame")

func columns(pc *render.PointCloud) [][]float32 {
	return [][]float32{pc.X, pc.Y, pc.Z, pc.R, pc.G, pc.B, pc.Size, pc.Seed}
}

// EncodeFrame serialises pc, appending to dst.
func EncodeFrame(dst []byte, pc *render.PointCloud) []byte {
	n := pc.PointCount
	dst = protowire.AppendTag(dst, fieldFrameID, protowire.VarintType)
	dst = protowire.AppendVarint(dst, pc.FrameID)
	dst = protowire.AppendTag(dst, fieldTime, protowire.Fixed64Type)
	dst = protowire.AppendFixed64(dst, math.Float64bits(pc.Time))
	dst = protowire.AppendTag(dst, fieldPulse, protowire.Fixed32Type)
	dst = protowire.AppendFixed32(dst, math.Float32bits(pc.PulseMultiplier))
	dst = protowire.AppendTag(dst, fieldRadius, protowire.Fixed32Type)
	dst = protowire.AppendFixed32(dst, math.Float32bits(pc.Radius))
	dst = protowire.AppendTag(dst, fieldPointCount, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(n))

	for k, col := range columns(pc) {
		dst = protowire.AppendTag(dst, fieldX+protowire.Number(k), protowire.BytesType)
		dst = protowire.AppendVarint(dst, uint64(4*n))
		for _, v := range col[:n] {
			dst = protowire.AppendFixed32(dst, math.Float32bits(v))
		}
	}
	return dst
}

// DecodeFrame parses a frame produced by EncodeFrame into a pooled
// PointCloud. Unknown fields are skipped.
func DecodeFrame(b []byte) (*render.PointCloud, error) {
	var (
		header struct {
			frameID uint64
			time    float64
			pulse   float32
			radius  float32
		}
		count   = -1
		packed  [8][]byte
		present [8]bool
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldFrameID && typ == protowire.VarintType:
			header.frameID, n = protowire.ConsumeVarint(b)
		case num == fieldTime && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			header.time = math.Float64frombits(v)
		case num == fieldPulse && typ == protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			header.pulse = math.Float32frombits(v)
		case num == fieldRadius && typ == protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			header.radius = math.Float32frombits(v)
		case num == fieldPointCount && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			if n >= 0 && v > MaxFramePoints {
				return nil, fmt.Errorf("%w: %d points exceeds limit", ErrMalformedFrame, v)
			}
			count = int(v)
		case num >= fieldX && num <= fieldSeed && typ == protowire.BytesType:
			k := int(num - fieldX)
			packed[k], n = protowire.ConsumeBytes(b)
			present[k] = true
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedFrame, num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if count < 0 {
		return nil, fmt.Errorf("%w: missing point count", ErrMalformedFrame)
	}
	for k, raw := range packed {
		if present[k] && len(raw) != 4*count {
			return nil, fmt.Errorf("%w: column %d has %d bytes, want %d", ErrMalformedFrame, k, len(raw), 4*count)
		}
		if !present[k] && count > 0 {
			return nil, fmt.Errorf("%w: column %d missing", ErrMalformedFrame, k)
		}
	}

	pc := render.NewPointCloud(count)
	pc.FrameID = header.frameID
	pc.Time = header.time
	pc.PulseMultiplier = header.pulse
	pc.Radius = header.radius
	for k, col := range columns(pc) {
		raw := packed[k]
		for i := range col {
			v, _ := protowire.ConsumeFixed32(raw[i*4:])
			col[i] = math.Float32frombits(v)
		}
	}
	return pc, nil
}
