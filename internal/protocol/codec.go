package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownKind       = errors.New("unknown envelope kind")
)

type Format string

const (
	// FormatJSON sends {"type","data"} objects as text frames.
	FormatJSON Format = "json"
	// FormatProto sends a protobuf Struct with the same fields as binary frames.
	FormatProto Format = "proto"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatProto:
		return FormatProto, nil
	default:
		return "", fmt.Errorf("unsupported wire format %q", s)
	}
}

type Codec struct {
	format Format
}

func NewCodec(format Format) *Codec {
	if format == "" {
		format = FormatJSON
	}
	return &Codec{format: format}
}

func (c *Codec) Format() Format {
	return c.format
}

// Binary reports whether encoded envelopes travel as binary frames.
func (c *Codec) Binary() bool {
	return c.format == FormatProto
}

func (c *Codec) Encode(env Envelope) ([]byte, error) {
	if !env.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}

	if c.format == FormatProto {
		st, err := structpb.NewStruct(map[string]any{
			"type": string(env.Kind),
			"data": env.Payload,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build envelope: %w", err)
		}
		return proto.Marshal(st)
	}

	payload := env.Payload
	return json.Marshal(wireEnvelope{Type: string(env.Kind), Data: &payload})
}

func (c *Codec) Decode(data []byte) (Envelope, error) {
	var kind, payload string

	if c.format == FormatProto {
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		typ, ok := st.Fields["type"].GetKind().(*structpb.Value_StringValue)
		if !ok {
			return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
		}
		body, ok := st.Fields["data"].GetKind().(*structpb.Value_StringValue)
		if !ok {
			return Envelope{}, fmt.Errorf("%w: missing data", ErrMalformedEnvelope)
		}
		kind, payload = typ.StringValue, body.StringValue
	} else {
		var w wireEnvelope
		if err := json.Unmarshal(data, &w); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		if w.Data == nil {
			return Envelope{}, fmt.Errorf("%w: missing data", ErrMalformedEnvelope)
		}
		kind, payload = w.Type, *w.Data
	}

	env := Envelope{Kind: Kind(kind), Payload: payload}
	if !env.Kind.Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return env, nil
}
