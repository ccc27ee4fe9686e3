package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec selects the frame encoding of a connection
type Codec uint8

const (
	CodecJSON    Codec = iota // text frames
	CodecMsgpack              // binary frames
)

// ParseCodec maps the ?codec= query value; unknown values fall back to JSON
func ParseCodec(s string) Codec {
	if s == "msgpack" {
		return CodecMsgpack
	}
	return CodecJSON
}

func (c Codec) String() string {
	if c == CodecMsgpack {
		return "msgpack"
	}
	return "json"
}

// Binary reports whether frames go out as websocket binary messages
func (c Codec) Binary() bool {
	return c == CodecMsgpack
}

// Encode serializes one envelope
func (c Codec) Encode(env Envelope) ([]byte, error) {
	switch c {
	case CodecMsgpack:
		return msgpack.Marshal(env)
	case CodecJSON:
		return json.Marshal(env)
	}
	return nil, fmt.Errorf("unknown codec %d", c)
}

// Outbound is one event headed to one or more clients. Each codec's
// encoding is computed at most once no matter how many clients use it.
type Outbound struct {
	Env Envelope

	enc [2]struct {
		once sync.Once
		data []byte
		err  error
	}
}

func NewOutbound(t string, data interface{}) *Outbound {
	return &Outbound{Env: Envelope{T: t, Data: data}}
}

// Bytes returns the frame for the given codec
func (o *Outbound) Bytes(c Codec) ([]byte, error) {
	if int(c) >= len(o.enc) {
		return nil, fmt.Errorf("unknown codec %d", c)
	}
	slot := &o.enc[c]
	slot.once.Do(func() {
		slot.data, slot.err = c.Encode(o.Env)
	})
	return slot.data, slot.err
}

// msgpackEnvelope mirrors Envelope for decoding binary frames
type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	D msgpack.RawMessage `msgpack:"d"`
}

// DecodeFrame splits a frame of either codec into type and raw payload,
// then decodes the payload into out when out is non-nil
func DecodeFrame(c Codec, frame []byte, out interface{}) (string, error) {
	switch c {
	case CodecMsgpack:
		var env msgpackEnvelope
		if err := msgpack.Unmarshal(frame, &env); err != nil {
			return "", fmt.Errorf("decode msgpack envelope: %w", err)
		}
		if out != nil && len(env.D) > 0 {
			if err := msgpack.Unmarshal(env.D, out); err != nil {
				return env.T, fmt.Errorf("decode %s payload: %w", env.T, err)
			}
		}
		return env.T, nil
	default:
		var env InEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			return "", fmt.Errorf("decode json envelope: %w", err)
		}
		if out != nil && len(env.D) > 0 {
			if err := json.Unmarshal(env.D, out); err != nil {
				return env.T, fmt.Errorf("decode %s payload: %w", env.T, err)
			}
		}
		return env.T, nil
	}
}
