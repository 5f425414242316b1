package eventargs

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format of a payload.
type Encoding string

const (
	JSON    Encoding = "json"
	MsgPack Encoding = "msgpack"
)

// ParseEncoding validates an encoding name. The empty string means JSON.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(name) {
	case "", JSON:
		return JSON, nil
	case MsgPack:
		return MsgPack, nil
	}
	return "", errors.Errorf("unknown event args encoding %q", name)
}

// Encode serializes args.
func Encode(args Args, enc Encoding) ([]byte, error) {
	switch enc {
	case JSON:
		b, err := json.Marshal(args)
		return b, errors.Wrap(err, "encode event args as json")
	case MsgPack:
		b, err := msgpack.Marshal(args)
		return b, errors.Wrap(err, "encode event args as msgpack")
	}
	return nil, errors.Errorf("unknown event args encoding %q", enc)
}

// Decode parses a payload produced by Encode.
func Decode(data []byte, enc Encoding) (Args, error) {
	var args Args
	switch enc {
	case JSON:
		return args, errors.Wrap(json.Unmarshal(data, &args), "decode event args from json")
	case MsgPack:
		return args, errors.Wrap(msgpack.Unmarshal(data, &args), "decode event args from msgpack")
	}
	return args, errors.Errorf("unknown event args encoding %q", enc)
}

// Map returns args as a generic map, the shape scripts receive.
func (a Args) Map() (map[string]any, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, errors.Wrap(err, "encode event args")
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decode event args")
	}
	return m, nil
}
