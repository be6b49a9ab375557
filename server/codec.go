package server

import (
	json "github.com/goccy/go-json"
)

// jsonCodec replaces connect's protobuf JSON codec so that the toolchain
// service can use plain Go structs as messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}
