package server

import (
	"encoding/json"
)

// JSONCodec lets Connect carry plain Go structs as JSON, without generated
// protobuf messages. Clients must pass it through connect.WithCodec too.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal treats an empty body as the zero request.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
