package types

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes any persisted object (blocks, links, deltas)
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a persisted object
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// DecodeStateDelta parses a serialized state delta.
// An empty or malformed blob is an error: a delta that exists must decode.
func DecodeStateDelta(data []byte) (*StateDelta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty state delta")
	}
	var d StateDelta
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode state delta: %w", err)
	}
	return &d, nil
}

// EncodeStateDelta serializes a state delta
func EncodeStateDelta(d *StateDelta) ([]byte, error) {
	return json.Marshal(d)
}
