package memstore

import (
	"encoding/json"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
)

// classify re-encodes an arbitrary Go value as JSON and runs it through
// envelope.Classify, since data arrives here as interface{} (already
// decoded) rather than as raw wire bytes.
func classify(data interface{}) (envelope.Kind, *envelope.MessageData, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return envelope.KindRaw, nil, err
	}
	kind, val, err := envelope.Classify(raw)
	if err != nil || kind != envelope.KindMessageData {
		return kind, nil, err
	}
	return kind, val.(*envelope.MessageData), nil
}

func jsonUnmarshalInto(raw json.RawMessage, v interface{}) error {
	return json.Unmarshal(raw, v)
}
