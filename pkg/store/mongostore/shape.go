package mongostore

import (
	"encoding/json"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
)

// classifyMongo mirrors memstore's classify: data arrives as a decoded
// Go value, so it is re-encoded as JSON before shape detection.
func classifyMongo(data interface{}) (envelope.Kind, *envelope.MessageData, error) {
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

func unmarshalOutput(raw json.RawMessage, v interface{}) error {
	return json.Unmarshal(raw, v)
}
