package event

import "encoding/json"

// DecodePayload round-trips e.Payload through JSON into dst, the way the
// teacher's schema validators decode a generic JSON payload into a typed
// shape. Unknown fields in e.Payload are simply ignored by dst but remain
// present in the original map, so callers that only need the map (e.g. the
// store, replaying for export) never lose data.
func DecodePayload(payload map[string]interface{}, dst interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// EncodePayload converts a typed payload struct into the generic map the
// envelope carries.
func EncodePayload(src interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
