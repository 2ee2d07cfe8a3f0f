package pending

import (
	"encoding/json"
	"fmt"
	"time"
)

// typedValue keeps the Go type of a field across a JSON round trip, so an
// int64 staged in one process is still an int64 when read back.
type typedValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

type wireChange struct {
	Kind     Kind                  `json:"kind"`
	Mode     Mode                  `json:"mode"`
	TargetID string                `json:"target_id,omitempty"`
	Token    string                `json:"token"`
	Fields   map[string]typedValue `json:"fields"`
	StagedAt time.Time             `json:"staged_at"`
}

func encodeValue(v any) (typedValue, error) {
	var tv typedValue
	var err error
	switch x := v.(type) {
	case string:
		tv.T = "string"
		tv.V, err = json.Marshal(x)
	case int64:
		tv.T = "int"
		tv.V, err = json.Marshal(x)
	case int:
		tv.T = "int"
		tv.V, err = json.Marshal(int64(x))
	case bool:
		tv.T = "bool"
		tv.V, err = json.Marshal(x)
	case time.Time:
		tv.T = "time"
		tv.V, err = json.Marshal(x)
	case nil:
		tv.T = "null"
		tv.V = json.RawMessage("null")
	default:
		return tv, fmt.Errorf("unsupported field type %T", v)
	}
	return tv, err
}

func decodeValue(tv typedValue) (any, error) {
	switch tv.T {
	case "string":
		var s string
		err := json.Unmarshal(tv.V, &s)
		return s, err
	case "int":
		var n int64
		err := json.Unmarshal(tv.V, &n)
		return n, err
	case "bool":
		var b bool
		err := json.Unmarshal(tv.V, &b)
		return b, err
	case "time":
		var t time.Time
		err := json.Unmarshal(tv.V, &t)
		return t, err
	case "null":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown field type tag %q", tv.T)
	}
}

// Marshal encodes a change for the SQL stores.
func Marshal(ch *Change) ([]byte, error) {
	w := wireChange{
		Kind:     ch.Kind,
		Mode:     ch.Mode,
		TargetID: ch.TargetID,
		Token:    ch.Token,
		Fields:   make(map[string]typedValue, len(ch.Fields)),
		StagedAt: ch.StagedAt.UTC(),
	}
	for name, v := range ch.Fields {
		tv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", name, err)
		}
		w.Fields[name] = tv
	}
	return json.Marshal(w)
}

func Unmarshal(data []byte) (*Change, error) {
	var w wireChange
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode pending change: %w", err)
	}
	ch := &Change{
		Kind:     w.Kind,
		Mode:     w.Mode,
		TargetID: w.TargetID,
		Token:    w.Token,
		Fields:   make(map[string]any, len(w.Fields)),
		StagedAt: w.StagedAt,
	}
	for name, tv := range w.Fields {
		v, err := decodeValue(tv)
		if err != nil {
			return nil, fmt.Errorf("decode field %s: %w", name, err)
		}
		ch.Fields[name] = v
	}
	return ch, nil
}

func aadFor(sessionID string, kind Kind) []byte {
	return []byte(sessionID + "/" + string(kind))
}

// seal encodes ch and, if a sealer is configured, encrypts it bound to its key.
func seal(s Sealer, sessionID string, kind Kind, ch *Change) ([]byte, error) {
	data, err := Marshal(ch)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return data, nil
	}
	return s.Seal(data, aadFor(sessionID, kind))
}

func open(s Sealer, sessionID string, kind Kind, payload []byte) (*Change, error) {
	data := payload
	if s != nil {
		var err error
		data, err = s.Open(payload, aadFor(sessionID, kind))
		if err != nil {
			return nil, fmt.Errorf("open pending change: %w", err)
		}
	}
	return Unmarshal(data)
}
