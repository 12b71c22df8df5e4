package session

import (
	"bytes"
	"encoding/json"
	"strings"
)

// KeyUser is the storage key holding the logged-in user.
const KeyUser = "user"

// Value is what the session key holds: a bare identifier written by older clients, or the
// JSON object written at login.
type Value interface {
	UserID() string
	isValue()
}

type Raw struct {
	ID string
}

func (r Raw) UserID() string { return r.ID }
func (Raw) isValue()         {}

type Parsed struct {
	ID    string `json:"_id"`
	Token string `json:"token,omitempty"`
}

func (p Parsed) UserID() string { return p.ID }
func (Parsed) isValue()         {}

// Parse reads a stored session value. Blank, "null" and "undefined" mean no session. A JSON
// object with a non-empty string or numeric _id is Parsed; a JSON string is unquoted into Raw; anything else is
// taken verbatim as Raw.
func Parse(raw string) (Value, bool) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "", "null", "undefined":
		return nil, false
	}

	if strings.HasPrefix(trimmed, "{") {
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			return parseObject(fields)
		}
	}

	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal([]byte(trimmed), &id); err == nil {
			id = strings.TrimSpace(id)
			if id == "" {
				return nil, false
			}
			return Raw{ID: id}, true
		}
	}

	return Raw{ID: trimmed}, true
}

// parseObject accepts a string or numeric _id. Any other _id means no session.
func parseObject(fields map[string]json.RawMessage) (Value, bool) {
	id, ok := scalar(fields["_id"])
	if !ok || id == "" {
		return nil, false
	}
	parsed := Parsed{ID: id}
	var token string
	if err := json.Unmarshal(fields["token"], &token); err == nil {
		parsed.Token = token
	}
	return parsed, true
}

func scalar(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text), true
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var number json.Number
	if err := decoder.Decode(&number); err == nil {
		return number.String(), true
	}
	return "", false
}

// Encode is the inverse of Parse.
func Encode(v Value) (string, error) {
	switch v := v.(type) {
	case Raw:
		return v.ID, nil
	case Parsed:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	default:
		return "", ErrNoSession
	}
}
