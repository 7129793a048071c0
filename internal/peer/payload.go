package peer

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// Signal values the peer uses to describe an established session.
const (
	statusConnected  = "connected"
	sessionStateOpen = "open"
)

// firstObject normalizes a peer response body into a single object. The peer
// answers some operations with a bare object and others with a single-element
// array wrapping the same object.
func firstObject(body []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := jsonx.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "peer: unparseable response body")
	}
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case []interface{}:
		if len(v) == 0 {
			return nil, errors.New("peer: empty array response")
		}
		if m, ok := v[0].(map[string]interface{}); ok {
			return m, nil
		}
		return nil, errors.New("peer: array response does not contain an object")
	default:
		return nil, errors.New("peer: unexpected response shape")
	}
}

// lookupString returns the first non-empty string value found under any of
// the given keys, matched case-insensitively. The peer is not consistent
// about field-name spelling, so aliasing is handled here once instead of in
// the callers.
func lookupString(m map[string]interface{}, keys ...string) string {
	for k, v := range m {
		for _, want := range keys {
			if strings.EqualFold(k, want) {
				if s := cast.ToString(v); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func lookupValue(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for k, v := range m {
		for _, want := range keys {
			if strings.EqualFold(k, want) {
				return v, true
			}
		}
	}
	return nil, false
}

// isConnectedSignal interprets a check-connection response. Any of the
// equivalent truthy shapes counts: a success marker, a boolean connected
// flag, a connected status string, or an open session-state string.
func isConnectedSignal(m map[string]interface{}) bool {
	if v, ok := lookupValue(m, "success"); ok && cast.ToBool(v) {
		return true
	}
	if v, ok := lookupValue(m, "connected", "isConnected", "is_connected"); ok && cast.ToBool(v) {
		return true
	}
	if s := lookupString(m, "status", "connectionStatus", "connection_status"); strings.EqualFold(s, statusConnected) || strings.EqualFold(s, sessionStateOpen) {
		return true
	}
	if s := lookupString(m, "state", "sessionState", "session_state"); strings.EqualFold(s, sessionStateOpen) {
		return true
	}
	return false
}
