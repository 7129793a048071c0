package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstObject_Shapes(t *testing.T) {
	obj, err := firstObject([]byte(`{"id":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", obj["id"])

	obj, err = firstObject([]byte(`[{"id":"abc"}]`))
	require.NoError(t, err)
	assert.Equal(t, "abc", obj["id"])

	_, err = firstObject([]byte(`[]`))
	assert.Error(t, err)

	_, err = firstObject([]byte(`"just a string"`))
	assert.Error(t, err)

	_, err = firstObject([]byte(`{broken`))
	assert.Error(t, err)
}

func TestLookupString_AliasSpellings(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
		keys []string
		want string
	}{
		{"exact", map[string]interface{}{"qrCode": "data:x"}, []string{"qrCode", "qrcode"}, "data:x"},
		{"lowercase", map[string]interface{}{"qrcode": "data:x"}, []string{"qrCode"}, "data:x"},
		{"uppercase", map[string]interface{}{"QRCode": "data:x"}, []string{"qrCode"}, "data:x"},
		{"snake", map[string]interface{}{"pairing_code": "1111"}, []string{"pairingCode", "pairing_code"}, "1111"},
		{"mixed case snake", map[string]interface{}{"Pairing_Code": "1111"}, []string{"pairing_code"}, "1111"},
		{"absent", map[string]interface{}{"other": "x"}, []string{"qrCode"}, ""},
		{"empty value skipped", map[string]interface{}{"qrCode": ""}, []string{"qrCode"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lookupString(tc.body, tc.keys...))
		})
	}
}

func TestIsConnectedSignal_Superset(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
		want bool
	}{
		{"success marker", map[string]interface{}{"success": true}, true},
		{"success string", map[string]interface{}{"success": "true"}, true},
		{"connected flag", map[string]interface{}{"connected": true}, true},
		{"connected flag upper key", map[string]interface{}{"Connected": true}, true},
		{"status connected", map[string]interface{}{"status": "connected"}, true},
		{"status open", map[string]interface{}{"status": "open"}, true},
		{"state open", map[string]interface{}{"state": "open"}, true},
		{"state open mixed case", map[string]interface{}{"State": "OPEN"}, true},
		{"state closed", map[string]interface{}{"state": "closed"}, false},
		{"status connecting", map[string]interface{}{"status": "connecting"}, false},
		{"success false", map[string]interface{}{"success": false}, false},
		{"connected false", map[string]interface{}{"connected": false}, false},
		{"empty object", map[string]interface{}{}, false},
		{"unrelated fields", map[string]interface{}{"foo": "bar"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isConnectedSignal(tc.body))
		})
	}
}
