package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/eternisai/notification-bridge/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotificationPayloadCoercion(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"string", `"hello"`, "hello"},
		{"integer", `42`, "42"},
		{"float keeps text", `1.50`, "1.50"},
		{"bool", `false`, "false"},
		{"object", `{"a": 1}`, `{"a":1}`},
		{"array", `[1, 2]`, `[1,2]`},
		{"empty string", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parseNotificationPayload(json.RawMessage(`{"title":` + tt.title + `,"body":"B"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, data.Title)
			assert.Equal(t, "B", data.Body)
			assert.Equal(t, map[string]any{}, data.Data)
		})
	}
}

func TestParseNotificationPayloadNullData(t *testing.T) {
	data, err := parseNotificationPayload(json.RawMessage(`{"title":"T","body":"B","data":null}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, data.Data)
}

func TestParseCommandErrors(t *testing.T) {
	_, err := parseCommand(Request{Type: "FOO"})
	assert.True(t, errors.Is(err, apperrors.UnknownRequestType))
	assert.Equal(t, `unknown request type: "FOO"`, err.Error())

	_, err = parseCommand(Request{Type: RequestSendLocalNotification, Payload: json.RawMessage(`{"title":"T"}`)})
	assert.True(t, errors.Is(err, apperrors.InvalidNotificationPayload))
	kind, ok := apperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, apperrors.InvalidNotificationPayload, kind)
}

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte(` {"type":"REQUEST_PUSH_TOKEN","requestId":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, RequestPushToken, req.Type)
	assert.Equal(t, "1", req.RequestID)

	_, err = decodeRequest([]byte(`"REQUEST_PUSH_TOKEN"`))
	assert.True(t, errors.Is(err, apperrors.TransportParseError))
}

func TestRecoverRequestID(t *testing.T) {
	assert.Equal(t, "abc", recoverRequestID([]byte(`{"requestId":"abc","type":5}`)))
	assert.Equal(t, "", recoverRequestID([]byte(`{"requestId":5}`)))
	assert.Equal(t, "", recoverRequestID([]byte(`{"requestId":"abc"`)))
	assert.Equal(t, "", recoverRequestID([]byte(`[]`)))
}
