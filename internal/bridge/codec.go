package bridge

import (
	"bytes"
	"encoding/json"
	"strconv"

	apperrors "github.com/eternisai/notification-bridge/internal/errors"
	"github.com/eternisai/notification-bridge/internal/notifications"
)

var jsonNull = []byte("null")

// decodeRequest decodes a raw message into a Request. Anything but a JSON
// object is rejected.
func decodeRequest(raw []byte) (Request, error) {
	var req Request

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return req, apperrors.New(apperrors.TransportParseError, "failed to parse bridge message: not a JSON object")
	}

	if err := json.Unmarshal(trimmed, &req); err != nil {
		return Request{}, apperrors.Wrap(apperrors.TransportParseError, "failed to parse bridge message", err)
	}
	return req, nil
}

// recoverRequestID pulls a string requestId out of a message the full decode
// rejected. It is lossy on purpose: nothing but the correlation id is
// recovered, and any failure yields "".
func recoverRequestID(raw []byte) string {
	var probe struct {
		RequestID any `json:"requestId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	id, _ := probe.RequestID.(string)
	return id
}

// parseCommand validates the payload for req.Type and returns the typed command.
func parseCommand(req Request) (command, error) {
	switch req.Type {
	case RequestPushToken:
		return pushTokenCommand{}, nil
	case RequestSendPushViaBackend:
		data, err := parseNotificationPayload(req.Payload)
		if err != nil {
			return nil, err
		}
		return sendPushCommand{data: data}, nil
	case RequestSendLocalNotification:
		data, err := parseNotificationPayload(req.Payload)
		if err != nil {
			return nil, err
		}
		return sendLocalCommand{data: data}, nil
	default:
		return nil, apperrors.Newf(apperrors.UnknownRequestType, "unknown request type: %q", string(req.Type))
	}
}

// parseNotificationPayload requires title and body to be present and not null.
// Non-string values are converted to their JSON text.
func parseNotificationPayload(raw json.RawMessage) (notifications.NotificationData, error) {
	var data notifications.NotificationData

	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return data, apperrors.New(apperrors.InvalidNotificationPayload, "payload with title and body is required")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return data, apperrors.Wrap(apperrors.InvalidNotificationPayload, "payload must be an object", err)
	}

	title, err := stringField(fields, "title")
	if err != nil {
		return data, err
	}
	body, err := stringField(fields, "body")
	if err != nil {
		return data, err
	}

	extra := map[string]any{}
	if rawData, ok := fields["data"]; ok && !bytes.Equal(bytes.TrimSpace(rawData), jsonNull) {
		if err := json.Unmarshal(rawData, &extra); err != nil {
			return data, apperrors.Wrap(apperrors.InvalidNotificationPayload, "payload.data must be an object", err)
		}
	}

	return notifications.NotificationData{Title: title, Body: body, Data: extra}, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return "", apperrors.Newf(apperrors.InvalidNotificationPayload, "payload.%s is required", name)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", apperrors.Wrap(apperrors.InvalidNotificationPayload, "payload."+name+" is not valid JSON", err)
	}

	switch value := v.(type) {
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	case bool:
		return strconv.FormatBool(value), nil
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return string(raw), nil
		}
		return compact.String(), nil
	}
}

// encodeResponse serializes a response for the transport.
func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func errorResponse(requestID string, err error) Response {
	return Response{
		Type:      ResponseError,
		RequestID: requestID,
		Payload:   ErrorPayload{Context: ErrorContext},
		Error:     err.Error(),
	}
}
