package bridge

import (
	"encoding/json"

	"github.com/eternisai/notification-bridge/internal/notifications"
)

// RequestType identifies a request sent by embedded content.
type RequestType string

const (
	RequestPushToken             RequestType = "REQUEST_PUSH_TOKEN"
	RequestSendPushViaBackend    RequestType = "SEND_PUSH_VIA_BACKEND"
	RequestSendLocalNotification RequestType = "SEND_LOCAL_NOTIFICATION"
)

// ResponseType identifies a message sent by the host.
type ResponseType string

const (
	ResponsePushToken            ResponseType = "PUSH_TOKEN"
	ResponseSuccess              ResponseType = "SUCCESS"
	ResponseError                ResponseType = "ERROR"
	ResponseNotificationReceived ResponseType = "NOTIFICATION_RECEIVED"
	ResponseNotificationResponse ResponseType = "NOTIFICATION_RESPONSE"
)

// ErrorContext tags every error response produced by the message handler.
const ErrorContext = "bridge.HandleMessage"

// Request is a message from embedded content to the host.
type Request struct {
	Type      RequestType     `json:"type" jsonschema:"enum=REQUEST_PUSH_TOKEN,enum=SEND_PUSH_VIA_BACKEND,enum=SEND_LOCAL_NOTIFICATION"`
	RequestID string          `json:"requestId,omitempty" jsonschema:"description=Correlates the response with this request"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response is a message from the host to embedded content. Responses to a
// request carry its requestId; unsolicited events carry none.
type Response struct {
	Type      ResponseType `json:"type" jsonschema:"enum=PUSH_TOKEN,enum=SUCCESS,enum=ERROR,enum=NOTIFICATION_RECEIVED,enum=NOTIFICATION_RESPONSE"`
	RequestID string       `json:"requestId,omitempty"`
	Payload   any          `json:"payload,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// PushTokenPayload is the payload of PUSH_TOKEN messages. Token is null when
// no token could be obtained.
type PushTokenPayload struct {
	Token *string `json:"token"`
}

// SuccessPayload is the payload of SUCCESS responses.
type SuccessPayload struct {
	Request RequestType `json:"request"`
}

// ErrorPayload is the payload of ERROR responses. Context is diagnostic only.
type ErrorPayload struct {
	Context string `json:"context"`
}

// NotificationPayload is the payload accepted by both send requests.
// Non-string title and body values are converted to strings.
type NotificationPayload struct {
	Title string         `json:"title" jsonschema:"required"`
	Body  string         `json:"body" jsonschema:"required"`
	Data  map[string]any `json:"data,omitempty"`
}

// command is a decoded request, one concrete type per RequestType.
type command interface {
	requestType() RequestType
}

type pushTokenCommand struct{}

type sendPushCommand struct {
	data notifications.NotificationData
}

type sendLocalCommand struct {
	data notifications.NotificationData
}

func (pushTokenCommand) requestType() RequestType { return RequestPushToken }
func (sendPushCommand) requestType() RequestType  { return RequestSendPushViaBackend }
func (sendLocalCommand) requestType() RequestType { return RequestSendLocalNotification }
