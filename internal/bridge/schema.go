package bridge

import (
	"github.com/eternisai/notification-bridge/internal/notifications"
	"github.com/invopop/jsonschema"
)

// Schema describes the wire format for content developers, keyed by message kind.
func Schema() map[string]*jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	return map[string]*jsonschema.Schema{
		"request":                    r.Reflect(&Request{}),
		"response":                   r.Reflect(&Response{}),
		"notificationPayload":        r.Reflect(&NotificationPayload{}),
		"pushTokenPayload":           r.Reflect(&PushTokenPayload{}),
		"successPayload":             r.Reflect(&SuccessPayload{}),
		"errorPayload":               r.Reflect(&ErrorPayload{}),
		"notificationRecord":         r.Reflect(&notifications.NotificationRecord{}),
		"notificationResponseRecord": r.Reflect(&notifications.NotificationResponseRecord{}),
	}
}
