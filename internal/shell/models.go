package shell

import "github.com/eternisai/notification-bridge/internal/notifications"

type hostView struct {
	Title         string
	ContentURL    string
	ContentOrigin string
	BridgePath    string
}

type fallbackView struct {
	Title     string
	Message   string
	Details   string
	RetryPath string
}

// DeviceStatusResponse is returned by GET /device/status.
type DeviceStatusResponse struct {
	Device    notifications.DeviceInfo `json:"device"`
	State     notifications.State      `json:"state"`
	Reason    string                   `json:"reason,omitempty"`
	Token     *string                  `json:"token"`
	Listeners int                      `json:"listeners"`
}

// RespondRequest is the optional body of POST /device/notifications/:id/respond.
type RespondRequest struct {
	ActionIdentifier string `json:"actionIdentifier"`
}

// RespondResponse acknowledges a simulated notification response.
type RespondResponse struct {
	Identifier       string `json:"identifier"`
	ActionIdentifier string `json:"actionIdentifier"`
}
