package notifications

import "time"

// PermissionStatus is the notification permission state reported by the host.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// State is the registration state of the gateway.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRegistering   State = "registering"
	StateRegistered    State = "registered"
	StateUnregistered  State = "unregistered"
)

// DefaultActionIdentifier is reported when the user taps the notification body.
const DefaultActionIdentifier = "default"

// NotificationData is what callers ask to be shown or pushed.
type NotificationData struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// NotificationRecord is the normalized form of a notification handed to listeners.
type NotificationRecord struct {
	Identifier string         `json:"identifier"`
	Title      *string        `json:"title"`
	Body       *string        `json:"body"`
	Data       map[string]any `json:"data"`
	Timestamp  int64          `json:"timestamp"` // Unix milliseconds
}

// NotificationResponseRecord pairs a user action with the notification acted upon.
type NotificationResponseRecord struct {
	ActionIdentifier string             `json:"actionIdentifier"`
	Notification     NotificationRecord `json:"notification"`
}

// DeviceInfo describes the environment the host notification service runs in.
type DeviceInfo struct {
	ID        string `json:"id"`
	Platform  string `json:"platform"`
	Physical  bool   `json:"physical"`
	DevClient bool   `json:"devClient"`
}

// Channel is a notification channel. Only Android uses channels.
type Channel struct {
	ID               string
	Name             string
	Importance       string
	VibrationPattern []int
	LightColor       string
}

// Host-native shapes. These never leave this package's listeners unnormalized.

// Notification is a notification as the host delivers it.
type Notification struct {
	Date    time.Time
	Request NotificationRequest
}

// NotificationRequest is the scheduled request behind a delivered notification.
type NotificationRequest struct {
	Identifier string
	Content    NotificationContent
}

// NotificationContent is the displayable part of a notification.
type NotificationContent struct {
	Title     *string
	Body      *string
	Data      map[string]any
	ChannelID string
}

// NotificationResponse is a user interaction with a delivered notification.
type NotificationResponse struct {
	ActionIdentifier string
	Notification     Notification
}

// NewNotificationRecord normalizes a host notification.
func NewNotificationRecord(n Notification) NotificationRecord {
	data := make(map[string]any, len(n.Request.Content.Data))
	for k, v := range n.Request.Content.Data {
		data[k] = v
	}

	return NotificationRecord{
		Identifier: n.Request.Identifier,
		Title:      copyString(n.Request.Content.Title),
		Body:       copyString(n.Request.Content.Body),
		Data:       data,
		Timestamp:  n.Date.UnixMilli(),
	}
}

// NewNotificationResponseRecord normalizes a host notification response.
func NewNotificationResponseRecord(r NotificationResponse) NotificationResponseRecord {
	return NotificationResponseRecord{
		ActionIdentifier: r.ActionIdentifier,
		Notification:     NewNotificationRecord(r.Notification),
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
