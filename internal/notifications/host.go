package notifications

import "context"

// Host is the platform notification service: permissions, token issuance,
// channels, scheduling and event delivery.
type Host interface {
	Device() DeviceInfo
	PermissionStatus(ctx context.Context) (PermissionStatus, error)
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	IssuePushToken(ctx context.Context, projectID string) (string, error)
	SetNotificationChannel(ctx context.Context, channel Channel) error
	// ScheduleNotification presents content immediately and returns its identifier.
	ScheduleNotification(ctx context.Context, content NotificationContent) (string, error)
	SetEventHandler(handler EventHandler)
}

// EventHandler receives notifications and user interactions from the Host.
type EventHandler interface {
	HandleNotification(n Notification)
	HandleNotificationResponse(r NotificationResponse)
}
