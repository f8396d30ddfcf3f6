package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eternisai/notification-bridge/internal/config"
	"github.com/google/uuid"
)

// ErrNotificationNotFound is returned by DeviceHost.Respond for unknown identifiers.
var ErrNotificationNotFound = errors.New("notification not found")

// defaultDeliveredLimit is how many delivered notifications Respond can still find.
const defaultDeliveredLimit = 256

// DeviceHost is an in-process Host. Scheduled notifications are delivered back
// to the event handler right away, and Respond stands in for a user tap.
type DeviceHost struct {
	info   DeviceInfo
	policy string

	mu        sync.Mutex
	status    PermissionStatus
	channels  map[string]Channel
	delivered map[string]Notification
	order     []string
	limit     int
	handler   EventHandler

	now func() time.Time
}

// NewDeviceHost creates a device host from the device configuration.
func NewDeviceHost(cfg config.DeviceConfig) *DeviceHost {
	status := PermissionUndetermined
	switch cfg.Permission {
	case config.PermissionGranted:
		status = PermissionGranted
	case config.PermissionDenied:
		status = PermissionDenied
	}

	return &DeviceHost{
		info: DeviceInfo{
			ID:        cfg.ID,
			Platform:  cfg.Platform,
			Physical:  cfg.Physical,
			DevClient: cfg.DevClient,
		},
		policy:    cfg.Permission,
		status:    status,
		channels:  make(map[string]Channel),
		delivered: make(map[string]Notification),
		limit:     defaultDeliveredLimit,
		now:       time.Now,
	}
}

func (h *DeviceHost) Device() DeviceInfo {
	return h.info
}

func (h *DeviceHost) PermissionStatus(ctx context.Context) (PermissionStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, nil
}

// RequestPermission answers an undetermined prompt according to the policy.
// A decided status is never changed.
func (h *DeviceHost) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status == PermissionUndetermined {
		if h.policy == config.PermissionPromptReject {
			h.status = PermissionDenied
		} else {
			h.status = PermissionGranted
		}
	}
	return h.status, nil
}

// IssuePushToken derives a stable token from the project and device identifiers.
func (h *DeviceHost) IssuePushToken(ctx context.Context, projectID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if projectID == "" {
		return "", fmt.Errorf("project ID is required to issue a push token")
	}

	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(projectID+"/"+h.info.ID))
	return fmt.Sprintf("PushToken[%s]", id.String()), nil
}

func (h *DeviceHost) SetNotificationChannel(ctx context.Context, channel Channel) error {
	if h.info.Platform != config.PlatformAndroid {
		return fmt.Errorf("notification channels are not supported on %s", h.info.Platform)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels[channel.ID] = channel
	return nil
}

// Channels returns the configured channels.
func (h *DeviceHost) Channels() []Channel {
	h.mu.Lock()
	defer h.mu.Unlock()

	channels := make([]Channel, 0, len(h.channels))
	for _, c := range h.channels {
		channels = append(channels, c)
	}
	return channels
}

func (h *DeviceHost) ScheduleNotification(ctx context.Context, content NotificationContent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n := Notification{
		Date: h.now(),
		Request: NotificationRequest{
			Identifier: uuid.New().String(),
			Content:    content,
		},
	}

	h.mu.Lock()
	h.remember(n)
	handler := h.handler
	h.mu.Unlock()

	if handler != nil {
		handler.HandleNotification(n)
	}

	return n.Request.Identifier, nil
}

// remember keeps n for Respond, evicting the oldest entries past the limit.
// Callers hold h.mu.
func (h *DeviceHost) remember(n Notification) {
	h.delivered[n.Request.Identifier] = n
	h.order = append(h.order, n.Request.Identifier)

	for len(h.order) > h.limit {
		delete(h.delivered, h.order[0])
		h.order = h.order[1:]
	}
}

// Respond simulates the user acting on a delivered notification.
// An empty action means the default tap action.
func (h *DeviceHost) Respond(ctx context.Context, identifier, action string) error {
	if action == "" {
		action = DefaultActionIdentifier
	}

	h.mu.Lock()
	n, ok := h.delivered[identifier]
	handler := h.handler
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, identifier)
	}

	if handler != nil {
		handler.HandleNotificationResponse(NotificationResponse{
			ActionIdentifier: action,
			Notification:     n,
		})
	}
	return nil
}

func (h *DeviceHost) SetEventHandler(handler EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}
