package notifications

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eternisai/notification-bridge/internal/config"
	apperrors "github.com/eternisai/notification-bridge/internal/errors"
	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu sync.Mutex

	device     DeviceInfo
	status     PermissionStatus
	grantOnAsk bool
	tokenErr   error

	permissionRequests int
	tokenRequests      int32
	channels           []Channel
	scheduled          []NotificationContent
	scheduleErr        error
	handler            EventHandler
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		device:     DeviceInfo{ID: "device-1", Platform: config.PlatformAndroid, Physical: true},
		status:     PermissionUndetermined,
		grantOnAsk: true,
	}
}

func (h *fakeHost) Device() DeviceInfo { return h.device }

func (h *fakeHost) PermissionStatus(ctx context.Context) (PermissionStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, nil
}

func (h *fakeHost) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permissionRequests++
	if h.status == PermissionUndetermined {
		if h.grantOnAsk {
			h.status = PermissionGranted
		} else {
			h.status = PermissionDenied
		}
	}
	return h.status, nil
}

func (h *fakeHost) IssuePushToken(ctx context.Context, projectID string) (string, error) {
	atomic.AddInt32(&h.tokenRequests, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tokenErr != nil {
		return "", h.tokenErr
	}
	return "PushToken[" + projectID + "]", nil
}

func (h *fakeHost) SetNotificationChannel(ctx context.Context, channel Channel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels = append(h.channels, channel)
	return nil
}

func (h *fakeHost) ScheduleNotification(ctx context.Context, content NotificationContent) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scheduleErr != nil {
		return "", h.scheduleErr
	}
	h.scheduled = append(h.scheduled, content)
	return "notification-1", nil
}

func (h *fakeHost) SetEventHandler(handler EventHandler) {
	h.handler = handler
}

type fakeReporter struct {
	mu     sync.Mutex
	tokens []string
}

func (r *fakeReporter) SendTokenToBackend(ctx context.Context, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func (r *fakeReporter) reported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

func newTestGateway(host Host, projectID string) (*Gateway, *fakeReporter) {
	reporter := &fakeReporter{}
	return NewGateway(host, NewTokenStore(), reporter, projectID, logger.Discard()), reporter
}

func TestRegisterStoresTokenAndReportsOnce(t *testing.T) {
	host := newFakeHost()
	g, reporter := newTestGateway(host, "project-1")

	token, ok := g.Register(context.Background())
	require.True(t, ok)
	assert.Equal(t, "PushToken[project-1]", token)

	again, ok := g.Register(context.Background())
	require.True(t, ok)
	assert.Equal(t, token, again)

	g.Wait()
	assert.Equal(t, []string{token}, reporter.reported())
	assert.Equal(t, int32(1), atomic.LoadInt32(&host.tokenRequests))

	state, reason := g.State()
	assert.Equal(t, StateRegistered, state)
	assert.NoError(t, reason)

	stored, ok := g.PushToken()
	assert.True(t, ok)
	assert.Equal(t, token, stored)
}

func TestRegisterConfiguresAndroidChannelOnce(t *testing.T) {
	host := newFakeHost()
	g, _ := newTestGateway(host, "project-1")

	g.Register(context.Background())
	g.Register(context.Background())
	g.Wait()

	require.Len(t, host.channels, 1)
	assert.Equal(t, DefaultChannel.ID, host.channels[0].ID)
}

func TestRegisterSkipsChannelOnIOS(t *testing.T) {
	host := newFakeHost()
	host.device.Platform = config.PlatformIOS
	g, _ := newTestGateway(host, "project-1")

	_, ok := g.Register(context.Background())
	g.Wait()

	assert.True(t, ok)
	assert.Empty(t, host.channels)
}

func TestRegisterFailsSoft(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *fakeHost)
		projectID string
		kind      apperrors.Kind
	}{
		{
			name:      "simulator",
			setup:     func(h *fakeHost) { h.device.Physical = false },
			projectID: "project-1",
			kind:      apperrors.UnsupportedEnvironment,
		},
		{
			name:      "development client",
			setup:     func(h *fakeHost) { h.device.DevClient = true },
			projectID: "project-1",
			kind:      apperrors.UnsupportedEnvironment,
		},
		{
			name:      "permission rejected",
			setup:     func(h *fakeHost) { h.grantOnAsk = false },
			projectID: "project-1",
			kind:      apperrors.PermissionDenied,
		},
		{
			name:      "permission already denied",
			setup:     func(h *fakeHost) { h.status = PermissionDenied },
			projectID: "project-1",
			kind:      apperrors.PermissionDenied,
		},
		{
			name:      "missing project",
			setup:     func(h *fakeHost) {},
			projectID: "",
			kind:      apperrors.MissingConfiguration,
		},
		{
			name:      "issuer failure",
			setup:     func(h *fakeHost) { h.tokenErr = errors.New("issuer unavailable") },
			projectID: "project-1",
			kind:      apperrors.Unregistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			tt.setup(host)
			g, reporter := newTestGateway(host, tt.projectID)

			token, ok := g.Register(context.Background())
			g.Wait()

			assert.False(t, ok)
			assert.Empty(t, token)
			assert.Empty(t, reporter.reported())

			state, reason := g.State()
			assert.Equal(t, StateUnregistered, state)
			assert.ErrorIs(t, reason, tt.kind)

			_, ok = g.PushToken()
			assert.False(t, ok)
		})
	}
}

func TestRegisterCanBeRetriedAfterFailure(t *testing.T) {
	host := newFakeHost()
	host.tokenErr = errors.New("issuer unavailable")
	g, _ := newTestGateway(host, "project-1")

	_, ok := g.Register(context.Background())
	require.False(t, ok)

	host.mu.Lock()
	host.tokenErr = nil
	host.mu.Unlock()

	token, ok := g.Register(context.Background())
	g.Wait()
	assert.True(t, ok)
	assert.NotEmpty(t, token)
}

func TestConcurrentRegisterIssuesOneToken(t *testing.T) {
	host := newFakeHost()
	g, reporter := newTestGateway(host, "project-1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Register(context.Background())
		}()
	}
	wg.Wait()
	g.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&host.tokenRequests))
	assert.Len(t, reporter.reported(), 1)
}

func TestSendLocalNotificationDefaultsData(t *testing.T) {
	host := newFakeHost()
	g, _ := newTestGateway(host, "project-1")

	g.SendLocalNotification(context.Background(), NotificationData{Title: "T", Body: "B"})

	require.Len(t, host.scheduled, 1)
	content := host.scheduled[0]
	assert.Equal(t, "T", *content.Title)
	assert.Equal(t, "B", *content.Body)
	assert.NotNil(t, content.Data)
	assert.Empty(t, content.Data)
	assert.Equal(t, DefaultChannel.ID, content.ChannelID)
}

func TestSendLocalNotificationSwallowsHostFailure(t *testing.T) {
	host := newFakeHost()
	host.scheduleErr = errors.New("scheduler offline")
	g, _ := newTestGateway(host, "project-1")

	assert.NotPanics(t, func() {
		g.SendLocalNotification(context.Background(), NotificationData{Title: "T", Body: "B"})
	})
	assert.Empty(t, host.scheduled)
}

func TestListenersFanOut(t *testing.T) {
	host := newFakeHost()
	g, _ := newTestGateway(host, "project-1")

	var first, second []NotificationRecord
	sub1 := g.OnNotificationReceived(func(r NotificationRecord) { first = append(first, r) })
	sub2 := g.OnNotificationReceived(func(r NotificationRecord) { second = append(second, r) })
	assert.NotEqual(t, sub1.ID(), sub2.ID())

	title := "hello"
	host.handler.HandleNotification(Notification{
		Date: time.UnixMilli(1700000000000),
		Request: NotificationRequest{
			Identifier: "n-1",
			Content:    NotificationContent{Title: &title, Data: map[string]any{"k": "v"}},
		},
	})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "n-1", first[0].Identifier)
	assert.Equal(t, "hello", *first[0].Title)
	assert.Nil(t, first[0].Body)
	assert.Equal(t, int64(1700000000000), first[0].Timestamp)
	assert.Equal(t, "v", first[0].Data["k"])

	g.RemoveSubscription(sub1)
	g.RemoveSubscription(sub1)
	host.handler.HandleNotification(Notification{Request: NotificationRequest{Identifier: "n-2"}})

	assert.Len(t, first, 1)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, g.ListenerCount())
}

func TestResponseListener(t *testing.T) {
	host := newFakeHost()
	g, _ := newTestGateway(host, "project-1")

	var got []NotificationResponseRecord
	sub := g.OnNotificationResponse(func(r NotificationResponseRecord) { got = append(got, r) })
	defer sub.Remove()

	host.handler.HandleNotificationResponse(NotificationResponse{
		ActionIdentifier: DefaultActionIdentifier,
		Notification:     Notification{Request: NotificationRequest{Identifier: "n-1"}},
	})

	require.Len(t, got, 1)
	assert.Equal(t, DefaultActionIdentifier, got[0].ActionIdentifier)
	assert.Equal(t, "n-1", got[0].Notification.Identifier)
	assert.NotNil(t, got[0].Notification.Data)
}

func TestNilSubscriptionRemove(t *testing.T) {
	var sub *Subscription
	assert.NotPanics(t, sub.Remove)
	assert.Equal(t, "", sub.ID())
}
