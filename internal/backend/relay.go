package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/eternisai/notification-bridge/internal/errors"
	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/eternisai/notification-bridge/internal/notifications"
)

const (
	saveTokenPath        = "/save-token"
	sendNotificationPath = "/send-notification"

	// maxErrorBodyBytes caps how much of a failed response is read.
	maxErrorBodyBytes = 64 << 10
)

// TokenSource provides the current push token.
type TokenSource interface {
	Get() (string, bool)
}

// Relay talks to the remote backend that stores device tokens and dispatches pushes.
type Relay struct {
	baseURL    string
	deviceName string
	tokens     TokenSource
	client     *http.Client
	logger     *logger.Logger
}

// NewRelay creates a relay. A nil client gets a default one with timeout.
func NewRelay(baseURL, deviceName string, tokens TokenSource, client *http.Client, logger *logger.Logger) *Relay {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Relay{
		baseURL:    strings.TrimRight(baseURL, "/"),
		deviceName: deviceName,
		tokens:     tokens,
		client:     client,
		logger:     logger,
	}
}

type SaveTokenRequest struct {
	Name           string `json:"name"`
	FCMDeviceToken string `json:"fcm_device_token"`
}

type SendNotificationRequest struct {
	Token string         `json:"token"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// ErrorResponse is the error body the backend returns on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendTokenToBackend registers the device token with the backend. It is
// best-effort: every failure is logged and dropped.
func (r *Relay) SendTokenToBackend(ctx context.Context, token string) {
	log := r.logger.WithContext(ctx).WithComponent("backend-relay")

	resp, err := r.post(ctx, saveTokenPath, SaveTokenRequest{
		Name:           r.deviceName,
		FCMDeviceToken: token,
	})
	if err != nil {
		log.Warn("failed to send token to backend",
			slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("backend rejected token",
			slog.Int("status", resp.StatusCode),
			slog.String("error", readErrorMessage(resp.Body, resp.StatusCode)))
		return
	}

	log.Info("token sent to backend",
		slog.String("device_name", r.deviceName))
}

// SendPushNotification asks the backend to push data to this device's token.
// Without a registered token nothing is sent and an Unregistered error is
// returned; a non-2xx answer yields a BackendRequestFailed error carrying the
// backend's message.
func (r *Relay) SendPushNotification(ctx context.Context, data notifications.NotificationData) error {
	log := r.logger.WithContext(ctx).WithComponent("backend-relay")

	token, ok := r.tokens.Get()
	if !ok {
		log.Warn("no push token registered, not contacting backend")
		return apperrors.New(apperrors.Unregistered, "no push token registered")
	}

	payload := data.Data
	if payload == nil {
		payload = map[string]any{}
	}

	return r.logger.WithComponent("backend-relay").LogOperation(ctx, "send_push_notification", func() error {
		resp, err := r.post(ctx, sendNotificationPath, SendNotificationRequest{
			Token: token,
			Title: data.Title,
			Body:  data.Body,
			Data:  payload,
		})
		if err != nil {
			return apperrors.Wrap(apperrors.BackendRequestFailed, "failed to reach backend", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return apperrors.New(apperrors.BackendRequestFailed, readErrorMessage(resp.Body, resp.StatusCode))
		}

		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			log.Debug("backend returned a non-JSON success body",
				slog.String("error", err.Error()))
		}

		log.Info("push notification requested",
			slog.String("title", data.Title),
			slog.Int("status", resp.StatusCode))
		return nil
	})
}

func (r *Relay) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call backend: %w", err)
	}
	return resp, nil
}

// readErrorMessage extracts the backend's error message, or a generic one.
func readErrorMessage(body io.Reader, status int) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err == nil {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return errResp.Error
		}
	}
	return fmt.Sprintf("backend request failed with status %d", status)
}
