package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/joho/godotenv"
)

// Permission policies understood by the device host.
const (
	PermissionGranted      = "granted"
	PermissionPromptAccept = "prompt-accept"
	PermissionPromptReject = "prompt-reject"
	PermissionDenied       = "denied"
)

// Platforms understood by the device host.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Development defaults. Neither is a contract: deployments are expected to set
// BACKEND_URL and CONTENT_URL.
const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultContentURL = "http://localhost:3000"
)

type Config struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`

	// Backend Relay
	BackendURL            string `yaml:"backend_url"`
	BackendTimeoutSeconds int    `yaml:"backend_timeout_seconds"`

	// Embedded content
	ContentURL                 string `yaml:"content_url"`
	ContentProbeTimeoutSeconds int    `yaml:"content_probe_timeout_seconds"`

	// Push registration. An empty ProjectID disables remote push.
	ProjectID  string `yaml:"project_id"`
	DeviceName string `yaml:"device_name"`

	Device DeviceConfig `yaml:"device"`

	// Optional NATS transport for the bridge
	NatsURL           string `yaml:"nats_url"`
	NatsSubjectPrefix string `yaml:"nats_subject_prefix"`

	// CORS
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`

	// Server
	ServerShutdownTimeoutSeconds int `yaml:"server_shutdown_timeout_seconds"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DeviceConfig describes the device the host notification service runs on.
type DeviceConfig struct {
	Platform   string `yaml:"platform"`
	Physical   bool   `yaml:"physical"`
	DevClient  bool   `yaml:"dev_client"`
	Permission string `yaml:"permission"`
	ID         string `yaml:"id"`
}

// LoadConfig loads the configuration and exits on failure.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// Load reads the configuration. Values from the config file override
// environment variables, which override the built-in defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	hostname, _ := os.Hostname()

	cfg := &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		BackendURL:            getEnvOrDefault("BACKEND_URL", DefaultBackendURL),
		BackendTimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 30),

		ContentURL:                 getEnvOrDefault("CONTENT_URL", DefaultContentURL),
		ContentProbeTimeoutSeconds: getEnvAsInt("CONTENT_PROBE_TIMEOUT_SECONDS", 5),

		ProjectID:  strings.TrimSpace(getEnvOrDefault("PUSH_PROJECT_ID", "")),
		DeviceName: getEnvOrDefault("DEVICE_NAME", hostname),

		Device: DeviceConfig{
			Platform:   getEnvOrDefault("DEVICE_PLATFORM", PlatformAndroid),
			Physical:   getEnvOrDefault("DEVICE_PHYSICAL", "true") == "true",
			DevClient:  getEnvOrDefault("DEVICE_DEV_CLIENT", "false") == "true",
			Permission: getEnvOrDefault("DEVICE_PERMISSION", PermissionPromptAccept),
			ID:         getEnvOrDefault("DEVICE_ID", hostname),
		},

		NatsURL:           getEnvOrDefault("NATS_URL", ""),
		NatsSubjectPrefix: getEnvOrDefault("NATS_SUBJECT_PREFIX", "bridge"),

		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "debug"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	configFile, err := os.Open(configFilePath)
	switch {
	case err == nil:
		defer configFile.Close()
		log.Printf("Loading config file: %v", configFilePath)
		if err := LoadConfigFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFilePath, err)
		}
	case os.IsNotExist(err):
		log.Printf("No config file at %s, using environment variables", configFilePath)
	default:
		return nil, fmt.Errorf("failed to open config file %s: %w", configFilePath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ProjectID == "" {
		log.Println("Warning: push project ID is missing, remote push registration is disabled. Set PUSH_PROJECT_ID or project_id.")
	}

	return cfg, nil
}

// Validate checks enumerated values and normalizes URLs.
func (c *Config) Validate() error {
	switch c.Device.Platform {
	case PlatformAndroid, PlatformIOS:
	default:
		return fmt.Errorf("bad device platform %q: must be one of %q, %q", c.Device.Platform, PlatformAndroid, PlatformIOS)
	}

	switch c.Device.Permission {
	case PermissionGranted, PermissionPromptAccept, PermissionPromptReject, PermissionDenied:
	default:
		return fmt.Errorf("bad device permission policy %q", c.Device.Permission)
	}

	if c.BackendURL == "" {
		return fmt.Errorf("backend URL must not be empty")
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")

	if c.ContentURL == "" {
		return fmt.Errorf("content URL must not be empty")
	}

	return nil
}

// AllowedOrigins splits CORSAllowedOrigins on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// BackendTimeout returns the HTTP timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// ContentProbeTimeout returns the timeout for probing the content URL.
func (c *Config) ContentProbeTimeout() time.Duration {
	return time.Duration(c.ContentProbeTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ServerShutdownTimeoutSeconds) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

// LoadConfigFile applies the YAML documents read from reader on top of config.
// Empty, comment-only and null documents leave config untouched.
func LoadConfigFile(reader io.Reader, config *Config) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	file, err := parser.ParseBytes(data, 0)
	if err != nil {
		return err
	}

	for _, doc := range file.Docs {
		switch doc.Body.(type) {
		case nil, *ast.CommentGroupNode, *ast.NullNode:
			continue
		}
		if err := yaml.NodeToValue(doc.Body, config); err != nil {
			return err
		}
	}

	return nil
}
