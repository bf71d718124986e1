// Package config handles application configuration loading from environment variables.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "studytrack/internal/utils"

	"gopkg.in/yaml.v3"
)

// AuthConfig represents authentication-related configuration
type AuthConfig struct {
	SignupsDisabled bool     `json:"signups_disabled" yaml:"signups_disabled"`
	AllowedDomains  []string `json:"allowed_domains,omitempty" yaml:"allowed_domains,omitempty"`
	AllowedEmails   []string `json:"allowed_emails,omitempty" yaml:"allowed_emails,omitempty"`
}

// SystemConfig represents system-wide configuration
type SystemConfig struct {
	Auth AuthConfig `json:"auth" yaml:"auth"`
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Feedback configuration
	Feedback FeedbackConfig `json:"feedback" yaml:"feedback"`

	System *SystemConfig `json:"system,omitempty" yaml:"system,omitempty"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	AdminUsername string   `json:"admin_username" yaml:"admin_username"`
	AdminPassword string   `json:"admin_password" yaml:"admin_password"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	AppBaseURL    string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
}

// FeedbackConfig tunes the feedback listing endpoints
type FeedbackConfig struct {
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size"`
	MaxPageSize     int `json:"max_page_size" yaml:"max_page_size"`
}

// IsSignupDisabled returns whether signups are disabled based on configuration
func (c *Config) IsSignupDisabled() bool {
	if c.System == nil {
		return false // Default to enabled if no config
	}
	return c.System.Auth.SignupsDisabled
}

// IsEmailAllowed checks if an email is allowed for signup override
func (c *Config) IsEmailAllowed(email string) bool {
	if c.System == nil || c.System.Auth.AllowedEmails == nil {
		return false
	}

	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	for _, allowedEmail := range c.System.Auth.AllowedEmails {
		if strings.ToLower(strings.TrimSpace(allowedEmail)) == normalizedEmail {
			return true
		}
	}
	return false
}

// IsDomainAllowed checks if a domain is allowed for signup override
func (c *Config) IsDomainAllowed(domain string) bool {
	if c.System == nil || c.System.Auth.AllowedDomains == nil {
		return false
	}

	normalizedDomain := strings.ToLower(strings.TrimSpace(domain))
	for _, allowedDomain := range c.System.Auth.AllowedDomains {
		if strings.ToLower(strings.TrimSpace(allowedDomain)) == normalizedDomain {
			return true
		}
	}
	return false
}

// IsSignupAllowed checks if signup is allowed for a given email
func (c *Config) IsSignupAllowed(email string) bool {
	if c.System == nil {
		return true
	}

	// If signups are not disabled, signup is always allowed
	if !c.System.Auth.SignupsDisabled {
		return true
	}

	// If signups are disabled, check whitelist
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))

	if !contextutils.IsValidEmail(normalizedEmail) {
		return false
	}

	if c.IsEmailAllowed(normalizedEmail) {
		return true
	}

	// Extract domain from email and check if domain is whitelisted
	parts := strings.Split(normalizedEmail, "@")
	domain := parts[1]
	return c.IsDomainAllowed(domain)
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "studytrack-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: true
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: true
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: true
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Use auto/sdk instead of manual setup
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// UnmarshalYAML decodes the database section, accepting Go duration
// strings like "5m" for conn_max_lifetime.
func (d *DatabaseConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		URL             string `yaml:"url"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	d.URL = raw.URL
	d.MaxOpenConns = raw.MaxOpenConns
	d.MaxIdleConns = raw.MaxIdleConns
	if raw.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(raw.ConnMaxLifetime)
		if err != nil {
			return err
		}
		d.ConnMaxLifetime = lifetime
	}
	return nil
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	// Load config from YAML file
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills in zero-valued knobs that have sensible defaults
func (c *Config) applyDefaults() {
	if c.Feedback.DefaultPageSize <= 0 {
		c.Feedback.DefaultPageSize = DefaultPageSize
	}
	if c.Feedback.MaxPageSize <= 0 {
		c.Feedback.MaxPageSize = MaxPageSize
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlTag = strings.Split(yamlTag, ",")[0]

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if uintVal, err := strconv.ParseUint(envVal, 10, 64); err == nil {
					field.SetUint(uintVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			// Handle pointer to struct
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	// Try to load from environment variable first
	if envPath := os.Getenv("STUDYTRACK_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// If no environment variable is set, try default config.yaml.
	// A missing default file is fine: env vars and defaults fill in.
	config, err := loadConfigFromFile("config.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return config, nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
