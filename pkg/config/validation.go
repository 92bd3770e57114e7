package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	validPlatforms  = []string{PlatformGin, PlatformGorilla}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
	validLogOutputs = []string{"logger", "stdout", "stderr"}
)

// Validate checks if the configuration is valid and reports every problem.
func (c *Config) Validate() error {
	var errs []error

	if !contains(validPlatforms, strings.ToLower(c.Platform)) {
		errs = append(errs, fmt.Errorf("invalid platform: %q (must be one of: %v)", c.Platform, validPlatforms))
	}
	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}

	if !validPort(c.HTTP.Port) {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.Management.Enabled {
		if !validPort(c.Management.Port) {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", c.Management.Port))
		} else if c.Management.Port == c.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}
	if c.HTTP.MaxRequestSize <= 0 {
		errs = append(errs, errors.New("http.max_request_size must be positive"))
	}

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	} else if !strings.HasPrefix(c.Database.URL, "mongodb://") && !strings.HasPrefix(c.Database.URL, "mongodb+srv://") {
		errs = append(errs, errors.New("database.url must use the mongodb:// or mongodb+srv:// scheme"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}

	if !contains(validLogLevels, strings.ToLower(c.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %q (must be one of: %v)", c.Observability.LogLevel, validLogLevels))
	}
	if !contains(validLogFormats, strings.ToLower(c.Observability.LogFormat)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %q (must be one of: %v)", c.Observability.LogFormat, validLogFormats))
	}
	if !contains(validLogOutputs, strings.ToLower(c.Observability.RequestLogOutput)) {
		errs = append(errs, fmt.Errorf("invalid observability.request_log_output: %q (must be one of: %v)", c.Observability.RequestLogOutput, validLogOutputs))
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1, got %v", c.Observability.TracingSampleRate))
	}
	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy of the configuration with credentials in the
// database URL masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Database.URL = redactURL(c.Database.URL)
	return &out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "redacted")
	}
	return u.String()
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
