package provider

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/whisperbatch/security"
)

// StringSetting returns settings[key] as a string, or def when unset.
func StringSetting(settings map[string]any, key, def string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return def
}

// DurationSetting returns settings[key] as a duration. Strings such as
// "90s" are parsed, integers are taken as seconds.
func DurationSetting(settings map[string]any, key string, def time.Duration) (time.Duration, error) {
	switch v := settings[key].(type) {
	case nil:
		return def, nil
	case time.Duration:
		return v, nil
	case string:
		if v == "" {
			return def, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("setting %s: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("setting %s: unsupported type %T", key, v)
	}
}

// TLSSetting reads a nested block such as
//
//	tls: {ca_file: /etc/transcriber/ca.pem, server_name: sidecar.internal}
//
// into a security.TLSConfig. An absent block yields nil.
func TLSSetting(settings map[string]any, key string) (*security.TLSConfig, error) {
	raw, ok := settings[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("setting %s: expected a map, got %T", key, raw)
	}

	skip, err := boolSetting(m, "skip_verify")
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}
	return &security.TLSConfig{
		SkipVerify: skip,
		CAFile:     StringSetting(m, "ca_file", ""),
		CertFile:   StringSetting(m, "cert_file", ""),
		KeyFile:    StringSetting(m, "key_file", ""),
		ServerName: StringSetting(m, "server_name", ""),
		MinVersion: StringSetting(m, "min_version", ""),
	}, nil
}

func boolSetting(settings map[string]any, key string) (bool, error) {
	switch v := settings[key].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%s: unsupported type %T", key, v)
	}
}
