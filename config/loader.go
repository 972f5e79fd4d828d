// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment. Environment variables win over the
// file; the .env file never replaces a variable that is already set.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Option customizes LoadConfig.
type Option func(*loader)

type loader struct {
	fs         afero.Fs
	configFile string
	envFile    string
}

// WithFs reads the config and .env files from fs instead of the OS.
func WithFs(fs afero.Fs) Option {
	return func(l *loader) { l.fs = fs }
}

// WithConfigFile uses path instead of searching. The file must exist.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile uses path instead of searching. The file must exist.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// EnvPrefix is the prefix of every environment override for service:
// TRANSCRIBER_WORKSPACE_TEMP_ROOT sets workspace.temp_root.
func EnvPrefix(service string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(service))
}

// ConfigCandidates lists where LoadConfig looks for config.yml, in order.
func ConfigCandidates(service string) []string {
	return []string{
		"./cmd/" + service + "/config.yml",
		"./config.yml",
		"/etc/" + service + "/config.yml",
	}
}

// EnvCandidates lists where LoadConfig looks for a .env file, in order.
func EnvCandidates(service string) []string {
	return []string{
		"./.env." + service,
		"./.env",
		"./cmd/" + service + "/.env",
	}
}

// LoadConfig decodes the configuration of service into cfg, which must be a
// pointer to a struct with mapstructure tags.
func LoadConfig(service string, cfg any, opts ...Option) error {
	l := &loader{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(l)
	}

	configFile, err := l.locate(l.configFile, ConfigCandidates(service))
	if err != nil {
		return err
	}
	envFile, err := l.locate(l.envFile, EnvCandidates(service))
	if err != nil {
		return err
	}
	if envFile != "" {
		if err := l.loadEnv(envFile); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetFs(l.fs)
	v.SetEnvPrefix(EnvPrefix(service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}
	for _, key := range Keys(cfg) {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", service, err)
	}
	return nil
}

func (l *loader) locate(explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if ok, _ := afero.Exists(l.fs, explicit); !ok {
			return "", fmt.Errorf("config: %s not found", explicit)
		}
		return explicit, nil
	}
	for _, path := range candidates {
		if ok, _ := afero.Exists(l.fs, path); ok {
			return path, nil
		}
	}
	return "", nil
}

func (l *loader) loadEnv(path string) error {
	f, err := l.fs.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	for name, value := range vars {
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("config: set %s: %w", name, err)
		}
	}
	return nil
}

// Keys returns the dotted mapstructure key of every scalar and slice field
// reachable from cfg. Squashed structs contribute their fields at the parent
// level. Maps are skipped since a single variable cannot describe them.
func Keys(cfg any) []string {
	return appendKeys(nil, "", reflect.TypeOf(cfg))
}

func appendKeys(keys []string, prefix string, t reflect.Type) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return keys
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, flags, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if strings.Contains(flags, "squash") {
			keys = appendKeys(keys, prefix, ft)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}

		switch ft.Kind() {
		case reflect.Struct:
			keys = appendKeys(keys, prefix+name+".", ft)
		case reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		default:
			keys = append(keys, prefix+name)
		}
	}
	return keys
}
