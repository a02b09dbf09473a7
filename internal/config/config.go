// Package config loads procveil restriction profiles from a TOML file,
// exposing typed structs for the promise sets, visibility rules, and
// target command.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/shlex"
	"github.com/spf13/viper"
)

// Profile is one restriction profile. Promises and ExecPromises are
// pointers because an absent key means "no change" while an empty
// string means "no promises at all"; the two must stay distinguishable
// all the way down to the pledge call.
type Profile struct {
	Promises     *string      `mapstructure:"promises"`
	ExecPromises *string      `mapstructure:"exec_promises"`
	Unveil       []UnveilRule `mapstructure:"unveil"`
	LockUnveil   bool         `mapstructure:"lock_unveil"`
	Command      string       `mapstructure:"command"`
	LogLevel     string       `mapstructure:"log_level"`
}

// UnveilRule declares one visible path prefix.
type UnveilRule struct {
	Path  string `mapstructure:"path"`
	Modes string `mapstructure:"modes"`
}

var defaultProfile = Profile{
	LogLevel: "warn",
}

// Load reads and decodes the profile at path.
func Load(path string) (*Profile, error) {
	v := viper.New()
	v.SetDefault("log_level", defaultProfile.LogLevel)
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile %q: %w", path, err)
	}

	var profile Profile
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&profile, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", path, err)
	}
	return &profile, nil
}

// SplitCommand splits the profile's command string into an argv using
// shell-style quoting rules.
func (p *Profile) SplitCommand() ([]string, error) {
	argv, err := shlex.Split(p.Command)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", p.Command, err)
	}
	return argv, nil
}

// Level converts the profile's log_level to a slog.Level.
func (p *Profile) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(p.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", p.LogLevel)
	}
}

// expandEnvStringHook expands $VAR-prefixed string values so profiles
// can reference environment-provided paths.
func expandEnvStringHook() mapstructure.DecodeHookFuncKind {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.String {
			return data, nil
		}
		s, ok := data.(string)
		if !ok || !strings.Contains(s, "$") {
			return data, nil
		}
		return os.ExpandEnv(s), nil
	}
}
