package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pombredanne/0install/internal/platform"
	"github.com/pombredanne/0install/internal/unpack"
)

// Config is the 0store configuration, as read from the zstore table.
type Config struct {
	// Timezone is exported as TZ to every external tool.
	Timezone string `json:"timezone,omitempty"`

	// HelpersDir holds fallback decompressors (_unxz, _unlzma).
	HelpersDir string `json:"helpers_dir,omitempty"`

	// PortableTar disables GNU tar even when it is installed.
	PortableTar bool `json:"portable_tar,omitempty"`

	// Tools maps a canonical tool name to the command to run instead.
	Tools map[string]string `json:"tools,omitempty"`
}

// Defaults returns the configuration used when no config file exists.
func Defaults() *Config {
	return &Config{Timezone: DefaultTimezone}
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if c.Timezone == "" {
		return &ValidationError{Field: luaFieldTimezone, Message: "cannot be empty"}
	}
	if strings.ContainsAny(c.Timezone, " \t\n\x00=") {
		return &ValidationError{Field: luaFieldTimezone, Message: fmt.Sprintf("invalid timezone %q", c.Timezone)}
	}

	if c.HelpersDir != "" {
		if !filepath.IsAbs(c.HelpersDir) {
			return &ValidationError{Field: luaFieldHelpersDir, Message: fmt.Sprintf("must be an absolute path (got %q)", c.HelpersDir)}
		}
		if filepath.Clean(c.HelpersDir) != c.HelpersDir {
			return &ValidationError{Field: luaFieldHelpersDir, Message: fmt.Sprintf("must be a clean path (got %q)", c.HelpersDir)}
		}
	}

	if len(c.Tools) > MaxToolOverrides {
		return &ValidationError{
			Field:   luaFieldTools,
			Message: fmt.Sprintf("too many tool overrides (%d), maximum is %d", len(c.Tools), MaxToolOverrides),
		}
	}
	for tool, command := range c.Tools {
		if err := validateToolOverride(tool, command); err != nil {
			return &ValidationError{Field: fmt.Sprintf("%s.%s", luaFieldTools, tool), Message: err.Error()}
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// validateToolOverride checks one zstore.tools entry. The command is run
// directly, never through a shell, so it must be a single word.
func validateToolOverride(tool, command string) error {
	if !slices.Contains(KnownTools, tool) {
		return fmt.Errorf("unknown tool %q (known: %s)", tool, strings.Join(KnownTools, ", "))
	}
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if len(command) > 4096 {
		return fmt.Errorf("command too long (%d chars, max 4096)", len(command))
	}
	if strings.ContainsAny(command, " \t\n\x00") {
		return fmt.Errorf("command %q must be a single program name or path", command)
	}
	return nil
}

// UnpackConfig converts c into options for unpack.New.
func (c *Config) UnpackConfig(logger *slog.Logger, info *platform.Info) unpack.Config {
	tools := make(map[string]string, len(c.Tools))
	for tool, command := range c.Tools {
		tools[tool] = command
	}
	return unpack.Config{
		Logger:      logger,
		Platform:    info,
		Tools:       tools,
		Timezone:    c.Timezone,
		HelpersDir:  c.HelpersDir,
		PortableTar: c.PortableTar,
	}
}
