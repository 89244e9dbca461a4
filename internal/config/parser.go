package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pombredanne/0install/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseString parses a Lua config from a string.
// This is useful for testing and in-memory config generation.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

	L := newSandboxedVM()
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, ParseTimeout)
	defer cancel()
	L.SetContext(ctx)

	// Detect platform and inject platform table
	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, &ParseError{Message: "config evaluation timed out", Detail: err.Error()}
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseFile reads and parses the config file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	// Read one byte past the limit so an oversized file is detected.
	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := p.ParseString(ctx, string(data))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	File    string // Config file, if parsed from disk
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig extracts the config from a Lua state.
// It expects a global "zstore" table; a file that doesn't set one leaves
// every setting at its default.
func extractConfig(L *lua.LState) (*Config, error) {
	config := Defaults()

	zstoreVal := L.GetGlobal(luaGlobalZstore)
	switch zstoreVal.Type() {
	case lua.LTNil:
		return config, nil
	case lua.LTTable:
	default:
		return nil, &ParseError{
			Message: "invalid 'zstore' table",
			Detail:  fmt.Sprintf("expected table, got %s", zstoreVal.Type()),
		}
	}
	table := zstoreVal.(*lua.LTable)

	if tzVal := table.RawGetString(luaFieldTimezone); tzVal != lua.LNil {
		tz, err := stringField(luaFieldTimezone, tzVal)
		if err != nil {
			return nil, err
		}
		config.Timezone = tz
	}

	if dirVal := table.RawGetString(luaFieldHelpersDir); dirVal != lua.LNil {
		dir, err := stringField(luaFieldHelpersDir, dirVal)
		if err != nil {
			return nil, err
		}
		config.HelpersDir = dir
	}

	if portableVal := table.RawGetString(luaFieldPortableTar); portableVal != lua.LNil {
		if portableVal.Type() != lua.LTBool {
			return nil, fieldTypeError(luaFieldPortableTar, "boolean", portableVal)
		}
		config.PortableTar = bool(portableVal.(lua.LBool))
	}

	if toolsVal := table.RawGetString(luaFieldTools); toolsVal != lua.LNil {
		if toolsVal.Type() != lua.LTTable {
			return nil, fieldTypeError(luaFieldTools, "table", toolsVal)
		}
		tools, err := extractTools(toolsVal.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		config.Tools = tools
	}

	// Validate the extracted config
	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return config, nil
}

// extractTools extracts the tool override map from a Lua table.
// Entries whose value is nil (from platform conditionals such as
// `tar = platform.is_macos and "gtar" or nil`) are simply absent.
func extractTools(table *lua.LTable) (map[string]string, error) {
	tools := make(map[string]string)
	var err error

	table.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		if key.Type() != lua.LTString {
			err = &ParseError{
				Message: "invalid 'tools' table",
				Detail:  fmt.Sprintf("keys must be tool names, got %s", key.Type()),
			}
			return
		}
		if value.Type() == lua.LTBool && !bool(value.(lua.LBool)) {
			return
		}
		if value.Type() != lua.LTString {
			err = fieldTypeError(luaFieldTools+"."+key.String(), "string", value)
			return
		}
		tools[key.String()] = value.String()
	})

	if err != nil {
		return nil, err
	}
	return tools, nil
}

func stringField(name string, value lua.LValue) (string, error) {
	if value.Type() != lua.LTString {
		return "", fieldTypeError(name, "string", value)
	}
	return value.String(), nil
}

func fieldTypeError(name, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid value for '%s'", name),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		prefix := parseErr.Message
		if parseErr.File != "" {
			prefix = parseErr.File + ": " + prefix
		}
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", prefix, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", prefix, detail)
	}
	return err.Error()
}
