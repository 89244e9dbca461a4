package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalZstore     = "zstore"
	luaFieldTimezone    = "timezone"
	luaFieldHelpersDir  = "helpers_dir"
	luaFieldPortableTar = "portable_tar"
	luaFieldTools       = "tools"
)

// Environment variables
const (
	// EnvConfig names a config file to use instead of the default location.
	EnvConfig = "ZSTORE_CONFIG"
	// EnvDebug enables debug logging when set to a non-empty value.
	EnvDebug = "ZSTORE_DEBUG"
)

// Resource limits
const (
	// MaxConfigSize is the largest config file that will be evaluated.
	MaxConfigSize = 1 << 20
	// ParseTimeout bounds evaluation of a config file.
	ParseTimeout = 5 * time.Second
	// MaxToolOverrides bounds the number of entries in zstore.tools.
	MaxToolOverrides = 64
)

// DefaultTimezone is the TZ external tools run with unless configured.
const DefaultTimezone = "GMT"

// KnownTools lists the canonical tool names that may be overridden.
var KnownTools = []string{
	"ar", "cabextract", "cp", "cpio", "hdiutil", "rpm2cpio",
	"tar", "unlzma", "unxz", "unzip", "unzstd",
}
