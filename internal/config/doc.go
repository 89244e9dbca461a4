// Package config provides Lua configuration parsing and generation for 0store.
//
// # Overview
//
// The configuration lives in a Lua file (by default
// ~/.config/0store/0store.lua) that sets a global zstore table:
//
//	zstore = {
//	  timezone = "GMT",
//	  helpers_dir = "/opt/0store/helpers",
//	  portable_tar = false,
//	  tools = {
//	    tar = platform.is_macos and "gtar" or nil,
//	  },
//	}
//
// Every field is optional. A file that does not exist, or does not set
// zstore, leaves every setting at its default.
//
// # Platform Table
//
// Before the file runs, a read-only platform table describing the host is
// injected (see platform.InjectPlatformTable), so one file can serve
// several machines.
//
// # Sandboxing
//
// The file runs in gopher-lua with the os, io, package, debug and code
// loading functions removed, a bounded call stack, and a timeout. Configs
// are declarative; they cannot run commands or touch the filesystem.
//
// # Error Handling
//
// Lua errors and invalid values are reported as *ParseError; use
// FormatError to render one for the user.
package config
