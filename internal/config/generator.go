package config

import (
	"bytes"
	"slices"
	"strconv"
	"strings"
)

// Generator generates Lua configuration code from Go structs.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate renders config as a zstore table that parses back to the same
// Config. Tool overrides are written in name order.
func (g *Generator) Generate(config *Config) string {
	var buf bytes.Buffer

	buf.WriteString("-- 0store configuration\n")
	buf.WriteString("-- The read-only 'platform' table (os, arch, distro, is_linux, ...)\n")
	buf.WriteString("-- is available for conditional settings.\n\n")

	buf.WriteString(luaGlobalZstore + " = {\n")
	g.writeField(&buf, luaFieldTimezone, g.quoteLuaString(config.Timezone))
	if config.HelpersDir != "" {
		g.writeField(&buf, luaFieldHelpersDir, g.quoteLuaString(config.HelpersDir))
	}
	g.writeField(&buf, luaFieldPortableTar, strconv.FormatBool(config.PortableTar))
	if len(config.Tools) > 0 {
		g.writeTools(&buf, config.Tools)
	}
	buf.WriteString("}\n")

	return buf.String()
}

func (g *Generator) writeField(buf *bytes.Buffer, name, value string) {
	buf.WriteString(g.indent)
	buf.WriteString(name)
	buf.WriteString(" = ")
	buf.WriteString(value)
	buf.WriteString(",\n")
}

// writeTools writes the tools section to the buffer.
func (g *Generator) writeTools(buf *bytes.Buffer, tools map[string]string) {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	slices.Sort(names)

	buf.WriteString(g.indent)
	buf.WriteString(luaFieldTools + " = {\n")
	for _, name := range names {
		buf.WriteString(g.indent)
		buf.WriteString(g.indent)
		buf.WriteString("[")
		buf.WriteString(g.quoteLuaString(name))
		buf.WriteString("] = ")
		buf.WriteString(g.quoteLuaString(tools[name]))
		buf.WriteString(",\n")
	}
	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// quoteLuaString quotes a string for use in Lua code.
func (g *Generator) quoteLuaString(s string) string {
	// Use double quotes and escape special characters
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"") // Escape double quotes
	s = strings.ReplaceAll(s, "\n", "\\n")  // Escape newlines
	s = strings.ReplaceAll(s, "\r", "\\r")  // Escape carriage returns
	s = strings.ReplaceAll(s, "\t", "\\t")  // Escape tabs
	return "\"" + s + "\""
}
