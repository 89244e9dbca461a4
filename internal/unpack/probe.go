package unpack

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pombredanne/0install/internal/platform"
)

// probeTimeout bounds a single `<tool> --version` run.
const probeTimeout = 10 * time.Second

// recentGNUTarFloor is the newest GNU tar release that still needs the
// legacy invocation; anything newer supports --no-same-owner.
var recentGNUTarFloor = []int{1, 13, 92}

var versionNumberPattern = regexp.MustCompile(`\)\s*(\d+(\.\d+)*)`)

// ToolInfo is what the probe learned about one external tool.
type ToolInfo struct {
	Name    string
	Version string // first line of `<tool> --version`, "" if it could not run
	GNU     bool
}

type toolProbe struct {
	once sync.Once
	info ToolInfo
}

// Capabilities detects which external tools are available and what they
// are. Version probes run at most once per tool for the lifetime of the
// Capabilities value; concurrent first probes of the same tool share a
// single run.
type Capabilities struct {
	log      *slog.Logger
	platform *platform.Info
	commands map[string]string
	lookPath func(string) (string, error)

	mu    sync.Mutex
	tools map[string]*toolProbe
}

// CapabilitiesConfig configures a Capabilities.
type CapabilitiesConfig struct {
	// Logger receives debug records for probe results. Defaults to discarding.
	Logger *slog.Logger
	// Platform phrases install hints for missing tools. May be nil.
	Platform *platform.Info
	// Commands overrides the command run for a canonical tool name
	// (for example "tar" -> "gtar").
	Commands map[string]string
}

// NewCapabilities creates a capability probe.
func NewCapabilities(cfg CapabilitiesConfig) *Capabilities {
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	commands := make(map[string]string, len(cfg.Commands))
	for tool, command := range cfg.Commands {
		commands[tool] = command
	}
	return &Capabilities{
		log:      logger,
		platform: cfg.Platform,
		commands: commands,
		lookPath: exec.LookPath,
		tools:    make(map[string]*toolProbe),
	}
}

// Command returns the command configured for tool.
func (c *Capabilities) Command(tool string) string {
	if command, ok := c.commands[tool]; ok && command != "" {
		return command
	}
	return tool
}

// LookPath reports the full path of tool's command on the search path.
func (c *Capabilities) LookPath(tool string) (string, bool) {
	path, err := c.lookPath(c.Command(tool))
	if err != nil {
		return "", false
	}
	return path, true
}

// Require checks that the external tools needed to extract format are
// available. It does not run any of them.
func (c *Capabilities) Require(format Format) error {
	switch format {
	case FormatRpm:
		return c.requireTool("rpm2cpio", "an RPM package",
			" (this works even on distributions that do not use RPM)")
	case FormatDeb:
		return c.requireTool("ar", "a Debian package",
			" (this works even on distributions that do not use dpkg)")
	case FormatZip:
		return c.requireTool("unzip", "a zip archive", "")
	case FormatCab:
		return c.requireTool("cabextract", "a Microsoft Cabinet archive", "")
	case FormatDmg:
		return c.requireTool("hdiutil", "an Apple Disk Image", "")
	case FormatTarXz:
		return c.requireTool("unxz", "an xz-compressed archive", "")
	case FormatTar, FormatTarGzip, FormatTarBzip, FormatTarLzma, FormatGem:
		// tar itself is optional: there is an in-process fallback
		return nil
	default:
		return newError(KindUnsupportedFormat, "unsupported archive type %q", string(format))
	}
}

func (c *Capabilities) requireTool(tool, what, note string) error {
	if _, ok := c.LookPath(tool); ok {
		return nil
	}

	msg := fmt.Sprintf("this archive looks like %s, but the %q command needed to extract it was not found",
		what, c.Command(tool))
	if pkg := c.platform.PackageFor(tool); pkg != "" {
		if install := c.platform.InstallCommand(pkg); install != "" {
			msg += fmt.Sprintf("; install it with '%s'", install)
		} else {
			msg += fmt.Sprintf("; install the package containing it (usually called '%s')", pkg)
		}
		msg += note
	} else if tool == "hdiutil" {
		msg += "; it is only available on macOS"
	}
	return newError(KindMissingTool, "%s", msg)
}

// Tool probes tool's version banner, once.
func (c *Capabilities) Tool(ctx context.Context, tool string) ToolInfo {
	c.mu.Lock()
	probe, ok := c.tools[tool]
	if !ok {
		probe = &toolProbe{}
		c.tools[tool] = probe
	}
	c.mu.Unlock()

	probe.once.Do(func() {
		probe.info = c.probe(ctx, tool)
	})
	return probe.info
}

func (c *Capabilities) probe(ctx context.Context, tool string) ToolInfo {
	info := ToolInfo{Name: tool}

	// A cancelled caller must not poison the cache for everyone else.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.Command(tool), "--version").CombinedOutput()
	if err != nil && len(out) == 0 {
		c.log.Debug("tool version probe failed", "tool", tool, "error", err)
		return info
	}

	info.Version, _, _ = strings.Cut(string(out), "\n")
	info.Version = strings.TrimSpace(info.Version)
	info.GNU = strings.Contains(info.Version, "(GNU "+tool+")")
	c.log.Debug("tool version", "tool", tool, "version", info.Version, "gnu", info.GNU)
	return info
}

// GNUTar reports whether tar is GNU tar.
func (c *Capabilities) GNUTar(ctx context.Context) bool {
	return c.Tool(ctx, "tar").GNU
}

// GNUCpio reports whether cpio is GNU cpio.
func (c *Capabilities) GNUCpio(ctx context.Context) bool {
	return c.Tool(ctx, "cpio").GNU
}

// RecentGNUTar reports whether tar is a GNU tar newer than 1.13.92, which
// understands --no-same-owner and --no-same-permissions.
func (c *Capabilities) RecentGNUTar(ctx context.Context) bool {
	info := c.Tool(ctx, "tar")
	if !info.GNU {
		return false
	}
	version, ok := parseToolVersion(info.Version)
	if !ok {
		c.log.Warn("failed to extract GNU tar version number", "version", info.Version)
		return false
	}
	recent := compareVersions(version, recentGNUTarFloor) > 0
	c.log.Debug("recent GNU tar", "recent", recent)
	return recent
}

// parseToolVersion extracts the dotted number following the ")" of a GNU
// version banner such as "tar (GNU tar) 1.34".
func parseToolVersion(banner string) ([]int, bool) {
	m := versionNumberPattern.FindStringSubmatch(banner)
	if m == nil {
		return nil, false
	}
	parts := strings.Split(m[1], ".")
	version := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		version[i] = n
	}
	return version, true
}

// compareVersions compares element by element; a shorter version that is a
// prefix of a longer one sorts first.
func compareVersions(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
