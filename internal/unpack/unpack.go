package unpack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pombredanne/0install/internal/platform"
)

// DefaultTimezone is the TZ external tools run with.
const DefaultTimezone = "GMT"

// Request describes one archive to unpack.
type Request struct {
	// SourceURL is only used to guess the format when Format is empty.
	SourceURL string
	// Stream holds the archive, starting at StartOffset.
	Stream io.ReadSeeker
	// Dest must be an existing directory.
	Dest string
	// Extract, if set, names the single top-level subtree to unpack.
	Extract string
	// Format overrides the guess from SourceURL.
	Format      Format
	StartOffset int64
}

// Config configures an Unpacker. The zero value is usable.
type Config struct {
	Logger *slog.Logger
	// Capabilities is shared between Unpackers so tools are probed once.
	// When nil one is created from Platform and Tools.
	Capabilities *Capabilities
	Platform     *platform.Info
	// Tools overrides the command run for a canonical tool name.
	Tools map[string]string

	Timezone string
	// HelpersDir holds fallback decompressors named _unxz and _unlzma.
	HelpersDir string
	// PortableTar skips GNU tar even when it is installed.
	PortableTar bool
}

// Unpacker extracts archives into directories. It is safe for concurrent
// use; each Unpack call blocks until its tools have exited.
type Unpacker struct {
	log         *slog.Logger
	caps        *Capabilities
	timezone    string
	helpersDir  string
	portableTar bool
}

// New creates an Unpacker from cfg.
func New(cfg Config) (*Unpacker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}

	caps := cfg.Capabilities
	if caps == nil {
		caps = NewCapabilities(CapabilitiesConfig{
			Logger:   logger,
			Platform: cfg.Platform,
			Commands: cfg.Tools,
		})
	}

	timezone := cfg.Timezone
	if timezone == "" {
		timezone = DefaultTimezone
	}

	if cfg.HelpersDir != "" {
		info, err := os.Stat(cfg.HelpersDir)
		if err != nil {
			return nil, fmt.Errorf("check helpers directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("helpers directory %s is not a directory", cfg.HelpersDir)
		}
	}

	return &Unpacker{
		log:         logger,
		caps:        caps,
		timezone:    timezone,
		helpersDir:  cfg.HelpersDir,
		portableTar: cfg.PortableTar,
	}, nil
}

// Capabilities returns the tool probe the Unpacker uses.
func (u *Unpacker) Capabilities() *Capabilities {
	return u.caps
}

// CheckFormatSupported reports whether format can be extracted on this
// host, without running anything.
func (u *Unpacker) CheckFormatSupported(format Format) error {
	return u.caps.Require(format)
}

// Unpack extracts req.Stream into req.Dest. The format is resolved and the
// required tools are checked before anything is written or run.
func (u *Unpacker) Unpack(ctx context.Context, req Request) error {
	format, err := ResolveFormat(req.SourceURL, req.Format)
	if err != nil {
		return err
	}
	if err := u.CheckFormatSupported(format); err != nil {
		return err
	}

	info, err := os.Stat(req.Dest)
	if err != nil {
		return fmt.Errorf("check destination: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination %s is not a directory", req.Dest)
	}

	u.log.Debug("unpacking archive", "format", format.String(), "dest", req.Dest, "extract", req.Extract, "offset", req.StartOffset)

	if c, ok := tarCompression(format); ok {
		return u.extractTar(ctx, req.Stream, req.Dest, req.Extract, c, req.StartOffset)
	}
	switch format {
	case FormatZip:
		return u.extractZip(ctx, req.Stream, req.Dest, req.Extract, req.StartOffset)
	case FormatCab:
		return u.extractCab(ctx, req.Stream, req.Dest, req.Extract, req.StartOffset)
	case FormatDmg:
		return u.extractDmg(ctx, req.Stream, req.Dest, req.Extract, req.StartOffset)
	case FormatDeb:
		return u.extractDeb(ctx, req.Stream, req.Dest, req.Extract, req.StartOffset)
	case FormatRpm:
		return u.extractRpm(ctx, req.Stream, req.Dest, req.Extract, req.StartOffset)
	case FormatGem:
		return u.extractGem(ctx, req.Stream, req.Dest, req.Extract, req.StartOffset)
	default:
		// Require has already rejected anything else.
		panic("unpack: no extractor for " + format.String())
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
