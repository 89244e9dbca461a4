package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/pombredanne/0install/internal/fetch"
	"github.com/pombredanne/0install/internal/unpack"
)

const unpackUsage = "0store unpack [options] SOURCE DEST"

// runUnpack handles the `0store unpack` subcommand
func runUnpack(args []string, stdout, stderr io.Writer) error {
	var (
		common    commonFlags
		extract   string
		mimeType  string
		offset    int64
		sourceURL string
		checksum  string
		portable  bool
	)

	flagSet := pflag.NewFlagSet("unpack", pflag.ContinueOnError)
	common.register(flagSet)
	flagSet.StringVar(&extract, "extract", "", "only extract this top-level directory")
	flagSet.StringVar(&mimeType, "type", "", "archive MIME type (default: guessed from the URL or SOURCE)")
	flagSet.Int64Var(&offset, "offset", 0, "skip this many bytes at the start of the archive")
	flagSet.StringVar(&sourceURL, "url", "", "URL the archive came from, used to guess its type")
	flagSet.StringVar(&checksum, "sha256", "", "expected SHA256 digest of SOURCE")
	flagSet.BoolVar(&portable, "portable", false, "use the built-in tar reader even if GNU tar is installed")

	if help, err := parseFlags(flagSet, args, stdout, unpackUsage); help || err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("expected SOURCE and DEST, got %d argument(s)\nUsage: %s", flagSet.NArg(), unpackUsage)
	}
	source, dest := flagSet.Arg(0), flagSet.Arg(1)
	if offset < 0 {
		return fmt.Errorf("invalid --offset %d", offset)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadEnvironment(ctx, &common, stderr)
	if err != nil {
		return err
	}

	cfg := env.config.UnpackConfig(env.logger, env.platform)
	cfg.PortableTar = cfg.PortableTar || portable
	unpacker, err := unpack.New(cfg)
	if err != nil {
		return err
	}

	// Fail before creating DEST or downloading anything we could not unpack.
	hint := sourceURL
	if hint == "" {
		hint = source
	}
	format, err := unpack.ResolveFormat(hint, unpack.Format(mimeType))
	if err != nil {
		return err
	}
	if err := unpack.CheckExtract(format, extract); err != nil {
		return err
	}
	if err := unpacker.CheckFormatSupported(format); err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	src, err := fetch.NewDownloader("", env.logger).Open(ctx, source)
	if err != nil {
		return err
	}
	defer src.Close()

	if checksum != "" {
		if err := fetch.VerifySHA256(src, checksum); err != nil {
			return fmt.Errorf("verify %s: %w", source, err)
		}
		env.logger.Debug("checksum verified", "source", source)
	}

	return unpacker.Unpack(ctx, unpack.Request{
		SourceURL:   hint,
		Stream:      src,
		Dest:        dest,
		Extract:     extract,
		Format:      format,
		StartOffset: offset,
	})
}
