package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/pombredanne/0install/internal/config"
	"github.com/pombredanne/0install/internal/platform"
)

// commonFlags are accepted by every subcommand that reads the config.
type commonFlags struct {
	configPath string
	debug      bool
}

func (c *commonFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "config file (default: $"+config.EnvConfig+" or ~/.config/0store/0store.lua)")
	flagSet.BoolVar(&c.debug, "debug", false, "log tool probes and commands to stderr")
	flagSet.BoolP("help", "h", false, "show help")
}

// environment is everything a subcommand needs from the host.
type environment struct {
	logger   *slog.Logger
	platform *platform.Info
	config   *config.Config
	location config.Location
}

// newLogger tags every record with a per-invocation run ID.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug || os.Getenv(config.EnvDebug) != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run", uuid.NewString())
}

// loadEnvironment detects the platform once and evaluates the config file
// against it.
func loadEnvironment(ctx context.Context, flags *commonFlags, stderr io.Writer) (*environment, error) {
	logger := newLogger(stderr, flags.debug)

	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("detected platform", "os", info.OS, "arch", info.Arch, "family", info.Family)

	loc, err := config.Resolve(flags.configPath)
	if err != nil {
		return nil, err
	}

	parser := config.NewParser(platform.StaticDetector{Info: *info})
	cfg, err := parser.Load(ctx, loc)
	if err != nil {
		var parseErr *config.ParseError
		if errors.As(err, &parseErr) {
			return nil, errors.New(config.FormatError(err, flags.debug))
		}
		return nil, err
	}
	logger.Debug("loaded config", "path", loc.Path, "timezone", cfg.Timezone, "portable_tar", cfg.PortableTar)

	return &environment{logger: logger, platform: info, config: cfg, location: loc}, nil
}

// parseFlags parses args and reports whether help was requested.
func parseFlags(flagSet *pflag.FlagSet, args []string, stdout io.Writer, usage string) (bool, error) {
	flagSet.SetOutput(io.Discard)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet, usage)
			return true, nil
		}
		return false, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet, usage)
		return true, nil
	}
	return false, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet, usage string) {
	io.WriteString(w, "Usage:\n  "+usage+"\n\nOptions:\n")
	io.WriteString(w, flagSet.FlagUsages())
}
