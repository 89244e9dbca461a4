package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/pombredanne/0install/internal/config"
)

const configUsage = "0store config [options]"

// runConfig handles the `0store config` subcommand. It prints the effective
// configuration as Lua that can be saved as the config file.
func runConfig(args []string, stdout, stderr io.Writer) error {
	var common commonFlags

	flagSet := pflag.NewFlagSet("config", pflag.ContinueOnError)
	common.register(flagSet)

	if help, err := parseFlags(flagSet, args, stdout, configUsage); help || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	env, err := loadEnvironment(ctx, &common, stderr)
	if err != nil {
		return err
	}

	source := env.location.Path
	if _, err := os.Stat(source); errors.Is(err, fs.ErrNotExist) {
		source += " (not found, using defaults)"
	}
	fmt.Fprintf(stdout, "-- effective configuration from %s\n", source)
	fmt.Fprint(stdout, config.NewGenerator().Generate(env.config))
	return nil
}
