package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/pombredanne/0install/internal/unpack"
)

const checkUsage = "0store check [options] (--type MIME | URL)"

// runCheck handles the `0store check` subcommand
func runCheck(args []string, stdout, stderr io.Writer) error {
	var (
		common   commonFlags
		mimeType string
	)

	flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
	common.register(flagSet)
	flagSet.StringVar(&mimeType, "type", "", "archive MIME type to check")

	if help, err := parseFlags(flagSet, args, stdout, checkUsage); help || err != nil {
		return err
	}

	var url string
	switch {
	case flagSet.NArg() > 1:
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(1))
	case flagSet.NArg() == 1:
		url = flagSet.Arg(0)
	case mimeType == "":
		return fmt.Errorf("either --type or a URL is required\nUsage: %s", checkUsage)
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	env, err := loadEnvironment(ctx, &common, stderr)
	if err != nil {
		return err
	}

	unpacker, err := unpack.New(env.config.UnpackConfig(env.logger, env.platform))
	if err != nil {
		return err
	}

	format, err := unpack.ResolveFormat(url, unpack.Format(mimeType))
	if err != nil {
		return err
	}
	if err := unpacker.CheckFormatSupported(format); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: supported\n", format)
	return nil
}
