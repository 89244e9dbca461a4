package unpack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// run executes argv with working directory dir and stdin positioned at
// offset, and waits for it to exit. argv[0] is a canonical tool name and is
// mapped through the configured command overrides. A non-zero exit is
// reported as KindExtractionFailed carrying the trimmed stderr.
func (u *Unpacker) run(ctx context.Context, dir string, stdin io.ReadSeeker, offset int64, argv ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd, err := u.command(ctx, dir, stdin, offset, argv)
	if err != nil {
		return nil, err
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	u.log.Debug("running tool", "command", argv, "dir", dir)
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), u.commandError(err, "failed to extract archive", argv, stderr.String())
	}
	return stdout.Bytes(), nil
}

// pipeToFile runs argv with stdin positioned at offset and stdout connected
// to out, and waits for it to exit. failure is the message used if the
// command exits non-zero.
func (u *Unpacker) pipeToFile(ctx context.Context, stdin io.ReadSeeker, offset int64, out *os.File, failure string, argv ...string) error {
	var stderr bytes.Buffer

	cmd, err := u.command(ctx, "", stdin, offset, argv)
	if err != nil {
		return err
	}
	cmd.Stdout = out
	cmd.Stderr = &stderr

	u.log.Debug("piping tool output to file", "command", argv, "file", out.Name())
	if err := cmd.Run(); err != nil {
		return u.commandError(err, failure, argv, stderr.String())
	}
	return nil
}

func (u *Unpacker) command(ctx context.Context, dir string, stdin io.ReadSeeker, offset int64, argv []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		panic("unpack: empty command")
	}

	resolved := append([]string{u.caps.Command(argv[0])}, argv[1:]...)
	resolved = sandboxWrap(dir, resolved)

	//nolint:gosec // G204: argv is built from fixed flags and validated extract paths
	cmd := exec.CommandContext(ctx, resolved[0], resolved[1:]...)
	cmd.Dir = dir
	// Some archives carry no timezone information; force consistent results.
	cmd.Env = append(os.Environ(), "TZ="+u.timezone)

	if stdin != nil {
		if err := seekTo(stdin, offset); err != nil {
			return nil, err
		}
		cmd.Stdin = stdin
	}
	return cmd, nil
}

func (u *Unpacker) commandError(err error, message string, argv []string, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Error{
			Kind:     KindExtractionFailed,
			Message:  message,
			Command:  argv,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr),
			Err:      err,
		}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &Error{
			Kind:    KindMissingTool,
			Message: fmt.Sprintf("%q not found in $PATH", u.caps.Command(argv[0])),
			Err:     err,
		}
	}
	return fmt.Errorf("run %s: %w", argv[0], err)
}

// sandboxWrap is where argv would be rewritten to run confined, with only
// writable left writable. No sandbox is wired, so argv runs as is.
func sandboxWrap(writable string, argv []string) []string {
	return argv
}

func seekTo(s io.Seeker, offset int64) error {
	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to offset %d: %w", offset, err)
	}
	return nil
}
