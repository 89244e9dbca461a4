package unpack

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an unpacking failure.
type Kind int

const (
	// KindUnknownFormat means no format was given and the URL suffix is not recognized.
	KindUnknownFormat Kind = iota + 1
	// KindUnsupportedFormat means the format has no extractor.
	KindUnsupportedFormat
	// KindMissingTool means an external tool needed for the format is not on the search path.
	KindMissingTool
	// KindIllegalExtractPath means the requested subpath contains disallowed characters.
	KindIllegalExtractPath
	// KindUnsupportedExtractPath means the format cannot extract a single subtree.
	KindUnsupportedExtractPath
	// KindNotADebPackage means the ar archive holds no data.tar member.
	KindNotADebPackage
	// KindExtractionFailed means an external tool exited non-zero.
	KindExtractionFailed
	// KindNotFound means the requested subpath was absent from the archive.
	KindNotFound
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindUnknownFormat:
		return "UnknownFormat"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindMissingTool:
		return "MissingTool"
	case KindIllegalExtractPath:
		return "IllegalExtractPath"
	case KindUnsupportedExtractPath:
		return "UnsupportedExtractPath"
	case KindNotADebPackage:
		return "NotADebPackage"
	case KindExtractionFailed:
		return "ExtractionFailed"
	case KindNotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error family reported by the unpacker. Every failure
// of an Unpack call that is not a plain I/O error is an *Error.
type Error struct {
	Kind    Kind
	Message string

	// Command, ExitCode and Stderr are set for KindExtractionFailed.
	Command  []string
	ExitCode int
	Stderr   string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindExtractionFailed && len(e.Command) > 0 {
		msg := fmt.Sprintf("%s (using %s); exit code %d", e.Message, formatCommand(e.Command), e.ExitCode)
		if e.Stderr != "" {
			msg += ":\n" + e.Stderr
		}
		return msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or any error it wraps, is an *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var unpackErr *Error
	if errors.As(err, &unpackErr) {
		return unpackErr.Kind == kind
	}
	return false
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func formatCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = fmt.Sprintf("%q", arg)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}
