package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// ChecksumError reports a digest that does not match the expected value.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch:\nactual:   %s\nexpected: %s", e.Actual, e.Expected)
}

// VerifySHA256 hashes r from its start and compares the result with the
// hex digest expected (case-insensitive). r is rewound afterwards.
func VerifySHA256(r io.ReadSeeker, expected string) error {
	expected = strings.TrimSpace(expected)
	if len(expected) != sha256.Size*2 {
		return fmt.Errorf("invalid SHA256 digest %q: want %d hex characters", expected, sha256.Size*2)
	}
	if _, err := hex.DecodeString(expected); err != nil {
		return fmt.Errorf("invalid SHA256 digest %q: %w", expected, err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind source: %w", err)
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind source: %w", err)
	}

	// Compare checksums (case-insensitive)
	actual := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return &ChecksumError{Expected: expected, Actual: actual}
	}
	return nil
}
