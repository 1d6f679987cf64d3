// Package types provides core data types for the dupe duplicate finder.
// It includes the records exchanged between the scan and hash stages,
// duplicate groups, progress snapshots, and helpers for parsing and
// formatting file sizes.
package types

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Digest is the fixed-length output of a content hash.
// Two files with equal digests are treated as having identical content.
type Digest []byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Key returns the digest as a string usable as a map key.
func (d Digest) Key() string {
	return string(d)
}

// Compare orders digests byte-lexicographically.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d, other)
}

// MarshalText encodes the digest as hex for JSON and YAML output.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decoding digest: %w", err)
	}
	*d = raw
	return nil
}

// HashRecord is the result of hashing one file.
type HashRecord struct {
	// Digest is the content digest of the file.
	Digest Digest `json:"digest"`

	// Path is the canonical path of the file.
	Path string `json:"path"`

	// Size is the number of bytes that were read while hashing.
	Size int64 `json:"size"`
}

// DuplicateGroup is a set of two or more files sharing a digest and size.
type DuplicateGroup struct {
	// Digest is the shared content digest.
	Digest Digest `json:"digest"`

	// Size is the size in bytes of each member.
	Size int64 `json:"size"`

	// Paths lists the members in display order.
	Paths []string `json:"paths"`
}

// Wasted returns the number of bytes that could be reclaimed by keeping
// a single copy of the group.
func (g *DuplicateGroup) Wasted() int64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return g.Size * int64(len(g.Paths)-1)
}

// ScanError represents a non-fatal error encountered during a run.
// It pairs a file path with the error message for debugging and reporting.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// ScanProgress is a snapshot of the enumeration stage.
type ScanProgress struct {
	// DirsScanned is the number of directory listings merged so far.
	DirsScanned int64 `json:"dirs_scanned"`

	// FilesFound is the number of distinct files in the file index.
	FilesFound int64 `json:"files_found"`

	// BytesFound is the combined size of FilesFound.
	BytesFound int64 `json:"bytes_found"`

	// CurrentPath is the most recently merged directory.
	CurrentPath string `json:"current_path"`
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// Plain numbers are bytes; K, M, G and T suffixes (optionally followed by B
// or iB) are binary multiples. Decimal values are truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
