package services

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/photomirror/client/internal/models"
)

// hashChunkSize bounds memory use while hashing regardless of file size
const hashChunkSize = 4096

// HashInputKind tags the encoding of a caller-supplied hash
type HashInputKind int

const (
	hashInputNone HashInputKind = iota
	hashInputRaw
	hashInputHex
	hashInputBase64
)

// HashInput is a caller-supplied SHA-1 digest in one of the accepted
// encodings, resolved once at the boundary into canonical byte form.
type HashInput struct {
	kind HashInputKind
	raw  []byte
	str  string
}

// RawHash wraps a raw 20-byte digest
func RawHash(digest []byte) HashInput {
	return HashInput{kind: hashInputRaw, raw: digest}
}

// HexHash wraps a hex-encoded digest string
func HexHash(s string) HashInput {
	return HashInput{kind: hashInputHex, str: s}
}

// Base64Hash wraps a base64-encoded digest string
func Base64Hash(s string) HashInput {
	return HashInput{kind: hashInputBase64, str: s}
}

// ParseHashString classifies a digest string: exactly 40 hex characters
// means hex, anything else is treated as base64. The length check comes
// first because a 40-char hex string is usually also valid base64.
func ParseHashString(s string) HashInput {
	if isHexDigest(s) {
		return HexHash(s)
	}
	return Base64Hash(s)
}

// IsZero reports whether no hash was supplied
func (h HashInput) IsZero() bool {
	return h.kind == hashInputNone
}

func isHexDigest(s string) bool {
	if len(s) != sha1.Size*2 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// HashService computes and normalizes SHA-1 content fingerprints
type HashService struct{}

// NewHashService creates a new HashService
func NewHashService() *HashService {
	return &HashService{}
}

// Resolve converts a supplied hash into its canonical raw digest and
// base64 encoding without touching the file.
func (s *HashService) Resolve(input HashInput) ([]byte, string, error) {
	switch input.kind {
	case hashInputRaw:
		if len(input.raw) == 0 {
			return nil, "", models.ErrEmptyHashInput
		}
		return input.raw, base64.StdEncoding.EncodeToString(input.raw), nil

	case hashInputHex:
		if !isHexDigest(input.str) {
			return nil, "", fmt.Errorf("%w: expected 40 hex characters", models.ErrInvalidHashFormat)
		}
		digest, err := hex.DecodeString(input.str)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", models.ErrInvalidHashFormat, err)
		}
		return digest, base64.StdEncoding.EncodeToString(digest), nil

	case hashInputBase64:
		digest, err := base64.StdEncoding.DecodeString(input.str)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", models.ErrInvalidHashFormat, err)
		}
		return digest, input.str, nil

	default:
		return nil, "", models.ErrEmptyHashInput
	}
}

// HashFile streams the file through SHA-1 in fixed-size chunks and
// returns the raw digest and its base64 encoding. The optional progress
// callback receives chunk-level byte counts.
func (s *HashService) HashFile(path string, progress ProgressFunc) ([]byte, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat file for hashing: %w", err)
	}
	total := info.Size()

	hasher := sha1.New()
	buf := make([]byte, hashChunkSize)
	var done int64

	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, "", fmt.Errorf("failed to read file for hashing: %w", readErr)
		}
	}

	digest := hasher.Sum(nil)
	return digest, base64.StdEncoding.EncodeToString(digest), nil
}

// URLSafeBase64 converts a standard base64 digest to the URL-safe,
// unpadded form used as a dedup key.
func URLSafeBase64(b64 string) string {
	replaced := strings.NewReplacer("+", "-", "/", "_").Replace(b64)
	return strings.TrimRight(replaced, "=")
}
