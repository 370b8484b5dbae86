// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"

	"github.com/bureau-foundation/picklecompat/lib/value"
)

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE3  Algorithm = "blake3"
	BLAKE2b Algorithm = "blake2b"
)

// ParseAlgorithm validates an algorithm name from configuration.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch algorithm := Algorithm(strings.ToLower(name)); algorithm {
	case SHA256, BLAKE3, BLAKE2b:
		return algorithm, nil
	}
	return "", fmt.Errorf("unknown fingerprint algorithm %q (want sha256, blake3, or blake2b)", name)
}

// Digest is a 32-byte digest tagged with the algorithm that produced
// it. The zero Digest means "no fingerprint" (failed cells).
type Digest struct {
	Algorithm Algorithm
	Sum       [32]byte
}

// Sum digests data with algorithm. An unknown algorithm panics; names
// are validated by [ParseAlgorithm] when configuration is loaded.
func Sum(algorithm Algorithm, data []byte) Digest {
	digest := Digest{Algorithm: algorithm}
	switch algorithm {
	case SHA256:
		digest.Sum = sha256.Sum256(data)
	case BLAKE3:
		hasher := blake3.New()
		hasher.Write(data)
		copy(digest.Sum[:], hasher.Sum(nil))
	case BLAKE2b:
		digest.Sum = blake2b.Sum256(data)
	default:
		panic(fmt.Sprintf("fingerprint: unknown algorithm %q", algorithm))
	}
	return digest
}

// Canonical renders v canonically and digests the rendering. The
// rendering is returned too so callers can feed a [Registry].
func Canonical(algorithm Algorithm, v *value.Value) (Digest, string) {
	rendering := value.Canonical(v)
	return Sum(algorithm, []byte(rendering)), rendering
}

// IsZero reports whether d is the zero Digest.
func (d Digest) IsZero() bool {
	return d.Algorithm == ""
}

// String returns "algorithm:hex", or "" for the zero Digest.
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return string(d.Algorithm) + ":" + hex.EncodeToString(d.Sum[:])
}

// Short returns the algorithm-free first 12 hex digits, for columns.
func (d Digest) Short() string {
	if d.IsZero() {
		return "-"
	}
	return hex.EncodeToString(d.Sum[:6])
}

// Parse reverses [Digest.String]. The empty string parses to the zero
// Digest.
func Parse(text string) (Digest, error) {
	if text == "" {
		return Digest{}, nil
	}
	name, hexDigits, found := strings.Cut(text, ":")
	if !found {
		return Digest{}, fmt.Errorf("parsing digest %q: missing algorithm prefix", text)
	}
	algorithm, err := ParseAlgorithm(name)
	if err != nil {
		return Digest{}, fmt.Errorf("parsing digest %q: %w", text, err)
	}
	decoded, err := hex.DecodeString(hexDigits)
	if err != nil {
		return Digest{}, fmt.Errorf("parsing digest %q: %w", text, err)
	}
	if len(decoded) != 32 {
		return Digest{}, fmt.Errorf("parsing digest %q: %d bytes, want 32", text, len(decoded))
	}
	digest := Digest{Algorithm: algorithm}
	copy(digest.Sum[:], decoded)
	return digest, nil
}

// MarshalText encodes the digest as [Digest.String].
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a digest written by MarshalText.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
