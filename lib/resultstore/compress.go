// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultstore

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names how a stored payload is compressed. The names are
// written to the payload_compression column.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// zstdThreshold is the payload size from which zstd is tried instead
// of lz4.
const zstdThreshold = 4096

var errIncompressible = errors.New("payload is incompressible")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("resultstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("resultstore: zstd decoder initialization failed: " + err.Error())
	}
}

// compressPayload picks an algorithm by size and falls back to storing
// the payload as is when compression does not shrink it.
func compressPayload(payload []byte) (Compression, []byte) {
	var (
		compressed []byte
		err        error
	)
	tag := CompressionLZ4
	if len(payload) >= zstdThreshold {
		tag = CompressionZstd
		compressed, err = compressZstd(payload)
	} else {
		compressed, err = compressLZ4(payload)
	}
	if err != nil {
		return CompressionNone, payload
	}
	return tag, compressed
}

func decompressPayload(tag Compression, data []byte, size int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(data) != size {
			return nil, fmt.Errorf("stored payload is %d bytes, want %d", len(data), size)
		}
		return data, nil
	case CompressionLZ4:
		return decompressLZ4(data, size)
	case CompressionZstd:
		return decompressZstd(data, size)
	}
	return nil, fmt.Errorf("unknown payload compression %q", tag)
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports incompressible input as zero bytes written.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", read, size)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	destination, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(destination) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, want %d", len(destination), size)
	}
	return destination, nil
}
