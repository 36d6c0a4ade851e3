package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how entry bodies are compressed on disk.
type Compression string

const (
	// CompressionNone stores bodies as produced by the codec.
	CompressionNone Compression = ""
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = "lz4"
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD Compression = "zstd"
)

var (
	// ErrUnknownCompression is returned for an unsupported Compression value.
	ErrUnknownCompression = errors.New("unknown compression")
	// ErrCorrupt is returned when a compressed body cannot be decoded.
	ErrCorrupt = errors.New("corrupt compressed data")
)

// Validate checks that c names a supported algorithm.
func (c Compression) Validate() error {
	switch c {
	case CompressionNone, CompressionLZ4, CompressionZSTD, "none":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
	}
}

// Ext returns the file suffix appended after the codec extension.
func (c Compression) Ext() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZSTD:
		return ".zst"
	default:
		return ""
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Header format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// If CompressedSize == 0, the body is stored uncompressed.
const headerSize = 8

// Compress compresses data with c. Bodies that do not shrink by at least 10%
// are stored raw behind the same header.
func (c Compression) Compress(data []byte) ([]byte, error) {
	if c == CompressionNone || c == "none" {
		return data, nil
	}

	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, c.Validate()
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, headerSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[headerSize:], data)
		return out, nil
	}

	out := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[headerSize:], compressed)
	return out, nil
}

// Decompress reverses Compress.
func (c Compression) Decompress(data []byte) ([]byte, error) {
	if c == CompressionNone || c == "none" {
		return data, nil
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: body too small for header", ErrCorrupt)
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint32(len(data)) < headerSize+uncompressedSize {
			return nil, fmt.Errorf("%w: body truncated", ErrCorrupt)
		}
		return data[headerSize : headerSize+uncompressedSize], nil
	}
	if uint32(len(data)) < headerSize+compressedSize {
		return nil, fmt.Errorf("%w: compressed body truncated", ErrCorrupt)
	}

	payload := data[headerSize : headerSize+compressedSize]
	result := make([]byte, uncompressedSize)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return result, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(payload, result[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return decoded, nil
	default:
		return nil, c.Validate()
	}
}
