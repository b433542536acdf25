package pagestore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the page compression algorithm.
type Compression uint8

const (
	// CompressionNone stores pages as encoded.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot pages).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses Zstandard (better ratio, good for cold pages).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

var errBadPage = errors.New("malformed page")

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

// Page layout: [rawSize uint32][packedSize uint32][data...].
// packedSize == 0 means data is stored raw.
const pageHeaderSize = 8

func compressPage(raw []byte, c Compression) ([]byte, error) {
	var packed []byte

	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CompressionZstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression %v", c)
	}

	// Keep incompressible pages raw.
	if len(packed) == 0 || float64(len(packed)) > float64(len(raw))*0.9 {
		out := make([]byte, pageHeaderSize+len(raw))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(raw)))
		copy(out[pageHeaderSize:], raw)
		return out, nil
	}

	out := make([]byte, pageHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[pageHeaderSize:], packed)
	return out, nil
}

func decompressPage(data []byte, c Compression) ([]byte, error) {
	if len(data) < pageHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errBadPage, len(data))
	}

	rawSize := binary.LittleEndian.Uint32(data[0:])
	packedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[pageHeaderSize:]

	if packedSize == 0 {
		if uint32(len(body)) < rawSize {
			return nil, fmt.Errorf("%w: truncated", errBadPage)
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < packedSize {
		return nil, fmt.Errorf("%w: truncated", errBadPage)
	}
	body = body[:packedSize]

	switch c {
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, fmt.Errorf("%w: size mismatch", errBadPage)
		}
		return out, nil
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != rawSize {
			return nil, fmt.Errorf("%w: size mismatch", errBadPage)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed with %v", errBadPage, c)
	}
}
