package pagestore

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/spatialknn/codec"
	"golang.org/x/time/rate"
)

// Options contains configuration options for the page store.
type Options struct {
	// Prefix is prepended to every blob name.
	Prefix string

	// Codec encodes nodes. Open replaces it with the codec recorded in the
	// store's meta blob.
	Codec codec.Codec

	// Compression is applied to every encoded page.
	Compression Compression

	// CacheSize is the maximum number of decoded clean nodes kept in memory.
	// 0 disables the cache.
	CacheSize int64

	// ReadLimit throttles blob reads to this many pages per second.
	// 0 means unlimited.
	ReadLimit rate.Limit

	// ReadBurst is the limiter burst size. Defaults to 1 when ReadLimit is set.
	ReadBurst int

	// FlushConcurrency bounds the number of parallel blob writes in Flush.
	FlushConcurrency int

	// Logger receives flush and load events.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the page store.
var DefaultOptions = Options{
	Codec:            codec.Default,
	Compression:      CompressionLZ4,
	CacheSize:        4096,
	FlushConcurrency: 8,
}

func (o *Options) validate() error {
	if o.Codec == nil {
		return fmt.Errorf("%w: nil codec", ErrInvalidOptions)
	}
	if o.Compression > CompressionZstd {
		return fmt.Errorf("%w: unknown compression %v", ErrInvalidOptions, o.Compression)
	}
	if o.CacheSize < 0 {
		return fmt.Errorf("%w: cache size %d", ErrInvalidOptions, o.CacheSize)
	}
	if o.ReadLimit < 0 {
		return fmt.Errorf("%w: read limit %v", ErrInvalidOptions, o.ReadLimit)
	}
	if o.FlushConcurrency < 1 {
		return fmt.Errorf("%w: flush concurrency %d", ErrInvalidOptions, o.FlushConcurrency)
	}
	return nil
}
